// Package config loads and persists the rig timing configuration as a
// JSON file. The file is created with defaults when absent, corrected
// fields are written back, and every save rewrites the file in full.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// Config is the persisted rig configuration. All fields are whole
// seconds except BuzzerFrequency (Hz) and PumpSwitchDelay (ms).
type Config struct {
	PreFlushSec     int `json:"pre_flush_sec"`
	PostFlushSec    int `json:"post_flush_sec"`
	DisposalSec     int `json:"disposal_sec"`
	FilterSec       int `json:"filter_sec"`
	AutoFlushSec    int `json:"auto_flush_sec"`
	WaterCleanSec   int `json:"water_clean_sec"`
	BuzzerFrequency int `json:"buzzer_frequency"`
	PumpSwitchDelay int `json:"pump_switch_delay"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		PreFlushSec:     30,
		PostFlushSec:    30,
		DisposalSec:     60,
		FilterSec:       600,
		AutoFlushSec:    8 * 60 * 60,
		WaterCleanSec:   5 * 60,
		BuzzerFrequency: 1500,
		PumpSwitchDelay: 1000,
	}
}

// Params converts the persisted values to the durations the controller
// works with.
func (c Config) Params() logic.Params {
	return logic.Params{
		PreFlush:        time.Duration(c.PreFlushSec) * time.Second,
		PostFlush:       time.Duration(c.PostFlushSec) * time.Second,
		Disposal:        time.Duration(c.DisposalSec) * time.Second,
		Filter:          time.Duration(c.FilterSec) * time.Second,
		AutoFlush:       time.Duration(c.AutoFlushSec) * time.Second,
		WaterClean:      time.Duration(c.WaterCleanSec) * time.Second,
		PumpSwitchDelay: time.Duration(c.PumpSwitchDelay) * time.Millisecond,
	}
}

// Store reads and writes one config file.
type Store struct {
	Path string
}

// NewStore creates a store for the given path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the config file. A missing file is created with defaults.
// Out-of-range fields are replaced with their defaults and the
// corrected file is persisted back. An unparseable file is replaced
// wholesale — the rig must keep running on defaults rather than stall.
func (s *Store) Load() (Config, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := s.Save(cfg); err != nil {
			return cfg, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("config: %s unparseable (%v), rewriting defaults", s.Path, err)
		cfg = Default()
		if err := s.Save(cfg); err != nil {
			return cfg, fmt.Errorf("rewrite default config: %w", err)
		}
		return cfg, nil
	}

	if fixed := sanitize(&cfg); len(fixed) > 0 {
		log.Printf("config: replaced invalid fields with defaults: %v", fixed)
		if err := s.Save(cfg); err != nil {
			return cfg, fmt.Errorf("persist corrected config: %w", err)
		}
	}
	return cfg, nil
}

// Save rewrites the whole file.
func (s *Store) Save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.Path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// sanitize replaces out-of-range fields with defaults and returns the
// JSON names of the fields it touched. Durations must be non-negative;
// the buzzer frequency must be a usable audible tone.
func sanitize(cfg *Config) []string {
	def := Default()
	var fixed []string

	check := func(name string, field *int, min, max, fallback int) {
		if *field < min || (max > 0 && *field > max) {
			*field = fallback
			fixed = append(fixed, name)
		}
	}

	check("pre_flush_sec", &cfg.PreFlushSec, 0, 0, def.PreFlushSec)
	check("post_flush_sec", &cfg.PostFlushSec, 0, 0, def.PostFlushSec)
	check("disposal_sec", &cfg.DisposalSec, 0, 0, def.DisposalSec)
	check("filter_sec", &cfg.FilterSec, 0, 0, def.FilterSec)
	check("auto_flush_sec", &cfg.AutoFlushSec, 0, 0, def.AutoFlushSec)
	check("water_clean_sec", &cfg.WaterCleanSec, 0, 0, def.WaterCleanSec)
	check("buzzer_frequency", &cfg.BuzzerFrequency, 100, 20000, def.BuzzerFrequency)
	check("pump_switch_delay", &cfg.PumpSwitchDelay, 0, 0, def.PumpSwitchDelay)

	return fixed
}
