// Command osmosis-rig sequences the valves and pump of a reverse-osmosis
// filtration rig through its flush/disposal/filter cycle, driven by a
// single button, and publishes phase changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/osmosis-rig/internal/buzzer"
	"github.com/sweeney/osmosis-rig/internal/config"
	"github.com/sweeney/osmosis-rig/internal/gpio"
	"github.com/sweeney/osmosis-rig/internal/logic"
	"github.com/sweeney/osmosis-rig/internal/mqtt"
	"github.com/sweeney/osmosis-rig/internal/status"
	"github.com/sweeney/osmosis-rig/internal/web"
)

func main() {
	poll := flag.Duration("poll", 25*time.Millisecond, "Button polling interval")
	debounce := flag.Duration("debounce", logic.DefaultDebounce, "Button debounce window")
	longPress := flag.Duration("long-press", logic.DefaultLongPress, "Hold duration that classifies as a long press")
	configPath := flag.String("config", "/etc/osmosis-rig/config.json", "Rig config file")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	pinButton := flag.Int("pin-button", gpio.DefaultPinButton, "BCM pin number for the button")
	pinMembraneIn := flag.Int("pin-membrane-in", gpio.DefaultPinMembraneIn, "BCM pin number for the membrane inlet valve")
	pinDrain := flag.Int("pin-drain", gpio.DefaultPinDrain, "BCM pin number for the drain valve")
	pinDisposal := flag.Int("pin-disposal", gpio.DefaultPinDisposal, "BCM pin number for the disposal valve")
	pinProduct := flag.Int("pin-product", gpio.DefaultPinProduct, "BCM pin number for the product valve")
	pinPump := flag.Int("pin-pump", gpio.DefaultPinPump, "BCM pin number for the pump relay")
	pinBuzzer := flag.Int("pin-buzzer", gpio.DefaultPinBuzzer, "BCM pin number for the buzzer")
	printConfig := flag.Bool("print-config", false, "Print the loaded rig config and exit")

	flag.Parse()

	pins := gpio.OutputPins{
		MembraneIn: *pinMembraneIn,
		Drain:      *pinDrain,
		Disposal:   *pinDisposal,
		Product:    *pinProduct,
		Pump:       *pinPump,
	}

	if err := run(*poll, *debounce, *longPress, *configPath, *broker, *heartbeat, *httpAddr, *pinButton, pins, *pinBuzzer, *printConfig); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll, debounce, longPress time.Duration, configPath, broker string, heartbeat time.Duration, httpAddr string, pinButton int, pins gpio.OutputPins, pinBuzzer int, printConfig bool) error {
	store := config.NewStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		// Keep running on the in-memory defaults; only the file is broken.
		log.Printf("config load: %v (continuing with defaults)", err)
	}

	if printConfig {
		fmt.Printf("pre_flush_sec=%d post_flush_sec=%d disposal_sec=%d filter_sec=%d auto_flush_sec=%d water_clean_sec=%d buzzer_frequency=%d pump_switch_delay=%d\n",
			cfg.PreFlushSec, cfg.PostFlushSec, cfg.DisposalSec, cfg.FilterSec,
			cfg.AutoFlushSec, cfg.WaterCleanSec, cfg.BuzzerFrequency, cfg.PumpSwitchDelay)
		return nil
	}

	// Initialize GPIO
	button, err := gpio.NewRealButton(pinButton)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	outputs, err := gpio.NewRealOutputs(pins)
	if err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	defer outputs.Close()

	// Everything off before the loop starts, whatever state the relays
	// were left in.
	allOff(outputs)

	var sounder buzzer.Sounder
	real, err := buzzer.NewReal(pinBuzzer, cfg.BuzzerFrequency)
	if err != nil {
		log.Printf("init buzzer: %v (cues disabled)", err)
		sounder = buzzer.Discard{}
	} else {
		sounder = real
	}
	defer sounder.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(broker)
	defer publisher.Close()

	startTime := time.Now()
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:      poll.Milliseconds(),
		DebounceMs:  debounce.Milliseconds(),
		LongPressMs: longPress.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPPort:    httpAddr,
		ConfigPath:  configPath,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	monitor := logic.NewButtonMonitor(debounce, longPress)
	ctl := logic.NewController(cfg.Params(), monitor, startTime)
	updateTracker(tracker, ctl, startTime)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	sounder.Play(logic.CueGreeting)

	log.Printf("started: poll=%v debounce=%v long-press=%v broker=%s heartbeat=%v config=%s",
		poll, debounce, longPress, broker, heartbeat, configPath)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(button, outputs, sounder, publisher, publisher, store, cfg, ctl, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(button gpio.Button, outputs gpio.Outputs, sounder buzzer.Sounder, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, store *config.Store, cfg config.Config, ctl *logic.Controller, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	faultReported := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Safe state before anything else.
			allOff(outputs)

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			pressed, err := button.Pressed()
			if err != nil {
				log.Printf("button read error: %v", err)
				continue
			}

			res := ctl.Tick(t, pressed)

			for _, cmd := range res.Commands {
				log.Printf("actuate: %s %s", cmd.Role, onOff(cmd.On))
				if err := outputs.Set(cmd.Role, cmd.On); err != nil {
					// Assumed not to happen on real hardware; log and
					// keep sequencing rather than stall the cycle.
					log.Printf("actuate %s: %v", cmd.Role, err)
				}
			}

			for _, cue := range res.Cues {
				sounder.Play(cue)
			}

			for _, event := range res.Events {
				log.Printf("phase: %s -> %s (%s)", event.From, event.To, event.Trigger)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if res.SaveFilterSec > 0 {
				cfg.FilterSec = res.SaveFilterSec
				if err := store.Save(cfg); err != nil {
					// Non-fatal: the controller keeps the new duration
					// in memory for the rest of the run.
					log.Printf("save filter duration: %v", err)
					sounder.Play(logic.CueWarn)
				} else {
					log.Printf("saved filter duration: %ds", res.SaveFilterSec)
				}
			}

			if ctl.Fatal() && !faultReported {
				faultReported = true
				log.Printf("actuator fault: cycling halted, restart required")
				if tracker != nil {
					updateTracker(tracker, ctl, t)
					snap := tracker.Snapshot()
					faultEvent := mqtt.SystemEvent{
						Timestamp:  t,
						Event:      "FAULT",
						Retained:   true,
						RawPayload: status.FormatStatusEvent(snap, "FAULT", ""),
					}
					if err := publisher.PublishSystem(faultEvent); err != nil {
						log.Printf("fault publish error: %v", err)
					}
				}
			}

			if tracker != nil {
				updateTracker(tracker, ctl, t)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func updateTracker(tracker *status.Tracker, ctl *logic.Controller, t time.Time) {
	tracker.Update(
		ctl.Phase(),
		ctl.LongRun(),
		ctl.AutoCycle(),
		ctl.Remaining(t),
		ctl.AutoFlushDeadline(),
		int(ctl.FilterDuration()/time.Second),
		ctl.Counts(),
		ctl.Fatal(),
	)
}

// allOff drives every actuator line off, pump first so it never runs
// against closed valves.
func allOff(outputs gpio.Outputs) {
	if err := outputs.Set(logic.RolePump, false); err != nil {
		log.Printf("stop pump: %v", err)
	}
	for r := logic.RoleMembraneIn; r <= logic.RoleProductOut; r++ {
		if err := outputs.Set(r, false); err != nil {
			log.Printf("close %s: %v", r, err)
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
