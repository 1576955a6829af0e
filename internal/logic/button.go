package logic

import "time"

// Default ButtonMonitor tuning.
const (
	DefaultDebounce  = 20 * time.Millisecond
	DefaultLongPress = time.Second
)

// ButtonMonitor debounces the raw button level and classifies presses.
// At most one event is produced per press/release cycle, and only at
// release: a held button is indistinguishable from a shorter hold until
// the level falls again.
type ButtonMonitor struct {
	debounce  time.Duration
	longPress time.Duration

	primed   bool // raw/rawSince hold a real observation
	raw      bool // last observed level
	rawSince time.Time
	stable   bool // debounced level, true = pressed

	pressedAt time.Time // time of the accepted rising edge
}

// NewButtonMonitor creates a monitor. A hold of exactly longPress or
// more classifies as LongPress. Level changes shorter than debounce are
// ignored entirely and never start a press timer.
func NewButtonMonitor(debounce, longPress time.Duration) *ButtonMonitor {
	return &ButtonMonitor{debounce: debounce, longPress: longPress}
}

// Poll feeds one raw sample (true = pressed). It returns a classified
// event when a debounced release is observed, nil otherwise.
func (m *ButtonMonitor) Poll(now time.Time, pressed bool) *ButtonEvent {
	if !m.primed || pressed != m.raw {
		m.primed = true
		m.raw = pressed
		m.rawSince = now
		return nil
	}

	if pressed == m.stable {
		return nil
	}
	if now.Sub(m.rawSince) < m.debounce {
		// Not stable long enough to accept the edge yet.
		return nil
	}

	m.stable = pressed
	if pressed {
		// Rising edge accepted; the press physically began when the
		// level first went active.
		m.pressedAt = m.rawSince
		return nil
	}

	// Falling edge: classify by how long the level was held, measured
	// edge to edge so the debounce lag cancels out.
	held := m.rawSince.Sub(m.pressedAt)
	ev := ShortPress
	if held >= m.longPress {
		ev = LongPress
	}
	return &ev
}

// Held reports whether the debounced level is currently pressed.
func (m *ButtonMonitor) Held() bool {
	return m.stable
}
