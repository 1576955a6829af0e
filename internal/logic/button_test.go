package logic

import (
	"testing"
	"time"
)

var buttonBase = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// feed polls the monitor with one sample and fails the test if an event
// appears where none is expected.
func feedNone(t *testing.T, m *ButtonMonitor, at time.Duration, pressed bool) {
	t.Helper()
	if ev := m.Poll(buttonBase.Add(at), pressed); ev != nil {
		t.Fatalf("unexpected event %s at %v", *ev, at)
	}
}

func TestShortPressClassification(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, false)
	feedNone(t, m, 25*time.Millisecond, false)

	// Press held for 300ms.
	feedNone(t, m, 50*time.Millisecond, true)
	feedNone(t, m, 75*time.Millisecond, true)
	feedNone(t, m, 200*time.Millisecond, true)

	// Release.
	feedNone(t, m, 350*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(375*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event after debounced release")
	}
	if *ev != ShortPress {
		t.Errorf("expected SHORT_PRESS for 300ms hold, got %s", *ev)
	}
}

func TestLongPressClassification(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, true)
	feedNone(t, m, 25*time.Millisecond, true)
	feedNone(t, m, time.Second, true)

	feedNone(t, m, 1500*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(1525*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event after debounced release")
	}
	if *ev != LongPress {
		t.Errorf("expected LONG_PRESS for 1.5s hold, got %s", *ev)
	}
}

// A hold of exactly the threshold classifies as long.
func TestExactThresholdIsLongPress(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	// Rising edge at t=0, falling edge at exactly t=1s; hold is
	// measured edge to edge so the debounce lag cancels.
	feedNone(t, m, 0, true)
	feedNone(t, m, 25*time.Millisecond, true)
	feedNone(t, m, time.Second, false)
	ev := m.Poll(buttonBase.Add(1025*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event after debounced release")
	}
	if *ev != LongPress {
		t.Errorf("hold of exactly the threshold must be LONG_PRESS, got %s", *ev)
	}
}

func TestJustUnderThresholdIsShortPress(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, true)
	feedNone(t, m, 25*time.Millisecond, true)
	feedNone(t, m, 999*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(1024*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event after debounced release")
	}
	if *ev != ShortPress {
		t.Errorf("hold just under the threshold must be SHORT_PRESS, got %s", *ev)
	}
}

func TestNoEventWhileHeld(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, true)
	// Held for five seconds: classification happens only at release.
	for i := 1; i <= 200; i++ {
		feedNone(t, m, time.Duration(i)*25*time.Millisecond, true)
	}
	if !m.Held() {
		t.Error("monitor should report the button as held")
	}

	feedNone(t, m, 5100*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(5125*time.Millisecond), false)
	if ev == nil || *ev != LongPress {
		t.Fatalf("expected LONG_PRESS at release, got %v", ev)
	}
}

// Bounces shorter than the debounce window never start a press timer.
func TestSpuriousBounceIgnored(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, false)
	feedNone(t, m, 25*time.Millisecond, false)

	// 10ms glitch.
	feedNone(t, m, 50*time.Millisecond, true)
	feedNone(t, m, 60*time.Millisecond, false)
	feedNone(t, m, 100*time.Millisecond, false)
	feedNone(t, m, 200*time.Millisecond, false)

	// A real press afterwards classifies from its own rising edge, not
	// the glitch.
	feedNone(t, m, 300*time.Millisecond, true)
	feedNone(t, m, 325*time.Millisecond, true)
	feedNone(t, m, 700*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(725*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event for the real press")
	}
	if *ev != ShortPress {
		t.Errorf("expected SHORT_PRESS (400ms hold), got %s", *ev)
	}
}

// A low glitch during a hold does not end the press.
func TestReleaseBounceDuringHoldIgnored(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, true)
	feedNone(t, m, 25*time.Millisecond, true)

	feedNone(t, m, 500*time.Millisecond, false)
	feedNone(t, m, 510*time.Millisecond, true)
	feedNone(t, m, 600*time.Millisecond, true)

	feedNone(t, m, 1200*time.Millisecond, false)
	ev := m.Poll(buttonBase.Add(1225*time.Millisecond), false)
	if ev == nil {
		t.Fatal("expected event after real release")
	}
	if *ev != LongPress {
		t.Errorf("expected LONG_PRESS (1.2s hold), got %s", *ev)
	}
}

func TestAtMostOneEventPerPressCycle(t *testing.T) {
	m := NewButtonMonitor(20*time.Millisecond, time.Second)

	feedNone(t, m, 0, true)
	feedNone(t, m, 25*time.Millisecond, true)
	feedNone(t, m, 100*time.Millisecond, false)
	if ev := m.Poll(buttonBase.Add(125*time.Millisecond), false); ev == nil {
		t.Fatal("expected event at release")
	}

	// Staying released must not re-emit.
	for i := 0; i < 20; i++ {
		feedNone(t, m, time.Duration(150+i*25)*time.Millisecond, false)
	}
}
