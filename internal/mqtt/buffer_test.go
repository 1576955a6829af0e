package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) queuedMsg {
	return queuedMsg{topic: Topic, payload: []byte(fmt.Sprintf("m%d", i)), qos: 0}
}

func TestRingBufferDrainsOldestFirst(t *testing.T) {
	r := newRingBuffer(4)

	for i := 0; i < 3; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("len: got %d, want 3", r.len())
	}

	drained := r.drainAll()
	if len(drained) != 3 {
		t.Fatalf("drained %d messages, want 3", len(drained))
	}
	for i, m := range drained {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("message %d: got %s", i, m.payload)
		}
	}
	if r.len() != 0 {
		t.Errorf("buffer not empty after drain: %d", r.len())
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	r := newRingBuffer(3)

	for i := 0; i < 5; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("len: got %d, want 3", r.len())
	}

	drained := r.drainAll()
	want := []string{"m2", "m3", "m4"}
	for i, w := range want {
		if string(drained[i].payload) != w {
			t.Errorf("message %d: got %s, want %s", i, drained[i].payload, w)
		}
	}
}

func TestRingBufferDrainEmpty(t *testing.T) {
	r := newRingBuffer(2)
	if got := r.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %v", got)
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	r := newRingBuffer(2)
	r.push(msg(0))
	r.push(msg(1))
	r.push(msg(2)) // overflow
	r.drainAll()

	r.push(msg(9))
	drained := r.drainAll()
	if len(drained) != 1 || string(drained[0].payload) != "m9" {
		t.Errorf("after reuse: %v", drained)
	}
}
