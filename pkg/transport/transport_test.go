package transport

import (
	"testing"
	"time"

	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

func TestTransport_PlayingAndRecordingMutuallyExclusive(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})

	tr.SetRecording(true)
	if !tr.IsRecording() || tr.IsPlaying() {
		t.Fatalf("after SetRecording(true): recording=%v playing=%v", tr.IsRecording(), tr.IsPlaying())
	}

	tr.SetPlaying(true)
	if tr.IsRecording() || !tr.IsPlaying() {
		t.Fatalf("after SetPlaying(true): recording=%v playing=%v, want playing only", tr.IsRecording(), tr.IsPlaying())
	}
}

func TestTransport_IsRollingImpliesPlayingOrRecording(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})

	tr.SetRecording(true)
	rolling, _ := client.TransportState()
	if !rolling {
		t.Fatal("expected host TransportState to report rolling once Recording")
	}
	if !(tr.IsPlaying() || tr.IsRecording()) {
		t.Fatal("IsRolling implies playing or recording")
	}
}

func TestTransport_SeekIgnoredWhileRecording(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})
	tr.SetRecording(true)

	tr.mu.Lock()
	tr.lastTime = 5.0
	tr.mu.Unlock()

	tr.Seek(1.0)

	if got := tr.Time(); got != 5.0 {
		t.Errorf("Time() after ignored Seek = %v, want 5.0 (unchanged)", got)
	}
}

func TestTransport_CycleWrap(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})

	// Marks at [1.0, 3.0]. A normal in-range tick at t=2.95 resolves
	// and caches bounds (1.0, 3.0); the following tick observes the
	// host clock having overshot to t=3.05 and wraps against those
	// cached bounds.
	tr.mu.Lock()
	tr.marks = []float64{1.0, 3.0}
	tr.cycling = true
	tr.lastTime = 2.95
	tr.mu.Unlock()

	tr.driveCycling()

	tr.mu.Lock()
	tr.lastTime = 3.05
	tr.mu.Unlock()

	tr.driveCycling()

	got := tr.Time()
	want := 1.05
	diff := got - want
	if diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Time() after cycle wrap = %v, want %v", got, want)
	}

	_, hostTime := client.TransportState()
	if diff := hostTime - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("host time after cycle wrap = %v, want %v", hostTime, want)
	}
}

func TestTransport_CycleStartEqualsEndIsNoOp(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})

	same := 2.0
	tr.mu.Lock()
	tr.cycleStart = &same
	tr.cycleEnd = &same
	tr.cycling = true
	tr.lastTime = 2.0
	tr.updateCycleBoundsLocked()
	tr.lastTime = 5.0
	tr.mu.Unlock()

	tr.driveCycling()

	if got := tr.Time(); got != 5.0 {
		t.Errorf("Time() after no-op cycle = %v, want 5.0 (unchanged)", got)
	}
}

func TestTransport_CyclingNoOpWithoutEndMark(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{})

	// A single mark at 1.0; once the playhead is past it there is no
	// next mark, so effCycleEnd never resolves and cycling stays a
	// no-op regardless of how far time advances afterward.
	tr.mu.Lock()
	tr.marks = []float64{1.0}
	tr.cycling = true
	tr.lastTime = 2.0
	tr.mu.Unlock()

	tr.driveCycling()

	tr.mu.Lock()
	tr.lastTime = 10.0
	tr.mu.Unlock()

	tr.driveCycling()

	if got := tr.Time(); got != 10.0 {
		t.Errorf("Time() with no end mark = %v, want 10.0 (cycling stays a no-op)", got)
	}
}

func TestTransport_PumpIntervalSwitchesOnStateChange(t *testing.T) {
	client := port.NewFakeClient()
	tr := New(client, Options{
		IdleInterval:    500 * time.Millisecond,
		RollingInterval: 50 * time.Millisecond,
	})

	if got := tr.currentIntervalLocked(); got != 500*time.Millisecond {
		t.Errorf("idle interval = %v, want 500ms", got)
	}

	tr.SetPlaying(true)
	if got := tr.currentIntervalLocked(); got != 50*time.Millisecond {
		t.Errorf("rolling interval = %v, want 50ms", got)
	}
}
