package recording

import (
	"testing"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-6 && diff > -1e-6
}

func TestRecordingPath_SingleNoteRoundTrip(t *testing.T) {
	client := port.NewFakeClient()
	track := model.NewTrack("t")
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	p := New(track, client, sink)

	p.OnStateChange(true, true, 0.0)
	client.Deliver(sink, midiwire.NoteOn(0, 60, 100), 0.500)
	client.Deliver(sink, midiwire.NoteOff(0, 60), 1.250)
	p.Pump(0.0)
	p.OnStateChange(false, false, 1.500)

	if len(track.Blocks) != 1 {
		t.Fatalf("len(track.Blocks) = %d, want 1", len(track.Blocks))
	}
	b := track.Blocks[0]
	if b.Time != 0.0 || !almostEqual(b.Duration, 1.5) {
		t.Fatalf("Block = {Time:%v Duration:%v}, want {0.0, 1.5}", b.Time, b.Duration)
	}
	if len(b.Events.Notes) != 1 {
		t.Fatalf("len(Events.Notes) = %d, want 1", len(b.Events.Notes))
	}
	n := b.Events.Notes[0]
	if !almostEqual(n.Time, 0.5) || n.Pitch != 60 || !almostEqual(n.Velocity, 100.0/127.0) || !almostEqual(n.Duration, 0.75) {
		t.Errorf("Note = %+v, want {Time:0.5 Pitch:60 Velocity:%v Duration:0.75}", n, 100.0/127.0)
	}
}

func TestRecordingPath_PolyPitchBend(t *testing.T) {
	client := port.NewFakeClient()
	track := model.NewTrack("t")
	track.BendRange = 2.0
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	p := New(track, client, sink)

	p.OnStateChange(true, true, 0.0)
	client.Deliver(sink, midiwire.NoteOn(0, 60, 100), 0.500)
	client.Deliver(sink, midiwire.PitchBend(0, midiwire.CombineBend14(0x00, 0x60)), 0.700)
	client.Deliver(sink, midiwire.NoteOff(0, 60), 1.250)
	p.Pump(0.0)
	p.OnStateChange(false, false, 1.500)

	n := track.Blocks[0].Events.Notes[0]
	want := []model.CurvePoint{{TimeOffset: 0, Value: 0}, {TimeOffset: 0.2, Value: 1.0}, {TimeOffset: 0.75, Value: 1.0}}
	if len(n.Bend) != len(want) {
		t.Fatalf("len(Bend) = %d, want %d: %+v", len(n.Bend), len(want), n.Bend)
	}
	for i := range want {
		if !almostEqual(n.Bend[i].TimeOffset, want[i].TimeOffset) || !almostEqual(n.Bend[i].Value, want[i].Value) {
			t.Errorf("Bend[%d] = %+v, want %+v", i, n.Bend[i], want[i])
		}
	}
}

func TestRecordingPath_CCInitialValue(t *testing.T) {
	client := port.NewFakeClient()
	track := model.NewTrack("t")
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	p := New(track, client, sink)

	p.OnStateChange(true, true, 0.0)
	client.Deliver(sink, midiwire.ControlChange(0, 7, 100), 0.300)
	p.Pump(0.0)
	p.OnStateChange(false, false, 0.500)

	sets := track.Blocks[0].Events.CCSetsFor(7)
	if len(sets) != 2 {
		t.Fatalf("len(CCSetsFor(7)) = %d, want 2", len(sets))
	}
	if sets[0].Time != 0.0 || !almostEqual(sets[0].Value, 100.0/127.0) {
		t.Errorf("implicit CCSet = %+v, want {Time:0.0 Value:%v}", sets[0], 100.0/127.0)
	}
	if !almostEqual(sets[1].Time, 0.3) || !almostEqual(sets[1].Value, 100.0/127.0) {
		t.Errorf("recorded CCSet = %+v, want {Time:0.3 Value:%v}", sets[1], 100.0/127.0)
	}
}

func TestRecordingPath_NoOpWhileNotArmed(t *testing.T) {
	client := port.NewFakeClient()
	track := model.NewTrack("t")
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	p := New(track, client, sink)

	client.Deliver(sink, midiwire.NoteOn(0, 60, 100), 0.1)
	p.Pump(0.0)

	if len(track.Blocks) != 0 {
		t.Fatalf("len(track.Blocks) = %d, want 0 (never armed)", len(track.Blocks))
	}
}

func TestRecordingPath_ReentrantStateChangeIgnored(t *testing.T) {
	client := port.NewFakeClient()
	track := model.NewTrack("t")
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	p := New(track, client, sink)

	p.inStateChange = true
	p.OnStateChange(true, true, 0.0)
	p.inStateChange = false

	if len(track.Blocks) != 0 {
		t.Fatalf("len(track.Blocks) = %d, want 0 (reentrant call should be a no-op)", len(track.Blocks))
	}
}
