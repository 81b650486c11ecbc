package app

import (
	"testing"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
	"github.com/jessecrossen/jackdaw-sub000/pkg/transport"
)

func newTestApp(t *testing.T) (*Application, port.Handle, port.Handle, *port.FakeClient) {
	t.Helper()
	client := port.NewFakeClient()
	app := New(client)
	app.trackList = model.NewTrackList()
	app.transport = transport.New(client, transport.Options{})
	app.transport.OnTick(app.onTick)

	tr := model.NewTrack("t")
	sink, _ := client.OpenPort("t.in", port.DirectionSink, port.TypeMIDI)
	source, _ := client.OpenPort("t.out", port.DirectionSource, port.TypeMIDI)
	app.AddTrack(tr, sink, source)
	return app, sink, source, client
}

// TestApplication_OnTick_DrivesPlaybackWhileRolling checks that a
// scheduled note on a track reaches its source port once the
// transport is rolling and ticks past it, wiring PlaybackPath.Tick
// into the transport pump cadence.
func TestApplication_OnTick_DrivesPlaybackWhileRolling(t *testing.T) {
	app, _, source, client := newTestApp(t)

	b := model.NewBlock(0)
	b.Duration = 2
	b.Events.AddNote(model.NewNote(0.1, 0.2, 64, 1.0))
	app.tracks[0].AppendBlock(b)

	app.onTick(transport.Stopped, 0.0)
	if due := client.DueSends(source, 1000); len(due) != 0 {
		t.Fatalf("sends while stopped = %+v, want none", due)
	}

	client.TransportStart()
	app.onTick(transport.Playing, 0.0)
	app.onTick(transport.Playing, 0.2)

	due := client.DueSends(source, 1000)
	found := false
	for _, m := range due {
		if m.Kind() == midiwire.StatusNoteOn && m.Data1 == 64 {
			found = true
		}
	}
	if !found {
		t.Errorf("sends after rolling tick = %+v, want a note-on for pitch 64", due)
	}
}

// TestApplication_OnTick_DrivesRecordingWhileArmed checks that an
// armed, recording track picks up an incoming MIDI message through
// RecordingPath.Pump when the tick fires.
func TestApplication_OnTick_DrivesRecordingWhileArmed(t *testing.T) {
	app, sink, _, client := newTestApp(t)
	track := app.tracks[0]
	track.Arm = true

	app.transport.SetRecording(true)
	client.Deliver(sink, midiwire.NoteOn(0, 60, 100), 0.1)
	client.Deliver(sink, midiwire.NoteOff(0, 60), 0.3)

	// Pump's "now" is the baseline its incoming messages' delta times
	// accumulate onto, matching the arm time (here 0.0) rather than the
	// tick's own transport time, the same pattern recording_test.go uses.
	app.onTick(transport.Recording, 0.0)

	if len(track.Blocks) != 1 {
		t.Fatalf("len(track.Blocks) = %d, want 1", len(track.Blocks))
	}
	if len(track.Blocks[0].Events.Notes) != 1 {
		t.Errorf("len(Events.Notes) = %d, want 1", len(track.Blocks[0].Events.Notes))
	}
}

// TestApplication_OnTick_StopsPlaybackOnceOnRollingTransition checks
// that crossing from rolling to stopped calls Stop exactly on the
// transition tick, not on every subsequent stopped tick.
func TestApplication_OnTick_StopsPlaybackOnceOnRollingTransition(t *testing.T) {
	app, _, source, client := newTestApp(t)

	client.TransportStart()
	app.onTick(transport.Playing, 0.0)
	if !app.rolling {
		t.Fatal("app.rolling = false after a Playing tick, want true")
	}

	app.playbackPaths[0].Stop()
	client.DueSends(source, 1000) // drain Start's initial sends

	// A marker queued before each stopped tick survives only if that
	// tick does not call Stop (whose ClearSend drops pending sends).
	marker := midiwire.ControlChange(0, 1, 1)
	_ = client.Send(source, marker, 100)
	app.onTick(transport.Stopped, 1.0)
	if app.rolling {
		t.Error("app.rolling = true after a Stopped tick, want false")
	}
	if due := client.DueSends(source, 1000); len(due) != 0 {
		t.Errorf("sends after the transition tick = %+v, want none (Stop clears the queue)", due)
	}

	_ = client.Send(source, marker, 100)
	app.onTick(transport.Stopped, 2.0)
	if app.rolling {
		t.Error("app.rolling = true after a second Stopped tick, want false")
	}
	if due := client.DueSends(source, 1000); len(due) != 1 {
		t.Errorf("sends after a second Stopped tick = %+v, want only the marker (no second Stop)", due)
	}
}
