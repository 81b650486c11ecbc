// Package smfimport reads Standard MIDI Files into timestamped
// midiwire.Message sequences, for replaying recorded fixtures or demo
// files through a PortClient. Grounded on the teacher's
// pkg/engine/midi_player.go SMF-reading path (smf.ReadFrom, PPQ via
// smf.MetricTicks, tempo map extraction by scanning for meta-tempo
// events), adapted here to produce wall-clock seconds instead of
// driving a live tick generator.
package smfimport

import (
	"fmt"
	"io"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TempoEvent records a tempo change at an absolute tick.
type TempoEvent struct {
	Tick          int
	MicrosPerBeat int
}

// TimedMessage is a wire message with the absolute time, in seconds
// from the start of the file, at which it should be sent.
type TimedMessage struct {
	Time    float64
	Message midiwire.Message
}

// defaultMicrosPerBeat is 120 BPM, used when a file carries no tempo
// meta event.
const defaultMicrosPerBeat = 500000

// Read parses a Standard MIDI File and returns its channel-voice
// messages in ascending time order, with tick positions resolved to
// seconds via the file's tempo map. Meta and sysex events are
// dropped; only the 3-byte channel-voice messages midiwire can
// represent are kept.
func Read(r io.Reader) ([]TimedMessage, error) {
	smfData, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parsing smf: %w", err)
	}

	ppq := 480
	if mt, ok := smfData.TimeFormat.(smf.MetricTicks); ok {
		ppq = int(mt)
	}

	tempoMap := extractTempoMap(smfData)

	type ticked struct {
		tick int
		msg  midiwire.Message
	}
	var timeline []ticked

	for _, track := range smfData.Tracks {
		absTick := 0
		for _, event := range track {
			absTick += int(event.Delta)
			raw := event.Message
			if raw.IsMeta() {
				continue
			}
			wm, ok := toWireMessage(raw.Bytes())
			if !ok {
				continue
			}
			timeline = append(timeline, ticked{tick: absTick, msg: wm})
		}
	}

	// Stable sort by tick (teacher's bubble sort replaced with a
	// straightforward insertion sort; file track counts are small).
	for i := 1; i < len(timeline); i++ {
		for j := i; j > 0 && timeline[j].tick < timeline[j-1].tick; j-- {
			timeline[j], timeline[j-1] = timeline[j-1], timeline[j]
		}
	}

	out := make([]TimedMessage, 0, len(timeline))
	for _, tm := range timeline {
		out = append(out, TimedMessage{
			Time:    ticksToSeconds(tm.tick, ppq, tempoMap),
			Message: tm.msg,
		})
	}
	return out, nil
}

// toWireMessage converts a raw SMF message's bytes into a
// midiwire.Message, rejecting anything that isn't a 3-byte
// channel-voice message midiwire understands.
func toWireMessage(raw []byte) (midiwire.Message, bool) {
	if len(raw) != 3 {
		return midiwire.Message{}, false
	}
	switch raw[0] & 0xF0 {
	case midiwire.StatusNoteOff, midiwire.StatusNoteOn, midiwire.StatusPolyAftertouch,
		midiwire.StatusControlChange, midiwire.StatusPitchBend:
		return midiwire.Message{Status: raw[0], Data1: raw[1], Data2: raw[2]}, true
	default:
		return midiwire.Message{}, false
	}
}

// extractTempoMap scans every track for meta-tempo events, the same
// way the teacher's extractTempoMap does, seeding a 120 BPM default at
// tick 0.
func extractTempoMap(smfData *smf.SMF) []TempoEvent {
	events := []TempoEvent{{Tick: 0, MicrosPerBeat: defaultMicrosPerBeat}}
	for _, track := range smfData.Tracks {
		absTick := 0
		for _, event := range track {
			absTick += int(event.Delta)
			var bpm float64
			if event.Message.GetMetaTempo(&bpm) && bpm > 0 {
				events = append(events, TempoEvent{
					Tick:          absTick,
					MicrosPerBeat: int(60000000 / bpm),
				})
			}
		}
	}
	return events
}

// ticksToSeconds walks the tempo map the way the teacher's
// calculateWaitDuration does, accumulating segment durations up to
// targetTick instead of computing a single inter-event wait.
func ticksToSeconds(targetTick, ppq int, tempoMap []TempoEvent) float64 {
	seconds := 0.0
	lastTick := 0
	lastTempo := defaultMicrosPerBeat
	for _, ev := range tempoMap {
		if ev.Tick >= targetTick {
			break
		}
		segment := ev.Tick - lastTick
		seconds += float64(segment) / float64(ppq) * float64(lastTempo) / 1000000.0
		lastTick = ev.Tick
		lastTempo = ev.MicrosPerBeat
	}
	segment := targetTick - lastTick
	seconds += float64(segment) / float64(ppq) * float64(lastTempo) / 1000000.0
	return seconds
}
