// Package playback implements the PlaybackPath from spec.md section
// 4.6: a per-track MIDI output handler that schedules note-on/off,
// pitch-bend, aftertouch, and CC messages for future delivery while
// respecting block repeats and mute/solo state.
package playback

import (
	"math"

	"github.com/jessecrossen/jackdaw-sub000/pkg/logger"
	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

// noteEnd pairs a scheduled outgoing note with its absolute end time
// and the channel it was assigned, so note-off can reuse the same
// channel.
type noteEnd struct {
	note    *model.Note
	channel byte
	endTime float64
}

// Path is one PlaybackPath, writing to its track's source port.
type Path struct {
	track  *model.Track
	client port.Client
	source port.Handle

	scheduledTo   float64
	noteEnds      []*noteEnd
	channelBends  map[byte]float64
	playing       bool

	minScheduleAhead float64 // transport update_interval
}

// New creates a PlaybackPath for track, writing to source via
// client. minScheduleAhead is the transport's update_interval, used
// as the min_schedule_ahead threshold from spec.md section 4.6.
func New(track *model.Track, client port.Client, source port.Handle, minScheduleAhead float64) *Path {
	return &Path{
		track:            track,
		client:           client,
		source:           source,
		channelBends:     make(map[byte]float64),
		minScheduleAhead: minScheduleAhead,
	}
}

// Start begins playback/record monitoring at transport time now:
// sends current controller initial values, sends the pitch-bend
// sensitivity RPN to all 16 channels, and sets scheduled_to = now.
func (p *Path) Start(now float64) {
	p.playing = true
	p.sendInitialControllerValues(now)
	p.sendBendRangeRPN()
	p.scheduledTo = now
}

// sendBendRangeRPN sends the RPN sequence to all 16 channels using
// the track's bend_range, per spec.md sections 4.6/6.
func (p *Path) sendBendRangeRPN() {
	semis := int(p.track.BendRange)
	cents := int(math.Round((p.track.BendRange - float64(semis)) * 100))
	for ch := byte(0); ch < 16; ch++ {
		for _, msg := range midiwire.PitchBendSensitivityRPN(ch, semis, cents) {
			p.send(msg, 0)
		}
	}
}

// sendInitialControllerValues walks every block with block.time <=
// now up to now, keeping the latest value per controller, then sends
// each one with time_offset 0 (spec.md section 4.6).
func (p *Path) sendInitialControllerValues(now float64) {
	latest := make(map[int]float64)
	for _, b := range p.track.Blocks {
		if b.Time > now {
			continue
		}
		for _, cs := range walkCCUpTo(b, now) {
			latest[cs.Controller] = cs.Value
		}
	}
	for controller, value := range latest {
		// Channel 0 stands in for the track's per-controller output port;
		// there's no port-per-controller model to route through yet.
		p.send(midiwire.ControlChange(0, byte(controller), byte(math.Round(value*127))), 0)
		p.track.ControllerOutputs[controller] = value
	}
}

// walkCCUpTo returns, in time order, every CCSet in block (across
// its repeats) whose absolute time is <= now.
func walkCCUpTo(b *model.Block, now float64) []*model.CCSet {
	repeat := b.Events.Duration
	var out []*model.CCSet
	maxIdx := 0
	if repeat > 0 {
		maxIdx = int((math.Min(now, b.EndTime())-b.Time)/repeat) + 1
	}
	for idx := 0; idx <= maxIdx; idx++ {
		off := float64(idx) * repeat
		for _, cs := range b.Events.SortedCCSets() {
			at := b.Time + off + cs.Time
			if at <= now && at <= b.EndTime() {
				out = append(out, cs)
			}
		}
		if repeat <= 0 {
			break
		}
	}
	return out
}

// Stop clears the send queue, ends every open note immediately, and
// zeroes any non-zero channel bends, then clears internal state.
func (p *Path) Stop() {
	if err := p.client.ClearSend(p.source); err != nil {
		logger.GetLogger().Warn("clear send failed", "err", err)
	}
	p.endAllNotes()
	for ch, bend := range p.channelBends {
		if bend != 0 {
			p.send(midiwire.PitchBend(ch, midiwire.EncodeBend14(0, p.track.BendRange)), 0)
		}
	}
	p.channelBends = make(map[byte]float64)
	p.playing = false
}

func (p *Path) endAllNotes() {
	for _, ne := range p.noteEnds {
		p.send(midiwire.NoteOff(ne.channel, byte(ne.note.Pitch)), 0)
	}
	p.noteEnds = nil
}

// Tick is one scheduling-window pump cycle, driven by the Transport's
// update cadence. enabled resolves mute/solo; now is transport.time.
func (p *Path) Tick(enabled bool, now float64) {
	if !enabled {
		p.endAllNotes()
		return
	}
	if now-p.scheduledTo <= p.minScheduleAhead {
		return
	}
	maxScheduleAhead := 2 * p.minScheduleAhead
	begin := p.scheduledTo
	end := now + maxScheduleAhead

	for _, b := range p.track.Blocks {
		if b.EndTime() <= begin || b.Time >= end {
			continue
		}
		p.scheduleBlock(b, begin, end, now)
	}

	p.advanceOpenNotes(begin, end, now)

	p.scheduledTo = end
}

// scheduleBlock emits every event in b whose absolute time falls in
// [begin, min(end, b.EndTime())), accounting for repeats.
func (p *Path) scheduleBlock(b *model.Block, begin, end, now float64) {
	repeat := b.Events.Duration
	hardEnd := math.Min(end, b.EndTime())

	beginRepeat, endRepeat := 0, 0
	if repeat > 0 {
		beginRepeat = int(math.Floor((math.Max(begin, b.Time) - b.Time) / repeat))
		endRepeat = int(math.Floor((hardEnd - b.Time) / repeat))
	}

	emit := func(repeatIdx int) {
		off := float64(repeatIdx) * repeat
		for _, n := range b.Events.SortedNotes() {
			et := b.Time + off + n.Time
			if et >= begin && et < hardEnd {
				p.emitNoteBegin(n, et, now)
			}
		}
		for _, cs := range b.Events.SortedCCSets() {
			et := b.Time + off + cs.Time
			if et >= begin && et < hardEnd {
				p.emitCC(cs, et, now)
			}
		}
	}

	emit(beginRepeat)
	if endRepeat != beginRepeat {
		emit(endRepeat)
	}
}

// emitNoteBegin implements the note-begin step of spec.md section
// 4.6, including the documented channel-rotation reuse behavior
// (Open Question, preserved rather than fixed): channel = len(open
// notes) & 0xF, which can reassign a channel still holding an open
// note.
func (p *Path) emitNoteBegin(n *model.Note, et, now float64) {
	channel := byte(len(p.noteEnds) & 0x0F)
	if len(n.Bend) > 0 && n.Bend[0].TimeOffset == 0 && n.Bend[0].Value != 0 {
		if cur, ok := p.channelBends[channel]; !ok || cur != n.Bend[0].Value {
			p.send(midiwire.PitchBend(channel, midiwire.EncodeBend14(n.Bend[0].Value, p.track.BendRange)), et-now)
			p.channelBends[channel] = n.Bend[0].Value
		}
	}
	velocity127 := byte(math.Floor(n.Velocity * 127))
	p.send(midiwire.NoteOn(channel, byte(n.Pitch), velocity127), et-now)
	p.noteEnds = append(p.noteEnds, &noteEnd{note: n, channel: channel, endTime: et + n.Duration})
}

func (p *Path) emitCC(cs *model.CCSet, et, now float64) {
	// Same channel-0 stand-in as sendInitialControllerValues above.
	p.send(midiwire.ControlChange(0, byte(cs.Controller), byte(math.Round(cs.Value*127))), et-now)
	p.track.ControllerOutputs[cs.Controller] = cs.Value
}

// advanceOpenNotes emits bend/aftertouch updates for currently-open
// notes whose curve points fall in the window, and ends notes whose
// absolute end time falls in the window.
func (p *Path) advanceOpenNotes(begin, end, now float64) {
	var remaining []*noteEnd
	for _, ne := range p.noteEnds {
		absStart := ne.endTime - ne.note.Duration
		for _, bp := range ne.note.Bend {
			at := absStart + bp.TimeOffset
			if at >= begin && at < end && bp.TimeOffset != 0 {
				p.send(midiwire.PitchBend(ne.channel, midiwire.EncodeBend14(bp.Value, p.track.BendRange)), at-now)
				p.channelBends[ne.channel] = bp.Value
			}
		}
		for _, ap := range ne.note.Aftertouch {
			at := absStart + ap.TimeOffset
			if at >= begin && at < end && ap.TimeOffset != 0 {
				p.send(midiwire.PolyAftertouch(ne.channel, byte(ne.note.Pitch), byte(math.Round(ap.Value*127))), at-now)
			}
		}
		if ne.endTime >= begin && ne.endTime < end {
			p.send(midiwire.NoteOff(ne.channel, byte(ne.note.Pitch)), ne.endTime-now)
			continue
		}
		remaining = append(remaining, ne)
	}
	p.noteEnds = remaining
}

func (p *Path) send(msg midiwire.Message, timeOffset float64) {
	if err := p.client.Send(p.source, msg, timeOffset); err != nil {
		logger.GetLogger().Warn("playback send dropped", "err", err)
	}
}
