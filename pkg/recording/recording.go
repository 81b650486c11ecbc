// Package recording implements the RecordingPath from spec.md
// section 4.5: a per-track MIDI input handler that reconstructs
// Notes (with polyphonic bend/aftertouch) and CCSets from a stream
// of 3-byte MIDI messages.
package recording

import (
	"github.com/jessecrossen/jackdaw-sub000/pkg/logger"
	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

type channelPitch struct {
	channel byte
	pitch   byte
}

// Path is one RecordingPath, listening on its track's sink port.
type Path struct {
	track  *model.Track
	client port.Client
	sink   port.Handle

	targetBlock *model.Block
	recordStart float64 // transport time when the current block was anchored

	openNotes map[channelPitch]*model.Note

	channelBends map[byte]float64

	// ccSeeded tracks, per Block, which controller numbers this block
	// has already seen. The path adds exactly one CCSet per control
	// change; the implicit time-0 CCSet for a controller's first value
	// is inserted by EventList.AddCCSet itself.
	ccSeeded map[int]bool

	inStateChange bool
}

// New creates a RecordingPath for track, listening on sink via
// client.
func New(track *model.Track, client port.Client, sink port.Handle) *Path {
	return &Path{
		track:        track,
		client:       client,
		sink:         sink,
		openNotes:    make(map[channelPitch]*model.Note),
		channelBends: make(map[byte]float64),
		ccSeeded:     make(map[int]bool),
	}
}

// OnStateChange is the arm/transport-change handler from spec.md
// section 4.5. armed and recording give the combined state that
// determines whether a target_block should exist; now is the current
// transport time. Reentrancy is guarded with inStateChange to
// prevent observer-cascade recursion when the path mutates the block
// it owns.
func (p *Path) OnStateChange(armed, recording bool, now float64) {
	if p.inStateChange {
		return
	}
	p.inStateChange = true
	defer func() { p.inStateChange = false }()

	shouldRecord := armed && recording
	wasRecording := p.targetBlock != nil

	if shouldRecord && !wasRecording {
		p.enterRecord(now)
	} else if !shouldRecord && wasRecording {
		p.leaveRecord(now)
	} else if shouldRecord {
		p.extendBlock(now)
	}
}

func (p *Path) enterRecord(now float64) {
	b := model.NewBlock(now)
	p.track.AppendBlock(b)
	p.targetBlock = b
	p.recordStart = now
	p.openNotes = make(map[channelPitch]*model.Note)
	p.channelBends = make(map[byte]float64)
	p.ccSeeded = make(map[int]bool)
}

func (p *Path) leaveRecord(now float64) {
	p.drainIncoming(now)
	if p.targetBlock != nil {
		d := now - p.targetBlock.Time
		if d < 0 {
			d = 0
		}
		p.targetBlock.SetEnd(d)
		p.targetBlock.Events.Duration = d
		p.targetBlock.Events.Changed()
	}
	p.targetBlock = nil
	p.openNotes = make(map[channelPitch]*model.Note)
	p.channelBends = make(map[byte]float64)
	p.ccSeeded = make(map[int]bool)
}

func (p *Path) extendBlock(now float64) {
	if p.targetBlock == nil {
		return
	}
	d := now - p.targetBlock.Time
	if d < 0 {
		d = 0
	}
	p.targetBlock.Duration = d
	p.targetBlock.Events.Duration = d
	for _, n := range p.openNotes {
		if nd := now - p.targetBlock.Time - n.Time; nd > n.Duration {
			n.Duration = nd
		}
	}
}

// drainIncoming processes any messages still queued on the sink
// port before finalizing the block on a leave-record transition.
func (p *Path) drainIncoming(now float64) {
	for {
		msg, ok := p.client.Receive(p.sink)
		if !ok {
			return
		}
		p.handle(msg.Message, now)
	}
}

// Pump should be called once per pump tick while recording: it
// drains the sink port's incoming queue and dispatches each message
// by arrival time, then extends the open block/notes to the current
// transport time.
func (p *Path) Pump(now float64) {
	arrival := now
	for {
		msg, ok := p.client.Receive(p.sink)
		if !ok {
			break
		}
		arrival += msg.DeltaTime
		p.handle(msg.Message, arrival)
	}
	if p.targetBlock != nil {
		p.extendBlock(now)
	}
}

// handle dispatches a single incoming message, arriving at absolute
// transport time at, per the status-nibble action table in spec.md
// section 4.5.
func (p *Path) handle(msg midiwire.Message, at float64) {
	if p.targetBlock == nil {
		return
	}
	block := p.targetBlock
	channel := msg.Channel()

	switch msg.Kind() {
	case midiwire.StatusNoteOn:
		if msg.Data2 > 0 {
			p.beginNote(block, channel, msg.Data1, msg.Data2, at)
		} else {
			p.endNote(block, channel, msg.Data1, at)
		}
	case midiwire.StatusNoteOff:
		p.endNote(block, channel, msg.Data1, at)
	case midiwire.StatusPolyAftertouch:
		p.polyAftertouch(channel, msg.Data1, msg.Data2, at)
	case midiwire.StatusPitchBend:
		p.pitchBend(channel, msg.Data1, msg.Data2, at)
	case midiwire.StatusControlChange:
		p.controlChange(block, msg.Data1, msg.Data2, at)
	default:
		logger.GetLogger().Debug("ignoring unhandled MIDI status", "status", msg.Status)
	}
}

func (p *Path) beginNote(block *model.Block, channel, pitch, velocity byte, at float64) {
	noteTime := at - block.Time
	velocity01 := float64(velocity) / 127.0
	n := model.NewNote(noteTime, 0, int(pitch), velocity01)
	n.Channel = int(channel)
	if bend, ok := p.channelBends[channel]; ok && bend != 0 {
		n.Bend = []model.CurvePoint{{TimeOffset: 0, Value: bend}}
	}
	block.Events.AddNote(n)
	p.openNotes[channelPitch{channel, pitch}] = n
}

func (p *Path) endNote(block *model.Block, channel, pitch byte, at float64) {
	key := channelPitch{channel, pitch}
	n, ok := p.openNotes[key]
	if !ok {
		return // unmatched note-off, ignored
	}
	noteOffTime := at - block.Time
	d := noteOffTime - n.Time
	if d < 0 {
		d = 0
	}
	n.Duration = d
	n.CapCurves()
	delete(p.openNotes, key)
}

func (p *Path) polyAftertouch(channel, pitch, value byte, at float64) {
	n, ok := p.openNotes[channelPitch{channel, pitch}]
	if !ok {
		return
	}
	v := float64(value) / 127.0
	if len(n.Aftertouch) == 0 {
		n.Aftertouch = append(n.Aftertouch, model.CurvePoint{TimeOffset: 0, Value: n.Velocity})
	}
	n.Aftertouch = append(n.Aftertouch, model.CurvePoint{TimeOffset: at - noteAbsStart(p.targetBlock, n), Value: v})
}

func (p *Path) pitchBend(channel, data1, data2 byte, at float64) {
	bend14 := midiwire.CombineBend14(data1, data2)
	semis := midiwire.DecodeBend14(bend14, p.track.BendRange)
	p.channelBends[channel] = semis
	for key, n := range p.openNotes {
		if key.channel != channel {
			continue
		}
		if len(n.Bend) == 0 {
			n.Bend = append(n.Bend, model.CurvePoint{TimeOffset: 0, Value: 0})
		}
		n.Bend = append(n.Bend, model.CurvePoint{TimeOffset: at - noteAbsStart(p.targetBlock, n), Value: semis})
	}
}

func (p *Path) controlChange(block *model.Block, controller, value byte, at float64) {
	v := float64(value) / 127.0
	t := at - block.Time
	first := !p.ccSeeded[int(controller)]
	cs := &model.CCSet{Time: t, Controller: int(controller), Value: v}
	block.Events.AddCCSet(cs)
	if first {
		p.ccSeeded[int(controller)] = true
	}
	p.track.ControllerOutputs[int(controller)] = v
}

// noteAbsStart returns the note's absolute start time (block time +
// note time), used to compute bend/aftertouch curve offsets relative
// to the note's own start, per spec.md section 4.5.
func noteAbsStart(block *model.Block, n *model.Note) float64 {
	if block == nil {
		return n.Time
	}
	return block.Time + n.Time
}
