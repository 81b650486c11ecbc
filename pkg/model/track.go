package model

// DefaultBendRange is the default pitch-bend range in semitones
// (spec.md section 3).
const DefaultBendRange = 6.0

// Track is an ordered sequence of Blocks plus playback/record state
// (spec.md section 3).
type Track struct {
	Name string
	Solo bool
	Mute bool
	Arm  bool

	BendRange float64

	Blocks []*Block

	pitchNames      map[int]string
	controllerNames map[int]string

	// ControllerOutputs caches the last-observed value per controller
	// number, used by RecordingPath/PlaybackPath.
	ControllerOutputs map[int]float64

	// enabled is recomputed by the owning TrackList on every track
	// change, per spec.md section 3's global solo/mute rule.
	enabled bool

	Notifier
}

// NewTrack creates a Track with the default bend range.
func NewTrack(name string) *Track {
	return &Track{
		Name:              name,
		BendRange:         DefaultBendRange,
		pitchNames:        make(map[int]string),
		controllerNames:   make(map[int]string),
		ControllerOutputs: make(map[int]float64),
	}
}

// Duration is derived as max(block.time+block.duration) over Blocks.
func (t *Track) Duration() float64 {
	var d float64
	for _, b := range t.Blocks {
		if e := b.EndTime(); e > d {
			d = e
		}
	}
	return d
}

// AppendBlock adds b to the track. Blocks may overlap in time.
func (t *Track) AppendBlock(b *Block) {
	t.Blocks = append(t.Blocks, b)
	t.Changed()
}

// RemoveBlock removes b by identity.
func (t *Track) RemoveBlock(b *Block) {
	for i, other := range t.Blocks {
		if other == b {
			t.Blocks = append(t.Blocks[:i], t.Blocks[i+1:]...)
			t.Changed()
			return
		}
	}
}

// Enabled reports whether the track is enabled per the TrackList's
// global solo/mute resolution.
func (t *Track) Enabled() bool { return t.enabled }

// Previewing reports whether the track is armed and enabled
// (spec.md section 3: "A track is previewing iff (armed and enabled)").
func (t *Track) Previewing() bool { return t.Arm && t.enabled }

// SetPitchName attaches a user-facing label to a pitch number.
func (t *Track) SetPitchName(pitch int, name string) {
	t.pitchNames[pitch] = name
	t.Changed()
}

// PitchName looks up a user-facing pitch label, if any.
func (t *Track) PitchName(pitch int) (string, bool) {
	n, ok := t.pitchNames[pitch]
	return n, ok
}

// SetControllerName attaches a user-facing label to a controller
// number.
func (t *Track) SetControllerName(cc int, name string) {
	t.controllerNames[cc] = name
	t.Changed()
}

// ControllerName looks up a user-facing controller label, if any.
func (t *Track) ControllerName(cc int) (string, bool) {
	n, ok := t.controllerNames[cc]
	return n, ok
}

// TrackList is an ordered sequence of Tracks (spec.md section 3). It
// holds no transport reference; pkg/model does not import
// pkg/transport, and the transport is owned by the application.
type TrackList struct {
	Tracks []*Track

	Notifier
}

// NewTrackList creates an empty TrackList.
func NewTrackList() *TrackList {
	return &TrackList{}
}

// AddTrack appends t, registers it for recomputation, and
// recomputes enabled state for all tracks.
func (tl *TrackList) AddTrack(t *Track) {
	tl.Tracks = append(tl.Tracks, t)
	t.Observe(tl.recompute)
	tl.recompute()
	tl.Changed()
}

// RemoveTrack removes t by identity and recomputes enabled state.
func (tl *TrackList) RemoveTrack(t *Track) {
	for i, other := range tl.Tracks {
		if other == t {
			tl.Tracks = append(tl.Tracks[:i], tl.Tracks[i+1:]...)
			tl.recompute()
			tl.Changed()
			return
		}
	}
}

// recompute enforces the global solo/mute rule: if any track is
// solo, only solo tracks are enabled; otherwise all non-muted tracks
// are enabled.
func (tl *TrackList) recompute() {
	anySolo := false
	for _, t := range tl.Tracks {
		if t.Solo {
			anySolo = true
			break
		}
	}
	for _, t := range tl.Tracks {
		if anySolo {
			t.enabled = t.Solo
		} else {
			t.enabled = !t.Mute
		}
	}
}

// removeBlockFromAnyTrack removes b from whichever track currently
// holds it, used by Block.Join's cross-track cleanup.
func (tl *TrackList) removeBlockFromAnyTrack(b *Block) {
	for _, t := range tl.Tracks {
		for i, other := range t.Blocks {
			if other == b {
				t.Blocks = append(t.Blocks[:i], t.Blocks[i+1:]...)
				t.Changed()
				return
			}
		}
	}
}
