package model

import "sort"

// Block is a placement of an EventList on a Track (spec.md section 3).
// If Duration > Events.Duration, the event list repeats from time 0
// until the block ends; a partial final repeat is allowed.
type Block struct {
	Time     float64
	Duration float64
	Events   *EventList

	Notifier
}

// NewBlock creates a Block anchored at t with an empty EventList,
// matching RecordingPath's arm-transition behavior.
func NewBlock(t float64) *Block {
	return &Block{Time: t, Events: NewEventList()}
}

// EndTime returns Time+Duration.
func (b *Block) EndTime() float64 { return b.Time + b.Duration }

// Times returns every event time repeated into the block's duration
// at multiples of Events.Duration (if >0), plus the [0, Duration]
// boundaries, per spec.md section 4.2.
func (b *Block) Times() []float64 {
	seen := map[float64]bool{0: true, b.Duration: true}
	out := []float64{0}
	if b.Duration != 0 {
		out = append(out, b.Duration)
	}
	repeat := b.Events.Duration
	baseTimes := b.Events.Times()
	if repeat <= 0 {
		for _, t := range baseTimes {
			if t <= b.Duration && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	} else {
		for idx := 0; float64(idx)*repeat < b.Duration || idx == 0; idx++ {
			base := float64(idx) * repeat
			if base > b.Duration {
				break
			}
			for _, t := range baseTimes {
				at := base + t
				if at > b.Duration {
					continue
				}
				if !seen[at] {
					seen[at] = true
					out = append(out, at)
				}
			}
			if base >= b.Duration {
				break
			}
		}
	}
	sort.Float64s(out)
	return out
}

// SnapTimes is the analogous derivation from Events.SnapTimes().
func (b *Block) SnapTimes() []float64 {
	// Same repeat-expansion logic as Times but driven from SnapTimes.
	repeat := b.Events.Duration
	seen := map[float64]bool{0: true}
	out := []float64{0}
	if b.Duration != 0 {
		seen[b.Duration] = true
		out = append(out, b.Duration)
	}
	base := b.Events.SnapTimes()
	if repeat <= 0 {
		for _, t := range base {
			if t <= b.Duration && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	} else {
		for idx := 0; float64(idx)*repeat <= b.Duration; idx++ {
			off := float64(idx) * repeat
			for _, t := range base {
				at := off + t
				if at > b.Duration {
					continue
				}
				if !seen[at] {
					seen[at] = true
					out = append(out, at)
				}
			}
		}
	}
	sort.Float64s(out)
	return out
}

// SetStart moves the block's start time, translating its events so
// they stay at the same absolute time (the "start" handle from
// spec.md section 3).
func (b *Block) SetStart(t float64) {
	delta := t - b.Time
	b.Time = t
	if delta != 0 {
		for _, n := range b.Events.Notes {
			n.Time -= delta
		}
		for _, c := range b.Events.CCSets {
			c.Time -= delta
		}
		b.Events.invalidateTimes()
	}
	b.Changed()
}

// SetRepeat edits the event list's duration (the "repeat" handle).
func (b *Block) SetRepeat(d float64) {
	b.Events.Duration = d
	b.Events.Changed()
	b.Changed()
}

// SetEnd edits the block's own duration (the "end" handle).
func (b *Block) SetEnd(d float64) {
	if d < 0 {
		d = 0
	}
	b.Duration = d
	b.Changed()
}

// JoinRepeats collapses repetitions into a single EventList of
// length Duration, copying each event into each repeat window that
// falls inside the block. A second call is a no-op, since
// Events.Duration equals Duration (a single repeat) after the first.
func (b *Block) JoinRepeats() {
	repeat := b.Events.Duration
	if repeat <= 0 {
		return
	}
	joined := NewEventList()
	for idx := 0; float64(idx)*repeat < b.Duration; idx++ {
		off := float64(idx) * repeat
		for _, n := range b.Events.Notes {
			if off+n.Time >= b.Duration {
				continue
			}
			cp := *n
			cp.Time = off + n.Time
			if cp.Time+cp.Duration > b.Duration {
				cp.Duration = b.Duration - cp.Time
			}
			joined.AddNote(&cp)
		}
		for _, c := range b.Events.CCSets {
			if off+c.Time >= b.Duration {
				continue
			}
			cp := *c
			cp.Time = off + c.Time
			joined.AddCCSet(&cp)
		}
	}
	joined.Duration = b.Duration
	b.Events = joined
	b.Changed()
}

// Join merges self and others into one block covering the union of
// their time spans; event times are translated to the new block's
// origin. Blocks in others are removed from whichever Track in
// withinTrackList contains them.
func (b *Block) Join(others []*Block, withinTrackList *TrackList) *Block {
	minTime := b.Time
	maxEnd := b.EndTime()
	for _, o := range others {
		if o.Time < minTime {
			minTime = o.Time
		}
		if o.EndTime() > maxEnd {
			maxEnd = o.EndTime()
		}
	}
	merged := NewBlock(minTime)
	merged.Duration = maxEnd - minTime
	appendTranslated := func(src *Block) {
		offset := src.Time - minTime
		for _, n := range src.Events.SortedNotes() {
			cp := *n
			cp.Time += offset
			merged.Events.AddNote(&cp)
		}
		for _, c := range src.Events.SortedCCSets() {
			cp := *c
			cp.Time += offset
			merged.Events.AddCCSet(&cp)
		}
	}
	appendTranslated(b)
	for _, o := range others {
		appendTranslated(o)
	}
	if withinTrackList != nil {
		for _, o := range others {
			withinTrackList.removeBlockFromAnyTrack(o)
		}
	}
	return merged
}

// SplitRepeats breaks each repeat after the first into its own new
// Block and appends each to intoTrack.
func (b *Block) SplitRepeats(intoTrack *Track) []*Block {
	repeat := b.Events.Duration
	if repeat <= 0 {
		return nil
	}
	var created []*Block
	for idx := 1; float64(idx)*repeat < b.Duration; idx++ {
		off := float64(idx) * repeat
		nb := NewBlock(b.Time + off)
		end := off + repeat
		if end > b.Duration {
			end = b.Duration
		}
		nb.Duration = end - off
		for _, n := range b.Events.SortedNotes() {
			if n.Time >= 0 && n.Time < repeat {
				cp := *n
				nb.Events.AddNote(&cp)
			}
		}
		for _, c := range b.Events.SortedCCSets() {
			if c.Time >= 0 && c.Time < repeat {
				cp := *c
				nb.Events.AddCCSet(&cp)
			}
		}
		created = append(created, nb)
		if intoTrack != nil {
			intoTrack.AppendBlock(nb)
		}
	}
	b.Duration = repeat
	b.Changed()
	return created
}

// Split partitions the block by absolute-within-block time
// boundaries in times; events go into the interval they fall into;
// new Blocks are appended to intoTrack.
func (b *Block) Split(times []float64, intoTrack *Track) []*Block {
	bounds := append([]float64{0}, times...)
	bounds = append(bounds, b.Duration)
	sort.Float64s(bounds)

	var created []*Block
	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		if end <= start {
			continue
		}
		nb := NewBlock(b.Time + start)
		nb.Duration = end - start
		for _, n := range b.Events.SortedNotes() {
			if n.Time >= start && n.Time < end {
				cp := *n
				cp.Time -= start
				nb.Events.AddNote(&cp)
			}
		}
		for _, c := range b.Events.SortedCCSets() {
			if c.Time >= start && c.Time < end {
				cp := *c
				cp.Time -= start
				nb.Events.AddCCSet(&cp)
			}
		}
		created = append(created, nb)
		if intoTrack != nil {
			intoTrack.AppendBlock(nb)
		}
	}
	return created
}
