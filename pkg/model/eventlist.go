package model

import "sort"

// Event is implemented by Note and CCSet.
type Event interface {
	eventTime() float64
}

func (n *Note) eventTime() float64  { return n.Time }
func (c *CCSet) eventTime() float64 { return c.Time }

// EventList is an ordered-by-time sequence of Notes and CCSets plus a
// repeat-period Duration and a UI-only Divisions snap hint (spec.md
// section 3). It maintains reference-counted pitch and controller
// sets, updated in place on each add and remove, and a sorted
// distinct-time list that is rebuilt on demand after a mutation.
// Per-controller CCSet lists are not indexed; CCSetsFor filters and
// sorts on each call.
type EventList struct {
	Notes  []*Note
	CCSets []*CCSet

	Duration  float64
	Divisions int

	Notifier

	pitchRefs      map[int]int
	controllerRefs map[int]int
	sorted         bool
	timesDirty     bool
	sortedTimes    []float64
}

// NewEventList creates an empty EventList.
func NewEventList() *EventList {
	return &EventList{
		pitchRefs:      make(map[int]int),
		controllerRefs: make(map[int]int),
		sorted:         true,
	}
}

// AddNote appends a note and updates the pitch reference count.
func (e *EventList) AddNote(n *Note) {
	e.Notes = append(e.Notes, n)
	e.pitchRefs[n.Pitch]++
	e.invalidateTimes()
	if !e.inOrder() {
		e.sorted = false
	}
	e.Changed()
}

// RemoveNote removes n (by identity) and drops its pitch reference;
// the pitch is only removed from PitchesInUse when its reference
// count reaches zero.
func (e *EventList) RemoveNote(n *Note) {
	for i, other := range e.Notes {
		if other == n {
			e.Notes = append(e.Notes[:i], e.Notes[i+1:]...)
			if c := e.pitchRefs[n.Pitch]; c <= 1 {
				delete(e.pitchRefs, n.Pitch)
			} else {
				e.pitchRefs[n.Pitch] = c - 1
			}
			e.invalidateTimes()
			e.Changed()
			return
		}
	}
}

// AddCCSet appends a CC setpoint, maintaining the controller
// reference count and the implicit-time-0 invariant: if this is the
// first CCSet for its controller, a (0, controller, value) point is
// also inserted.
func (e *EventList) AddCCSet(c *CCSet) {
	_, hadController := e.controllerRefs[c.Controller]
	e.CCSets = append(e.CCSets, c)
	e.controllerRefs[c.Controller]++
	if !hadController && c.Time != 0 {
		zero := &CCSet{Time: 0, Controller: c.Controller, Value: c.Value}
		e.CCSets = append(e.CCSets, zero)
		e.controllerRefs[c.Controller]++
	}
	e.invalidateTimes()
	e.sorted = false
	e.Changed()
}

// RemoveCCSet removes c by identity.
func (e *EventList) RemoveCCSet(c *CCSet) {
	for i, other := range e.CCSets {
		if other == c {
			e.CCSets = append(e.CCSets[:i], e.CCSets[i+1:]...)
			if cnt := e.controllerRefs[c.Controller]; cnt <= 1 {
				delete(e.controllerRefs, c.Controller)
			} else {
				e.controllerRefs[c.Controller] = cnt - 1
			}
			e.invalidateTimes()
			e.Changed()
			return
		}
	}
}

// PitchesInUse returns the set of pitches with a live reference, in
// ascending order.
func (e *EventList) PitchesInUse() []int {
	out := make([]int, 0, len(e.pitchRefs))
	for p := range e.pitchRefs {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// PitchRange returns the lowest and highest pitch spanned by this
// event list's notes, including each note's bend extremes (Note.MinPitch/
// MaxPitch). ok is false for an empty list.
func (e *EventList) PitchRange() (min, max float64, ok bool) {
	if len(e.Notes) == 0 {
		return 0, 0, false
	}
	min = e.Notes[0].MinPitch()
	max = e.Notes[0].MaxPitch()
	for _, n := range e.Notes[1:] {
		if v := n.MinPitch(); v < min {
			min = v
		}
		if v := n.MaxPitch(); v > max {
			max = v
		}
	}
	return min, max, true
}

// ControllersInUse returns the set of controller numbers with a live
// reference, in ascending order.
func (e *EventList) ControllersInUse() []int {
	out := make([]int, 0, len(e.controllerRefs))
	for c := range e.controllerRefs {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// CCSetsFor returns every CCSet for the given controller, sorted by
// time.
func (e *EventList) CCSetsFor(controller int) []*CCSet {
	var out []*CCSet
	for _, c := range e.CCSets {
		if c.Controller == controller {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// inOrder reports whether Notes is already sorted, cheaply, by
// checking only the newly appended tail relationship; used to avoid
// eagerly sorting on every append (lazy resort, spec.md section 3).
func (e *EventList) inOrder() bool {
	if len(e.Notes) < 2 {
		return true
	}
	return e.Notes[len(e.Notes)-2].Time <= e.Notes[len(e.Notes)-1].Time
}

func (e *EventList) ensureSorted() {
	if e.sorted {
		return
	}
	sort.SliceStable(e.Notes, func(i, j int) bool { return e.Notes[i].Time < e.Notes[j].Time })
	sort.SliceStable(e.CCSets, func(i, j int) bool { return e.CCSets[i].Time < e.CCSets[j].Time })
	e.sorted = true
}

func (e *EventList) invalidateTimes() {
	e.timesDirty = true
}

// Times returns the sorted list of distinct event times.
func (e *EventList) Times() []float64 {
	if !e.timesDirty && e.sortedTimes != nil {
		return e.sortedTimes
	}
	e.ensureSorted()
	seen := make(map[float64]bool)
	var out []float64
	for _, n := range e.Notes {
		if !seen[n.Time] {
			seen[n.Time] = true
			out = append(out, n.Time)
		}
	}
	for _, c := range e.CCSets {
		if !seen[c.Time] {
			seen[c.Time] = true
			out = append(out, c.Time)
		}
	}
	sort.Float64s(out)
	e.sortedTimes = out
	e.timesDirty = false
	return out
}

// SnapTimes returns Times() excluding events currently marked
// selected. Selection tracking itself is a UI concern out of scope;
// the core only needs to honor the flag, which is not modeled on
// Note/CCSet here since nothing in this module sets it; snap
// exclusion is therefore equivalent to Times() until a selection
// flag is wired in by a UI layer. Kept as a distinct method so that
// callers depend on the snap-specific name, not on Times()'s
// incidental behavior.
func (e *EventList) SnapTimes() []float64 {
	return e.Times()
}

// SortedNotes returns the Notes slice sorted by time.
func (e *EventList) SortedNotes() []*Note {
	e.ensureSorted()
	return e.Notes
}

// SortedCCSets returns the CCSets slice sorted by time.
func (e *EventList) SortedCCSets() []*CCSet {
	e.ensureSorted()
	return e.CCSets
}
