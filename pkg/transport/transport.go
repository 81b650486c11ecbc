// Package transport implements the Transport component from spec.md
// section 4.3: a rolling clock bridged to an external host transport,
// marks, a cycle region, and play/record/pause state, driven by a
// periodic update pump. The pump's start/stop/reset-interval
// mechanics are grounded on the teacher's pkg/vm/audio/timer.go
// Timer, generalized from a fixed interval to the idle/rolling
// dynamic interval spec.md requires.
package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/jessecrossen/jackdaw-sub000/pkg/logger"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

// State is the transport's exclusive play/record state.
type State int

const (
	Stopped State = iota
	Playing
	Recording
)

// Options tunes the periodic update pump. Zero-value fields take the
// spec.md section 4.3 defaults.
type Options struct {
	IdleInterval    time.Duration // default 500ms
	RollingInterval time.Duration // default 50ms
	DisplayInterval time.Duration // default 50ms
}

func (o Options) withDefaults() Options {
	if o.IdleInterval == 0 {
		o.IdleInterval = 500 * time.Millisecond
	}
	if o.RollingInterval == 0 {
		o.RollingInterval = 50 * time.Millisecond
	}
	if o.DisplayInterval == 0 {
		o.DisplayInterval = 50 * time.Millisecond
	}
	return o
}

// Transport bridges to an external rolling clock through a
// port.Client and drives a periodic update pump at a dynamic
// interval.
type Transport struct {
	mu sync.Mutex

	client  port.Client
	options Options

	state State

	duration float64 // advisory

	cycling        bool
	marks          []float64
	cycleStart     *float64
	cycleEnd       *float64

	// effCycleStart/effCycleEnd cache the cycle region resolved from
	// marks (or the explicit overrides above). They are resolved at
	// Start(), on Seek, from SetCycling/SetCycleStart/SetCycleEnd,
	// after the wrap in driveCycling, and by driveCycling on every tick
	// that stays inside the region. The tick that overshoots the end
	// is the one tick that does not recompute them: it wraps using the
	// bounds cached before it.
	effCycleStart float64
	effCycleEnd   *float64

	timeOverride    *float64
	rollingOverride *bool

	lastTime    float64
	lastRolling bool

	lastPublish time.Time

	ticker   *time.Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	onRecordingWillStart []func()
	onRecordingStarted   []func()
	onRecordingWillStop   []func()
	onRecordingStopped    []func()
	onTick                []func(State, float64)

	model.Notifier
}

// New creates a Transport bridging to client.
func New(client port.Client, opts Options) *Transport {
	return &Transport{client: client, options: opts.withDefaults()}
}

// State returns the current exclusive transport state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsPlaying reports whether the state is Playing.
func (t *Transport) IsPlaying() bool { return t.State() == Playing }

// IsRecording reports whether the state is Recording.
func (t *Transport) IsRecording() bool { return t.State() == Recording }

// SetPlaying implements the user-facing playing=v setter: entering
// Playing clears Recording, per spec.md section 4.3's exclusive
// transitions.
func (t *Transport) SetPlaying(v bool) {
	t.mu.Lock()
	prev := t.state
	if v {
		t.state = Playing
	} else if t.state == Playing {
		t.state = Stopped
	}
	next := t.state
	t.mu.Unlock()
	t.handleTransition(prev, next)
}

// SetRecording implements the user-facing recording=v setter:
// entering Recording clears Playing. Emits recording_will_start /
// recording_started (and the symmetric stop pair) so RecordingPath
// can bracket its own state changes.
func (t *Transport) SetRecording(v bool) {
	t.mu.Lock()
	prev := t.state
	if v {
		t.mu.Unlock()
		t.fireAll(t.onRecordingWillStart)
		t.mu.Lock()
		t.state = Recording
	} else if t.state == Recording {
		t.mu.Unlock()
		t.fireAll(t.onRecordingWillStop)
		t.mu.Lock()
		t.state = Stopped
	}
	next := t.state
	t.mu.Unlock()
	t.handleTransition(prev, next)
	if next == Recording {
		t.fireAll(t.onRecordingStarted)
	} else if prev == Recording {
		t.fireAll(t.onRecordingStopped)
	}
}

// Stop clears both Playing and Recording.
func (t *Transport) Stop() {
	t.mu.Lock()
	prev := t.state
	wasRecording := t.state == Recording
	t.mu.Unlock()
	if wasRecording {
		t.fireAll(t.onRecordingWillStop)
	}
	t.mu.Lock()
	t.state = Stopped
	t.mu.Unlock()
	t.handleTransition(prev, Stopped)
	if wasRecording {
		t.fireAll(t.onRecordingStopped)
	}
}

func (t *Transport) fireAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// OnRecordingWillStart registers a callback fired just before the
// transport enters Recording.
func (t *Transport) OnRecordingWillStart(fn func()) { t.onRecordingWillStart = append(t.onRecordingWillStart, fn) }

// OnRecordingStarted registers a callback fired just after the
// transport enters Recording.
func (t *Transport) OnRecordingStarted(fn func()) { t.onRecordingStarted = append(t.onRecordingStarted, fn) }

// OnRecordingWillStop registers a callback fired just before the
// transport leaves Recording.
func (t *Transport) OnRecordingWillStop(fn func()) { t.onRecordingWillStop = append(t.onRecordingWillStop, fn) }

// OnRecordingStopped registers a callback fired just after the
// transport leaves Recording.
func (t *Transport) OnRecordingStopped(fn func()) { t.onRecordingStopped = append(t.onRecordingStopped, fn) }

// OnTick registers a callback fired at the end of every pump cycle
// with the current state and time, the cadence RecordingPath.Pump and
// PlaybackPath.Tick are driven from.
func (t *Transport) OnTick(fn func(state State, now float64)) {
	t.onTick = append(t.onTick, fn)
}

func (t *Transport) handleTransition(prev, next State) {
	if prev == next {
		return
	}
	switch next {
	case Playing, Recording:
		if err := t.client.TransportStart(); err != nil {
			logger.GetLogger().Warn("transport start failed", "err", err)
		}
	default:
		if err := t.client.TransportStop(); err != nil {
			logger.GetLogger().Warn("transport stop failed", "err", err)
		}
	}
	t.Changed()
	t.resetPumpInterval()
}

// Time returns the current transport time: the local override if
// one was just written, else the host's time_seconds.
func (t *Transport) Time() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timeOverride != nil {
		return *t.timeOverride
	}
	return t.lastTime
}

// IsRolling returns the current rolling state with the same
// override semantics as Time.
func (t *Transport) IsRolling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rollingOverride != nil {
		return *t.rollingOverride
	}
	return t.lastRolling
}

// Seek writes the transport time. Per spec.md section 4.3's failure
// semantics, writes while Recording are ignored silently.
func (t *Transport) Seek(seconds float64) {
	t.mu.Lock()
	if t.state == Recording {
		t.mu.Unlock()
		return
	}
	t.timeOverride = &seconds
	t.updateCycleBoundsLocked()
	t.mu.Unlock()
	if err := t.client.TransportSeek(seconds); err != nil {
		logger.GetLogger().Warn("transport seek failed", "err", err)
	}
	t.Changed()
}

// Duration returns the advisory duration.
func (t *Transport) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// SetDuration sets the advisory duration.
func (t *Transport) SetDuration(d float64) {
	t.mu.Lock()
	t.duration = d
	t.mu.Unlock()
	t.Changed()
}

// SetCycling enables or disables the cycle region. Turning cycling on
// (or off) re-resolves the cycle bounds from the current marks first,
// matching the original's cycling setter.
func (t *Transport) SetCycling(v bool) {
	t.mu.Lock()
	if v != t.cycling {
		t.updateCycleBoundsLocked()
		t.cycling = v
	}
	t.mu.Unlock()
	t.Changed()
}

// Cycling reports whether cycling is enabled.
func (t *Transport) Cycling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycling
}

// SetCycleStart overrides the explicit cycle start time; pass nil to
// fall back to the nearest preceding Mark (or 0.0 if none).
func (t *Transport) SetCycleStart(v *float64) {
	t.mu.Lock()
	t.cycleStart = v
	t.updateCycleBoundsLocked()
	t.mu.Unlock()
	t.Changed()
}

// SetCycleEnd overrides the explicit cycle end time; pass nil to
// fall back to the nearest following Mark (undefined, cycling is a
// no-op, if there is no following mark).
func (t *Transport) SetCycleEnd(v *float64) {
	t.mu.Lock()
	t.cycleEnd = v
	t.updateCycleBoundsLocked()
	t.mu.Unlock()
	t.Changed()
}

// updateCycleBoundsLocked re-resolves effCycleStart/effCycleEnd from
// the current effective time, the explicit overrides if set, or
// otherwise the nearest marks (spec.md section 4.3). Must be called
// with mu held. Besides the explicit time and cycle setters and
// Start, driveCycling calls it from the periodic tick whenever that
// tick does not overshoot the cycle end.
func (t *Transport) updateCycleBoundsLocked() {
	now := t.effectiveTimeLocked()
	if t.cycleStart != nil {
		t.effCycleStart = *t.cycleStart
	} else if pm, ok := t.previousMarkLocked(now + 0.001); ok {
		t.effCycleStart = pm
	} else {
		t.effCycleStart = 0.0
	}
	if t.cycleEnd != nil {
		v := *t.cycleEnd
		t.effCycleEnd = &v
	} else if nm, ok := t.nextMarkLocked(now); ok {
		t.effCycleEnd = &nm
	} else {
		t.effCycleEnd = nil
	}
}

// ToggleMark toggles a mark at the current time.
func (t *Transport) ToggleMark() {
	t.mu.Lock()
	now := t.effectiveTimeLocked()
	idx := sort.SearchFloat64s(t.marks, now)
	if idx < len(t.marks) && t.marks[idx] == now {
		t.marks = append(t.marks[:idx], t.marks[idx+1:]...)
	} else {
		t.marks = append(t.marks, 0)
		copy(t.marks[idx+1:], t.marks[idx:])
		t.marks[idx] = now
	}
	t.mu.Unlock()
	t.Changed()
}

// Marks returns the sorted list of marks.
func (t *Transport) Marks() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.marks))
	copy(out, t.marks)
	return out
}

func (t *Transport) effectiveTimeLocked() float64 {
	if t.timeOverride != nil {
		return *t.timeOverride
	}
	return t.lastTime
}

// PreviousMark returns the nearest mark strictly before now, or 0.0
// if none exists.
func (t *Transport) PreviousMark() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.previousMarkLocked(t.effectiveTimeLocked())
	if !ok {
		return 0.0
	}
	return v
}

func (t *Transport) previousMarkLocked(now float64) (float64, bool) {
	best := -1
	for i, m := range t.marks {
		if m < now {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return t.marks[best], true
}

// NextMark returns the nearest mark strictly after now, ok=false if
// none exists.
func (t *Transport) NextMark() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextMarkLocked(t.effectiveTimeLocked())
}

func (t *Transport) nextMarkLocked(now float64) (float64, bool) {
	for _, m := range t.marks {
		if m > now {
			return m, true
		}
	}
	return 0, false
}

// Start begins the periodic update pump. Safe to call once; repeat
// calls are no-ops, matching the teacher's Timer.Start guard.
func (t *Transport) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.updateCycleBoundsLocked()
	interval := t.currentIntervalLocked()
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.ticker = time.NewTicker(interval)
	ticker := t.ticker
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()
	go t.run(ticker, stopCh, doneCh)
}

// StopPump halts the periodic update pump.
func (t *Transport) StopPump() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	doneCh := t.doneCh
	t.mu.Unlock()
	<-doneCh
}

func (t *Transport) run(ticker *time.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

func (t *Transport) currentIntervalLocked() time.Duration {
	if t.state != Stopped {
		return t.options.RollingInterval
	}
	return t.options.IdleInterval
}

// resetPumpInterval restarts the ticker at the interval matching the
// new state, called on every state transition.
func (t *Transport) resetPumpInterval() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.ticker.Reset(t.currentIntervalLocked())
	t.mu.Unlock()
}

// tick is one pump cycle: read host state, clear overrides, drive
// cycling, publish a coalesced change notification if the display
// interval has elapsed (spec.md section 4.3).
func (t *Transport) tick() {
	rolling, hostTime := t.client.TransportState()

	t.mu.Lock()
	t.lastRolling = rolling
	t.lastTime = hostTime
	t.timeOverride = nil
	t.rollingOverride = nil
	t.mu.Unlock()

	t.driveCycling()

	t.mu.Lock()
	elapsed := time.Since(t.lastPublish)
	shouldPublish := elapsed >= t.options.DisplayInterval
	if shouldPublish {
		t.lastPublish = time.Now()
	}
	t.mu.Unlock()

	if shouldPublish {
		t.Changed()
	}

	state, now := t.State(), t.Time()
	for _, fn := range t.onTick {
		fn(state, now)
	}
}

// driveCycling implements spec.md section 4.3's wrap algorithm: a
// tick observing time > cycle_end_time treats cycle_end_time as the
// last played-to instant, then wraps the remainder.
//
// The bounds it checks against are whatever updateCycleBoundsLocked
// last resolved -- from the previous tick, not this one. Every tick
// that does NOT overshoot refreshes effCycleStart/effCycleEnd from the
// current position before returning, so the bounds track the marks
// the playhead is currently between. The tick that does overshoot
// skips that refresh and wraps using the still-current bounds from the
// last in-range tick, then re-resolves from the post-wrap position.
// Recomputing from the overshot time itself would hand the wrap the
// wrong window: nextMarkLocked only ever returns a mark strictly after
// "now", so a fresh resolution at the overshot instant can never
// reproduce the very endpoint that was just crossed.
func (t *Transport) driveCycling() {
	t.mu.Lock()
	if !t.cycling {
		t.mu.Unlock()
		return
	}
	if t.effCycleEnd == nil {
		t.updateCycleBoundsLocked()
		t.mu.Unlock()
		return
	}
	start, end := t.effCycleStart, *t.effCycleEnd
	now := t.lastTime
	if end == start || now <= end {
		t.updateCycleBoundsLocked()
		t.mu.Unlock()
		return
	}
	newTime := start + (now - end)
	t.mu.Unlock()

	if err := t.client.TransportSeek(newTime); err != nil {
		logger.GetLogger().Warn("cycle wrap seek failed", "err", err)
	}
	t.mu.Lock()
	t.lastTime = newTime
	t.timeOverride = &newTime
	t.updateCycleBoundsLocked()
	t.mu.Unlock()
}
