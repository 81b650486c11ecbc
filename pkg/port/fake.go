package port

import (
	"sort"
	"sync"

	"github.com/jessecrossen/jackdaw-sub000/pkg/logger"
	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
)

// pendingSend is a message queued for future delivery on a port.
type pendingSend struct {
	at      float64 // absolute delivery time, seconds
	seq     int     // issue order, for stable sort at equal times
	message midiwire.Message
}

// incomingMsg is a message delivered into a port's receive queue.
type incomingMsg struct {
	message midiwire.Message
	at      float64
}

// connKey identifies a connected (source, sink) pair.
type connKey struct{ source, sink int }

// FakeClient is an in-memory PortClient used for tests and headless
// operation. It models the server's send queue and transport clock
// without any OS-level MIDI I/O, mirroring the teacher's
// mutex-guarded state-machine style (pkg/vm/audio/timer.go).
type FakeClient struct {
	mu sync.Mutex

	nextID  int
	nextSeq int
	ports   map[int]Handle
	names   map[string]int

	connected map[connKey]bool

	pending map[int][]pendingSend
	incoming map[int][]incomingMsg
	lastRecv map[int]float64

	rolling bool
	time    float64
}

// NewFakeClient creates an empty in-memory PortClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		ports:     make(map[int]Handle),
		names:     make(map[string]int),
		connected: make(map[connKey]bool),
		pending:   make(map[int][]pendingSend),
		incoming:  make(map[int][]incomingMsg),
		lastRecv:  make(map[int]float64),
	}
}

func (c *FakeClient) OpenPort(name string, direction Direction, typ Type) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.names[name]; exists {
		return Handle{}, ErrNameInUse
	}
	c.nextID++
	h := Handle{ID: c.nextID, Name: name, Direction: direction, Type: typ}
	c.ports[h.ID] = h
	c.names[name] = h.ID
	return h, nil
}

func (c *FakeClient) ListPorts(namePattern NamePattern, flags ListFlags) ([]Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Handle
	for _, h := range c.ports {
		if namePattern != "" && h.Name != namePattern {
			continue
		}
		if flags.Direction != nil && *flags.Direction != h.Direction {
			continue
		}
		if flags.Type != nil && *flags.Type != h.Type {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *FakeClient) Connect(source, sink Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ports[source.ID]; !ok {
		return WrapUnavailable("connect", source)
	}
	if _, ok := c.ports[sink.ID]; !ok {
		return WrapUnavailable("connect", sink)
	}
	c.connected[connKey{source.ID, sink.ID}] = true
	return nil
}

func (c *FakeClient) Disconnect(source, sink Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.connected, connKey{source.ID, sink.ID})
	return nil
}

// IsConnected reports whether the given pair is currently routed.
// Test-only introspection, not part of the PortClient contract.
func (c *FakeClient) IsConnected(source, sink Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected[connKey{source.ID, sink.ID}]
}

func (c *FakeClient) Send(p Handle, message midiwire.Message, timeOffset float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ports[p.ID]; !ok {
		return WrapUnavailable("send", p)
	}
	c.nextSeq++
	at := c.time + timeOffset
	c.pending[p.ID] = append(c.pending[p.ID], pendingSend{at: at, seq: c.nextSeq, message: message})
	sort.SliceStable(c.pending[p.ID], func(i, j int) bool {
		a, b := c.pending[p.ID][i], c.pending[p.ID][j]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.seq < b.seq
	})
	return nil
}

func (c *FakeClient) ClearSend(p Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, p.ID)
	return nil
}

func (c *FakeClient) Receive(p Handle) (Received, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.incoming[p.ID]
	if len(q) == 0 {
		return Received{}, false
	}
	msg := q[0]
	c.incoming[p.ID] = q[1:]
	delta := msg.at - c.lastRecv[p.ID]
	if delta < 0 {
		delta = 0
	}
	c.lastRecv[p.ID] = msg.at
	return Received{Message: msg.message, DeltaTime: delta}, true
}

// Deliver injects an incoming message on p at absolute time at,
// for use by test harnesses simulating an external MIDI source.
func (c *FakeClient) Deliver(p Handle, message midiwire.Message, at float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incoming[p.ID] = append(c.incoming[p.ID], incomingMsg{message: message, at: at})
}

// DueSends returns, and removes, every pending send on p whose
// delivery time is <= upTo. Used by test harnesses to inspect what
// PlaybackPath scheduled.
func (c *FakeClient) DueSends(p Handle, upTo float64) []midiwire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.pending[p.ID]
	var due []midiwire.Message
	var rest []pendingSend
	for _, ps := range q {
		if ps.at <= upTo {
			due = append(due, ps.message)
		} else {
			rest = append(rest, ps)
		}
	}
	c.pending[p.ID] = rest
	return due
}

func (c *FakeClient) TransportState() (bool, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rolling, c.time
}

func (c *FakeClient) TransportStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolling = true
	return nil
}

func (c *FakeClient) TransportStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolling = false
	return nil
}

func (c *FakeClient) TransportSeek(t float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < 0 {
		logger.GetLogger().Warn("transport seek clamped", "requested", t)
		t = 0
	}
	c.time = t
	return nil
}

// Advance moves the fake host clock forward by dt seconds while
// rolling; used by test harnesses driving simulated time.
func (c *FakeClient) Advance(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rolling {
		c.time += dt
	}
}
