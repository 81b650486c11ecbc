package units

import (
	"slices"
	"time"

	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

// deferDelay is the ~10ms window before a dropped/reassigned
// connection notifies its former endpoints, giving disconnect
// requests time to reach the server before the UI re-queries port
// state (spec.md section 4.4).
const deferDelay = 10 * time.Millisecond

// Connection is an edge in the PatchBay: a (source, sink) pair of
// Unit endpoints (spec.md section 3). A Connection owns a pair of
// "realized" port handles mirroring the current source/sink ports of
// its endpoints, and reconciles the physical route through a
// PortClient whenever either endpoint's ports change.
type Connection struct {
	Source *Unit
	Sink   *Unit

	client port.Client

	routedSource []port.Handle
	routedSink   []port.Handle
	routedType   port.Type
	dropped      bool

	unsubscribeSource func()
	unsubscribeSink   func()

	afterFunc func(time.Duration, func()) func()

	model.Notifier
}

// newConnection wires a Connection between source and sink, using
// client to realize the physical route. afterFunc schedules the
// deferred-notification callback (time.AfterFunc in production,
// synchronous in tests); it returns a cancel function.
func newConnection(source, sink *Unit, client port.Client, afterFunc func(time.Duration, func()) func()) *Connection {
	c := &Connection{Source: source, Sink: sink, client: client, afterFunc: afterFunc}
	c.unsubscribeSource = observeOnce(source, c.reconcile)
	c.unsubscribeSink = observeOnce(sink, c.reconcile)
	c.reconcile()
	return c
}

// observeOnce registers fn with u's Notifier and returns a no-op
// cancel (Notifier does not support unregistering observers
// individually; Connection teardown instead stops acting on further
// callbacks via its own dropped flag, set in Drop).
func observeOnce(u *Unit, fn model.ChangeFunc) func() {
	u.Observe(fn)
	return func() {}
}

// reconcile implements the endpoint-change algorithm from spec.md
// section 4.4: tear down the old physical route if both prior ports
// were materialized, establish the new one if both new ports are
// materialized, then cache the newly-routed pair. A notification that
// leaves both endpoints' ports unchanged, or arrives after Drop, does
// nothing.
func (c *Connection) reconcile() {
	if c.dropped {
		return
	}
	newSource := c.Source.SourcePorts()
	newSink := c.Sink.SinkPorts()
	effectiveType := EffectiveType(newSource.Type, newSink.Type)
	if slices.Equal(newSource.Handles, c.routedSource) && slices.Equal(newSink.Handles, c.routedSink) && effectiveType == c.routedType {
		return
	}

	if len(c.routedSource) > 0 && len(c.routedSink) > 0 {
		c.teardownPhysical(c.routedSource, c.routedSink)
	}

	pairs := pairPorts(newSource.Handles, newSink.Handles)
	if len(pairs) > 0 {
		for _, pr := range pairs {
			if c.client != nil {
				_ = c.client.Connect(pr[0], pr[1])
			}
		}
	}
	c.routedSource = newSource.Handles
	c.routedSink = newSink.Handles
	c.routedType = effectiveType
	c.Changed()
}

func (c *Connection) teardownPhysical(source, sink []port.Handle) {
	pairs := pairPorts(source, sink)
	for _, pr := range pairs {
		if c.client != nil {
			_ = c.client.Disconnect(pr[0], pr[1])
		}
	}
}

// pairPorts implements spec.md section 4.4's tuple-routing rule:
// stereo-to-stereo pairs index-wise; mono-to-tuple or tuple-to-mono
// fans out by repeating the shorter side.
func pairPorts(source, sink []port.Handle) [][2]port.Handle {
	if len(source) == 0 || len(sink) == 0 {
		return nil
	}
	n := len(source)
	if len(sink) > n {
		n = len(sink)
	}
	out := make([][2]port.Handle, 0, n)
	for i := 0; i < n; i++ {
		s := source[i%len(source)]
		k := sink[i%len(sink)]
		out = append(out, [2]port.Handle{s, k})
	}
	return out
}

// EffectiveType implements the stereo-mono rule from spec.md section
// 4.4: a connection's effective type is mono if either endpoint is
// mono, else the endpoint type (midi stays midi).
func EffectiveType(source, sink port.Type) port.Type {
	if source == port.TypeMono || sink == port.TypeMono {
		return port.TypeMono
	}
	return source
}

// Drop tears down the physical route (if any) and schedules the
// deferred endpoint notification from spec.md section 4.4.
func (c *Connection) Drop() {
	c.dropped = true
	source, sink := c.routedSource, c.routedSink
	if len(source) > 0 && len(sink) > 0 {
		c.teardownPhysical(source, sink)
	}
	c.routedSource = nil
	c.routedSink = nil
	schedule := c.afterFunc
	if schedule == nil {
		schedule = func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		}
	}
	src, sink2 := c.Source, c.Sink
	schedule(deferDelay, func() {
		src.Changed()
		sink2.Changed()
	})
}
