package units

import (
	"time"

	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

// PatchBay is the collection of Connections with two derived
// indices, by source and by sink (spec.md section 3/4.4).
type PatchBay struct {
	client      port.Client
	afterFunc   func(time.Duration, func()) func()
	connections []*Connection

	bySource map[*Unit][]*Connection
	bySink   map[*Unit][]*Connection

	model.Notifier
}

// NewPatchBay creates an empty PatchBay that realizes connections
// through client. afterFunc overrides the deferred-notification
// scheduler (nil uses time.AfterFunc); tests pass a synchronous
// stand-in.
func NewPatchBay(client port.Client, afterFunc func(time.Duration, func()) func()) *PatchBay {
	return &PatchBay{
		client:    client,
		afterFunc: afterFunc,
		bySource:  make(map[*Unit][]*Connection),
		bySink:    make(map[*Unit][]*Connection),
	}
}

// Connect establishes a Connection between source and sink. At most
// one Connection exists per ordered endpoint pair (spec.md section
// 3); calling Connect again for an existing pair returns the
// existing Connection unchanged.
func (p *PatchBay) Connect(source, sink *Unit) *Connection {
	if existing := p.find(source, sink); existing != nil {
		return existing
	}
	c := newConnection(source, sink, p.client, p.afterFunc)
	p.connections = append(p.connections, c)
	p.bySource[source] = append(p.bySource[source], c)
	p.bySink[sink] = append(p.bySink[sink], c)
	p.Changed()
	return c
}

// Disconnect removes the Connection between source and sink, if any,
// tearing down its physical route.
func (p *PatchBay) Disconnect(source, sink *Unit) {
	c := p.find(source, sink)
	if c == nil {
		return
	}
	p.removeConnection(c)
}

func (p *PatchBay) find(source, sink *Unit) *Connection {
	for _, c := range p.bySource[source] {
		if c.Sink == sink {
			return c
		}
	}
	return nil
}

func (p *PatchBay) removeConnection(c *Connection) {
	c.Drop()
	p.connections = removeConn(p.connections, c)
	p.bySource[c.Source] = removeConn(p.bySource[c.Source], c)
	p.bySink[c.Sink] = removeConn(p.bySink[c.Sink], c)
	p.Changed()
}

func removeConn(list []*Connection, c *Connection) []*Connection {
	for i, other := range list {
		if other == c {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// SourcesForSink returns every Unit currently connected as a source
// of sink.
func (p *PatchBay) SourcesForSink(sink *Unit) []*Unit {
	var out []*Unit
	for _, c := range p.bySink[sink] {
		out = append(out, c.Source)
	}
	return out
}

// SinksForSource returns every Unit currently connected as a sink of
// source.
func (p *PatchBay) SinksForSource(source *Unit) []*Unit {
	var out []*Unit
	for _, c := range p.bySource[source] {
		out = append(out, c.Sink)
	}
	return out
}

// RemoveConnectionsForUnit cascades the removal of every Connection
// touching unit, whether as source or sink (spec.md section 4.4,
// scenario 6).
func (p *PatchBay) RemoveConnectionsForUnit(unit *Unit) {
	var toRemove []*Connection
	toRemove = append(toRemove, p.bySource[unit]...)
	toRemove = append(toRemove, p.bySink[unit]...)
	for _, c := range toRemove {
		p.removeConnection(c)
	}
}

// Connections returns every live connection.
func (p *PatchBay) Connections() []*Connection {
	return p.connections
}
