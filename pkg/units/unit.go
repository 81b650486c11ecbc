// Package units implements the workspace node graph: Unit variants,
// Connections between their ports, and the PatchBay that mirrors the
// connection graph onto an external PortClient (spec.md sections 3,
// 4.4).
package units

import (
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

// Kind identifies a concrete Unit variant.
type Kind int

const (
	KindSequencer Kind = iota
	KindDeviceList
	KindSystemPlayback
	KindSampler
	KindTransport
	KindMonitor
	KindGroup
)

// PortSet is a source or sink's exposed ports: either a single
// handle or a stereo pair, with a Type tag.
type PortSet struct {
	Handles []port.Handle
	Type    port.Type
}

// Mono wraps a single mono or MIDI handle.
func Mono(h port.Handle, typ port.Type) PortSet {
	return PortSet{Handles: []port.Handle{h}, Type: typ}
}

// Stereo wraps a stereo pair.
func Stereo(l, r port.Handle) PortSet {
	return PortSet{Handles: []port.Handle{l, r}, Type: port.TypeStereo}
}

// Unit is a node on the workspace with position, size, name, and an
// optional color hue (spec.md section 3). Concrete variants
// implement Source and/or Sink.
type Unit struct {
	Kind Kind
	Name string
	X, Y float64
	W, H float64
	Hue  *float64

	// Payload is the variant-specific wrapped model: *model.TrackList
	// for KindSequencer, a device list for KindDeviceList, etc. It is
	// left as `any` here since the variants' wrapped types live in
	// different packages (model.TrackList, transport.Transport,
	// supervisor instrument lists) and units must not import all of
	// them to avoid import cycles.
	Payload any

	sourcePorts PortSet
	sinkPorts   PortSet

	model.Notifier
}

// NewUnit creates a Unit of the given kind.
func NewUnit(kind Kind, name string) *Unit {
	return &Unit{Kind: kind, Name: name}
}

// IsSource reports whether this unit currently exposes source ports.
func (u *Unit) IsSource() bool { return len(u.sourcePorts.Handles) > 0 }

// IsSink reports whether this unit currently exposes sink ports.
func (u *Unit) IsSink() bool { return len(u.sinkPorts.Handles) > 0 }

// SourcePorts returns the unit's current output PortSet.
func (u *Unit) SourcePorts() PortSet { return u.sourcePorts }

// SinkPorts returns the unit's current input PortSet.
func (u *Unit) SinkPorts() PortSet { return u.sinkPorts }

// SetSourcePorts updates the unit's output ports and notifies
// observers (Connections reconcile their physical route on this).
func (u *Unit) SetSourcePorts(p PortSet) {
	u.sourcePorts = p
	u.Changed()
}

// SetSinkPorts updates the unit's input ports and notifies observers.
func (u *Unit) SetSinkPorts(p PortSet) {
	u.sinkPorts = p
	u.Changed()
}
