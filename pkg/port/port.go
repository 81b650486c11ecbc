// Package port defines the PortClient contract: the single point of
// integration with an external audio/MIDI server. A production
// implementation would bridge to a JACK or ALSA sequencer client; the
// in-memory FakeClient in fake.go exercises the same contract for
// tests and for headless operation without a server.
package port

import (
	"errors"
	"fmt"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
)

// Direction of a port relative to its owning unit.
type Direction int

const (
	DirectionSource Direction = iota
	DirectionSink
)

// Type tags a port's signal kind.
type Type int

const (
	TypeMono Type = iota
	TypeStereo
	TypeMIDI
)

func (t Type) String() string {
	switch t {
	case TypeMono:
		return "mono"
	case TypeStereo:
		return "stereo"
	case TypeMIDI:
		return "midi"
	default:
		return "unknown"
	}
}

// Handle identifies a single physical port at the external server.
type Handle struct {
	ID        int
	Name      string
	Direction Direction
	Type      Type
}

var (
	// ErrPortUnavailable: a connect/disconnect targets a port not
	// currently visible. Recovery: wait for next scan; not fatal.
	ErrPortUnavailable = errors.New("port unavailable")
	// ErrSendQueueFull: PortClient refused a send. Recovery: drop the
	// message, log; playback continues.
	ErrSendQueueFull = errors.New("send queue full")
	// ErrMalformedMessage: a received MIDI message has unexpected
	// length or status nibble. Recovery: log once per kind; ignore.
	ErrMalformedMessage = errors.New("malformed MIDI message")
	// ErrNameInUse: open_port was called with a name already owned.
	ErrNameInUse = errors.New("port name already in use")
)

// NamePattern is the name filter accepted by ListPorts. An empty
// pattern matches anything.
type NamePattern = string

// ListFlags filters ListPorts by direction and port type.
type ListFlags struct {
	Direction *Direction
	Type      *Type
}

// Received is a single incoming MIDI message paired with the time in
// seconds elapsed since the previous message received on the same
// port (spec.md section 4.1: receive returns (message, delta_time)).
type Received struct {
	Message   midiwire.Message
	DeltaTime float64
}

// Client is the PortClient contract from spec.md section 4.1.
//
// Thread-safety is delegated to the implementation: the contract is
// that Transport invokes transport state/seek from a single
// scheduling task, and RecordingPath/PlaybackPath invoke
// Send/Receive only from their own owning component. Implementations
// may batch sends but must never reorder messages issued on the same
// port at equal times.
type Client interface {
	OpenPort(name string, direction Direction, typ Type) (Handle, error)
	ListPorts(namePattern NamePattern, flags ListFlags) ([]Handle, error)
	Connect(source, sink Handle) error
	Disconnect(source, sink Handle) error
	// Send enqueues message to be delivered at now+timeOffset seconds.
	// timeOffset may be 0 for immediate delivery.
	Send(p Handle, message midiwire.Message, timeOffset float64) error
	// ClearSend drops all pending queued messages on a port.
	ClearSend(p Handle) error
	// Receive pulls the next queued incoming message, or ok=false if
	// the port's incoming queue is empty.
	Receive(p Handle) (Received, bool)
	TransportState() (rolling bool, timeSeconds float64)
	TransportStart() error
	TransportStop() error
	TransportSeek(t float64) error
}

// WrapUnavailable returns an error wrapping ErrPortUnavailable,
// prefixed with context and the port's name.
func WrapUnavailable(context string, h Handle) error {
	return fmt.Errorf("%s: port %q: %w", context, h.Name, ErrPortUnavailable)
}
