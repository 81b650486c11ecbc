package port

import (
	"testing"

	"github.com/jessecrossen/jackdaw-sub000/pkg/midiwire"
)

func TestFakeClient_OpenPort_NameCollision(t *testing.T) {
	c := NewFakeClient()
	if _, err := c.OpenPort("A", DirectionSource, TypeMono); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}
	if _, err := c.OpenPort("A", DirectionSource, TypeMono); err != ErrNameInUse {
		t.Errorf("second OpenPort(A) err = %v, want ErrNameInUse", err)
	}
}

func TestFakeClient_ListPorts_FiltersByDirectionAndType(t *testing.T) {
	c := NewFakeClient()
	src, _ := c.OpenPort("src", DirectionSource, TypeMono)
	c.OpenPort("sink", DirectionSink, TypeStereo)

	sink := DirectionSink
	ports, err := c.ListPorts("", ListFlags{Direction: &sink})
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if len(ports) != 1 || ports[0].Name != "sink" {
		t.Errorf("ListPorts(sink) = %+v, want just sink", ports)
	}

	named, err := c.ListPorts("src", ListFlags{})
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if len(named) != 1 || named[0].ID != src.ID {
		t.Errorf("ListPorts(src) = %+v, want just src", named)
	}
}

func TestFakeClient_Send_OrdersByDeliveryTimeThenIssueOrder(t *testing.T) {
	c := NewFakeClient()
	p, _ := c.OpenPort("p", DirectionSource, TypeMono)

	noteOn := midiwire.Message{Status: midiwire.StatusNoteOn, Data1: 60, Data2: 100}
	noteOff := midiwire.Message{Status: midiwire.StatusNoteOff, Data1: 60, Data2: 0}
	cc := midiwire.Message{Status: midiwire.StatusControlChange, Data1: 7, Data2: 64}

	c.Send(p, noteOff, 0.5)
	c.Send(p, noteOn, 0.1)
	c.Send(p, cc, 0.1)

	due := c.DueSends(p, 0.5)
	if len(due) != 3 {
		t.Fatalf("len(due) = %d, want 3", len(due))
	}
	if due[0] != noteOn || due[1] != cc {
		t.Errorf("due[0:2] = %+v, want noteOn then cc (same time, issue order)", due[:2])
	}
	if due[2] != noteOff {
		t.Errorf("due[2] = %+v, want noteOff", due[2])
	}
}

func TestFakeClient_DueSends_LeavesLaterMessagesPending(t *testing.T) {
	c := NewFakeClient()
	p, _ := c.OpenPort("p", DirectionSource, TypeMono)
	early := midiwire.Message{Status: midiwire.StatusNoteOn, Data1: 60, Data2: 100}
	late := midiwire.Message{Status: midiwire.StatusNoteOff, Data1: 60, Data2: 0}
	c.Send(p, early, 0.1)
	c.Send(p, late, 10.0)

	due := c.DueSends(p, 1.0)
	if len(due) != 1 || due[0] != early {
		t.Fatalf("DueSends(1.0) = %+v, want just early", due)
	}
	if due := c.DueSends(p, 1.0); len(due) != 0 {
		t.Errorf("second DueSends(1.0) = %+v, want empty (already consumed)", due)
	}
	if due := c.DueSends(p, 100.0); len(due) != 1 || due[0] != late {
		t.Errorf("DueSends(100.0) = %+v, want late", due)
	}
}

func TestFakeClient_ClearSend_DropsPending(t *testing.T) {
	c := NewFakeClient()
	p, _ := c.OpenPort("p", DirectionSource, TypeMono)
	c.Send(p, midiwire.Message{Status: midiwire.StatusNoteOn, Data1: 60, Data2: 100}, 0.0)
	c.ClearSend(p)
	if due := c.DueSends(p, 1000.0); len(due) != 0 {
		t.Errorf("DueSends after ClearSend = %+v, want empty", due)
	}
}

func TestFakeClient_Receive_DeltaTimeIsSinceLastReceive(t *testing.T) {
	c := NewFakeClient()
	p, _ := c.OpenPort("p", DirectionSink, TypeMono)
	msg := midiwire.Message{Status: midiwire.StatusNoteOn, Data1: 60, Data2: 100}
	c.Deliver(p, msg, 1.0)
	c.Deliver(p, msg, 1.25)

	r1, ok := c.Receive(p)
	if !ok || r1.DeltaTime != 1.0 {
		t.Fatalf("first Receive = %+v, ok=%v, want DeltaTime 1.0", r1, ok)
	}
	r2, ok := c.Receive(p)
	if !ok || r2.DeltaTime != 0.25 {
		t.Fatalf("second Receive = %+v, ok=%v, want DeltaTime 0.25", r2, ok)
	}
	if _, ok := c.Receive(p); ok {
		t.Error("third Receive ok = true, want false (queue drained)")
	}
}

func TestFakeClient_TransportSeek_ClampsNegative(t *testing.T) {
	c := NewFakeClient()
	c.TransportSeek(-1.0)
	if _, got := c.TransportState(); got != 0 {
		t.Errorf("time after negative seek = %v, want 0", got)
	}
}

func TestFakeClient_Advance_OnlyWhileRolling(t *testing.T) {
	c := NewFakeClient()
	c.Advance(1.0)
	if _, got := c.TransportState(); got != 0 {
		t.Errorf("time after Advance while stopped = %v, want 0", got)
	}

	c.TransportStart()
	c.Advance(2.5)
	if _, got := c.TransportState(); got != 2.5 {
		t.Errorf("time after Advance while rolling = %v, want 2.5", got)
	}

	c.TransportStop()
	c.Advance(100)
	if _, got := c.TransportState(); got != 2.5 {
		t.Errorf("time after Advance while stopped again = %v, want unchanged 2.5", got)
	}
}
