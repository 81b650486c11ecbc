package model

import "testing"

func TestJoinRepeats_IdempotentSecondCallNoOp(t *testing.T) {
	b := NewBlock(0)
	b.Duration = 2.0
	b.Events.Duration = 1.0
	b.Events.AddNote(NewNote(0.2, 0.1, 60, 1.0))

	b.JoinRepeats()
	firstNotes := len(b.Events.Notes)
	firstEventsDuration := b.Events.Duration

	b.JoinRepeats()
	if len(b.Events.Notes) != firstNotes {
		t.Fatalf("second JoinRepeats changed note count: %d -> %d", firstNotes, len(b.Events.Notes))
	}
	if b.Events.Duration != firstEventsDuration {
		t.Fatalf("second JoinRepeats changed events duration: %v -> %v", firstEventsDuration, b.Events.Duration)
	}
	if b.Events.Duration != b.Duration {
		t.Fatalf("Events.Duration after JoinRepeats = %v, want %v (the block's duration)", b.Events.Duration, b.Duration)
	}
}

func TestSplitThenJoin_RecoversEventSetAndSpan(t *testing.T) {
	tl := NewTrackList()
	track := NewTrack("t")
	tl.AddTrack(track)

	b := NewBlock(0)
	b.Duration = 2.0
	b.Events.AddNote(NewNote(0.5, 0.2, 60, 1.0))
	b.Events.AddNote(NewNote(1.5, 0.2, 62, 1.0))
	track.AppendBlock(b)

	parts := b.Split([]float64{1.0}, track)
	if len(parts) != 2 {
		t.Fatalf("Split produced %d parts, want 2", len(parts))
	}

	joined := parts[0].Join(parts[1:], tl)
	if joined.Time != b.Time {
		t.Errorf("joined.Time = %v, want %v", joined.Time, b.Time)
	}
	if joined.Duration != b.Duration {
		t.Errorf("joined.Duration = %v, want %v", joined.Duration, b.Duration)
	}

	gotTimes := map[float64]int{}
	for _, n := range joined.Events.SortedNotes() {
		gotTimes[n.Time]++
	}
	if gotTimes[0.5] != 1 || gotTimes[1.5] != 1 {
		t.Errorf("joined note times = %v, want times 0.5 and 1.5 each once", gotTimes)
	}
}

func TestNewBlock_ZeroDurationHasNoEvents(t *testing.T) {
	b := NewBlock(0.0)
	b.Duration = 0

	if b.Duration != 0 {
		t.Fatalf("Duration = %v, want 0", b.Duration)
	}
	if len(b.Events.Notes) != 0 || len(b.Events.CCSets) != 0 {
		t.Fatalf("expected an empty event list on a new zero-duration block")
	}
}

func TestBlockTimes_IncludesZeroWhenEventsPresent(t *testing.T) {
	b := NewBlock(0)
	b.Duration = 1.0
	b.Events.AddNote(NewNote(0.3, 0.1, 60, 1.0))

	times := b.Times()
	if len(times) == 0 || times[0] != 0.0 {
		t.Fatalf("Times() = %v, want times[0] == 0.0", times)
	}
}

func TestNoteDurationZero_IsLegal(t *testing.T) {
	n := NewNote(0.5, 0, 60, 1.0)
	if n.EndTime() != 0.5 {
		t.Errorf("EndTime() = %v, want 0.5", n.EndTime())
	}
	e := NewEventList()
	e.AddNote(n)
	if len(e.Notes) != 1 {
		t.Fatalf("expected the zero-duration note to be accepted")
	}
}
