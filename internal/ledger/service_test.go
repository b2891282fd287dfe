package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAppendNonRepeatableOnce(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	c1, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "s1c1", Points: 30})
	if err != nil {
		t.Fatal(err)
	}
	if c1.Sequence != 1 || c1.ID == "" {
		t.Fatalf("unexpected completion: %#v", c1)
	}
	if _, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "s1c1", Points: 30}); !errors.Is(err, ErrDuplicateCompletion) {
		t.Fatalf("expected ErrDuplicateCompletion, got %v", err)
	}
	all, _ := s.All(ctx)
	if len(all) != 1 {
		t.Fatalf("ledger changed on duplicate: %d entries", len(all))
	}

	if !s.Completed("p1", "s1c1") || s.Completed("p2", "s1c1") {
		t.Fatal("Completed does not reflect the recorded pair")
	}

	// another participant may complete the same challenge
	if _, err := s.Append(ctx, Entry{ParticipantID: "p2", ChallengeID: "s1c1", Points: 30}); err != nil {
		t.Fatal(err)
	}
}

func TestAppendRepeatableAccumulates(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "s5c1", Points: 50, Repeatable: true}); err != nil {
			t.Fatal(err)
		}
	}
	cs, _ := s.ScanByParticipant(ctx, "p1")
	if len(cs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(cs))
	}
	sum := 0
	for _, c := range cs {
		sum += c.Points
	}
	if sum != 150 {
		t.Fatalf("expected 150 points, got %d", sum)
	}
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	if _, err := s.Append(ctx, Entry{ChallengeID: "c"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if _, err := s.Append(ctx, Entry{ParticipantID: "p", ChallengeID: "c", Points: -1}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if s.Version() != 0 {
		t.Fatalf("version moved on rejected append")
	}
}

func TestScanByParticipantsKeepsSequenceOrder(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	_, _ = s.Append(ctx, Entry{ParticipantID: "a", ChallengeID: "c1", Points: 1})
	_, _ = s.Append(ctx, Entry{ParticipantID: "b", ChallengeID: "c1", Points: 2})
	_, _ = s.Append(ctx, Entry{ParticipantID: "a", ChallengeID: "c2", Points: 3})
	_, _ = s.Append(ctx, Entry{ParticipantID: "c", ChallengeID: "c2", Points: 4})

	cs, _ := s.ScanByParticipants(ctx, []string{"b", "a"})
	if len(cs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(cs))
	}
	for i := 1; i < len(cs); i++ {
		if cs[i].Sequence <= cs[i-1].Sequence {
			t.Fatalf("out of order: %#v", cs)
		}
	}
}

func TestRestoreDropsDuplicatePairs(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	at := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	err := s.Restore(ctx, []Completion{
		{ID: "x2", ParticipantID: "p1", ChallengeID: "c1", Points: 10, CompletedAt: at, Sequence: 7},
		{ID: "x1", ParticipantID: "p1", ChallengeID: "c1", Points: 10, CompletedAt: at, Sequence: 3},
		{ParticipantID: "p1", ChallengeID: "c2", Points: 5, Repeatable: true, CompletedAt: at, Sequence: 9},
		{ParticipantID: "p1", ChallengeID: "c2", Points: 5, Repeatable: true, CompletedAt: at, Sequence: 10},
		{ParticipantID: "", ChallengeID: "c3", Points: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	cs, _ := s.All(ctx)
	if len(cs) != 3 {
		t.Fatalf("expected 3 restored entries, got %d", len(cs))
	}
	if cs[0].ID != "x1" || cs[0].Sequence != 1 {
		t.Fatalf("expected earliest entry kept and renumbered, got %#v", cs[0])
	}
	if cs[2].ID == "" {
		t.Fatalf("missing id not backfilled")
	}
	if _, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "c1", Points: 10}); !errors.Is(err, ErrDuplicateCompletion) {
		t.Fatalf("restored uniqueness not enforced: %v", err)
	}
	next, _ := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "c9", Points: 1})
	if next.Sequence != 4 {
		t.Fatalf("expected sequence 4 after restore, got %d", next.Sequence)
	}
}

func TestWipe(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	_, _ = s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "c1", Points: 10})
	v := s.Version()
	if err := s.Wipe(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Version() == v {
		t.Fatal("version not bumped by wipe")
	}
	cs, _ := s.All(ctx)
	if len(cs) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(cs))
	}
	if _, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "c1", Points: 10}); err != nil {
		t.Fatalf("append after wipe: %v", err)
	}
}

func TestConcurrentDuplicateAppends(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	N := 50
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(ctx, Entry{ParticipantID: "p1", ChallengeID: "s7c4", Points: 60}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one accepted append, got %d", accepted)
	}
}
