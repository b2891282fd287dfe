package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"netventure.org/internal/ids"
)

// Store is the append-only completion ledger.
type Store interface {
	Append(ctx context.Context, e Entry) (Completion, error)
	ScanByParticipant(ctx context.Context, participantID string) ([]Completion, error)
	ScanByParticipants(ctx context.Context, participantIDs []string) ([]Completion, error)
	All(ctx context.Context) ([]Completion, error)
	Restore(ctx context.Context, cs []Completion) error
	Wipe(ctx context.Context) error
	Completed(participantID, challengeID string) bool
	Version() uint64
}

type pairKey struct {
	participant string
	challenge   string
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	seq     uint64
	version uint64
	entries []Completion
	once    map[pairKey]uint64 // non-repeatable pair -> sequence
	byPart  map[string][]int   // participant -> indexes into entries
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		once:   make(map[pairKey]uint64),
		byPart: make(map[string][]int),
	}
}

func (s *InMemory) Append(ctx context.Context, e Entry) (Completion, error) {
	if strings.TrimSpace(e.ParticipantID) == "" || strings.TrimSpace(e.ChallengeID) == "" {
		return Completion{}, fmt.Errorf("%w: participant and challenge are required", ErrInvalidEntry)
	}
	if e.Points < 0 {
		return Completion{}, fmt.Errorf("%w: points must be >= 0", ErrInvalidEntry)
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{e.ParticipantID, e.ChallengeID}
	if !e.Repeatable {
		if _, ok := s.once[key]; ok {
			return Completion{}, ErrDuplicateCompletion
		}
	}

	s.seq++
	c := Completion{
		ID:            ids.NewAt(e.CompletedAt),
		ParticipantID: e.ParticipantID,
		ChallengeID:   e.ChallengeID,
		Points:        e.Points,
		Reflection:    e.Reflection,
		Repeatable:    e.Repeatable,
		CompletedAt:   e.CompletedAt.UTC(),
		Sequence:      s.seq,
	}
	s.insert(c)
	s.version++
	return c, nil
}

// Completed reports whether a non-repeatable completion of challengeID is
// already recorded for participantID.
func (s *InMemory) Completed(participantID, challengeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.once[pairKey{participantID, challengeID}]
	return ok
}

// insert indexes c. Callers hold the write lock.
func (s *InMemory) insert(c Completion) {
	s.entries = append(s.entries, c)
	s.byPart[c.ParticipantID] = append(s.byPart[c.ParticipantID], len(s.entries)-1)
	if !c.Repeatable {
		s.once[pairKey{c.ParticipantID, c.ChallengeID}] = c.Sequence
	}
}

func (s *InMemory) ScanByParticipant(ctx context.Context, participantID string) ([]Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byPart[participantID]
	out := make([]Completion, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *InMemory) ScanByParticipants(ctx context.Context, participantIDs []string) ([]Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Completion
	for _, id := range participantIDs {
		for _, i := range s.byPart[id] {
			out = append(out, s.entries[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *InMemory) All(ctx context.Context) ([]Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Completion(nil), s.entries...), nil
}

// Restore replaces the ledger with cs, as loaded from persistence. Entries
// are ordered by sequence; a second completion of a non-repeatable pair is
// dropped so the uniqueness rule holds even for hand-edited data.
func (s *InMemory) Restore(ctx context.Context, cs []Completion) error {
	sorted := append([]Completion(nil), cs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, c := range sorted {
		if c.ParticipantID == "" || c.ChallengeID == "" || c.Points < 0 {
			continue
		}
		if !c.Repeatable {
			if _, dup := s.once[pairKey{c.ParticipantID, c.ChallengeID}]; dup {
				continue
			}
		}
		s.seq++
		c.Sequence = s.seq
		if c.ID == "" {
			c.ID = ids.NewAt(c.CompletedAt)
		}
		s.insert(c)
	}
	s.version++
	return nil
}

// Wipe clears the ledger. It is the only deletion path.
func (s *InMemory) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.version++
	return nil
}

func (s *InMemory) reset() {
	s.seq = 0
	s.entries = nil
	s.once = make(map[pairKey]uint64)
	s.byPart = make(map[string][]int)
}

// Version changes after every mutation.
func (s *InMemory) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
