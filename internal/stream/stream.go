// Package stream fans progress events out to live subscribers such as the
// SSE endpoint.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Kinds of progress events.
const (
	KindCompletion = "completion"
	KindReaffirm   = "reaffirm"
	KindEnrollment = "enrollment"
	KindCatalog    = "catalog"
	KindReset      = "reset"
)

// Event describes a change to a participant's progress or a tenant.
type Event struct {
	Kind               string    `json:"kind"`
	TenantID           string    `json:"tenant_id"`
	ParticipantID      string    `json:"participant_id,omitempty"`
	ChallengeID        string    `json:"challenge_id,omitempty"`
	Points             int       `json:"points,omitempty"`
	TotalPoints        int       `json:"total_points,omitempty"`
	RankLevel          int       `json:"rank_level"`
	RankTitle          string    `json:"rank_title,omitempty"`
	RankedUp           bool      `json:"ranked_up,omitempty"`
	NeedsReaffirmation bool      `json:"needs_reaffirmation,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Stream fans out events to all active subscribers.
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	dropped atomic.Int64
}

func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fans the event out to all subscribers. Slow subscribers miss
// events rather than block the publisher.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (s *Stream) Dropped() int64 { return s.dropped.Load() }

// Subscribers returns the number of live subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
