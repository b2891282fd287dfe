package ledger

import (
	"errors"
	"time"
)

// Entry is an append request.
type Entry struct {
	ParticipantID string
	ChallengeID   string
	Points        int // captured from the catalog at log time
	Reflection    string
	Repeatable    bool
	CompletedAt   time.Time
}

// Completion is an immutable ledger record.
type Completion struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	ChallengeID   string    `json:"challenge_id"`
	Points        int       `json:"points"`
	Reflection    string    `json:"reflection,omitempty"`
	Repeatable    bool      `json:"repeatable"`
	CompletedAt   time.Time `json:"completed_at"`
	Sequence      uint64    `json:"sequence"` // monotonic append order
}

var (
	ErrDuplicateCompletion = errors.New("challenge already completed")
	ErrInvalidEntry        = errors.New("invalid ledger entry")
)
