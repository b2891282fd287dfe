package roster

import (
	"errors"
	"sort"
	"strings"
	"time"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/validate"
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrDuplicateID        = errors.New("participant id already enrolled")
)

// Participant is an enrolled child. Tier is frozen at enrollment; only the
// pledge fields change afterwards.
type Participant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ClassName    string          `json:"class_name,omitempty"`
	Team         curriculum.Team `json:"team"`
	Year         int             `json:"year"`
	Tier         curriculum.Tier `json:"tier"`
	TenantID     string          `json:"tenant_id"`
	PledgeLevel  int             `json:"pledge_level"`
	LastPledgeXP int             `json:"last_pledge_xp"`
	EnrolledAt   time.Time       `json:"enrolled_at"`
}

// EnrollInput is the data required to enroll a participant.
type EnrollInput struct {
	Name      string          `json:"name" validate:"notblank,max=80"`
	Year      int             `json:"year" validate:"min=1,max=13"`
	Team      curriculum.Team `json:"team" validate:"oneof=Baggins Hood Poppins Potter"`
	ClassName string          `json:"class_name" validate:"max=40"`
	TenantID  string          `json:"tenant_id" validate:"max=64"`
}

// New builds a participant from a validated input. The tenant id must
// already be resolved by the caller.
func New(id string, in EnrollInput, now time.Time) (Participant, error) {
	if t, err := curriculum.ParseTeam(string(in.Team)); err == nil {
		in.Team = t
	}
	if err := validate.Struct(in); err != nil {
		return Participant{}, err
	}
	return Participant{
		ID:         id,
		Name:       strings.TrimSpace(in.Name),
		ClassName:  strings.TrimSpace(in.ClassName),
		Team:       in.Team,
		Year:       in.Year,
		Tier:       curriculum.TierForYear(in.Year),
		TenantID:   in.TenantID,
		EnrolledAt: now.UTC(),
	}, nil
}

// Roster is the ordered set of enrolled participants. It is not safe for
// concurrent use; the engine serialises access.
type Roster struct {
	order []string
	byID  map[string]Participant
}

func NewRoster() *Roster {
	return &Roster{byID: make(map[string]Participant)}
}

// Add enrolls p.
func (r *Roster) Add(p Participant) error {
	if _, ok := r.byID[p.ID]; ok {
		return ErrDuplicateID
	}
	r.order = append(r.order, p.ID)
	r.byID[p.ID] = p
	return nil
}

// Get returns the participant with id.
func (r *Roster) Get(id string) (Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns every participant in enrollment order.
func (r *Roster) List() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ListByTenant returns participants governed by tenantID, in enrollment order.
func (r *Roster) ListByTenant(tenantID string) []Participant {
	var out []Participant
	for _, id := range r.order {
		if p := r.byID[id]; p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out
}

// SetPledge records a pledge transition. Nothing else about a participant
// can change after enrollment.
func (r *Roster) SetPledge(id string, level, xp int) (Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return Participant{}, ErrUnknownParticipant
	}
	p.PledgeLevel = level
	p.LastPledgeXP = xp
	r.byID[id] = p
	return p, nil
}

// Len reports the number of participants.
func (r *Roster) Len() int { return len(r.order) }

// Restore replaces the roster content with ps, keeping their order.
// Later duplicates of an id are dropped.
func (r *Roster) Restore(ps []Participant) {
	r.Wipe()
	for _, p := range ps {
		_ = r.Add(p)
	}
}

// Wipe removes every participant.
func (r *Roster) Wipe() {
	r.order = nil
	r.byID = make(map[string]Participant)
}

// IDs returns the ids of ps.
func IDs(ps []Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// SortByName orders ps by name, then id, in place.
func SortByName(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}
