// Package progress derives every read-side view (points, strand ratios,
// team totals, eligibility, standings) from the ledger, the roster and the
// tenant catalog. Nothing here is cached; every call recomputes from source.
package progress

import (
	"context"
	"sort"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/ledger"
	"netventure.org/internal/pledge"
	"netventure.org/internal/rank"
	"netventure.org/internal/roster"
	"netventure.org/internal/tenant"
)

// Completions is the read side of the ledger.
type Completions interface {
	ScanByParticipant(ctx context.Context, participantID string) ([]ledger.Completion, error)
	ScanByParticipants(ctx context.Context, participantIDs []string) ([]ledger.Completion, error)
}

// Participants is the read side of the roster.
type Participants interface {
	Get(id string) (roster.Participant, bool)
	ListByTenant(tenantID string) []roster.Participant
}

// Tenants resolves a tenant id to its configuration, falling back to the
// default.
type Tenants interface {
	Resolve(id string) tenant.Config
}

// Aggregator computes progress views.
type Aggregator struct {
	completions  Completions
	participants Participants
	tenants      Tenants
	ladder       rank.Ladder
}

// New builds an aggregator. A nil ladder means rank.Default().
func New(c Completions, p Participants, t Tenants, ladder rank.Ladder) *Aggregator {
	if len(ladder) == 0 {
		ladder = rank.Default()
	}
	return &Aggregator{completions: c, participants: p, tenants: t, ladder: ladder}
}

// Ladder returns the rank ladder in use.
func (a *Aggregator) Ladder() rank.Ladder { return a.ladder }

func (a *Aggregator) participant(id string) (roster.Participant, error) {
	p, ok := a.participants.Get(id)
	if !ok {
		return roster.Participant{}, roster.ErrUnknownParticipant
	}
	return p, nil
}

// TotalPoints sums the points captured on the participant's completions.
func (a *Aggregator) TotalPoints(ctx context.Context, participantID string) (int, error) {
	if _, err := a.participant(participantID); err != nil {
		return 0, err
	}
	cs, err := a.completions.ScanByParticipant(ctx, participantID)
	if err != nil {
		return 0, err
	}
	return sumPoints(cs), nil
}

func sumPoints(cs []ledger.Completion) int {
	total := 0
	for _, c := range cs {
		total += c.Points
	}
	return total
}

// Ratio is completed over eligible challenges in one strand.
type Ratio struct {
	Strand    int `json:"strand"`
	Completed int `json:"completed"`
	Eligible  int `json:"eligible"`
}

// StrandCompletionRatio counts the distinct eligible challenges of strand
// the participant has completed. Repeats count once.
func (a *Aggregator) StrandCompletionRatio(ctx context.Context, participantID string, strand int) (Ratio, error) {
	p, err := a.participant(participantID)
	if err != nil {
		return Ratio{}, err
	}
	cs, err := a.completions.ScanByParticipant(ctx, participantID)
	if err != nil {
		return Ratio{}, err
	}
	cfg := a.tenants.Resolve(p.TenantID)
	return strandRatio(cfg, p.Tier, completedSet(cs), strand), nil
}

func completedSet(cs []ledger.Completion) map[string]struct{} {
	done := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		done[c.ChallengeID] = struct{}{}
	}
	return done
}

func strandRatio(cfg tenant.Config, tier curriculum.Tier, done map[string]struct{}, strand int) Ratio {
	r := Ratio{Strand: strand}
	for _, ch := range cfg.Challenges {
		if ch.Strand != strand || !ch.EligibleFor(tier) {
			continue
		}
		r.Eligible++
		if _, ok := done[ch.ID]; ok {
			r.Completed++
		}
	}
	return r
}

// TeamTotals sums participant points per team within a tenant. Every team
// key is present.
func (a *Aggregator) TeamTotals(ctx context.Context, tenantID string) (map[curriculum.Team]int, error) {
	out := make(map[curriculum.Team]int, len(curriculum.Teams()))
	for _, t := range curriculum.Teams() {
		out[t] = 0
	}
	ps := a.participants.ListByTenant(tenantID)
	if len(ps) == 0 {
		return out, nil
	}
	team := make(map[string]curriculum.Team, len(ps))
	for _, p := range ps {
		team[p.ID] = p.Team
	}
	cs, err := a.completions.ScanByParticipants(ctx, roster.IDs(ps))
	if err != nil {
		return nil, err
	}
	for _, c := range cs {
		out[team[c.ParticipantID]] += c.Points
	}
	return out, nil
}

// StrandGroup is a strand with the challenges a participant may attempt.
type StrandGroup struct {
	Strand     curriculum.Strand      `json:"strand"`
	Challenges []curriculum.Challenge `json:"challenges"`
}

// EligibleChallenges lists enabled challenges matching the participant's
// tier, grouped by strand. Empty strands are omitted.
func (a *Aggregator) EligibleChallenges(ctx context.Context, participantID string) ([]StrandGroup, error) {
	p, err := a.participant(participantID)
	if err != nil {
		return nil, err
	}
	return eligibleGroups(a.tenants.Resolve(p.TenantID), p.Tier), nil
}

func eligibleGroups(cfg tenant.Config, tier curriculum.Tier) []StrandGroup {
	strands := append([]curriculum.Strand(nil), cfg.Strands...)
	sort.SliceStable(strands, func(i, j int) bool { return strands[i].Number < strands[j].Number })

	var out []StrandGroup
	for _, s := range strands {
		var chs []curriculum.Challenge
		for _, ch := range cfg.Challenges {
			if ch.Strand == s.Number && ch.EligibleFor(tier) {
				chs = append(chs, ch)
			}
		}
		if len(chs) > 0 {
			out = append(out, StrandGroup{Strand: s, Challenges: chs})
		}
	}
	return out
}

// Summary is the full progress card of one participant.
type Summary struct {
	Participant     roster.Participant `json:"participant"`
	TotalPoints     int                `json:"total_points"`
	Completions     int                `json:"completions"`
	Pledge          pledge.Status      `json:"pledge"`
	NextRank        *rank.Tier         `json:"next_rank,omitempty"`
	PointsToNext    int                `json:"points_to_next"`
	Strands         []Ratio            `json:"strands"`
	TenantID        string             `json:"tenant_id"`
	TeamDisplayName string             `json:"team_display_name"`
}

// Summary assembles points, rank, pledge state and strand ratios.
func (a *Aggregator) Summary(ctx context.Context, participantID string) (Summary, error) {
	p, err := a.participant(participantID)
	if err != nil {
		return Summary{}, err
	}
	cs, err := a.completions.ScanByParticipant(ctx, participantID)
	if err != nil {
		return Summary{}, err
	}
	cfg := a.tenants.Resolve(p.TenantID)
	points := sumPoints(cs)
	done := completedSet(cs)

	s := Summary{
		Participant:     p,
		TotalPoints:     points,
		Completions:     len(cs),
		Pledge:          pledge.StatusOf(p, points, a.ladder),
		TenantID:        cfg.ID,
		TeamDisplayName: cfg.TeamName(p.Team),
	}
	if next, ok := a.ladder.Next(points); ok {
		s.NextRank = &next
		s.PointsToNext = next.Threshold - points
	}
	for _, st := range cfg.Strands {
		s.Strands = append(s.Strands, strandRatio(cfg, p.Tier, done, st.Number))
	}
	sort.Slice(s.Strands, func(i, j int) bool { return s.Strands[i].Strand < s.Strands[j].Strand })
	return s, nil
}

// Standing is one leaderboard row.
type Standing struct {
	Position      int             `json:"position"`
	ParticipantID string          `json:"participant_id"`
	Name          string          `json:"name"`
	Team          curriculum.Team `json:"team"`
	Points        int             `json:"points"`
	Rank          rank.Tier       `json:"rank"`
}

// Standings ranks a tenant's participants by points, then by name.
// Equal points share a position.
func (a *Aggregator) Standings(ctx context.Context, tenantID string) ([]Standing, error) {
	ps := a.participants.ListByTenant(tenantID)
	cs, err := a.completions.ScanByParticipants(ctx, roster.IDs(ps))
	if err != nil {
		return nil, err
	}
	points := make(map[string]int, len(ps))
	for _, c := range cs {
		points[c.ParticipantID] += c.Points
	}

	roster.SortByName(ps)
	sort.SliceStable(ps, func(i, j int) bool { return points[ps[i].ID] > points[ps[j].ID] })

	out := make([]Standing, 0, len(ps))
	for i, p := range ps {
		pos := i + 1
		if i > 0 && points[p.ID] == out[i-1].Points {
			pos = out[i-1].Position
		}
		out = append(out, Standing{
			Position:      pos,
			ParticipantID: p.ID,
			Name:          p.Name,
			Team:          p.Team,
			Points:        points[p.ID],
			Rank:          a.ladder.Resolve(points[p.ID]),
		})
	}
	return out, nil
}
