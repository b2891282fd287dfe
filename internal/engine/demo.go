package engine

import (
	"context"
	"sort"
	"time"

	"netventure.org/internal/audit"
	"netventure.org/internal/curriculum"
	"netventure.org/internal/ids"
	"netventure.org/internal/ledger"
	"netventure.org/internal/roster"
	"netventure.org/internal/stream"
	"netventure.org/internal/tenant"
)

const demoReflection = "Completed this task during digital safety week."

type demoParticipant struct {
	id           string
	name         string
	year         int
	className    string
	team         curriculum.Team
	pledgeLevel  int
	lastPledgeXP int
}

var demoRoster = []demoParticipant{
	{"d1", "Zoe Explorer", 4, "4 Juniper Blue", curriculum.TeamPotter, 2, 400},
	{"d2", "Liam Scout", 2, "2 Beechwood", curriculum.TeamBaggins, 1, 150},
	{"d3", "Sarah Guardian", 9, "Year 9 Alpha", curriculum.TeamPoppins, 4, 1200},
	{"d4", "Amir Sentinel", 6, "6 Hawthorn", curriculum.TeamHood, 3, 800},
}

// SeedDemo replaces all state with four demo participants in the default
// tenant, each holding a random selection of eligible completions spread
// two days apart.
func (e *Engine) SeedDemo(ctx context.Context) ([]roster.Participant, error) {
	if err := e.authorizeGlobal(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := tenant.Default()
	now := e.now()
	var (
		ps []roster.Participant
		cs []ledger.Completion
	)
	for _, d := range demoRoster {
		p := roster.Participant{
			ID:           d.id,
			Name:         d.name,
			ClassName:    d.className,
			Team:         d.team,
			Year:         d.year,
			Tier:         curriculum.TierForYear(d.year),
			TenantID:     cfg.ID,
			PledgeLevel:  d.pledgeLevel,
			LastPledgeXP: d.lastPledgeXP,
			EnrolledAt:   now.UTC(),
		}
		ps = append(ps, p)

		idx := 0
		for _, ch := range cfg.Challenges {
			if !ch.EligibleFor(p.Tier) {
				continue
			}
			if e.rng.Float64() > 0.3 {
				at := now.Add(-time.Duration(idx) * 48 * time.Hour).UTC()
				c := ledger.Completion{
					ID:            ids.NewAt(at),
					ParticipantID: p.ID,
					ChallengeID:   ch.ID,
					Points:        ch.Points,
					Repeatable:    ch.Repeatable,
					CompletedAt:   at,
				}
				if p.Tier == curriculum.TierSecondary {
					c.Reflection = demoReflection
				}
				cs = append(cs, c)
			}
			idx++
		}
	}

	sort.SliceStable(cs, func(i, j int) bool { return cs[i].CompletedAt.Before(cs[j].CompletedAt) })
	for i := range cs {
		cs[i].Sequence = uint64(i + 1)
	}
	if err := e.reset(ctx, ps, cs); err != nil {
		return nil, err
	}

	e.publish(stream.Event{Kind: stream.KindReset, TenantID: cfg.ID})
	_ = audit.LogEvent(ctx, "admin.seed_demo", map[string]any{"participants": len(ps), "completions": len(cs)})
	return ps, nil
}
