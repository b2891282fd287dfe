package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/ledger"
	"netventure.org/internal/rank"
	"netventure.org/internal/roster"
	"netventure.org/internal/tenant"
)

type fixture struct {
	ledger  *ledger.InMemory
	roster  *roster.Roster
	catalog *tenant.Catalog
	agg     *Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:  ledger.NewInMemory(),
		roster:  roster.NewRoster(),
		catalog: tenant.NewCatalog(),
	}
	f.agg = New(f.ledger, f.roster, f.catalog, nil)
	return f
}

func (f *fixture) enroll(t *testing.T, id string, year int, team curriculum.Team, tenantID string) roster.Participant {
	t.Helper()
	p, err := roster.New(id, roster.EnrollInput{Name: "Child " + id, Year: year, Team: team, TenantID: tenantID}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.roster.Add(p))
	return p
}

func (f *fixture) log(t *testing.T, pid, cid string) {
	t.Helper()
	ch, ok := f.catalog.Default().Challenge(cid)
	require.True(t, ok, cid)
	_, err := f.ledger.Append(context.Background(), ledger.Entry{
		ParticipantID: pid,
		ChallengeID:   cid,
		Points:        ch.Points,
		Repeatable:    ch.Repeatable,
	})
	require.NoError(t, err)
}

func TestTotalPointsUsesCapturedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "p1", 4, curriculum.TeamPotter, tenant.DefaultID)
	f.log(t, "p1", "s1c2") // 30 points, ks2

	cfg := f.catalog.Default().Clone()
	for i := range cfg.Challenges {
		if cfg.Challenges[i].ID == "s1c2" {
			cfg.Challenges[i].Points = 99
		}
	}
	require.NoError(t, f.catalog.Put(cfg))

	total, err := f.agg.TotalPoints(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 30, total)

	_, err = f.agg.TotalPoints(ctx, "ghost")
	assert.ErrorIs(t, err, roster.ErrUnknownParticipant)
}

func TestStrandRatioDedupesRepeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "p1", 4, curriculum.TeamHood, tenant.DefaultID) // ks2

	// s5c1 is repeatable and open to ks1; s5c2 is repeatable ks2.
	f.log(t, "p1", "s5c2")
	f.log(t, "p1", "s5c2")

	r, err := f.agg.StrandCompletionRatio(ctx, "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Completed)
	eligible := 0
	for _, ch := range f.catalog.Default().Challenges {
		if ch.Strand == 5 && ch.EligibleFor(curriculum.TierKS2) {
			eligible++
		}
	}
	assert.Equal(t, eligible, r.Eligible)

	total, _ := f.agg.TotalPoints(ctx, "p1")
	assert.Equal(t, 100, total)
}

func TestStrandRatioIgnoresIneligibleCompletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "p1", 4, curriculum.TeamHood, tenant.DefaultID)
	f.log(t, "p1", "s1c2")

	cfg, err := tenant.SetChallengeEnabled(f.catalog.Default(), "s1c2", false)
	require.NoError(t, err)
	require.NoError(t, f.catalog.Put(cfg))

	r, err := f.agg.StrandCompletionRatio(ctx, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Completed)
}

func TestTeamTotalsAlwaysHasEveryTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	totals, err := f.agg.TeamTotals(ctx, tenant.DefaultID)
	require.NoError(t, err)
	require.Len(t, totals, 4)
	for _, team := range curriculum.Teams() {
		assert.Equal(t, 0, totals[team])
	}

	f.enroll(t, "a", 2, curriculum.TeamBaggins, tenant.DefaultID)
	f.enroll(t, "b", 4, curriculum.TeamBaggins, tenant.DefaultID)
	f.enroll(t, "c", 9, curriculum.TeamPotter, tenant.DefaultID)
	f.enroll(t, "x", 9, curriculum.TeamPotter, "other-school")
	f.log(t, "a", "s1c1")
	f.log(t, "b", "s1c2")
	f.log(t, "c", "s1c3")
	f.log(t, "x", "s1c3")

	totals, err = f.agg.TeamTotals(ctx, tenant.DefaultID)
	require.NoError(t, err)
	assert.Equal(t, 60, totals[curriculum.TeamBaggins])
	assert.Equal(t, 55, totals[curriculum.TeamPotter])
	assert.Equal(t, 0, totals[curriculum.TeamHood])

	sum := 0
	for _, v := range totals {
		sum += v
	}
	individual := 0
	for _, id := range []string{"a", "b", "c"} {
		p, _ := f.agg.TotalPoints(ctx, id)
		individual += p
	}
	assert.Equal(t, individual, sum)
}

func TestEligibleChallengesGroupedByStrand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "p1", 1, curriculum.TeamPoppins, tenant.DefaultID) // ks1

	groups, err := f.agg.EligibleChallenges(ctx, "p1")
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	prev := 0
	for _, g := range groups {
		assert.Greater(t, g.Strand.Number, prev)
		prev = g.Strand.Number
		require.NotEmpty(t, g.Challenges)
		for _, ch := range g.Challenges {
			assert.True(t, ch.Enabled)
			assert.True(t, ch.Level == curriculum.TierKS1 || ch.Level == curriculum.TierAll, ch.ID)
			assert.Equal(t, g.Strand.Number, ch.Strand)
		}
	}
}

func TestEligibleChallengesOmitsEmptyStrands(t *testing.T) {
	f := newFixture(t)
	cfg := f.catalog.Default()
	for _, ch := range cfg.Challenges {
		if ch.Strand == 2 {
			var err error
			cfg, err = tenant.SetChallengeEnabled(cfg, ch.ID, false)
			require.NoError(t, err)
		}
	}
	require.NoError(t, f.catalog.Put(cfg))
	f.enroll(t, "p1", 8, curriculum.TeamHood, tenant.DefaultID)

	groups, err := f.agg.EligibleChallenges(context.Background(), "p1")
	require.NoError(t, err)
	for _, g := range groups {
		assert.NotEqual(t, 2, g.Strand.Number)
	}
}

func TestUnknownTenantFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "p1", 5, curriculum.TeamHood, "closed-school")

	groups, err := f.agg.EligibleChallenges(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, groups)

	s, err := f.agg.Summary(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, tenant.DefaultID, s.TenantID)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "p1", 9, curriculum.TeamPotter, tenant.DefaultID)
	for _, id := range []string{"s1c3", "s1c4", "s2c4"} { // 55 + 40 + 70
		f.log(t, "p1", id)
	}

	s, err := f.agg.Summary(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 165, s.TotalPoints)
	assert.Equal(t, 3, s.Completions)
	assert.Equal(t, 1, s.Pledge.Rank.Level)
	assert.True(t, s.Pledge.NeedsReaffirmation)
	require.NotNil(t, s.NextRank)
	assert.Equal(t, 2, s.NextRank.Level)
	assert.Equal(t, 135, s.PointsToNext)
	require.Len(t, s.Strands, 8)
	assert.Equal(t, 2, s.Strands[0].Completed)
	assert.Equal(t, "Potter", s.TeamDisplayName)
}

func TestStandings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "a", 9, curriculum.TeamHood, tenant.DefaultID)
	f.enroll(t, "b", 9, curriculum.TeamPotter, tenant.DefaultID)
	f.enroll(t, "c", 9, curriculum.TeamPotter, tenant.DefaultID)
	f.log(t, "b", "s2c4") // 70
	f.log(t, "a", "s1c3") // 55
	f.log(t, "c", "s1c3") // 55

	rows, err := f.agg.Standings(ctx, tenant.DefaultID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[0].ParticipantID)
	assert.Equal(t, 1, rows[0].Position)
	assert.Equal(t, "a", rows[1].ParticipantID)
	assert.Equal(t, 2, rows[1].Position)
	assert.Equal(t, "c", rows[2].ParticipantID)
	assert.Equal(t, 2, rows[2].Position)
}

func TestCustomLadder(t *testing.T) {
	l, err := rank.NewLadder([]rank.Tier{{Level: 0}, {Level: 1, Threshold: 20, Title: "Starter"}})
	require.NoError(t, err)
	f := newFixture(t)
	f.agg = New(f.ledger, f.roster, f.catalog, l)
	f.enroll(t, "p1", 1, curriculum.TeamHood, tenant.DefaultID)
	f.log(t, "p1", "s1c1")

	s, err := f.agg.Summary(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Starter", s.Pledge.Rank.Title)
	assert.Nil(t, s.NextRank)
}
