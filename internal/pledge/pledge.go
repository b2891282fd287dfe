// Package pledge implements the reaffirmation cycle: whenever a
// participant's rank climbs past the level they last pledged at, they must
// reaffirm before the new level counts as acknowledged.
//
// The pending state is never stored. It is recomputed from the points total
// so it cannot drift from the ledger.
package pledge

import (
	"netventure.org/internal/rank"
	"netventure.org/internal/roster"
)

// NeedsReaffirmation reports whether points resolve to a rank above the
// participant's pledged level.
func NeedsReaffirmation(p roster.Participant, points int, ladder rank.Ladder) bool {
	return ladder.Resolve(points).Level > p.PledgeLevel
}

// Reaffirm moves the pledge to the current rank level and points snapshot.
// When no reaffirmation is needed it returns p unchanged and false.
func Reaffirm(p roster.Participant, points int, ladder rank.Ladder) (roster.Participant, bool) {
	if !NeedsReaffirmation(p, points, ladder) {
		return p, false
	}
	p.PledgeLevel = ladder.Resolve(points).Level
	p.LastPledgeXP = points
	return p, true
}

// Status is the pledge view of one participant.
type Status struct {
	Rank               rank.Tier `json:"rank"`
	PledgeLevel        int       `json:"pledge_level"`
	LastPledgeXP       int       `json:"last_pledge_xp"`
	NeedsReaffirmation bool      `json:"needs_reaffirmation"`
}

// StatusOf derives the pledge view.
func StatusOf(p roster.Participant, points int, ladder rank.Ladder) Status {
	return Status{
		Rank:               ladder.Resolve(points),
		PledgeLevel:        p.PledgeLevel,
		LastPledgeXP:       p.LastPledgeXP,
		NeedsReaffirmation: NeedsReaffirmation(p, points, ladder),
	}
}
