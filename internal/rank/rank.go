package rank

import (
	"errors"
	"fmt"
)

// Tier is one rung of the rank ladder.
type Tier struct {
	Level     int    `json:"level" yaml:"level"`
	Threshold int    `json:"threshold" yaml:"threshold"`
	Title     string `json:"title" yaml:"title"`
}

// Ladder is ordered by level; levels and thresholds strictly increase and
// the first rung is level 0 at threshold 0.
type Ladder []Tier

var ErrInvalidLadder = errors.New("invalid rank ladder")

var defaultLadder = Ladder{
	{Level: 0, Threshold: 0, Title: "Digital Novice"},
	{Level: 1, Threshold: 100, Title: "Safety Scout"},
	{Level: 2, Threshold: 300, Title: "Web Warden"},
	{Level: 3, Threshold: 600, Title: "Cyber Sentinel"},
	{Level: 4, Threshold: 1000, Title: "Guardian"},
	{Level: 5, Threshold: 2000, Title: "Master Guardian"},
}

// Default returns a copy of the standard six-rung ladder.
func Default() Ladder {
	out := make(Ladder, len(defaultLadder))
	copy(out, defaultLadder)
	return out
}

// NewLadder validates tiers and returns them as a Ladder.
func NewLadder(tiers []Tier) (Ladder, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLadder)
	}
	if tiers[0].Level != 0 || tiers[0].Threshold != 0 {
		return nil, fmt.Errorf("%w: first tier must be level 0 at threshold 0", ErrInvalidLadder)
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Level <= tiers[i-1].Level || tiers[i].Threshold <= tiers[i-1].Threshold {
			return nil, fmt.Errorf("%w: tier %d does not increase", ErrInvalidLadder, tiers[i].Level)
		}
	}
	out := make(Ladder, len(tiers))
	copy(out, tiers)
	return out, nil
}

// Resolve returns the highest tier whose threshold is at or below points.
func (l Ladder) Resolve(points int) Tier {
	for i := len(l) - 1; i >= 0; i-- {
		if points >= l[i].Threshold {
			return l[i]
		}
	}
	if len(l) == 0 {
		return Tier{}
	}
	return l[0]
}

// Next returns the tier after the one points resolves to. ok is false at
// the top of the ladder.
func (l Ladder) Next(points int) (next Tier, ok bool) {
	for _, t := range l {
		if t.Threshold > points {
			return t, true
		}
	}
	return Tier{}, false
}

// Resolve maps points onto the default ladder.
func Resolve(points int) Tier {
	return defaultLadder.Resolve(points)
}
