package curriculum

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a curriculum level. Participants always hold one of the three
// concrete tiers; challenges may additionally target TierAll.
type Tier string

const (
	TierKS1       Tier = "ks1"
	TierKS2       Tier = "ks2"
	TierSecondary Tier = "secondary"
	TierAll       Tier = "all"
)

var ErrInvalidTier = errors.New("invalid tier")

// Tiers lists the participant tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierKS1, TierKS2, TierSecondary}
}

// TierForYear maps a year of study to its tier. Years 1-2 are ks1, 3-6 ks2
// and 7 upwards secondary. Anything else falls back to ks1.
func TierForYear(year int) Tier {
	switch {
	case year >= 7:
		return TierSecondary
	case year >= 3:
		return TierKS2
	default:
		return TierKS1
	}
}

// ParseTier accepts a tier name case-insensitively, including "all".
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TierKS1, TierKS2, TierSecondary, TierAll:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// Matches reports whether a challenge targeting t is open to a participant
// in tier p.
func (t Tier) Matches(p Tier) bool {
	return t == TierAll || t == p
}
