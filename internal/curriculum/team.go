package curriculum

import (
	"errors"
	"fmt"
	"strings"
)

// Team is a house affiliation. The set is fixed; tenants only rename them.
type Team string

const (
	TeamBaggins Team = "Baggins"
	TeamHood    Team = "Hood"
	TeamPoppins Team = "Poppins"
	TeamPotter  Team = "Potter"
)

var ErrInvalidTeam = errors.New("invalid team")

// Teams returns every team key in display order.
func Teams() []Team {
	return []Team{TeamBaggins, TeamHood, TeamPoppins, TeamPotter}
}

// ParseTeam matches a team key case-insensitively.
func ParseTeam(s string) (Team, error) {
	s = strings.TrimSpace(s)
	for _, t := range Teams() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTeam, s)
}

// Valid reports whether t is one of the canonical team keys.
func (t Team) Valid() bool {
	for _, k := range Teams() {
		if t == k {
			return true
		}
	}
	return false
}
