package tenant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/validate"
)

// Edits return a modified copy and leave the input untouched.

// UpsertChallenge adds ch or replaces the challenge with the same id.
// Completions already logged keep the points they captured. The strand of
// an existing challenge is fixed, since completions do not record it.
func UpsertChallenge(cfg Config, ch curriculum.Challenge) (Config, error) {
	ch.ID = strings.TrimSpace(ch.ID)
	if err := validate.Struct(ch); err != nil {
		return cfg, err
	}
	if _, ok := cfg.Strand(ch.Strand); !ok {
		return cfg, fmt.Errorf("%w: %d", ErrUnknownStrand, ch.Strand)
	}
	out := cfg.Clone()
	for i := range out.Challenges {
		if out.Challenges[i].ID == ch.ID {
			if out.Challenges[i].Strand != ch.Strand {
				return cfg, fmt.Errorf("%w: strand of challenge %s", ErrImmutableField, ch.ID)
			}
			out.Challenges[i] = ch
			return out, nil
		}
	}
	out.Challenges = append(out.Challenges, ch)
	return out, nil
}

// RemoveChallenge deletes a challenge from the catalog.
func RemoveChallenge(cfg Config, id string) (Config, error) {
	out := cfg.Clone()
	for i := range out.Challenges {
		if out.Challenges[i].ID == id {
			out.Challenges = append(out.Challenges[:i], out.Challenges[i+1:]...)
			return out, nil
		}
	}
	return cfg, fmt.Errorf("%w: %s", ErrUnknownChallenge, id)
}

// SetChallengeEnabled toggles a challenge without touching its content.
func SetChallengeEnabled(cfg Config, id string, enabled bool) (Config, error) {
	out := cfg.Clone()
	for i := range out.Challenges {
		if out.Challenges[i].ID == id {
			out.Challenges[i].Enabled = enabled
			return out, nil
		}
	}
	return cfg, fmt.Errorf("%w: %s", ErrUnknownChallenge, id)
}

// SetStrandTitle renames strand n.
func SetStrandTitle(cfg Config, n int, title curriculum.Text) (Config, error) {
	if err := validate.Struct(title); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	for i := range out.Strands {
		if out.Strands[i].Number == n {
			out.Strands[i].Title = title
			return out, nil
		}
	}
	return cfg, fmt.Errorf("%w: %d", ErrUnknownStrand, n)
}

// AddStrand appends a strand numbered after the current highest.
func AddStrand(cfg Config, title curriculum.Text) (Config, curriculum.Strand, error) {
	if err := validate.Struct(title); err != nil {
		return cfg, curriculum.Strand{}, err
	}
	next := 1
	for _, s := range cfg.Strands {
		if s.Number >= next {
			next = s.Number + 1
		}
	}
	s := curriculum.Strand{Number: next, Title: title}
	out := cfg.Clone()
	out.Strands = append(out.Strands, s)
	return out, s, nil
}

// UpsertSupportLink adds or replaces a helpline entry.
func UpsertSupportLink(cfg Config, link curriculum.SupportLink) (Config, error) {
	if err := validate.Struct(link); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	for i := range out.SupportLinks {
		if out.SupportLinks[i].ID == link.ID {
			out.SupportLinks[i] = link
			return out, nil
		}
	}
	out.SupportLinks = append(out.SupportLinks, link)
	return out, nil
}

// RemoveSupportLink deletes a helpline entry.
func RemoveSupportLink(cfg Config, id string) (Config, error) {
	out := cfg.Clone()
	for i := range out.SupportLinks {
		if out.SupportLinks[i].ID == id {
			out.SupportLinks = append(out.SupportLinks[:i], out.SupportLinks[i+1:]...)
			return out, nil
		}
	}
	return cfg, fmt.Errorf("support link %s: %w", id, ErrNotFound)
}

// UpsertStaff adds or replaces a safeguarding contact.
func UpsertStaff(cfg Config, m curriculum.StaffMember) (Config, error) {
	if err := validate.Struct(m); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	for i := range out.Staff {
		if out.Staff[i].ID == m.ID {
			out.Staff[i] = m
			return out, nil
		}
	}
	out.Staff = append(out.Staff, m)
	return out, nil
}

// RemoveStaff deletes a safeguarding contact.
func RemoveStaff(cfg Config, id string) (Config, error) {
	out := cfg.Clone()
	for i := range out.Staff {
		if out.Staff[i].ID == id {
			out.Staff = append(out.Staff[:i], out.Staff[i+1:]...)
			return out, nil
		}
	}
	return cfg, fmt.Errorf("staff member %s: %w", id, ErrNotFound)
}

// Identity is the school branding and contact block.
type Identity struct {
	Name           string `json:"name" validate:"notblank,max=120"`
	LogoURL        string `json:"logo_url" validate:"omitempty,url"`
	ConcernFormURL string `json:"concern_form_url" validate:"max=512"`
	SupportEmail   string `json:"support_email" validate:"omitempty,email"`
}

// UpdateIdentity replaces the branding and contact block.
func UpdateIdentity(cfg Config, id Identity) (Config, error) {
	if err := validate.Struct(id); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	out.Name = strings.TrimSpace(id.Name)
	out.LogoURL = id.LogoURL
	out.ConcernFormURL = id.ConcernFormURL
	out.SupportEmail = id.SupportEmail
	return out, nil
}

// SetTeamName sets the display name of a team.
func SetTeamName(cfg Config, team curriculum.Team, name string) (Config, error) {
	if !team.Valid() {
		return cfg, fmt.Errorf("%w: %q", curriculum.ErrInvalidTeam, team)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return cfg, validate.Fieldf("name", "name cannot be blank")
	}
	out := cfg.Clone()
	out.TeamNames[team] = name
	return out, nil
}

// SetPINHash replaces the admin credential hash.
func SetPINHash(cfg Config, hash string) Config {
	out := cfg.Clone()
	out.AdminPINHash = hash
	return out
}

// NewTenant creates a tenant named name carrying the default curriculum.
// Its id is a slug of the name made unique within c.
func NewTenant(c *Catalog, name, pinHash string) (Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Config{}, validate.Fieldf("name", "name cannot be blank")
	}
	base := slug.Make(name)
	if base == "" {
		base = "school"
	}
	id := base
	for n := 2; ; n++ {
		if _, taken := c.Lookup(id); !taken {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}

	cfg := Default()
	cfg.ID = id
	cfg.Name = name
	cfg.AdminPINHash = pinHash
	cfg.LogoURL = ""
	return cfg, nil
}

// Check is one line of a compliance report.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Report summarises whether a tenant's catalog meets the curriculum baseline.
type Report struct {
	TenantID string  `json:"tenant_id"`
	Passed   bool    `json:"passed"`
	Checks   []Check `json:"checks"`
}

const (
	MinGlossaryTerms = 10
	MinChallenges    = 32
)

// Compliance evaluates cfg against the curriculum checklist.
func Compliance(cfg Config) Report {
	r := Report{TenantID: cfg.ID}
	add := func(name string, ok bool, detail string) {
		r.Checks = append(r.Checks, Check{Name: name, Passed: ok, Detail: detail})
	}

	add("glossary", len(cfg.Glossary) >= MinGlossaryTerms,
		fmt.Sprintf("%d of %d terms", len(cfg.Glossary), MinGlossaryTerms))
	add("challenges", len(cfg.Challenges) >= MinChallenges,
		fmt.Sprintf("%d of %d challenges", len(cfg.Challenges), MinChallenges))

	var gaps []string
	for _, s := range cfg.Strands {
		for _, t := range curriculum.Tiers() {
			covered := false
			for _, ch := range cfg.Challenges {
				if ch.Strand == s.Number && ch.EligibleFor(t) {
					covered = true
					break
				}
			}
			if !covered {
				gaps = append(gaps, fmt.Sprintf("strand %d/%s", s.Number, t))
			}
		}
	}
	sort.Strings(gaps)
	detail := "every strand has an enabled challenge for every tier"
	if len(gaps) > 0 {
		detail = "missing: " + strings.Join(gaps, ", ")
	}
	add("strand_coverage", len(gaps) == 0, detail)

	add("support_email", cfg.SupportEmail != "", cfg.SupportEmail)
	add("concern_form", cfg.ConcernFormURL != "", cfg.ConcernFormURL)
	add("support_links", len(cfg.SupportLinks) > 0, fmt.Sprintf("%d links", len(cfg.SupportLinks)))

	r.Passed = true
	for _, c := range r.Checks {
		if !c.Passed {
			r.Passed = false
		}
	}
	return r
}
