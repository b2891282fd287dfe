package tenant

import (
	"errors"
	"fmt"
	"strings"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/validate"
)

var (
	ErrUnknownChallenge = errors.New("unknown challenge")
	ErrUnknownStrand    = errors.New("unknown strand")
	ErrNotFound         = errors.New("not found")
	ErrTenantExists     = errors.New("tenant already exists")
	ErrImmutableField   = errors.New("field cannot change once authored")
)

// Config is one school's configuration ("vault" entry).
type Config struct {
	ID             string                     `json:"id" yaml:"id"`
	Name           string                     `json:"name" yaml:"name"`
	LogoURL        string                     `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	ConcernFormURL string                     `json:"concern_form_url,omitempty" yaml:"concern_form_url,omitempty"`
	SupportEmail   string                     `json:"support_email,omitempty" yaml:"support_email,omitempty"`
	AdminPINHash   string                     `json:"admin_pin_hash" yaml:"admin_pin_hash"`
	TeamNames      map[curriculum.Team]string `json:"team_names" yaml:"team_names"`
	Staff          []curriculum.StaffMember   `json:"staff" yaml:"staff"`
	Strands        []curriculum.Strand        `json:"strands" yaml:"strands"`
	Challenges     []curriculum.Challenge     `json:"challenges" yaml:"challenges"`
	Glossary       []curriculum.GlossaryTerm  `json:"glossary" yaml:"glossary"`
	SupportLinks   []curriculum.SupportLink   `json:"support_links" yaml:"support_links"`
	Posters        []curriculum.Poster        `json:"posters" yaml:"posters"`
}

// Challenge looks up a challenge by id.
func (c Config) Challenge(id string) (curriculum.Challenge, bool) {
	for _, ch := range c.Challenges {
		if ch.ID == id {
			return ch, true
		}
	}
	return curriculum.Challenge{}, false
}

// Strand looks up a strand by number.
func (c Config) Strand(n int) (curriculum.Strand, bool) {
	for _, s := range c.Strands {
		if s.Number == n {
			return s, true
		}
	}
	return curriculum.Strand{}, false
}

// TeamName returns the tenant's display name for team, or the key itself.
func (c Config) TeamName(team curriculum.Team) string {
	if name := c.TeamNames[team]; name != "" {
		return name
	}
	return string(team)
}

// Clone returns a deep copy so edits never alias a catalog entry.
func (c Config) Clone() Config {
	out := c
	out.TeamNames = make(map[curriculum.Team]string, len(c.TeamNames))
	for k, v := range c.TeamNames {
		out.TeamNames[k] = v
	}
	out.Staff = append([]curriculum.StaffMember(nil), c.Staff...)
	out.Strands = append([]curriculum.Strand(nil), c.Strands...)
	out.Challenges = make([]curriculum.Challenge, len(c.Challenges))
	for i, ch := range c.Challenges {
		if ch.ReflectionPrompt != nil {
			p := *ch.ReflectionPrompt
			ch.ReflectionPrompt = &p
		}
		out.Challenges[i] = ch
	}
	out.Glossary = append([]curriculum.GlossaryTerm(nil), c.Glossary...)
	out.SupportLinks = append([]curriculum.SupportLink(nil), c.SupportLinks...)
	out.Posters = append([]curriculum.Poster(nil), c.Posters...)
	return out
}

// Validate checks a whole configuration, as loaded from an import or a
// hand-edited document, against the rules the edit functions enforce one
// change at a time.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return validate.Fieldf("id", "id is required")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return validate.Fieldf("name", "name is required")
	}
	if cfg.AdminPINHash == "" {
		return validate.Fieldf("admin_pin_hash", "admin_pin_hash is required")
	}
	if len(cfg.Strands) == 0 {
		return validate.Fieldf("strands", "at least one strand is required")
	}
	strands := make(map[int]bool, len(cfg.Strands))
	for i, s := range cfg.Strands {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("strands[%d]: %w", i, err)
		}
		if strands[s.Number] {
			return validate.Fieldf(fmt.Sprintf("strands[%d].number", i), fmt.Sprintf("duplicate strand %d", s.Number))
		}
		strands[s.Number] = true
	}
	seen := make(map[string]bool, len(cfg.Challenges))
	for i, ch := range cfg.Challenges {
		if err := validate.Struct(ch); err != nil {
			return fmt.Errorf("challenges[%d]: %w", i, err)
		}
		if seen[ch.ID] {
			return validate.Fieldf(fmt.Sprintf("challenges[%d].id", i), "duplicate challenge id "+ch.ID)
		}
		seen[ch.ID] = true
		if !strands[ch.Strand] {
			return fmt.Errorf("challenges[%d]: %w: %d", i, ErrUnknownStrand, ch.Strand)
		}
	}
	for i, l := range cfg.SupportLinks {
		if err := validate.Struct(l); err != nil {
			return fmt.Errorf("support_links[%d]: %w", i, err)
		}
	}
	for i, m := range cfg.Staff {
		if err := validate.Struct(m); err != nil {
			return fmt.Errorf("staff[%d]: %w", i, err)
		}
	}
	for team := range cfg.TeamNames {
		if !team.Valid() {
			return fmt.Errorf("team_names: %w: %q", curriculum.ErrInvalidTeam, team)
		}
	}
	return nil
}

// Catalog holds tenant configurations in order; the first is the default
// used whenever a lookup misses. Catalog is not safe for concurrent use.
type Catalog struct {
	configs []Config
}

// NewCatalog builds a catalog. With no configs it holds only Default().
func NewCatalog(cfgs ...Config) *Catalog {
	if len(cfgs) == 0 {
		cfgs = []Config{Default()}
	}
	c := &Catalog{configs: make([]Config, 0, len(cfgs))}
	for _, cfg := range cfgs {
		c.configs = append(c.configs, cfg.Clone())
	}
	return c
}

// Default returns the first configuration.
func (c *Catalog) Default() Config {
	return c.configs[0]
}

// Lookup finds a configuration by tenant id.
func (c *Catalog) Lookup(id string) (Config, bool) {
	for _, cfg := range c.configs {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return Config{}, false
}

// Resolve returns the configuration for id, falling back to the default.
// It never fails.
func (c *Catalog) Resolve(id string) Config {
	if cfg, ok := c.Lookup(id); ok {
		return cfg
	}
	return c.Default()
}

// Configs returns the configurations in catalog order.
func (c *Catalog) Configs() []Config {
	return append([]Config(nil), c.configs...)
}

// Len reports the number of tenants.
func (c *Catalog) Len() int { return len(c.configs) }

// Add appends a new tenant.
func (c *Catalog) Add(cfg Config) error {
	if _, ok := c.Lookup(cfg.ID); ok {
		return ErrTenantExists
	}
	c.configs = append(c.configs, cfg.Clone())
	return nil
}

// Put replaces the configuration with the same id.
func (c *Catalog) Put(cfg Config) error {
	for i := range c.configs {
		if c.configs[i].ID == cfg.ID {
			c.configs[i] = cfg.Clone()
			return nil
		}
	}
	return ErrNotFound
}
