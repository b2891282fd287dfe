// Package legacy converts between the records the browser app kept in
// localStorage and the engine's own types.
package legacy

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/ledger"
	"netventure.org/internal/roster"
	"netventure.org/internal/tenant"
)

// Child is a browser roster record.
type Child struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClassName    string `json:"className"`
	House        string `json:"house"`
	Level        string `json:"level"`
	Year         int    `json:"year"`
	PledgeSigned bool   `json:"pledgeSigned"`
	SchoolID     string `json:"schoolId"`
	PledgeLevel  int    `json:"pledgeLevel"`
	LastPledgeXP int    `json:"lastPledgeXP"`
}

// Completion is a browser ledger record. Timestamp is Unix milliseconds.
type Completion struct {
	ChildID     string `json:"childId"`
	ChallengeID string `json:"challengeId"`
	Timestamp   int64  `json:"timestamp"`
	Points      int    `json:"points"`
	Reflection  string `json:"reflection,omitempty"`
}

type Challenge struct {
	ID               string           `json:"id"`
	Title            curriculum.Text  `json:"title"`
	Description      curriculum.Text  `json:"description"`
	Points           int              `json:"points"`
	Strand           int              `json:"strand"`
	Repeatable       bool             `json:"repeatable"`
	Level            string           `json:"level"`
	Theme            string           `json:"theme"`
	IconName         string           `json:"iconName"`
	ReflectionPrompt *curriculum.Text `json:"reflectionPrompt,omitempty"`
	Enabled          *bool            `json:"enabled,omitempty"`
}

type GlossaryItem struct {
	ID                  string          `json:"id"`
	Term                curriculum.Text `json:"term"`
	Level               int             `json:"level"`
	Strand              int             `json:"strand"`
	PrimaryDefinition   curriculum.Text `json:"primaryDefinition"`
	SecondaryDefinition curriculum.Text `json:"secondaryDefinition"`
}

type Poster struct {
	ID          string          `json:"id"`
	Title       curriculum.Text `json:"title"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	FamilyQuest curriculum.Text `json:"familyQuest"`
}

type SupportLink struct {
	ID          string          `json:"id"`
	Name        curriculum.Text `json:"name"`
	Description curriculum.Text `json:"description"`
	Phone       string          `json:"phone,omitempty"`
	URL         string          `json:"url"`
	IconName    string          `json:"iconName"`
}

type TeamMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// MasterConfig is a browser school vault entry. Strands are positional:
// strand n is Strands[n-1].
type MasterConfig struct {
	ID             string            `json:"id"`
	SchoolName     string            `json:"schoolName"`
	LogoURL        string            `json:"logoUrl,omitempty"`
	ConcernFormURL string            `json:"concernFormUrl"`
	SupportEmail   string            `json:"supportEmail"`
	AdminPINHash   string            `json:"adminPinHash"`
	HouseNames     map[string]string `json:"houseNames"`
	Team           []TeamMember      `json:"team"`
	Challenges     []Challenge       `json:"challenges"`
	Glossary       []GlossaryItem    `json:"glossary"`
	Posters        []Poster          `json:"posters"`
	SupportLinks   []SupportLink     `json:"supportLinks"`
	Strands        []curriculum.Text `json:"strands"`
}

// Marker fields that only appear in browser records.
const (
	RosterMarker  = "schoolId"
	LedgerMarker  = "childId"
	CatalogMarker = "schoolName"
)

// Detect reports whether the first element of the JSON array raw carries
// marker, i.e. whether raw is in the browser layout.
func Detect(raw []byte, marker string) bool {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &items); err != nil || len(items) == 0 {
		return false
	}
	_, ok := items[0][marker]
	return ok
}

// Participants converts browser children. Records with an unknown house are
// skipped; a missing level is derived from the year.
func Participants(cs []Child) []roster.Participant {
	out := make([]roster.Participant, 0, len(cs))
	for _, c := range cs {
		team, err := curriculum.ParseTeam(c.House)
		if err != nil || strings.TrimSpace(c.ID) == "" {
			continue
		}
		tier, err := curriculum.ParseTier(c.Level)
		if err != nil || tier == curriculum.TierAll {
			tier = curriculum.TierForYear(c.Year)
		}
		out = append(out, roster.Participant{
			ID:           c.ID,
			Name:         c.Name,
			ClassName:    c.ClassName,
			Team:         team,
			Year:         c.Year,
			Tier:         tier,
			TenantID:     c.SchoolID,
			PledgeLevel:  c.PledgeLevel,
			LastPledgeXP: c.LastPledgeXP,
		})
	}
	return out
}

// Children converts participants back to browser records.
func Children(ps []roster.Participant) []Child {
	out := make([]Child, 0, len(ps))
	for _, p := range ps {
		out = append(out, Child{
			ID:           p.ID,
			Name:         p.Name,
			ClassName:    p.ClassName,
			House:        string(p.Team),
			Level:        string(p.Tier),
			Year:         p.Year,
			PledgeSigned: true,
			SchoolID:     p.TenantID,
			PledgeLevel:  p.PledgeLevel,
			LastPledgeXP: p.LastPledgeXP,
		})
	}
	return out
}

// RepeatableFunc reports whether a challenge may be logged more than once
// by a participant. Browser records do not carry the flag.
type RepeatableFunc func(participantID, challengeID string) bool

// Completions converts browser completions, numbering them in array order.
func Completions(cs []Completion, repeatable RepeatableFunc) []ledger.Completion {
	out := make([]ledger.Completion, 0, len(cs))
	for i, c := range cs {
		rep := false
		if repeatable != nil {
			rep = repeatable(c.ChildID, c.ChallengeID)
		}
		out = append(out, ledger.Completion{
			ParticipantID: c.ChildID,
			ChallengeID:   c.ChallengeID,
			Points:        c.Points,
			Reflection:    c.Reflection,
			Repeatable:    rep,
			CompletedAt:   time.UnixMilli(c.Timestamp).UTC(),
			Sequence:      uint64(i + 1),
		})
	}
	return out
}

// FromCompletions converts ledger records back to browser records.
func FromCompletions(cs []ledger.Completion) []Completion {
	out := make([]Completion, 0, len(cs))
	for _, c := range cs {
		out = append(out, Completion{
			ChildID:     c.ParticipantID,
			ChallengeID: c.ChallengeID,
			Timestamp:   c.CompletedAt.UnixMilli(),
			Points:      c.Points,
			Reflection:  c.Reflection,
		})
	}
	return out
}

// Configs converts browser vault entries.
func Configs(ms []MasterConfig) []tenant.Config {
	out := make([]tenant.Config, 0, len(ms))
	for _, m := range ms {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		cfg := tenant.Config{
			ID:             m.ID,
			Name:           m.SchoolName,
			LogoURL:        m.LogoURL,
			ConcernFormURL: m.ConcernFormURL,
			SupportEmail:   m.SupportEmail,
			AdminPINHash:   m.AdminPINHash,
			TeamNames:      make(map[curriculum.Team]string, len(m.HouseNames)),
		}
		for k, v := range m.HouseNames {
			if team, err := curriculum.ParseTeam(k); err == nil {
				cfg.TeamNames[team] = v
			}
		}
		for _, t := range m.Team {
			cfg.Staff = append(cfg.Staff, curriculum.StaffMember{ID: t.ID, Name: t.Name, Role: t.Role})
		}
		for i, s := range m.Strands {
			cfg.Strands = append(cfg.Strands, curriculum.Strand{Number: i + 1, Title: s})
		}
		for _, c := range m.Challenges {
			level, err := curriculum.ParseTier(c.Level)
			if err != nil {
				continue
			}
			cfg.Challenges = append(cfg.Challenges, curriculum.Challenge{
				ID:               c.ID,
				Strand:           c.Strand,
				Title:            c.Title,
				Description:      c.Description,
				Points:           c.Points,
				Repeatable:       c.Repeatable,
				Level:            level,
				Theme:            c.Theme,
				IconName:         c.IconName,
				ReflectionPrompt: c.ReflectionPrompt,
				Enabled:          c.Enabled == nil || *c.Enabled,
			})
		}
		for _, g := range m.Glossary {
			cfg.Glossary = append(cfg.Glossary, curriculum.GlossaryTerm{
				ID:                  g.ID,
				Strand:              g.Strand,
				Level:               g.Level,
				Term:                g.Term,
				PrimaryDefinition:   g.PrimaryDefinition,
				SecondaryDefinition: g.SecondaryDefinition,
			})
		}
		for _, p := range m.Posters {
			cfg.Posters = append(cfg.Posters, curriculum.Poster{
				ID: p.ID, Title: p.Title, Category: p.Category, ImageURL: p.ImageURL, FamilyQuest: p.FamilyQuest,
			})
		}
		for _, l := range m.SupportLinks {
			cfg.SupportLinks = append(cfg.SupportLinks, curriculum.SupportLink{
				ID: l.ID, Name: l.Name, Description: l.Description, Phone: l.Phone, URL: l.URL, IconName: l.IconName,
			})
		}
		out = append(out, cfg)
	}
	return out
}

// MasterConfigs converts tenant configurations back to browser vault
// entries. Strands are written positionally in number order; the browser
// layout cannot represent gaps in strand numbering.
func MasterConfigs(cfgs []tenant.Config) []MasterConfig {
	out := make([]MasterConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		m := MasterConfig{
			ID:             cfg.ID,
			SchoolName:     cfg.Name,
			LogoURL:        cfg.LogoURL,
			ConcernFormURL: cfg.ConcernFormURL,
			SupportEmail:   cfg.SupportEmail,
			AdminPINHash:   cfg.AdminPINHash,
			HouseNames:     make(map[string]string, len(cfg.TeamNames)),
			Team:           []TeamMember{},
			Challenges:     []Challenge{},
			Glossary:       []GlossaryItem{},
			Posters:        []Poster{},
			SupportLinks:   []SupportLink{},
			Strands:        []curriculum.Text{},
		}
		for k, v := range cfg.TeamNames {
			m.HouseNames[string(k)] = v
		}
		for _, s := range cfg.Staff {
			m.Team = append(m.Team, TeamMember{ID: s.ID, Name: s.Name, Role: s.Role})
		}
		strands := append([]curriculum.Strand(nil), cfg.Strands...)
		sort.Slice(strands, func(i, j int) bool { return strands[i].Number < strands[j].Number })
		for _, s := range strands {
			m.Strands = append(m.Strands, s.Title)
		}
		for _, c := range cfg.Challenges {
			enabled := c.Enabled
			m.Challenges = append(m.Challenges, Challenge{
				ID:               c.ID,
				Title:            c.Title,
				Description:      c.Description,
				Points:           c.Points,
				Strand:           c.Strand,
				Repeatable:       c.Repeatable,
				Level:            string(c.Level),
				Theme:            c.Theme,
				IconName:         c.IconName,
				ReflectionPrompt: c.ReflectionPrompt,
				Enabled:          &enabled,
			})
		}
		for _, g := range cfg.Glossary {
			m.Glossary = append(m.Glossary, GlossaryItem{
				ID: g.ID, Term: g.Term, Level: g.Level, Strand: g.Strand,
				PrimaryDefinition: g.PrimaryDefinition, SecondaryDefinition: g.SecondaryDefinition,
			})
		}
		for _, p := range cfg.Posters {
			m.Posters = append(m.Posters, Poster{
				ID: p.ID, Title: p.Title, Category: p.Category, ImageURL: p.ImageURL, FamilyQuest: p.FamilyQuest,
			})
		}
		for _, l := range cfg.SupportLinks {
			m.SupportLinks = append(m.SupportLinks, SupportLink{
				ID: l.ID, Name: l.Name, Description: l.Description, Phone: l.Phone, URL: l.URL, IconName: l.IconName,
			})
		}
		out = append(out, m)
	}
	return out
}
