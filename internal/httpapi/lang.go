package httpapi

import (
	"net/http"

	"golang.org/x/text/language"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/tenant"
)

var (
	supported = []language.Tag{language.English, language.Arabic}
	matcher   = language.NewMatcher(supported)
)

// negotiateLang picks "en" or "ar" from ?lang= first, then Accept-Language.
func negotiateLang(r *http.Request) string {
	var prefs []language.Tag
	if q := r.URL.Query().Get("lang"); q != "" {
		if t, err := language.Parse(q); err == nil {
			prefs = append(prefs, t)
		}
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		if tags, _, err := language.ParseAcceptLanguage(h); err == nil {
			prefs = append(prefs, tags...)
		}
	}
	if len(prefs) == 0 {
		return "en"
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return "en"
	}
	base, _ := supported[idx].Base()
	return base.String()
}

type challengeView struct {
	ID               string          `json:"id"`
	Strand           int             `json:"strand"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Points           int             `json:"points"`
	Repeatable       bool            `json:"repeatable"`
	Level            curriculum.Tier `json:"level"`
	Theme            string          `json:"theme,omitempty"`
	IconName         string          `json:"icon_name,omitempty"`
	ReflectionPrompt string          `json:"reflection_prompt,omitempty"`
	Enabled          bool            `json:"enabled"`
}

func viewChallenge(ch curriculum.Challenge, lang string) challengeView {
	v := challengeView{
		ID:          ch.ID,
		Strand:      ch.Strand,
		Title:       ch.Title.In(lang),
		Description: ch.Description.In(lang),
		Points:      ch.Points,
		Repeatable:  ch.Repeatable,
		Level:       ch.Level,
		Theme:       ch.Theme,
		IconName:    ch.IconName,
		Enabled:     ch.Enabled,
	}
	if ch.ReflectionPrompt != nil {
		v.ReflectionPrompt = ch.ReflectionPrompt.In(lang)
	}
	return v
}

type strandView struct {
	Number     int             `json:"number"`
	Title      string          `json:"title"`
	Challenges []challengeView `json:"challenges,omitempty"`
}

type glossaryView struct {
	ID         string `json:"id"`
	Strand     int    `json:"strand"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type posterView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
	FamilyQuest string `json:"family_quest"`
}

type supportView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone,omitempty"`
	URL         string `json:"url"`
	IconName    string `json:"icon_name,omitempty"`
}

// tenantView is the public face of a tenant; the PIN hash never leaves the
// admin surface.
type tenantView struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	LogoURL        string                     `json:"logo_url,omitempty"`
	ConcernFormURL string                     `json:"concern_form_url,omitempty"`
	SupportEmail   string                     `json:"support_email,omitempty"`
	TeamNames      map[curriculum.Team]string `json:"team_names"`
	Staff          []curriculum.StaffMember   `json:"staff"`
	Strands        []strandView               `json:"strands"`
}

func viewTenant(cfg tenant.Config, lang string) tenantView {
	v := tenantView{
		ID:             cfg.ID,
		Name:           cfg.Name,
		LogoURL:        cfg.LogoURL,
		ConcernFormURL: cfg.ConcernFormURL,
		SupportEmail:   cfg.SupportEmail,
		TeamNames:      make(map[curriculum.Team]string, 4),
		Staff:          cfg.Staff,
	}
	for _, t := range curriculum.Teams() {
		v.TeamNames[t] = cfg.TeamName(t)
	}
	for _, s := range cfg.Strands {
		v.Strands = append(v.Strands, strandView{Number: s.Number, Title: s.Title.In(lang)})
	}
	return v
}
