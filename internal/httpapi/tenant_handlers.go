package httpapi

import (
	"net/http"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/tenant"
)

func (a *API) routeTenants() {
	a.mux.HandleFunc("GET /v1/tenants", a.listTenants)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}", a.getTenant)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/challenges", a.tenantChallenges)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/glossary", a.tenantGlossary)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/posters", a.tenantPosters)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/support", a.tenantSupport)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/standings", a.tenantStandings)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/teams", a.tenantTeams)
	a.mux.HandleFunc("GET /v1/tenants/{tenant}/compliance", a.tenantCompliance)
}

// tenant resolves the {tenant} path value. Unknown ids are 404 here; only
// enrollment falls back to the default tenant.
func (a *API) tenant(w http.ResponseWriter, r *http.Request) (tenant.Config, bool) {
	cfg, err := a.engine.Tenant(r.PathValue("tenant"))
	if err != nil {
		handleError(w, r, err)
		return tenant.Config{}, false
	}
	return cfg, true
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	lang := negotiateLang(r)
	cfgs := a.engine.Tenants()
	out := make([]tenantView, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, viewTenant(cfg, lang))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) getTenant(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewTenant(cfg, negotiateLang(r)))
}

// tenantChallenges lists the catalog grouped by strand. ?tier= narrows it to
// what a participant of that tier could complete.
func (a *API) tenantChallenges(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	var tier curriculum.Tier
	if q := r.URL.Query().Get("tier"); q != "" {
		t, err := curriculum.ParseTier(q)
		if err != nil {
			handleError(w, r, err)
			return
		}
		tier = t
	}

	lang := negotiateLang(r)
	out := make([]strandView, 0, len(cfg.Strands))
	for _, s := range cfg.Strands {
		sv := strandView{Number: s.Number, Title: s.Title.In(lang)}
		for _, ch := range cfg.Challenges {
			if ch.Strand != s.Number {
				continue
			}
			if tier != "" && !ch.EligibleFor(tier) {
				continue
			}
			sv.Challenges = append(sv.Challenges, viewChallenge(ch, lang))
		}
		out = append(out, sv)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant_id": cfg.ID, "strands": out})
}

func (a *API) tenantGlossary(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	tier := curriculum.TierKS2
	if q := r.URL.Query().Get("tier"); q != "" {
		t, err := curriculum.ParseTier(q)
		if err != nil {
			handleError(w, r, err)
			return
		}
		tier = t
	}
	lang := negotiateLang(r)
	out := make([]glossaryView, 0, len(cfg.Glossary))
	for _, g := range cfg.Glossary {
		out = append(out, glossaryView{
			ID:         g.ID,
			Strand:     g.Strand,
			Term:       g.Term.In(lang),
			Definition: g.Definition(tier).In(lang),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) tenantPosters(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	lang := negotiateLang(r)
	out := make([]posterView, 0, len(cfg.Posters))
	for _, p := range cfg.Posters {
		out = append(out, posterView{
			ID:          p.ID,
			Title:       p.Title.In(lang),
			Category:    p.Category,
			ImageURL:    p.ImageURL,
			FamilyQuest: p.FamilyQuest.In(lang),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) tenantSupport(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	lang := negotiateLang(r)
	out := make([]supportView, 0, len(cfg.SupportLinks))
	for _, l := range cfg.SupportLinks {
		out = append(out, supportView{
			ID:          l.ID,
			Name:        l.Name.In(lang),
			Description: l.Description.In(lang),
			Phone:       l.Phone,
			URL:         l.URL,
			IconName:    l.IconName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":            out,
		"staff":            cfg.Staff,
		"concern_form_url": cfg.ConcernFormURL,
		"support_email":    cfg.SupportEmail,
	})
}

func (a *API) tenantStandings(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	rows, err := a.engine.Standings(r.Context(), cfg.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant_id": cfg.ID, "items": rows})
}

type teamTotal struct {
	Team   curriculum.Team `json:"team"`
	Name   string          `json:"name"`
	Points int             `json:"points"`
}

func (a *API) tenantTeams(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.tenant(w, r)
	if !ok {
		return
	}
	totals, err := a.engine.TeamTotals(r.Context(), cfg.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]teamTotal, 0, len(totals))
	for _, t := range curriculum.Teams() {
		out = append(out, teamTotal{Team: t, Name: cfg.TeamName(t), Points: totals[t]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant_id": cfg.ID, "items": out})
}

func (a *API) tenantCompliance(w http.ResponseWriter, r *http.Request) {
	report, err := a.engine.Compliance(r.PathValue("tenant"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
