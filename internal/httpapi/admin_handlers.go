package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/tenant"
)

type createTenantRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type strandRequest struct {
	Title curriculum.Text `json:"title"`
}

type teamNameRequest struct {
	Name string `json:"name"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (a *API) routeAdmin() {
	a.mux.HandleFunc("POST /v1/admin/unlock", a.handleUnlock)
	a.mux.HandleFunc("POST /v1/admin/tenants", a.createTenant)
	a.mux.HandleFunc("POST /v1/admin/import", a.importTenant)
	a.mux.HandleFunc("POST /v1/admin/reset", a.reset)
	a.mux.HandleFunc("POST /v1/admin/seed-demo", a.seedDemo)

	const t = "/v1/admin/tenants/{tenant}"
	a.mux.HandleFunc("GET "+t+"/export", a.exportTenant)
	a.mux.HandleFunc("PUT "+t+"/challenges/{id}", a.upsertChallenge)
	a.mux.HandleFunc("DELETE "+t+"/challenges/{id}", a.removeChallenge)
	a.mux.HandleFunc("PUT "+t+"/challenges/{id}/enabled", a.setChallengeEnabled)
	a.mux.HandleFunc("POST "+t+"/strands", a.addStrand)
	a.mux.HandleFunc("PUT "+t+"/strands/{n}", a.setStrandTitle)
	a.mux.HandleFunc("PUT "+t+"/support-links/{id}", a.upsertSupportLink)
	a.mux.HandleFunc("DELETE "+t+"/support-links/{id}", a.removeSupportLink)
	a.mux.HandleFunc("PUT "+t+"/staff/{id}", a.upsertStaff)
	a.mux.HandleFunc("DELETE "+t+"/staff/{id}", a.removeStaff)
	a.mux.HandleFunc("PUT "+t+"/identity", a.updateIdentity)
	a.mux.HandleFunc("PUT "+t+"/teams/{team}", a.setTeamName)
	a.mux.HandleFunc("PUT "+t+"/pin", a.changePIN)
}

// writeConfig answers an admin edit with the updated configuration.
func writeConfig(w http.ResponseWriter, code int, cfg tenant.Config) {
	cfg.AdminPINHash = ""
	writeJSON(w, code, cfg)
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.CreateTenant(r.Context(), req.Name, req.PIN)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/tenants/"+cfg.ID)
	writeConfig(w, http.StatusCreated, cfg)
}

func (a *API) importTenant(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.ImportTenant(r.Context(), body)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) exportTenant(w http.ResponseWriter, r *http.Request) {
	doc, err := a.engine.ExportTenant(r.Context(), r.PathValue("tenant"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Wipe(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func (a *API) seedDemo(w http.ResponseWriter, r *http.Request) {
	ps, err := a.engine.SeedDemo(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ps})
}

func (a *API) upsertChallenge(w http.ResponseWriter, r *http.Request) {
	var ch curriculum.Challenge
	if err := decodeJSON(w, r, &ch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	if ch.ID != "" && ch.ID != id {
		writeError(w, r, http.StatusBadRequest, "challenge id in body does not match path")
		return
	}
	ch.ID = id
	cfg, err := a.engine.UpsertChallenge(r.Context(), r.PathValue("tenant"), ch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) removeChallenge(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.engine.RemoveChallenge(r.Context(), r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) setChallengeEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.SetChallengeEnabled(r.Context(), r.PathValue("tenant"), r.PathValue("id"), req.Enabled)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) addStrand(w http.ResponseWriter, r *http.Request) {
	var req strandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.engine.AddStrand(r.Context(), r.PathValue("tenant"), req.Title)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) setStrandTitle(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		writeError(w, r, http.StatusBadRequest, "strand must be a positive integer")
		return
	}
	var req strandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.SetStrandTitle(r.Context(), r.PathValue("tenant"), n, req.Title)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) upsertSupportLink(w http.ResponseWriter, r *http.Request) {
	var link curriculum.SupportLink
	if err := decodeJSON(w, r, &link); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	link.ID = r.PathValue("id")
	cfg, err := a.engine.UpsertSupportLink(r.Context(), r.PathValue("tenant"), link)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) removeSupportLink(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.engine.RemoveSupportLink(r.Context(), r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) upsertStaff(w http.ResponseWriter, r *http.Request) {
	var m curriculum.StaffMember
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m.ID = r.PathValue("id")
	cfg, err := a.engine.UpsertStaff(r.Context(), r.PathValue("tenant"), m)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) removeStaff(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.engine.RemoveStaff(r.Context(), r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) updateIdentity(w http.ResponseWriter, r *http.Request) {
	var id tenant.Identity
	if err := decodeJSON(w, r, &id); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.UpdateIdentity(r.Context(), r.PathValue("tenant"), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) setTeamName(w http.ResponseWriter, r *http.Request) {
	team, err := curriculum.ParseTeam(r.PathValue("team"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req teamNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.engine.SetTeamName(r.Context(), r.PathValue("tenant"), team, req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeConfig(w, http.StatusOK, cfg)
}

func (a *API) changePIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.engine.ChangePIN(r.Context(), r.PathValue("tenant"), req.PIN); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
