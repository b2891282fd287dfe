package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/ledger"
	"netventure.org/internal/pledge"
	"netventure.org/internal/progress"
	"netventure.org/internal/roster"
)

type enrollRequest struct {
	Name      string `json:"name"`
	Year      int    `json:"year"`
	Team      string `json:"team"`
	ClassName string `json:"class_name"`
	TenantID  string `json:"tenant_id"`
}

type completionRequest struct {
	ChallengeID string `json:"challenge_id"`
	Reflection  string `json:"reflection"`
}

type listCompletionsResponse struct {
	Items       []ledger.Completion `json:"items"`
	TotalPoints int                 `json:"total_points"`
	AsOf        time.Time           `json:"as_of"`
}

type eligibleResponse struct {
	ParticipantID string           `json:"participant_id"`
	Strands       []strandView     `json:"strands"`
	Ratios        []progress.Ratio `json:"ratios"`
	Completed     map[string]int   `json:"completed"`
}

func (a *API) routeParticipants() {
	a.mux.HandleFunc("POST /v1/participants", a.enroll)
	a.mux.HandleFunc("GET /v1/participants", a.listParticipants)
	a.mux.HandleFunc("GET /v1/participants/{id}", a.getParticipant)
	a.mux.HandleFunc("GET /v1/participants/{id}/summary", a.participantSummary)
	a.mux.HandleFunc("GET /v1/participants/{id}/challenges", a.participantChallenges)
	a.mux.HandleFunc("GET /v1/participants/{id}/completions", a.listCompletions)
	a.mux.HandleFunc("POST /v1/participants/{id}/completions", a.logCompletion)
	a.mux.HandleFunc("POST /v1/participants/{id}/reaffirm", a.reaffirm)
}

func (a *API) enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.engine.Enroll(r.Context(), roster.EnrollInput{
		Name:      req.Name,
		Year:      req.Year,
		Team:      curriculum.Team(req.Team),
		ClassName: req.ClassName,
		TenantID:  req.TenantID,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/participants/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listParticipants(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant"))
	ps := a.engine.Participants(tenantID)
	if ps == nil {
		ps = []roster.Participant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ps})
}

func (a *API) getParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := a.engine.Participant(r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) participantSummary(w http.ResponseWriter, r *http.Request) {
	s, err := a.engine.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// participantChallenges lists what the participant may complete, with how
// many times each was already logged.
func (a *API) participantChallenges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	groups, err := a.engine.EligibleChallenges(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	hist, err := a.engine.History(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	lang := negotiateLang(r)
	resp := eligibleResponse{
		ParticipantID: id,
		Strands:       make([]strandView, 0, len(groups)),
		Completed:     make(map[string]int),
	}
	for _, c := range hist {
		resp.Completed[c.ChallengeID]++
	}
	for _, g := range groups {
		sv := strandView{Number: g.Strand.Number, Title: g.Strand.Title.In(lang)}
		for _, ch := range g.Challenges {
			sv.Challenges = append(sv.Challenges, viewChallenge(ch, lang))
		}
		resp.Strands = append(resp.Strands, sv)

		ratio, err := a.engine.StrandCompletionRatio(ctx, id, g.Strand.Number)
		if err != nil {
			handleError(w, r, err)
			return
		}
		resp.Ratios = append(resp.Ratios, ratio)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) listCompletions(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 0, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	hist, err := a.engine.History(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	total := 0
	for _, c := range hist {
		total += c.Points
	}
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	if hist == nil {
		hist = []ledger.Completion{}
	}
	writeJSON(w, http.StatusOK, listCompletionsResponse{Items: hist, TotalPoints: total, AsOf: time.Now().UTC()})
}

func (a *API) logCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ChallengeID) == "" {
		writeError(w, r, http.StatusBadRequest, "challenge_id is required")
		return
	}
	if len(req.Reflection) > 4000 {
		writeError(w, r, http.StatusBadRequest, "reflection too long")
		return
	}

	out, err := a.engine.LogCompletion(r.Context(), r.PathValue("id"), strings.TrimSpace(req.ChallengeID), req.Reflection)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type reaffirmResponse struct {
	Changed bool          `json:"changed"`
	Pledge  pledge.Status `json:"pledge"`
}

func (a *API) reaffirm(w http.ResponseWriter, r *http.Request) {
	st, changed, err := a.engine.Reaffirm(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reaffirmResponse{Changed: changed, Pledge: st})
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, fmt.Errorf("limit must be between %d and %d", min, max)
	}
	return val, nil
}
