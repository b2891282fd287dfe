package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"netventure.org/internal/auth"
	"netventure.org/internal/curriculum"
	"netventure.org/internal/engine"
	"netventure.org/internal/ledger"
	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
	"netventure.org/internal/roster"
	"netventure.org/internal/tenant"
	"netventure.org/internal/validate"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleError maps engine and domain errors onto status codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"fields":     verr.Fields,
			"request_id": RequestIDFromContext(r.Context()),
		})
	case errors.Is(err, curriculum.ErrInvalidTeam), errors.Is(err, curriculum.ErrInvalidTier),
		errors.Is(err, ledger.ErrInvalidEntry), errors.Is(err, tenant.ErrBadDocument):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidPIN), errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="netventure"`)
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrLocked):
		if _, ok := auth.PrincipalFromContext(r.Context()); ok {
			writeError(w, r, http.StatusForbidden, "token does not grant access to this tenant")
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="netventure"`)
		writeError(w, r, http.StatusUnauthorized, "admin unlock required")
	case errors.Is(err, roster.ErrUnknownParticipant), errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, tenant.ErrUnknownChallenge), errors.Is(err, tenant.ErrUnknownStrand):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateCompletion), errors.Is(err, tenant.ErrTenantExists),
		errors.Is(err, roster.ErrDuplicateID), errors.Is(err, tenant.ErrImmutableField):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrChallengeNotEligible), errors.Is(err, engine.ErrReflectionRequired):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, persist.ErrStorageUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		obs.Logger().Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}
