package httpapi

import (
	"net/http"
	"strings"
	"time"

	"netventure.org/internal/auth"
)

type unlockRequest struct {
	TenantID string `json:"tenant_id"`
	PIN      string `json:"pin"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleUnlock trades a tenant's admin PIN for a bearer token.
func (a *API) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		tenantID = a.engine.DefaultTenantID()
	}
	if strings.TrimSpace(req.PIN) == "" {
		writeError(w, r, http.StatusBadRequest, "pin is required")
		return
	}
	if len(req.PIN) > auth.MaxPINLength {
		writeError(w, r, http.StatusBadRequest, "pin too long")
		return
	}
	if !auth.SecretConfigured() {
		writeError(w, r, http.StatusServiceUnavailable, "admin tokens are not configured")
		return
	}

	token, exp, err := a.engine.IssueToken(r.Context(), tenantID, req.PIN, a.tokenTTL)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TenantID:  tenantID,
		ExpiresAt: exp,
	})
}
