// Package httpapi exposes the engine over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"netventure.org/internal/auth"
	"netventure.org/internal/engine"
	"netventure.org/internal/obs"
)

const serviceName = "netventure-api"

// Options tune the HTTP layer. Zero values fall back to sensible defaults.
type Options struct {
	Version     string
	RatePerSec  int
	RateBurst   int
	CORSOrigins []string
	TokenTTL    time.Duration
}

// API is the HTTP layer over the engine.
type API struct {
	mux        *http.ServeMux
	engine     *engine.Engine
	version    string
	ratePerSec int
	rateBurst  int
	origins    []string
	tokenTTL   time.Duration
}

func New(eng *engine.Engine, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		engine:     eng,
		version:    opts.Version,
		ratePerSec: opts.RatePerSec,
		rateBurst:  opts.RateBurst,
		origins:    opts.CORSOrigins,
		tokenTTL:   opts.TokenTTL,
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}
	if a.tokenTTL <= 0 {
		a.tokenTTL = 30 * time.Minute
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.routeTenants()
	a.routeParticipants()
	a.routeAdmin()
	a.mux.HandleFunc("GET /v1/events", a.Stream)

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.engine.Ready(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         serviceName,
		"time":         time.Now().UTC().Format(time.RFC3339),
		"version":      a.version,
		"tenants":      len(a.engine.Tenants()),
		"ranks":        a.engine.Ladder(),
		"admin_tokens": auth.SecretConfigured(),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
