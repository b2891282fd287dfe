package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Stream handles Server-Sent Events for progress changes. ?tenant= limits
// the feed to one school.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	events := a.engine.Events()
	if events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant"))
	ch := events.Subscribe(ctx)

	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		if tenantID != "" && event.TenantID != tenantID {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("event: " + event.Kind + "\ndata: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
