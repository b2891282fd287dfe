package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nv_ready",
		Help: "1 when state is loaded and the storage backend answers.",
	})

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nv_completions_total",
			Help: "Challenge completions recorded.",
		},
		[]string{"tenant"},
	)

	duplicateCompletionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nv_duplicate_completions_total",
		Help: "Completions rejected because a non-repeatable challenge was already logged.",
	})

	reaffirmationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nv_reaffirmations_total",
		Help: "Pledge reaffirmations accepted.",
	})

	persistFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nv_persist_failures_total",
			Help: "Failed saves by storage key.",
		},
		[]string{"key"},
	)

	backupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nv_backups_total",
			Help: "Scheduled backups by result.",
		},
		[]string{"result"},
	)

	initOnce sync.Once
)

// Init registers all collectors in the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			ready, completionsTotal, duplicateCompletionsTotal,
			reaffirmationsTotal, persistFailuresTotal, backupsTotal,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

func ObserveCompletion(tenantID string) { completionsTotal.WithLabelValues(tenantID).Inc() }

func ObserveDuplicateCompletion() { duplicateCompletionsTotal.Inc() }

func ObserveReaffirmation() { reaffirmationsTotal.Inc() }

func ObservePersistFailure(key string) { persistFailuresTotal.WithLabelValues(key).Inc() }

func ObserveBackup(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	backupsTotal.WithLabelValues(result).Inc()
}

// Instrument records in-flight count, totals and latency per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// collections are path segments followed by an identifier.
var collections = map[string]struct{}{
	"participants":  {},
	"tenants":       {},
	"challenges":    {},
	"strands":       {},
	"support-links": {},
	"staff":         {},
}

// CanonicalPath replaces identifiers with :id so metric label cardinality
// stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	segs := strings.Split(p, "/")
	for i := 1; i < len(segs); i++ {
		if _, ok := collections[segs[i-1]]; ok {
			segs[i] = ":id"
			i++
		}
	}
	return "/" + strings.Join(segs, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
