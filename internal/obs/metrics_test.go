package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/v1/participants":                  "/v1/participants",
		"/v1/participants/01hx":             "/v1/participants/:id",
		"/v1/participants/01hx/summary":     "/v1/participants/:id/summary",
		"/v1/participants/01hx/completions": "/v1/participants/:id/completions",
		"/v1/tenants/school_default/teams":  "/v1/tenants/:id/teams",
		"/v1/tenants?lang=ar":               "/v1/tenants",
		"/v1/admin/tenants/st-mary/challenges/s1c1/enabled": "/v1/admin/tenants/:id/challenges/:id/enabled",
		"/v1/admin/tenants/st-mary/staff/ms-lee":            "/v1/admin/tenants/:id/staff/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentKeepsStatusAndFlusher(t *testing.T) {
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("instrumented writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/participants/:id", "418"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/participants/abc", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/participants/:id", "418"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(completionsTotal.WithLabelValues("t1"))
	ObserveCompletion("t1")
	if got := testutil.ToFloat64(completionsTotal.WithLabelValues("t1")); got-before != 1 {
		t.Fatalf("completion counter delta %v", got-before)
	}
	SetReady(true)
	if testutil.ToFloat64(ready) != 1 {
		t.Fatal("ready gauge not set")
	}
	SetReady(false)
	if testutil.ToFloat64(ready) != 0 {
		t.Fatal("ready gauge not cleared")
	}
	Init()
	Init()
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger("verbose", true); err == nil {
		t.Fatal("expected error for unknown level")
	}
	l, err := NewLogger("debug", false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	SetLogger(l)
	if Logger() != l {
		t.Fatal("SetLogger did not install logger")
	}
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("expected no-op logger")
	}
}
