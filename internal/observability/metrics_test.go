package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuthzDecisionCounter(t *testing.T) {
	m := NewMetrics()
	m.AuthzDecision("permission", "allowed")
	m.AuthzDecision("permission", "allowed")
	m.AuthzDecision("permission", "denied")

	if got := testutil.ToFloat64(m.authzDecisions.WithLabelValues("permission", "allowed")); got != 2 {
		t.Fatalf("expected 2 allowed decisions, got %v", got)
	}
	if got := testutil.ToFloat64(m.authzDecisions.WithLabelValues("permission", "denied")); got != 1 {
		t.Fatalf("expected 1 denied decision, got %v", got)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.AuthzDecision("permission", "allowed")
	m.RoleChange("assign")
	m.JobRun("task", "ok")
	if m.Middleware(nil) != nil {
		t.Fatal("nil metrics middleware should pass the handler through unchanged")
	}
	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", res.Code)
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/ping", "200")); got != 1 {
		t.Fatalf("expected 1 recorded request, got %v", got)
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if scrape.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics endpoint, got %d", scrape.Code)
	}
	if !strings.Contains(scrape.Body.String(), "mycrm_http_requests_total") {
		t.Fatal("expected request counter in scrape output")
	}
}
