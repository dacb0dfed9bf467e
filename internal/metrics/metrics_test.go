package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveOperation(t *testing.T) {
	m := New("test")
	m.ObserveOperation("swap", "")
	m.ObserveOperation("swap", "SlippageTooHigh")
	m.ObserveOperation("swap", "SlippageTooHigh")

	if got := counterValue(t, m, "test_operations_total", map[string]string{"operation": "swap", "outcome": "ok"}); got != 1 {
		t.Fatalf("ok count = %v, want 1", got)
	}
	if got := counterValue(t, m, "test_operations_total", map[string]string{"outcome": "SlippageTooHigh"}); got != 2 {
		t.Fatalf("rejection count = %v, want 2", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveOperation("swap", "ok")
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/protocols/{address}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/v1/protocols/0xabc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	labels := map[string]string{"route": "/v1/protocols/{address}", "method": "GET", "status": "404"}
	if got := counterValue(t, m, "test_http_requests_total", labels); got != 1 {
		t.Fatalf("request count = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "test_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}
