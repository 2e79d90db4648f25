package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsCountsRequestsByRoute(t *testing.T) {
	metrics := NewHTTPMetrics()

	router := chi.NewRouter()
	router.Use(metrics.Middleware)
	router.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	mfs, err := metrics.registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got, err := fetchRequestCount(mfs, "GET", "/orders/{id}", "404")
	if err != nil {
		t.Fatalf("fetch request count: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var metrics *HTTPMetrics
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func fetchRequestCount(mfs []*dto.MetricFamily, method, route, status string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["method"] == method && labels["route"] == route && labels["status"] == status {
				return metric.GetCounter().GetValue(), nil
			}
		}
		return 0, fmt.Errorf("no series for %s %s %s", method, route, status)
	}
	return 0, fmt.Errorf("http_requests_total not found")
}
