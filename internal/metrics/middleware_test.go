package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/queue/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Delete("/v1/queue/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req := httptest.NewRequest(method, "/v1/queue/7", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("expected one GET 200, got %f", val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("DELETE", "404")); val != 1 {
		t.Errorf("expected one DELETE 404, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val != 2 {
		t.Errorf("expected two route series, got %d", val)
	}
}
