package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serveRoute(h http.Handler, method, target string) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec.Code
}

func TestMiddlewareCountsStatusCodes(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Patch("/accepted", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Patch("/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	accepted := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPatch, "202"))
	ok := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPatch, "200"))

	serveRoute(r, http.MethodPatch, "/accepted")
	serveRoute(r, http.MethodPatch, "/accepted")
	serveRoute(r, http.MethodPatch, "/implicit")

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPatch, "202")) - accepted; got != 2 {
		t.Errorf("expected 2 PATCH 202 requests, got %f", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPatch, "200")) - ok; got != 1 {
		t.Errorf("expected implicit status to count as 200, got %f", got)
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Put("/snapshots/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.CollectAndCount(httpRequestDurationSeconds)
	for _, target := range []string{"/snapshots/1", "/snapshots/2", "/snapshots/3"} {
		if code := serveRoute(r, http.MethodPut, target); code != http.StatusNoContent {
			t.Fatalf("unexpected status %d for %s", code, target)
		}
	}
	if got := testutil.CollectAndCount(httpRequestDurationSeconds) - before; got != 1 {
		t.Errorf("expected one new series for the route pattern, got %d", got)
	}
}
