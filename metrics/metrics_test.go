package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/post/list/unverified", "/api/post/list/unverified"},
		{"/api/post/123", "/api/post/{id}"},
		{"/api/x/0f8fad5b-d9cb-469f-a165-70867728950e", "/api/x/{id}"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMutationStatus(t *testing.T) {
	ok := MutationsTotal.WithLabelValues("posts", "approve", "ok")
	failed := MutationsTotal.WithLabelValues("posts", "approve", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	Mutation("posts", "approve", nil)
	Mutation("posts", "approve", errors.New("boom"))

	if got := testutil.ToFloat64(ok) - beforeOK; got != 1 {
		t.Errorf("ok delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestFetchStaleCountsBoth(t *testing.T) {
	stale := StaleResponsesTotal.WithLabelValues("notes")
	before := testutil.ToFloat64(stale)

	FetchStale("notes")
	FetchApplied("notes", "applied", 10*time.Millisecond)

	if got := testutil.ToFloat64(stale) - before; got != 1 {
		t.Errorf("stale delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(FetchesTotal.WithLabelValues("notes", "stale")); got < 1 {
		t.Errorf("fetches_total{outcome=stale} = %v, want >= 1", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	CacheLookup(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "modq_cache_requests_total") {
		t.Error("expected modq_cache_requests_total in exposition")
	}
}
