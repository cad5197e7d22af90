package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var idPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|/\d+`)

// normalizePath replaces ids with {id} to keep label cardinality low.
func normalizePath(path string) string {
	return idPattern.ReplaceAllStringFunc(path, func(s string) string {
		if s[0] == '/' {
			return "/{id}"
		}
		return "{id}"
	})
}

// APIRequest records one completed board API call.
func APIRequest(method, path string, status int, elapsed time.Duration) {
	path = normalizePath(path)
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// CacheLookup records a response cache hit or miss.
func CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(result).Inc()
}

// FetchApplied records a page that reached the collection.
func FetchApplied(queue, outcome string, elapsed time.Duration) {
	FetchesTotal.WithLabelValues(queue, outcome).Inc()
	FetchDuration.WithLabelValues(queue).Observe(elapsed.Seconds())
}

// FetchStale records a response that was dropped on arrival.
func FetchStale(queue string) {
	FetchesTotal.WithLabelValues(queue, "stale").Inc()
	StaleResponsesTotal.WithLabelValues(queue).Inc()
}

// Mutation records an approve or reject.
func Mutation(queue, action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	MutationsTotal.WithLabelValues(queue, action, status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until the server fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
