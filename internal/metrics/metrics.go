// Package metrics registers the application's Prometheus-format metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

var (
	CacheHits         = vm.NewCounter("booklook_cache_hits_total")
	CacheMisses       = vm.NewCounter("booklook_cache_misses_total")
	ReviewsRecomputed = vm.NewCounter("booklook_reviews_recomputed_total")
	TasksFailed       = vm.NewCounter("booklook_tasks_failed_total")
)

// ObserveRequest records one served HTTP request. route is the gin route
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, started time.Time) {
	if route == "" {
		route = "unmatched"
	}
	vm.GetOrCreateCounter(fmt.Sprintf(`booklook_http_requests_total{method=%q,route=%q,status="%d"}`, method, route, status)).Inc()
	vm.GetOrCreateHistogram(fmt.Sprintf(`booklook_http_request_duration_seconds{route=%q}`, route)).UpdateDuration(started)
}

// RequestCount returns the current value of the request counter for the labels.
func RequestCount(method, route string, status int) uint64 {
	return vm.GetOrCreateCounter(fmt.Sprintf(`booklook_http_requests_total{method=%q,route=%q,status="%d"}`, method, route, status)).Get()
}

// WritePrometheus writes every registered metric, including process metrics.
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, true)
}
