package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := RequestCount("GET", "/books/:id", 200)

	ObserveRequest("GET", "/books/:id", 200, time.Now().Add(-15*time.Millisecond))
	ObserveRequest("GET", "/books/:id", 200, time.Now())

	assert.Equal(t, before+2, RequestCount("GET", "/books/:id", 200))
}

func TestWritePrometheus(t *testing.T) {
	ObserveRequest("POST", "/books/:id/reviews", 201, time.Now())
	CacheHits.Inc()

	var buf bytes.Buffer
	WritePrometheus(&buf)

	out := buf.String()
	assert.Contains(t, out, `booklook_http_requests_total{method="POST",route="/books/:id/reviews",status="201"}`)
	assert.Contains(t, out, "booklook_http_request_duration_seconds_bucket")
	assert.Contains(t, out, "booklook_cache_hits_total")
}
