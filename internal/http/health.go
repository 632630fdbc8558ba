package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booklook/internal/metrics"
)

// Pinger checks database connectivity. *database.Database implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db             Pinger
	version        string
	cacheBackend   string
	contentBackend string
}

func NewHealthController(db Pinger, version, cacheBackend, contentBackend string) *HealthController {
	return &HealthController{
		db:             db,
		version:        version,
		cacheBackend:   cacheBackend,
		contentBackend: contentBackend,
	}
}

// Status reports database reachability and the configured backends.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.cacheBackend != "" {
		checks["cache"] = h.cacheBackend
	}
	if h.contentBackend != "" {
		checks["content"] = h.contentBackend
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// Ping GET /ping
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Metrics serves the Prometheus exposition format.
// GET /metrics
func Metrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4")
	c.Status(http.StatusOK)
	metrics.WritePrometheus(c.Writer)
}
