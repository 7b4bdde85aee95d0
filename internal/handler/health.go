package handler

import (
	"net/http"
	"time"

	"listingsearch/internal/model"

	"github.com/gin-gonic/gin"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthHandler reports liveness and build information
type HealthHandler struct {
	backend         string
	dialect         model.Dialect
	similarityReady func() bool
	build           BuildInfo
}

// NewHealthHandler creates a health handler. similarityReady may be nil
// when similarity search is disabled.
func NewHealthHandler(backend string, dialect model.Dialect, similarityReady func() bool, build BuildInfo) *HealthHandler {
	return &HealthHandler{
		backend:         backend,
		dialect:         dialect,
		similarityReady: similarityReady,
		build:           build,
	}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ready := false
	if h.similarityReady != nil {
		ready = h.similarityReady()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"backend":          h.backend,
		"dialect":          string(h.dialect),
		"similarity_ready": ready,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}
