package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/vitrine/internal/db"
)

// HealthChecker reports the health of an optional dependency
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Cache    string                 `json:"cache"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *db.DB
	cache HealthChecker
}

// NewHealthHandler creates a new health check handler. cache may be nil.
func NewHealthHandler(database *db.DB, cache HealthChecker) *HealthHandler {
	return &HealthHandler{db: database, cache: cache}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Cache:   "disabled",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}

	// The probe cache only degrades performance, never correctness
	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			response.Status = "degraded"
			response.Cache = "unhealthy"
			response.Details["cache_error"] = err.Error()
		} else {
			response.Cache = "healthy"
		}
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, cache HealthChecker) {
	handler := NewHealthHandler(database, cache)
	apiGroup.GET("/health", handler.Check)
}
