package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poserp/accounting/internal/infrastructure/persistence"
)

// HealthHandler exposes liveness and readiness probes
type HealthHandler struct {
	db *persistence.Database
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *persistence.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports service health including datastore connectivity
// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"
	dbStatus := "up"
	if err := h.db.Ping(); err != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
		dbStatus = "down"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
	})
}
