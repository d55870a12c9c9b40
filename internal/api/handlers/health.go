package handlers

import (
	"net/http"

	"github.com/wonny/altsignals/pkg/database"
	"github.com/wonny/altsignals/pkg/logger"
)

// HealthHandler reports service and database health.
type HealthHandler struct {
	db     *database.DB
	logger *logger.Logger
}

func NewHealthHandler(db *database.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: log}
}

// Check reports liveness plus database reachability and pool stats.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status, err := h.db.HealthCheck(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "degraded",
			"service":  "altsignals-api",
			"database": status,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "altsignals-api",
		"database": status,
	})
}
