package handler

import (
	"net/http"
	"time"

	"shepherd-api/pkg/database"
	"shepherd-api/pkg/logger"
	"shepherd-api/pkg/redis"
)

// HealthHandler reports the liveness of the service and its backends.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *redis.Client
	log   *logger.Logger
}

func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, log: log}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"service": "ok",
	}
	healthy := true

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.log.WithError(err).Warn("Database health check failed")
			status["database"] = "unavailable"
			healthy = false
		} else {
			status["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			h.log.WithError(err).Warn("Redis health check failed")
			status["redis"] = "degraded"
			// Redis is a cache; its loss degrades but does not fail the service.
		} else {
			status["redis"] = "ok"
		}
	}

	status["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
