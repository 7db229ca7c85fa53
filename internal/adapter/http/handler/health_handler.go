package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NodePinger checks reachability of the WebDollar node.
type NodePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests. pool and redisClient may be
// nil when the corresponding backend is not configured.
type HealthHandler struct {
	pool        *pgxpool.Pool
	redisClient *redis.Client
	node        NodePinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, node NodePinger) *HealthHandler {
	return &HealthHandler{
		pool:        pool,
		redisClient: redisClient,
		node:        node,
	}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the service is ready to accept traffic. The node
// is reported but not required: payments can be created and webhooks
// accepted while the chain is briefly unreachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "postgres unhealthy", err.Error())
			return
		}
		status["postgres"] = "ok"
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unhealthy", err.Error())
			return
		}
		status["redis"] = "ok"
	}

	if h.node != nil {
		if err := h.node.Ping(ctx); err != nil {
			status["node"] = "unreachable"
		} else {
			status["node"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, status)
}
