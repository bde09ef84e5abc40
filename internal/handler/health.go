package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/pkg/response"
)

// DBPinger is satisfied by *sqlx.DB
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger is satisfied by *redis.Client
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// ChainHead is satisfied by *ethclient.Client
type ChainHead interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type HealthHandler struct {
	db      DBPinger
	redis   RedisPinger
	chain   ChainHead
	timeout time.Duration
}

// NewHealthHandler builds the liveness and readiness endpoints; a nil dependency is reported as disabled
func NewHealthHandler(db DBPinger, redis RedisPinger, chain ChainHead, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		db:      db,
		redis:   redis,
		chain:   chain,
		timeout: timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready checks database, redis and settlement RPC connectivity
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	record := func(name string, enabled bool, check func() error) {
		if !enabled {
			status.Checks[name] = "disabled"
			return
		}
		if err := check(); err != nil {
			status.Status = "error"
			status.Checks[name] = "failed: " + err.Error()
			return
		}
		status.Checks[name] = "ok"
	}

	record("database", h.db != nil, func() error { return h.db.PingContext(ctx) })
	record("redis", h.redis != nil, func() error { return h.redis.Ping(ctx).Err() })
	record("settlement", h.chain != nil, func() error {
		_, err := h.chain.BlockNumber(ctx)
		return err
	})

	if status.Status == "error" {
		response.ServiceUnavailable(w, "Service not ready", status)
		return
	}

	response.Success(w, status)
}
