package health

import (
	"context"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Status values reported by the health endpoint.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

const checkTimeout = 2 * time.Second

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PostgresChecker adapts a pgx pool to Checker interface.
type PostgresChecker struct {
	pool *pgxpool.Pool
}

// NewPostgresChecker creates a new Postgres health checker.
func NewPostgresChecker(pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{pool: pool}
}

// Ping acquires a connection and round-trips to the database.
func (p *PostgresChecker) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Handler handles health check operations.
type Handler struct {
	checks map[string]Checker
	names  []string
}

// NewHandler creates a new health handler over the named dependencies.
// Backends that are not configured are simply left out of checks.
func NewHandler(checks map[string]Checker) *Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}

	sort.Strings(names)

	return &Handler{checks: checks, names: names}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string            `doc:"ok when every dependency answers" example:"ok" json:"status"`
		Checks map[string]string `doc:"Per dependency state"              json:"checks"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = StatusOK
	resp.Body.Checks = make(map[string]string, len(h.names))

	for _, name := range h.names {
		pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checks[name].Ping(pingCtx)

		cancel()

		if err != nil {
			resp.Body.Checks[name] = StatusUnhealthy
			resp.Body.Status = StatusDegraded

			continue
		}

		resp.Body.Checks[name] = StatusHealthy
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"Operations"},
	}, h.Check)
}
