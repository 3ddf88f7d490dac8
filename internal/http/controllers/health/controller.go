// Package health serves the liveness/readiness probe.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/taskcal/taskcal/internal/cache"
	"github.com/taskcal/taskcal/internal/http/helpers"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// Pinger is anything that can confirm connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller handles GET /healthz.
type Controller struct {
	db    Pinger
	cache cache.Client
}

// New creates a Controller. Either dependency may be nil, in which case it
// is skipped.
func New(db Pinger, cacheClient cache.Client) *Controller {
	return &Controller{db: db, cache: cacheClient}
}

// Healthz reports the status of each dependency. Any failing dependency
// turns the response into a 503.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			logger.From(ctx).Warn("db ping failed", logger.Err(err))
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			logger.From(ctx).Warn("cache ping failed", logger.Err(err))
			checks["cache"] = "down"
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	helpers.WriteJSON(w, status, map[string]any{"status": state, "checks": checks})
}
