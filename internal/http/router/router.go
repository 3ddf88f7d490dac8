// Package router assembles the chi router: middleware chain, public
// callback route and the bearer-protected API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskcal/taskcal/internal/http/controllers/events"
	"github.com/taskcal/taskcal/internal/http/controllers/health"
	"github.com/taskcal/taskcal/internal/http/controllers/integrations"
	"github.com/taskcal/taskcal/internal/http/controllers/todos"
	httperrors "github.com/taskcal/taskcal/internal/http/errors"
	"github.com/taskcal/taskcal/internal/http/middlewares"
	"github.com/taskcal/taskcal/internal/metrics"
)

// Deps carries everything the router mounts.
type Deps struct {
	Integrations *integrations.Controller
	Todos        *todos.Controller
	Events       *events.Controller
	Health       *health.Controller

	// Handler for GET /metrics, from metrics.Register. Nil disables the route.
	Metrics http.Handler

	JWTSecret      string
	AllowedOrigins []string
}

// New builds the router.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRecover)
	r.Use(middlewares.WithRequestID)
	r.Use(middlewares.WithCORS(d.AllowedOrigins))
	r.Use(metrics.WithMetrics)
	r.Use(middlewares.WithAccessLog)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, req, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, req, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// The OAuth callback is hit by a browser redirect from Google, so it
	// cannot carry a bearer token.
	r.Get("/integrations/google/callback", d.Integrations.Callback)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewares.RequireAuth(d.JWTSecret))

		api.Route("/integrations/google", func(g chi.Router) {
			g.Get("/", d.Integrations.Status)
			g.Delete("/", d.Integrations.Revoke)
			g.Get("/connect", d.Integrations.Connect)
			g.Get("/calendars", d.Integrations.Calendars)
			g.Get("/events", d.Integrations.Events)
		})

		api.Route("/todos", func(t chi.Router) {
			t.Get("/", d.Todos.List)
			t.Post("/", d.Todos.Create)
			t.Get("/{id}", d.Todos.Get)
			t.Put("/{id}", d.Todos.Update)
			t.Delete("/{id}", d.Todos.Delete)
		})

		api.Route("/events", func(e chi.Router) {
			e.Get("/", d.Events.List)
			e.Post("/", d.Events.Create)
			e.Get("/{id}", d.Events.Get)
			e.Put("/{id}", d.Events.Update)
			e.Delete("/{id}", d.Events.Delete)
		})
	})

	return r
}
