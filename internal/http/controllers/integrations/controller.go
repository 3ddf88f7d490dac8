// Package integrations exposes the Google Calendar connection endpoints:
// the OAuth dance, connection status and the read-only calendar proxy.
package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httperrors "github.com/taskcal/taskcal/internal/http/errors"
	"github.com/taskcal/taskcal/internal/http/helpers"
	"github.com/taskcal/taskcal/internal/http/middlewares"
	"github.com/taskcal/taskcal/internal/integration"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// Controller handles /api/integrations/google and the public callback.
type Controller struct {
	flow     *integration.FlowService
	calendar *integration.CalendarService

	// Browser landing page after the OAuth dance finishes.
	frontendURL string
}

// New creates a Controller.
func New(flow *integration.FlowService, calendar *integration.CalendarService, frontendURL string) *Controller {
	return &Controller{flow: flow, calendar: calendar, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Connect handles GET /api/integrations/google/connect: mints a state nonce
// and sends the browser to Google's consent screen.
func (c *Controller) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	authURL, err := c.flow.Start(ctx, userID)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /integrations/google/callback. It is the only public
// integration route: the user's identity comes from the consumed state
// nonce, not from a bearer token. The browser always ends up back on the
// frontend, with the outcome in the query string.
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("integrations.Callback"))

	q := r.URL.Query()
	state := strings.TrimSpace(q.Get("state"))
	code := strings.TrimSpace(q.Get("code"))

	// The user declining consent arrives as ?error=access_denied.
	if provErr := strings.TrimSpace(q.Get("error")); provErr != "" {
		log.Warn("provider returned error", logger.String("error", provErr))
		c.redirectResult(w, r, "error")
		return
	}

	if _, err := c.flow.Callback(ctx, state, code); err != nil {
		log.Warn("callback failed", logger.Err(err))
		switch {
		case errors.Is(err, integration.ErrInvalidState):
			c.redirectResult(w, r, "error_state")
		default:
			c.redirectResult(w, r, "error")
		}
		return
	}

	c.redirectResult(w, r, "connected")
}

func (c *Controller) redirectResult(w http.ResponseWriter, r *http.Request, result string) {
	http.Redirect(w, r, c.frontendURL+"/?google="+url.QueryEscape(result), http.StatusFound)
}

// Revoke handles DELETE /api/integrations/google. ?purge=true removes the
// credential row instead of stamping it revoked.
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	if err := c.flow.Revoke(ctx, userID, purge); err != nil {
		httperrors.WriteError(w, r, mapIntegrationError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"disconnected": true})
}

// Status handles GET /api/integrations/google.
func (c *Controller) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	st, err := c.flow.Status(ctx, userID)
	if err != nil {
		httperrors.WriteError(w, r, mapIntegrationError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, st)
}

// Calendars handles GET /api/integrations/google/calendars.
func (c *Controller) Calendars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	cals, err := c.calendar.ListCalendars(ctx, userID)
	if err != nil {
		httperrors.WriteError(w, r, mapIntegrationError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"calendars": cals})
}

// Events handles GET /api/integrations/google/events.
// Query: calendarId, from, to (RFC 3339), limit.
func (c *Controller) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	q := r.URL.Query()
	calendarID := strings.TrimSpace(q.Get("calendarId"))

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("from must be RFC 3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("to must be RFC 3339"))
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("limit must be an integer"))
			return
		}
	}

	events, err := c.calendar.ListEvents(ctx, userID, calendarID, from, to, limit)
	if err != nil {
		httperrors.WriteError(w, r, mapIntegrationError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// mapIntegrationError translates service sentinels into the HTTP error
// catalogue. Unknown errors pass through and land as 500.
func mapIntegrationError(err error) error {
	switch {
	case errors.Is(err, integration.ErrInvalidInput):
		return httperrors.ErrBadRequest.WithDetail(strings.TrimPrefix(err.Error(), "invalid input: ")).WithCause(err)
	case errors.Is(err, integration.ErrInvalidState):
		return httperrors.ErrInvalidState.WithCause(err)
	case errors.Is(err, integration.ErrNotConnected):
		return httperrors.ErrNotConnected.WithCause(err)
	case errors.Is(err, integration.ErrRevoked):
		return httperrors.ErrNotConnected.WithDetail("connection revoked").WithCause(err)
	case errors.Is(err, integration.ErrReauthorizationRequired):
		return httperrors.ErrReauthorizationRequired.WithCause(err)
	case errors.Is(err, integration.ErrRefreshFailed),
		errors.Is(err, integration.ErrProviderUnavailable):
		return httperrors.ErrProviderUnavailable.WithCause(err)
	default:
		return err
	}
}
