// Package events exposes CRUD over the user's own calendar events. These
// live in the application database, next to (but separate from) whatever
// external calendars the user has connected.
package events

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskcal/taskcal/internal/domain/repository"
	httperrors "github.com/taskcal/taskcal/internal/http/errors"
	"github.com/taskcal/taskcal/internal/http/helpers"
	"github.com/taskcal/taskcal/internal/http/middlewares"
)

// Controller handles /api/events.
type Controller struct {
	repo repository.EventRepository
}

// New creates a Controller.
func New(repo repository.EventRepository) *Controller {
	return &Controller{repo: repo}
}

type eventPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AllDay      bool           `json:"allDay"`
	Start       time.Time      `json:"start"`
	End         *time.Time     `json:"end"`
	Color       string         `json:"color"`
	Location    string         `json:"location"`
	Meta        map[string]any `json:"meta"`
}

type eventResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	AllDay      bool           `json:"allDay"`
	Start       time.Time      `json:"start"`
	End         *time.Time     `json:"end,omitempty"`
	Color       string         `json:"color,omitempty"`
	Location    string         `json:"location,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toResponse(e *repository.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		AllDay:      e.AllDay,
		Start:       e.Start,
		End:         e.End,
		Color:       e.Color,
		Location:    e.Location,
		Meta:        e.Meta,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func validate(p *eventPayload) *httperrors.AppError {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return httperrors.ErrBadRequest.WithDetail("title is required")
	}
	if p.Start.IsZero() {
		return httperrors.ErrBadRequest.WithDetail("start is required")
	}
	if p.End != nil && !p.Start.Before(*p.End) {
		return httperrors.ErrBadRequest.WithDetail("start must precede end")
	}
	return nil
}

// List handles GET /api/events. Optional query: from, to (RFC 3339) to
// restrict to events overlapping the range.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.GetUserID(r.Context())
	q := r.URL.Query()

	var rng repository.EventRange
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("from must be RFC 3339"))
			return
		}
		rng.Start = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("to must be RFC 3339"))
			return
		}
		rng.End = t
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && !rng.Start.Before(rng.End) {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("from must precede to"))
		return
	}

	list, err := c.repo.List(r.Context(), userID, rng)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]eventResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

// Create handles POST /api/events.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var p eventPayload
	if !helpers.ReadJSON(w, r, &p) {
		return
	}
	if appErr := validate(&p); appErr != nil {
		httperrors.WriteError(w, r, appErr)
		return
	}

	e := repository.Event{
		UserID:      middlewares.GetUserID(r.Context()),
		Title:       p.Title,
		Description: p.Description,
		AllDay:      p.AllDay,
		Start:       p.Start,
		End:         p.End,
		Color:       p.Color,
		Location:    p.Location,
		Meta:        p.Meta,
	}
	if err := c.repo.Create(r.Context(), &e); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, toResponse(&e))
}

// Get handles GET /api/events/{id}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	e, err := c.loadOwned(r)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toResponse(e))
}

// Update handles PUT /api/events/{id}.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	var p eventPayload
	if !helpers.ReadJSON(w, r, &p) {
		return
	}
	if appErr := validate(&p); appErr != nil {
		httperrors.WriteError(w, r, appErr)
		return
	}

	e, err := c.loadOwned(r)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	e.Title = p.Title
	e.Description = p.Description
	e.AllDay = p.AllDay
	e.Start = p.Start
	e.End = p.End
	e.Color = p.Color
	e.Location = p.Location
	e.Meta = p.Meta

	if err := c.repo.Update(r.Context(), e); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toResponse(e))
}

// Delete handles DELETE /api/events/{id}.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	e, err := c.loadOwned(r)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if err := c.repo.Delete(r.Context(), e.ID); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned fetches the event and hides other users' events behind 404.
func (c *Controller) loadOwned(r *http.Request) (*repository.Event, error) {
	e, err := c.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, mapRepoError(err)
	}
	if e.UserID != middlewares.GetUserID(r.Context()) {
		return nil, httperrors.ErrNotFound
	}
	return e, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperrors.ErrNotFound.WithCause(err)
	case errors.Is(err, repository.ErrConflict):
		return httperrors.ErrConflict.WithCause(err)
	case errors.Is(err, repository.ErrInvalidInput):
		return httperrors.ErrBadRequest.WithCause(err)
	default:
		return err
	}
}
