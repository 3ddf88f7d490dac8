// Package todos exposes CRUD over the task list.
package todos

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

const maxTitleLen = 255

// Controller handles /api/todos.
type Controller struct {
	repo repository.TodoRepository
}

// New creates a Controller.
func New(repo repository.TodoRepository) *Controller {
	return &Controller{repo: repo}
}

type todoPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Urgency     int        `json:"urgency"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"dueAt"`
	AssigneeID  string     `json:"assigneeId"`
}

type todoResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Urgency     int        `json:"urgency"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toResponse(t *repository.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Urgency:     t.Urgency,
		Status:      t.Status,
		DueAt:       t.DueAt,
		AssigneeID:  t.AssigneeID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func validate(p *todoPayload) *httperrors.AppError {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return httperrors.ErrBadRequest.WithDetail("title is required")
	}
	if len(p.Title) > maxTitleLen {
		return httperrors.ErrBadRequest.WithDetail("title must be at most 255 characters")
	}
	if p.Urgency == 0 {
		p.Urgency = 3
	}
	if p.Urgency < 1 || p.Urgency > 5 {
		return httperrors.ErrBadRequest.WithDetail("urgency must be within [1,5]")
	}
	if p.Status == "" {
		p.Status = repository.TodoStatusOpen
	}
	switch p.Status {
	case repository.TodoStatusOpen, repository.TodoStatusInProgress, repository.TodoStatusDone:
	default:
		return httperrors.ErrBadRequest.WithDetail("status must be one of todo, in_progress, done")
	}
	return nil
}

// List handles GET /api/todos. Optional filters: status, assigneeId.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := c.repo.List(r.Context(), repository.TodoFilter{
		Status:     q.Get("status"),
		AssigneeID: q.Get("assigneeId"),
	})
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]todoResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"todos": out})
}

// Create handles POST /api/todos.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var p todoPayload
	if !helpers.ReadJSON(w, r, &p) {
		return
	}
	if appErr := validate(&p); appErr != nil {
		httperrors.WriteError(w, r, appErr)
		return
	}

	t := repository.Todo{
		Title:       p.Title,
		Description: p.Description,
		Urgency:     p.Urgency,
		Status:      p.Status,
		DueAt:       p.DueAt,
		AssigneeID:  p.AssigneeID,
		CreatedBy:   middlewares.GetUserID(r.Context()),
	}
	if err := c.repo.Create(r.Context(), &t); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, toResponse(&t))
}

// Get handles GET /api/todos/{id}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	t, err := c.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toResponse(t))
}

// Update handles PUT /api/todos/{id}. The payload replaces all mutable
// fields.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p todoPayload
	if !helpers.ReadJSON(w, r, &p) {
		return
	}
	if appErr := validate(&p); appErr != nil {
		httperrors.WriteError(w, r, appErr)
		return
	}

	t, err := c.repo.Get(r.Context(), id)
	if err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}

	t.Title = p.Title
	t.Description = p.Description
	t.Urgency = p.Urgency
	t.Status = p.Status
	t.DueAt = p.DueAt
	t.AssigneeID = p.AssigneeID

	if err := c.repo.Update(r.Context(), t); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toResponse(t))
}

// Delete handles DELETE /api/todos/{id}.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.WriteError(w, r, mapRepoError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
