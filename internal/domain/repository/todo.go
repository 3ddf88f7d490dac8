package repository

import (
	"context"
	"time"
)

// Todo status values, ordered by how the list sorts them.
const (
	TodoStatusOpen       = "todo"
	TodoStatusInProgress = "in_progress"
	TodoStatusDone       = "done"
)

// Todo is a prioritized task. Urgency runs 1 (lowest) to 5 (highest).
type Todo struct {
	ID          string
	Title       string
	Description string
	Urgency     int
	Status      string
	DueAt       *time.Time
	AssigneeID  string // empty = unassigned
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TodoFilter narrows List results. Zero values mean "no filter".
type TodoFilter struct {
	Status     string
	AssigneeID string
}

// TodoRepository persists todos.
type TodoRepository interface {
	// List returns todos ordered by status (open, in progress, done),
	// urgency descending, then due date.
	List(ctx context.Context, f TodoFilter) ([]Todo, error)
	Get(ctx context.Context, id string) (*Todo, error)
	Create(ctx context.Context, t *Todo) error
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, id string) error
}
