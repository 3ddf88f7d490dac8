package repository

import (
	"context"
	"time"
)

// Event is a user-owned calendar event, shown alongside any connected
// external calendars.
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	AllDay      bool
	Start       time.Time
	End         *time.Time
	Color       string // e.g. "#1677ff"
	Location    string
	Meta        map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventRange limits List to events overlapping [Start, End].
// Zero times mean unbounded.
type EventRange struct {
	Start time.Time
	End   time.Time
}

// EventRepository persists user calendar events.
type EventRepository interface {
	// List returns the user's events overlapping the range, ordered by
	// start time ascending.
	List(ctx context.Context, userID string, r EventRange) ([]Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error
}
