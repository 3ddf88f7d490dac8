package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 250
)

// titlePlaceholder is shown for events the provider returns without a
// summary.
const titlePlaceholder = "(No title)"

// CalendarSummary describes one calendar of the connected account.
type CalendarSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Primary  bool   `json:"isPrimary"`
	TimeZone string `json:"timeZone,omitempty"`
}

// NormalizedEvent is the application's event shape for external events.
// For all-day events Start/End hold calendar dates ("2025-09-20"),
// otherwise full RFC 3339 timestamps.
type NormalizedEvent struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Start          string `json:"start"`
	End            string `json:"end,omitempty"`
	AllDay         bool   `json:"allDay"`
	Location       string `json:"location,omitempty"`
	HTMLLink       string `json:"htmlLink,omitempty"`
	Status         string `json:"status,omitempty"`
	OrganizerEmail string `json:"organizerEmail,omitempty"`
	CalendarID     string `json:"calendarId"`
}

// CalendarService is the read façade over the provider's calendar API.
// Every call re-queries the provider; only the access token is reused.
type CalendarService struct {
	creds    repository.CredentialRepository
	tokens   *TokenService
	provider Provider
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(creds repository.CredentialRepository, tokens *TokenService, provider Provider) *CalendarService {
	return &CalendarService{creds: creds, tokens: tokens, provider: provider}
}

// activeCredential loads the user's credential and fails with
// ErrNotConnected when none exists or it was revoked.
func (s *CalendarService) activeCredential(ctx context.Context, userID string) (*repository.IntegrationCredential, error) {
	cred, err := s.creds.Get(ctx, userID, google.ProviderName)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !cred.IsActive() {
		return nil, ErrNotConnected
	}
	return cred, nil
}

// ListCalendars returns the connected account's calendar list.
func (s *CalendarService) ListCalendars(ctx context.Context, userID string) ([]CalendarSummary, error) {
	cred, err := s.activeCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.EnsureFreshToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	entries, err := s.provider.ListCalendars(ctx, token)
	countProviderCall("list_calendars", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	out := make([]CalendarSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, CalendarSummary{
			ID:       e.ID,
			Title:    e.Summary,
			Primary:  e.Primary,
			TimeZone: e.TimeZone,
		})
	}
	return out, nil
}

// ListEvents returns normalized events from one calendar within
// [from, to], capped at limit (default 100, max 250). Input violations
// fail with ErrInvalidInput before any provider contact.
func (s *CalendarService) ListEvents(ctx context.Context, userID, calendarID string, from, to time.Time, limit int) ([]NormalizedEvent, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("%w: calendarId required", ErrInvalidInput)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must precede to", ErrInvalidInput)
	}
	if limit == 0 {
		limit = defaultEventLimit
	}
	if limit < 1 || limit > maxEventLimit {
		return nil, fmt.Errorf("%w: limit must be within [1,%d]", ErrInvalidInput, maxEventLimit)
	}

	cred, err := s.activeCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.EnsureFreshToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	events, err := s.provider.ListEvents(ctx, token, calendarID, google.EventsQuery{
		TimeMin:    from,
		TimeMax:    to,
		MaxResults: limit,
	})
	countProviderCall("list_events", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	out := make([]NormalizedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, normalizeEvent(e, calendarID))
	}
	return out, nil
}

func normalizeEvent(e google.Event, calendarID string) NormalizedEvent {
	n := NormalizedEvent{
		ID:         e.ID,
		Title:      e.Summary,
		Location:   e.Location,
		HTMLLink:   e.HTMLLink,
		Status:     e.Status,
		CalendarID: calendarID,
	}
	if n.Title == "" {
		n.Title = titlePlaceholder
	}
	if e.Organizer != nil {
		n.OrganizerEmail = e.Organizer.Email
	}

	// A date-only start (no time-of-day component) marks an all-day event;
	// start/end are then calendar dates rather than timestamps.
	if e.Start.DateTime == "" {
		n.AllDay = true
		n.Start = e.Start.Date
		n.End = e.End.Date
	} else {
		n.Start = e.Start.DateTime
		n.End = e.End.DateTime
	}
	return n
}
