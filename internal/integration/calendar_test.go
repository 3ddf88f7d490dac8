package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
)

func newCalendar(creds *fakeCreds, provider *fakeProvider) *CalendarService {
	return NewCalendarService(creds, NewTokenService(creds, provider), provider)
}

func connect(t *testing.T, creds *fakeCreds) {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	_, err := creds.Upsert(context.Background(), repository.UpsertCredentialInput{
		UserID: "u1", Provider: google.ProviderName,
		AccessToken: "A1", RefreshToken: "R1", ExpiresAt: &exp,
	})
	require.NoError(t, err)
}

func TestListCalendars(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{
		calendars: []google.CalendarEntry{
			{ID: "primary-cal", Summary: "Ana", Primary: true, TimeZone: "Europe/Madrid"},
			{ID: "team-cal", Summary: "Team"},
		},
	}
	svc := newCalendar(creds, provider)
	connect(t, creds)

	out, err := svc.ListCalendars(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, CalendarSummary{ID: "primary-cal", Title: "Ana", Primary: true, TimeZone: "Europe/Madrid"}, out[0])
	assert.False(t, out[1].Primary)
}

func TestListCalendars_NotConnected(t *testing.T) {
	svc := newCalendar(newFakeCreds(), &fakeProvider{})
	_, err := svc.ListCalendars(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestListEvents_InputValidation(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{}
	svc := newCalendar(creds, provider)
	connect(t, creds)

	ctx := context.Background()
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	cases := []struct {
		name  string
		calID string
		from  time.Time
		to    time.Time
		limit int
	}{
		{"missing calendar", "", from, to, 10},
		{"from equals to", "cal", from, from, 10},
		{"from after to", "cal", to, from, 10},
		{"limit too small", "cal", from, to, -1},
		{"limit too large", "cal", from, to, 251},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ListEvents(ctx, "u1", tc.calID, tc.from, tc.to, tc.limit)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, provider.eventsCalls, "validation failures must not contact the provider")
}

func TestListEvents_Normalization(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{
		events: []google.Event{
			{
				ID:      "e1",
				Summary: "Standup",
				Status:  "confirmed",
				Start:   google.EventTime{DateTime: "2025-09-20T09:00:00+02:00"},
				End:     google.EventTime{DateTime: "2025-09-20T09:15:00+02:00"},
				Organizer: &struct {
					Email string `json:"email"`
				}{Email: "lead@example.com"},
				Location: "Room 4",
				HTMLLink: "https://calendar.example.com/e1",
			},
			{
				ID:    "e2",
				Start: google.EventTime{Date: "2025-09-20"},
				End:   google.EventTime{Date: "2025-09-21"},
			},
		},
	}
	svc := newCalendar(creds, provider)
	connect(t, creds)

	from := time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)
	out, err := svc.ListEvents(context.Background(), "u1", "cal-1", from, from.Add(72*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, out, 2)

	timed := out[0]
	assert.Equal(t, "Standup", timed.Title)
	assert.False(t, timed.AllDay)
	assert.Equal(t, "2025-09-20T09:00:00+02:00", timed.Start)
	assert.Equal(t, "lead@example.com", timed.OrganizerEmail)
	assert.Equal(t, "cal-1", timed.CalendarID)

	allDay := out[1]
	assert.True(t, allDay.AllDay, "date-only start marks an all-day event")
	assert.Equal(t, "2025-09-20", allDay.Start)
	assert.Equal(t, "2025-09-21", allDay.End)
	assert.Equal(t, "(No title)", allDay.Title, "blank title falls back to placeholder")
}

func TestListEvents_DefaultLimit(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{}
	svc := newCalendar(creds, provider)
	connect(t, creds)

	from := time.Now()
	_, err := svc.ListEvents(context.Background(), "u1", "cal", from, from.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.eventsCalls)
}

func TestListEvents_RevokedCredential(t *testing.T) {
	creds := newFakeCreds()
	svc := newCalendar(creds, &fakeProvider{})
	connect(t, creds)
	require.NoError(t, creds.Revoke(context.Background(), "u1", google.ProviderName, time.Now()))

	from := time.Now()
	_, err := svc.ListEvents(context.Background(), "u1", "cal", from, from.Add(time.Hour), 10)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestListEvents_RefreshBeforeRead(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{
		refreshResp: &google.TokenResponse{AccessToken: "A2", ExpiresIn: 3600},
	}
	svc := newCalendar(creds, provider)
	connect(t, creds)

	// Expire the stored token; the read must refresh first, then query.
	creds.mu.Lock()
	past := time.Now().Add(-time.Minute)
	creds.store[key("u1", google.ProviderName)].ExpiresAt = &past
	creds.mu.Unlock()

	from := time.Now()
	_, err := svc.ListEvents(context.Background(), "u1", "cal", from, from.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.refreshCalls)
	assert.Equal(t, 1, provider.eventsCalls)
}
