package integration

import (
	"context"

	"github.com/taskcal/taskcal/internal/google"
)

// Provider is the external calendar provider surface the services need.
// *google.Client implements it; tests substitute a fake.
type Provider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*google.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*google.TokenResponse, error)
	RevokeToken(ctx context.Context, token string) error
	FetchUserinfo(ctx context.Context, accessToken string) (*google.Userinfo, error)
	ListCalendars(ctx context.Context, accessToken string) ([]google.CalendarEntry, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, q google.EventsQuery) ([]google.Event, error)
}
