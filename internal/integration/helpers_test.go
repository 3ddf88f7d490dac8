package integration

import (
	"context"
	"sync"
	"time"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
)

// fakeCreds is an in-memory CredentialRepository keyed by (user, provider).
type fakeCreds struct {
	mu    sync.Mutex
	store map[string]*repository.IntegrationCredential
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{store: map[string]*repository.IntegrationCredential{}}
}

func key(userID, provider string) string { return userID + "/" + provider }

func (f *fakeCreds) Get(_ context.Context, userID, provider string) (*repository.IntegrationCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.store[key(userID, provider)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCreds) Upsert(_ context.Context, in repository.UpsertCredentialInput) (*repository.IntegrationCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(in.UserID, in.Provider)
	prev := f.store[k]

	c := &repository.IntegrationCredential{
		ID:             in.UserID + "-" + in.Provider,
		UserID:         in.UserID,
		Provider:       in.Provider,
		ProviderUserID: in.ProviderUserID,
		AccessToken:    in.AccessToken,
		RefreshToken:   in.RefreshToken,
		ExpiresAt:      in.ExpiresAt,
		Scope:          in.Scope,
		Meta:           in.Meta,
	}
	if c.RefreshToken == "" && prev != nil {
		c.RefreshToken = prev.RefreshToken
	}
	f.store[k] = c
	cp := *c
	return &cp, nil
}

func (f *fakeCreds) UpdateTokens(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.store {
		if c.ID == id {
			c.AccessToken = accessToken
			if refreshToken != "" {
				c.RefreshToken = refreshToken
			}
			at := expiresAt
			c.ExpiresAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCreds) Revoke(_ context.Context, userID, provider string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.store[key(userID, provider)]
	if !ok {
		return repository.ErrNotFound
	}
	t := at
	c.RevokedAt = &t
	return nil
}

func (f *fakeCreds) Delete(_ context.Context, userID, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[key(userID, provider)]; !ok {
		return repository.ErrNotFound
	}
	delete(f.store, key(userID, provider))
	return nil
}

// fakeProvider scripts provider responses and records call counts.
type fakeProvider struct {
	mu sync.Mutex

	exchangeResp *google.TokenResponse
	exchangeErr  error
	refreshResp  *google.TokenResponse
	refreshErr   error
	revokeErr    error
	userinfo     *google.Userinfo
	userinfoErr  error
	calendars    []google.CalendarEntry
	calendarsErr error
	events       []google.Event
	eventsErr    error

	exchangeCalls int
	refreshCalls  int
	revokeCalls   int
	eventsCalls   int
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeProvider) ExchangeCode(context.Context, string) (*google.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	return p.exchangeResp, p.exchangeErr
}

func (p *fakeProvider) Refresh(context.Context, string) (*google.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	return p.refreshResp, p.refreshErr
}

func (p *fakeProvider) RevokeToken(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeCalls++
	return p.revokeErr
}

func (p *fakeProvider) FetchUserinfo(context.Context, string) (*google.Userinfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userinfo, p.userinfoErr
}

func (p *fakeProvider) ListCalendars(context.Context, string) ([]google.CalendarEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calendars, p.calendarsErr
}

func (p *fakeProvider) ListEvents(context.Context, string, string, google.EventsQuery) ([]google.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventsCalls++
	return p.events, p.eventsErr
}
