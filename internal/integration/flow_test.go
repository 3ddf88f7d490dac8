package integration

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskcal/taskcal/internal/cache"
	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
)

func newFlow(creds *fakeCreds, provider *fakeProvider) (*FlowService, *NonceStore) {
	nonces := NewNonceStore(cache.NewMemory(""))
	return NewFlowService(creds, nonces, provider), nonces
}

func TestStart_EmbedsNonceAsState(t *testing.T) {
	ctx := context.Background()
	svc, nonces := newFlow(newFakeCreds(), &fakeProvider{})

	redirect, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	// The state must round back to the initiating user.
	userID, err := nonces.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestCallback_CreatesCredential(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	provider := &fakeProvider{
		exchangeResp: &google.TokenResponse{
			AccessToken:  "A1",
			RefreshToken: "R1",
			ExpiresIn:    3600,
			Scope:        google.CalendarReadScope,
		},
		userinfo: &google.Userinfo{Sub: "g-123", Email: "ana@example.com", Name: "Ana", Picture: "https://p/a.png"},
	}
	svc, _ := newFlow(creds, provider)

	redirect, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	state := stateOf(t, redirect)

	userID, err := svc.Callback(ctx, state, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	cred, err := creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.Equal(t, "A1", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken)
	assert.Equal(t, "g-123", cred.ProviderUserID)
	assert.Equal(t, "ana@example.com", cred.Meta["email"])
	assert.True(t, cred.IsActive())
	require.NotNil(t, cred.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *cred.ExpiresAt, 2*time.Second)
}

func TestCallback_UnknownState(t *testing.T) {
	creds := newFakeCreds()
	provider := &fakeProvider{}
	svc, _ := newFlow(creds, provider)

	_, err := svc.Callback(context.Background(), "never-issued", "code")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, provider.exchangeCalls, "no exchange on bad state")
	_, err = creds.Get(context.Background(), "u1", google.ProviderName)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCallback_ReplayedState(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{
		exchangeResp: &google.TokenResponse{AccessToken: "A1", ExpiresIn: 3600},
	}
	svc, _ := newFlow(newFakeCreds(), provider)

	redirect, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	state := stateOf(t, redirect)

	_, err = svc.Callback(ctx, state, "code-1")
	require.NoError(t, err)

	_, err = svc.Callback(ctx, state, "code-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCallback_RefreshTokenPreservedOnReconsent(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	provider := &fakeProvider{
		exchangeResp: &google.TokenResponse{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: 3600},
	}
	svc, _ := newFlow(creds, provider)

	redirect, _ := svc.Start(ctx, "u1")
	_, err := svc.Callback(ctx, stateOf(t, redirect), "code-1")
	require.NoError(t, err)

	// Second consent: provider omits the refresh token.
	provider.exchangeResp = &google.TokenResponse{AccessToken: "A2", ExpiresIn: 3600}
	redirect, _ = svc.Start(ctx, "u1")
	_, err = svc.Callback(ctx, stateOf(t, redirect), "code-2")
	require.NoError(t, err)

	cred, err := creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.Equal(t, "A2", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken, "omitted refresh token must not null out the stored one")

	// Third consent: provider sends a new refresh token, which wins.
	provider.exchangeResp = &google.TokenResponse{AccessToken: "A3", RefreshToken: "R3", ExpiresIn: 3600}
	redirect, _ = svc.Start(ctx, "u1")
	_, err = svc.Callback(ctx, stateOf(t, redirect), "code-3")
	require.NoError(t, err)

	cred, err = creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.Equal(t, "R3", cred.RefreshToken)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{exchangeErr: errors.New("connection refused")}
	svc, _ := newFlow(newFakeCreds(), provider)

	redirect, _ := svc.Start(ctx, "u1")
	_, err := svc.Callback(ctx, stateOf(t, redirect), "code")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCallback_UserinfoFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	provider := &fakeProvider{
		exchangeResp: &google.TokenResponse{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: 3600},
		userinfoErr:  errors.New("timeout"),
	}
	svc, _ := newFlow(creds, provider)

	redirect, _ := svc.Start(ctx, "u1")
	_, err := svc.Callback(ctx, stateOf(t, redirect), "code")
	require.NoError(t, err)

	cred, err := creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.Equal(t, "A1", cred.AccessToken)
	assert.Empty(t, cred.Meta["email"])
}

func TestRevoke_Soft(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	provider := &fakeProvider{}
	svc, _ := newFlow(creds, provider)
	tokens := NewTokenService(creds, provider)

	exp := time.Now().Add(time.Hour)
	_, err := creds.Upsert(ctx, repository.UpsertCredentialInput{
		UserID: "u1", Provider: google.ProviderName, AccessToken: "A1", RefreshToken: "R1", ExpiresAt: &exp,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "u1", false))
	assert.Equal(t, 1, provider.revokeCalls)

	// Record stays queryable for history but is no longer active.
	cred, err := creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.False(t, cred.IsActive())

	_, err = tokens.EnsureFreshToken(ctx, cred)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestRevoke_Hard(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	svc, _ := newFlow(creds, &fakeProvider{})

	exp := time.Now().Add(time.Hour)
	_, err := creds.Upsert(ctx, repository.UpsertCredentialInput{
		UserID: "u1", Provider: google.ProviderName, AccessToken: "A1", ExpiresAt: &exp,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "u1", true))
	_, err = creds.Get(ctx, "u1", google.ProviderName)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRevoke_ProviderFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	provider := &fakeProvider{revokeErr: errors.New("network down")}
	svc, _ := newFlow(creds, provider)

	exp := time.Now().Add(time.Hour)
	_, err := creds.Upsert(ctx, repository.UpsertCredentialInput{
		UserID: "u1", Provider: google.ProviderName, AccessToken: "A1", ExpiresAt: &exp,
	})
	require.NoError(t, err)

	// Local revocation succeeds despite the provider being unreachable.
	require.NoError(t, svc.Revoke(ctx, "u1", false))
	cred, err := creds.Get(ctx, "u1", google.ProviderName)
	require.NoError(t, err)
	assert.False(t, cred.IsActive())
}

func TestRevoke_NotConnected(t *testing.T) {
	svc, _ := newFlow(newFakeCreds(), &fakeProvider{})
	err := svc.Revoke(context.Background(), "u1", false)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	creds := newFakeCreds()
	svc, _ := newFlow(creds, &fakeProvider{})

	st, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, st.Connected)

	exp := time.Now().Add(time.Hour)
	_, err = creds.Upsert(ctx, repository.UpsertCredentialInput{
		UserID: "u1", Provider: google.ProviderName, AccessToken: "A1", ExpiresAt: &exp,
		Meta: map[string]string{"email": "ana@example.com", "name": "Ana"},
	})
	require.NoError(t, err)

	st, err = svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "ana@example.com", st.Email)

	require.NoError(t, svc.Revoke(ctx, "u1", false))
	st, err = svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, st.Connected, "revoked reads as not connected, not as an error")
}

func stateOf(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state := u.Query().Get("state")
	if state == "" && strings.Contains(redirect, "state=") {
		t.Fatal("state present but unparseable")
	}
	require.NotEmpty(t, state)
	return state
}
