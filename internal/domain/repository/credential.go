package repository

import (
	"context"
	"time"
)

// IntegrationCredential holds the third-party tokens for one
// (user, provider) pair. Tokens are plaintext here; the store encrypts
// them before persistence and decrypts them on read.
type IntegrationCredential struct {
	ID             string
	UserID         string
	Provider       string // "google"
	ProviderUserID string
	AccessToken    string
	RefreshToken   string // empty = never granted
	ExpiresAt      *time.Time
	Scope          string
	Meta           map[string]string // email, name, avatar
	RevokedAt      *time.Time        // nil = active
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive reports whether the credential may be used for provider calls.
// A revoked credential stays readable for history but must not be used.
func (c *IntegrationCredential) IsActive() bool {
	return c.RevokedAt == nil
}

// UpsertCredentialInput carries the fields written on a successful
// authorization-code exchange.
type UpsertCredentialInput struct {
	UserID         string
	Provider       string
	ProviderUserID string
	AccessToken    string
	// RefreshToken may be empty: providers omit it on repeat consents.
	// The store must then keep any previously stored refresh token.
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	Meta         map[string]string
}

// CredentialRepository persists integration credentials.
// At most one record exists per (user, provider), enforced by the store.
type CredentialRepository interface {
	// Get returns the credential for (userID, provider), revoked or not.
	// Returns ErrNotFound if none exists.
	Get(ctx context.Context, userID, provider string) (*IntegrationCredential, error)

	// Upsert creates or replaces the credential after a code exchange.
	// Clears RevokedAt. Keeps the stored refresh token when the input
	// omits one.
	Upsert(ctx context.Context, in UpsertCredentialInput) (*IntegrationCredential, error)

	// UpdateTokens persists a refreshed access token and its expiry as one
	// atomic pair. A non-empty refreshToken replaces the stored one.
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error

	// Revoke stamps RevokedAt on the credential.
	Revoke(ctx context.Context, userID, provider string, at time.Time) error

	// Delete removes the credential entirely.
	Delete(ctx context.Context, userID, provider string) error
}
