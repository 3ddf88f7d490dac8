package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/security/secretbox"
)

// credentialRepo stores integration credentials with tokens encrypted at
// rest via secretbox.
type credentialRepo struct{ pool *pgxpool.Pool }

const credentialColumns = `
	id, user_id, provider, provider_user_id, access_token, refresh_token,
	expires_at, scope, meta, revoked_at, created_at, updated_at
`

func (r *credentialRepo) Get(ctx context.Context, userID, provider string) (*repository.IntegrationCredential, error) {
	const query = `
		SELECT ` + credentialColumns + `
		FROM integration_credentials
		WHERE user_id = $1 AND provider = $2
	`
	row := r.pool.QueryRow(ctx, query, userID, provider)
	return scanCredential(row)
}

func (r *credentialRepo) Upsert(ctx context.Context, in repository.UpsertCredentialInput) (*repository.IntegrationCredential, error) {
	accessEnc, err := secretbox.Encrypt(in.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	// NULL for an absent refresh token so the upsert can keep a previously
	// stored one (providers omit it on repeat consents).
	var refreshEnc *string
	if in.RefreshToken != "" {
		enc, err := secretbox.Encrypt(in.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshEnc = &enc
	}

	metaJSON, err := json.Marshal(in.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}

	const query = `
		INSERT INTO integration_credentials
			(user_id, provider, provider_user_id, access_token, refresh_token,
			 expires_at, scope, meta, revoked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			access_token     = EXCLUDED.access_token,
			refresh_token    = COALESCE(EXCLUDED.refresh_token, integration_credentials.refresh_token),
			expires_at       = EXCLUDED.expires_at,
			scope            = EXCLUDED.scope,
			meta             = EXCLUDED.meta,
			revoked_at       = NULL,
			updated_at       = NOW()
		RETURNING ` + credentialColumns + `
	`
	row := r.pool.QueryRow(ctx, query,
		in.UserID, in.Provider, in.ProviderUserID, accessEnc, refreshEnc,
		in.ExpiresAt, in.Scope, metaJSON,
	)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, mapError(err)
	}
	return cred, nil
}

func (r *credentialRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	accessEnc, err := secretbox.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	var refreshEnc *string
	if refreshToken != "" {
		enc, err := secretbox.Encrypt(refreshToken)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshEnc = &enc
	}

	const query = `
		UPDATE integration_credentials
		SET access_token  = $2,
		    refresh_token = COALESCE($3, refresh_token),
		    expires_at    = $4,
		    updated_at    = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, accessEnc, refreshEnc, expiresAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepo) Revoke(ctx context.Context, userID, provider string, at time.Time) error {
	const query = `
		UPDATE integration_credentials
		SET revoked_at = $3, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	tag, err := r.pool.Exec(ctx, query, userID, provider, at)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepo) Delete(ctx context.Context, userID, provider string) error {
	const query = `DELETE FROM integration_credentials WHERE user_id = $1 AND provider = $2`
	tag, err := r.pool.Exec(ctx, query, userID, provider)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanCredential(row pgx.Row) (*repository.IntegrationCredential, error) {
	var (
		c          repository.IntegrationCredential
		accessEnc  string
		refreshEnc *string
		metaJSON   []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Provider, &c.ProviderUserID, &accessEnc, &refreshEnc,
		&c.ExpiresAt, &c.Scope, &metaJSON, &c.RevokedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if c.AccessToken, err = secretbox.Decrypt(accessEnc); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if refreshEnc != nil {
		if c.RefreshToken, err = secretbox.Decrypt(*refreshEnc); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &c.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return &c, nil
}
