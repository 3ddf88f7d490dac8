package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// skewWindow is the safety margin subtracted from a token's reported
// lifetime so tokens refresh slightly before they actually expire.
const skewWindow = 60 * time.Second

// TokenService keeps stored access tokens fresh, refreshing them through
// the provider when they are expired or about to expire.
type TokenService struct {
	creds    repository.CredentialRepository
	provider Provider

	// Deduplicates concurrent refreshes of the same credential within this
	// process. Cross-process races stay benign: the (token, expiry) pair is
	// written atomically, last writer wins.
	group singleflight.Group

	now func() time.Time // injectable for tests
}

// NewTokenService creates a TokenService.
func NewTokenService(creds repository.CredentialRepository, provider Provider) *TokenService {
	return &TokenService{creds: creds, provider: provider, now: time.Now}
}

// EnsureFreshToken returns a usable access token for the credential,
// refreshing it through the provider first when needed.
//
// Failure modes: ErrRevoked for a disconnected credential,
// ErrReauthorizationRequired when silent refresh is impossible, and
// ErrRefreshFailed for transient provider trouble (the stored credential
// is left untouched in that case).
func (s *TokenService) EnsureFreshToken(ctx context.Context, cred *repository.IntegrationCredential) (string, error) {
	if !cred.IsActive() {
		return "", ErrRevoked
	}

	// Common cheap path: token still valid beyond the skew window.
	if cred.ExpiresAt != nil && s.now().Add(skewWindow).Before(*cred.ExpiresAt) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		return "", ErrReauthorizationRequired
	}

	token, err, _ := s.group.Do(cred.ID, func() (any, error) {
		return s.refresh(ctx, cred)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *TokenService) refresh(ctx context.Context, cred *repository.IntegrationCredential) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.refresh"), logger.UserID(cred.UserID))

	tr, err := s.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		var apiErr *google.APIError
		if errors.As(err, &apiErr) && apiErr.ErrCode == "invalid_grant" {
			// The provider rejected the refresh token outright; retrying
			// will not help, the user has to reconnect.
			log.Warn("refresh token rejected", logger.Err(err))
			countRefresh("reauthorization_required")
			return "", ErrReauthorizationRequired
		}
		log.Warn("token refresh failed", logger.Err(err))
		countRefresh("failed")
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tr.AccessToken == "" {
		countRefresh("failed")
		return "", fmt.Errorf("%w: empty access token in response", ErrRefreshFailed)
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime == 0 {
		lifetime = time.Hour
	}
	expiresAt := s.now().Add(lifetime - skewWindow)

	if err := s.creds.UpdateTokens(ctx, cred.ID, tr.AccessToken, tr.RefreshToken, expiresAt); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	cred.AccessToken = tr.AccessToken
	cred.ExpiresAt = &expiresAt
	if tr.RefreshToken != "" {
		cred.RefreshToken = tr.RefreshToken
	}

	log.Debug("access token refreshed")
	countRefresh("ok")
	return tr.AccessToken, nil
}
