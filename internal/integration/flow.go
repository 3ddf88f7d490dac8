package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/taskcal/taskcal/internal/domain/repository"
	"github.com/taskcal/taskcal/internal/google"
	"github.com/taskcal/taskcal/internal/observability/logger"
)

// FlowService orchestrates the authorization-code dance: start, callback
// and revoke, plus the connection-status read the UI polls.
type FlowService struct {
	creds    repository.CredentialRepository
	nonces   *NonceStore
	provider Provider

	now func() time.Time
}

// NewFlowService creates a FlowService.
func NewFlowService(creds repository.CredentialRepository, nonces *NonceStore, provider Provider) *FlowService {
	return &FlowService{creds: creds, nonces: nonces, provider: provider, now: time.Now}
}

// Start mints a nonce bound to userID and returns the provider
// authorization URL for the browser redirect. No session state is kept;
// all correlation rides on the nonce.
func (s *FlowService) Start(ctx context.Context, userID string) (string, error) {
	nonce, err := s.nonces.Issue(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.provider.AuthURL(nonce), nil
}

// Callback completes the flow: consumes the nonce, exchanges the code for
// tokens and upserts the credential. Returns the connecting user's id.
//
// If the exchange response omits a refresh token (common on repeat
// consents) any previously stored one is kept — losing it would
// permanently break silent refresh for the user.
func (s *FlowService) Callback(ctx context.Context, state, code string) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.Callback"))

	userID, err := s.nonces.Consume(ctx, state)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", ErrInvalidState
	}

	tr, err := s.provider.ExchangeCode(ctx, code)
	countProviderCall("exchange_code", err)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime == 0 {
		lifetime = time.Hour
	}
	expiresAt := s.now().Add(lifetime)

	in := repository.UpsertCredentialInput{
		UserID:       userID,
		Provider:     google.ProviderName,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    &expiresAt,
		Scope:        tr.Scope,
	}

	// Identity claims feed the connection-status card. A failure here is
	// not worth aborting an otherwise successful exchange.
	if ui, err := s.provider.FetchUserinfo(ctx, tr.AccessToken); err != nil {
		log.Warn("userinfo fetch failed", logger.Err(err))
	} else {
		in.ProviderUserID = ui.Sub
		in.Meta = map[string]string{
			"email":  ui.Email,
			"name":   ui.Name,
			"avatar": ui.Picture,
		}
	}

	if _, err := s.creds.Upsert(ctx, in); err != nil {
		return "", fmt.Errorf("upsert credential: %w", err)
	}

	log.Info("calendar connected", logger.UserID(userID), logger.Provider(google.ProviderName))
	return userID, nil
}

// Revoke disconnects the integration. The provider-side revocation is
// best-effort: local revocation must succeed even when the provider is
// unreachable. hardDelete removes the record, otherwise it is stamped
// revoked and kept for history.
func (s *FlowService) Revoke(ctx context.Context, userID string, hardDelete bool) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("FlowService.Revoke"), logger.UserID(userID))

	cred, err := s.creds.Get(ctx, userID, google.ProviderName)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotConnected
		}
		return err
	}
	if !cred.IsActive() {
		return ErrNotConnected
	}

	if cred.AccessToken != "" {
		err := s.provider.RevokeToken(ctx, cred.AccessToken)
		countProviderCall("revoke_token", err)
		if err != nil {
			log.Warn("provider revocation failed, proceeding locally", logger.Err(err))
		}
	}

	if hardDelete {
		return s.creds.Delete(ctx, userID, google.ProviderName)
	}
	return s.creds.Revoke(ctx, userID, google.ProviderName, s.now())
}

// ConnectionStatus is the UI-facing summary of the integration.
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Status reports whether the user has an active connection. "Not
// connected" is a normal answer, never an error.
func (s *FlowService) Status(ctx context.Context, userID string) (ConnectionStatus, error) {
	cred, err := s.creds.Get(ctx, userID, google.ProviderName)
	if err != nil {
		if repository.IsNotFound(err) {
			return ConnectionStatus{Connected: false}, nil
		}
		return ConnectionStatus{}, err
	}
	if !cred.IsActive() {
		return ConnectionStatus{Connected: false}, nil
	}
	return ConnectionStatus{
		Connected: true,
		Email:     cred.Meta["email"],
		Name:      cred.Meta["name"],
		Avatar:    cred.Meta["avatar"],
		ExpiresAt: cred.ExpiresAt,
	}, nil
}
