package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/taskcal/taskcal/internal/cache"
	"github.com/taskcal/taskcal/internal/security/tokens"
)

// The callback is an unauthenticated redirect target, so the user who
// started the flow is correlated to it through a single-use random nonce
// carried in the provider's "state" parameter.

const (
	nonceTTL     = 10 * time.Minute
	noncePrefix  = "oauth:google:state"
	nonceEntropy = 32 // bytes
)

// NonceStore maps an authorization-flow nonce to the initiating user.
// Entries expire after nonceTTL and are removed on first read.
type NonceStore struct {
	cache cache.Client
}

// NewNonceStore creates a nonce store over the given cache.
func NewNonceStore(c cache.Client) *NonceStore {
	return &NonceStore{cache: c}
}

// Issue mints an unguessable nonce bound to userID.
func (s *NonceStore) Issue(ctx context.Context, userID string) (string, error) {
	nonce, err := tokens.GenerateOpaqueToken(nonceEntropy)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	if err := s.cache.Set(ctx, noncePrefix+":"+nonce, userID, nonceTTL); err != nil {
		return "", fmt.Errorf("store nonce: %w", err)
	}
	return nonce, nil
}

// Consume atomically pops the nonce and returns the bound user id.
// A second consume of the same nonce, concurrent or replayed, fails with
// ErrInvalidState.
func (s *NonceStore) Consume(ctx context.Context, nonce string) (string, error) {
	if nonce == "" {
		return "", ErrInvalidState
	}
	userID, err := s.cache.GetDel(ctx, noncePrefix+":"+nonce)
	if err != nil {
		if cache.IsNotFound(err) {
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("consume nonce: %w", err)
	}
	return userID, nil
}
