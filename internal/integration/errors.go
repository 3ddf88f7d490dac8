package integration

import "errors"

// Typed failures of the integration flow. Controllers map these to HTTP
// responses; none of them leak transport details from the provider.
var (
	// ErrInvalidState means the callback state was never issued, expired,
	// or already consumed. The user must restart the connect flow.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrNotConnected means no active credential exists for the user.
	ErrNotConnected = errors.New("not connected")

	// ErrRevoked means a credential exists but was disconnected.
	ErrRevoked = errors.New("credential revoked")

	// ErrReauthorizationRequired means silent refresh is impossible: the
	// refresh token is missing or the provider rejected it. Not transient;
	// the user must re-run the connect flow.
	ErrReauthorizationRequired = errors.New("reauthorization required")

	// ErrRefreshFailed is a transient provider or network failure during
	// refresh. The stored credential is left untouched and the caller may
	// retry on the next read.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrProviderUnavailable is a network or provider failure during
	// exchange or calendar reads.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidInput is a caller contract violation (bad date range,
	// out-of-bounds limit).
	ErrInvalidInput = errors.New("invalid input")
)
