// Package integration implements the third-party calendar integration:
// the OAuth authorization-code flow with nonce-based callback correlation,
// credential storage, transparent access-token refresh and the read façade
// over the provider's calendar API.
package integration
