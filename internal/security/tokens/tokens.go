// Package tokens generates opaque random values for the OAuth state
// correlation flow.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateOpaqueToken returns a random token (unpadded base64url) of
// nBytes entropy.
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
