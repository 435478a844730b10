// Package signature verifies webhook payloads signed with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingCredentials means the request carried no signature or no
	// secret is available to check it against.
	ErrMissingCredentials = errors.New("missing webhook secret or signature")
	// ErrMismatch means the supplied signature does not match the payload.
	ErrMismatch = errors.New("signature verification failed")
)

// Verify checks that signatureHex is the hex-encoded HMAC-SHA256 of body
// keyed by secret. The body must be the exact raw request bytes; any
// re-serialization changes the digest. The supplied hex is compared
// verbatim, so anything but the lowercase digest encoding is a mismatch.
func Verify(body []byte, signatureHex, secret string) error {
	signatureHex = strings.TrimSpace(signatureHex)
	if signatureHex == "" || secret == "" {
		return ErrMissingCredentials
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHex)) {
		return ErrMismatch
	}
	return nil
}
