// Package crypto provides the shared-secret signature scheme used to
// authenticate scheduled-job webhooks, plus encrypted on-disk storage for the
// signing keys themselves.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// SignatureHeader is the HTTP header carrying the job trigger signature.
const SignatureHeader = "X-Stockcast-Signature"

// Sign computes the base64-encoded HMAC-SHA256 of body under key. The
// signature covers the exact raw request body, byte for byte.
func Sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier validates job trigger signatures against two recognized signing
// keys. Accepting either key lets operators rotate secrets without a window
// where the external scheduler and the service disagree.
type Verifier struct {
	currentKey string
	nextKey    string
}

// NewVerifier creates a Verifier. nextKey may be empty when no rotation is
// in progress.
func NewVerifier(currentKey, nextKey string) *Verifier {
	return &Verifier{currentKey: currentKey, nextKey: nextKey}
}

// Verify reports whether signature is a valid signature of body under the
// current or next signing key. Comparison is constant time.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	if v.currentKey != "" && equal(Sign(v.currentKey, body), signature) {
		return true
	}
	if v.nextKey != "" && equal(Sign(v.nextKey, body), signature) {
		return true
	}
	return false
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
