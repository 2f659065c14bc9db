// Package webhookid generates trigger identities and signs inbound payloads.
// Tokens address webhooks (<base>/webhooks/<token>); secrets key the
// HMAC-SHA256 signature carried in the sha256=<hex> header convention.
package webhookid

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	// tokenBytes of randomness yield 32 base64url characters.
	tokenBytes  = 24
	secretBytes = 32

	sigPrefix   = "sha256="
	webhookPath = "/webhooks/"
)

// NewToken returns a cryptographically random, URL-safe webhook token:
// 24 random bytes, base64url-encoded without padding (32 characters).
func NewToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("webhookid: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// NewSecret returns a random HMAC key: 32 bytes, hex-encoded (64 characters).
func NewSecret() string {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("webhookid: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// Sign computes the signature header value for payload under secret:
// "sha256=" + hex(HMAC-SHA256(secret, payload)). Deterministic for equal
// inputs; used both for outbound webhook signatures and inbound verification.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for payload and compares it against sig.
// It reports false, never panics, on malformed signature strings; a length
// mismatch rejects without comparing.
func Verify(payload []byte, sig, secret string) bool {
	if !strings.HasPrefix(sig, sigPrefix) {
		return false
	}
	want := Sign(payload, secret)
	if len(sig) != len(want) {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(want))
}

// ExtractToken parses the token out of a webhook URL or path. It returns
// the last path segment following the fixed "/webhooks/" prefix, or ""
// when the URL does not match that shape.
func ExtractToken(rawURL string) string {
	idx := strings.LastIndex(rawURL, webhookPath)
	if idx < 0 {
		return ""
	}
	rest := rawURL[idx+len(webhookPath):]
	if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
		rest = rest[:cut]
	}
	if !ValidToken(rest) {
		return ""
	}
	return rest
}

// ValidToken reports whether tok looks like a token this package issued:
// at least 16 characters, restricted to the base64url alphabet.
func ValidToken(tok string) bool {
	if len(tok) < 16 {
		return false
	}
	for _, r := range tok {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
