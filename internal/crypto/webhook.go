// Package crypto provides request signing for the leaderboard snapshot
// webhook.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 4096
	keyLength     = 32
)

// WebhookVerifier authenticates external snapshot submissions. The signing
// key is derived from an operator passphrase with PBKDF2 so the raw
// passphrase never acts as the HMAC key directly.
type WebhookVerifier struct {
	key []byte
}

// NewWebhookVerifier derives the signing key from passphrase and salt.
func NewWebhookVerifier(passphrase, salt string) *WebhookVerifier {
	return &WebhookVerifier{
		key: pbkdf2.Key([]byte(passphrase), []byte(salt), keyIterations, keyLength, sha256.New),
	}
}

// Sign returns the hex-encoded HMAC-SHA256 signature of body.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex-encoded signature against body in constant time.
func (v *WebhookVerifier) Verify(body []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.key)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
