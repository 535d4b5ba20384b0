package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arenabets/arenasync/internal/crypto"
)

func TestWebhookSignVerify(t *testing.T) {
	v := crypto.NewWebhookVerifier("passphrase", "salt")
	body := []byte(`{"entries":[{"rank":1,"name":"alpha","score":42}]}`)

	sig := v.Sign(body)
	assert.True(t, v.Verify(body, sig))
	assert.False(t, v.Verify([]byte(`tampered`), sig))
	assert.False(t, v.Verify(body, "deadbeef"))
	assert.False(t, v.Verify(body, "not-hex"))
}

func TestWebhookKeysDifferBySalt(t *testing.T) {
	a := crypto.NewWebhookVerifier("passphrase", "salt-a")
	b := crypto.NewWebhookVerifier("passphrase", "salt-b")
	body := []byte("payload")

	assert.NotEqual(t, a.Sign(body), b.Sign(body))
	assert.False(t, b.Verify(body, a.Sign(body)))
}
