package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify_RoundTrip(t *testing.T) {
	payload := []byte(`{"terminal_user_id":"42","event_type":"CLOCK_IN"}`)
	sig := Compute("device-secret", payload)

	assert.True(t, Verify("device-secret", payload, sig))
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := []byte(`{"terminal_user_id":"42"}`)
	sig := Compute("device-secret", payload)

	assert.False(t, Verify("other-secret", payload, sig))
}

func TestVerify_TamperedPayload(t *testing.T) {
	payload := []byte(`{"terminal_user_id":"42"}`)
	sig := Compute("device-secret", payload)

	assert.False(t, Verify("device-secret", []byte(`{"terminal_user_id":"43"}`), sig))
}

func TestVerify_NotHex(t *testing.T) {
	assert.False(t, Verify("device-secret", []byte("x"), "zz-not-hex"))
}
