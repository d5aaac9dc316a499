package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testSecret = "whsec_test_secret"

const succeededPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "created": 1700000000,
  "data": {"object": {"id": "pi_1", "object": "payment_intent", "metadata": {"orderId": "12"}}}
}`

func sign(payload, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}

func TestVerifier_ValidSignature(t *testing.T) {
	v := NewVerifier(testSecret)

	ev, err := v.Verify([]byte(succeededPayload), sign(succeededPayload, testSecret, time.Now()))

	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "payment_intent.succeeded", ev.Type)
	pi, err := ev.PaymentIntent()
	require.NoError(t, err)
	assert.Equal(t, "pi_1", pi.ID)
	assert.Equal(t, "12", pi.Metadata["orderId"])
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret)

	tests := []struct {
		name      string
		payload   string
		signature string
	}{
		{"wrong secret", succeededPayload, sign(succeededPayload, "whsec_other", time.Now())},
		{"tampered body", succeededPayload + " ", sign(succeededPayload, testSecret, time.Now())},
		{"stale timestamp", succeededPayload, sign(succeededPayload, testSecret, time.Now().Add(-time.Hour))},
		{"missing header", succeededPayload, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify([]byte(tt.payload), tt.signature)
			assert.Error(t, err)
		})
	}
}
