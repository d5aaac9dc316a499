package stripe

import (
	"time"

	"github.com/example/ec-order-payments/internal/processor"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Verifier checks the Stripe-Signature header of webhook deliveries
type Verifier struct {
	secret string
}

func NewVerifier(webhookSecret string) *Verifier {
	return &Verifier{secret: webhookSecret}
}

// Verify authenticates the untouched payload bytes and decodes the event
func (v *Verifier) Verify(payload []byte, signature string) (*processor.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	ev := &processor.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data != nil {
		ev.Object = event.Data.Raw
	}
	return ev, nil
}

var _ processor.Verifier = (*Verifier)(nil)
