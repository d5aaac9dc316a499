// Package webhook authenticates processor deliveries and routes them to the
// manager that owns the event category.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/example/ec-order-payments/internal/api/response"
	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/processor"
	"github.com/rs/zerolog"
)

// MaxBodyBytes caps a webhook delivery
const MaxBodyBytes = 1 << 20

// SignatureHeader carries the processor's signature
const SignatureHeader = "Stripe-Signature"

var ErrEmptyBody = apperr.New(apperr.KindValidation, "webhook body is empty")

// EventHandler applies one category of processor events
type EventHandler interface {
	HandleEvent(ctx context.Context, event *processor.Event) error
}

// Ack is the body returned once an event has been accepted
type Ack struct {
	Received bool `json:"received"`
}

type Router struct {
	verifier processor.Verifier
	payments EventHandler
	refunds  EventHandler
	log      zerolog.Logger
}

func NewRouter(verifier processor.Verifier, payments, refunds EventHandler, log zerolog.Logger) *Router {
	return &Router{
		verifier: verifier,
		payments: payments,
		refunds:  refunds,
		log:      log,
	}
}

// VerifyAndParse authenticates raw exactly as received
func (r *Router) VerifyAndParse(raw []byte, signature string) (*processor.Event, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}
	event, err := r.verifier.Verify(raw, signature)
	if err != nil {
		return nil, apperr.Signature(err)
	}
	return event, nil
}

// Route hands charge and refund events to the refund handler and everything
// else to the payment handler.
func (r *Router) Route(ctx context.Context, event *processor.Event) error {
	switch {
	case strings.HasPrefix(event.Type, "charge."), strings.HasPrefix(event.Type, "refund."):
		return r.refunds.HandleEvent(ctx, event)
	default:
		return r.payments.HandleEvent(ctx, event)
	}
}

// Receive verifies, routes and acknowledges a delivery. Only an empty body or
// a bad signature is rejected; handling failures are logged and still
// acknowledged so the processor does not redeliver forever.
func (r *Router) Receive(ctx context.Context, raw []byte, signature string) (int, any) {
	event, err := r.VerifyAndParse(raw, signature)
	if err != nil {
		r.log.Warn().Err(err).Msg("rejected webhook delivery")
		return response.StatusOf(apperr.KindOf(err)), response.NewErrorBody(err)
	}

	log := r.log.With().Str("event_id", event.ID).Str("type", event.Type).Logger()
	log.Debug().Msg("webhook received")
	if err := r.Route(ctx, event); err != nil {
		log.Error().Err(err).Msg("webhook handling failed")
	}
	return http.StatusOK, Ack{Received: true}
}

// ServeHTTP reads the raw body without any decoding so the signature is
// checked over the exact bytes that were sent.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.JSON(w, http.StatusRequestEntityTooLarge, response.NewErrorBody(apperr.Validation("webhook body exceeds %d bytes", MaxBodyBytes)))
			return
		}
		response.Error(w, apperr.Validation("could not read webhook body"))
		return
	}

	status, body := r.Receive(req.Context(), raw, req.Header.Get(SignatureHeader))
	response.JSON(w, status, body)
}
