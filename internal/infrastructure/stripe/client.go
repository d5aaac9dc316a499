// Package stripe adapts the Stripe API to the processor boundary.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/ec-order-payments/internal/processor"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	gostripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Client creates payment intents and refunds through the Stripe API.
// Calls go through a circuit breaker that opens after consecutive
// transport or 5xx failures; card declines and other 4xx answers do not
// count against it.
type Client struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewClient builds the process-wide Stripe client
func NewClient(secretKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		api:     client.New(secretKey, nil),
		breaker: newBreaker(log),
		timeout: timeout,
	}
}

func newBreaker(log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// isBreakerSuccess treats answers the API gave on purpose as healthy
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *gostripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500
	}
	return false
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// CreateIntent creates a payment intent tagged with the order id
func (c *Client) CreateIntent(ctx context.Context, p processor.IntentParams) (*processor.Intent, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &gostripe.PaymentIntentParams{
		Amount:   gostripe.Int64(p.AmountMinor),
		Currency: gostripe.String(p.Currency),
		AutomaticPaymentMethods: &gostripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: gostripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(processor.MetadataOrderID, strconv.FormatInt(p.OrderID, 10))
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.PaymentIntents.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent for order %d: %w", p.OrderID, err)
	}
	pi := res.(*gostripe.PaymentIntent)
	return &processor.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateRefund refunds (part of) a payment intent
func (c *Client) CreateRefund(ctx context.Context, p processor.RefundParams) (*processor.Refund, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &gostripe.RefundParams{
		PaymentIntent: gostripe.String(p.IntentID),
		Amount:        gostripe.Int64(p.AmountMinor),
	}
	if reason, ok := refundReason(p.Reason); ok {
		params.Reason = gostripe.String(string(reason))
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.Refunds.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: create refund for %s: %w", p.IntentID, err)
	}
	r := res.(*gostripe.Refund)
	return &processor.Refund{ID: r.ID, Status: string(r.Status)}, nil
}

// refundReason maps a free-text reason onto Stripe's closed set; anything
// else is kept locally only.
func refundReason(reason string) (gostripe.RefundReason, bool) {
	switch r := gostripe.RefundReason(reason); r {
	case gostripe.RefundReasonDuplicate, gostripe.RefundReasonFraudulent, gostripe.RefundReasonRequestedByCustomer:
		return r, true
	}
	return "", false
}

var _ processor.Client = (*Client)(nil)
