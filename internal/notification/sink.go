// Package notification broadcasts committed state changes to listeners.
// Delivery is best effort and at most once; a failed broadcast never affects
// the state change that triggered it.
package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/rs/zerolog"
)

// Event names
const (
	EventOrderUpdate         = "orderUpdate"
	EventPaymentUpdate       = "paymentUpdate"
	EventRefundUpdate        = "refundUpdate"
	EventRefundCreated       = "refundCreated"
	EventRefundStatusUpdated = "refundStatusUpdated"
	EventPaymentRefunded     = "paymentRefunded"
)

// Sink receives named events after the state change has committed
type Sink interface {
	Notify(ctx context.Context, event string, payload any)
}

type OrderUpdate struct {
	OrderID int64             `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
}

type PaymentUpdate struct {
	OrderID       int64               `json:"orderId"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
}

type RefundUpdate struct {
	RefundID int64              `json:"refundId"`
	Status   model.RefundStatus `json:"status"`
}

type PaymentRefunded struct {
	OrderID   int64 `json:"orderId"`
	PaymentID int64 `json:"paymentId"`
}

// Message is the envelope used on every transport
type Message struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewMessage(event string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Payload: data, Timestamp: time.Now().UTC()}, nil
}

// partitionKey groups messages about the same order, refund or payment
func partitionKey(event string, payload any) string {
	switch p := payload.(type) {
	case OrderUpdate:
		return "order-" + strconv.FormatInt(p.OrderID, 10)
	case PaymentUpdate:
		return "order-" + strconv.FormatInt(p.OrderID, 10)
	case PaymentRefunded:
		return "order-" + strconv.FormatInt(p.OrderID, 10)
	case RefundUpdate:
		return "refund-" + strconv.FormatInt(p.RefundID, 10)
	case model.Refund:
		return "refund-" + strconv.FormatInt(p.ID, 10)
	case *model.Refund:
		return "refund-" + strconv.FormatInt(p.ID, 10)
	}
	return event
}

// Multi fans a notification out to several sinks
type Multi []Sink

func (m Multi) Notify(ctx context.Context, event string, payload any) {
	for _, s := range m {
		s.Notify(ctx, event, payload)
	}
}

// LogSink only logs notifications
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, event string, payload any) {
	s.log.Info().Str("event", event).Interface("payload", payload).Msg("notification")
}
