package notification

import (
	"context"
	"encoding/json"

	"github.com/example/ec-order-payments/internal/infrastructure/kafka"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Mailer is implemented by email.Service
type Mailer interface {
	SendPaymentFailed(to string, orderID int64) error
	SendRefundCreated(to string, refundID, paymentID int64, amount decimal.Decimal, reason string) error
	SendPaymentRefunded(to string, orderID, paymentID int64) error
}

// Handler turns notifications consumed from Kafka into admin emails
type Handler struct {
	mailer     Mailer
	adminEmail string
	log        zerolog.Logger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, adminEmail string, log zerolog.Logger) *Handler {
	return &Handler{
		mailer:     mailer,
		adminEmail: adminEmail,
		log:        log,
	}
}

// HandleMessage processes a notification from Kafka
func (h *Handler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var m Message
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		h.log.Error().Err(err).Msg("failed to unmarshal notification")
		return err
	}
	if m.Event == "" {
		m.Event = msg.Event
	}

	switch m.Event {
	case EventPaymentUpdate:
		return h.handlePaymentUpdate(m)
	case EventRefundCreated:
		return h.handleRefundCreated(m)
	case EventPaymentRefunded:
		return h.handlePaymentRefunded(m)
	default:
		h.log.Debug().Str("event", m.Event).Msg("no email for event")
		return nil
	}
}

func (h *Handler) handlePaymentUpdate(m Message) error {
	var e PaymentUpdate
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		h.log.Error().Err(err).Msg("failed to unmarshal paymentUpdate")
		return err
	}
	if e.PaymentStatus != model.PaymentFailed {
		return nil
	}

	if err := h.mailer.SendPaymentFailed(h.adminEmail, e.OrderID); err != nil {
		h.log.Error().Err(err).Int64("order_id", e.OrderID).Msg("failed to send payment failed email")
		return err
	}
	h.log.Info().Int64("order_id", e.OrderID).Msg("payment failed email sent")
	return nil
}

func (h *Handler) handleRefundCreated(m Message) error {
	var r model.Refund
	if err := json.Unmarshal(m.Payload, &r); err != nil {
		h.log.Error().Err(err).Msg("failed to unmarshal refundCreated")
		return err
	}

	if err := h.mailer.SendRefundCreated(h.adminEmail, r.ID, r.PaymentID, r.Amount, r.Reason); err != nil {
		h.log.Error().Err(err).Int64("refund_id", r.ID).Msg("failed to send refund email")
		return err
	}
	h.log.Info().Int64("refund_id", r.ID).Msg("refund requested email sent")
	return nil
}

func (h *Handler) handlePaymentRefunded(m Message) error {
	var e PaymentRefunded
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		h.log.Error().Err(err).Msg("failed to unmarshal paymentRefunded")
		return err
	}

	if err := h.mailer.SendPaymentRefunded(h.adminEmail, e.OrderID, e.PaymentID); err != nil {
		h.log.Error().Err(err).Int64("order_id", e.OrderID).Msg("failed to send refunded email")
		return err
	}
	h.log.Info().Int64("order_id", e.OrderID).Msg("order refunded email sent")
	return nil
}
