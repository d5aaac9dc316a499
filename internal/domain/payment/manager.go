package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/domain/order"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/example/ec-order-payments/internal/money"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/example/ec-order-payments/internal/processor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")
	ErrForbidden     = apperr.New(apperr.KindAuthorization, "not allowed to pay for this order")
	ErrNotPayable    = apperr.New(apperr.KindConflict, "order is not awaiting payment")
)

// IntentResult is returned to the client that starts a payment
type IntentResult struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    int64  `json:"paymentId"`
	IntentID     string `json:"intentId"`
}

// Manager creates payment intents and applies the processor's payment
// intent events to orders and payments.
type Manager struct {
	store     store.Store
	processor processor.Client
	sink      notification.Sink
	currency  string
	log       zerolog.Logger
}

func NewManager(st store.Store, client processor.Client, sink notification.Sink, currency string, log zerolog.Logger) *Manager {
	return &Manager{
		store:     st,
		processor: client,
		sink:      sink,
		currency:  currency,
		log:       log,
	}
}

// CreateIntent starts (or restarts) the payment of an order. The order row
// stays locked across the processor call so concurrent attempts serialize.
func (m *Manager) CreateIntent(ctx context.Context, orderID int64, requester model.Identity) (*IntentResult, error) {
	var (
		result        *IntentResult
		statusChanged bool
	)
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound.Withf("id %d", orderID)
		}
		if err != nil {
			return err
		}
		if !requester.CanAccess(o.OwnerUserID) {
			return ErrForbidden
		}
		if !order.IsPayable(o) {
			return ErrNotPayable.Withf("status %s", o.Status)
		}

		intent, err := m.processor.CreateIntent(ctx, processor.IntentParams{
			AmountMinor:    money.ToMinorUnits(o.TotalAmount),
			Currency:       m.currency,
			OrderID:        o.ID,
			IdempotencyKey: uuid.NewString(),
		})
		if err != nil {
			return apperr.External(err, "payment processor rejected the intent")
		}

		p := &model.Payment{
			OrderID:          o.ID,
			Amount:           o.TotalAmount,
			Currency:         m.currency,
			Method:           model.PaymentMethodCard,
			Status:           model.PaymentPending,
			ExternalIntentID: intent.ID,
		}
		if err := tx.UpsertPayment(ctx, p); err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}

		if o.PaymentStatus != model.PaymentPending {
			o.PaymentStatus = model.PaymentPending
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			statusChanged = true
		}

		result = &IntentResult{
			ClientSecret: intent.ClientSecret,
			PaymentID:    p.ID,
			IntentID:     intent.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().
		Int64("order_id", orderID).
		Str("intent_id", result.IntentID).
		Msg("payment intent created")
	if statusChanged {
		m.sink.Notify(ctx, notification.EventPaymentUpdate, notification.PaymentUpdate{OrderID: orderID, PaymentStatus: model.PaymentPending})
	}
	return result, nil
}

func (m *Manager) List(ctx context.Context) ([]model.Payment, error) {
	return m.store.ListPayments(ctx)
}

// HandleEvent applies a payment intent event. Events that cannot be
// correlated to an order are logged and dropped; the error return is for
// storage failures only.
func (m *Manager) HandleEvent(ctx context.Context, event *processor.Event) error {
	var target model.PaymentStatus
	switch event.Type {
	case processor.EventIntentSucceeded:
		target = model.PaymentPaid
	case processor.EventIntentFailed, processor.EventIntentCanceled:
		target = model.PaymentFailed
	default:
		m.log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("unhandled payment event")
		return nil
	}

	pi, err := event.PaymentIntent()
	if err != nil {
		m.log.Warn().Err(err).Str("event_id", event.ID).Msg("dropping undecodable payment event")
		return nil
	}
	orderID, err := pi.OrderID()
	if err != nil {
		m.log.Warn().Err(err).Str("event_id", event.ID).Str("type", event.Type).Msg("dropping payment event without a valid order")
		return nil
	}

	var changed bool
	err = m.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			m.log.Warn().Int64("order_id", orderID).Str("event_id", event.ID).Msg("payment event for unknown order")
			return nil
		}
		if err != nil {
			return err
		}

		p, err := tx.LockPaymentByOrder(ctx, orderID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			p = nil
		case err != nil:
			return err
		}
		if p != nil && p.ExternalIntentID != pi.ID {
			m.log.Warn().
				Int64("order_id", orderID).
				Str("event_intent", pi.ID).
				Str("current_intent", p.ExternalIntentID).
				Msg("event is for a superseded intent")
		}

		if target == model.PaymentPaid {
			changed, err = m.applySucceeded(ctx, tx, o, p)
		} else {
			changed, err = m.applyFailed(ctx, tx, o, p)
		}
		return err
	})
	if err != nil {
		return err
	}

	if changed {
		m.log.Info().Int64("order_id", orderID).Str("payment_status", string(target)).Msg("payment status applied")
		m.sink.Notify(ctx, notification.EventPaymentUpdate, notification.PaymentUpdate{OrderID: orderID, PaymentStatus: target})
	}
	return nil
}

func (m *Manager) applySucceeded(ctx context.Context, tx store.Tx, o *model.Order, p *model.Payment) (bool, error) {
	if o.PaymentStatus == model.PaymentRefunded || o.Status == model.OrderRefunded {
		m.log.Info().Int64("order_id", o.ID).Msg("ignoring success for a refunded order")
		return false, nil
	}

	changed := false
	if p != nil && p.Status != model.PaymentPaid {
		p.Status = model.PaymentPaid
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return false, fmt.Errorf("update payment: %w", err)
		}
		changed = true
	}

	orderChanged := false
	if o.PaymentStatus != model.PaymentPaid {
		o.PaymentStatus = model.PaymentPaid
		orderChanged = true
	}
	switch o.Status {
	case model.OrderCancelled:
		m.log.Error().Int64("order_id", o.ID).Msg("payment captured for a cancelled order, a refund is required")
	case model.OrderPending, model.OrderFailed:
		o.Status = model.OrderCompleted
		orderChanged = true
	}
	if o.Status == model.OrderCompleted && o.CompletedAt == nil {
		now := time.Now().UTC()
		o.CompletedAt = &now
		orderChanged = true
	}

	if orderChanged {
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return false, fmt.Errorf("update order: %w", err)
		}
	}
	return changed || orderChanged, nil
}

func (m *Manager) applyFailed(ctx context.Context, tx store.Tx, o *model.Order, p *model.Payment) (bool, error) {
	if o.PaymentStatus == model.PaymentPaid || o.PaymentStatus == model.PaymentRefunded {
		m.log.Info().Int64("order_id", o.ID).Str("payment_status", string(o.PaymentStatus)).Msg("ignoring late payment failure")
		return false, nil
	}

	changed := false
	if p != nil && p.Status != model.PaymentFailed {
		p.Status = model.PaymentFailed
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return false, fmt.Errorf("update payment: %w", err)
		}
		changed = true
	}

	orderChanged := false
	if o.PaymentStatus != model.PaymentFailed {
		o.PaymentStatus = model.PaymentFailed
		orderChanged = true
	}
	if o.Status == model.OrderPending {
		o.Status = model.OrderFailed
		orderChanged = true
	}

	if orderChanged {
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return false, fmt.Errorf("update order: %w", err)
		}
	}
	return changed || orderChanged, nil
}
