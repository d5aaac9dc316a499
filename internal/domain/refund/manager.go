package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/example/ec-order-payments/internal/money"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/example/ec-order-payments/internal/processor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound  = apperr.New(apperr.KindNotFound, "payment not found")
	ErrRefundNotFound   = apperr.New(apperr.KindNotFound, "refund not found")
	ErrNotPaid          = apperr.New(apperr.KindConflict, "only paid payments can be refunded")
	ErrRefundInProgress = apperr.New(apperr.KindConflict, "a refund is already pending for this payment")
	ErrInvalidAmount    = apperr.New(apperr.KindValidation, "invalid refund amount")
	ErrInvalidStatus    = apperr.New(apperr.KindValidation, "invalid refund status")
)

// Manager issues refunds and applies the processor's charge and refund
// events.
type Manager struct {
	store     store.Store
	processor processor.Client
	sink      notification.Sink
	log       zerolog.Logger
}

func NewManager(st store.Store, client processor.Client, sink notification.Sink, log zerolog.Logger) *Manager {
	return &Manager{
		store:     st,
		processor: client,
		sink:      sink,
		log:       log,
	}
}

// Create refunds amount of a paid payment, or what is left of it when
// amount is nil. The processor is called while the payment is locked so two
// admins cannot refund the same payment concurrently.
func (m *Manager) Create(ctx context.Context, paymentID int64, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	if amount != nil && (!amount.IsPositive() || !money.HasMinorPrecision(*amount)) {
		return nil, ErrInvalidAmount.Withf("%s", amount.String())
	}

	current, err := m.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, paymentNotFound(err, paymentID)
	}

	var refund *model.Refund
	err = m.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockOrder(ctx, current.OrderID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return paymentNotFound(err, paymentID)
		}
		if p.Status != model.PaymentPaid {
			return ErrNotPaid.Withf("payment %d is %s", p.ID, p.Status)
		}

		existing, err := tx.LockRefundsByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		refunded := decimal.Zero
		for _, r := range existing {
			switch r.Status {
			case model.RefundPending:
				return ErrRefundInProgress.Withf("refund %d", r.ID)
			case model.RefundSucceeded:
				refunded = refunded.Add(r.Amount)
			}
		}

		remaining := p.Amount.Sub(refunded)
		value := remaining
		if amount != nil {
			value = *amount
		}
		if !value.IsPositive() || value.GreaterThan(remaining) {
			return ErrInvalidAmount.Withf("%s exceeds the refundable %s", value.StringFixed(2), remaining.StringFixed(2))
		}

		issued, err := m.processor.CreateRefund(ctx, processor.RefundParams{
			IntentID:       p.ExternalIntentID,
			AmountMinor:    money.ToMinorUnits(value),
			Reason:         reason,
			IdempotencyKey: uuid.NewString(),
		})
		if err != nil {
			return apperr.External(err, "payment processor rejected the refund")
		}

		refund = &model.Refund{
			PaymentID:        p.ID,
			Amount:           value,
			Reason:           reason,
			ExternalRefundID: issued.ID,
			Status:           model.RefundPending,
		}
		if err := tx.InsertRefund(ctx, refund); err != nil {
			return fmt.Errorf("insert refund: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().
		Int64("refund_id", refund.ID).
		Int64("payment_id", paymentID).
		Str("amount", refund.Amount.StringFixed(2)).
		Str("external_refund_id", refund.ExternalRefundID).
		Msg("refund created")
	m.sink.Notify(ctx, notification.EventRefundCreated, *refund)
	return refund, nil
}

// UpdateStatus is the administrative transition of a refund; it always
// stamps processedAt.
func (m *Manager) UpdateStatus(ctx context.Context, refundID int64, status string) (*model.Refund, error) {
	target, ok := model.ParseRefundStatus(status)
	if !ok {
		return nil, ErrInvalidStatus.Withf("%q", status)
	}

	var refund *model.Refund
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		r, err := tx.LockRefund(ctx, refundID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRefundNotFound.Withf("id %d", refundID)
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		r.Status = target
		r.ProcessedAt = &now
		if err := tx.UpdateRefund(ctx, r); err != nil {
			return fmt.Errorf("update refund: %w", err)
		}
		refund = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().Int64("refund_id", refundID).Str("status", string(target)).Msg("refund status updated")
	m.sink.Notify(ctx, notification.EventRefundStatusUpdated, *refund)
	m.sink.Notify(ctx, notification.EventRefundUpdate, notification.RefundUpdate{RefundID: refund.ID, Status: refund.Status})
	return refund, nil
}

func (m *Manager) List(ctx context.Context) ([]model.Refund, error) {
	return m.store.ListRefunds(ctx)
}

// HandleEvent applies a charge or refund event. Events that cannot be
// correlated to a payment or refund are logged and dropped.
func (m *Manager) HandleEvent(ctx context.Context, event *processor.Event) error {
	switch event.Type {
	case processor.EventChargeRefunded:
		return m.handleChargeRefunded(ctx, event)
	case processor.EventChargeRefundUpdate, processor.EventRefundUpdated, processor.EventRefundFailed:
		return m.handleRefundUpdated(ctx, event)
	default:
		m.log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("unhandled refund event")
		return nil
	}
}

type refundedResult struct {
	payment *model.Payment
	updated []model.Refund
	changed bool
}

func (m *Manager) handleChargeRefunded(ctx context.Context, event *processor.Event) error {
	charge, err := event.Charge()
	if err != nil {
		m.log.Warn().Err(err).Str("event_id", event.ID).Msg("dropping undecodable charge event")
		return nil
	}
	intentID := string(charge.PaymentIntent)
	if intentID == "" {
		m.log.Warn().Str("event_id", event.ID).Str("charge_id", charge.ID).Msg("refunded charge has no payment intent")
		return nil
	}

	current, err := m.store.GetPaymentByIntent(ctx, intentID)
	if errors.Is(err, store.ErrNotFound) {
		m.log.Warn().Str("event_id", event.ID).Str("intent_id", intentID).Msg("no payment for refunded intent")
		return nil
	}
	if err != nil {
		return err
	}

	var res refundedResult
	err = m.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, current.OrderID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		p, err := tx.LockPayment(ctx, current.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res.payment = p

		if p.Status != model.PaymentRefunded {
			p.Status = model.PaymentRefunded
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
			res.changed = true
		}

		if o != nil && (o.Status != model.OrderRefunded || o.PaymentStatus != model.PaymentRefunded) {
			o.Status = model.OrderRefunded
			o.PaymentStatus = model.PaymentRefunded
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			res.changed = true
		}

		refunds, err := tx.LockRefundsByPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range refunds {
			r := &refunds[i]
			if r.Status == model.RefundSucceeded && r.ProcessedAt != nil {
				continue
			}
			r.Status = model.RefundSucceeded
			if r.ProcessedAt == nil {
				r.ProcessedAt = &now
			}
			if err := tx.UpdateRefund(ctx, r); err != nil {
				return fmt.Errorf("update refund: %w", err)
			}
			res.updated = append(res.updated, *r)
			res.changed = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !res.changed {
		return nil
	}
	p := res.payment
	m.log.Info().Int64("payment_id", p.ID).Int64("order_id", p.OrderID).Msg("payment refunded")
	m.sink.Notify(ctx, notification.EventPaymentRefunded, notification.PaymentRefunded{OrderID: p.OrderID, PaymentID: p.ID})
	m.sink.Notify(ctx, notification.EventOrderUpdate, notification.OrderUpdate{OrderID: p.OrderID, Status: model.OrderRefunded})
	for _, r := range res.updated {
		m.sink.Notify(ctx, notification.EventRefundUpdate, notification.RefundUpdate{RefundID: r.ID, Status: r.Status})
	}
	return nil
}

// refundStatus maps a processor refund status to ours. Intermediate
// statuses map to false and are ignored.
func refundStatus(eventType, status string) (model.RefundStatus, bool) {
	if eventType == processor.EventRefundFailed {
		return model.RefundFailed, true
	}
	switch status {
	case "succeeded":
		return model.RefundSucceeded, true
	case "failed", "canceled":
		return model.RefundFailed, true
	}
	return "", false
}

func (m *Manager) handleRefundUpdated(ctx context.Context, event *processor.Event) error {
	obj, err := event.Refund()
	if err != nil {
		m.log.Warn().Err(err).Str("event_id", event.ID).Msg("dropping undecodable refund event")
		return nil
	}
	target, ok := refundStatus(event.Type, obj.Status)
	if !ok {
		m.log.Debug().Str("event_id", event.ID).Str("status", obj.Status).Msg("ignoring intermediate refund status")
		return nil
	}

	current, err := m.store.GetRefundByExternalID(ctx, obj.ID)
	if errors.Is(err, store.ErrNotFound) {
		m.log.Warn().Str("event_id", event.ID).Str("external_refund_id", obj.ID).Msg("refund event for unknown refund")
		return nil
	}
	if err != nil {
		return err
	}
	payment, err := m.store.GetPayment(ctx, current.PaymentID)
	if err != nil {
		return err
	}

	var (
		refund  *model.Refund
		changed bool
	)
	err = m.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockOrder(ctx, payment.OrderID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := tx.LockPayment(ctx, payment.ID); err != nil {
			return err
		}
		r, err := tx.LockRefund(ctx, current.ID)
		if err != nil {
			return err
		}
		refund = r
		if r.Status == target {
			return nil
		}

		r.Status = target
		if r.ProcessedAt == nil {
			now := time.Now().UTC()
			r.ProcessedAt = &now
		}
		if err := tx.UpdateRefund(ctx, r); err != nil {
			return fmt.Errorf("update refund: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		m.log.Info().Int64("refund_id", refund.ID).Str("status", string(target)).Msg("refund status applied")
		m.sink.Notify(ctx, notification.EventRefundUpdate, notification.RefundUpdate{RefundID: refund.ID, Status: refund.Status})
	}
	return nil
}

func paymentNotFound(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrPaymentNotFound.Withf("id %d", id)
	}
	return err
}
