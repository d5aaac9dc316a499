package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/domain/inventory"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/example/ec-order-payments/internal/money"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound  = apperr.New(apperr.KindNotFound, "order not found")
	ErrEmptyOrder     = apperr.New(apperr.KindValidation, "order must have at least one item")
	ErrInvalidStatus  = apperr.New(apperr.KindValidation, "invalid order status")
	ErrForbidden      = apperr.New(apperr.KindAuthorization, "not allowed to access this order")
	ErrOrderCancelled = apperr.New(apperr.KindConflict, "order is already cancelled")
	ErrOrderPaid      = apperr.New(apperr.KindConflict, "order has been paid, refund it instead of cancelling")
	ErrNotCancellable = apperr.New(apperr.KindConflict, "order cannot be cancelled")
)

type Service struct {
	store  store.Store
	ledger *inventory.Ledger
	sink   notification.Sink
	log    zerolog.Logger
}

func NewService(st store.Store, ledger *inventory.Ledger, sink notification.Sink, log zerolog.Logger) *Service {
	return &Service{
		store:  st,
		ledger: ledger,
		sink:   sink,
		log:    log,
	}
}

// Create reserves stock and persists the order with a frozen total in one
// transaction. Nothing is persisted when any line cannot be reserved.
func (s *Service) Create(ctx context.Context, userID int64, lines []inventory.Line) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	var order *model.Order
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		products, err := s.ledger.Reserve(ctx, tx, lines)
		if err != nil {
			return err
		}

		items := make([]model.OrderItem, len(lines))
		subtotals := make([]decimal.Decimal, len(lines))
		for i, line := range lines {
			price := products[line.ProductID].UnitPrice
			subtotals[i] = price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items[i] = model.OrderItem{
				ProductID:           line.ProductID,
				Quantity:            line.Quantity,
				UnitPriceAtPurchase: price,
				Subtotal:            subtotals[i],
			}
		}

		order = &model.Order{
			OwnerUserID:   userID,
			Status:        model.OrderPending,
			PaymentStatus: model.PaymentPending,
			TotalAmount:   money.Sum(subtotals...),
			Items:         items,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Int64("user_id", userID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created")
	s.sink.Notify(ctx, notification.EventOrderUpdate, notification.OrderUpdate{OrderID: order.ID, Status: order.Status})
	return order, nil
}

// Get returns the order if the requester owns it or is an admin
func (s *Service) Get(ctx context.Context, id int64, requester model.Identity) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if !requester.CanAccess(o.OwnerUserID) {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns every order for admins and the requester's own orders otherwise
func (s *Service) List(ctx context.Context, requester model.Identity) ([]model.Order, error) {
	if requester.IsAdmin() {
		return s.store.ListOrders(ctx)
	}
	return s.store.ListOrdersByOwner(ctx, requester.UserID)
}

// UpdateStatus is the admin override. It accepts any valid status and does
// not touch stock or payments; transitions outside the table are logged.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	target, ok := model.ParseOrderStatus(status)
	if !ok {
		return nil, ErrInvalidStatus.Withf("%q", status)
	}

	var (
		order   *model.Order
		changed bool
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		order = o
		if o.Status == target {
			return nil
		}

		if !CanTransition(o.Status, target) {
			s.log.Warn().
				Int64("order_id", id).
				Str("from", string(o.Status)).
				Str("to", string(target)).
				Msg("admin status override outside the transition table")
		}

		now := time.Now().UTC()
		o.Status = target
		switch target {
		case model.OrderCompleted:
			if o.CompletedAt == nil {
				o.CompletedAt = &now
			}
		case model.OrderCancelled:
			if o.CancelledAt == nil {
				o.CancelledAt = &now
			}
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().Int64("order_id", id).Str("status", string(target)).Msg("order status updated")
		s.sink.Notify(ctx, notification.EventOrderUpdate, notification.OrderUpdate{OrderID: id, Status: target})
	}
	return order, nil
}

// Cancel releases every reserved item and marks the order cancelled, all in
// one transaction. Paid orders must go through a refund.
func (s *Service) Cancel(ctx context.Context, id int64, requester model.Identity) (*model.Order, error) {
	var order *model.Order
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if !requester.CanAccess(o.OwnerUserID) {
			return ErrForbidden
		}

		switch {
		case o.Status == model.OrderCancelled:
			return ErrOrderCancelled
		case o.PaymentStatus == model.PaymentPaid || o.PaymentStatus == model.PaymentRefunded:
			return ErrOrderPaid
		case !CanTransition(o.Status, model.OrderCancelled):
			return ErrNotCancellable.Withf("status %s", o.Status)
		}

		lines := make([]inventory.Line, len(o.Items))
		for i, it := range o.Items {
			lines[i] = inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if err := s.ledger.Release(ctx, tx, lines); err != nil {
			return err
		}

		now := time.Now().UTC()
		o.Status = model.OrderCancelled
		o.CancelledAt = &now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("order_id", id).Int64("by_user", requester.UserID).Msg("order cancelled")
	s.sink.Notify(ctx, notification.EventOrderUpdate, notification.OrderUpdate{OrderID: id, Status: order.Status})
	return order, nil
}

// Delete hard-deletes the order with its items, payment and refunds. Stock is
// not released.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return notFound(err, id)
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Warn().Int64("order_id", id).Msg("order deleted")
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotFound.Withf("id %d", id)
	}
	return err
}
