package store

import (
	"context"
	"errors"

	"github.com/example/ec-order-payments/internal/model"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("constraint violation")
	ErrReferenced = errors.New("record is still referenced")
)

// Reader is the non-locking query side shared by the store and its transactions
type Reader interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]model.Product, int, error)

	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerUserID int64) ([]model.Order, error)

	GetPayment(ctx context.Context, id int64) (*model.Payment, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)

	GetRefund(ctx context.Context, id int64) (*model.Refund, error)
	GetRefundByExternalID(ctx context.Context, externalID string) (*model.Refund, error)
	ListRefunds(ctx context.Context) ([]model.Refund, error)
}

// Tx is a unit of work. Lock* methods take row locks held until the
// transaction ends; callers lock in the order order -> payment -> refunds -> products.
type Tx interface {
	Reader

	// LockProducts locks the given products in ascending id order.
	// Unknown ids are omitted from the result.
	LockProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	// DecrementStock fails with ErrConflict when stock would go negative.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	IncrementStock(ctx context.Context, productID int64, quantity int) error
	InsertProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// InsertOrder inserts the order and its items, filling in generated ids.
	InsertOrder(ctx context.Context, o *model.Order) error
	LockOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
	DeleteOrder(ctx context.Context, id int64) error

	LockPayment(ctx context.Context, id int64) (*model.Payment, error)
	LockPaymentByOrder(ctx context.Context, orderID int64) (*model.Payment, error)
	// UpsertPayment inserts or refreshes the single payment of p.OrderID.
	UpsertPayment(ctx context.Context, p *model.Payment) error
	UpdatePayment(ctx context.Context, p *model.Payment) error

	LockRefund(ctx context.Context, id int64) (*model.Refund, error)
	LockRefundsByPayment(ctx context.Context, paymentID int64) ([]model.Refund, error)
	InsertRefund(ctx context.Context, r *model.Refund) error
	UpdateRefund(ctx context.Context, r *model.Refund) error
}

// Store defines the persistence used by the domain services
type Store interface {
	Reader
	// InTx runs fn in a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
