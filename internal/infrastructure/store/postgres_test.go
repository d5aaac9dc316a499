package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore starts a throwaway PostgreSQL container with the schema applied
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("shop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := ConnectPostgres(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db))
	// Applying twice must be harmless
	require.NoError(t, Migrate(db))

	return NewPostgresStore(db)
}

func seedProduct(t *testing.T, s *PostgresStore, sku, price string, stock int) model.Product {
	t.Helper()
	p := model.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		UnitPrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
		Active:        true,
	}
	err := s.InTx(context.Background(), func(tx Tx) error {
		return tx.InsertProduct(context.Background(), &p)
	})
	require.NoError(t, err)
	return p
}

func TestPostgresStore_OrderLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := seedProduct(t, s, "SKU-A", "10.00", 5)
	b := seedProduct(t, s, "SKU-B", "5.00", 3)

	order := model.Order{
		OwnerUserID:   42,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentPending,
		TotalAmount:   decimal.RequireFromString("25.00"),
		Items: []model.OrderItem{
			{ProductID: a.ID, Quantity: 2, UnitPriceAtPurchase: a.UnitPrice, Subtotal: decimal.RequireFromString("20.00")},
			{ProductID: b.ID, Quantity: 1, UnitPriceAtPurchase: b.UnitPrice, Subtotal: decimal.RequireFromString("5.00")},
		},
	}
	err := s.InTx(ctx, func(tx Tx) error {
		if err := tx.DecrementStock(ctx, a.ID, 2); err != nil {
			return err
		}
		if err := tx.DecrementStock(ctx, b.ID, 1); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, &order)
	})
	require.NoError(t, err)
	require.NotZero(t, order.ID)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	require.Len(t, got.Items, 2)
	assert.Equal(t, a.ID, got.Items[0].ProductID)
	assert.Nil(t, got.CompletedAt)

	pa, err := s.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, pa.StockQuantity)

	owned, err := s.ListOrdersByOwner(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
	others, err := s.ListOrdersByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, others)

	// Payment upsert keeps one row per order
	first := model.Payment{OrderID: order.ID, Amount: order.TotalAmount, Currency: "usd", Method: model.PaymentMethodCard, Status: model.PaymentPending, ExternalIntentID: "pi_1"}
	second := model.Payment{OrderID: order.ID, Amount: order.TotalAmount, Currency: "usd", Method: model.PaymentMethodCard, Status: model.PaymentPending, ExternalIntentID: "pi_2"}
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.UpsertPayment(ctx, &first) }))
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.UpsertPayment(ctx, &second) }))
	assert.Equal(t, first.ID, second.ID)

	payment, err := s.GetPaymentByIntent(ctx, "pi_2")
	require.NoError(t, err)
	assert.Equal(t, order.ID, payment.OrderID)
	_, err = s.GetPaymentByIntent(ctx, "pi_1")
	assert.ErrorIs(t, err, ErrNotFound)

	refund := model.Refund{PaymentID: payment.ID, Amount: payment.Amount, ExternalRefundID: "re_1", Status: model.RefundPending}
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertRefund(ctx, &refund) }))

	// Deleting the order cascades to payment and refunds
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.DeleteOrder(ctx, order.ID) }))
	_, err = s.GetPayment(ctx, payment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRefund(ctx, refund.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_DecrementStockNeverNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "SKU-LOW", "1.00", 1)

	err := s.InTx(ctx, func(tx Tx) error { return tx.DecrementStock(ctx, p.ID, 2) })
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)
}

func TestPostgresStore_ConcurrentDecrements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "SKU-HOT", "1.00", 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(tx Tx) error {
				if _, err := tx.LockProducts(ctx, []int64{p.ID}); err != nil {
					return err
				}
				return tx.DecrementStock(ctx, p.ID, 1)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestPostgresStore_ConstraintErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "SKU-DUP", "1.00", 1)

	dup := model.Product{SKU: "SKU-DUP", Name: "dup", UnitPrice: decimal.NewFromInt(1)}
	err := s.InTx(ctx, func(tx Tx) error { return tx.InsertProduct(ctx, &dup) })
	assert.ErrorIs(t, err, ErrConflict)

	order := model.Order{
		OwnerUserID: 1, Status: model.OrderPending, PaymentStatus: model.PaymentPending,
		TotalAmount: p.UnitPrice,
		Items:       []model.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPriceAtPurchase: p.UnitPrice, Subtotal: p.UnitPrice}},
	}
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertOrder(ctx, &order) }))

	err = s.InTx(ctx, func(tx Tx) error { return tx.DeleteProduct(ctx, p.ID) })
	assert.ErrorIs(t, err, ErrReferenced)

	err = s.InTx(ctx, func(tx Tx) error { return tx.DeleteProduct(ctx, 999999) })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_InTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "SKU-RB", "1.00", 4)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Tx) error {
		if err := tx.DecrementStock(ctx, p.ID, 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.StockQuantity)
}
