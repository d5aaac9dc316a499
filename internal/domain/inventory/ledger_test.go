package inventory

import (
	"context"
	"math"
	"testing"

	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/infrastructure/store/mocks"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(s *mocks.MockStore, sku string, stock int, active bool) model.Product {
	return s.AddProduct(model.Product{
		SKU:           sku,
		Name:          sku,
		UnitPrice:     decimal.RequireFromString("1.00"),
		StockQuantity: stock,
		Active:        active,
	})
}

func stockOf(t *testing.T, s *mocks.MockStore, id int64) int {
	t.Helper()
	p, ok := s.Product(id)
	require.True(t, ok)
	return p.StockQuantity
}

// ============================================
// Merge Tests
// ============================================

func TestMerge_SumsDuplicatesAndSorts(t *testing.T) {
	merged, err := Merge([]Line{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 4}})

	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 5}}, merged)
}

func TestMerge_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := Merge([]Line{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Merge([]Line{{ProductID: 1, Quantity: -2}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMerge_RejectsOverflowingDuplicates(t *testing.T) {
	half := math.MaxInt/2 + 1

	_, err := Merge([]Line{{ProductID: 1, Quantity: half}, {ProductID: 1, Quantity: half}})
	assert.ErrorIs(t, err, ErrQuantityTooLarge)

	_, err = Merge([]Line{{ProductID: 1, Quantity: MaxQuantity}, {ProductID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrQuantityTooLarge)

	merged, err := Merge([]Line{{ProductID: 1, Quantity: MaxQuantity - 1}, {ProductID: 1, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: 1, Quantity: MaxQuantity}}, merged)
}

// ============================================
// Reserve Tests
// ============================================

func TestLedger_Reserve_Success(t *testing.T) {
	s := mocks.NewMockStore()
	a := seed(s, "A", 5, true)
	b := seed(s, "B", 2, true)
	ledger := NewLedger()

	var products map[int64]model.Product
	err := s.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		products, err = ledger.Reserve(context.Background(), tx, []Line{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 2},
		})
		return err
	})

	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, 3, stockOf(t, s, a.ID))
	assert.Equal(t, 0, stockOf(t, s, b.ID))
}

func TestLedger_Reserve_AllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		lines   func(a, b, inactive model.Product) []Line
		wantErr error
	}{
		{
			name: "second line exceeds stock",
			lines: func(a, b, _ model.Product) []Line {
				return []Line{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 3}}
			},
			wantErr: ErrInsufficientStock,
		},
		{
			name: "duplicate lines exceed stock together",
			lines: func(a, _, _ model.Product) []Line {
				return []Line{{ProductID: a.ID, Quantity: 3}, {ProductID: a.ID, Quantity: 3}}
			},
			wantErr: ErrInsufficientStock,
		},
		{
			name: "duplicate lines overflow",
			lines: func(a, _, _ model.Product) []Line {
				return []Line{{ProductID: a.ID, Quantity: math.MaxInt/2 + 1}, {ProductID: a.ID, Quantity: math.MaxInt/2 + 1}}
			},
			wantErr: ErrQuantityTooLarge,
		},
		{
			name: "unknown product",
			lines: func(a, _, _ model.Product) []Line {
				return []Line{{ProductID: a.ID, Quantity: 1}, {ProductID: 9999, Quantity: 1}}
			},
			wantErr: ErrProductNotFound,
		},
		{
			name: "inactive product",
			lines: func(a, _, inactive model.Product) []Line {
				return []Line{{ProductID: a.ID, Quantity: 1}, {ProductID: inactive.ID, Quantity: 1}}
			},
			wantErr: ErrProductInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mocks.NewMockStore()
			a := seed(s, "A", 5, true)
			b := seed(s, "B", 2, true)
			inactive := seed(s, "OLD", 10, false)
			ledger := NewLedger()

			err := s.InTx(context.Background(), func(tx store.Tx) error {
				_, err := ledger.Reserve(context.Background(), tx, tt.lines(a, b, inactive))
				return err
			})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 5, stockOf(t, s, a.ID))
			assert.Equal(t, 2, stockOf(t, s, b.ID))
			assert.Equal(t, 10, stockOf(t, s, inactive.ID))
		})
	}
}

// ============================================
// Release Tests
// ============================================

func TestLedger_ReserveThenRelease_RestoresStock(t *testing.T) {
	s := mocks.NewMockStore()
	a := seed(s, "A", 5, true)
	b := seed(s, "B", 2, true)
	ledger := NewLedger()
	ctx := context.Background()
	lines := []Line{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 1}}

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		_, err := ledger.Reserve(ctx, tx, lines)
		return err
	}))
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		return ledger.Release(ctx, tx, lines)
	}))

	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.Equal(t, 2, stockOf(t, s, b.ID))
}

func TestLedger_Release_UnknownProduct(t *testing.T) {
	s := mocks.NewMockStore()
	ledger := NewLedger()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		return ledger.Release(context.Background(), tx, []Line{{ProductID: 42, Quantity: 1}})
	})

	assert.ErrorIs(t, err, ErrProductNotFound)
}
