package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
)

var (
	ErrProductNotFound   = apperr.New(apperr.KindNotFound, "product not found")
	ErrProductInactive   = apperr.New(apperr.KindValidation, "product is not available")
	ErrInsufficientStock = apperr.New(apperr.KindConflict, "insufficient stock")
	ErrInvalidQuantity   = apperr.New(apperr.KindValidation, "quantity must be positive")
	ErrQuantityTooLarge  = apperr.New(apperr.KindValidation, "quantity is too large")
)

// MaxQuantity bounds a merged line; stock columns are 32-bit
const MaxQuantity = math.MaxInt32

// Line is a requested quantity of one product
type Line struct {
	ProductID int64
	Quantity  int
}

// Ledger reserves and releases product stock inside the caller's transaction
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Merge sums duplicate product lines and sorts them by product id
func Merge(lines []Line) ([]Line, error) {
	totals := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity.Withf("product %d", l.ProductID)
		}
		if l.Quantity > MaxQuantity-totals[l.ProductID] {
			return nil, ErrQuantityTooLarge.Withf("product %d exceeds %d", l.ProductID, MaxQuantity)
		}
		totals[l.ProductID] += l.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

// Reserve locks every referenced product and checks the whole batch before
// decrementing anything. It returns the locked products keyed by id.
func (l *Ledger) Reserve(ctx context.Context, tx store.Tx, lines []Line) (map[int64]model.Product, error) {
	merged, err := Merge(lines)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(merged))
	for i, line := range merged {
		ids[i] = line.ProductID
	}
	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	products := make(map[int64]model.Product, len(locked))
	for _, p := range locked {
		products[p.ID] = p
	}

	for _, line := range merged {
		p, ok := products[line.ProductID]
		switch {
		case !ok:
			return nil, ErrProductNotFound.Withf("id %d", line.ProductID)
		case !p.Active:
			return nil, ErrProductInactive.Withf("%s", p.SKU)
		case p.StockQuantity < line.Quantity:
			return nil, ErrInsufficientStock.Withf("%s has %d, requested %d", p.SKU, p.StockQuantity, line.Quantity)
		}
	}

	for _, line := range merged {
		if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrInsufficientStock.Wrap(err)
			}
			return nil, fmt.Errorf("decrement stock of product %d: %w", line.ProductID, err)
		}
		p := products[line.ProductID]
		p.StockQuantity -= line.Quantity
		products[line.ProductID] = p
	}
	return products, nil
}

// Release returns stock for every line. Calling it twice for the same order
// is the caller's bug.
func (l *Ledger) Release(ctx context.Context, tx store.Tx, lines []Line) error {
	merged, err := Merge(lines)
	if err != nil {
		return err
	}
	for _, line := range merged {
		if err := tx.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrProductNotFound.Withf("id %d", line.ProductID)
			}
			return fmt.Errorf("increment stock of product %d: %w", line.ProductID, err)
		}
	}
	return nil
}
