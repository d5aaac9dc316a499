package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/example/ec-order-payments/internal/money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")
	ErrInvalidPrice    = apperr.New(apperr.KindValidation, "price must be positive")
	ErrPricePrecision  = apperr.New(apperr.KindValidation, "price has more decimal places than the currency allows")
	ErrInvalidName     = apperr.New(apperr.KindValidation, "name is required")
	ErrInvalidSKU      = apperr.New(apperr.KindValidation, "sku is required")
	ErrInvalidStock    = apperr.New(apperr.KindValidation, "stock quantity cannot be negative")
	ErrDuplicateSKU    = apperr.New(apperr.KindConflict, "sku already exists")
	ErrProductInUse    = apperr.New(apperr.KindConflict, "product is referenced by existing orders")
)

type CreateInput struct {
	SKU           string
	Name          string
	Description   string
	UnitPrice     decimal.Decimal
	StockQuantity int
	Active        *bool
}

// UpdateInput carries the fields to change; nil fields are left untouched.
// The SKU cannot be changed.
type UpdateInput struct {
	Name          *string
	Description   *string
	UnitPrice     *decimal.Decimal
	StockQuantity *int
	Active        *bool
}

type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"lastPage"`
}

type Page struct {
	Data []model.Product `json:"data"`
	Meta PageMeta        `json:"meta"`
}

type Service struct {
	store store.Store
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Product, error) {
	p := &model.Product{
		SKU:           strings.TrimSpace(in.SKU),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		UnitPrice:     in.UnitPrice,
		StockQuantity: in.StockQuantity,
		Active:        true,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if p.SKU == "" {
		return nil, ErrInvalidSKU
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertProduct(ctx, p)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrDuplicateSKU.Withf("%q", p.SKU)
	}
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	s.log.Info().Int64("product_id", p.ID).Str("sku", p.SKU).Msg("product created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return p, nil
}

// List returns one page of the catalog. Out-of-range page and limit values
// fall back to the first page and the default page size.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	products, total, err := s.store.ListProducts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	lastPage := (total + limit - 1) / limit
	if lastPage < 1 {
		lastPage = 1
	}
	return &Page{
		Data: products,
		Meta: PageMeta{Total: total, Page: page, LastPage: lastPage},
	}, nil
}

// Update applies a partial change under the product's row lock so it cannot
// interleave with a stock reservation.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Product, error) {
	var updated *model.Product
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockProducts(ctx, []int64{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrProductNotFound.Withf("id %d", id)
		}
		p := locked[0]

		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.UnitPrice != nil {
			p.UnitPrice = *in.UnitPrice
		}
		if in.StockQuantity != nil {
			p.StockQuantity = *in.StockQuantity
		}
		if in.Active != nil {
			p.Active = *in.Active
		}
		if err := validate(&p); err != nil {
			return err
		}

		if err := tx.UpdateProduct(ctx, &p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("product_id", id).Msg("product updated")
	return updated, nil
}

// Delete removes a product that no order references
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteProduct(ctx, id)
	})
	switch {
	case errors.Is(err, store.ErrReferenced):
		return ErrProductInUse.Withf("id %d", id)
	case err != nil:
		return notFound(err, id)
	}

	s.log.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

func validate(p *model.Product) error {
	if p.Name == "" {
		return ErrInvalidName
	}
	if !p.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	if !money.HasMinorPrecision(p.UnitPrice) {
		return ErrPricePrecision.Withf("%s", p.UnitPrice.String())
	}
	if p.StockQuantity < 0 {
		return ErrInvalidStock
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound.Withf("id %d", id)
	}
	return err
}
