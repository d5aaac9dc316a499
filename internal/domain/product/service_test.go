package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/ec-order-payments/internal/infrastructure/store/mocks"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProductService() (*Service, *mocks.MockStore) {
	st := mocks.NewMockStore()
	service := NewService(st, zerolog.Nop())
	return service, st
}

func validInput() CreateInput {
	return CreateInput{
		SKU:           "TSHIRT-001",
		Name:          "Test Product",
		Description:   "A great product",
		UnitPrice:     decimal.RequireFromString("19.99"),
		StockQuantity: 50,
	}
}

// ============================================
// Create Product Tests
// ============================================

func TestService_Create_ValidProduct(t *testing.T) {
	service, st := newTestProductService()

	product, err := service.Create(context.Background(), validInput())

	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "TSHIRT-001", product.SKU)
	assert.Equal(t, "Test Product", product.Name)
	assert.True(t, product.UnitPrice.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 50, product.StockQuantity)
	assert.True(t, product.Active, "products are active by default")

	stored, ok := st.Product(product.ID)
	require.True(t, ok)
	assert.Equal(t, product.SKU, stored.SKU)
}

func TestService_Create_ZeroStockAndInactive(t *testing.T) {
	service, _ := newTestProductService()
	in := validInput()
	in.StockQuantity = 0
	inactive := false
	in.Active = &inactive

	product, err := service.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, 0, product.StockQuantity)
	assert.False(t, product.Active)
}

func TestService_Create_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *CreateInput)
		wantErr error
	}{
		{"empty sku", func(in *CreateInput) { in.SKU = "  " }, ErrInvalidSKU},
		{"empty name", func(in *CreateInput) { in.Name = "" }, ErrInvalidName},
		{"zero price", func(in *CreateInput) { in.UnitPrice = decimal.Zero }, ErrInvalidPrice},
		{"negative price", func(in *CreateInput) { in.UnitPrice = decimal.NewFromInt(-5) }, ErrInvalidPrice},
		{"sub-cent price", func(in *CreateInput) { in.UnitPrice = decimal.RequireFromString("0.105") }, ErrPricePrecision},
		{"negative stock", func(in *CreateInput) { in.StockQuantity = -1 }, ErrInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestProductService()
			in := validInput()
			tt.mutate(&in)

			product, err := service.Create(context.Background(), in)

			assert.Nil(t, product)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Create_DuplicateSKU(t *testing.T) {
	service, _ := newTestProductService()
	_, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = service.Create(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

// ============================================
// List / Get Tests
// ============================================

func TestService_List_Pagination(t *testing.T) {
	service, st := newTestProductService()
	for i := 0; i < 25; i++ {
		st.AddProduct(model.Product{SKU: fmt.Sprintf("SKU-%02d", i), Name: "p", UnitPrice: decimal.NewFromInt(1)})
	}

	tests := []struct {
		name         string
		page, limit  int
		wantLen      int
		wantPage     int
		wantLastPage int
	}{
		{"first page", 1, 10, 10, 1, 3},
		{"last partial page", 3, 10, 5, 3, 3},
		{"past the end", 9, 10, 0, 9, 3},
		{"defaults", 0, 0, 10, 1, 3},
		{"limit capped", 1, 1000, 25, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := service.List(context.Background(), tt.page, tt.limit)

			require.NoError(t, err)
			assert.Len(t, page.Data, tt.wantLen)
			assert.Equal(t, 25, page.Meta.Total)
			assert.Equal(t, tt.wantPage, page.Meta.Page)
			assert.Equal(t, tt.wantLastPage, page.Meta.LastPage)
		})
	}
}

func TestService_List_EmptyCatalog(t *testing.T) {
	service, _ := newTestProductService()

	page, err := service.List(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, PageMeta{Total: 0, Page: 1, LastPage: 1}, page.Meta)
}

func TestService_Get_NotFound(t *testing.T) {
	service, _ := newTestProductService()

	_, err := service.Get(context.Background(), 42)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

// ============================================
// Update Product Tests
// ============================================

func TestService_Update_Success(t *testing.T) {
	service, st := newTestProductService()
	created, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)

	name := "Renamed"
	price := decimal.RequireFromString("24.50")
	stock := 7
	updated, err := service.Update(context.Background(), created.ID, UpdateInput{
		Name:          &name,
		UnitPrice:     &price,
		StockQuantity: &stock,
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "A great product", updated.Description, "unset fields are kept")
	assert.Equal(t, "TSHIRT-001", updated.SKU)

	stored, _ := st.Product(created.ID)
	assert.True(t, stored.UnitPrice.Equal(price))
	assert.Equal(t, 7, stored.StockQuantity)
}

func TestService_Update_NotFound(t *testing.T) {
	service, _ := newTestProductService()
	name := "x"

	_, err := service.Update(context.Background(), 99, UpdateInput{Name: &name})

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Update_InvalidValues(t *testing.T) {
	service, st := newTestProductService()
	created, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)

	zero := decimal.Zero
	_, err = service.Update(context.Background(), created.ID, UpdateInput{UnitPrice: &zero})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	subCent := decimal.RequireFromString("0.105")
	_, err = service.Update(context.Background(), created.ID, UpdateInput{UnitPrice: &subCent})
	assert.ErrorIs(t, err, ErrPricePrecision)

	negative := -3
	_, err = service.Update(context.Background(), created.ID, UpdateInput{StockQuantity: &negative})
	assert.ErrorIs(t, err, ErrInvalidStock)

	stored, _ := st.Product(created.ID)
	assert.Equal(t, 50, stored.StockQuantity)
	assert.True(t, stored.UnitPrice.Equal(decimal.RequireFromString("19.99")))
}

// ============================================
// Delete Product Tests
// ============================================

func TestService_Delete_Success(t *testing.T) {
	service, st := newTestProductService()
	p := st.AddProduct(model.Product{SKU: "A", Name: "A", UnitPrice: decimal.NewFromInt(1)})

	require.NoError(t, service.Delete(context.Background(), p.ID))

	_, ok := st.Product(p.ID)
	assert.False(t, ok)
}

func TestService_Delete_NotFound(t *testing.T) {
	service, _ := newTestProductService()

	err := service.Delete(context.Background(), 404)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Delete_ReferencedByOrder(t *testing.T) {
	service, st := newTestProductService()
	p := st.AddProduct(model.Product{SKU: "A", Name: "A", UnitPrice: decimal.NewFromInt(1)})
	st.AddOrder(model.Order{OwnerUserID: 1, Items: []model.OrderItem{{ProductID: p.ID, Quantity: 1}}})

	err := service.Delete(context.Background(), p.ID)

	assert.ErrorIs(t, err, ErrProductInUse)
	_, ok := st.Product(p.ID)
	assert.True(t, ok)
}
