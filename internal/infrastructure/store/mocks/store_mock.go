package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/model"
)

// MockStore is an in-memory implementation of store.Store for testing.
// Transactions are serialized and rolled back when the callback fails.
type MockStore struct {
	mu   sync.Mutex
	data *memData

	// For injecting failures in tests
	InsertOrderErr   error
	UpdateOrderErr   error
	UpsertPaymentErr error
	UpdatePaymentErr error
	InsertRefundErr  error
	UpdateRefundErr  error

	// For tracking calls in tests
	TxCount       int
	RollbackCount int
}

type memData struct {
	products map[int64]model.Product
	orders   map[int64]model.Order
	payments map[int64]model.Payment
	refunds  map[int64]model.Refund
	nextID   int64
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	return &MockStore{data: newMemData()}
}

func newMemData() *memData {
	return &memData{
		products: make(map[int64]model.Product),
		orders:   make(map[int64]model.Order),
		payments: make(map[int64]model.Payment),
		refunds:  make(map[int64]model.Refund),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.nextID = d.nextID
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.orders {
		v.Items = append([]model.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.refunds {
		c.refunds[k] = v
	}
	return c
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

// InTx runs fn against the in-memory data, restoring it if fn fails
func (m *MockStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TxCount++
	snapshot := m.data.clone()
	if err := fn(&mockTx{m: m}); err != nil {
		m.data = snapshot
		m.RollbackCount++
		return err
	}
	return nil
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }

// ============================================
// Seeding and inspection helpers
// ============================================

// AddProduct seeds a product and returns it with its assigned id
func (m *MockStore) AddProduct(p model.Product) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.data.id()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.data.products[p.ID] = p
	return p
}

// AddOrder seeds an order as-is, bypassing stock reservation
func (m *MockStore) AddOrder(o model.Order) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.ID = m.data.id()
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		o.Items[i].ID = m.data.id()
		o.Items[i].OrderID = o.ID
	}
	m.data.orders[o.ID] = o
	return o
}

// AddPayment seeds a payment
func (m *MockStore) AddPayment(p model.Payment) model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.data.id()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.data.payments[p.ID] = p
	return p
}

// AddRefund seeds a refund
func (m *MockStore) AddRefund(r model.Refund) model.Refund {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.data.id()
	r.CreatedAt = time.Now()
	m.data.refunds[r.ID] = r
	return r
}

// Product returns the stored product for assertions
func (m *MockStore) Product(id int64) (model.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.products[id]
	return p, ok
}

// Order returns the stored order for assertions
func (m *MockStore) Order(id int64) (model.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.data.orders[id]
	return o, ok
}

// PaymentByOrder returns the stored payment of an order for assertions
func (m *MockStore) PaymentByOrder(orderID int64) (model.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.payments {
		if p.OrderID == orderID {
			return p, true
		}
	}
	return model.Payment{}, false
}

// RefundsOf returns the stored refunds of a payment for assertions
func (m *MockStore) RefundsOf(paymentID int64) []model.Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.refundsOf(paymentID)
}

// OrderCount returns how many orders are stored
func (m *MockStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.orders)
}

// ============================================
// store.Reader, outside of a transaction
// ============================================

func (m *MockStore) reader() *mockTx { return &mockTx{m: m} }

func (m *MockStore) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetProduct(ctx, id)
}

func (m *MockStore) ListProducts(ctx context.Context, offset, limit int) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().ListProducts(ctx, offset, limit)
}

func (m *MockStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetOrder(ctx, id)
}

func (m *MockStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().ListOrders(ctx)
}

func (m *MockStore) ListOrdersByOwner(ctx context.Context, ownerUserID int64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().ListOrdersByOwner(ctx, ownerUserID)
}

func (m *MockStore) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetPayment(ctx, id)
}

func (m *MockStore) GetPaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetPaymentByIntent(ctx, intentID)
}

func (m *MockStore) ListPayments(ctx context.Context) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().ListPayments(ctx)
}

func (m *MockStore) GetRefund(ctx context.Context, id int64) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetRefund(ctx, id)
}

func (m *MockStore) GetRefundByExternalID(ctx context.Context, externalID string) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().GetRefundByExternalID(ctx, externalID)
}

func (m *MockStore) ListRefunds(ctx context.Context) ([]model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader().ListRefunds(ctx)
}

// ============================================
// store.Tx; the caller holds m.mu
// ============================================

type mockTx struct {
	m *MockStore
}

func (t *mockTx) d() *memData { return t.m.data }

func (t *mockTx) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, ok := t.d().products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *mockTx) ListProducts(ctx context.Context, offset, limit int) ([]model.Product, int, error) {
	all := make([]model.Product, 0, len(t.d().products))
	for _, p := range t.d().products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return []model.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (t *mockTx) LockProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	products := make([]model.Product, 0, len(sorted))
	seen := make(map[int64]bool)
	for _, id := range sorted {
		if p, ok := t.d().products[id]; ok && !seen[id] {
			seen[id] = true
			products = append(products, p)
		}
	}
	return products, nil
}

func (t *mockTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	p, ok := t.d().products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if p.StockQuantity < quantity {
		return fmt.Errorf("%w: insufficient stock for product %d", store.ErrConflict, productID)
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now()
	t.d().products[productID] = p
	return nil
}

func (t *mockTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	p, ok := t.d().products[productID]
	if !ok {
		return store.ErrNotFound
	}
	p.StockQuantity += quantity
	p.UpdatedAt = time.Now()
	t.d().products[productID] = p
	return nil
}

func (t *mockTx) InsertProduct(ctx context.Context, p *model.Product) error {
	for _, existing := range t.d().products {
		if existing.SKU == p.SKU {
			return fmt.Errorf("%w: duplicate sku %q", store.ErrConflict, p.SKU)
		}
	}
	p.ID = t.d().id()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.d().products[p.ID] = *p
	return nil
}

func (t *mockTx) UpdateProduct(ctx context.Context, p *model.Product) error {
	existing, ok := t.d().products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.SKU = existing.SKU
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	t.d().products[p.ID] = *p
	return nil
}

func (t *mockTx) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := t.d().products[id]; !ok {
		return store.ErrNotFound
	}
	for _, o := range t.d().orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return fmt.Errorf("%w: product %d is on order %d", store.ErrReferenced, id, o.ID)
			}
		}
	}
	delete(t.d().products, id)
	return nil
}

func copyOrder(o model.Order) *model.Order {
	o.Items = append(make([]model.OrderItem, 0, len(o.Items)), o.Items...)
	return &o
}

func (t *mockTx) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, ok := t.d().orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (t *mockTx) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *mockTx) ListOrders(ctx context.Context) ([]model.Order, error) {
	return t.listOrders(func(model.Order) bool { return true }), nil
}

func (t *mockTx) ListOrdersByOwner(ctx context.Context, ownerUserID int64) ([]model.Order, error) {
	return t.listOrders(func(o model.Order) bool { return o.OwnerUserID == ownerUserID }), nil
}

func (t *mockTx) listOrders(keep func(model.Order) bool) []model.Order {
	orders := make([]model.Order, 0)
	for _, o := range t.d().orders {
		if keep(o) {
			orders = append(orders, *copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders
}

func (t *mockTx) InsertOrder(ctx context.Context, o *model.Order) error {
	if t.m.InsertOrderErr != nil {
		return t.m.InsertOrderErr
	}
	o.ID = t.d().id()
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		o.Items[i].ID = t.d().id()
		o.Items[i].OrderID = o.ID
	}
	t.d().orders[o.ID] = *copyOrder(*o)
	return nil
}

func (t *mockTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	if t.m.UpdateOrderErr != nil {
		return t.m.UpdateOrderErr
	}
	existing, ok := t.d().orders[o.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = o.Status
	existing.PaymentStatus = o.PaymentStatus
	existing.CompletedAt = o.CompletedAt
	existing.CancelledAt = o.CancelledAt
	existing.UpdatedAt = time.Now()
	o.UpdatedAt = existing.UpdatedAt
	t.d().orders[o.ID] = existing
	return nil
}

func (t *mockTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := t.d().orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.d().orders, id)
	for pid, p := range t.d().payments {
		if p.OrderID != id {
			continue
		}
		for rid, r := range t.d().refunds {
			if r.PaymentID == pid {
				delete(t.d().refunds, rid)
			}
		}
		delete(t.d().payments, pid)
	}
	return nil
}

func (t *mockTx) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	p, ok := t.d().payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *mockTx) GetPaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error) {
	for _, p := range t.d().payments {
		if p.ExternalIntentID == intentID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *mockTx) ListPayments(ctx context.Context) ([]model.Payment, error) {
	payments := make([]model.Payment, 0, len(t.d().payments))
	for _, p := range t.d().payments {
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments, nil
}

func (t *mockTx) LockPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return t.GetPayment(ctx, id)
}

func (t *mockTx) LockPaymentByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	for _, p := range t.d().payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *mockTx) UpsertPayment(ctx context.Context, p *model.Payment) error {
	if t.m.UpsertPaymentErr != nil {
		return t.m.UpsertPaymentErr
	}
	if _, ok := t.d().orders[p.OrderID]; !ok {
		return fmt.Errorf("%w: order %d", store.ErrReferenced, p.OrderID)
	}
	now := time.Now()
	if existing, err := t.LockPaymentByOrder(ctx, p.OrderID); err == nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = t.d().id()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	t.d().payments[p.ID] = *p
	return nil
}

func (t *mockTx) UpdatePayment(ctx context.Context, p *model.Payment) error {
	if t.m.UpdatePaymentErr != nil {
		return t.m.UpdatePaymentErr
	}
	existing, ok := t.d().payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = p.Status
	existing.UpdatedAt = time.Now()
	p.UpdatedAt = existing.UpdatedAt
	t.d().payments[p.ID] = existing
	return nil
}

func (t *mockTx) GetRefund(ctx context.Context, id int64) (*model.Refund, error) {
	r, ok := t.d().refunds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (t *mockTx) GetRefundByExternalID(ctx context.Context, externalID string) (*model.Refund, error) {
	for _, r := range t.d().refunds {
		if r.ExternalRefundID == externalID {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *mockTx) ListRefunds(ctx context.Context) ([]model.Refund, error) {
	refunds := make([]model.Refund, 0, len(t.d().refunds))
	for _, r := range t.d().refunds {
		refunds = append(refunds, r)
	}
	sort.Slice(refunds, func(i, j int) bool { return refunds[i].ID > refunds[j].ID })
	return refunds, nil
}

func (t *mockTx) LockRefund(ctx context.Context, id int64) (*model.Refund, error) {
	return t.GetRefund(ctx, id)
}

func (t *mockTx) LockRefundsByPayment(ctx context.Context, paymentID int64) ([]model.Refund, error) {
	return t.d().refundsOf(paymentID), nil
}

func (d *memData) refundsOf(paymentID int64) []model.Refund {
	refunds := make([]model.Refund, 0)
	for _, r := range d.refunds {
		if r.PaymentID == paymentID {
			refunds = append(refunds, r)
		}
	}
	sort.Slice(refunds, func(i, j int) bool { return refunds[i].ID < refunds[j].ID })
	return refunds
}

func (t *mockTx) InsertRefund(ctx context.Context, r *model.Refund) error {
	if t.m.InsertRefundErr != nil {
		return t.m.InsertRefundErr
	}
	if _, ok := t.d().payments[r.PaymentID]; !ok {
		return fmt.Errorf("%w: payment %d", store.ErrReferenced, r.PaymentID)
	}
	for _, existing := range t.d().refunds {
		if existing.ExternalRefundID == r.ExternalRefundID {
			return fmt.Errorf("%w: duplicate refund reference %q", store.ErrConflict, r.ExternalRefundID)
		}
	}
	r.ID = t.d().id()
	r.CreatedAt = time.Now()
	t.d().refunds[r.ID] = *r
	return nil
}

func (t *mockTx) UpdateRefund(ctx context.Context, r *model.Refund) error {
	if t.m.UpdateRefundErr != nil {
		return t.m.UpdateRefundErr
	}
	existing, ok := t.d().refunds[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = r.Status
	existing.ProcessedAt = r.ProcessedAt
	t.d().refunds[r.ID] = existing
	return nil
}

var _ store.Store = (*MockStore)(nil)
