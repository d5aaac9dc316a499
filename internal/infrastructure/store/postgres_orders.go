package store

import (
	"context"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/lib/pq"
)

const orderColumns = `id, owner_user_id, status, payment_status, total_amount, created_at, updated_at, completed_at, cancelled_at`

const orderItemColumns = `id, order_id, product_id, quantity, unit_price_at_purchase, subtotal`

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.OwnerUserID, &o.Status, &o.PaymentStatus, &o.TotalAmount,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CancelledAt)
	if err != nil {
		return nil, translate(err)
	}
	o.Items = make([]model.OrderItem, 0)
	return &o, nil
}

func (s pgQueries) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.orderWithItems(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (s pgQueries) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.orderWithItems(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (s pgQueries) orderWithItems(ctx context.Context, query string, id int64) (*model.Order, error) {
	o, err := scanOrder(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	orders := []model.Order{*o}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s pgQueries) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (s pgQueries) ListOrdersByOwner(ctx context.Context, ownerUserID int64) ([]model.Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE owner_user_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerUserID)
}

func (s pgQueries) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all given orders with a single query
func (s pgQueries) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY id`,
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceAtPurchase, &it.Subtotal); err != nil {
			return err
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func (s pgQueries) InsertOrder(ctx context.Context, o *model.Order) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO orders (owner_user_id, status, payment_status, total_amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		o.OwnerUserID, o.Status, o.PaymentStatus, o.TotalAmount,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return translate(err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := s.q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price_at_purchase, subtotal)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			it.OrderID, it.ProductID, it.Quantity, it.UnitPriceAtPurchase, it.Subtotal,
		).Scan(&it.ID)
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

// UpdateOrder writes the lifecycle columns; total and items are immutable
func (s pgQueries) UpdateOrder(ctx context.Context, o *model.Order) error {
	err := s.q.QueryRowContext(ctx,
		`UPDATE orders SET status = $2, payment_status = $3, completed_at = $4, cancelled_at = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		o.ID, o.Status, o.PaymentStatus, o.CompletedAt, o.CancelledAt,
	).Scan(&o.UpdatedAt)
	return translate(err)
}

func (s pgQueries) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}
