package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/lib/pq"
)

type pgQueries struct {
	q queryer
}

const productColumns = `id, sku, name, description, unit_price, stock_quantity, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s pgQueries) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return scanProduct(s.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// ListProducts returns one page of products ordered by id, plus the total count
func (s pgQueries) ListProducts(ctx context.Context, offset, limit int) ([]model.Product, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	products, err := collectProducts(rows)
	return products, total, err
}

func (s pgQueries) LockProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s pgQueries) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		 WHERE id = $2 AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: insufficient stock for product %d", ErrConflict, productID)
	}
	return nil
}

func (s pgQueries) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW() WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

func (s pgQueries) InsertProduct(ctx context.Context, p *model.Product) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO products (sku, name, description, unit_price, stock_quantity, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.Description, p.UnitPrice, p.StockQuantity, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// UpdateProduct writes every mutable column; sku is never updated
func (s pgQueries) UpdateProduct(ctx context.Context, p *model.Product) error {
	err := s.q.QueryRowContext(ctx,
		`UPDATE products SET name = $2, description = $3, unit_price = $4, stock_quantity = $5, active = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.UnitPrice, p.StockQuantity, p.Active,
	).Scan(&p.UpdatedAt)
	return translate(err)
}

func (s pgQueries) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
