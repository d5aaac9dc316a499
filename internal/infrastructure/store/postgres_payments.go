package store

import (
	"context"
	"database/sql"

	"github.com/example/ec-order-payments/internal/model"
)

const paymentColumns = `id, order_id, amount, currency, method, status, external_intent_id, created_at, updated_at`

const refundColumns = `id, payment_id, amount, reason, external_refund_id, status, created_at, processed_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.Method, &p.Status, &p.ExternalIntentID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func scanRefund(row rowScanner) (*model.Refund, error) {
	var r model.Refund
	err := row.Scan(&r.ID, &r.PaymentID, &r.Amount, &r.Reason, &r.ExternalRefundID, &r.Status, &r.CreatedAt, &r.ProcessedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s pgQueries) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (s pgQueries) GetPaymentByIntent(ctx context.Context, intentID string) (*model.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_intent_id = $1`, intentID))
}

func (s pgQueries) ListPayments(ctx context.Context) ([]model.Payment, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (s pgQueries) LockPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

func (s pgQueries) LockPaymentByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	return scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID))
}

// UpsertPayment keys on order_id: an existing row gets the new intent, amount and status
func (s pgQueries) UpsertPayment(ctx context.Context, p *model.Payment) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO payments (order_id, amount, currency, method, status, external_intent_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id) DO UPDATE SET
		     amount = EXCLUDED.amount,
		     currency = EXCLUDED.currency,
		     method = EXCLUDED.method,
		     status = EXCLUDED.status,
		     external_intent_id = EXCLUDED.external_intent_id,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		p.OrderID, p.Amount, p.Currency, p.Method, p.Status, p.ExternalIntentID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

func (s pgQueries) UpdatePayment(ctx context.Context, p *model.Payment) error {
	err := s.q.QueryRowContext(ctx,
		`UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		p.ID, p.Status,
	).Scan(&p.UpdatedAt)
	return translate(err)
}

func (s pgQueries) GetRefund(ctx context.Context, id int64) (*model.Refund, error) {
	return scanRefund(s.q.QueryRowContext(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
}

func (s pgQueries) GetRefundByExternalID(ctx context.Context, externalID string) (*model.Refund, error) {
	return scanRefund(s.q.QueryRowContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE external_refund_id = $1`, externalID))
}

func (s pgQueries) ListRefunds(ctx context.Context) ([]model.Refund, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+refundColumns+` FROM refunds ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return collectRefunds(rows)
}

func (s pgQueries) LockRefund(ctx context.Context, id int64) (*model.Refund, error) {
	return scanRefund(s.q.QueryRowContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE id = $1 FOR UPDATE`, id))
}

func (s pgQueries) LockRefundsByPayment(ctx context.Context, paymentID int64) ([]model.Refund, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE payment_id = $1 ORDER BY id FOR UPDATE`, paymentID)
	if err != nil {
		return nil, err
	}
	return collectRefunds(rows)
}

func collectRefunds(rows *sql.Rows) ([]model.Refund, error) {
	defer rows.Close()

	refunds := make([]model.Refund, 0)
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, *r)
	}
	return refunds, rows.Err()
}

func (s pgQueries) InsertRefund(ctx context.Context, r *model.Refund) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO refunds (payment_id, amount, reason, external_refund_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		r.PaymentID, r.Amount, r.Reason, r.ExternalRefundID, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
	return translate(err)
}

func (s pgQueries) UpdateRefund(ctx context.Context, r *model.Refund) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE refunds SET status = $2, processed_at = $3 WHERE id = $1`,
		r.ID, r.Status, r.ProcessedAt)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}
