package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/fulfillment/internal/payment/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// RecordSettlement persists a payment row. A partial unique index on
// (order_id) WHERE status='COMPLETED' makes recording a second completed
// payment for the same order a no-op, so retried settlements stay idempotent.
func (r *Repository) RecordSettlement(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, status, method, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT DO NOTHING`,
		p.ID, p.OrderID, p.Amount, p.Status, p.Method, p.Metadata, p.CreatedAt, time.Now().UTC())
	return err
}

func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, amount, status, method, metadata, created_at, updated_at
		FROM payments WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.Method, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
