package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/fulfillment/internal/shipment/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Save persists the shipment. tracking_number carries a unique constraint;
// order_id too, since a shipment is created once per order.
func (r *Repository) Save(ctx context.Context, s domain.Shipment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shipments (id, order_id, tracking_number, carrier, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.OrderID, s.TrackingNumber, s.Carrier, s.Status, s.CreatedAt)
	return err
}
