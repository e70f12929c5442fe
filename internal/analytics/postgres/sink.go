package postgres

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/fulfillment/pkg/tracing"
)

// Sink records analytics events as outbox rows; the relay forwards them to
// kafka. The insert is a single statement, so a sink timeout cannot leave a
// half-written event.
type Sink struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewSink(log *slog.Logger, pool *pgxpool.Pool) *Sink {
	return &Sink{log: log, pool: pool}
}

func (s *Sink) Record(ctx context.Context, orderID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	headers := map[string]string{"source": "fulfillment-service"}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", orderID, "OrderFulfilled", body, headers, tracing.Traceparent(ctx))
	return err
}
