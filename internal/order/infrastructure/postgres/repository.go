package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	fulfillment "github.com/orderflow/fulfillment/internal/fulfillment/domain"
	"github.com/orderflow/fulfillment/internal/order/domain"
	payment "github.com/orderflow/fulfillment/internal/payment/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// GetForFulfillment loads the order with its items (joined to current
// product stock) and full payment history in one read.
func (r *Repository) GetForFulfillment(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.user_id, u.email, o.total, o.status, o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.UserEmail, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fulfillment.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, p.name, i.quantity, i.price_at_purchase, p.stock_quantity
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtPurchase, &item.StockOnHand); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}

	payRows, err := r.pool.Query(ctx, `
		SELECT id, order_id, amount, status, method, metadata, created_at, updated_at
		FROM payments WHERE order_id=$1 ORDER BY created_at`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var p payment.Payment
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.Method, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return domain.Order{}, err
		}
		o.Payments = append(o.Payments, p)
	}
	return o, payRows.Err()
}

// UpdateStatus is a compare-and-set on the prior status: it refuses both
// unknown orders and transitions whose precondition no longer holds, so a
// stale writer can never move an order backward.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", fulfillment.ErrInvalidState, from, to)
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s not in status %s", fulfillment.ErrInvalidState, id, from)
	}
	return nil
}
