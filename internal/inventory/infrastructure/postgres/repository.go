package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/fulfillment/internal/inventory/domain"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// Repository owns all mutations of product stock. Stock is only ever
// decremented together with a reservation row and restored together with its
// release, inside one transaction, so counts and reservations cannot drift.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = domain.DefaultReservationTTL
	}
	return &Repository{log: log, pool: pool, ttl: ttl}
}

// CheckAvailability reports every line whose available stock cannot cover the
// requested quantity. Read-only; a later ReserveAll re-verifies under lock.
func (r *Repository) CheckAvailability(ctx context.Context, lines []domain.Line) ([]domain.Shortfall, error) {
	var shortfalls []domain.Shortfall
	for _, line := range lines {
		var available int
		err := r.pool.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1`, line.ProductID).Scan(&available)
		if err != nil {
			return nil, fmt.Errorf("check availability %s: %w", line.ProductID, err)
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	return shortfalls, nil
}

// ReserveAll holds stock for every line of one order, all-or-nothing. Each
// product row is locked with FOR UPDATE before the decrement, so concurrent
// reservations on the same product serialize and stock never goes negative.
// Any shortfall rolls the whole set back and is reported to the caller.
func (r *Repository) ReserveAll(ctx context.Context, orderID string, lines []domain.Line) ([]domain.Shortfall, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var shortfalls []domain.Shortfall
	for _, line := range lines {
		var available int
		if err := tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1 FOR UPDATE`, line.ProductID).Scan(&available); err != nil {
			return nil, fmt.Errorf("lock product %s: %w", line.ProductID, err)
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
			continue
		}

		// A conflict with a still-RESERVED row means an earlier attempt holds
		// this line and its decrement already happened, so the line is skipped.
		// A RELEASED row (prior attempt was compensated, stock restored) is
		// revived with a fresh expiry and must be decremented again.
		res := domain.NewReservation(orderID, line.ProductID, line.Quantity, r.ttl)
		ct, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, order_id, product_id, quantity, status, expires_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (order_id, product_id) DO UPDATE
			SET quantity = EXCLUDED.quantity,
			    status = EXCLUDED.status,
			    expires_at = EXCLUDED.expires_at,
			    updated_at = EXCLUDED.updated_at
			WHERE reservations.status = $9`,
			res.ID, res.OrderID, res.ProductID, res.Quantity, res.Status, res.ExpiresAt, res.CreatedAt, res.UpdatedAt,
			domain.ReservationReleased)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			continue
		}

		if _, err := tx.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id=$1`,
			line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if len(shortfalls) > 0 {
		return shortfalls, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// Reserve holds stock for a single product. Returns the reservation id, or
// ErrInsufficientStock when available stock cannot cover the quantity.
func (r *Repository) Reserve(ctx context.Context, productID, orderID string, quantity int) (string, error) {
	shortfalls, err := r.ReserveAll(ctx, orderID, []domain.Line{{ProductID: productID, Quantity: quantity}})
	if err != nil {
		return "", err
	}
	if len(shortfalls) > 0 {
		return "", fmt.Errorf("%w: product %s requested %d available %d",
			ErrInsufficientStock, productID, quantity, shortfalls[0].Available)
	}
	var id string
	err = r.pool.QueryRow(ctx, `SELECT id FROM reservations WHERE order_id=$1 AND product_id=$2`, orderID, productID).Scan(&id)
	return id, err
}

// Release returns a single reservation's quantity to stock. Releasing an
// unknown or already-released reservation is a no-op.
func (r *Repository) Release(ctx context.Context, reservationID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var productID string
	var quantity int
	err = tx.QueryRow(ctx, `
		SELECT product_id, quantity FROM reservations
		WHERE id=$1 AND status=$2 FOR UPDATE`,
		reservationID, domain.ReservationReserved).Scan(&productID, &quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id=$1`, productID, quantity); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1`,
		reservationID, domain.ReservationReleased); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReleaseOrder restores stock for every still-held reservation of the order.
// Idempotent: an order with no held reservations is a no-op.
func (r *Repository) ReleaseOrder(ctx context.Context, orderID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity FROM reservations
		WHERE order_id=$1 AND status=$2 FOR UPDATE`,
		orderID, domain.ReservationReserved)
	if err != nil {
		return err
	}
	type held struct {
		productID string
		quantity  int
	}
	var holds []held
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.productID, &h.quantity); err != nil {
			rows.Close()
			return err
		}
		holds = append(holds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(holds) == 0 {
		return tx.Commit(ctx)
	}

	for _, h := range holds {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id=$1`, h.productID, h.quantity); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE order_id=$1 AND status=$3`,
		orderID, domain.ReservationReleased, domain.ReservationReserved); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Commit converts a single provisional hold into a permanent decrement.
// No-op when already committed.
func (r *Repository) Commit(ctx context.Context, reservationID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
		reservationID, domain.ReservationCommitted, domain.ReservationReserved)
	return err
}

// CommitOrder finalizes every held reservation of the order. Stock was
// already decremented at reserve time, so this only flips the status.
func (r *Repository) CommitOrder(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE order_id=$1 AND status=$3`,
		orderID, domain.ReservationCommitted, domain.ReservationReserved)
	return err
}
