package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationCommitted ReservationStatus = "COMMITTED"
)

const DefaultReservationTTL = 30 * time.Minute

// Reservation is a provisional, time-bounded hold on product stock tied to
// one order. ExpiresAt is advisory metadata for background reclamation; the
// fulfillment pipeline never re-checks it once payment is confirmed.
type Reservation struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewReservation(orderID, productID string, quantity int, ttl time.Duration) Reservation {
	now := time.Now().UTC()
	return Reservation{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    ReservationReserved,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Reservation) Release() {
	if r.Status != ReservationReserved {
		return
	}
	r.Status = ReservationReleased
	r.UpdatedAt = time.Now().UTC()
}

func (r *Reservation) Commit() {
	if r.Status != ReservationReserved {
		return
	}
	r.Status = ReservationCommitted
	r.UpdatedAt = time.Now().UTC()
}

// Shortfall reports a product whose available stock could not cover the
// requested quantity.
type Shortfall struct {
	ProductID string
	Requested int
	Available int
}
