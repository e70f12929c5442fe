package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservation(t *testing.T) {
	r := NewReservation("order-1", "p1", 3, DefaultReservationTTL)

	require.NotEmpty(t, r.ID)
	assert.Equal(t, ReservationReserved, r.Status)
	assert.Equal(t, 3, r.Quantity)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), r.ExpiresAt, 2*time.Second)
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewReservation("order-1", "p1", 3, DefaultReservationTTL)

	r.Release()
	assert.Equal(t, ReservationReleased, r.Status)

	r.Release()
	assert.Equal(t, ReservationReleased, r.Status)

	// A released hold cannot be committed afterwards.
	r.Commit()
	assert.Equal(t, ReservationReleased, r.Status)
}

func TestCommitIsIdempotent(t *testing.T) {
	r := NewReservation("order-1", "p1", 3, DefaultReservationTTL)

	r.Commit()
	assert.Equal(t, ReservationCommitted, r.Status)

	r.Commit()
	assert.Equal(t, ReservationCommitted, r.Status)

	// A committed hold cannot be released back.
	r.Release()
	assert.Equal(t, ReservationCommitted, r.Status)
}
