//go:build integration

package integration

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment/internal/payment/domain"
	paymentpg "github.com/orderflow/fulfillment/internal/payment/infrastructure/postgres"
)

func settlement(id string, amount string) domain.Payment {
	now := time.Now().UTC()
	return domain.Payment{
		ID:        id,
		OrderID:   "order-1",
		Amount:    decimal.RequireFromString(amount),
		Status:    domain.StatusCompleted,
		Method:    "card",
		Metadata:  map[string]string{"processor": "test"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRecordSettlementIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)
	seed(t, env)

	repo := paymentpg.NewRepository(slog.Default(), env.Pool)

	require.NoError(t, repo.RecordSettlement(ctx, settlement("pay-1", "249.98")))
	// A retried settlement with a fresh id hits the one-completed-per-order
	// index and is swallowed.
	require.NoError(t, repo.RecordSettlement(ctx, settlement("pay-2", "249.98")))

	payments, err := repo.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pay-1", payments[0].ID)
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("249.98")))
	assert.Equal(t, domain.StatusCompleted, payments[0].Status)
}
