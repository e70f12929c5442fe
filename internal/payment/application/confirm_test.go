package application

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/orderflow/fulfillment/internal/payment/domain"
)

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConfirmMatchingPayment(t *testing.T) {
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusCompleted, Amount: amount("24.99")},
	})
	assert.NoError(t, err)
}

func TestConfirmIgnoresNonCompletedPayments(t *testing.T) {
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusFailed, Amount: amount("24.99")},
		{Status: domain.StatusPending, Amount: amount("24.99")},
		{Status: domain.StatusCompleted, Amount: amount("24.99")},
	})
	assert.NoError(t, err)
}

func TestConfirmNoPayments(t *testing.T) {
	err := Confirm(amount("24.99"), nil)
	assert.ErrorIs(t, err, ErrNoCompletedPayment)
}

func TestConfirmOnlyFailedPayments(t *testing.T) {
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusFailed, Amount: amount("24.99")},
	})
	assert.ErrorIs(t, err, ErrNoCompletedPayment)
}

func TestConfirmAmountMismatch(t *testing.T) {
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusCompleted, Amount: amount("24.98")},
	})
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestConfirmZeroToleranceOnScale(t *testing.T) {
	// 24.99 and 24.990 are the same exact value; scale must not matter.
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusCompleted, Amount: amount("24.990")},
	})
	assert.NoError(t, err)
}

func TestConfirmMultipleCompletedPayments(t *testing.T) {
	err := Confirm(amount("24.99"), []domain.Payment{
		{Status: domain.StatusCompleted, Amount: amount("24.99")},
		{Status: domain.StatusCompleted, Amount: amount("24.99")},
	})
	assert.ErrorIs(t, err, ErrMultipleCompletedPayments)
}
