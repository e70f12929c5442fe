package application

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orderflow/fulfillment/internal/payment/domain"
)

var (
	ErrNoCompletedPayment        = errors.New("no completed payment for order")
	ErrMultipleCompletedPayments = errors.New("more than one completed payment for order")
	ErrAmountMismatch            = errors.New("payment amount does not match order total")
)

// Confirm is the read-side payment check: the order must carry exactly one
// COMPLETED payment whose amount equals the order total. Amounts are exact
// decimals, so the comparison uses zero tolerance.
func Confirm(total decimal.Decimal, payments []domain.Payment) error {
	var completed *domain.Payment
	for i := range payments {
		if payments[i].Status != domain.StatusCompleted {
			continue
		}
		if completed != nil {
			return ErrMultipleCompletedPayments
		}
		completed = &payments[i]
	}
	if completed == nil {
		return ErrNoCompletedPayment
	}
	if !completed.Amount.Equal(total) {
		return fmt.Errorf("%w: expected %s, got %s", ErrAmountMismatch, total, completed.Amount)
	}
	return nil
}
