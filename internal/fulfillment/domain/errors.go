package domain

import "errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidState          = errors.New("order is not in a fulfillable state")
	ErrFulfillmentInProgress = errors.New("fulfillment already in progress for order")
	ErrValidationFailed      = errors.New("order failed validation")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrPaymentMismatch       = errors.New("payment mismatch")
	ErrShipmentGateway       = errors.New("shipment gateway failure")
	ErrNotification          = errors.New("notification failure")
	ErrAnalytics             = errors.New("analytics failure")
	ErrCancelled             = errors.New("fulfillment cancelled")

	// ErrCompensation marks a failed release of already-reserved stock. It
	// leaves inconsistent state behind and needs operator attention, not a
	// retry.
	ErrCompensation = errors.New("compensation failed")
)
