package domain

// State is one position of the fulfillment machine. PENDING is the only
// initial state; COMPLETED and FAILED are terminal.
type State string

const (
	StatePending          State = "PENDING"
	StateValidating       State = "VALIDATING"
	StateInventoryChecked State = "INVENTORY_CHECKED"
	StateReserved         State = "INVENTORY_RESERVED"
	StatePaymentConfirmed State = "PAYMENT_CONFIRMED"
	StateProcessing       State = "PROCESSING"
	StateShipped          State = "SHIPPED"
	StateCompleted        State = "COMPLETED"
	StateFailed           State = "FAILED"
)

var validNext = map[State]State{
	StatePending:          StateValidating,
	StateValidating:       StateInventoryChecked,
	StateInventoryChecked: StateReserved,
	StateReserved:         StatePaymentConfirmed,
	StatePaymentConfirmed: StateProcessing,
	StateProcessing:       StateShipped,
	StateShipped:          StateCompleted,
}

// CanTransition permits exactly the forward chain plus FAILED from any
// non-terminal state.
func CanTransition(from, to State) bool {
	if from == StateCompleted || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	return validNext[from] == to
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stage names one step of the pipeline with its own failure mode and
// compensation rule.
type Stage string

const (
	StageValidate       Stage = "VALIDATE"
	StageInventoryCheck Stage = "INVENTORY_CHECK"
	StageReserve        Stage = "RESERVE"
	StagePayment        Stage = "PAYMENT"
	StageAdvanceStatus  Stage = "ADVANCE_STATUS"
	StageShipment       Stage = "SHIPMENT"
	StageNotify         Stage = "NOTIFY"
	StageAnalytics      Stage = "ANALYTICS"
	StageComplete       Stage = "COMPLETE"
)
