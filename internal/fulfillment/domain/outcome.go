package domain

// StockEffect tells the caller, without ambiguity, what happened to product
// stock during the attempt.
type StockEffect string

const (
	// StockUntouched: the attempt failed before any reservation.
	StockUntouched StockEffect = "UNTOUCHED"
	// StockCommitted: reservations were converted to permanent decrements.
	StockCommitted StockEffect = "COMMITTED"
	// StockReleased: reservations made during this attempt were rolled back.
	StockReleased StockEffect = "RELEASED"
	// StockLeaked: compensation itself failed; reserved stock may still be
	// held and requires operator intervention.
	StockLeaked StockEffect = "LEAKED"
)

// Outcome is the terminal result of one fulfillment attempt.
type Outcome struct {
	Success        bool        `json:"success"`
	OrderID        string      `json:"orderId"`
	Stage          Stage       `json:"stage,omitempty"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	StockEffect    StockEffect `json:"stockEffect"`
	// Warnings carries non-fatal side-effect failures (notification,
	// analytics) attached to an otherwise successful outcome.
	Warnings []string `json:"warnings,omitempty"`
}

// Degraded reports whether the order was fulfilled but one or more
// best-effort side effects failed.
func (o Outcome) Degraded() bool {
	return o.Success && len(o.Warnings) > 0
}
