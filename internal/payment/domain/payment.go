package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

type Payment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Status    Status
	Method    string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}
