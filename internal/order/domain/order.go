package domain

import (
	"time"

	"github.com/shopspring/decimal"

	payment "github.com/orderflow/fulfillment/internal/payment/domain"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusFailed     OrderStatus = "FAILED"
)

// validNext encodes the monotonic status machine: an order never moves
// backward, and COMPLETED/FAILED are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:    {StatusProcessing: true, StatusFailed: true},
	StatusProcessing: {StatusShipped: true, StatusFailed: true},
	StatusShipped:    {StatusCompleted: true, StatusFailed: true},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Order struct {
	ID        string
	UserID    string
	UserEmail string
	Items     []OrderItem
	Total     decimal.Decimal
	Status    OrderStatus
	Payments  []payment.Payment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is immutable once the order exists: PriceAtPurchase is captured
// at creation time and never recomputed from the current product price.
type OrderItem struct {
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
	StockOnHand     int
}

func NewOrder(id, userID, userEmail string, items []OrderItem) Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	now := time.Now().UTC()
	return Order{
		ID:        id,
		UserID:    userID,
		UserEmail: userEmail,
		Items:     items,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
