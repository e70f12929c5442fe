package application

import (
	"context"

	fulfillment "github.com/orderflow/fulfillment/internal/fulfillment/domain"
	inventory "github.com/orderflow/fulfillment/internal/inventory/domain"
	order "github.com/orderflow/fulfillment/internal/order/domain"
	shipment "github.com/orderflow/fulfillment/internal/shipment/domain"
)

// OrderRepository loads the order aggregate (items and payment history
// included) and applies guarded status updates. UpdateStatus must be a
// compare-and-set on the prior status so the machine never moves an order
// backward.
type OrderRepository interface {
	GetForFulfillment(ctx context.Context, id string) (order.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to order.OrderStatus) error
}

// Inventory exposes the only legal mutations of product stock. ReserveAll is
// all-or-nothing across the order's lines; ReleaseOrder and CommitOrder are
// idempotent.
type Inventory interface {
	CheckAvailability(ctx context.Context, lines []inventory.Line) ([]inventory.Shortfall, error)
	ReserveAll(ctx context.Context, orderID string, lines []inventory.Line) ([]inventory.Shortfall, error)
	ReleaseOrder(ctx context.Context, orderID string) error
	CommitOrder(ctx context.Context, orderID string) error
}

// ShipmentGateway is the external carrier API. Calls are made with a bounded
// timeout; a timeout is fatal and triggers compensation.
type ShipmentGateway interface {
	CreateShipment(ctx context.Context, orderID string, items []order.OrderItem) (shipment.Shipment, error)
}

type ShipmentRepository interface {
	Save(ctx context.Context, s shipment.Shipment) error
}

// NotificationSink and AnalyticsSink are best-effort collaborators: a failure
// surfaces as a warning on the outcome, never as a pipeline failure.
type NotificationSink interface {
	Notify(ctx context.Context, orderID, contact string) error
}

type AnalyticsSink interface {
	Record(ctx context.Context, orderID string, payload map[string]any) error
}

// StageEmitter consumes stage transition events. Implementations must not
// block and must not return errors into the pipeline.
type StageEmitter interface {
	Emit(ev fulfillment.StageEvent)
}

// Locker serializes fulfillment attempts per order id. Acquire returns false
// when another attempt holds the lock; Release is best-effort.
type Locker interface {
	Acquire(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string)
}
