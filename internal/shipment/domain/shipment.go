package domain

import "time"

type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusInTransit  Status = "IN_TRANSIT"
	StatusDelivered  Status = "DELIVERED"
)

// Shipment is created exactly once per order, during fulfillment.
type Shipment struct {
	ID             string
	OrderID        string
	TrackingNumber string
	Carrier        string
	Status         Status
	CreatedAt      time.Time
}
