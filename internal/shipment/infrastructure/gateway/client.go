package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	order "github.com/orderflow/fulfillment/internal/order/domain"
	"github.com/orderflow/fulfillment/internal/shipment/domain"
)

// Client talks to the external carrier API. Every call is bounded by the
// caller's context; the resty client adds its own hard timeout and a small
// retry budget on top.
type Client struct {
	log  *slog.Logger
	http *resty.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &Client{log: log, http: c}
}

type createShipmentReq struct {
	OrderID string             `json:"orderId"`
	Items   []shipmentItemJSON `json:"items"`
}

type shipmentItemJSON struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createShipmentResp struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

func (c *Client) CreateShipment(ctx context.Context, orderID string, items []order.OrderItem) (domain.Shipment, error) {
	req := createShipmentReq{OrderID: orderID}
	for _, item := range items {
		req.Items = append(req.Items, shipmentItemJSON{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	var out createShipmentResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/shipments")
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("shipment gateway: %w", err)
	}
	if resp.IsError() {
		return domain.Shipment{}, fmt.Errorf("shipment gateway: status %d", resp.StatusCode())
	}
	if out.TrackingNumber == "" {
		return domain.Shipment{}, fmt.Errorf("shipment gateway: empty tracking number")
	}

	return domain.Shipment{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		TrackingNumber: out.TrackingNumber,
		Carrier:        out.Carrier,
		Status:         domain.StatusProcessing,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
