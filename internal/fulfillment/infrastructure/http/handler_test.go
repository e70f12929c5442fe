package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment/internal/fulfillment/domain"
	order "github.com/orderflow/fulfillment/internal/order/domain"
)

type stubFulfiller struct {
	outcome domain.Outcome
}

func (s *stubFulfiller) Fulfill(context.Context, string) domain.Outcome {
	return s.outcome
}

type stubOrders struct {
	order order.Order
	err   error
}

func (s *stubOrders) GetForFulfillment(context.Context, string) (order.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) UpdateStatus(context.Context, string, order.OrderStatus, order.OrderStatus) error {
	return nil
}

func post(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestFulfillEndpointSuccess(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{outcome: domain.Outcome{
		Success:        true,
		OrderID:        "order-1",
		TrackingNumber: "TRK-1",
		StockEffect:    domain.StockCommitted,
	}}, &stubOrders{})

	rec := post(t, h, "/orders/order-1/fulfill")

	require.Equal(t, 200, rec.Code)
	var out domain.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "TRK-1", out.TrackingNumber)
}

func TestFulfillEndpointNotFound(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{outcome: domain.Outcome{
		Success:     false,
		OrderID:     "missing",
		Stage:       domain.StageValidate,
		Reason:      domain.ErrOrderNotFound.Error(),
		StockEffect: domain.StockUntouched,
	}}, &stubOrders{})

	rec := post(t, h, "/orders/missing/fulfill")
	assert.Equal(t, 404, rec.Code)
}

func TestFulfillEndpointConflictOnInvalidState(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{outcome: domain.Outcome{
		Success:     false,
		OrderID:     "order-1",
		Stage:       domain.StageValidate,
		Reason:      domain.ErrInvalidState.Error() + ": status COMPLETED",
		StockEffect: domain.StockUntouched,
	}}, &stubOrders{})

	rec := post(t, h, "/orders/order-1/fulfill")
	assert.Equal(t, 409, rec.Code)
}

func TestFulfillEndpointConflictWhenInProgress(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{outcome: domain.Outcome{
		Success:     false,
		OrderID:     "order-1",
		Reason:      domain.ErrFulfillmentInProgress.Error(),
		StockEffect: domain.StockUntouched,
	}}, &stubOrders{})

	rec := post(t, h, "/orders/order-1/fulfill")
	assert.Equal(t, 409, rec.Code)
}

func TestFulfillEndpointBadRequestOnStageFailure(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{outcome: domain.Outcome{
		Success:     false,
		OrderID:     "order-1",
		Stage:       domain.StagePayment,
		Reason:      domain.ErrPaymentMismatch.Error() + ": expected 24.99, got 10.00",
		StockEffect: domain.StockReleased,
	}}, &stubOrders{})

	rec := post(t, h, "/orders/order-1/fulfill")

	assert.Equal(t, 400, rec.Code)
	var out domain.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, domain.StockReleased, out.StockEffect)
}

func TestGetOrder(t *testing.T) {
	o := order.NewOrder("order-1", "user-1", "alice@example.com", nil)
	h := NewHandler(slog.Default(), &stubFulfiller{}, &stubOrders{order: o})

	req := httptest.NewRequest("GET", "/orders/order-1", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order-1", body["id"])
	assert.Equal(t, string(order.StatusPending), body["status"])
}

func TestGetOrderNotFound(t *testing.T) {
	h := NewHandler(slog.Default(), &stubFulfiller{}, &stubOrders{err: domain.ErrOrderNotFound})

	req := httptest.NewRequest("GET", "/orders/missing", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}
