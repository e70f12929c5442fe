package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/fulfillment/internal/fulfillment/application"
	"github.com/orderflow/fulfillment/internal/fulfillment/domain"
)

// Fulfiller is the single operation the transport exposes.
type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string) domain.Outcome
}

type Handler struct {
	log     *slog.Logger
	service Fulfiller
	orders  application.OrderRepository
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service Fulfiller, orders application.OrderRepository) *Handler {
	return &Handler{
		log:     log,
		service: service,
		orders:  orders,
		tracer:  otel.Tracer("fulfillment-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/{orderID}/fulfill", h.fulfillOrder)
	r.Get("/orders/{orderID}", h.getOrder)
	return r
}

func (h *Handler) fulfillOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "FulfillOrder")
	defer span.End()

	orderID := chi.URLParam(r, "orderID")
	outcome := h.service.Fulfill(ctx, orderID)

	status := http.StatusOK
	if !outcome.Success {
		switch {
		case reasonIs(outcome, domain.ErrOrderNotFound):
			status = http.StatusNotFound
		case reasonIs(outcome, domain.ErrInvalidState), reasonIs(outcome, domain.ErrFulfillmentInProgress):
			status = http.StatusConflict
		default:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, outcome)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	o, err := h.orders.GetForFulfillment(r.Context(), orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		h.log.Error("get order failed", "order_id", orderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     o.ID,
		"userId": o.UserID,
		"status": o.Status,
		"total":  o.Total.String(),
		"items":  len(o.Items),
	})
}

// reasonIs matches the outcome's textual reason against a sentinel. Outcomes
// cross the wire as data, so the error chain is not available here.
func reasonIs(outcome domain.Outcome, sentinel error) bool {
	return strings.HasPrefix(outcome.Reason, sentinel.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
