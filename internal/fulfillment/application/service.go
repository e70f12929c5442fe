package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	fulfillment "github.com/orderflow/fulfillment/internal/fulfillment/domain"
	inventory "github.com/orderflow/fulfillment/internal/inventory/domain"
	order "github.com/orderflow/fulfillment/internal/order/domain"
	payment "github.com/orderflow/fulfillment/internal/payment/application"
)

// Config bounds the external collaborator calls. Zero values fall back to
// the defaults below.
type Config struct {
	ShipmentTimeout time.Duration
	SinkTimeout     time.Duration
}

const (
	defaultShipmentTimeout = 10 * time.Second
	defaultSinkTimeout     = 3 * time.Second
)

// Service drives an order through the fulfillment states. All collaborators
// are injected; the service holds no global state besides them.
type Service struct {
	log       *slog.Logger
	orders    OrderRepository
	inv       Inventory
	gateway   ShipmentGateway
	shipments ShipmentRepository
	notifier  NotificationSink
	analytics AnalyticsSink
	emitter   StageEmitter
	locks     Locker
	tracer    trace.Tracer
	cfg       Config
}

func NewService(
	log *slog.Logger,
	orders OrderRepository,
	inv Inventory,
	gateway ShipmentGateway,
	shipments ShipmentRepository,
	notifier NotificationSink,
	analytics AnalyticsSink,
	emitter StageEmitter,
	locks Locker,
	cfg Config,
) *Service {
	if cfg.ShipmentTimeout <= 0 {
		cfg.ShipmentTimeout = defaultShipmentTimeout
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	return &Service{
		log:       log,
		orders:    orders,
		inv:       inv,
		gateway:   gateway,
		shipments: shipments,
		notifier:  notifier,
		analytics: analytics,
		emitter:   emitter,
		locks:     locks,
		tracer:    otel.Tracer("fulfillment"),
		cfg:       cfg,
	}
}

// attempt tracks the machine position of one Fulfill call and emits a stage
// event at every transition.
type attempt struct {
	svc     *Service
	span    trace.Span
	orderID string
	state   fulfillment.State
}

func (a *attempt) advance(stage fulfillment.Stage, to fulfillment.State, start time.Time) {
	a.span.AddEvent(string(stage), trace.WithAttributes(
		attribute.String("to_state", string(to)),
		attribute.Bool("success", true),
	))
	a.svc.emitter.Emit(fulfillment.StageEvent{
		OrderID:   a.orderID,
		Stage:     stage,
		FromState: a.state,
		ToState:   to,
		Duration:  time.Since(start),
		Success:   true,
		Timestamp: time.Now().UTC(),
	})
	a.state = to
}

func (a *attempt) fail(stage fulfillment.Stage, start time.Time, reason string) {
	a.span.AddEvent(string(stage), trace.WithAttributes(
		attribute.Bool("success", false),
		attribute.String("reason", reason),
	))
	a.svc.emitter.Emit(fulfillment.StageEvent{
		OrderID:   a.orderID,
		Stage:     stage,
		FromState: a.state,
		ToState:   fulfillment.StateFailed,
		Duration:  time.Since(start),
		Success:   false,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	a.state = fulfillment.StateFailed
}

// warn reports a non-fatal side-effect failure without moving the machine.
func (a *attempt) warn(stage fulfillment.Stage, start time.Time, reason string) {
	a.svc.emitter.Emit(fulfillment.StageEvent{
		OrderID:   a.orderID,
		Stage:     stage,
		FromState: a.state,
		ToState:   a.state,
		Duration:  time.Since(start),
		Success:   false,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

// Fulfill drives the order through validate, inventory check, reserve,
// payment confirmation, shipment and the best-effort sinks, compensating
// reserved stock on any fatal failure past the reserve stage. The returned
// outcome is always terminal and always states the stock effect.
func (s *Service) Fulfill(ctx context.Context, orderID string) fulfillment.Outcome {
	ctx, span := s.tracer.Start(ctx, "Fulfill",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	acquired, err := s.locks.Acquire(ctx, orderID)
	if err != nil {
		return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched,
			fmt.Errorf("acquire fulfillment lock: %w", err))
	}
	if !acquired {
		return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched,
			fulfillment.ErrFulfillmentInProgress)
	}
	defer s.locks.Release(context.WithoutCancel(ctx), orderID)

	a := &attempt{svc: s, span: span, orderID: orderID, state: fulfillment.StatePending}

	// Stage 1: validate.
	start := time.Now()
	o, err := s.orders.GetForFulfillment(ctx, orderID)
	if err != nil {
		a.fail(fulfillment.StageValidate, start, err.Error())
		if errors.Is(err, fulfillment.ErrOrderNotFound) {
			return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched, err)
		}
		return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched,
			fmt.Errorf("load order: %w", err))
	}
	if o.Status != order.StatusPending {
		err := fmt.Errorf("%w: status %s", fulfillment.ErrInvalidState, o.Status)
		a.fail(fulfillment.StageValidate, start, err.Error())
		return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched, err)
	}
	if err := validateOrder(o); err != nil {
		a.fail(fulfillment.StageValidate, start, err.Error())
		return s.failure(orderID, fulfillment.StageValidate, fulfillment.StockUntouched, err)
	}
	a.advance(fulfillment.StageValidate, fulfillment.StateValidating, start)

	lines := reservationLines(o)

	// Stage 2: check inventory. Read-only; the reserve stage re-verifies
	// under lock.
	start = time.Now()
	shortfalls, err := s.inv.CheckAvailability(ctx, lines)
	if err != nil {
		a.fail(fulfillment.StageInventoryCheck, start, err.Error())
		return s.failure(orderID, fulfillment.StageInventoryCheck, fulfillment.StockUntouched,
			fmt.Errorf("check inventory: %w", err))
	}
	if len(shortfalls) > 0 {
		err := shortfallError(shortfalls)
		a.fail(fulfillment.StageInventoryCheck, start, err.Error())
		return s.failure(orderID, fulfillment.StageInventoryCheck, fulfillment.StockUntouched, err)
	}
	a.advance(fulfillment.StageInventoryCheck, fulfillment.StateInventoryChecked, start)

	// Stage 3: reserve, all-or-nothing across the order's lines.
	start = time.Now()
	shortfalls, err = s.inv.ReserveAll(ctx, orderID, lines)
	if err != nil {
		a.fail(fulfillment.StageReserve, start, err.Error())
		return s.failure(orderID, fulfillment.StageReserve, fulfillment.StockUntouched,
			fmt.Errorf("reserve inventory: %w", err))
	}
	if len(shortfalls) > 0 {
		err := shortfallError(shortfalls)
		a.fail(fulfillment.StageReserve, start, err.Error())
		return s.failure(orderID, fulfillment.StageReserve, fulfillment.StockUntouched, err)
	}
	a.advance(fulfillment.StageReserve, fulfillment.StateReserved, start)

	// Cancellation after reserve runs the same compensation path as a
	// payment failure: stock must never stay decremented on a cancelled
	// attempt.
	if err := ctx.Err(); err != nil {
		a.fail(fulfillment.StagePayment, time.Now(), fulfillment.ErrCancelled.Error())
		return s.compensate(ctx, a, fulfillment.StagePayment, fulfillment.ErrCancelled)
	}

	// Stage 4: confirm payment (pure read-side check, exact decimal match).
	start = time.Now()
	if err := payment.Confirm(o.Total, o.Payments); err != nil {
		err = fmt.Errorf("%w: %v", fulfillment.ErrPaymentMismatch, err)
		a.fail(fulfillment.StagePayment, start, err.Error())
		return s.compensate(ctx, a, fulfillment.StagePayment, err)
	}
	a.advance(fulfillment.StagePayment, fulfillment.StatePaymentConfirmed, start)

	// Stage 5: advance persisted status.
	start = time.Now()
	if err := s.orders.UpdateStatus(ctx, orderID, order.StatusPending, order.StatusProcessing); err != nil {
		a.fail(fulfillment.StageAdvanceStatus, start, err.Error())
		return s.compensate(ctx, a, fulfillment.StageAdvanceStatus,
			fmt.Errorf("advance status: %w", err))
	}
	a.advance(fulfillment.StageAdvanceStatus, fulfillment.StateProcessing, start)

	// Stage 6: create shipment through the gateway, bounded timeout.
	start = time.Now()
	shipCtx, cancel := context.WithTimeout(ctx, s.cfg.ShipmentTimeout)
	shp, err := s.gateway.CreateShipment(shipCtx, orderID, o.Items)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %v", fulfillment.ErrShipmentGateway, err)
		a.fail(fulfillment.StageShipment, start, err.Error())
		if revertErr := s.orders.UpdateStatus(ctx, orderID, order.StatusProcessing, order.StatusFailed); revertErr != nil {
			s.log.Error("status revert failed after shipment failure",
				"order_id", orderID, "err", revertErr)
		}
		return s.compensate(ctx, a, fulfillment.StageShipment, err)
	}
	if err := s.shipments.Save(ctx, shp); err != nil {
		err = fmt.Errorf("%w: persist shipment: %v", fulfillment.ErrShipmentGateway, err)
		a.fail(fulfillment.StageShipment, start, err.Error())
		if revertErr := s.orders.UpdateStatus(ctx, orderID, order.StatusProcessing, order.StatusFailed); revertErr != nil {
			s.log.Error("status revert failed after shipment failure",
				"order_id", orderID, "err", revertErr)
		}
		return s.compensate(ctx, a, fulfillment.StageShipment, err)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, order.StatusProcessing, order.StatusShipped); err != nil {
		a.fail(fulfillment.StageShipment, start, err.Error())
		return s.compensate(ctx, a, fulfillment.StageShipment,
			fmt.Errorf("mark shipped: %w", err))
	}
	a.advance(fulfillment.StageShipment, fulfillment.StateShipped, start)

	// Point of no return: the order is shipped, so the holds become
	// permanent decrements. A failure here cannot be rolled back; it is
	// surfaced loudly and left for the operator.
	warnings := s.commitReservations(ctx, a, orderID)

	// Stage 7: best-effort sinks, dispatched concurrently with their own
	// timeouts. Failures degrade the outcome, they never fail it.
	warnings = append(warnings, s.dispatchSinks(ctx, a, o, shp.TrackingNumber)...)

	// Stage 8: terminal status.
	start = time.Now()
	if err := s.orders.UpdateStatus(ctx, orderID, order.StatusShipped, order.StatusCompleted); err != nil {
		a.fail(fulfillment.StageComplete, start, err.Error())
		return s.failure(orderID, fulfillment.StageComplete, fulfillment.StockCommitted,
			fmt.Errorf("complete order: %w", err))
	}
	a.advance(fulfillment.StageComplete, fulfillment.StateCompleted, start)

	span.SetAttributes(attribute.Bool("fulfillment.degraded", len(warnings) > 0))
	return fulfillment.Outcome{
		Success:        true,
		OrderID:        orderID,
		TrackingNumber: shp.TrackingNumber,
		StockEffect:    fulfillment.StockCommitted,
		Warnings:       warnings,
	}
}

// compensate releases every reservation made during this attempt before
// surfacing the stage error. A failed release is worse than the original
// failure: it leaves stock decremented with a dangling hold, so it is
// escalated and marked LEAKED on the outcome.
func (s *Service) compensate(ctx context.Context, a *attempt, stage fulfillment.Stage, cause error) fulfillment.Outcome {
	releaseCtx := context.WithoutCancel(ctx)
	if err := s.inv.ReleaseOrder(releaseCtx, a.orderID); err != nil {
		s.log.Error("reservation release failed, stock may be leaked",
			"order_id", a.orderID, "stage", stage, "err", err)
		a.warn(stage, time.Now(), fulfillment.ErrCompensation.Error())
		return s.failure(a.orderID, stage, fulfillment.StockLeaked,
			fmt.Errorf("%w: %v (original: %v)", fulfillment.ErrCompensation, err, cause))
	}
	return s.failure(a.orderID, stage, fulfillment.StockReleased, cause)
}

func (s *Service) commitReservations(ctx context.Context, a *attempt, orderID string) []string {
	if err := s.inv.CommitOrder(context.WithoutCancel(ctx), orderID); err != nil {
		// The order shipped, so the decrement must stand. Leaving the rows
		// RESERVED exposes them to background reclamation, which would
		// wrongly restore stock for a shipped order.
		s.log.Error("reservation commit failed after shipment, needs operator attention",
			"order_id", orderID, "err", err)
		a.warn(fulfillment.StageShipment, time.Now(), "reservation commit failed")
		return []string{"reservation commit failed: holds not finalized"}
	}
	return nil
}

func (s *Service) dispatchSinks(ctx context.Context, a *attempt, o order.Order, trackingNumber string) []string {
	ctx = context.WithoutCancel(ctx)
	state := a.state
	var (
		mu       sync.Mutex
		warnings []string
		wg       sync.WaitGroup
	)
	// The sinks run concurrently, so they emit through the emitter directly
	// instead of mutating the attempt. Neither moves the machine.
	report := func(stage fulfillment.Stage, start time.Time, cause error) {
		s.emitter.Emit(fulfillment.StageEvent{
			OrderID:   o.ID,
			Stage:     stage,
			FromState: state,
			ToState:   state,
			Duration:  time.Since(start),
			Success:   cause == nil,
			Reason:    reasonOf(cause),
			Timestamp: time.Now().UTC(),
		})
		if cause != nil {
			mu.Lock()
			warnings = append(warnings, cause.Error())
			mu.Unlock()
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		nctx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
		defer cancel()
		if err := s.notifier.Notify(nctx, o.ID, o.UserEmail); err != nil {
			report(fulfillment.StageNotify, start, fmt.Errorf("%w: %v", fulfillment.ErrNotification, err))
			return
		}
		report(fulfillment.StageNotify, start, nil)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		actx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
		defer cancel()
		payload := map[string]any{
			"event":           "order_fulfilled",
			"total":           o.Total.String(),
			"items":           len(o.Items),
			"tracking_number": trackingNumber,
		}
		if err := s.analytics.Record(actx, o.ID, payload); err != nil {
			report(fulfillment.StageAnalytics, start, fmt.Errorf("%w: %v", fulfillment.ErrAnalytics, err))
			return
		}
		report(fulfillment.StageAnalytics, start, nil)
	}()
	wg.Wait()
	return warnings
}

func reasonOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Service) failure(orderID string, stage fulfillment.Stage, effect fulfillment.StockEffect, err error) fulfillment.Outcome {
	s.log.Warn("fulfillment failed",
		"order_id", orderID, "stage", stage, "stock_effect", effect, "err", err)
	return fulfillment.Outcome{
		Success:     false,
		OrderID:     orderID,
		Stage:       stage,
		Reason:      err.Error(),
		StockEffect: effect,
	}
}

func validateOrder(o order.Order) error {
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", fulfillment.ErrValidationFailed)
	}
	if o.UserID == "" {
		return fmt.Errorf("%w: order has no owner", fulfillment.ErrValidationFailed)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: non-positive quantity for product %s",
				fulfillment.ErrValidationFailed, item.ProductID)
		}
	}
	return nil
}

func reservationLines(o order.Order) []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func shortfallError(shortfalls []inventory.Shortfall) error {
	sf := shortfalls[0]
	return fmt.Errorf("%w: product %s requested %d available %d (%d products short)",
		fulfillment.ErrInsufficientInventory, sf.ProductID, sf.Requested, sf.Available, len(shortfalls))
}
