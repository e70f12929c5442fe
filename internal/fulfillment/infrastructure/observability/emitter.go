package observability

import (
	"log/slog"
	"sync"

	"github.com/orderflow/fulfillment/internal/fulfillment/domain"
)

// Emitter writes every stage transition as a structured log line and raises
// an alert line when a stage keeps failing across attempts. It never blocks
// and never reports errors back into the pipeline.
type Emitter struct {
	log *slog.Logger

	mu       sync.Mutex
	failures map[domain.Stage]int

	// alertThreshold is the consecutive-failure count per stage that
	// triggers an alert line.
	alertThreshold int
}

func NewEmitter(log *slog.Logger) *Emitter {
	return &Emitter{
		log:            log,
		failures:       make(map[domain.Stage]int),
		alertThreshold: 3,
	}
}

func (e *Emitter) Emit(ev domain.StageEvent) {
	attrs := []any{
		"order_id", ev.OrderID,
		"stage", string(ev.Stage),
		"from_state", string(ev.FromState),
		"to_state", string(ev.ToState),
		"duration_ms", ev.Duration.Milliseconds(),
		"success", ev.Success,
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}

	if ev.Success {
		e.log.Info("fulfillment stage", attrs...)
		e.resetFailures(ev.Stage)
		return
	}
	e.log.Warn("fulfillment stage failed", attrs...)

	if n := e.bumpFailures(ev.Stage); n >= e.alertThreshold {
		e.log.Error("alert: repeated stage failures",
			"stage", string(ev.Stage), "consecutive_failures", n)
	}
}

func (e *Emitter) bumpFailures(stage domain.Stage) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[stage]++
	return e.failures[stage]
}

func (e *Emitter) resetFailures(stage domain.Stage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failures, stage)
}
