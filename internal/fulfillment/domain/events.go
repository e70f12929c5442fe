package domain

import "time"

// StageEvent is emitted at every state transition of a fulfillment attempt.
// Consumers are fire-and-forget: emitting must never block or fail the
// pipeline.
type StageEvent struct {
	OrderID   string
	Stage     Stage
	FromState State
	ToState   State
	Duration  time.Duration
	Success   bool
	Reason    string
	Timestamp time.Time
}
