package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardChain(t *testing.T) {
	chain := []State{
		StatePending, StateValidating, StateInventoryChecked, StateReserved,
		StatePaymentConfirmed, StateProcessing, StateShipped, StateCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, CanTransition(chain[i], chain[i+1]),
			"%s -> %s should be allowed", chain[i], chain[i+1])
	}
}

func TestCanTransitionRejectsBackward(t *testing.T) {
	assert.False(t, CanTransition(StateProcessing, StatePending))
	assert.False(t, CanTransition(StateShipped, StateReserved))
	assert.False(t, CanTransition(StateValidating, StateProcessing), "no skipping states")
}

func TestFailedReachableFromAnyNonTerminal(t *testing.T) {
	for _, s := range []State{
		StatePending, StateValidating, StateInventoryChecked, StateReserved,
		StatePaymentConfirmed, StateProcessing, StateShipped,
	} {
		assert.True(t, CanTransition(s, StateFailed), "FAILED should be reachable from %s", s)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []State{StateCompleted, StateFailed} {
		assert.True(t, terminal.Terminal())
		for _, to := range []State{StatePending, StateProcessing, StateCompleted, StateFailed} {
			assert.False(t, CanTransition(terminal, to),
				"no transition may leave %s", terminal)
		}
	}
}
