package inflight

import (
	"context"
	"sync"
)

// MemoryLocker is an in-process per-order mutual exclusion set.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(_ context.Context, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[orderID] {
		return false, nil
	}
	l.held[orderID] = true
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, orderID)
}
