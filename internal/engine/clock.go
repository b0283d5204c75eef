package engine

import (
	"context"
	"sync"

	"launchpad/internal/model"
)

// Clock supplies the execution time of each operation.
type Clock interface {
	Now(ctx context.Context) (model.BlockTime, error)
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now model.BlockTime
}

func NewManualClock(timestamp, number uint64) *ManualClock {
	return &ManualClock{now: model.BlockTime{Timestamp: timestamp, Number: number}}
}

func (c *ManualClock) Now(context.Context) (model.BlockTime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

// Advance moves the clock forward by seconds and blocks.
func (c *ManualClock) Advance(seconds, blocks uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now.Timestamp += seconds
	c.now.Number += blocks
}
