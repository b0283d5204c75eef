package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalClockAdvancesBlocks(t *testing.T) {
	c := NewLocalClock(10)
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	first, err := c.Now(context.Background())
	if err != nil {
		t.Fatalf("now: %v", err)
	}
	second, _ := c.Now(context.Background())
	if first.Number != 11 || second.Number != 12 {
		t.Fatalf("block numbers = %d, %d", first.Number, second.Number)
	}
	if first.Timestamp != 1_700_000_000 {
		t.Fatalf("timestamp = %d", first.Timestamp)
	}
}

func TestRetryDoublesUntilSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("unavailable")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}
