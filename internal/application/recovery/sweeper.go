package recovery

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired passcode records. The sweep is a
// delete-by-predicate, so it is idempotent and safe to run from several
// workers at once; DynamoDB's TTL eviction covers the same ground eventually.
type Sweeper struct {
	store    PasscodeStore
	interval time.Duration
}

func NewSweeper(store PasscodeStore, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				slog.Warn("passcode sweep failed", "err", err)
			}
		}
	}
}

// SweepOnce deletes every record whose expiry is in the past and returns the
// count.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("swept expired passcodes", "count", n)
	}
	return n, nil
}
