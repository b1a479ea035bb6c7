package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-recovery-api/internal/domain"
)

// IssueLimiter is a fixed-window per-address counter for single-instance
// runs. Stale windows are dropped lazily on the next Allow for that address.
type IssueLimiter struct {
	mu           sync.Mutex
	windows      map[string]*window
	window       time.Duration
	maxPerWindow int
	now          func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewIssueLimiter(d time.Duration, maxPerWindow int) *IssueLimiter {
	return &IssueLimiter{
		windows:      make(map[string]*window),
		window:       d,
		maxPerWindow: maxPerWindow,
		now:          time.Now,
	}
}

func (l *IssueLimiter) Allow(_ context.Context, address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[address]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[address] = &window{start: now, count: 1}
		return nil
	}
	w.count++
	if w.count > l.maxPerWindow {
		return domain.ErrRateLimited
	}
	return nil
}
