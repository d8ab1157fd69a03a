package session

import (
	"context"
	"time"
)

// DefaultRetryInterval is used by WaitAttached for non-positive intervals
const DefaultRetryInterval = time.Second

// WaitAttached calls Attach until it succeeds or ctx is done, sleeping
// interval between attempts. onRetry, if set, sees every failed attempt.
// Each attempt releases the previous handle, so at most one is held at a time.
func (s *Session) WaitAttached(ctx context.Context, interval time.Duration, onRetry func(attempt int, err error)) error {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := s.Attach()
		if err == nil {
			return nil
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
