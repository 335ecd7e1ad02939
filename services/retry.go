package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// RetryPolicy bounds a retry loop. The wait before attempt n+1 is n*Backoff.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// wait sleeps after the given 1-based attempt unless it was the last one.
func (p RetryPolicy) wait(ctx context.Context, clock clockwork.Clock, attempt int) error {
	if attempt >= p.attempts() {
		return nil
	}
	d := time.Duration(attempt) * p.Backoff
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LedgerPolicy groups the retry budgets for ledger mutations.
type LedgerPolicy struct {
	Mutation RetryPolicy
	Verify   RetryPolicy
	Refresh  RetryPolicy
}

// DefaultLedgerPolicy is 3 mutation attempts, 5 read-backs and 3 refreshes.
func DefaultLedgerPolicy(backoff time.Duration) LedgerPolicy {
	return LedgerPolicy{
		Mutation: RetryPolicy{Attempts: 3, Backoff: backoff},
		Verify:   RetryPolicy{Attempts: 5, Backoff: backoff},
		Refresh:  RetryPolicy{Attempts: 3, Backoff: backoff},
	}
}
