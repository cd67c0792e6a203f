// Package retry runs fallible operations with bounded retries and
// exponential backoff.
package retry

import "time"

// Policy controls how a failed operation is retried. Every error is treated
// as retryable: the single call this wraps is an idempotent read-then-decide
// request, so distinguishing transient from permanent failures buys nothing.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseBackoff is the delay before the first retry; each subsequent
	// retry doubles it.
	BaseBackoff time.Duration

	// Sleep is the backoff mechanism. Tests inject a recorder here to run
	// retries without wall-clock delay. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// Backoff returns the delay after the given zero-indexed failed attempt:
// BaseBackoff * 2^attempt.
func (p *Policy) Backoff(attempt int) time.Duration {
	return p.BaseBackoff << uint(attempt)
}

// Execute runs fn, retrying on failure up to MaxRetries times with
// exponential backoff between attempts. The last error is returned
// unchanged once retries are exhausted.
func (p *Policy) Execute(fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < p.MaxRetries {
			sleep(p.Backoff(attempt))
		}
	}
	return lastErr
}
