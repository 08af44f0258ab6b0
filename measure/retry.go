package measure

import (
	"context"
	"math"
	"time"
)

// RetryPolicy bounds the readiness polling loop of a measurement.
type RetryPolicy struct {
	// MaxAttempts is the number of readiness polls before giving up with
	// ErrTimeout. Zero or less polls forever.
	MaxAttempts int `yaml:"max_attempts"`
	// Interval is the pause after the first unsuccessful poll.
	Interval time.Duration `yaml:"interval"`
	// Backoff multiplies the pause after every further poll; values below 1 keep it constant.
	Backoff float64 `yaml:"backoff"`
	// MaxInterval caps the pause when positive.
	MaxInterval time.Duration `yaml:"max_interval"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 60,
		Interval:    time.Second,
		Backoff:     1,
	}
}

// Delay returns the pause following the given (1-based) failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Interval
	if p.Backoff > 1 && attempt > 1 {
		d = time.Duration(float64(d) * math.Pow(p.Backoff, float64(attempt-1)))
	}
	if p.MaxInterval > 0 && (d > p.MaxInterval || d < 0) {
		d = p.MaxInterval
	}
	return d
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
