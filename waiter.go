package zetsubou

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StatusSource is the network boundary the waiter polls for job state.
// *JobsService implements it; tests substitute fakes.
type StatusSource interface {
	Get(ctx context.Context, jobID string) (*Job, error)
}

// Default polling parameters for WaitForCompletion.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// defaultPollRetries bounds consecutive transient failures tolerated while
// polling.
const defaultPollRetries = 3

// defaultMaxIntervalFactor caps grown intervals at Interval times this.
const defaultMaxIntervalFactor = 8

// PollConfig governs one WaitForCompletion call. The zero value selects all
// defaults. A config is never mutated during a wait.
type PollConfig struct {
	// Interval is the sleep between polls. Default 2s.
	Interval time.Duration

	// Timeout is the overall wall-clock deadline. Default 5m.
	Timeout time.Duration

	// Multiplier optionally grows the interval after each sleep, up to
	// MaxInterval. Values at or below 1 keep a constant cadence (the
	// default).
	Multiplier float64

	// MaxInterval caps grown intervals and transient-retry delays.
	// Default Interval times 8.
	MaxInterval time.Duration

	// MaxRetries is the number of consecutive transient poll failures
	// tolerated before surfacing the error. Default 3.
	MaxRetries int
}

func (cfg PollConfig) withDefaults() PollConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollTimeout
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = cfg.Interval * defaultMaxIntervalFactor
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultPollRetries
	}
	return cfg
}

// WaitForCompletion polls src until the job reaches a terminal state
// (completed, failed, cancelled), then returns the final snapshot. A
// job-reported failure is a normal return, not an error; errors mean the
// deadline expired, the context was cancelled, or communication with the
// status source failed.
//
// The waiter sleeps between polls and never issues another poll after
// observing a terminal status. Transient source errors are retried up to
// cfg.MaxRetries consecutive times with delays grown from the interval;
// rate-limited polls sleep the server-provided Retry-After instead of the
// configured interval. Authentication, validation, and not-found errors
// surface immediately. None of this extends the deadline.
//
// Cancellation is checked before every poll and during every sleep: a
// context cancelled before the first poll returns ctx.Err() with no network
// call. Concurrent waits for different jobs are independent.
func WaitForCompletion(ctx context.Context, src StatusSource, jobID string, cfg PollConfig) (*Job, error) {
	if jobID == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "job id is required"}
	}
	cfg = cfg.withDefaults()

	start := time.Now()
	interval := cfg.Interval
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := interval
		job, err := src.Get(ctx, jobID)
		switch {
		case err == nil:
			if job.Status.Terminal() {
				return job, nil
			}
			retries = 0
		case IsRateLimit(err):
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				next = apiErr.RetryAfter
			}
		case IsTransient(err):
			retries++
			if retries > cfg.MaxRetries {
				return nil, err
			}
			next = retryDelay(cfg.Interval, retries, cfg.MaxInterval)
		default:
			return nil, err
		}

		elapsed := time.Since(start)
		if elapsed >= cfg.Timeout {
			return nil, &Error{
				Kind:    ErrorKindTimeout,
				Message: fmt.Sprintf("job %s did not reach a terminal state within %s", jobID, cfg.Timeout),
			}
		}
		if remaining := cfg.Timeout - elapsed; next > remaining {
			next = remaining
		}

		if err := sleepContext(ctx, next); err != nil {
			return nil, err
		}

		if cfg.Multiplier > 1 {
			interval = time.Duration(float64(interval) * cfg.Multiplier)
			if interval > cfg.MaxInterval {
				interval = cfg.MaxInterval
			}
		}
	}
}

// retryDelay is the sleep before transient retry number attempt: the poll
// interval doubled per attempt, capped at max.
func retryDelay(interval time.Duration, attempt int, max time.Duration) time.Duration {
	d := interval << (attempt - 1)
	if d <= 0 || d > max {
		return max
	}
	return d
}
