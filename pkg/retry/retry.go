package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds backoff settings for a retried operation
type Config struct {
	Name         string
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Timeout bounds all attempts together; zero means only ctx bounds them
	Timeout time.Duration
	// OnRetry is called after a failed attempt that will be retried
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Startup returns the settings used while a dependency comes up. A required
// dependency gets a minute; optional ones should shorten it.
func Startup(name string) Config {
	return Config{
		Name:         name,
		MaxAttempts:  10,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Timeout:      time.Minute,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, runs out of
// attempts or the context ends. Each attempt receives the bounded context.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	name := cfg.Name
	if name == "" {
		name = "operation"
	}

	wait := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborted(name, attempt-1, err, lastErr)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("%s: %w", name, perm.err)
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return aborted(name, attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		wait = next(wait, cfg)
	}

	return fmt.Errorf("%s: gave up after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

func next(wait time.Duration, cfg Config) time.Duration {
	if cfg.Multiplier > 1 {
		wait = time.Duration(float64(wait) * cfg.Multiplier)
	}
	if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
		wait = cfg.MaxDelay
	}
	return wait
}

func aborted(name string, attempts int, ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%s: aborted: %w", name, ctxErr)
	}
	return fmt.Errorf("%s: aborted after %d attempts: %w (last error: %v)", name, attempts, ctxErr, lastErr)
}
