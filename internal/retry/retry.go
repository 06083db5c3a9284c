// Package retry wraps remote calls with bounded, classified retries.
// The remote call sites (chat and vision completions, the hosted
// document service) normalize their failures into one
// transient/permanent classification before reaching the controller, so
// backoff logic lives in exactly one place.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/observability"
)

// Class is the failure classification driving retry decisions.
type Class int

const (
	// Transient failures (rate limit, 502-504, timeout) are retried with
	// exponential backoff.
	Transient Class = iota
	// Permanent failures (auth, malformed request) abort immediately.
	Permanent
)

// Classifier maps a failure onto a Class.
type Classifier func(error) Class

// ErrTimeout marks a call abandoned because the caller's deadline
// elapsed, regardless of remaining retry budget.
var ErrTimeout = errors.New("deadline elapsed")

// DefaultClassifier reads the taxonomy tags set by the call sites.
// Untagged errors count as transient so a flaky backend still gets its
// bounded retries.
func DefaultClassifier(err error) Class {
	if common.IsPermanent(err) {
		return Permanent
	}
	return Transient
}

// Controller retries an operation with exponential backoff.
type Controller struct {
	maxRetries int
	maxWait    time.Duration
	baseWait   time.Duration
	classify   Classifier
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithMaxWait(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

func WithClassifier(f Classifier) Option {
	return func(c *Controller) {
		if f != nil {
			c.classify = f
		}
	}
}

func NewController(logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		maxRetries: 3,
		maxWait:    30 * time.Second,
		baseWait:   500 * time.Millisecond,
		classify:   DefaultClassifier,
		logger:     logger,
		sleep:      sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do runs fn, retrying transient failures up to the retry budget.
// Permanent failures propagate immediately. If ctx's deadline elapses,
// outstanding retries are abandoned and the error carries ErrTimeout.
func (c *Controller) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	wait := c.baseWait
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrTimeout, common.ErrRemoteTransient)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) {
			return fmt.Errorf("%s: %w: %w", op, ErrTimeout, common.ErrRemoteTransient)
		}
		if c.classify(lastErr) == Permanent {
			c.logger.Error("retry.permanent", "op", op, "attempt", attempt+1, "error", lastErr)
			return fmt.Errorf("%s: %w", op, lastErr)
		}
		if attempt >= c.maxRetries {
			c.logger.Error("retry.exhausted", "op", op, "attempts", attempt+1, "error", lastErr)
			return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
		}

		observability.RetriesTotal.WithLabelValues(op).Inc()
		c.logger.Warn("retry.backoff",
			"op", op,
			"attempt", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"error", lastErr,
		)
		if err := c.sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrTimeout, common.ErrRemoteTransient)
		}
		wait *= 2
		if wait > c.maxWait {
			wait = c.maxWait
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
