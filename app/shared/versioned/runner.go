package versioned

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
)

// Policy bounds how the Runner retries conflicting attempts.
type Policy struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// DefaultPolicy is 100ms base, 1s cap, 3 retries (4 attempts in total).
func DefaultPolicy() Policy {
	return Policy{
		Base:       100 * time.Millisecond,
		Cap:        time.Second,
		MaxRetries: 3,
	}
}

// Attempts is the total number of times an operation may run.
func (p Policy) Attempts() int { return p.MaxRetries + 1 }

// TxFunc is one attempt. tx is nil when the Runner has no database.
type TxFunc func(ctx context.Context, tx bun.IDB) error

// Runner executes a TxFunc in a fresh transaction per attempt, retrying only on ErrVersionConflict.
type Runner struct {
	db      *bun.DB
	policy  Policy
	logger  *slog.Logger
	metrics RunnerMetrics
	timer   func() backoff.Timer
	jitter  func() float64
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(newTimer func() backoff.Timer) RunnerOption {
	return func(r *Runner) { r.timer = newTimer }
}

// WithJitter replaces the jitter source. f must return values in [0,1).
func WithJitter(f func() float64) RunnerOption {
	return func(r *Runner) { r.jitter = f }
}

// WithMetrics attaches retry metrics.
func WithMetrics(m RunnerMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner builds a Runner. db may be nil, in which case attempts run without a transaction.
func NewRunner(db *bun.DB, policy Policy, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		db:      db,
		policy:  policy,
		logger:  logger,
		metrics: NoopRunnerMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retry policy the Runner was built with.
func (r *Runner) Policy() Policy { return r.policy }

// Run executes fn until it succeeds, fails with a non-conflict error, or the
// retry budget is exhausted. Exhaustion returns an *ExhaustedError wrapping the last conflict.
func (r *Runner) Run(ctx context.Context, operation string, fn TxFunc) error {
	attempts := 0
	var lastConflict error

	op := func() error {
		attempts++
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrVersionConflict) {
			lastConflict = err
			r.metrics.RecordConflict(ctx, operation)
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		r.logger.DebugContext(ctx, "Version conflict, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	var b backoff.BackOff = newCappedExponential(r.policy.Base, r.policy.Cap, r.jitter)
	b = backoff.WithMaxRetries(b, uint64(max(r.policy.MaxRetries, 0)))
	b = backoff.WithContext(b, ctx)

	var timer backoff.Timer
	if r.timer != nil {
		timer = r.timer()
	}

	err := backoff.RetryNotifyWithTimer(op, b, notify, timer)
	if err == nil {
		r.metrics.RecordAttempts(ctx, operation, attempts)
		return nil
	}

	r.metrics.RecordAttempts(ctx, operation, attempts)
	if lastConflict != nil && errors.Is(err, ErrVersionConflict) {
		r.metrics.RecordExhausted(ctx, operation)
		r.logger.WarnContext(ctx, "Retry budget exhausted",
			slog.String("operation", operation),
			slog.Int("attempts", attempts),
		)
		return &ExhaustedError{Operation: operation, Attempts: attempts, Last: lastConflict}
	}
	return err
}

func (r *Runner) attempt(ctx context.Context, fn TxFunc) error {
	if r.db == nil {
		return fn(ctx, nil)
	}
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// Update runs ApplyUpdate under the Runner. Each attempt re-reads the record,
// so expected is refreshed from the conflict before the next attempt.
func Update[K comparable, T Record](
	ctx context.Context,
	r *Runner,
	operation string,
	store Store[K, T],
	id K,
	expected int64,
	mutate Mutation[T],
) (int64, error) {
	var version int64
	err := r.Run(ctx, operation, func(ctx context.Context, tx bun.IDB) error {
		v, err := ApplyUpdate(ctx, tx, store, id, expected, mutate)
		version = v
		if current, ok := CurrentVersion(err); ok {
			expected = current
		}
		return err
	})
	return version, err
}
