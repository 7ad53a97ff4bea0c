package versioned

import "context"

// RunnerMetrics observes retry behaviour.
type RunnerMetrics interface {
	RecordConflict(ctx context.Context, operation string)
	RecordExhausted(ctx context.Context, operation string)
	RecordAttempts(ctx context.Context, operation string, attempts int)
}

// NoopRunnerMetrics discards everything.
type NoopRunnerMetrics struct{}

func (NoopRunnerMetrics) RecordConflict(context.Context, string)      {}
func (NoopRunnerMetrics) RecordExhausted(context.Context, string)     {}
func (NoopRunnerMetrics) RecordAttempts(context.Context, string, int) {}
