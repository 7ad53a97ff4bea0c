package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics is recorded by application services around every operation.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
}

// HandlerMetrics is recorded by the message handler wrapper.
type HandlerMetrics interface {
	RecordHandlerAttempt(ctx context.Context, handler string)
	RecordHandlerSuccess(ctx context.Context, handler string)
	RecordHandlerFailure(ctx context.Context, handler string)
	RecordHandlerDuration(ctx context.Context, handler string, d time.Duration)
}

// Metrics bundles every recorder the service exposes.
type Metrics struct {
	Operations OperationMetrics
	Handlers   HandlerMetrics
	Retries    *RetryMetrics
}

// NewNoopMetrics returns recorders that discard everything.
func NewNoopMetrics() Metrics {
	return Metrics{
		Operations: NoopOperationMetrics{},
		Handlers:   NoopHandlerMetrics{},
		Retries:    nil,
	}
}

// NewPrometheusMetrics registers every collector on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (Metrics, error) {
	ops := &prometheusOperationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "operation_attempts_total",
			Help: "Service operations started.",
		}, []string{"operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "operation_success_total",
			Help: "Service operations that completed with a success result.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "operation_failure_total",
			Help: "Service operations that returned an error.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scoring", Name: "operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	handlers := &prometheusHandlerMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "handler_attempts_total",
			Help: "Messages received per handler.",
		}, []string{"handler"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "handler_success_total",
			Help: "Messages handled without error.",
		}, []string{"handler"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "handler_failure_total",
			Help: "Messages whose handler returned an error.",
		}, []string{"handler"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scoring", Name: "handler_duration_seconds",
			Help:    "Message handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
	}

	retries := &RetryMetrics{
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "version_conflicts_total",
			Help: "Optimistic-lock conflicts observed by the retry runner.",
		}, []string{"operation"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoring", Name: "retry_exhausted_total",
			Help: "Operations that gave up after the retry budget.",
		}, []string{"operation"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scoring", Name: "retry_attempts",
			Help:    "Attempts taken per runner invocation.",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{
		ops.attempts, ops.successes, ops.failures, ops.duration,
		handlers.attempts, handlers.successes, handlers.failures, handlers.duration,
		retries.conflicts, retries.exhausted, retries.attempts,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return Metrics{}, err
		}
	}

	return Metrics{Operations: ops, Handlers: handlers, Retries: retries}, nil
}

type prometheusOperationMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func (m *prometheusOperationMetrics) RecordOperationAttempt(_ context.Context, op string) {
	m.attempts.WithLabelValues(op).Inc()
}

func (m *prometheusOperationMetrics) RecordOperationSuccess(_ context.Context, op string) {
	m.successes.WithLabelValues(op).Inc()
}

func (m *prometheusOperationMetrics) RecordOperationFailure(_ context.Context, op string) {
	m.failures.WithLabelValues(op).Inc()
}

func (m *prometheusOperationMetrics) RecordOperationDuration(_ context.Context, op string, d time.Duration) {
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

type prometheusHandlerMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func (m *prometheusHandlerMetrics) RecordHandlerAttempt(_ context.Context, h string) {
	m.attempts.WithLabelValues(h).Inc()
}

func (m *prometheusHandlerMetrics) RecordHandlerSuccess(_ context.Context, h string) {
	m.successes.WithLabelValues(h).Inc()
}

func (m *prometheusHandlerMetrics) RecordHandlerFailure(_ context.Context, h string) {
	m.failures.WithLabelValues(h).Inc()
}

func (m *prometheusHandlerMetrics) RecordHandlerDuration(_ context.Context, h string, d time.Duration) {
	m.duration.WithLabelValues(h).Observe(d.Seconds())
}

// RetryMetrics satisfies versioned.RunnerMetrics.
type RetryMetrics struct {
	conflicts *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	attempts  *prometheus.HistogramVec
}

func (m *RetryMetrics) RecordConflict(_ context.Context, op string) {
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *RetryMetrics) RecordExhausted(_ context.Context, op string) {
	m.exhausted.WithLabelValues(op).Inc()
}

func (m *RetryMetrics) RecordAttempts(_ context.Context, op string, n int) {
	m.attempts.WithLabelValues(op).Observe(float64(n))
}

type NoopOperationMetrics struct{}

func (NoopOperationMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoopOperationMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoopOperationMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoopOperationMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}

type NoopHandlerMetrics struct{}

func (NoopHandlerMetrics) RecordHandlerAttempt(context.Context, string)                 {}
func (NoopHandlerMetrics) RecordHandlerSuccess(context.Context, string)                 {}
func (NoopHandlerMetrics) RecordHandlerFailure(context.Context, string)                 {}
func (NoopHandlerMetrics) RecordHandlerDuration(context.Context, string, time.Duration) {}
