package coursefind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/coursefind/internal/domain"
)

const metricsNamespace = "coursefind"

// observer logs and counts client operations. A nil observer is a no-op.
type observer struct {
	logger   *slog.Logger
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "Client operations by type and outcome.",
	}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "sdk",
		Name:      "operation_duration_seconds",
		Help:      "Client operation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if o.ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if o.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg. When an identical collector is already there,
// as with several clients sharing one registry, that one is returned.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("coursefind: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("coursefind: metric already registered as %T", are.ExistingCollector)
	}
	return existing, nil
}

func (o *observer) observe(op string, start time.Time, err error, attrs ...any) {
	if o == nil {
		return
	}
	took := time.Since(start)
	status := outcome(err)

	if o.ops != nil {
		o.ops.WithLabelValues(op, status).Inc()
		o.duration.WithLabelValues(op).Observe(took.Seconds())
	}

	if o.logger == nil {
		return
	}
	attrs = append([]any{"op", op, "status", status, "took", took}, attrs...)
	if err != nil {
		o.logger.Warn("coursefind operation failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("coursefind operation done", attrs...)
}

// outcome buckets errors by the sentinel callers are most likely to act on.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrEmptyCorpus):
		return "empty_corpus"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}
