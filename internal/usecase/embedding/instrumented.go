package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/metrics"
)

// DefaultMaxBatchSize is the largest number of texts sent to the encoder in one call.
const DefaultMaxBatchSize = 256

// InstrumentedEmbedder bounds every encoder call with a timeout, classifies
// failures into domain errors, and records metrics and logs.
type InstrumentedEmbedder struct {
	inner        domain.Embedder
	name         string
	timeout      time.Duration
	maxBatchSize int
	logger       *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. timeout <= 0 disables the bound;
// maxBatchSize <= 0 selects DefaultMaxBatchSize.
func NewInstrumentedEmbedder(
	inner domain.Embedder, timeout time.Duration, maxBatchSize int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &InstrumentedEmbedder{
		inner:        inner,
		name:         domain.EncoderName(inner),
		timeout:      timeout,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// Name returns the inner encoder name.
func (p *InstrumentedEmbedder) Name() string { return p.name }

// HealthCheck delegates to the inner encoder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

// Embed delegates to the inner embedder within the timeout.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := bounded(ctx, p.timeout, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return p.inner.Embed(ctx, text)
	})

	duration := time.Since(start)

	if err != nil {
		err = p.fail(err)
		p.logger.Error("Embedding request failed",
			zap.String("encoder", p.name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.succeed("single", duration, result.PromptTokens, result.TotalTokens)
	p.logger.Debug("Embedding request completed",
		zap.String("encoder", p.name),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into sub-batches of at most maxBatchSize and
// delegates each one; every sub-batch gets its own timeout.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	allEmbeddings := make([][]float32, 0, len(texts))
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += p.maxBatchSize {
		end := min(offset+p.maxBatchSize, len(texts))
		chunk := texts[offset:end]

		chunkStart := time.Now()
		res, err := bounded(ctx, p.timeout, func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
			return domain.BatchEmbed(ctx, p.inner, chunk)
		})
		if err != nil {
			err = p.fail(err)
			p.logger.Error("Batch embedding request failed",
				zap.String("encoder", p.name),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed (chunk %d): %w", offset, err)
		}
		if len(res.Embeddings) != len(chunk) {
			err := fmt.Errorf("encoder returned %d vectors for %d texts: %w",
				len(res.Embeddings), len(chunk), domain.ErrEncoding)
			return domain.BatchEmbeddingResult{}, p.fail(err)
		}
		p.succeed("batch", time.Since(chunkStart), res.PromptTokens, res.TotalTokens)

		allEmbeddings = append(allEmbeddings, res.Embeddings...)
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("encoder", p.name),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", totalTokens),
	)

	return domain.BatchEmbeddingResult{
		Embeddings:   allEmbeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

func (p *InstrumentedEmbedder) succeed(kind string, d time.Duration, prompt, total int) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(p.name, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(p.name, kind).Observe(d.Seconds())
	if total > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.name, "prompt").Add(float64(prompt))
		metrics.EmbeddingTokensTotal.WithLabelValues(p.name, "total").Add(float64(total))
	}
}

// fail records the error and makes sure it carries a domain sentinel.
func (p *InstrumentedEmbedder) fail(err error) error {
	metrics.EmbeddingRequestsTotal.WithLabelValues(p.name, "error").Inc()
	switch {
	case errors.Is(err, domain.ErrTimeout):
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.name, "timeout").Inc()
		return err
	case errors.Is(err, domain.ErrEncoding):
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.name, "encoding").Inc()
		return err
	default:
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.name, "unknown").Inc()
		return fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}
}

// bounded runs fn with a deadline and returns ErrTimeout once it passes,
// even if fn does not observe its context.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("after %s: %w", timeout, domain.ErrTimeout)
		}
		return out.val, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("after %s: %w", timeout, domain.ErrTimeout)
		}
		return zero, fmt.Errorf("%w: %w", domain.ErrEncoding, ctx.Err())
	}
}
