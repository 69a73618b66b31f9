// Package index builds corpus indexes and decides when they are rebuilt.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
	"github.com/kailas-cloud/coursefind/internal/metrics"
)

// Builder defaults.
const (
	DefaultBatchSize = 64
	DefaultWorkers   = 4
)

// Builder encodes courses in batches, several batches in flight.
type Builder struct {
	embed     Embedder
	encoder   string
	dimension int
	batchSize int
	workers   int
	logger    *zap.Logger
}

// NewBuilder creates a builder for vectors of the given dimension.
func NewBuilder(embed Embedder, dimension int, logger *zap.Logger) *Builder {
	return &Builder{
		embed:     embed,
		encoder:   domain.EncoderName(embed),
		dimension: dimension,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		logger:    logger,
	}
}

// WithConcurrency configures batch size and the number of batches in flight.
func (b *Builder) WithConcurrency(batchSize, workers int) *Builder {
	if batchSize > 0 {
		b.batchSize = batchSize
	}
	if workers > 0 {
		b.workers = workers
	}
	return b
}

// Encoder returns the name of the encoder vectors are produced by.
func (b *Builder) Encoder() string { return b.encoder }

// Dimension returns the expected vector dimension.
func (b *Builder) Dimension() int { return b.dimension }

// Build encodes every course and returns an index in input order.
// Any failure aborts the build; a partial index is never returned.
func (b *Builder) Build(ctx context.Context, courses []course.Course) (*corpus.Index, error) {
	start := time.Now()
	idx, err := b.build(ctx, courses)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IndexBuildDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	b.logger.Info("Index built",
		zap.String("encoder", b.encoder),
		zap.Int("courses", idx.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return idx, nil
}

func (b *Builder) build(ctx context.Context, courses []course.Course) (*corpus.Index, error) {
	vectors := make([][]float32, len(courses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for lo := 0; lo < len(courses); lo += b.batchSize {
		lo := lo
		hi := min(lo+b.batchSize, len(courses))
		g.Go(func() error {
			return b.encodeBatch(gctx, courses[lo:hi], vectors[lo:hi])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]corpus.Entry, len(courses))
	for i := range courses {
		entries[i] = corpus.NewEntry(courses[i], vectors[i])
	}
	idx, err := corpus.New(b.encoder, b.dimension, entries)
	if err != nil {
		return nil, fmt.Errorf("assemble index: %w", err)
	}
	return idx, nil
}

// encodeBatch fills out, which is the slice range owned by this batch.
func (b *Builder) encodeBatch(ctx context.Context, batch []course.Course, out [][]float32) error {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	res, err := domain.BatchEmbed(ctx, b.embed, texts)
	if err != nil {
		return encodeError("batch starting at course "+batch[0].ID(), err)
	}
	if len(res.Embeddings) != len(batch) {
		return fmt.Errorf("encode batch starting at course %s: got %d vectors for %d texts: %w",
			batch[0].ID(), len(res.Embeddings), len(batch), domain.ErrEncoding)
	}
	for i, vec := range res.Embeddings {
		if len(vec) != b.dimension {
			return fmt.Errorf("encode course %s: vector has dimension %d, want %d: %w",
				batch[i].ID(), len(vec), b.dimension, domain.ErrEncoding)
		}
		out[i] = vec
	}
	return nil
}

// encodeError names what failed to encode, keeping timeouts distinct.
func encodeError(what string, err error) error {
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrEncoding) {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	return fmt.Errorf("encode %s: %v: %w", what, err, domain.ErrEncoding)
}
