package health

import (
	"context"

	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EncoderChecker checks encoder availability.
type EncoderChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexReader exposes the current index without building one.
type IndexReader interface {
	Current() *corpus.Index
}
