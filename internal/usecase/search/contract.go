package search

import (
	"context"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
)

// IndexProvider returns the index to search.
type IndexProvider interface {
	Index(ctx context.Context) (*corpus.Index, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ranker scores a query vector against an index.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, query []float32, idx *corpus.Index, topK int) ([]result.Result, error)
}
