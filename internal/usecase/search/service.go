// Package search embeds a query and ranks the course index against it.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/search/request"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	"github.com/kailas-cloud/coursefind/internal/domain/vector"
	"github.com/kailas-cloud/coursefind/internal/logger"
	"github.com/kailas-cloud/coursefind/internal/metrics"
)

// Service orchestrates query encoding and ranking.
type Service struct {
	indexes IndexProvider
	embed   Embedder
	ranker  Ranker
}

// New creates a search service.
func New(indexes IndexProvider, embed Embedder, ranker Ranker) *Service {
	return &Service{indexes: indexes, embed: embed, ranker: ranker}
}

// Search returns up to topK courses most similar to query, best first.
// The query is encoded once and the index ranked once; errors are not retried.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]result.Result, error) {
	start := time.Now()
	results, err := s.search(ctx, query, topK)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchDuration.WithLabelValues(s.ranker.Name(), status).Observe(time.Since(start).Seconds())

	logger.FromContext(ctx).Debug("Search finished",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return results, err
}

// SearchRequest runs a validated request and drops results scoring below its
// minimum. Ranks of the kept results are unchanged.
func (s *Service) SearchRequest(ctx context.Context, req *request.Request) ([]result.Result, error) {
	results, err := s.Search(ctx, req.Query(), req.TopK())
	if err != nil {
		return nil, err
	}
	return applyMinScore(results, req.MinScore()), nil
}

func (s *Service) search(ctx context.Context, query string, topK int) ([]result.Result, error) {
	idx, err := s.indexes.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	if idx.Len() == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)
	if vector.IsZero(emb.Embedding) {
		logger.FromContext(ctx).Debug("Query encoded to the zero vector, every course scores 0")
	}

	results, err := s.ranker.Rank(ctx, emb.Embedding, idx, topK)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	return results, nil
}

// applyMinScore keeps the leading results scoring at least minScore.
// Results are sorted by descending score, so the cut is a prefix.
func applyMinScore(results []result.Result, minScore float64) []result.Result {
	for i := range results {
		if results[i].Score() < minScore {
			return results[:i]
		}
	}
	return results
}
