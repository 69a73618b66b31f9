package rank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
)

// Ranker scores a query vector against an index.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, query []float32, idx *corpus.Index, topK int) ([]result.Result, error)
}

// New returns the ranker registered under name ("" selects exact).
func New(name string, cfg ApproximateConfig, logger *zap.Logger) (Ranker, error) {
	switch name {
	case "", NameExact:
		return NewExact(), nil
	case NameHNSW:
		return NewApproximate(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown ranker %q", name)
	}
}
