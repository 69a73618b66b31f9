// Package rank scores a query vector against a corpus index and returns the
// top-k courses by cosine similarity.
package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	"github.com/kailas-cloud/coursefind/internal/domain/vector"
)

// Ranker names.
const (
	NameExact = "exact"
	NameHNSW  = "hnsw"
)

// Exact scores every entry once: O(n*d) per query.
type Exact struct{}

// NewExact creates a brute-force ranker.
func NewExact() *Exact { return &Exact{} }

// Name returns the ranker name used in metrics.
func (*Exact) Name() string { return NameExact }

// Rank returns up to topK results ordered by descending cosine similarity,
// ties broken by corpus order. topK <= 0 yields an empty slice.
func (*Exact) Rank(ctx context.Context, query []float32, idx *corpus.Index, topK int) ([]result.Result, error) {
	if err := checkDimension(query, idx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	if topK <= 0 {
		return []result.Result{}, nil
	}

	cands := make([]scored, idx.Len())
	for i := range cands {
		e := idx.Entry(i)
		cands[i] = scored{pos: i, score: vector.Cosine(query, e.Vector())}
	}
	return top(idx, cands, topK), nil
}

type scored struct {
	pos   int
	score float64
}

// top sorts candidates by score descending (stable on position) and converts
// the first topK to results.
func top(idx *corpus.Index, cands []scored, topK int) []result.Result {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].pos < cands[j].pos
	})
	n := min(topK, len(cands))
	out := make([]result.Result, n)
	for i := 0; i < n; i++ {
		e := idx.Entry(cands[i].pos)
		out[i] = result.New(e.Course(), cands[i].score, i+1)
	}
	return out
}

func checkDimension(query []float32, idx *corpus.Index) error {
	if len(query) != idx.Dimension() {
		return domain.NewDimensionMismatch(idx.Dimension(), len(query))
	}
	return nil
}
