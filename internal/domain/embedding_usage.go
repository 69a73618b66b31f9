package domain

import "context"

type usageKey struct{}

// EmbeddingUsage tallies encoder tokens spent answering one search.
// Transports attach it with NewContextWithUsage and report it once the
// search returns. Used stays true for cache hits that cost zero tokens.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool
}

// NewContextWithUsage attaches an empty tally to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := new(EmbeddingUsage)
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the tally attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(usageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one encoder call. Safe on a nil tally.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.TotalTokens += n
	u.Used = true
}
