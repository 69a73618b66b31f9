package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/coursefind/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 500
	// NoMinScore keeps every ranked result.
	NoMinScore     = -1.0
)

// Request is a validated search query.
type Request struct {
	query    string
	topK     int
	minScore float64
}

// New validates and normalizes search parameters.
// topK <= 0 selects DefaultTopK; values above MaxTopK are clamped.
func New(query string, topK int, minScore float64) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if minScore < -1 || minScore > 1 {
		return Request{}, fmt.Errorf("min_score must be between -1 and 1: %w", domain.ErrInvalidRequest)
	}

	return Request{query: query, topK: topK, minScore: minScore}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// MinScore returns the similarity threshold applied after ranking.
func (r *Request) MinScore() float64 { return r.minScore }
