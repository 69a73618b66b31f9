package coursefind

import "github.com/kailas-cloud/coursefind/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyCorpus       = domain.ErrEmptyCorpus
	ErrEncoding          = domain.ErrEncoding
	ErrTimeout           = domain.ErrTimeout
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrInvalidCourse     = domain.ErrInvalidCourse
	ErrInvalidRequest    = domain.ErrInvalidRequest
)
