package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding signals that the encoder is unavailable or could not encode the input.
	ErrEncoding = errors.New("encoding failed")
	// ErrEmptyCorpus signals a search against an index with zero items.
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrTimeout signals that encoding exceeded the configured bound.
	ErrTimeout = errors.New("encoding timed out")
	// ErrDimensionMismatch signals vectors produced by different encoder configurations.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidCourse signals a course record rejected at the loading boundary.
	ErrInvalidCourse = errors.New("invalid course")
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSnapshotNotFound signals a missing persisted index.
	ErrSnapshotNotFound = errors.New("index snapshot not found")
	// ErrSnapshotStale signals a persisted index built from another corpus or encoder.
	ErrSnapshotStale = errors.New("index snapshot is stale")
)

// DimensionMismatchError wraps ErrDimensionMismatch with both dimensions.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: index has %d, query has %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}
