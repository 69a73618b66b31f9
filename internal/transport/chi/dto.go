package chi

import (
	"math"

	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/coursefind/internal/usecase/health"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeForbidden         ErrorCode = "forbidden"
	ErrorCodeEmptyCorpus       ErrorCode = "empty_corpus"
	ErrorCodeEncoderTimeout    ErrorCode = "encoder_timeout"
	ErrorCodeEncoderError      ErrorCode = "encoder_error"
	ErrorCodeDimensionMismatch ErrorCode = "dimension_mismatch"
	ErrorCodeInvalidCourse     ErrorCode = "invalid_course"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query    string   `json:"query"`
	TopK     *int     `json:"top_k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

// SearchResultItem is one ranked course.
type SearchResultItem struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	CourseLink  string  `json:"course_link"`
	Score       float64 `json:"score"`
	Relevance   float64 `json:"relevance"` // score as a percentage, two decimals
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query string             `json:"query"`
	TopK  int                `json:"top_k"`
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// RefreshResponse reports the index swapped in by POST /index/refresh.
type RefreshResponse struct {
	Courses     int    `json:"courses"`
	Encoder     string `json:"encoder"`
	Dimension   int    `json:"dimension"`
	Fingerprint string `json:"fingerprint"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Courses int                             `json:"courses"`
	Version string                          `json:"version"`
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	c := r.Course()
	return SearchResultItem{
		Rank:        r.Rank(),
		ID:          c.ID(),
		Title:       c.Title(),
		Description: c.Description(),
		ImageURL:    c.ImageURL(),
		CourseLink:  c.Link(),
		Score:       r.Score(),
		Relevance:   relevance(r.Score()),
	}
}

// relevance renders a cosine score as a percentage rounded to two decimals.
func relevance(score float64) float64 {
	return math.Round(score*100*100) / 100
}
