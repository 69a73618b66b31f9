package result

import "github.com/kailas-cloud/coursefind/internal/domain/course"

// Result is a single ranked course.
type Result struct {
	course course.Course
	score  float64
	rank   int
}

// New creates a search result. Rank is 1-based.
func New(c course.Course, score float64, rank int) Result {
	return Result{course: c, score: score, rank: rank}
}

// Course returns the matched course.
func (r *Result) Course() course.Course { return r.course }

// ID returns the course identifier.
func (r *Result) ID() string { return r.course.ID() }

// Score returns the cosine similarity in [-1, 1].
func (r *Result) Score() float64 { return r.score }

// Rank returns the 1-based position in the ranking.
func (r *Result) Rank() int { return r.rank }
