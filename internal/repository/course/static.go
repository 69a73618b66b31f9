package course

import (
	"context"

	domcourse "github.com/kailas-cloud/coursefind/internal/domain/course"
)

// Record is a catalog entry supplied in memory. Empty IDs are derived the
// same way as for JSON catalogs.
type Record struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	Link        string
}

// StaticSource serves a fixed catalog validated at construction.
type StaticSource struct {
	courses []domcourse.Course
}

// NewStaticSource validates records and keeps them in order.
func NewStaticSource(records []Record) (*StaticSource, error) {
	dtos := make([]courseDTO, len(records))
	for i, r := range records {
		desc := r.Description
		dtos[i] = courseDTO{
			ID:          r.ID,
			Title:       r.Title,
			Description: &desc,
			ImageURL:    r.ImageURL,
			CourseLink:  r.Link,
		}
	}
	courses, err := toDomain(dtos)
	if err != nil {
		return nil, err
	}
	return &StaticSource{courses: courses}, nil
}

// Load returns a copy of the catalog.
func (s *StaticSource) Load(_ context.Context) ([]domcourse.Course, error) {
	out := make([]domcourse.Course, len(s.courses))
	copy(out, s.courses)
	return out, nil
}
