package course

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/coursefind/internal/domain"
	domcourse "github.com/kailas-cloud/coursefind/internal/domain/course"
)

// catalogSchema validates a JSON course catalog before decoding.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["title"],
    "properties": {
      "id":          {"type": "string"},
      "title":       {"type": "string", "minLength": 1},
      "description": {"type": ["string", "null"]},
      "image_url":   {"type": "string"},
      "course_link": {"type": "string"}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(catalogSchema)

// JSONSource loads a course catalog from a JSON file.
type JSONSource struct {
	path string
}

// NewJSONSource creates a source reading path on every Load.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

// Load reads, validates and converts the catalog.
func (s *JSONSource) Load(_ context.Context) ([]domcourse.Course, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}
	courses, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", s.path, err)
	}
	return courses, nil
}

// ParseJSON validates data against the catalog schema and converts it.
func ParseJSON(data []byte) ([]domcourse.Course, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %v: %w", err, domain.ErrInvalidCourse)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("schema validation failed: %s: %w", strings.Join(errs, ", "), domain.ErrInvalidCourse)
	}

	var records []courseDTO
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %v: %w", err, domain.ErrInvalidCourse)
	}
	return toDomain(records)
}

// WriteJSON writes courses in the catalog format.
func WriteJSON(path string, courses []domcourse.Course) error {
	records := make([]courseDTO, len(courses))
	for i := range courses {
		records[i] = fromDomain(&courses[i])
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // catalog is not secret
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	return nil
}
