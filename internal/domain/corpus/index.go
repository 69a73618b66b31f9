package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
)

// Entry pairs a course with its embedding.
type Entry struct {
	course course.Course
	vector []float32
}

// NewEntry creates an index entry.
func NewEntry(c course.Course, vec []float32) Entry {
	return Entry{course: c, vector: vec}
}

// Course returns the indexed course.
func (e Entry) Course() course.Course { return e.course }

// ID returns the course identifier the vector belongs to.
func (e Entry) ID() string { return e.course.ID() }

// Vector returns the embedding. Callers must not modify it.
func (e Entry) Vector() []float32 { return e.vector }

// Index is an immutable, ordered set of course embeddings produced by one
// encoder configuration. Entry order equals corpus order.
type Index struct {
	entries     []Entry
	encoder     string
	dimension   int
	fingerprint string
}

// New validates entries and creates an Index.
// Every vector must have the given dimension and course IDs must be unique.
func New(encoder string, dimension int, entries []Entry) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimension)
	}
	seen := make(map[string]int, len(entries))
	courses := make([]course.Course, len(entries))
	for i := range entries {
		e := &entries[i]
		if len(e.vector) != dimension {
			return nil, fmt.Errorf("entry %d (%s): vector has dimension %d, want %d",
				i, e.ID(), len(e.vector), dimension)
		}
		if prev, dup := seen[e.ID()]; dup {
			return nil, fmt.Errorf("entry %d: duplicate course ID %q (first at %d): %w",
				i, e.ID(), prev, domain.ErrInvalidCourse)
		}
		seen[e.ID()] = i
		courses[i] = e.course
	}

	owned := make([]Entry, len(entries))
	copy(owned, entries)

	return &Index{
		entries:     owned,
		encoder:     encoder,
		dimension:   dimension,
		fingerprint: Fingerprint(courses),
	}, nil
}

// Len returns the number of indexed courses.
func (idx *Index) Len() int { return len(idx.entries) }

// Entry returns the i-th entry in corpus order.
func (idx *Index) Entry(i int) Entry { return idx.entries[i] }

// Entries returns a copy of the entry slice in corpus order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Encoder returns the name of the encoder that produced the vectors.
func (idx *Index) Encoder() string { return idx.encoder }

// Dimension returns the shared vector dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Fingerprint returns the corpus fingerprint the index was built from.
func (idx *Index) Fingerprint() string { return idx.fingerprint }

// Fingerprint hashes the embedded text and identity of every course, in order.
// Two corpora with the same fingerprint produce the same index under the same encoder.
func Fingerprint(courses []course.Course) string {
	h := sha256.New()
	for i := range courses {
		c := &courses[i]
		h.Write([]byte(c.ID()))
		h.Write([]byte{0})
		h.Write([]byte(c.EmbeddingText()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
