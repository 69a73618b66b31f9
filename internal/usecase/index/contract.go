package index

import (
	"context"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
)

// Embedder vectorizes course texts. A BatchEmbedder implementation is used
// natively; otherwise texts are encoded one by one.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CourseSource loads the corpus in its canonical order.
type CourseSource interface {
	Load(ctx context.Context) ([]course.Course, error)
}

// SnapshotStore persists a built index between runs.
type SnapshotStore interface {
	Load(ctx context.Context) (*corpus.Index, error)
	Save(ctx context.Context, idx *corpus.Index) error
}

// IndexBuilder encodes a corpus into an index.
type IndexBuilder interface {
	Build(ctx context.Context, courses []course.Course) (*corpus.Index, error)
	Encoder() string
	Dimension() int
}
