package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/config"
	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
	courserepo "github.com/kailas-cloud/coursefind/internal/repository/course"
	"github.com/kailas-cloud/coursefind/internal/repository/snapshot"
	indexuc "github.com/kailas-cloud/coursefind/internal/usecase/index"
)

const testCatalog = `[
    {"title": "Python for Beginners", "description": "Learn python programming from scratch",
     "image_url": "https://img/py.png", "course_link": "https://courses.example.com/courses/python"},
    {"title": "Deep Learning Basics", "description": "Neural networks and deep learning",
     "image_url": "https://img/dl.png", "course_link": "https://courses.example.com/courses/dl"},
    {"title": "Excel Dashboards", "description": "Build reports in spreadsheets",
     "image_url": "", "course_link": "https://courses.example.com/courses/excel"}
]`

// --- Mocks ---

type staticSource struct {
	courses []course.Course
}

func (s *staticSource) Load(_ context.Context) ([]course.Course, error) {
	return s.courses, nil
}

type constEmbedder struct {
	calls int
}

func (e *constEmbedder) Name() string { return "const" }

func (e *constEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

// --- Helpers ---

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courses.json")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func testConfig(path string) config.Config {
	cfg := config.Config{Corpus: config.CorpusConfig{Path: path}}
	cfg.ApplyDefaults()
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// --- Tests ---

func TestNew_JSONCorpusSearch(t *testing.T) {
	a := newApp(t, testConfig(writeCatalog(t)))

	results, err := a.Search.Search(context.Background(), "python programming", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	if got := results[0].Course().Title(); got != "Python for Beginners" {
		t.Errorf("top result = %q, want Python for Beginners", got)
	}
	if a.Dimension != 384 {
		t.Errorf("Dimension = %d, want 384", a.Dimension)
	}
	if a.Ranker.Name() != "exact" {
		t.Errorf("Ranker = %q, want exact", a.Ranker.Name())
	}
}

func TestNew_SQLiteCorpus(t *testing.T) {
	courses, err := courserepo.ParseJSON([]byte(testCatalog))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	path := filepath.Join(t.TempDir(), "courses.db")
	src, err := courserepo.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := src.Replace(context.Background(), courses); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	_ = src.Close()

	cfg := testConfig(path)
	if cfg.Corpus.Format != config.FormatSQLite {
		t.Fatalf("format = %q, want sqlite", cfg.Corpus.Format)
	}
	a := newApp(t, cfg)

	idx, err := a.Indexes.Index(context.Background())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if idx.Len() != 3 {
		t.Errorf("Len = %d, want 3", idx.Len())
	}
}

func TestNew_SnapshotWritten(t *testing.T) {
	cfg := testConfig(writeCatalog(t))
	cfg.Index.SnapshotPath = filepath.Join(t.TempDir(), "index.db")

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Indexes.Index(context.Background()); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snap, err := snapshot.Open(cfg.Index.SnapshotPath)
	if err != nil {
		t.Fatalf("Open snapshot: %v", err)
	}
	defer func() { _ = snap.Close() }()
	meta, err := snap.Meta(context.Background())
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.Count != 3 || meta.Encoder != a.Encoder {
		t.Errorf("meta = %+v, want 3 courses from %s", meta, a.Encoder)
	}
}

func TestNew_HNSWRanker(t *testing.T) {
	cfg := testConfig(writeCatalog(t))
	cfg.Index.Ranker = "hnsw"
	a := newApp(t, cfg)

	if a.Ranker.Name() != "hnsw" {
		t.Errorf("Ranker = %q, want hnsw", a.Ranker.Name())
	}
	results, err := a.Search.Search(context.Background(), "deep learning", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("len = %d, want 3", len(results))
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"ranker", func(c *config.Config) { c.Index.Ranker = "faiss" }},
		{"mode", func(c *config.Config) { c.Index.Mode = "sometimes" }},
		{"provider", func(c *config.Config) { c.Encoder.Provider = "bert" }},
		{"format", func(c *config.Config) { c.Corpus.Format = "csv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(writeCatalog(t))
			tt.mutate(&cfg)
			if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewWithOverrides_ProbesDimension(t *testing.T) {
	c, err := course.New("a", "Alpha", "", "", "")
	if err != nil {
		t.Fatalf("course.New: %v", err)
	}
	enc := &constEmbedder{}
	cfg := testConfig("")
	cfg.Encoder.Dimension = 0
	cfg.Cache.Size = -1

	a, err := NewWithOverrides(context.Background(), cfg, Overrides{
		Source:  &staticSource{courses: []course.Course{c}},
		Encoder: enc,
	}, nil)
	if err != nil {
		t.Fatalf("NewWithOverrides: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.Dimension != 2 {
		t.Errorf("Dimension = %d, want 2", a.Dimension)
	}
	if a.Encoder != "const" {
		t.Errorf("Encoder = %q, want const", a.Encoder)
	}
	if _, err := a.Search.Search(context.Background(), "alpha", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestNew_EmptyCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	a := newApp(t, testConfig(path))

	_, err := a.Search.Search(context.Background(), "python", 5)
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestHealth_ReportsMemoryCache(t *testing.T) {
	a := newApp(t, testConfig(writeCatalog(t)))

	report := a.Health.Check(context.Background())
	if report.Checks["cache_memory"] != "ok" {
		t.Errorf("checks = %v, want cache_memory ok", report.Checks)
	}
	if report.Checks["index"] != "pending" {
		t.Errorf("index check = %q, want pending before first search", report.Checks["index"])
	}
}

func TestBuildEmbedder_CacheLayersShareInstructionKey(t *testing.T) {
	inner := &constEmbedder{}
	cfg := testConfig("")
	a := &App{Config: cfg, logger: zap.NewNop()}
	caches, err := a.cacheStores(context.Background())
	if err != nil {
		t.Fatalf("cacheStores: %v", err)
	}
	defer func() { _ = a.Close() }()

	query := buildEmbedder(inner, "query: ", caches, 0, zap.NewNop())
	doc := buildEmbedder(inner, "passage: ", caches, 0, zap.NewNop())

	for n := 0; n < 2; n++ {
		if _, err := query.Embed(context.Background(), "python"); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if _, err := doc.Embed(context.Background(), "python"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (one per instruction)", inner.calls)
	}
	if domain.EncoderName(query) != "const+query: " {
		t.Errorf("query encoder name = %q", domain.EncoderName(query))
	}
}

var _ indexuc.CourseSource = (*staticSource)(nil)
