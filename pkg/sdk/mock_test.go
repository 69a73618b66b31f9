package coursefind

import (
	"context"
	"strings"

	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/request"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/coursefind/internal/usecase/health"
)

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// keywordEmbedder maps each text to a 3-d vector of keyword hits.
type keywordEmbedder struct {
	calls int
}

func (k *keywordEmbedder) Name() string { return "keywords-v1" }

func (k *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	k.calls++
	vec := make([]float32, 3)
	for i, kw := range []string{"python", "learning", "excel"} {
		if containsFold(text, kw) {
			vec[i] = 1
		}
	}
	return EmbeddingResult{Embedding: vec}, nil
}

// --- useCase mocks ---

type mockSearchUC struct {
	searchFn  func(ctx context.Context, query string, topK int) ([]result.Result, error)
	requestFn func(ctx context.Context, req *request.Request) ([]result.Result, error)
}

func (m *mockSearchUC) Search(ctx context.Context, query string, topK int) ([]result.Result, error) {
	return m.searchFn(ctx, query, topK)
}

func (m *mockSearchUC) SearchRequest(ctx context.Context, req *request.Request) ([]result.Result, error) {
	return m.requestFn(ctx, req)
}

type mockIndexUC struct {
	refreshFn func(ctx context.Context) (*corpus.Index, error)
}

func (m *mockIndexUC) Refresh(ctx context.Context) (*corpus.Index, error) {
	return m.refreshFn(ctx)
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

func containsFold(text, substr string) bool {
	return strings.Contains(strings.ToLower(text), substr)
}
