package embedding

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	delay      time.Duration
	batchCalls atomic.Int32
	batchSizes []int
}

func (m *mockEmbedder) Name() string { return "mock" }

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls.Add(1)
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// singleOnly has no batch path.
type singleOnly struct {
	calls int
}

func (s *singleOnly) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 3}}
	p := NewInstrumentedEmbedder(inner, time.Second, 0, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if result.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d", result.TotalTokens)
	}
	if p.Name() != "mock" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestInstrumentedEmbedder_NoTimeout(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, 0, 0, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_Timeout(t *testing.T) {
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1}},
		delay:  300 * time.Millisecond,
	}
	p := NewInstrumentedEmbedder(inner, 20*time.Millisecond, 0, zap.NewNop())

	start := time.Now()
	_, err := p.Embed(context.Background(), "slow")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("timeout not enforced, took %s", time.Since(start))
	}
}

func TestInstrumentedEmbedder_CanceledIsEncodingError(t *testing.T) {
	inner := &mockEmbedder{delay: 200 * time.Millisecond}
	p := NewInstrumentedEmbedder(inner, time.Second, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Embed(ctx, "x")
	if !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Fatal("cancellation must not be reported as timeout")
	}
}

func TestInstrumentedEmbedder_WrapsUnknownErrors(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("model crashed")}
	p := NewInstrumentedEmbedder(inner, time.Second, 0, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestInstrumentedEmbedder_KeepsDomainErrors(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrTimeout}
	p := NewInstrumentedEmbedder(inner, 0, 0, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout preserved, got %v", err)
	}
	if errors.Is(err, domain.ErrEncoding) {
		t.Fatal("timeout must not be re-labelled as encoding error")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 2}}
	p := NewInstrumentedEmbedder(inner, time.Second, 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want 6", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	p := NewInstrumentedEmbedder(inner, 0, 2, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("expected 5 embeddings, got %d", len(res.Embeddings))
	}
	if inner.batchCalls.Load() != 3 {
		t.Errorf("batch calls = %d, want 3", inner.batchCalls.Load())
	}
	want := []int{2, 2, 1}
	for i, n := range want {
		if inner.batchSizes[i] != n {
			t.Errorf("chunk %d size = %d, want %d", i, inner.batchSizes[i], n)
		}
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, 0, 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Error("expected nil embeddings")
	}
	if inner.batchCalls.Load() != 0 {
		t.Error("inner must not be called for empty input")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: errors.New("api down")}
	p := NewInstrumentedEmbedder(inner, 0, 0, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Timeout(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}, delay: 300 * time.Millisecond}
	p := NewInstrumentedEmbedder(inner, 20*time.Millisecond, 0, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &singleOnly{}
	p := NewInstrumentedEmbedder(inner, time.Second, 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("single calls = %d, want 2", inner.calls)
	}
	if res.Embeddings[0][0] != 1 || res.Embeddings[1][0] != 2 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
	if p.Name() != "unknown" {
		t.Errorf("Name() = %q, want unknown", p.Name())
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	p := NewInstrumentedEmbedder(&singleOnly{}, 0, 0, zap.NewNop())
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck without checker: %v", err)
	}
}
