// Package hashing is a local, deterministic text encoder based on signed
// feature hashing of word unigrams and bigrams. It needs no network and no
// model download, so it serves offline use and tests.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/vector"
)

// Encoder embeds text with a shared Model.
type Encoder struct {
	model *Model
}

// New creates an encoder backed by model.
func New(model *Model) *Encoder {
	return &Encoder{model: model}
}

// Name identifies the encoder configuration; vectors are comparable only
// between encoders with equal names. Non-default max tokens and weights
// files are part of the name.
func (e *Encoder) Name() string {
	return fmt.Sprintf("hashing-%d", e.model.dimension) + e.model.variant
}

// Dimension returns the vector dimension.
func (e *Encoder) Dimension() int { return e.model.dimension }

// Embed encodes text. Empty or stopword-only text yields the zero vector.
func (e *Encoder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}
	vec, n := e.encode(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: n, TotalTokens: n}, nil
}

// BatchEmbed encodes texts in order. Output equals per-item Embed.
func (e *Encoder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEncoding, err)
		}
		vec, n := e.encode(t)
		out.Embeddings[i] = vec
		out.PromptTokens += n
		out.TotalTokens += n
	}
	return out, nil
}

// HealthCheck always succeeds; the model is in memory.
func (e *Encoder) HealthCheck(_ context.Context) error { return nil }

func (e *Encoder) encode(text string) ([]float32, int) {
	vec := make([]float32, e.model.dimension)
	toks := e.model.tokens(text)
	for i, tok := range toks {
		e.add(vec, tok, e.model.weight(tok))
		if i > 0 {
			w := bigramWeight * min(e.model.weight(toks[i-1]), e.model.weight(tok))
			e.add(vec, toks[i-1]+" "+tok, w)
		}
	}
	vector.Normalize(vec)
	return vec, len(toks)
}

// add hashes feature into a bucket; the sign comes from an independent bit
// so collisions cancel in expectation.
func (e *Encoder) add(vec []float32, feature string, w float32) {
	if w == 0 {
		return
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := sum % uint64(len(vec))
	if (sum>>63)&1 == 1 {
		w = -w
	}
	vec[bucket] += w
}
