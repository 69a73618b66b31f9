package coursefind

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/app"
	"github.com/kailas-cloud/coursefind/internal/config"
	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/request"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	courserepo "github.com/kailas-cloud/coursefind/internal/repository/course"
)

// Internal interfaces, replaced in tests.
type searchUseCase interface {
	Search(ctx context.Context, query string, topK int) ([]result.Result, error)
	SearchRequest(ctx context.Context, req *request.Request) ([]result.Result, error)
}

type indexUseCase interface {
	Refresh(ctx context.Context) (*corpus.Index, error)
}

// Client is the coursefind SDK entry point. Safe for concurrent use.
type Client struct {
	searchSvc searchUseCase
	indexSvc  indexUseCase
	healthSvc healthUseCase
	closer    func() error
	obs       *observer
}

// New creates a Client. The catalog is encoded on the first search, or
// loaded from the snapshot when WithSnapshot points at a current one.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if !cfg.hasCourses && cfg.corpusPath == "" {
		return nil, errors.New("coursefind: corpus required (use WithCorpusFile or WithCourses)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var ov app.Overrides
	if cfg.hasCourses {
		src, err := courserepo.NewStaticSource(toRecords(cfg.courses))
		if err != nil {
			return nil, fmt.Errorf("coursefind: %w", err)
		}
		ov.Source = src
	}
	if cfg.embedder != nil {
		ov.Encoder = &embedderAdapter{inner: cfg.embedder}
	}

	a, err := app.NewWithOverrides(ctx, cfg.appConfig(), ov, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("coursefind: %w", err)
	}
	return wireClient(a, obs), nil
}

func wireClient(a *app.App, obs *observer) *Client {
	return &Client{
		searchSvc: a.Search,
		indexSvc:  a.Indexes,
		healthSvc: a.Health,
		closer:    a.Close,
		obs:       obs,
	}
}

// appConfig maps options onto the application config.
func (c *clientConfig) appConfig() config.Config {
	cfg := config.Config{
		Corpus: config.CorpusConfig{Path: c.corpusPath},
		Encoder: config.EncoderConfig{
			Dimension:           c.dimension,
			TimeoutMs:           int(c.timeout / time.Millisecond),
			BatchSize:           c.batchSize,
			QueryInstruction:    c.queryInstruction,
			DocumentInstruction: c.documentInstruction,
		},
		Index: config.IndexConfig{
			Mode:         c.indexMode,
			Ranker:       c.ranker,
			Workers:      c.workers,
			SnapshotPath: c.snapshotPath,
		},
		Cache: config.CacheConfig{Size: c.cacheSize},
	}
	if c.openAI != nil {
		cfg.Encoder.Provider = config.ProviderOpenAI
		cfg.Encoder.BaseURL = c.openAI.baseURL
		cfg.Encoder.APIKey = c.openAI.apiKey
		cfg.Encoder.Model = c.openAI.model
	}
	if c.redisAddr != "" {
		cfg.Cache.Redis = config.RedisConfig{
			Addrs:    []string{c.redisAddr},
			Password: c.redisPassword,
		}
	}
	cfg.ApplyDefaults()
	if c.embedder != nil {
		// A custom encoder reports or probes its own dimension.
		cfg.Encoder.Dimension = c.dimension
	}
	return cfg
}

// Close releases stores opened by New.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer()
	c.closer = nil
	return err
}

// Search returns up to topK courses most similar to query, best first.
// topK <= 0 returns no results.
func (c *Client) Search(ctx context.Context, query string, topK int) (out []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "results", len(out)) }()

	results, err := c.searchSvc.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toResults(results), nil
}

// SearchAbove is Search keeping only results scoring at least minScore.
func (c *Client) SearchAbove(ctx context.Context, query string, topK int, minScore float64) (out []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "results", len(out)) }()

	if topK <= 0 {
		return []Result{}, nil
	}
	req, err := request.New(query, topK, minScore)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results, err := c.searchSvc.SearchRequest(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toResults(results), nil
}

// Refresh reloads the catalog and re-encodes it. Searches in flight keep
// using the previous index; on failure the previous index stays current.
func (c *Client) Refresh(ctx context.Context) (info IndexInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("refresh", start, err, "courses", info.Courses) }()

	idx, err := c.indexSvc.Refresh(ctx)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("refresh: %w", err)
	}
	return IndexInfo{
		Courses:     idx.Len(),
		Encoder:     idx.Encoder(),
		Dimension:   idx.Dimension(),
		Fingerprint: idx.Fingerprint(),
	}, nil
}

func toRecords(courses []Course) []courserepo.Record {
	out := make([]courserepo.Record, len(courses))
	for i, c := range courses {
		out[i] = courserepo.Record{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			ImageURL:    c.ImageURL,
			Link:        c.Link,
		}
	}
	return out
}

func toResults(results []result.Result) []Result {
	out := make([]Result, len(results))
	for i := range results {
		r := &results[i]
		c := r.Course()
		out[i] = Result{
			Rank:        r.Rank(),
			ID:          c.ID(),
			Title:       c.Title(),
			Description: c.Description(),
			ImageURL:    c.ImageURL(),
			Link:        c.Link(),
			Score:       r.Score(),
			Relevance:   math.Round(r.Score()*10000) / 100,
		}
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

// Name returns the inner encoder's name, or "custom".
func (a *embedderAdapter) Name() string {
	if n, ok := a.inner.(NamedEmbedder); ok {
		return n.Name()
	}
	return "custom"
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the inner batch path when there is one.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
