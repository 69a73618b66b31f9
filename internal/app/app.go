// Package app is the composition root shared by the CLI commands and the
// public client: it turns a Config into wired search services.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/config"
	"github.com/kailas-cloud/coursefind/internal/db"
	dbMemory "github.com/kailas-cloud/coursefind/internal/db/memory"
	dbRedis "github.com/kailas-cloud/coursefind/internal/db/redis"
	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/encoder/hashing"
	"github.com/kailas-cloud/coursefind/internal/metrics"
	courserepo "github.com/kailas-cloud/coursefind/internal/repository/course"
	"github.com/kailas-cloud/coursefind/internal/repository/embcache"
	"github.com/kailas-cloud/coursefind/internal/repository/snapshot"
	openaiEmb "github.com/kailas-cloud/coursefind/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/coursefind/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/coursefind/internal/usecase/health"
	indexuc "github.com/kailas-cloud/coursefind/internal/usecase/index"
	"github.com/kailas-cloud/coursefind/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/coursefind/internal/usecase/search"
)

// dimensionProbe is encoded once when neither the encoder nor the config
// reports a vector dimension.
const dimensionProbe = "dimension probe"

// Overrides replaces config-driven components, used by the public client.
// Zero fields keep the config behavior.
type Overrides struct {
	Source  indexuc.CourseSource // replaces corpus.path
	Encoder domain.Embedder      // replaces encoder.provider
}

// App holds the wired services and the resources they own.
type App struct {
	Config    config.Config
	Search    *searchuc.Service
	Indexes   *indexuc.Provider
	Health    *healthuc.Service
	Ranker    rank.Ranker
	Encoder   string // encoder configuration identity
	Dimension int

	logger  *zap.Logger
	closers []func() error
}

// New wires the application from cfg. The caller owns Close.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	return NewWithOverrides(ctx, cfg, Overrides{}, logger)
}

// NewWithOverrides wires the application, taking ov fields in place of the
// matching config sections.
func NewWithOverrides(ctx context.Context, cfg config.Config, ov Overrides, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterMetrics()

	a := &App{Config: cfg, logger: logger}
	if err := a.wire(ctx, ov); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, ov Overrides) error {
	cfg := a.Config

	base, dimension, err := a.baseEncoder(ov.Encoder)
	if err != nil {
		return err
	}
	if dimension <= 0 {
		if dimension, err = probeDimension(ctx, base); err != nil {
			return err
		}
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		base,
		time.Duration(cfg.Encoder.TimeoutMs)*time.Millisecond,
		cfg.Encoder.BatchSize,
		a.logger,
	)

	caches, err := a.cacheStores(ctx)
	if err != nil {
		return err
	}
	docEmbedder := buildEmbedder(instrumented, cfg.Encoder.DocumentInstruction, caches, cfg.Cache.TTL, a.logger)
	queryEmbedder := buildEmbedder(instrumented, cfg.Encoder.QueryInstruction, caches, cfg.Cache.TTL, a.logger)

	source := ov.Source
	if source == nil {
		if source, err = a.courseSource(ctx); err != nil {
			return err
		}
	}

	builder := indexuc.NewBuilder(docEmbedder, dimension, a.logger).
		WithConcurrency(cfg.Encoder.BatchSize, cfg.Index.Workers)

	mode, err := indexuc.ParseMode(cfg.Index.Mode)
	if err != nil {
		return err
	}
	provider := indexuc.NewProvider(source, builder, a.logger).WithMode(mode)
	if cfg.Index.SnapshotPath != "" {
		snap, err := snapshot.Open(cfg.Index.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open index snapshot: %w", err)
		}
		a.closers = append(a.closers, snap.Close)
		provider.WithSnapshots(snap)
	}

	ranker, err := rank.New(cfg.Index.Ranker, rank.ApproximateConfig{
		M:              cfg.Index.HNSWM,
		EfConstruction: cfg.Index.HNSWEFConstruct,
		EfSearch:       cfg.Index.HNSWEFSearch,
		MinItems:       cfg.Index.ANNMinItems,
	}, a.logger)
	if err != nil {
		return err
	}

	health := healthuc.New(newEncoderHealthChecker(instrumented), provider)
	for _, c := range caches {
		health.WithCache(c.layer, c.store)
	}

	a.Search = searchuc.New(provider, queryEmbedder, ranker)
	a.Indexes = provider
	a.Health = health
	a.Ranker = ranker
	a.Encoder = builder.Encoder()
	a.Dimension = dimension

	a.logger.Info("Search engine wired",
		zap.String("encoder", a.Encoder),
		zap.Int("dimension", dimension),
		zap.String("ranker", ranker.Name()),
		zap.String("index_mode", string(provider.Mode())),
		zap.Int("cache_layers", len(caches)),
	)
	return nil
}

// Close releases stores opened by New. Safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// baseEncoder returns the raw encoder and its dimension, 0 when unknown.
func (a *App) baseEncoder(override domain.Embedder) (domain.Embedder, int, error) {
	cfg := a.Config.Encoder
	if override != nil {
		if d, ok := override.(interface{ Dimension() int }); ok {
			return override, d.Dimension(), nil
		}
		return override, cfg.Dimension, nil
	}

	switch cfg.Provider {
	case "", config.ProviderHashing:
		model, err := hashing.Shared(hashing.Options{
			Dimension:   cfg.Dimension,
			MaxTokens:   cfg.MaxTokens,
			WeightsPath: cfg.WeightsPath,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("load hashing model: %w", err)
		}
		enc := hashing.New(model)
		return enc, enc.Dimension(), nil
	case config.ProviderOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimension,
			MaxTokens:  cfg.MaxTokens,
			Logger:     a.logger,
		}), cfg.Dimension, nil
	default:
		return nil, 0, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
	}
}

func probeDimension(ctx context.Context, e domain.Embedder) (int, error) {
	res, err := e.Embed(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("probe encoder dimension: %w", err)
	}
	if len(res.Embedding) == 0 {
		return 0, fmt.Errorf("probe encoder dimension: empty vector: %w", domain.ErrEncoding)
	}
	return len(res.Embedding), nil
}

// cacheStore is one embedding cache layer.
type cacheStore struct {
	layer string
	store db.Store
}

// cacheStores opens the configured layers, outermost first.
func (a *App) cacheStores(ctx context.Context) ([]cacheStore, error) {
	cfg := a.Config.Cache
	var layers []cacheStore

	if cfg.Size > 0 {
		mem, err := dbMemory.NewStore(cfg.Size)
		if err != nil {
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
		a.closeStore(mem)
		layers = append(layers, cacheStore{layer: "memory", store: mem})
	}

	if len(cfg.Redis.Addrs) > 0 {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		a.closeStore(rs)

		timeout := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			return nil, fmt.Errorf("redis cache not ready: %w", err)
		}
		a.logger.Info("Connected to redis cache", zap.Strings("addrs", cfg.Redis.Addrs))
		layers = append(layers, cacheStore{layer: "redis", store: rs})
	}
	return layers, nil
}

func (a *App) closeStore(s db.Store) {
	a.closers = append(a.closers, func() error { s.Close(); return nil })
}

// courseSource picks the corpus reader for corpus.format.
func (a *App) courseSource(ctx context.Context) (indexuc.CourseSource, error) {
	cfg := a.Config.Corpus
	switch cfg.Format {
	case config.FormatSQLite:
		src, err := courserepo.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open course database: %w", err)
		}
		a.closers = append(a.closers, src.Close)
		return src, nil
	case "", config.FormatJSON:
		return courserepo.NewJSONSource(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown corpus format %q", cfg.Format)
	}
}

// buildEmbedder assembles one side of the decorator chain:
// Instrumented -> Instruction -> redis cache -> memory cache.
// Cache keys include the instruction, so query and document vectors never mix.
func buildEmbedder(
	instrumented domain.Embedder,
	instruction string,
	caches []cacheStore,
	ttlSec int,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = instrumented
	if instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, instruction)
	}

	ttl := time.Duration(ttlSec) * time.Second
	for i := len(caches) - 1; i >= 0; i-- {
		embedder = embcache.New(embedder, caches[i].store, caches[i].layer, metrics.EmbeddingCacheTotal, logger).
			WithTTL(ttl)
	}
	return embedder
}

// encoderHealthChecker adapts domain.Embedder to health.EncoderChecker.
type encoderHealthChecker struct {
	embedder domain.Embedder
}

func newEncoderHealthChecker(embedder domain.Embedder) *encoderHealthChecker {
	return &encoderHealthChecker{embedder: embedder}
}

func (h *encoderHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("encoder health check: %w", err)
		}
	}
	return nil
}
