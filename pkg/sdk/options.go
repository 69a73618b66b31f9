package coursefind

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	baseURL string
	apiKey  string
	model   string
}

type clientConfig struct {
	corpusPath string
	courses    []Course
	hasCourses bool

	embedder  Embedder
	openAI    *openAIConfig
	dimension int
	timeout   time.Duration

	queryInstruction    string
	documentInstruction string

	ranker       string
	indexMode    string
	snapshotPath string
	batchSize    int
	workers      int

	cacheSize     int
	redisAddr     string
	redisPassword string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCorpusFile loads the catalog from a JSON file, or from a SQLite
// database when the extension is .db, .sqlite or .sqlite3.
func WithCorpusFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusPath = path
	})
}

// WithCourses searches an in-memory catalog. Takes precedence over WithCorpusFile.
func WithCourses(courses []Course) Option {
	return optionFunc(func(c *clientConfig) {
		c.courses = courses
		c.hasCourses = true
	})
}

// WithEmbedder sets a custom text encoder.
// Without WithDimension the vector length is probed with one Embed call.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI encodes through an OpenAI-compatible embeddings API.
// An empty baseURL selects api.openai.com.
func WithOpenAI(baseURL, apiKey, model string, dimension int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &openAIConfig{baseURL: baseURL, apiKey: apiKey, model: model}
		c.dimension = dimension
	})
}

// WithDimension sets the vector dimension of the encoder.
// Defaults to 384 for the built-in hashing encoder.
func WithDimension(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimension = dim
	})
}

// WithEncoderTimeout bounds every encoder call. Default: 10s.
func WithEncoderTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithInstructions sets text prepended to queries and to course texts
// before encoding, for asymmetric retrieval models.
func WithInstructions(query, document string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = query
		c.documentInstruction = document
	})
}

// WithRanker selects "exact" (default) or "hnsw" nearest-neighbour search.
func WithRanker(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.ranker = name
	})
}

// WithIndexMode selects "once" (default: encode on first search, reuse
// until Refresh) or "per_call" (re-read and re-encode on every search).
func WithIndexMode(mode string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexMode = mode
	})
}

// WithSnapshot persists the encoded index to path and reuses it on the next
// start when the catalog and encoder are unchanged.
func WithSnapshot(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.snapshotPath = path
	})
}

// WithConcurrency sets the encoder batch size and the number of batches
// encoded in parallel during index builds. Defaults: 64 and 4.
func WithConcurrency(batchSize, workers int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = batchSize
		c.workers = workers
	})
}

// WithCacheSize bounds the in-process embedding cache. Negative disables it.
// Default: 10000 entries.
func WithCacheSize(entries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = entries
	})
}

// WithRedis adds a shared Redis/Valkey embedding cache behind the in-process one.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
