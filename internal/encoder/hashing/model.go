package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Model defaults.
const (
	DefaultDimension = 384
	DefaultMaxTokens = 256
	bigramWeight     = 0.5
)

// Options configures model loading.
type Options struct {
	Dimension   int
	MaxTokens   int
	WeightsPath string // optional YAML file with per-token weights and extra stopwords
}

// weightsFile is the on-disk format of Options.WeightsPath.
type weightsFile struct {
	Weights   map[string]float32 `yaml:"weights"`
	Stopwords []string           `yaml:"stopwords"`
}

// Model is the read-only state behind a hashing encoder: dimension,
// tokenizer, stopwords and optional per-token weights.
// Safe for concurrent use after Load returns.
type Model struct {
	dimension    int
	maxTokens    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	weights      map[string]float32
	variant      string // max tokens and weights digest when not the defaults
}

// sharedLoad is one process-wide model, loaded on first use.
type sharedLoad struct {
	once  sync.Once
	model *Model
	err   error
}

var (
	sharedMu     sync.Mutex
	sharedModels = map[Options]*sharedLoad{}
)

// Shared returns the process-wide model for opts, loading it on first call.
// Calls with equal options, after defaults are applied, share one handle.
// Models are never torn down.
func Shared(opts Options) (*Model, error) {
	opts = opts.withDefaults()

	sharedMu.Lock()
	l, ok := sharedModels[opts]
	if !ok {
		l = &sharedLoad{}
		sharedModels[opts] = l
	}
	sharedMu.Unlock()

	l.once.Do(func() {
		l.model, l.err = Load(opts)
	})
	return l.model, l.err
}

func (o Options) withDefaults() Options {
	if o.Dimension == 0 {
		o.Dimension = DefaultDimension
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Load builds a private model.
func Load(opts Options) (*Model, error) {
	opts = opts.withDefaults()
	if opts.Dimension < 0 {
		return nil, fmt.Errorf("hashing: dimension must be positive, got %d", opts.Dimension)
	}
	if opts.MaxTokens < 0 {
		return nil, fmt.Errorf("hashing: max tokens must be positive, got %d", opts.MaxTokens)
	}

	m := &Model{
		dimension:    opts.Dimension,
		maxTokens:    opts.MaxTokens,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’+#][\p{L}\p{N}+#]*)*`),
		stopwords:    defaultStopwords(),
		weights:      map[string]float32{},
	}

	if opts.MaxTokens != DefaultMaxTokens {
		m.variant += fmt.Sprintf("-t%d", opts.MaxTokens)
	}
	if opts.WeightsPath != "" {
		if err := m.loadWeights(opts.WeightsPath); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) loadWeights(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from config
	if err != nil {
		return fmt.Errorf("hashing: read weights %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	m.variant += "-w" + hex.EncodeToString(sum[:4])

	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return fmt.Errorf("hashing: parse weights %s: %w", path, err)
	}
	for tok, w := range wf.Weights {
		if w < 0 {
			return fmt.Errorf("hashing: weight for %q must be non-negative", tok)
		}
		m.weights[strings.ToLower(tok)] = w
	}
	for _, s := range wf.Stopwords {
		m.stopwords[strings.ToLower(s)] = struct{}{}
	}
	return nil
}

// Dimension returns the vector dimension.
func (m *Model) Dimension() int { return m.dimension }

// MaxTokens returns the head-truncation limit.
func (m *Model) MaxTokens() int { return m.maxTokens }

// tokens lowercases text, splits it into word tokens and keeps the first
// maxTokens of them. Stopwords are dropped after truncation.
func (m *Model) tokens(text string) []string {
	raw := m.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) > m.maxTokens {
		raw = raw[:m.maxTokens]
	}
	out := raw[:0]
	for _, t := range raw {
		if _, stop := m.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m *Model) weight(token string) float32 {
	if w, ok := m.weights[token]; ok {
		return w
	}
	return 1
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so",
		"such", "into", "about", "between", "through", "during", "before", "after", "above", "below",
		"out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
		"i", "you", "your", "we", "our", "how", "what", "learn", "course",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
