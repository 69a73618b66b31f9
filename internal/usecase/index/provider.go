package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/metrics"
)

// Mode is the index reuse policy.
type Mode string

// Reuse policies.
const (
	// ModeOnce builds on first use and reuses the index until Refresh.
	ModeOnce Mode = "once"
	// ModePerCall rebuilds from the source on every Index call.
	ModePerCall Mode = "per_call"
)

// ParseMode validates a mode name; "" selects ModeOnce.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeOnce:
		return ModeOnce, nil
	case ModePerCall:
		return ModePerCall, nil
	default:
		return "", fmt.Errorf("unknown index mode %q", s)
	}
}

// Provider hands out the current index according to its mode.
type Provider struct {
	source    CourseSource
	builder   IndexBuilder
	snapshots SnapshotStore
	mode      Mode
	logger    *zap.Logger

	current atomic.Pointer[corpus.Index]
	mu      sync.Mutex
}

// NewProvider creates a provider in ModeOnce without snapshots.
func NewProvider(source CourseSource, builder IndexBuilder, logger *zap.Logger) *Provider {
	return &Provider{
		source:  source,
		builder: builder,
		mode:    ModeOnce,
		logger:  logger,
	}
}

// WithMode sets the reuse policy.
func (p *Provider) WithMode(m Mode) *Provider {
	p.mode = m
	return p
}

// WithSnapshots enables loading and saving index snapshots in ModeOnce.
func (p *Provider) WithSnapshots(s SnapshotStore) *Provider {
	p.snapshots = s
	return p
}

// Mode returns the reuse policy.
func (p *Provider) Mode() Mode { return p.mode }

// Current returns the last built index, or nil before the first build.
func (p *Provider) Current() *corpus.Index { return p.current.Load() }

// Index returns the index to search. In ModeOnce concurrent first callers
// share one build.
func (p *Provider) Index(ctx context.Context) (*corpus.Index, error) {
	if p.mode == ModePerCall {
		return p.rebuild(ctx, false)
	}
	if idx := p.current.Load(); idx != nil {
		return idx, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if idx := p.current.Load(); idx != nil {
		return idx, nil
	}
	return p.rebuild(ctx, true)
}

// Refresh reloads the source and atomically replaces the current index.
// Searches in flight keep using the previous index.
func (p *Provider) Refresh(ctx context.Context) (*corpus.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rebuild(ctx, p.mode == ModeOnce)
}

func (p *Provider) rebuild(ctx context.Context, useSnapshot bool) (*corpus.Index, error) {
	courses, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	if useSnapshot && p.snapshots != nil {
		if idx := p.fromSnapshot(ctx, corpus.Fingerprint(courses)); idx != nil {
			p.publish(idx, "snapshot")
			return idx, nil
		}
	}

	idx, err := p.builder.Build(ctx, courses)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	p.publish(idx, "encoder")

	if useSnapshot && p.snapshots != nil {
		if err := p.snapshots.Save(ctx, idx); err != nil {
			p.logger.Warn("Index snapshot not saved", zap.Error(err))
		}
	}
	return idx, nil
}

// fromSnapshot returns the stored index when it matches the current encoder
// configuration and corpus, nil otherwise.
func (p *Provider) fromSnapshot(ctx context.Context, fingerprint string) *corpus.Index {
	idx, err := p.snapshots.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return nil
	case err != nil:
		p.logger.Warn("Index snapshot unreadable, rebuilding", zap.Error(err))
		return nil
	}

	if idx.Encoder() != p.builder.Encoder() || idx.Dimension() != p.builder.Dimension() ||
		idx.Fingerprint() != fingerprint {
		p.logger.Info("Index snapshot outdated, rebuilding",
			zap.String("snapshot_encoder", idx.Encoder()),
			zap.String("encoder", p.builder.Encoder()),
		)
		return nil
	}
	return idx
}

func (p *Provider) publish(idx *corpus.Index, source string) {
	p.current.Store(idx)
	metrics.IndexBuildsTotal.WithLabelValues(source).Inc()
	metrics.IndexCourses.Set(float64(idx.Len()))
}
