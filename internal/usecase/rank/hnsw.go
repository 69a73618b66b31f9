package rank

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	"github.com/kailas-cloud/coursefind/internal/domain/vector"
)

// HNSW parameters.
const (
	DefaultM              = 16 // max neighbors per node on upper layers
	DefaultEfConstruction = 64
	DefaultEfSearch       = 64
	DefaultMinItems       = 1000
	maxLevel              = 16
	graphSeed             = 42
)

// ApproximateConfig tunes the HNSW graph.
type ApproximateConfig struct {
	M              int
	EfConstruction int
	EfSearch       int
	MinItems       int // below this corpus size the exact ranker is used
}

// Approximate ranks with an HNSW graph over cosine distance. The graph is
// built once per index value and reused until a different index is passed.
// Returned scores are exact cosine similarities of the candidates.
type Approximate struct {
	cfg    ApproximateConfig
	exact  *Exact
	logger *zap.Logger

	mu    sync.Mutex
	idx   *corpus.Index
	graph *graph
}

// NewApproximate creates an HNSW ranker. Zero config fields take defaults.
func NewApproximate(cfg ApproximateConfig, logger *zap.Logger) *Approximate {
	if cfg.M <= 0 {
		cfg.M = DefaultM
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = DefaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = DefaultEfSearch
	}
	if cfg.MinItems <= 0 {
		cfg.MinItems = DefaultMinItems
	}
	return &Approximate{cfg: cfg, exact: NewExact(), logger: logger}
}

// Name returns the ranker name used in metrics.
func (*Approximate) Name() string { return NameHNSW }

// Rank falls back to exact scoring when topK covers the corpus or the corpus
// is smaller than MinItems.
func (a *Approximate) Rank(ctx context.Context, query []float32, idx *corpus.Index, topK int) ([]result.Result, error) {
	if err := checkDimension(query, idx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []result.Result{}, nil
	}
	if topK >= idx.Len() || idx.Len() < a.cfg.MinItems {
		return a.exact.Rank(ctx, query, idx, topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	g := a.graphFor(idx)
	q := unit(query)
	ef := max(a.cfg.EfSearch, topK)
	found := g.search(q, ef)

	cands := make([]scored, len(found))
	for i, nb := range found {
		e := idx.Entry(nb.id)
		cands[i] = scored{pos: nb.id, score: vector.Cosine(query, e.Vector())}
	}
	return top(idx, cands, topK), nil
}

func (a *Approximate) graphFor(idx *corpus.Index) *graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.idx == idx && a.graph != nil {
		return a.graph
	}
	g := newGraph(a.cfg, idx)
	a.idx, a.graph = idx, g
	if a.logger != nil {
		a.logger.Info("HNSW graph built",
			zap.Int("nodes", idx.Len()),
			zap.Int("levels", g.topLevel+1),
		)
	}
	return g
}

// graph is an immutable HNSW graph over index positions.
type graph struct {
	vecs     [][]float32 // unit-normalized copies
	links    [][][]int   // [node][level][neighbor]
	entry    int
	topLevel int
	m        int
	efBuild  int
	rng      *rand.Rand
}

type neighbor struct {
	id   int
	dist float64
}

func newGraph(cfg ApproximateConfig, idx *corpus.Index) *graph {
	g := &graph{
		vecs:     make([][]float32, idx.Len()),
		links:    make([][][]int, idx.Len()),
		topLevel: -1,
		m:        cfg.M,
		efBuild:  cfg.EfConstruction,
		rng:      rand.New(rand.NewSource(graphSeed)), //nolint:gosec // deterministic level assignment
	}
	for i := 0; i < idx.Len(); i++ {
		e := idx.Entry(i)
		g.vecs[i] = unit(e.Vector())
	}
	for i := range g.vecs {
		g.insert(i)
	}
	return g
}

// distance is 1 - cosine on unit vectors; zero vectors sit at distance 1 from everything.
func (g *graph) distance(q []float32, id int) float64 {
	return 1 - vector.Dot(q, g.vecs[id])
}

func (g *graph) randomLevel() int {
	lvl := 0
	for g.rng.Float64() < 0.5 && lvl < maxLevel {
		lvl++
	}
	return lvl
}

func (g *graph) maxLinks(level int) int {
	if level == 0 {
		return 2 * g.m
	}
	return g.m
}

func (g *graph) insert(id int) {
	level := g.randomLevel()
	g.links[id] = make([][]int, level+1)

	if g.topLevel < 0 {
		g.entry, g.topLevel = id, level
		return
	}

	q := g.vecs[id]
	ep := g.entry
	for l := g.topLevel; l > level; l-- {
		ep = g.greedy(q, ep, l)
	}

	for l := min(level, g.topLevel); l >= 0; l-- {
		near := g.searchLayer(q, ep, g.efBuild, l)
		limit := g.maxLinks(l)
		if len(near) > limit {
			near = near[:limit]
		}
		for _, nb := range near {
			g.links[id][l] = append(g.links[id][l], nb.id)
			g.links[nb.id][l] = append(g.links[nb.id][l], id)
			if len(g.links[nb.id][l]) > limit {
				g.prune(nb.id, l, limit)
			}
		}
		if len(near) > 0 {
			ep = near[0].id
		}
	}

	if level > g.topLevel {
		g.entry, g.topLevel = id, level
	}
}

// prune keeps the limit closest neighbors of node at level.
func (g *graph) prune(node, level, limit int) {
	nbs := g.links[node][level]
	ranked := make([]neighbor, len(nbs))
	for i, id := range nbs {
		ranked[i] = neighbor{id: id, dist: g.distance(g.vecs[node], id)}
	}
	sortNeighbors(ranked)
	kept := make([]int, limit)
	for i := range kept {
		kept[i] = ranked[i].id
	}
	g.links[node][level] = kept
}

// greedy walks to the locally nearest node at level.
func (g *graph) greedy(q []float32, ep, level int) int {
	cur, curDist := ep, g.distance(q, ep)
	for changed := true; changed; {
		changed = false
		for _, nb := range g.links[cur][level] {
			if d := g.distance(q, nb); d < curDist {
				cur, curDist, changed = nb, d, true
			}
		}
	}
	return cur
}

// searchLayer returns up to ef nearest nodes at level, closest first.
func (g *graph) searchLayer(q []float32, ep, ef, level int) []neighbor {
	visited := map[int]bool{ep: true}
	start := neighbor{id: ep, dist: g.distance(q, ep)}
	candidates := []neighbor{start}
	results := []neighbor{start}

	for len(candidates) > 0 {
		c := candidates[0]
		candidates = candidates[1:]
		if len(results) >= ef && c.dist > results[len(results)-1].dist {
			break
		}
		for _, id := range g.links[c.id][level] {
			if visited[id] {
				continue
			}
			visited[id] = true
			d := g.distance(q, id)
			if len(results) < ef || d < results[len(results)-1].dist {
				nb := neighbor{id: id, dist: d}
				candidates = insertSorted(candidates, nb)
				results = insertSorted(results, nb)
				if len(results) > ef {
					results = results[:ef]
				}
			}
		}
	}
	return results
}

func (g *graph) search(q []float32, ef int) []neighbor {
	if g.topLevel < 0 {
		return nil
	}
	ep := g.entry
	for l := g.topLevel; l > 0; l-- {
		ep = g.greedy(q, ep, l)
	}
	return g.searchLayer(q, ep, ef, 0)
}

func insertSorted(list []neighbor, nb neighbor) []neighbor {
	i := sort.Search(len(list), func(i int) bool {
		if list[i].dist != nb.dist {
			return list[i].dist > nb.dist
		}
		return list[i].id > nb.id
	})
	list = append(list, neighbor{})
	copy(list[i+1:], list[i:])
	list[i] = nb
	return list
}

func sortNeighbors(list []neighbor) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].dist != list[j].dist {
			return list[i].dist < list[j].dist
		}
		return list[i].id < list[j].id
	})
}

func unit(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	vector.Normalize(out)
	return out
}
