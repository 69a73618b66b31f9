package rank

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
)

func randomIndex(t *testing.T, n, dim int, seed int64) *corpus.Index {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	entries := make([]corpus.Entry, n)
	for i := range entries {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		c, err := course.New("c"+strconv.Itoa(i), "Course "+strconv.Itoa(i), "", "", "")
		if err != nil {
			t.Fatalf("course.New: %v", err)
		}
		entries[i] = corpus.NewEntry(c, v)
	}
	idx, err := corpus.New("test", dim, entries)
	if err != nil {
		t.Fatalf("corpus.New: %v", err)
	}
	return idx
}

func TestApproximate_SmallCorpusFallsBackToExact(t *testing.T) {
	idx := randomIndex(t, 50, 8, 1)
	a := NewApproximate(ApproximateConfig{MinItems: 100}, zap.NewNop())
	q := idx.Entry(7).Vector()

	got, err := a.Rank(context.Background(), q, idx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := NewExact().Rank(context.Background(), q, idx, 5)
	for i := range want {
		if got[i].ID() != want[i].ID() || got[i].Score() != want[i].Score() {
			t.Errorf("result[%d] = %s/%v, want %s/%v", i, got[i].ID(), got[i].Score(), want[i].ID(), want[i].Score())
		}
	}
	if a.graph != nil {
		t.Error("graph should not be built below MinItems")
	}
}

func TestApproximate_TopKCoversCorpus(t *testing.T) {
	idx := randomIndex(t, 30, 4, 2)
	a := NewApproximate(ApproximateConfig{MinItems: 1}, zap.NewNop())
	got, err := a.Rank(context.Background(), idx.Entry(0).Vector(), idx, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 30 {
		t.Errorf("got %d results, want 30", len(got))
	}
}

func TestApproximate_SelfQueryRecall(t *testing.T) {
	idx := randomIndex(t, 600, 16, 3)
	a := NewApproximate(ApproximateConfig{MinItems: 1}, zap.NewNop())

	hits := 0
	for i := 0; i < idx.Len(); i += 10 {
		e := idx.Entry(i)
		got, err := a.Rank(context.Background(), e.Vector(), idx, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d results, want 3", len(got))
		}
		if got[0].ID() == e.ID() {
			hits++
		}
		for j := 1; j < len(got); j++ {
			if got[j].Score() > got[j-1].Score() {
				t.Fatalf("results not sorted at %d", j)
			}
		}
	}
	if hits < 57 {
		t.Errorf("self recall %d/60, want >= 57", hits)
	}
}

func TestApproximate_Deterministic(t *testing.T) {
	idx := randomIndex(t, 300, 8, 4)
	q := randomIndex(t, 1, 8, 99).Entry(0).Vector()

	a1 := NewApproximate(ApproximateConfig{MinItems: 1}, zap.NewNop())
	a2 := NewApproximate(ApproximateConfig{MinItems: 1}, zap.NewNop())
	r1, err := a1.Rank(context.Background(), q, idx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := a2.Rank(context.Background(), q, idx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range r1 {
		if r1[i].ID() != r2[i].ID() {
			t.Errorf("result[%d]: %s vs %s", i, r1[i].ID(), r2[i].ID())
		}
	}
}

func TestApproximate_GraphReusedPerIndex(t *testing.T) {
	idx := randomIndex(t, 200, 8, 5)
	a := NewApproximate(ApproximateConfig{MinItems: 1}, zap.NewNop())
	q := idx.Entry(3).Vector()

	if _, err := a.Rank(context.Background(), q, idx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := a.graph
	if _, err := a.Rank(context.Background(), q, idx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.graph != g {
		t.Error("graph rebuilt for the same index")
	}

	other := randomIndex(t, 200, 8, 6)
	if _, err := a.Rank(context.Background(), q, other, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.graph == g {
		t.Error("graph not rebuilt for a new index")
	}
}

func TestApproximate_TopKZero(t *testing.T) {
	idx := randomIndex(t, 10, 4, 7)
	got, err := NewApproximate(ApproximateConfig{}, nil).Rank(context.Background(), idx.Entry(0).Vector(), idx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}
