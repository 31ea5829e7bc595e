package duplication

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

// Similarity returns 1 - levenshtein/maxLen over two token sequences.
// Two empty sequences are identical.
func Similarity(a, b []string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// One token per line lets the line-mode encoder map every distinct token
	// to its own rune.
	src, dst, _ := dmp.DiffLinesToRunes(tokenLines(a), tokenLines(b))
	diffs := dmp.DiffMainRunes(src, dst, false)

	return 1 - float64(dmp.DiffLevenshtein(diffs))/float64(longest)
}

func tokenLines(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}

	return strings.Join(tokens, "\n") + "\n"
}

// similarityCache memoizes similarities between exact-class representatives.
type similarityCache struct {
	cands   []*candidate
	classes [][]int

	mu   sync.Mutex
	sims map[pair]float64
}

func newSimilarityCache(cands []*candidate, classes [][]int) *similarityCache {
	return &similarityCache{cands: cands, classes: classes, sims: make(map[pair]float64)}
}

func orderedPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}

	return pair{a: a, b: b}
}

func (s *similarityCache) tokens(class int) []string {
	return s.cands[s.classes[class][0]].tokens
}

func (s *similarityCache) get(a, b int) float64 {
	if a == b {
		return 1
	}

	key := orderedPair(a, b)

	s.mu.Lock()
	v, ok := s.sims[key]
	s.mu.Unlock()

	if ok {
		return v
	}

	v = Similarity(s.tokens(a), s.tokens(b))

	s.mu.Lock()
	s.sims[key] = v
	s.mu.Unlock()

	return v
}

// compute fills the cache for every pair on a bounded worker pool.
func (s *similarityCache) compute(ctx context.Context, pairs []pair, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range pairs {
		g.Go(func() error {
			err := gctx.Err()
			if err != nil {
				return err
			}

			s.get(p.a, p.b)

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("compare blocks: %w", err)
	}

	return nil
}

// lowest returns the minimum pairwise similarity between the classes.
func (s *similarityCache) lowest(classes []int) float64 {
	low := 1.0

	for i := range classes {
		for j := i + 1; j < len(classes); j++ {
			low = min(low, s.get(classes[i], classes[j]))
		}
	}

	return low
}

// unionFind merges exact classes into groups.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}

	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}

	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}

	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
