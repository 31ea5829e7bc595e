// Package duplication groups near-identical code blocks across units.
//
// Blocks are compared on their normalized token sequences, so renamed
// identifiers and changed literals still match. Exact groups share a
// fingerprint and token sequence; near groups additionally merge blocks with
// the same control-flow shape whose token edit similarity reaches the
// configured threshold.
package duplication

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/gitradar/pkg/alg/hashutil"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

// Defaults.
const (
	DefaultMinStatements = 3
	DefaultThreshold     = 0.9
)

// statementSeparator marks statement boundaries in a block token sequence.
const statementSeparator = "\x1f"

// ErrInvalidOptions is returned for a threshold outside (0, 1] or a
// non-positive statement minimum.
var ErrInvalidOptions = errors.New("duplication: invalid options")

// Options configures a Detector.
type Options struct {
	// MinStatements excludes blocks with fewer statements.
	MinStatements int
	// Threshold is the minimum similarity in (0, 1]. 1 keeps exact groups only.
	Threshold float64
	// Workers bounds fingerprinting and similarity parallelism. Zero means GOMAXPROCS.
	Workers int
	// Disabled makes Detect return no groups.
	Disabled bool
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{MinStatements: DefaultMinStatements, Threshold: DefaultThreshold}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.MinStatements < 1 {
		return fmt.Errorf("%w: min statements %d must be positive", ErrInvalidOptions, o.MinStatements)
	}

	if o.Threshold <= 0 || o.Threshold > 1 {
		return fmt.Errorf("%w: threshold %g must be in (0, 1]", ErrInvalidOptions, o.Threshold)
	}

	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidOptions, o.Workers)
	}

	return nil
}

// GroupKind tells exact groups from near groups.
type GroupKind string

// Group kinds.
const (
	GroupExact GroupKind = "exact"
	GroupNear  GroupKind = "near"
)

// Member references one block of a group.
type Member struct {
	UnitID     string      `json:"unit_id"    yaml:"unit_id"`
	Name       string      `json:"name"       yaml:"name"`
	Kind       source.Kind `json:"kind"       yaml:"kind"`
	StartLine  int         `json:"start_line" yaml:"start_line"`
	EndLine    int         `json:"end_line"   yaml:"end_line"`
	Statements int         `json:"statements" yaml:"statements"`
}

// Group is a set of at least two duplicated blocks.
type Group struct {
	Kind        GroupKind `json:"kind"        yaml:"kind"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Similarity  float64   `json:"similarity"  yaml:"similarity"`
	Members     []Member  `json:"members"     yaml:"members"`
}

// Involves reports whether any member belongs to the unit.
func (g Group) Involves(unitID string) bool {
	return slices.ContainsFunc(g.Members, func(m Member) bool { return m.UnitID == unitID })
}

// Detector finds duplicate groups. It is safe for concurrent use.
type Detector struct {
	opts Options
}

// NewDetector creates a detector. Options are validated by Detect.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Detect runs the detector with explicit parameters and default parallelism.
func Detect(ctx context.Context, units []*source.Unit, minBlockStatements int, threshold float64) ([]Group, error) {
	return NewDetector(Options{MinStatements: minBlockStatements, Threshold: threshold}).Detect(ctx, units)
}

// candidate is one block eligible for grouping.
type candidate struct {
	unit   int
	order  int
	unitID string
	block  *source.Block
	tokens []string
	shape  string
	hash   uint64
}

func (c *candidate) member() Member {
	return Member{
		UnitID:     c.unitID,
		Name:       c.block.Name,
		Kind:       c.block.Kind,
		StartLine:  c.block.StartLine,
		EndLine:    c.block.EndLine,
		Statements: len(c.block.Statements),
	}
}

func compareCandidates(a, b *candidate) int {
	return cmp.Or(
		cmp.Compare(a.unit, b.unit),
		cmp.Compare(a.block.StartLine, b.block.StartLine),
		cmp.Compare(a.order, b.order),
	)
}

// Detect groups duplicated blocks of the given units. Units are identified by
// their position; nil units are skipped.
func (d *Detector) Detect(ctx context.Context, units []*source.Unit) ([]Group, error) {
	if d.opts.Disabled {
		return nil, nil
	}

	err := d.opts.Validate()
	if err != nil {
		return nil, err
	}

	cands := d.collect(units)
	if len(cands) < 2 {
		return nil, ctx.Err()
	}

	err = d.fingerprint(ctx, cands)
	if err != nil {
		return nil, err
	}

	classes := exactClasses(cands)

	uf := newUnionFind(len(classes))
	sims := newSimilarityCache(cands, classes)

	if d.opts.Threshold < 1 {
		pairs := nearPairs(cands, classes, d.opts.Threshold)

		err = sims.compute(ctx, pairs, d.workers())
		if err != nil {
			return nil, err
		}

		for _, p := range pairs {
			if sims.get(p.a, p.b) >= d.opts.Threshold {
				uf.union(p.a, p.b)
			}
		}
	}

	return buildGroups(cands, classes, uf, sims), nil
}

func (d *Detector) workers() int {
	if d.opts.Workers > 0 {
		return d.opts.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// collect flattens every block with enough statements into candidates.
func (d *Detector) collect(units []*source.Unit) []*candidate {
	var cands []*candidate

	for ui, unit := range units {
		if unit == nil {
			continue
		}

		for order, b := range unit.AllBlocks() {
			if len(b.Statements) < d.opts.MinStatements {
				continue
			}

			cands = append(cands, &candidate{unit: ui, order: order, unitID: unit.ID, block: b})
		}
	}

	slices.SortStableFunc(cands, compareCandidates)

	return cands
}

// fingerprint fills tokens, shape and hash of every candidate in parallel.
// Each goroutine writes to its own candidate only.
func (d *Detector) fingerprint(ctx context.Context, cands []*candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())

	for _, c := range cands {
		g.Go(func() error {
			err := gctx.Err()
			if err != nil {
				return err
			}

			c.tokens = blockTokens(c.block)
			c.shape = shapeKey(c.block)
			c.hash = tokenHash(c.tokens)

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("fingerprint blocks: %w", err)
	}

	return nil
}

func blockTokens(b *source.Block) []string {
	var tokens []string

	for _, stmt := range b.Statements {
		tokens = append(tokens, stmt.Tokens...)
		tokens = append(tokens, statementSeparator)
	}

	return tokens
}

// shapeKey lists the branch kinds of the block and its descendants in order.
func shapeKey(b *source.Block) string {
	var kinds []string

	b.Walk(func(n *source.Block) bool {
		for _, bp := range n.Branches {
			kinds = append(kinds, string(bp.Kind))
		}

		return true
	})

	return strings.Join(kinds, ",")
}

func tokenHash(tokens []string) uint64 {
	var r hashutil.Rolling

	for _, tok := range tokens {
		r.AddString(tok)
	}

	return r.Sum()
}

// exactClasses partitions candidates into classes of identical fingerprint
// and token sequence. Each class lists candidate indexes in candidate order.
func exactClasses(cands []*candidate) [][]int {
	var classes [][]int

	byHash := make(map[uint64][]int)

	for i, c := range cands {
		matched := false

		for _, ci := range byHash[c.hash] {
			rep := cands[classes[ci][0]]
			if slices.Equal(rep.tokens, c.tokens) {
				classes[ci] = append(classes[ci], i)
				matched = true

				break
			}
		}

		if !matched {
			byHash[c.hash] = append(byHash[c.hash], len(classes))
			classes = append(classes, []int{i})
		}
	}

	return classes
}

type pair struct {
	a, b int
}

// nearPairs lists class pairs sharing a shape whose length ratio can still
// reach the threshold.
func nearPairs(cands []*candidate, classes [][]int, threshold float64) []pair {
	byShape := make(map[string][]int)

	var shapes []string

	for ci, members := range classes {
		shape := cands[members[0]].shape
		if _, ok := byShape[shape]; !ok {
			shapes = append(shapes, shape)
		}

		byShape[shape] = append(byShape[shape], ci)
	}

	var pairs []pair

	for _, shape := range shapes {
		group := byShape[shape]

		for i := range group {
			for j := i + 1; j < len(group); j++ {
				la := len(cands[classes[group[i]][0]].tokens)
				lb := len(cands[classes[group[j]][0]].tokens)

				if float64(min(la, lb)) >= threshold*float64(max(la, lb)) {
					pairs = append(pairs, pair{a: group[i], b: group[j]})
				}
			}
		}
	}

	return pairs
}

// buildGroups emits every union-find set with at least two blocks.
func buildGroups(cands []*candidate, classes [][]int, uf *unionFind, sims *similarityCache) []Group {
	sets := make(map[int][]int)

	var roots []int

	for ci := range classes {
		root := uf.find(ci)
		if _, ok := sets[root]; !ok {
			roots = append(roots, root)
		}

		sets[root] = append(sets[root], ci)
	}

	groups := make([]Group, 0, len(roots))
	firsts := make([]*candidate, 0, len(roots))

	for _, root := range roots {
		classIDs := sets[root]

		var members []*candidate

		for _, ci := range classIDs {
			for _, idx := range classes[ci] {
				members = append(members, cands[idx])
			}
		}

		if len(members) < 2 {
			continue
		}

		slices.SortStableFunc(members, compareCandidates)

		g := Group{
			Kind:        GroupExact,
			Fingerprint: fmt.Sprintf("%016x", members[0].hash),
			Similarity:  1,
			Members:     make([]Member, 0, len(members)),
		}

		if len(classIDs) > 1 {
			g.Kind = GroupNear
			g.Similarity = sims.lowest(classIDs)
		}

		for _, m := range members {
			g.Members = append(g.Members, m.member())
		}

		groups = append(groups, g)
		firsts = append(firsts, members[0])
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int { return compareCandidates(firsts[a], firsts[b]) })

	sorted := make([]Group, len(groups))
	for i, idx := range order {
		sorted[i] = groups[idx]
	}

	return sorted
}
