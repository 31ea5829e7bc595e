package complexity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

func TestRankOf_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value int
		want  Rank
	}{
		{1, RankA}, {5, RankA},
		{6, RankB}, {10, RankB},
		{11, RankC}, {20, RankC},
		{21, RankD}, {30, RankD},
		{31, RankE}, {40, RankE},
		{41, RankF}, {1000, RankF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RankOf(tt.value), "complexity %d", tt.value)
	}
}

func TestRankOf_Monotonic(t *testing.T) {
	t.Parallel()

	order := make(map[Rank]int)
	for i, r := range Ranks() {
		order[r] = i
	}

	prev := order[RankOf(1)]

	for c := 2; c <= 60; c++ {
		cur := order[RankOf(c)]
		assert.GreaterOrEqual(t, cur, prev, "complexity %d", c)
		prev = cur
	}
}

func TestAnalyze_HandBuiltBlocks(t *testing.T) {
	t.Parallel()

	inner := &source.Block{Name: "inner", Kind: source.KindFunction, Branches: []source.BranchPoint{
		{Kind: source.BranchLoop, Line: 3},
	}}
	outer := &source.Block{
		Name: "outer",
		Kind: source.KindFunction,
		Branches: []source.BranchPoint{
			{Kind: source.BranchIf, Line: 2},
			{Kind: source.BranchBoolean, Line: 2},
		},
		Children: []*source.Block{inner},
	}
	class := &source.Block{Name: "C", Kind: source.KindClass, Branches: []source.BranchPoint{{Kind: source.BranchIf}}}
	unit := &source.Unit{ID: "u", Root: &source.Block{Kind: source.KindModule, Children: []*source.Block{outer, class}}}

	summary, err := Analyze(unit)
	require.NoError(t, err)
	require.Len(t, summary.Records, 2)

	assert.Equal(t, "outer", summary.Records[0].Name)
	assert.Equal(t, 3, summary.Records[0].Complexity)
	assert.Equal(t, "inner", summary.Records[1].Name)
	assert.Equal(t, 2, summary.Records[1].Complexity)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Max)
	assert.InDelta(t, 2.5, summary.Average, 1e-9)
	assert.Equal(t, 2, summary.Distribution[RankA])
	assert.Equal(t, 0, summary.Distribution[RankF])

	for _, rec := range summary.Records {
		assert.GreaterOrEqual(t, rec.Complexity, 1)
	}
}

func TestAnalyze_SinglePassFunction(t *testing.T) {
	t.Parallel()

	unit, err := source.Build(context.Background(), "a.py", "def f(): pass\n", "python")
	require.NoError(t, err)

	summary, err := Analyze(unit)
	require.NoError(t, err)
	require.Len(t, summary.Records, 1)

	assert.Equal(t, Record{Name: "f", Kind: source.KindFunction, StartLine: 1, EndLine: 1, Complexity: 1, Rank: RankA},
		summary.Records[0])
}

func TestAnalyze_BranchKindsFromSource(t *testing.T) {
	t.Parallel()

	code := `def g(items):
    total = [x for x in items if x]
    try:
        while total and items:
            pass
    except ValueError:
        pass
    return 1 if total else 0
`

	unit, err := source.Build(context.Background(), "a.py", code, "python")
	require.NoError(t, err)

	summary, err := Analyze(unit)
	require.NoError(t, err)
	require.Len(t, summary.Records, 1)

	// comprehension for + comprehension if + while + and + except + ternary.
	assert.Equal(t, 7, summary.Records[0].Complexity)
}

func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()

	code := "function f(a) { if (a && a.b) { return 1; } for (;;) {} return a ? 1 : 2; }\n"

	unit, err := source.Build(context.Background(), "a.js", code, "")
	require.NoError(t, err)

	first, err := Analyze(unit)
	require.NoError(t, err)

	second, err := Analyze(unit)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.Records[0].Complexity)
}

func TestAnalyze_NilUnit(t *testing.T) {
	t.Parallel()

	_, err := Analyze(nil)
	require.ErrorIs(t, err, ErrNilUnit)
}
