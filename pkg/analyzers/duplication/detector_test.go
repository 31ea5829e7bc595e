package duplication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

func buildUnits(t *testing.T, builder *source.Builder, files map[string]string, order ...string) []*source.Unit {
	t.Helper()

	units := make([]*source.Unit, 0, len(order))

	for _, id := range order {
		unit, err := builder.Build(context.Background(), id, files[id], "python")
		require.NoError(t, err)

		units = append(units, unit)
	}

	return units
}

func bothBackends() map[string]*source.Builder {
	return map[string]*source.Builder{
		"tree-sitter": source.NewBuilder(),
		"fallback":    source.NewBuilder(source.WithoutGrammars()),
	}
}

func groupOf(groups []Group, name string) (Group, bool) {
	for _, g := range groups {
		if len(g.Members) > 0 && g.Members[0].Name == name {
			return g, true
		}
	}

	return Group{}, false
}

func TestDetect_IfElseFunctionsFormOneGroup(t *testing.T) {
	t.Parallel()

	code := `def first(a):
    if a:
        return 1
    else:
        return 2

def second(b):
    if b:
        return 1
    else:
        return 2
`

	for name, builder := range bothBackends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			units := buildUnits(t, builder, map[string]string{"m.py": code}, "m.py")

			groups, err := Detect(context.Background(), units, 2, DefaultThreshold)
			require.NoError(t, err)
			require.Len(t, groups, 1)

			g := groups[0]
			assert.Equal(t, GroupExact, g.Kind)
			assert.InDelta(t, 1.0, g.Similarity, 1e-9)
			assert.Len(t, g.Fingerprint, 16)
			require.Len(t, g.Members, 2)
			assert.Equal(t, "first", g.Members[0].Name)
			assert.Equal(t, "second", g.Members[1].Name)
			assert.Equal(t, 7, g.Members[1].StartLine)
		})
	}
}

func TestDetect_RenamedIdentifiersAcrossUnits(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.py": "def total(items):\n    acc = 0\n    for item in items:\n        acc += item\n    return acc\n",
		"b.py": "def sum_all(values):\n    s = 10\n    for v in values:\n        s += v\n    return s\n",
	}

	units := buildUnits(t, source.NewBuilder(), files, "a.py", "b.py")

	groups, err := NewDetector(DefaultOptions()).Detect(context.Background(), units)
	require.NoError(t, err)

	g, ok := groupOf(groups, "total")
	require.True(t, ok)
	assert.Equal(t, GroupExact, g.Kind)
	require.Len(t, g.Members, 2)
	assert.Equal(t, "a.py", g.Members[0].UnitID)
	assert.Equal(t, "b.py", g.Members[1].UnitID)
	assert.Equal(t, "sum_all", g.Members[1].Name)
	assert.True(t, g.Involves("b.py"))
	assert.False(t, g.Involves("c.py"))
}

func TestDetect_DifferentShapeNeverGroups(t *testing.T) {
	t.Parallel()

	code := `def a(x):
    y = x
    if y:
        y = 1
    return y

def b(x):
    y = x
    while y:
        y = 1
    return y
`

	units := buildUnits(t, source.NewBuilder(), map[string]string{"m.py": code}, "m.py")

	groups, err := NewDetector(Options{MinStatements: 3, Threshold: 0.5}).Detect(context.Background(), units)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

const nearCode = `def a(x):
    y = x + 1
    z = y * 2
    w = z - 3
    return w

def b(x):
    y = x + 1
    z = y * 2
    w = z - 3
    return w + 0
`

func TestDetect_NearGroup(t *testing.T) {
	t.Parallel()

	for name, builder := range bothBackends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			units := buildUnits(t, builder, map[string]string{"m.py": nearCode}, "m.py")

			groups, err := NewDetector(Options{MinStatements: 3, Threshold: 0.9, Workers: 2}).
				Detect(context.Background(), units)
			require.NoError(t, err)
			require.Len(t, groups, 1)

			g := groups[0]
			assert.Equal(t, GroupNear, g.Kind)
			assert.InDelta(t, 1-2.0/23.0, g.Similarity, 1e-9)
			assert.Equal(t, []string{"a", "b"}, []string{g.Members[0].Name, g.Members[1].Name})
		})
	}
}

func TestDetect_ThresholdOneKeepsExactOnly(t *testing.T) {
	t.Parallel()

	units := buildUnits(t, source.NewBuilder(), map[string]string{"m.py": nearCode}, "m.py")

	groups, err := NewDetector(Options{MinStatements: 3, Threshold: 1}).Detect(context.Background(), units)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetect_MinStatementsExcludesSmallBlocks(t *testing.T) {
	t.Parallel()

	units := buildUnits(t, source.NewBuilder(), map[string]string{"m.py": nearCode}, "m.py")

	groups, err := Detect(context.Background(), units, 100, 0.5)
	require.NoError(t, err)
	assert.Empty(t, groups)

	for _, g := range groups {
		assert.GreaterOrEqual(t, len(g.Members), 2)
	}
}

func TestDetect_OptionsValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, opts := range []Options{
		{MinStatements: 0, Threshold: 0.9},
		{MinStatements: 3, Threshold: 0},
		{MinStatements: 3, Threshold: 1.5},
		{MinStatements: 3, Threshold: 0.9, Workers: -1},
	} {
		_, err := NewDetector(opts).Detect(ctx, nil)
		require.ErrorIs(t, err, ErrInvalidOptions)
	}

	groups, err := NewDetector(Options{Disabled: true}).Detect(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetect_CanceledContext(t *testing.T) {
	t.Parallel()

	units := buildUnits(t, source.NewBuilder(), map[string]string{"m.py": nearCode}, "m.py")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, units, 1, 0.9)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Similarity(nil, nil), 1e-9)
	assert.InDelta(t, 1.0, Similarity([]string{"ID", "=", "LIT"}, []string{"ID", "=", "LIT"}), 1e-9)
	assert.InDelta(t, 0.5, Similarity([]string{"a", "b"}, []string{"a", "c"}), 1e-9)
	assert.InDelta(t, 0.0, Similarity([]string{"a"}, nil), 1e-9)
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(3, 4)
	uf.union(1, 4)

	assert.Equal(t, uf.find(0), uf.find(3))
	assert.NotEqual(t, uf.find(0), uf.find(2))
}
