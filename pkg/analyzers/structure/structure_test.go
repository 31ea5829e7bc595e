package structure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

func TestAnalyze_SingleFunction(t *testing.T) {
	t.Parallel()

	unit, err := source.Build(context.Background(), "a.py", "def f(): pass\n", "python")
	require.NoError(t, err)

	c, err := Analyze(unit)
	require.NoError(t, err)

	assert.Equal(t, 0, c.Classes)
	assert.Equal(t, 1, c.Functions)
}

func TestAnalyze_NestedBlocksCountedOnce(t *testing.T) {
	t.Parallel()

	code := `class Outer:
    class Inner:
        def m(self):
            def helper():
                return 1
            return helper()

def top():
    pass
`

	for _, builder := range []*source.Builder{source.NewBuilder(), source.NewBuilder(source.WithoutGrammars())} {
		unit, err := builder.Build(context.Background(), "a.py", code, "python")
		require.NoError(t, err)

		c, err := Analyze(unit)
		require.NoError(t, err)

		assert.Equal(t, 2, c.Classes, unit.Backend)
		assert.Equal(t, 3, c.Functions, unit.Backend)
		assert.Equal(t, 1, c.Methods, unit.Backend)
		assert.Equal(t, 4, c.MaxDepth, unit.Backend)

		total := 0

		for _, b := range unit.Blocks() {
			if b.Kind == source.KindClass || b.Kind.IsCallable() {
				total++
			}
		}

		assert.Equal(t, total, c.Classes+c.Functions)
	}
}

func TestAnalyze_NilUnit(t *testing.T) {
	t.Parallel()

	_, err := Analyze(nil)
	require.ErrorIs(t, err, ErrNilUnit)
}
