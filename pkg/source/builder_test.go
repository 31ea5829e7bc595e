package source_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

const pythonBranches = `def f(x):
    if x > 0 and x < 10:
        return 1
    elif x < 0:
        return -1
    else:
        return 0
`

const pythonStatements = `def f():
    x = 1
    y = 2
`

func branchKinds(b *source.Block) []source.BranchKind {
	kinds := make([]source.BranchKind, 0, len(b.Branches))
	for _, bp := range b.Branches {
		kinds = append(kinds, bp.Kind)
	}

	return kinds
}

func builders() map[source.Backend]*source.Builder {
	return map[source.Backend]*source.Builder{
		source.BackendTreeSitter: source.NewBuilder(),
		source.BackendFallback:   source.NewBuilder(source.WithoutGrammars()),
	}
}

func TestBuild_PythonBranches(t *testing.T) {
	t.Parallel()

	for backend, builder := range builders() {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			unit, err := builder.Build(context.Background(), "pkg/mod.py", pythonBranches, "python")
			require.NoError(t, err)

			assert.Equal(t, backend, unit.Backend)
			assert.Equal(t, "python", unit.Dialect)
			assert.Equal(t, source.KindModule, unit.Root.Kind)
			assert.Equal(t, "mod.py", unit.Root.Name)
			assert.Equal(t, 7, unit.Root.EndLine)

			blocks := unit.Blocks()
			require.Len(t, blocks, 1)

			f := blocks[0]
			assert.Equal(t, "f", f.Name)
			assert.Equal(t, source.KindFunction, f.Kind)
			assert.Equal(t, 1, f.StartLine)
			assert.Equal(t, 7, f.EndLine)
			assert.Equal(t,
				[]source.BranchKind{source.BranchIf, source.BranchBoolean, source.BranchElif},
				branchKinds(f))
			assert.Empty(t, unit.Root.Branches)
		})
	}
}

func TestBuild_PythonStatementsMatchAcrossBackends(t *testing.T) {
	t.Parallel()

	for backend, builder := range builders() {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			unit, err := builder.Build(context.Background(), "a.py", pythonStatements, "python")
			require.NoError(t, err)

			f := unit.Blocks()[0]
			require.Len(t, f.Statements, 2)
			assert.Equal(t, []string{"ID", "=", "LIT"}, f.Statements[0].Tokens)
			assert.Equal(t, 2, f.Statements[0].Line)
			assert.Equal(t, "ID = LIT", f.Statements[1].String())

			assert.Len(t, unit.Root.Statements, 3)
		})
	}
}

func TestBuild_PythonClassMethods(t *testing.T) {
	t.Parallel()

	code := "class A:\n    def m(self):\n        return 1\n\ndef g():\n    pass\n"

	for backend, builder := range builders() {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			unit, err := builder.Build(context.Background(), "a.py", code, "")
			require.NoError(t, err)

			blocks := unit.Blocks()
			require.Len(t, blocks, 3)

			assert.Equal(t, "A", blocks[0].Name)
			assert.Equal(t, source.KindClass, blocks[0].Kind)
			assert.Equal(t, "m", blocks[1].Name)
			assert.Equal(t, source.KindMethod, blocks[1].Kind)
			assert.Equal(t, blocks[0].Depth+1, blocks[1].Depth)
			assert.Equal(t, "g", blocks[2].Name)
			assert.Equal(t, source.KindFunction, blocks[2].Kind)
			assert.Equal(t, 5, blocks[2].StartLine)
		})
	}
}

func TestBuild_GoMethodWithSwitch(t *testing.T) {
	t.Parallel()

	code := `package main

func (s *S) Run(a int) int {
	switch a {
	case 1:
		return 1
	default:
		return 0
	}
}
`

	unit, err := source.Build(context.Background(), "main.go", code, "")
	require.NoError(t, err)

	assert.Equal(t, "go", unit.Dialect)
	assert.Equal(t, source.BackendTreeSitter, unit.Backend)

	blocks := unit.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "Run", blocks[0].Name)
	assert.Equal(t, source.KindMethod, blocks[0].Kind)
	assert.Equal(t, []source.BranchKind{source.BranchCase}, branchKinds(blocks[0]))
}

func TestBuild_JavaScriptArrowTakesDeclaratorName(t *testing.T) {
	t.Parallel()

	code := "const add = (a, b) => a + b;\nfunction twice(x) { return x ? x * 2 : 0; }\n"

	unit, err := source.Build(context.Background(), "util.js", code, "javascript")
	require.NoError(t, err)

	blocks := unit.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "add", blocks[0].Name)
	assert.Equal(t, source.KindFunction, blocks[0].Kind)
	assert.Equal(t, "twice", blocks[1].Name)
	assert.Equal(t, []source.BranchKind{source.BranchTernary}, branchKinds(blocks[1]))
}

func TestBuild_BraceFallback(t *testing.T) {
	t.Parallel()

	code := `class Greeter {
    fun greet(name: String): String {
        if (name.isEmpty() || name == "x") {
            return "hi"
        }
        return "hello " + name
    }
}

fun main() {
    for (i in 0..3) {
        println(Greeter().greet("a"))
    }
}
`

	unit, err := source.Build(context.Background(), "Main.kt", code, "kotlin")
	require.NoError(t, err)
	assert.Equal(t, source.BackendFallback, unit.Backend)

	blocks := unit.Blocks()
	require.Len(t, blocks, 3)

	assert.Equal(t, "Greeter", blocks[0].Name)
	assert.Equal(t, source.KindClass, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].StartLine)
	assert.Equal(t, 8, blocks[0].EndLine)

	assert.Equal(t, "greet", blocks[1].Name)
	assert.Equal(t, source.KindMethod, blocks[1].Kind)
	assert.Equal(t, 2, blocks[1].StartLine)
	assert.Equal(t, 7, blocks[1].EndLine)
	assert.Equal(t, []source.BranchKind{source.BranchIf, source.BranchBoolean}, branchKinds(blocks[1]))

	assert.Equal(t, "main", blocks[2].Name)
	assert.Equal(t, source.KindFunction, blocks[2].Kind)
	assert.Equal(t, []source.BranchKind{source.BranchLoop}, branchKinds(blocks[2]))
}

func TestBuild_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		unitID  string
		code    string
		dialect string
		line    int
	}{
		{name: "tree-sitter syntax error", unitID: "a.py", code: "def f(:\n    return\n", dialect: "python"},
		{name: "mismatched bracket", unitID: "a.kt", code: "fun f() {\n    val x = (1 + 2]\n}\n", dialect: "kotlin", line: 2},
		{name: "unclosed brace", unitID: "a.kt", code: "fun f() {\n    g()\n", dialect: "kotlin", line: 1},
		{name: "unterminated string", unitID: "a.kt", code: "val s = \"abc\n", dialect: "kotlin", line: 1},
		{name: "unexpected closer", unitID: "a.swift", code: "}\n", dialect: "swift", line: 1},
		{name: "binary content", unitID: "a.py", code: "x = 1\x00", dialect: "python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := source.Build(context.Background(), tt.unitID, tt.code, tt.dialect)
			require.ErrorIs(t, err, source.ErrParse)

			var perr *source.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.unitID, perr.UnitID)

			if tt.line > 0 {
				assert.Equal(t, tt.line, perr.Line)
			}
		})
	}
}

func TestBuild_IndentMismatch(t *testing.T) {
	t.Parallel()

	code := "def f():\n        x = 1\n    y = 2\n"

	_, err := source.NewBuilder(source.WithoutGrammars()).Build(context.Background(), "a.py", code, "python")

	var perr *source.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, perr.Reason, "unindent")
}

func TestBuild_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Build(ctx, "a.py", "x = 1\n", "python")
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuild_EmptyText(t *testing.T) {
	t.Parallel()

	unit, err := source.Build(context.Background(), "empty.py", "", "python")
	require.NoError(t, err)

	assert.Empty(t, unit.Blocks())
	assert.Equal(t, 0, unit.Root.EndLine)
}

func TestUnit_AllBlocksStartsWithRoot(t *testing.T) {
	t.Parallel()

	unit, err := source.Build(context.Background(), "a.py", pythonStatements, "python")
	require.NoError(t, err)

	all := unit.AllBlocks()
	require.Len(t, all, 2)
	assert.Same(t, unit.Root, all[0])
	assert.Equal(t, "python", unit.Profile().Name)
}
