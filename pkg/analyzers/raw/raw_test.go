package raw

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

func TestCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		text    string
		want    SizeRecord
	}{
		{
			name:    "empty",
			dialect: "python",
			text:    "",
			want:    SizeRecord{},
		},
		{
			name:    "python mixed",
			dialect: "python",
			text:    "# header\n\nx = 1  # trailing\n\n\ndef f():\n    return x\n",
			want:    SizeRecord{Total: 7, Blank: 3, Comment: 1, Source: 3},
		},
		{
			name:    "go block comment interior",
			dialect: "go",
			text:    "package a\n\n/*\n\nnotes\n*/\nvar x = 1 // c\n",
			want:    SizeRecord{Total: 7, Blank: 1, Comment: 4, Source: 2},
		},
		{
			name:    "multiline string counts as source",
			dialect: "python",
			text:    "s = \"\"\"\n\n# not a comment\n\"\"\"\n",
			want:    SizeRecord{Total: 4, Blank: 0, Comment: 0, Source: 4},
		},
		{
			name:    "crlf endings without trailing newline",
			dialect: "c",
			text:    "int a;\r\n\r\n// c\r\nint b;",
			want:    SizeRecord{Total: 4, Blank: 1, Comment: 1, Source: 2},
		},
		{
			name:    "javascript regex with quotes",
			dialect: "javascript",
			text:    "const re = /[\"']/g; // quotes\n\nfunction f(s) { return s.replace(re, ''); }\n",
			want:    SizeRecord{Total: 3, Blank: 1, Source: 2},
		},
		{
			name:    "whitespace only",
			dialect: "ruby",
			text:    "   \n\t\n",
			want:    SizeRecord{Total: 2, Blank: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Count(tt.text, source.ProfileFor(tt.dialect))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Total, got.Blank+got.Comment+got.Source)
		})
	}
}

func TestCount_TrailingNewlineIsStable(t *testing.T) {
	t.Parallel()

	body := "a = 1\n# note\n\nb = 2"
	profile := source.ProfileFor("python")

	without, err := Count(body, profile)
	require.NoError(t, err)

	with, err := Count(body+"\n", profile)
	require.NoError(t, err)

	assert.Equal(t, without, with)
	assert.Equal(t, 4, with.Total)
}

func TestCount_LexFailure(t *testing.T) {
	t.Parallel()

	_, err := Count("/* never closed\nint x;\n", source.ProfileFor("c"))
	require.ErrorIs(t, err, ErrLex)
}

func TestAnalyze_UsesUnitDialect(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{"// a", "# b", ""}, "\n")

	goRec, err := Analyze(&source.Unit{Text: text, Dialect: "go"})
	require.NoError(t, err)
	assert.Equal(t, SizeRecord{Total: 2, Comment: 1, Source: 1}, goRec)

	pyRec, err := Analyze(&source.Unit{Text: text, Dialect: "python"})
	require.NoError(t, err)
	assert.Equal(t, SizeRecord{Total: 2, Comment: 1, Source: 1}, pyRec)

	_, err = Analyze(nil)
	require.ErrorIs(t, err, ErrNilUnit)
}
