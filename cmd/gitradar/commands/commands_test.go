package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	unitA   = "def total(items):\n    acc = 0\n    for item in items:\n        acc += item\n    return acc\n"
	unitB   = "def sum_all(values):\n    s = 10\n    for v in values:\n        s += v\n    return s\n"
	unitBad = "def f(:\n    return\n"
	unitC   = "# TODO split\ndef g(x):\n    return x\n"
)

// testGlobals writes a config file holding body and returns quiet globals
// pointing at it.
func testGlobals(t *testing.T, body string) *GlobalFlags {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitradar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return &GlobalFlags{ConfigPath: path, Quiet: true}
}

func seedFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fsys := afero.NewMemMapFs()

	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}

	return fsys
}

func repoFs(t *testing.T) afero.Fs {
	t.Helper()

	return seedFs(t, map[string]string{
		"/repo/a.py":   unitA,
		"/repo/b.py":   unitB,
		"/repo/bad.py": unitBad,
		"/repo/c.py":   unitC,
	})
}

func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}
