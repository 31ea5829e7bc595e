package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
)

func seedStore(t *testing.T, files map[string]string) *storage.FSStore {
	t.Helper()

	store := storage.NewFSStore(afero.NewMemMapFs(), "/src")

	for k, v := range files {
		require.NoError(t, store.Put(context.Background(), k, []byte(v)))
	}

	return store
}

func TestPipeline_RunUpsertsReports(t *testing.T) {
	t.Parallel()

	store := seedStore(t, map[string]string{
		"demo/a.py":     "# TODO tidy\ndef f(x):\n    return x\n",
		"demo/big.py":   "x = 1\n" + strings.Repeat("# padding\n", 20),
		"demo/logo.png": "\x89PNG\x00\x00",
		"demo/bad.py":   "def f(:\n",
		"other/z.py":    "z = 1\n",
	})
	sink := storage.NewMemorySink()

	eng := newEngine(t, engine.DefaultOptions())
	p := engine.NewPipeline(eng, store, sink, engine.PipelineConfig{MaxFileSize: 64, Suggest: true})

	batch, err := p.Run(context.Background(), "demo", "demo")
	require.NoError(t, err)

	assert.Equal(t, []string{"demo/a.py", "demo/bad.py"}, sink.Units("demo"))
	require.Len(t, batch.Units, 2)
	assert.Equal(t, 1, batch.Summary.Failed)

	got, err := sink.GetMetrics(context.Background(), "demo", "demo/a.py")
	require.NoError(t, err)
	assert.Equal(t, report.StatusOK, got.Status)

	set, err := sink.GetSuggestions(context.Background(), "demo", "demo/a.py")
	require.NoError(t, err)
	assert.Contains(t, set.Texts(), "Complete the task mentioned in the comment: 'TODO tidy'")

	// Re-running replaces the stored reports instead of adding new ones.
	_, err = p.Run(context.Background(), "demo", "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/a.py", "demo/bad.py"}, sink.Units("demo"))
}

type failingSink struct {
	*storage.MemorySink
	failUnit string
}

var errSinkDown = errors.New("sink down")

func (f *failingSink) PutMetrics(ctx context.Context, repo string, r *report.MetricReport) error {
	if r.UnitID == f.failUnit {
		return errSinkDown
	}

	return f.MemorySink.PutMetrics(ctx, repo, r)
}

func TestPipeline_SinkErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	store := seedStore(t, map[string]string{
		"a.py": "def f(x):\n    return x\n",
		"b.py": "def g(y):\n    return y\n",
		"c.py": "def h(z):\n    return z\n",
	})
	sink := &failingSink{MemorySink: storage.NewMemorySink(), failUnit: "b.py"}

	p := engine.NewPipeline(newEngine(t, engine.DefaultOptions()), store, sink, engine.PipelineConfig{})

	batch, err := p.Run(context.Background(), "demo", "")
	require.ErrorIs(t, err, errSinkDown)
	assert.Contains(t, err.Error(), "persist metrics b.py")
	require.NotNil(t, batch)

	assert.Equal(t, []string{"a.py", "c.py"}, sink.Units("demo"))
}

type brokenSource struct {
	storage.BlobSource
}

func (brokenSource) List(context.Context, string) ([]string, error) {
	return nil, errors.New("bucket gone")
}

func TestPipeline_ListError(t *testing.T) {
	t.Parallel()

	p := engine.NewPipeline(newEngine(t, engine.DefaultOptions()), brokenSource{}, storage.NewMemorySink(), engine.PipelineConfig{})

	batch, err := p.Run(context.Background(), "demo", "src")
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.Contains(t, err.Error(), "bucket gone")
}
