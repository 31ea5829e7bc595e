package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/complexity"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/raw"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
)

func TestRunStep_RecoversPanic(t *testing.T) {
	t.Parallel()

	_, err := runStep(func() (int, error) {
		panic("index out of range")
	})
	require.ErrorIs(t, err, errStepPanic)
	assert.Contains(t, err.Error(), "index out of range")

	v, err := runStep(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestIncompleteError(t *testing.T) {
	t.Parallel()

	rep := &report.MetricReport{UnitID: "a.py", Status: report.StatusOK}
	require.NoError(t, incompleteError(rep))

	rep.AddIssue(report.StepSize, errors.New("lex failed"))
	rep.AddIssue(report.StepDuplication, errors.New("canceled"))

	err := incompleteError(rep)
	require.ErrorIs(t, err, ErrAnalysisIncomplete)

	var incomplete *IncompleteError

	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "a.py", incomplete.UnitID)
	assert.Equal(t, []string{"size", "duplication"}, incomplete.Steps)
	assert.Contains(t, err.Error(), "size: lex failed")
	assert.Equal(t, report.StatusIncomplete, rep.Status)
}

func TestAnalyzeUnit_CachesCompleteReports(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.CacheSize = 2

	eng, err := New(opts)
	require.NoError(t, err)

	const text = "def f(x):\n    return x\n"

	first, err := eng.AnalyzeUnit(context.Background(), "a.py", text, "")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.cache.len())

	require.NotNil(t, first.Complexity)
	require.Len(t, first.Complexity.Records, 1)
	require.NotNil(t, first.Size)
	require.NotNil(t, first.Structure)

	first.Repo = "mutated"
	first.Complexity.Records[0].Name = "renamed"
	first.Complexity.Distribution[complexity.RankF] = 9
	first.Size.Total = 999
	first.Structure.Functions = 42

	second, err := eng.AnalyzeUnit(context.Background(), "a.py", text, "")
	require.NoError(t, err)
	assert.Empty(t, second.Repo)
	assert.Equal(t, "f", second.Complexity.Records[0].Name)
	assert.Zero(t, second.Complexity.Distribution[complexity.RankF])
	assert.Equal(t, 2, second.Size.Total)
	assert.Equal(t, 1, second.Structure.Functions)

	second.Complexity.Records[0].Name = "again"

	third, err := eng.AnalyzeUnit(context.Background(), "a.py", text, "")
	require.NoError(t, err)
	assert.Equal(t, "f", third.Complexity.Records[0].Name)

	_, err = eng.AnalyzeUnit(context.Background(), "a.py", text+"\n", "")
	require.NoError(t, err)
	assert.Equal(t, 2, eng.cache.len())

	_, err = eng.AnalyzeUnit(context.Background(), "bad.py", "def f(:\n", "python")
	require.Error(t, err)
	assert.Equal(t, 2, eng.cache.len())
}

func TestReportCache_Disabled(t *testing.T) {
	t.Parallel()

	cache, err := newReportCache(0)
	require.NoError(t, err)
	assert.Nil(t, cache)

	_, ok := cache.get(newCacheKey("a.py", "", "x"))
	assert.False(t, ok)
	cache.put(newCacheKey("a.py", "", "x"), &report.MetricReport{Status: report.StatusOK})
	assert.Zero(t, cache.len())
}

func TestDuplicateGroupsCloneMembers(t *testing.T) {
	t.Parallel()

	rep := &report.MetricReport{
		Status: report.StatusOK,
		Duplicates: []duplication.Group{{
			Kind:    duplication.GroupExact,
			Members: []duplication.Member{{UnitID: "a.py", Name: "f"}, {UnitID: "a.py", Name: "g"}},
		}},
	}

	cp := cloneReport(rep)
	cp.Duplicates[0].Members[0].Name = "h"

	assert.Equal(t, "f", rep.Duplicates[0].Members[0].Name)
}

var errSizeStep = errors.New("size step failed")

func failSizeFor(unitID string) func(*source.Unit) (raw.SizeRecord, error) {
	return func(unit *source.Unit) (raw.SizeRecord, error) {
		if unit.ID == unitID {
			return raw.SizeRecord{}, errSizeStep
		}

		return raw.Analyze(unit)
	}
}

func TestAnalyzeUnit_FailedStepYieldsIncompleteReport(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.CacheSize = 4

	eng, err := New(opts)
	require.NoError(t, err)

	eng.steps.size = failSizeFor("a.py")

	rep, err := eng.AnalyzeUnit(context.Background(), "a.py", "def f(x):\n    return x\n", "")
	require.ErrorIs(t, err, ErrAnalysisIncomplete)
	assert.Contains(t, err.Error(), "size: "+errSizeStep.Error())

	var incomplete *IncompleteError

	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{report.StepSize}, incomplete.Steps)

	require.NotNil(t, rep)
	assert.Equal(t, report.StatusIncomplete, rep.Status)
	assert.Nil(t, rep.Size)
	require.NotNil(t, rep.Complexity)
	assert.Len(t, rep.Complexity.Records, 1)
	require.NotNil(t, rep.Structure)
	assert.Equal(t, 1, rep.Structure.Functions)
	assert.NotNil(t, rep.Duplicates)
	require.Len(t, rep.Issues, 1)
	assert.Contains(t, rep.Issues[0].Message, errSizeStep.Error())
	assert.Zero(t, eng.cache.len())
}

func TestAnalyzeBatch_FailedStepLeavesOtherUnitsComplete(t *testing.T) {
	t.Parallel()

	eng, err := New(DefaultOptions())
	require.NoError(t, err)

	eng.steps.size = failSizeFor("b.py")

	batch, err := eng.AnalyzeBatch(context.Background(), "repo", []UnitInput{
		{ID: "a.py", Text: "def f(x):\n    return x\n"},
		{ID: "b.py", Text: "def g(y):\n    return y\n"},
		{ID: "c.py", Text: "class C:\n    def m(self):\n        return 1\n"},
	})
	require.NoError(t, err)
	require.Len(t, batch.Units, 3)

	b := batch.Units[1]
	assert.Equal(t, report.StatusIncomplete, b.Status)
	assert.Nil(t, b.Size)
	assert.NotNil(t, b.Complexity)
	assert.NotNil(t, b.Structure)
	assert.Equal(t, []string{report.StepSize}, b.FailedSteps())
	require.ErrorIs(t, incompleteError(b), ErrAnalysisIncomplete)

	for _, rep := range []*report.MetricReport{batch.Units[0], batch.Units[2]} {
		assert.Equal(t, report.StatusOK, rep.Status, rep.UnitID)
		assert.NotNil(t, rep.Size, rep.UnitID)
		assert.Empty(t, rep.Issues, rep.UnitID)
		assert.NoError(t, incompleteError(rep), rep.UnitID)
	}

	assert.Empty(t, batch.Failed)
	assert.Equal(t, 1, batch.Summary.Incomplete)
}

func unitsByStatus(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "gitradar.units.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				counts[status.AsString()] += dp.Value
			}
		}
	}

	return counts
}

func TestAnalyzeUnit_RecordsFinalStatus(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := observability.NewEngineMetrics(meter)
	require.NoError(t, err)

	eng, err := New(DefaultOptions(), WithMetrics(metrics))
	require.NoError(t, err)

	eng.detector = duplication.NewDetector(duplication.Options{})

	rep, err := eng.AnalyzeUnit(context.Background(), "a.py", "def f(x):\n    return x\n", "")
	require.ErrorIs(t, err, ErrAnalysisIncomplete)
	assert.Equal(t, []string{report.StepDuplication}, rep.FailedSteps())

	assert.Equal(t, map[string]int64{"incomplete": 1}, unitsByStatus(t, reader))
}
