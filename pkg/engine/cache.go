package engine

import (
	"maps"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/gitradar/pkg/alg/hashutil"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
)

// cacheKey identifies one AnalyzeUnit input. The text is reduced to its
// length and a mixed FNV-1a sum.
type cacheKey struct {
	unitID  string
	dialect string
	size    int
	sum     uint64
}

func newCacheKey(unitID, dialect, text string) cacheKey {
	return cacheKey{
		unitID:  unitID,
		dialect: dialect,
		size:    len(text),
		sum:     hashutil.Mix64(hashutil.FNV64aString(text)),
	}
}

// reportCache keeps complete unit reports. A nil cache never hits.
type reportCache struct {
	entries *lru.Cache[cacheKey, *report.MetricReport]
}

func newReportCache(size int) (*reportCache, error) {
	if size <= 0 {
		return nil, nil //nolint:nilnil // disabled cache
	}

	entries, err := lru.New[cacheKey, *report.MetricReport](size)
	if err != nil {
		return nil, err
	}

	return &reportCache{entries: entries}, nil
}

func (c *reportCache) get(key cacheKey) (*report.MetricReport, bool) {
	if c == nil {
		return nil, false
	}

	rep, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}

	return cloneReport(rep), true
}

// put stores rep when every analyzer succeeded.
func (c *reportCache) put(key cacheKey, rep *report.MetricReport) {
	if c == nil || rep.Status != report.StatusOK {
		return
	}

	c.entries.Add(key, cloneReport(rep))
}

func (c *reportCache) len() int {
	if c == nil {
		return 0
	}

	return c.entries.Len()
}

// cloneReport deep-copies the report so callers may mutate any part of it.
func cloneReport(rep *report.MetricReport) *report.MetricReport {
	cp := *rep
	cp.Issues = slices.Clone(rep.Issues)
	cp.Suggestions = slices.Clone(rep.Suggestions)

	if rep.Complexity != nil {
		summary := *rep.Complexity
		summary.Records = slices.Clone(rep.Complexity.Records)
		summary.Distribution = maps.Clone(rep.Complexity.Distribution)
		cp.Complexity = &summary
	}

	if rep.Size != nil {
		size := *rep.Size
		cp.Size = &size
	}

	if rep.Structure != nil {
		count := *rep.Structure
		cp.Structure = &count
	}

	if rep.Duplicates != nil {
		cp.Duplicates = make([]duplication.Group, len(rep.Duplicates))
		for i, g := range rep.Duplicates {
			g.Members = slices.Clone(g.Members)
			cp.Duplicates[i] = g
		}
	}

	return &cp
}
