// Package report defines the metric reports produced by the engine and
// renders them as JSON, YAML, terminal tables or an HTML plot page.
package report

import (
	"github.com/samber/lo"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/complexity"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/raw"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/structure"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// Status is the outcome of analyzing one unit.
type Status string

// Unit statuses.
const (
	StatusOK         Status = "ok"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// Analyzer steps named in issues.
const (
	StepModel       = "model"
	StepComplexity  = "complexity"
	StepSize        = "size"
	StepStructure   = "structure"
	StepDuplication = "duplication"
	StepSuggestions = "suggestions"
)

// Issue records a failed analyzer step.
type Issue struct {
	Step    string `json:"step"    yaml:"step"`
	Message string `json:"message" yaml:"message"`
}

// MetricReport holds every metric of one unit. A nil sub-record means the
// metric is unavailable.
type MetricReport struct {
	Repo        string              `json:"repo,omitempty"        yaml:"repo,omitempty"`
	UnitID      string              `json:"unit_id"               yaml:"unit_id"`
	Dialect     string              `json:"dialect"               yaml:"dialect"`
	Backend     source.Backend      `json:"backend,omitempty"     yaml:"backend,omitempty"`
	Status      Status              `json:"status"                yaml:"status"`
	Complexity  *complexity.Summary `json:"complexity"            yaml:"complexity"`
	Size        *raw.SizeRecord     `json:"size"                  yaml:"size"`
	Structure   *structure.Count    `json:"structure"             yaml:"structure"`
	Duplicates  []duplication.Group `json:"duplicates"            yaml:"duplicates"`
	Issues      []Issue             `json:"issues,omitempty"      yaml:"issues,omitempty"`
	Suggestions suggest.Set         `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// AddIssue records a failed step and downgrades an ok report to incomplete.
func (r *MetricReport) AddIssue(step string, err error) {
	r.Issues = append(r.Issues, Issue{Step: step, Message: err.Error()})

	if r.Status == StatusOK {
		r.Status = StatusIncomplete
	}
}

// FailedSteps lists the steps named by the report's issues.
func (r *MetricReport) FailedSteps() []string {
	return lo.Map(r.Issues, func(i Issue, _ int) string { return i.Step })
}

// FailedUnit is a unit that could not be modeled.
type FailedUnit struct {
	UnitID string `json:"unit_id" yaml:"unit_id"`
	Error  string `json:"error"   yaml:"error"`
}

// Summary aggregates a batch.
type Summary struct {
	Units            int                     `json:"units"             yaml:"units"`
	OK               int                     `json:"ok"                yaml:"ok"`
	Incomplete       int                     `json:"incomplete"        yaml:"incomplete"`
	Failed           int                     `json:"failed"            yaml:"failed"`
	Functions        int                     `json:"functions"         yaml:"functions"`
	Classes          int                     `json:"classes"           yaml:"classes"`
	SourceLines      int                     `json:"source_lines"      yaml:"source_lines"`
	MaxComplexity    int                     `json:"max_complexity"    yaml:"max_complexity"`
	DuplicateGroups  int                     `json:"duplicate_groups"  yaml:"duplicate_groups"`
	RankDistribution map[complexity.Rank]int `json:"rank_distribution" yaml:"rank_distribution"`
}

// BatchReport is the result of analyzing many units of one repository.
type BatchReport struct {
	RunID      string              `json:"run_id"     yaml:"run_id"`
	Repo       string              `json:"repo"       yaml:"repo"`
	Units      []*MetricReport     `json:"units"      yaml:"units"`
	Duplicates []duplication.Group `json:"duplicates" yaml:"duplicates"`
	Failed     []FailedUnit        `json:"failed"     yaml:"failed"`
	Summary    Summary             `json:"summary"    yaml:"summary"`
}

// Summarize recomputes the batch summary from its units and groups.
func (b *BatchReport) Summarize() {
	s := Summary{
		Units:            len(b.Units),
		DuplicateGroups:  len(b.Duplicates),
		RankDistribution: make(map[complexity.Rank]int),
	}

	present := lo.Filter(b.Units, func(r *MetricReport, _ int) bool { return r != nil })
	counts := lo.CountValuesBy(present, func(r *MetricReport) Status { return r.Status })
	s.OK = counts[StatusOK]
	s.Incomplete = counts[StatusIncomplete]
	s.Failed = counts[StatusFailed]

	for _, r := range present {
		if r.Structure != nil {
			s.Functions += r.Structure.Functions
			s.Classes += r.Structure.Classes
		}

		if r.Size != nil {
			s.SourceLines += r.Size.Source
		}

		if r.Complexity != nil {
			s.MaxComplexity = max(s.MaxComplexity, r.Complexity.Max)

			for rank, n := range r.Complexity.Distribution {
				s.RankDistribution[rank] += n
			}
		}
	}

	b.Summary = s
}

// HasFailures reports whether any unit failed.
func (b *BatchReport) HasFailures() bool {
	return len(b.Failed) > 0
}

// Unit returns the report of the given unit, or nil.
func (b *BatchReport) Unit(unitID string) *MetricReport {
	r, _ := lo.Find(b.Units, func(r *MetricReport) bool { return r != nil && r.UnitID == unitID })

	return r
}
