package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/complexity"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
)

const (
	defaultTopFunctions = 10
	unavailable         = "-"
)

// TextOptions configures the terminal renderer.
type TextOptions struct {
	// TopFunctions limits the most-complex-functions table. Zero means 10.
	TopFunctions int
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

// TextRenderer renders reports as terminal tables.
type TextRenderer struct {
	opts TextOptions
}

// NewTextRenderer creates a renderer.
func NewTextRenderer(opts TextOptions) *TextRenderer {
	if opts.TopFunctions <= 0 {
		opts.TopFunctions = defaultTopFunctions
	}

	return &TextRenderer{opts: opts}
}

func (tr *TextRenderer) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if tr.opts.NoColor {
		c.DisableColor()
	}

	return c.Sprint(s)
}

func (tr *TextRenderer) rank(r complexity.Rank) string {
	switch r {
	case complexity.RankA, complexity.RankB:
		return tr.paint(color.FgGreen, string(r))
	case complexity.RankC, complexity.RankD:
		return tr.paint(color.FgYellow, string(r))
	default:
		return tr.paint(color.FgRed, string(r))
	}
}

func (tr *TextRenderer) status(s Status) string {
	switch s {
	case StatusOK:
		return tr.paint(color.FgGreen, string(s))
	case StatusIncomplete:
		return tr.paint(color.FgYellow, string(s))
	default:
		return tr.paint(color.FgRed, string(s))
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

// RenderBatch writes the batch summary, per-unit metrics, the most complex
// functions, duplicate groups and failures.
func (tr *TextRenderer) RenderBatch(w io.Writer, batch *BatchReport) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s (run %s)\n\n", tr.paint(color.Bold, "gitradar:"), batch.Repo, batch.RunID)

	s := batch.Summary
	fmt.Fprintf(&sb, "Units: %d  ok: %d  incomplete: %d  failed: %d\n", s.Units, s.OK, s.Incomplete, s.Failed)
	fmt.Fprintf(&sb, "Functions: %d  Classes: %d  Source lines: %s  Max complexity: %d  Duplicate groups: %d\n\n",
		s.Functions, s.Classes, humanize.Comma(int64(s.SourceLines)), s.MaxComplexity, s.DuplicateGroups)

	units := newTable()
	units.AppendHeader(table.Row{"Unit", "Dialect", "Status", "Functions", "Classes", "Lines", "Source", "Max CC", "Avg CC"})

	for _, r := range batch.Units {
		units.AppendRow(tr.unitRow(r))
	}

	sb.WriteString(units.Render())
	sb.WriteString("\n")

	tr.writeTopFunctions(&sb, batch.Units)
	tr.writeDuplicates(&sb, batch.Duplicates)

	if len(batch.Failed) > 0 {
		sb.WriteString("\n" + tr.paint(color.FgRed, "Failed units:") + "\n")

		for _, f := range batch.Failed {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.UnitID, f.Error)
		}
	}

	for _, r := range batch.Units {
		tr.writeSuggestions(&sb, r)
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

// RenderMetric writes a single unit report.
func (tr *TextRenderer) RenderMetric(w io.Writer, r *MetricReport) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s [%s, %s] %s\n", tr.paint(color.Bold, "unit:"), r.UnitID, r.Dialect, r.Backend, tr.status(r.Status))

	if r.Size != nil {
		fmt.Fprintf(&sb, "Lines: %d total, %d source, %d comment, %d blank\n",
			r.Size.Total, r.Size.Source, r.Size.Comment, r.Size.Blank)
	}

	if r.Structure != nil {
		fmt.Fprintf(&sb, "Classes: %d  Functions: %d  Methods: %d\n",
			r.Structure.Classes, r.Structure.Functions, r.Structure.Methods)
	}

	tr.writeTopFunctions(&sb, []*MetricReport{r})
	tr.writeDuplicates(&sb, r.Duplicates)

	for _, issue := range r.Issues {
		fmt.Fprintf(&sb, "%s %s: %s\n", tr.paint(color.FgYellow, "issue"), issue.Step, issue.Message)
	}

	tr.writeSuggestions(&sb, r)

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func (tr *TextRenderer) unitRow(r *MetricReport) table.Row {
	row := table.Row{r.UnitID, r.Dialect, tr.status(r.Status), unavailable, unavailable, unavailable, unavailable, unavailable, unavailable}

	if r.Structure != nil {
		row[3], row[4] = r.Structure.Functions, r.Structure.Classes
	}

	if r.Size != nil {
		row[5], row[6] = r.Size.Total, r.Size.Source
	}

	if r.Complexity != nil {
		row[7], row[8] = r.Complexity.Max, fmt.Sprintf("%.2f", r.Complexity.Average)
	}

	return row
}

type rankedRecord struct {
	unit string
	rec  complexity.Record
}

func (tr *TextRenderer) writeTopFunctions(sb *strings.Builder, reports []*MetricReport) {
	var all []rankedRecord

	for _, r := range reports {
		if r == nil || r.Complexity == nil {
			continue
		}

		for _, rec := range r.Complexity.Records {
			all = append(all, rankedRecord{unit: r.UnitID, rec: rec})
		}
	}

	if len(all) == 0 {
		return
	}

	slices.SortStableFunc(all, func(a, b rankedRecord) int {
		return cmp.Compare(b.rec.Complexity, a.rec.Complexity)
	})

	shown := all[:min(len(all), tr.opts.TopFunctions)]

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Unit", "Function", "Kind", "Line", "CC", "Rank"})

	for _, item := range shown {
		tbl.AppendRow(table.Row{item.unit, item.rec.Name, item.rec.Kind, item.rec.StartLine, item.rec.Complexity, tr.rank(item.rec.Rank)})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d functions", len(all))})

	sb.WriteString("\nMost complex functions:\n")
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")
}

func (tr *TextRenderer) writeDuplicates(sb *strings.Builder, groups []duplication.Group) {
	if len(groups) == 0 {
		return
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Kind", "Similarity", "Members"})

	for i, g := range groups {
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, fmt.Sprintf("%s:%s:%d-%d", m.UnitID, m.Name, m.StartLine, m.EndLine))
		}

		tbl.AppendRow(table.Row{i + 1, g.Kind, fmt.Sprintf("%.2f", g.Similarity), strings.Join(members, ", ")})
	}

	sb.WriteString("\nDuplicate groups:\n")
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")
}

func (tr *TextRenderer) writeSuggestions(sb *strings.Builder, r *MetricReport) {
	if r == nil || len(r.Suggestions) == 0 {
		return
	}

	fmt.Fprintf(sb, "\nSuggestions for %s:\n", r.UnitID)

	for _, s := range r.Suggestions {
		fmt.Fprintf(sb, "  [%s] %s\n", tr.paint(color.FgCyan, string(s.Category)), s.Text)
	}
}
