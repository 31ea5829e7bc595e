package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
)

// Validation exit codes.
const (
	exitCodeInvalidReport     = 1
	exitCodeValidationFailure = 2
)

// ErrReportInvalid is returned when a document violates the report schema.
var ErrReportInvalid = errors.New("report does not match the schema")

// NewValidateCommand creates the validate command over the local filesystem.
func NewValidateCommand(global *GlobalFlags) *cobra.Command {
	return newValidateCommandWithFs(global, afero.NewOsFs())
}

func newValidateCommandWithFs(global *GlobalFlags, fsys afero.Fs) *cobra.Command {
	var (
		kind        string
		colorize    bool
		nocolor     bool
		printSchema bool
	)

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the gitradar report schema",
		Long: `Validate a metric report, batch report or suggestion set produced by
gitradar against the embedded JSON schema. The document kind is detected
from its top-level keys unless --kind is given.

Exit codes: 0 valid, 1 schema violations, 2 unreadable input.

Examples:
  gitradar validate report.json
  gitradar analyze -f json . | gitradar validate -
  gitradar validate --schema`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if printSchema {
				schema, err := report.Schema()
				if err != nil {
					return err
				}

				_, err = out.Write(schema)

				return err
			}

			data, err := readInput(fsys, cmd.InOrStdin(), args[0])
			if err != nil {
				return &ExitError{Code: exitCodeValidationFailure, Err: err}
			}

			res, err := report.Validate(data, report.DocumentKind(kind))
			if err != nil {
				return &ExitError{Code: exitCodeValidationFailure, Err: err}
			}

			painter := newPainter(colorize, nocolor)
			label := inputLabel(args[0])

			if res.Valid() {
				if !global.Quiet {
					painter(color.FgGreen).Fprintf(out, "%s is valid (%s)\n", res.Kind, label)
				}

				return nil
			}

			writeViolations(out, painter, res, label)

			return &ExitError{
				Code: exitCodeInvalidReport,
				Err:  fmt.Errorf("%w: %s: %d violations", ErrReportInvalid, label, len(res.Errors)),
			}
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Document kind: metricReport, batchReport, suggestionSet (default: detect)")
	cmd.Flags().BoolVar(&colorize, "color", false, "Force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the embedded JSON schema and exit")

	return cmd
}

type painterFunc func(color.Attribute) *color.Color

func newPainter(colorize, nocolor bool) painterFunc {
	return func(attr color.Attribute) *color.Color {
		c := color.New(attr)

		switch {
		case nocolor:
			c.DisableColor()
		case colorize:
			c.EnableColor()
		}

		return c
	}
}

func writeViolations(w io.Writer, paint painterFunc, res *report.ValidationResult, label string) {
	paint(color.FgRed).Fprintf(w, "%s validation failed (%s)\n\n", res.Kind, label)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Field", "Problem"})

	for _, fe := range res.Errors {
		tbl.AppendRow(table.Row{paint(color.FgYellow).Sprint(fe.Field), fe.Description})
	}

	fmt.Fprintln(w, tbl.Render())

	if hint := schemaHint(res.Errors); hint != "" {
		paint(color.FgCyan).Fprintf(w, "\nHint: %s\n", hint)
	}
}

// schemaHint picks the most useful advice for the violations found.
func schemaHint(errs []report.FieldError) string {
	for _, fe := range errs {
		switch {
		case strings.Contains(fe.Description, "is required"):
			return "every section key must be present; unavailable sections are null, not omitted"
		case fe.Field == "status" || strings.HasSuffix(fe.Field, ".status"):
			return "status must be one of ok, incomplete, failed"
		case strings.Contains(fe.Description, "greater than or equal"):
			return "counts and line numbers are never negative"
		}
	}

	return ""
}
