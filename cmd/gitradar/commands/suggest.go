package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// NewSuggestCommand creates the suggest command over the local filesystem.
func NewSuggestCommand(global *GlobalFlags) *cobra.Command {
	return newSuggestCommandWithFs(global, afero.NewOsFs())
}

func newSuggestCommandWithFs(global *GlobalFlags, fsys afero.Fs) *cobra.Command {
	var (
		format  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "suggest [file|-]",
		Short: "Suggest naming and comment improvements for a piece of code",
		Long: `Read code or a comment block and print improvement suggestions:
unclear short names, TODO and FIXME markers and naming convention hints.

Examples:
  gitradar suggest util.py
  git diff | gitradar suggest -
  gitradar suggest --format json handler.go`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) > 0 {
				input = args[0]
			}

			data, err := readInput(fsys, cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			rt, err := newRuntime(global, runtimeOptions{mode: observability.ModeCLI, logOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer rt.close()

			var dialect string
			if input != "-" {
				dialect = source.DetectDialect(input, data)
			}

			set, err := rt.engine.GenerateSuggestionsFor(cmd.Context(), string(data), dialect)
			if err != nil {
				return err
			}

			if format == string(report.FormatJSON) {
				return report.WriteJSON(cmd.OutOrStdout(), map[string]suggest.Set{"suggestions": set})
			}

			return writeSuggestions(cmd.OutOrStdout(), set, noColor)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "Output format: text, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func writeSuggestions(w io.Writer, set suggest.Set, noColor bool) error {
	if len(set) == 0 {
		_, err := fmt.Fprintln(w, "No suggestions.")

		return err
	}

	category := color.New(color.FgCyan)
	if noColor {
		category.DisableColor()
	}

	for _, s := range set {
		_, err := fmt.Fprintf(w, "[%s] %s\n", category.Sprint(string(s.Category)), s.Text)
		if err != nil {
			return err
		}
	}

	return nil
}

// readInput reads a file, or stdin for "-".
func readInput(fsys afero.Fs, stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func inputLabel(path string) string {
	if path == "-" {
		return "stdin"
	}

	return path
}
