package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitradar/pkg/config"
	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
)

// ErrUnitsFailed is returned by --strict runs that had failed units.
var ErrUnitsFailed = errors.New("units failed analysis")

const defaultRepoName = "local"

// AnalyzeCommand holds the configuration for the analyze command.
type AnalyzeCommand struct {
	global *GlobalFlags
	fs     afero.Fs

	format string
	output string
	repo   string
	remote string

	dialect       string
	workers       int
	threshold     float64
	minStatements int
	top           int

	persist       bool
	suggest       bool
	strict        bool
	noColor       bool
	noDuplication bool
	noGrammars    bool
}

// NewAnalyzeCommand creates the analyze command over the local filesystem.
func NewAnalyzeCommand(global *GlobalFlags) *cobra.Command {
	return newAnalyzeCommandWithFs(global, afero.NewOsFs())
}

func newAnalyzeCommandWithFs(global *GlobalFlags, fsys afero.Fs) *cobra.Command {
	ac := &AnalyzeCommand{global: global, fs: fsys, format: string(report.FormatText)}

	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Compute complexity, size, structure and duplication metrics",
		Long: `Analyze source files and directories and print a batch report.

Directories are walked recursively; hidden and vendored trees are skipped and
only programming languages are kept. Files named explicitly are always analyzed.

With --remote the units are read from the configured blob store instead, under
the given key prefix, and every report is written back to the configured sink.

Examples:
  gitradar analyze .
  gitradar analyze --format json -o report.json src/
  gitradar analyze --suggest --strict main.py util.py
  gitradar analyze --remote myrepo/ --repo myrepo`,
		RunE: ac.run,
	}

	cmd.Flags().StringVarP(&ac.format, "format", "f", ac.format, "Output format: text, json, yaml, plot")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&ac.repo, "repo", "", "Repository name recorded in the report (default: base name of the first path)")
	cmd.Flags().StringVar(&ac.remote, "remote", "", "Analyze the blob store keys under this prefix")
	cmd.Flags().StringVar(&ac.dialect, "dialect", "", "Force one dialect for every unit instead of detecting it")
	cmd.Flags().IntVar(&ac.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().Float64Var(&ac.threshold, "similarity", 0, "Near-duplicate similarity threshold in (0, 1]")
	cmd.Flags().IntVar(&ac.minStatements, "min-statements", 0, "Minimum statements for a block to take part in duplication")
	cmd.Flags().IntVar(&ac.top, "top", 0, "Rows in the most complex functions table (0 = 10)")
	cmd.Flags().BoolVar(&ac.persist, "persist", false, "Write unit reports to the configured storage backend")
	cmd.Flags().BoolVar(&ac.suggest, "suggest", false, "Attach improvement suggestions to every unit")
	cmd.Flags().BoolVar(&ac.strict, "strict", false, "Exit non-zero when any unit failed")
	cmd.Flags().BoolVar(&ac.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().BoolVar(&ac.noDuplication, "no-duplication", false, "Skip duplicate detection")
	cmd.Flags().BoolVar(&ac.noGrammars, "no-grammars", false, "Use the lexical fallback builder for every dialect")

	return cmd
}

func (ac *AnalyzeCommand) tune(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()

		if flags.Changed("dialect") {
			cfg.Analysis.Dialect = ac.dialect
		}

		if flags.Changed("workers") {
			cfg.Analysis.Workers = ac.workers
		}

		if flags.Changed("similarity") {
			cfg.Analysis.SimilarityThreshold = ac.threshold
		}

		if flags.Changed("min-statements") {
			cfg.Analysis.MinBlockStatements = ac.minStatements
		}

		if ac.noDuplication {
			cfg.Analysis.DisableDuplication = true
		}

		if ac.noGrammars {
			cfg.Analysis.DisableGrammars = true
		}
	}
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(ac.format)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ac.global, runtimeOptions{
		mode:   observability.ModeCLI,
		logOut: cmd.ErrOrStderr(),
		tune:   ac.tune(cmd),
	})
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	var batch *report.BatchReport

	if ac.remote != "" {
		batch, err = ac.runRemote(ctx, rt)
	} else {
		batch, err = ac.runLocal(ctx, rt, args)
	}

	if batch == nil {
		return err
	}

	writeErr := ac.write(cmd.OutOrStdout(), format, batch)
	if writeErr != nil {
		return errors.Join(err, writeErr)
	}

	if err != nil {
		return err
	}

	if ac.strict && batch.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrUnitsFailed, len(batch.Failed), len(batch.Units))
	}

	return nil
}

func (ac *AnalyzeCommand) runLocal(ctx context.Context, rt *runtime, args []string) (*report.BatchReport, error) {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	maxSize, err := rt.cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	col := newCollector(ac.fs, maxSize)

	err = col.collect(ctx, paths)
	if err != nil {
		return nil, err
	}

	for _, s := range col.skipped {
		rt.logger().DebugContext(ctx, "file skipped", "path", s.Path, "reason", s.Reason)
	}

	repo := ac.repoName(paths)

	rt.logger().InfoContext(ctx, "analyzing", "repo", repo, "units", len(col.units), "skipped", len(col.skipped))

	batch, err := rt.engine.AnalyzeBatch(ctx, repo, col.units)
	if err != nil {
		return batch, err
	}

	if ac.suggest {
		rt.engine.AttachSuggestions(ctx, batch, col.units)
	}

	if ac.persist {
		err = ac.persistBatch(ctx, rt, batch)
	}

	return batch, err
}

func (ac *AnalyzeCommand) persistBatch(ctx context.Context, rt *runtime, batch *report.BatchReport) error {
	backend, err := storage.Open(ctx, rt.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	err = engine.PersistBatch(ctx, backend.Sink, batch, ac.suggest)

	rt.logger().InfoContext(ctx, "reports persisted", "backend", backend.Name, "units", len(batch.Units))

	return errors.Join(err, backend.Close())
}

func (ac *AnalyzeCommand) runRemote(ctx context.Context, rt *runtime) (*report.BatchReport, error) {
	backend, err := storage.Open(ctx, rt.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	store, err := backend.RequireStore()
	if err != nil {
		return nil, err
	}

	maxSize, err := rt.cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	repo := ac.repo
	if repo == "" {
		repo = strings.Trim(ac.remote, "/")
	}

	pipe := engine.NewPipeline(rt.engine, store, backend.Sink, engine.PipelineConfig{
		MaxFileSize: maxSize,
		Suggest:     ac.suggest,
	})

	return pipe.Run(ctx, repo, ac.remote)
}

func (ac *AnalyzeCommand) repoName(paths []string) string {
	if ac.repo != "" {
		return ac.repo
	}

	abs, err := filepath.Abs(paths[0])
	if err != nil {
		return defaultRepoName
	}

	if info, statErr := ac.fs.Stat(abs); statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultRepoName
	}

	return name
}

func (ac *AnalyzeCommand) write(stdout io.Writer, format report.Format, batch *report.BatchReport) error {
	w := stdout

	if ac.output != "" {
		f, err := ac.fs.Create(ac.output)
		if err != nil {
			return fmt.Errorf("create output %s: %w", ac.output, err)
		}
		defer f.Close()

		w = f
	}

	if format == report.FormatText {
		return report.NewTextRenderer(report.TextOptions{
			TopFunctions: ac.top,
			NoColor:      ac.noColor || ac.output != "",
		}).RenderBatch(w, batch)
	}

	return report.WriteBatch(w, format, batch)
}
