// Package commands implements the gitradar CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/gitradar/pkg/config"
	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/version"
)

// GlobalFlags holds the root persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// ExitError carries a process exit code for main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err: zero for nil, the carried code for
// an ExitError and one otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// runtime is the per-invocation wiring: configuration, telemetry and the engine.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	engine    *engine.Engine
	red       *observability.REDMetrics
}

type runtimeOptions struct {
	mode   observability.AppMode
	logOut io.Writer
	// tune applies command-line overrides before validation.
	tune func(*config.Config)
	// debug forces debug logging and full trace sampling.
	debug   bool
	logJSON bool
}

// newRuntime loads the configuration, applies the overrides and builds the engine.
func newRuntime(global *GlobalFlags, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.LoadConfig(global.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.tune != nil {
		opts.tune(cfg)

		err = cfg.Validate()
		if err != nil {
			return nil, err
		}
	}

	obsCfg := cfg.Observability(opts.mode, version.Version)
	obsCfg.LogOutput = opts.logOut
	obsCfg.LogJSON = obsCfg.LogJSON || opts.logJSON
	obsCfg.DebugTrace = opts.debug

	switch {
	case opts.debug || global.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case global.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	rt := &runtime{cfg: cfg, providers: providers}

	err = rt.build()
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return rt, nil
}

func (rt *runtime) build() error {
	engineMetrics, err := observability.NewEngineMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}

	rt.red, err = observability.NewREDMetrics(rt.providers.Meter)
	if err != nil {
		return err
	}

	rt.engine, err = engine.New(engine.OptionsFromConfig(rt.cfg.Analysis),
		engine.WithLogger(rt.providers.Logger),
		engine.WithTracer(rt.providers.Tracer),
		engine.WithMetrics(engineMetrics),
	)

	return err
}

func (rt *runtime) logger() *slog.Logger {
	return rt.providers.Logger
}

// close flushes telemetry; failures are logged, never returned.
func (rt *runtime) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
