// Package main is the function entry point. GITRADAR_LAMBDA_HANDLER selects
// the analyze (default) or suggest handler.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Sumatoshi-tech/gitradar/pkg/config"
	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/lambdaapi"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
	"github.com/Sumatoshi-tech/gitradar/pkg/version"
)

const envHandler = "GITRADAR_LAMBDA_HANDLER"

func main() {
	err := run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	version.InitBinaryVersion()

	cfg, err := config.LoadConfig(os.Getenv("GITRADAR_CONFIG"))
	if err != nil {
		return err
	}

	obsCfg := cfg.Observability(observability.ModeLambda, version.Version)
	obsCfg.LogJSON = true

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	engineMetrics, err := observability.NewEngineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.OptionsFromConfig(cfg.Analysis),
		engine.WithLogger(providers.Logger),
		engine.WithTracer(providers.Tracer),
		engine.WithMetrics(engineMetrics),
	)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	handlers := lambdaapi.New(lambdaapi.Deps{
		Engine:  eng,
		Store:   backend.Store,
		Sink:    backend.Sink,
		Codec:   storage.Codec{Compress: cfg.Storage.Compress},
		Logger:  providers.Logger,
		Metrics: red,
	})

	handler, err := handlers.Handler(os.Getenv(envHandler))
	if err != nil {
		return err
	}

	providers.Logger.Info("lambda starting", "handler", os.Getenv(envHandler), "storage", backend.Name)
	lambda.StartWithOptions(handler, lambda.WithContext(ctx))

	return nil
}
