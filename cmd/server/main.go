// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Command server is Tagora's process entry point: load configuration,
// construct the engine (Dictionary, Profile Store, Minute Store,
// Aggregator, Ingest Coordinator), optionally start the durable tier's
// background services under a supervisor tree, serve §6's HTTP
// endpoints, and shut down cleanly on SIGINT/SIGTERM (§6.4).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tagora/engine/internal/api"
	"github.com/tagora/engine/internal/config"
	"github.com/tagora/engine/internal/durable"
	"github.com/tagora/engine/internal/engine"
	"github.com/tagora/engine/internal/logging"
	"github.com/tagora/engine/internal/supervisor"
	"github.com/tagora/engine/internal/supervisor/services"

	"net/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting tagora-engine")

	eng, err := engine.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct engine")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing engine")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	handler := api.NewHandler(eng)

	if eng.Durable != nil {
		// The durable tier's own DLQ retry loop runs independent of
		// the HTTP-serving core (§6.5): a stalled NATS/DuckDB backend
		// never blocks ingest, it only backs up its own dead letter
		// queue, which this worker keeps draining.
		retryWorker := durable.NewAutoRetryWorker(eng.Durable.DLQ(), eng.Durable.RetryOne, 5*time.Second)
		tree.AddMessagingService(retryWorker)
		logging.Info().Msg("durable tier enabled, DLQ retry worker added to supervisor tree")
	}

	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("http server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		os.Exit(1)
	}

	logging.Info().Msg("tagora-engine stopped gracefully")
}
