package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-ensemble-da/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-ensemble-da/internal/adapter/kafka"
	"github.com/couchcryptid/storm-ensemble-da/internal/config"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"github.com/couchcryptid/storm-ensemble-da/internal/observability"
	"github.com/couchcryptid/storm-ensemble-da/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	state, err := loadState(cfg.StatePath)
	if err != nil {
		logger.Error("failed to load ensemble state", "path", cfg.StatePath, "error", err)
		os.Exit(1)
	}
	metrics.EnsembleMembers.Set(float64(state.NumMems()))
	metrics.StateSize.Set(float64(state.NumState()))
	logger.Info("ensemble state loaded",
		"path", cfg.StatePath,
		"shape", state.Shape(),
		"members", state.NumMems(),
		"state_size", state.NumState(),
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(state, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, state, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start assimilation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func loadState(path string) (*ensemble.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := ensemble.ReadDataset(f)
	if err != nil {
		return nil, err
	}
	state, err := ensemble.FromDataset(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}
