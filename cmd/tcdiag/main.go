package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/tcdiag-service/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/tcdiag-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tcdiag-service/internal/adapter/kafka"
	"github.com/couchcryptid/tcdiag-service/internal/config"
	"github.com/couchcryptid/tcdiag-service/internal/observability"
	"github.com/couchcryptid/tcdiag-service/internal/pipeline"
	"github.com/couchcryptid/tcdiag-service/internal/units"
	"github.com/couchcryptid/tcdiag-service/internal/vario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := dataset.NewReader(cfg.DatasetDir, logger)
	writer := dataset.NewWriter(cfg.OutputDir, logger)
	resolver := vario.NewResolver(reader, units.NewSystem(), logger)

	// Summary publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.SummaryPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka summary publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka summary publishing disabled")
	}

	orch := pipeline.New(resolver, publisher, writer, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, orch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the diagnostics cycle; the service stays up afterwards so the
	// metrics and status endpoints remain scrapeable.
	go func() {
		exp, err := pipeline.LoadExperiment(cfg.ExperimentFile, logger)
		if err != nil {
			logger.Error("experiment load error", "error", err)
			stop()
			return
		}
		if _, err := orch.Run(ctx, exp); err != nil {
			logger.Error("diagnostics run error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
