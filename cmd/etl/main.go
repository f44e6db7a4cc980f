package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/cdec"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	httpadapter "github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/kafka"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/config"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/observability"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/pipeline"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	run := domain.Run{ID: uuid.NewString(), StartedAt: domain.Now()}
	logger := observability.NewLogger(cfg).With("run_id", run.ID)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = execute(ctx, cfg, run, logger, metrics)

	metrics.LastRunTimestamp.Set(float64(domain.Now().Unix()))
	if err == nil {
		metrics.LastRunSuccess.Set(1)
	}
	if cfg.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "error", werr)
		}
	}

	if err != nil {
		logger.Error("etl run failed", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("etl run complete", "duration", domain.Now().Sub(run.StartedAt))
}

func execute(ctx context.Context, cfg *config.Config, run domain.Run, logger *slog.Logger, metrics *observability.Metrics) error {
	mode := cdec.CacheReadThrough
	switch {
	case cfg.RainfallOffline:
		mode = cdec.CacheOffline
	case cfg.RainfallRefresh:
		mode = cdec.CacheRefresh
	}

	var rainfall domain.RainfallSource
	if mode != cdec.CacheOffline {
		client := cdec.NewClient(cfg.CDECBaseURL, cfg.RainfallFetchTimeout, metrics, logger)
		rainfall = cdec.NewRateLimitedSource(client, cfg.RainfallFetchRPS)
	}
	rainfall = cdec.NewCachedSource(rainfall, cfg.RawRainfallDir, mode, metrics, logger)
	logger.Info("rainfall source configured",
		"cache_dir", cfg.RawRainfallDir, "cache_mode", mode.String(), "rps", cfg.RainfallFetchRPS)
	if cfg.RainfallOverride() {
		logger.Info("water-year range overridden",
			"start_water_year", cfg.RainfallStartWaterYear, "end_water_year", cfg.RainfallEndWaterYear)
	}

	var sinks []pipeline.Sink
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	src := pipeline.FileSource{
		IncidentsPath: cfg.IncidentsCSV,
		ShapefilePath: cfg.CountyShapefile,
		NameField:     cfg.CountyNameField,
		StationsPath:  cfg.StationMetadataCSV,
		Logger:        logger,
	}
	opts := pipeline.Options{
		JoinCountyFallback: cfg.JoinCountyFallback,
		StartWaterYear:     cfg.RainfallStartWaterYear,
		EndWaterYear:       cfg.RainfallEndWaterYear,
	}
	p := pipeline.New(src, rainfall, csvio.NewWriter(cfg.OutputDir, logger), sinks, opts, logger, metrics)

	if cfg.StatusAddr != "" {
		srv := httpadapter.NewServer(cfg.StatusAddr, p, metrics.Gatherer(), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown error", "error", err)
			}
		}()
	}

	report, err := p.Run(ctx, run)
	if err != nil {
		return err
	}
	logger.Info("run summary",
		"incidents_read", report.Stats.IncidentsRead,
		"incidents_invalid", report.Stats.IncidentsInvalid,
		"incidents_joined", report.Stats.IncidentsJoined,
		"incidents_unmatched", report.Stats.IncidentsUnmatched,
		"rainfall_observations", report.Stats.RainfallObservations,
		"rainfall_unmapped", report.Stats.RainfallUnmapped,
		"water_years", report.Stats.WaterYears,
	)
	return nil
}
