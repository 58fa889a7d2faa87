package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jalad-shrimali/cdr-insight/cellsite"
	"github.com/jalad-shrimali/cdr-insight/config"
	"github.com/jalad-shrimali/cdr-insight/handlers"
	"github.com/jalad-shrimali/cdr-insight/ingest"
	"github.com/jalad-shrimali/cdr-insight/parser"
	"github.com/jalad-shrimali/cdr-insight/pipeline"
	"github.com/jalad-shrimali/cdr-insight/store"
)

func main() {
	configPath := flag.String("config", config.Path(), "path to the yaml configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogging(cfg, *debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	opts := parser.DefaultOptions()
	opts.Location = cfg.Location()
	opts.SerialShift = cfg.SerialShift()
	opts.MinYear, opts.MaxYear = cfg.Parser.MinYear, cfg.Parser.MaxYear

	var ingestOpts []ingest.Option
	if cfg.Cells.Path != "" {
		cells, err := cellsite.Open(cfg.Cells.Path)
		if err != nil {
			logger.Error("open cell database", "err", err)
			os.Exit(1)
		}
		defer cells.Close()
		ingestOpts = append(ingestOpts, ingest.WithCells(cells))
	}

	in := ingest.New(st, parser.New(opts), logger, ingestOpts...)
	pipe := pipeline.New(st, in, logger, pipeline.WithLocation(opts.Location))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handlers.NewRouter(pipe, logger, cfg.MaxUploadBytes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server started", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "err", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == "sqlite" {
		return store.OpenSQLite(ctx, cfg.Store.DSN)
	}
	return store.NewMemory(), nil
}

// setupLogging writes JSON through lumberjack when a log file is configured,
// text to stdout otherwise. -debug overrides the configured level.
func setupLogging(cfg *config.Config, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if debug {
		opts.Level = slog.LevelDebug
	}
	path := cfg.LogFile()
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
	return slog.New(slog.NewJSONHandler(rotated, opts)).With("service", "cdr-insight")
}
