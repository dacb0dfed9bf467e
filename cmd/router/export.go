package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidationRouter/internal/config"
	"liquidationRouter/internal/exporter"
	"liquidationRouter/internal/storage"
	"liquidationRouter/internal/storage/postgres"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	sink := storage.NewJsonlSink(cfg.Out)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("close output", zap.Error(err))
		}
	}()

	runner := exporter.NewRunner(exporter.RunConfig{
		FromSeq:           cfg.FromSeq,
		ToSeq:             cfg.ToSeq,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		GapGrace:          cfg.GapGrace,
	}, store, sink, logger)

	logger.Info("export start",
		zap.Uint64("from", cfg.FromSeq),
		zap.Uint64("to", cfg.ToSeq),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	n, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("export complete", zap.Int("swaps", n))
	return nil
}
