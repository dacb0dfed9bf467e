package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "router",
		Short:        "AMM routing and liquidation swap service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the router HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty keeps state in memory)")
	serveCmd.Flags().String("rpc", "", "chain RPC URL used as the clock (empty uses wall time)")
	serveCmd.Flags().Duration("clock-cache", time.Second, "how long a latest-block timestamp is reused")
	serveCmd.Flags().String("jwt-secret", "", "HMAC secret for bearer tokens")
	serveCmd.Flags().String("jwt-issuer", "", "required token issuer")
	serveCmd.Flags().Duration("auto-swap-window", time.Hour, "deadline horizon for liquidation swaps")
	serveCmd.Flags().Uint64("nonce-window", 100, "max distance a callback nonce may jump past the last consumed one")
	serveCmd.Flags().Duration("request-timeout", 10*time.Second, "per-request timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export swap history to JSONL",
		RunE:  runExport,
	}

	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().Uint64("from", 0, "first sequence id (inclusive)")
	exportCmd.Flags().Uint64("to", 0, "last sequence id (inclusive), 0 means latest")
	exportCmd.Flags().Uint64("batch-size", 500, "records per batch")
	exportCmd.Flags().String("out", "./data/swaps.jsonl", "output JSONL path")
	exportCmd.Flags().String("checkpoint", "./data/export_checkpoint.json", "checkpoint file path")
	exportCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	exportCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	exportCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	exportCmd.Flags().Duration("gap-grace", 5*time.Minute, "how long missing sequence ids are re-read before being skipped")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	root.AddCommand(newInitSettingsCmd(), newRegisterCmd(), newHistoryCmd(), newTokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
