package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidationRouter/internal/amm"
	"liquidationRouter/internal/api"
	"liquidationRouter/internal/chain"
	"liquidationRouter/internal/config"
	"liquidationRouter/internal/metrics"
	"liquidationRouter/internal/storage/memory"
	"liquidationRouter/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  amm.Store
		health func(context.Context) error
	)
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
		health = pg.Ping
	} else {
		logger.Warn("no pg dsn configured, state is kept in memory and lost on exit")
		store = memory.NewStore()
	}

	var clock amm.Clock = amm.SystemClock{}
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.ClockCacheTTL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		head, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		logger.Info("using chain clock",
			zap.String("chain_id", chainID.String()),
			zap.Uint64("head", head),
		)
		clock = chainClient
	}

	engine := amm.NewEngine(amm.Config{
		AutoSwapWindow: cfg.AutoSwapWindow,
		NonceWindow:    cfg.NonceWindow,
	}, store, clock, logger)

	server := api.NewServer(api.Config{
		Auth: api.AuthConfig{
			HMACSecret: cfg.JWTSecret,
			Issuer:     cfg.JWTIssuer,
		},
		RequestTimeout: cfg.RequestTimeout,
	}, engine, metrics.New("router"), health, logger)

	logger.Info("router start",
		zap.String("listen", cfg.Listen),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("chain_clock", cfg.RPCURL != ""),
		zap.Duration("auto_swap_window", cfg.AutoSwapWindow),
		zap.Uint64("nonce_window", cfg.NonceWindow),
	)

	return server.ListenAndServe(ctx, cfg.Listen)
}
