package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidationRouter/internal/amm"
	"liquidationRouter/internal/api"
	"liquidationRouter/internal/config"
	"liquidationRouter/internal/storage/postgres"
)

func newInitSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-settings",
		Short: "Initialize router settings in Postgres",
		RunE:  runInitSettings,
	}
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("admin", "", "admin address")
	cmd.Flags().Uint32("default-slippage", 0, "default slippage tolerance in bps")
	cmd.Flags().Uint32("max-slippage", 0, "max slippage tolerance in bps")
	cmd.Flags().String("threshold", "0", "auto-swap threshold (decimal or 0x hex)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register protocols from a YAML file",
		RunE:  runRegister,
	}
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("admin", "", "admin address")
	cmd.Flags().String("file", "", "protocols YAML file")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent swaps as JSON lines",
		RunE:  runHistory,
	}
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("user", "", "only swaps of this address")
	cmd.Flags().Int("limit", 50, "max records")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an address",
		RunE:  runToken,
	}
	cmd.Flags().String("jwt-secret", "", "HMAC secret")
	cmd.Flags().String("jwt-issuer", "", "token issuer")
	cmd.Flags().String("subject", "", "caller address")
	cmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	return cmd
}

type adminEnv struct {
	cfg    config.AdminConfig
	logger *zap.Logger
	store  *postgres.Store
	engine *amm.Engine
}

func openAdmin(ctx context.Context, cmd *cobra.Command) (*adminEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAdmin(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.PGDSN == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &adminEnv{
		cfg:    cfg,
		logger: logger,
		store:  store,
		engine: amm.NewEngine(amm.Config{}, store, amm.SystemClock{}, logger),
	}, nil
}

func (e *adminEnv) close() {
	e.store.Close()
	_ = e.logger.Sync()
}

func parseAddress(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return v, nil
}

func runInitSettings(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openAdmin(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	admin, err := parseAddress("admin", env.cfg.Admin)
	if err != nil {
		return err
	}
	threshold, err := parseAmount(env.cfg.Threshold)
	if err != nil {
		return err
	}

	return env.engine.InitializeSettings(ctx, admin, env.cfg.DefaultSlippageBps, env.cfg.MaxSlippageBps, threshold)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openAdmin(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	admin, err := parseAddress("admin", env.cfg.Admin)
	if err != nil {
		return err
	}
	if env.cfg.ProtocolsFile == "" {
		return fmt.Errorf("protocols file is required")
	}
	protocols, err := config.LoadProtocols(env.cfg.ProtocolsFile)
	if err != nil {
		return err
	}

	for _, p := range protocols {
		if err := env.engine.RegisterProtocol(ctx, admin, p); err != nil {
			return fmt.Errorf("register %s: %w", p.Address.Hex(), err)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openAdmin(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var user *common.Address
	if env.cfg.User != "" {
		addr, err := parseAddress("user", env.cfg.User)
		if err != nil {
			return err
		}
		user = &addr
	}

	records, err := env.engine.SwapHistory(ctx, user, env.cfg.Limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAdmin(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	subject, err := parseAddress("subject", cfg.Subject)
	if err != nil {
		return err
	}

	token, err := api.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, subject, cfg.TokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
