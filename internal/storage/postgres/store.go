package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidationRouter/internal/model"
)

// Store provides Postgres persistence for router state and swap history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the router tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) LoadSettings(ctx context.Context) (model.Settings, common.Address, bool, error) {
	var (
		settings  model.Settings
		admin     string
		threshold string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT admin, default_slippage_bps, max_slippage_bps, swap_enabled, liquidity_enabled,
			auto_swap_threshold::text
		FROM router_settings WHERE id = 1
	`)
	if err := row.Scan(&admin, &settings.DefaultSlippageBps, &settings.MaxSlippageBps,
		&settings.SwapEnabled, &settings.LiquidityEnabled, &threshold); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Settings{}, common.Address{}, false, nil
		}
		return model.Settings{}, common.Address{}, false, err
	}
	amount, err := parseAmount(threshold)
	if err != nil {
		return model.Settings{}, common.Address{}, false, fmt.Errorf("auto swap threshold: %w", err)
	}
	settings.AutoSwapThreshold = amount
	return settings, common.HexToAddress(admin), true, nil
}

func (s *Store) InitSettings(ctx context.Context, admin common.Address, settings model.Settings) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO router_settings (
			id, admin, default_slippage_bps, max_slippage_bps, swap_enabled, liquidity_enabled,
			auto_swap_threshold, created_at, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO NOTHING
	`,
		admin.Hex(),
		settings.DefaultSlippageBps,
		settings.MaxSlippageBps,
		settings.SwapEnabled,
		settings.LiquidityEnabled,
		numeric(settings.AutoSwapThreshold),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ReplaceSettings(ctx context.Context, settings model.Settings) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE router_settings SET
			default_slippage_bps = $1,
			max_slippage_bps = $2,
			swap_enabled = $3,
			liquidity_enabled = $4,
			auto_swap_threshold = $5,
			updated_at = now()
		WHERE id = 1
	`,
		settings.DefaultSlippageBps,
		settings.MaxSlippageBps,
		settings.SwapEnabled,
		settings.LiquidityEnabled,
		numeric(settings.AutoSwapThreshold),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("settings row missing")
	}
	return nil
}

// PutProtocol inserts or overwrites a protocol. registered_seq is only
// assigned on first insert, so list order survives re-registration.
func (s *Store) PutProtocol(ctx context.Context, cfg model.ProtocolConfig) error {
	pairs, err := json.Marshal(cfg.SupportedPairs)
	if err != nil {
		return fmt.Errorf("marshal pairs: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO protocols (
			address, name, enabled, fee_tier_bps, min_swap_amount, max_swap_amount, supported_pairs,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (address)
		DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			fee_tier_bps = EXCLUDED.fee_tier_bps,
			min_swap_amount = EXCLUDED.min_swap_amount,
			max_swap_amount = EXCLUDED.max_swap_amount,
			supported_pairs = EXCLUDED.supported_pairs,
			updated_at = now()
	`,
		cfg.Address.Hex(),
		cfg.Name,
		cfg.Enabled,
		cfg.FeeTierBps,
		numeric(cfg.MinSwapAmount),
		numeric(cfg.MaxSwapAmount),
		pairs,
	)
	return err
}

const protocolColumns = `address, name, enabled, fee_tier_bps, min_swap_amount::text, max_swap_amount::text, supported_pairs`

func (s *Store) GetProtocol(ctx context.Context, addr common.Address) (model.ProtocolConfig, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+protocolColumns+` FROM protocols WHERE address = $1`, addr.Hex())
	cfg, err := scanProtocol(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ProtocolConfig{}, false, nil
		}
		return model.ProtocolConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *Store) ListProtocols(ctx context.Context) ([]model.ProtocolConfig, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+protocolColumns+` FROM protocols ORDER BY registered_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProtocolConfig
	for rows.Next() {
		cfg, err := scanProtocol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *Store) LastNonce(ctx context.Context, protocol common.Address) (uint64, error) {
	var text string
	row := s.pool.QueryRow(ctx, `SELECT last_nonce::text FROM nonce_ledger WHERE protocol = $1`, protocol.Hex())
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(text, 10, 64)
}

// AdvanceNonce is a compare-and-set on the protocol's baseline. A missing row
// has baseline zero.
func (s *Store) AdvanceNonce(ctx context.Context, protocol common.Address, prev, next uint64) (bool, error) {
	if next <= prev {
		return false, nil
	}
	prevNum := pgtype.Numeric{Int: new(big.Int).SetUint64(prev), Valid: true}
	nextNum := pgtype.Numeric{Int: new(big.Int).SetUint64(next), Valid: true}

	var (
		tag pgconn.CommandTag
		err error
	)
	if prev == 0 {
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO nonce_ledger (protocol, last_nonce, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (protocol) DO UPDATE
			SET last_nonce = EXCLUDED.last_nonce, updated_at = now()
			WHERE nonce_ledger.last_nonce = 0
		`, protocol.Hex(), nextNum)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE nonce_ledger SET last_nonce = $3, updated_at = now()
			WHERE protocol = $1 AND last_nonce = $2
		`, protocol.Hex(), prevNum, nextNum)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	var seq int64
	row := s.pool.QueryRow(ctx, `
		INSERT INTO swap_history (
			user_address, protocol, token_in, token_out, amount_in, amount_out, ts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING sequence_id
	`,
		rec.User.Hex(),
		rec.Protocol.Hex(),
		rec.TokenIn.String(),
		rec.TokenOut.String(),
		numeric(rec.AmountIn),
		numeric(rec.AmountOut),
		int64(rec.Timestamp),
	)
	if err := row.Scan(&seq); err != nil {
		return model.SwapRecord{}, err
	}
	stored := rec.Clone()
	stored.SequenceID = uint64(seq)
	return stored, nil
}

const swapColumns = `sequence_id, user_address, protocol, token_in, token_out, amount_in::text, amount_out::text, ts`

func (s *Store) SwapHistory(ctx context.Context, user *common.Address, limit int) ([]model.SwapRecord, error) {
	var filter *string
	if user != nil {
		hex := user.Hex()
		filter = &hex
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+swapColumns+` FROM swap_history
		WHERE ($1::text IS NULL OR user_address = $1)
		ORDER BY sequence_id
		LIMIT $2
	`, filter, limit)
	if err != nil {
		return nil, err
	}
	return collectSwaps(rows)
}

// LatestSequence returns the highest assigned sequence id, zero when empty.
func (s *Store) LatestSequence(ctx context.Context) (uint64, error) {
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_id), 0) FROM swap_history`)
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// SwapsBetween returns records with sequence ids in [from, to].
func (s *Store) SwapsBetween(ctx context.Context, from, to uint64) ([]model.SwapRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+swapColumns+` FROM swap_history
		WHERE sequence_id BETWEEN $1 AND $2
		ORDER BY sequence_id
	`, int64(from), int64(to))
	if err != nil {
		return nil, err
	}
	return collectSwaps(rows)
}

func collectSwaps(rows pgx.Rows) ([]model.SwapRecord, error) {
	defer rows.Close()

	out := make([]model.SwapRecord, 0)
	for rows.Next() {
		var (
			seq, ts             int64
			user, protocol      string
			tokenIn, tokenOut   string
			amountIn, amountOut string
		)
		if err := rows.Scan(&seq, &user, &protocol, &tokenIn, &tokenOut, &amountIn, &amountOut, &ts); err != nil {
			return nil, err
		}
		rec := model.SwapRecord{
			SequenceID: uint64(seq),
			User:       common.HexToAddress(user),
			Protocol:   common.HexToAddress(protocol),
			Timestamp:  uint64(ts),
		}
		var err error
		if rec.TokenIn, err = model.ParseAsset(tokenIn); err != nil {
			return nil, fmt.Errorf("swap %d token in: %w", seq, err)
		}
		if rec.TokenOut, err = model.ParseAsset(tokenOut); err != nil {
			return nil, fmt.Errorf("swap %d token out: %w", seq, err)
		}
		if rec.AmountIn, err = parseAmount(amountIn); err != nil {
			return nil, fmt.Errorf("swap %d amount in: %w", seq, err)
		}
		if rec.AmountOut, err = parseAmount(amountOut); err != nil {
			return nil, fmt.Errorf("swap %d amount out: %w", seq, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanProtocol(row pgx.Row) (model.ProtocolConfig, error) {
	var (
		cfg              model.ProtocolConfig
		addr             string
		minText, maxText string
		pairs            []byte
	)
	if err := row.Scan(&addr, &cfg.Name, &cfg.Enabled, &cfg.FeeTierBps, &minText, &maxText, &pairs); err != nil {
		return model.ProtocolConfig{}, err
	}
	cfg.Address = common.HexToAddress(addr)
	var err error
	if cfg.MinSwapAmount, err = parseAmount(minText); err != nil {
		return model.ProtocolConfig{}, fmt.Errorf("protocol %s min amount: %w", addr, err)
	}
	if cfg.MaxSwapAmount, err = parseAmount(maxText); err != nil {
		return model.ProtocolConfig{}, fmt.Errorf("protocol %s max amount: %w", addr, err)
	}
	if err := json.Unmarshal(pairs, &cfg.SupportedPairs); err != nil {
		return model.ProtocolConfig{}, fmt.Errorf("protocol %s pairs: %w", addr, err)
	}
	return cfg, nil
}

func numeric(v *uint256.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{Int: new(big.Int), Valid: true}
	}
	return pgtype.Numeric{Int: v.ToBig(), Valid: true}
}

func parseAmount(text string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", text, err)
	}
	return v, nil
}
