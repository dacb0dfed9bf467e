package amm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

const (
	// DefaultAutoSwapWindow is how far ahead the liquidation path sets its deadline.
	DefaultAutoSwapWindow = time.Hour
	// DefaultNonceWindow bounds how far a callback nonce may jump past the
	// last consumed one.
	DefaultNonceWindow = 100
)

// Store persists engine state. Every engine operation performs at most one
// mutating call, after all of its reads.
type Store interface {
	LoadSettings(ctx context.Context) (model.Settings, common.Address, bool, error)
	// InitSettings stores settings and admin unless present; false means present.
	InitSettings(ctx context.Context, admin common.Address, settings model.Settings) (bool, error)
	ReplaceSettings(ctx context.Context, settings model.Settings) error

	PutProtocol(ctx context.Context, cfg model.ProtocolConfig) error
	GetProtocol(ctx context.Context, addr common.Address) (model.ProtocolConfig, bool, error)
	// ListProtocols returns protocols in first-registration order.
	ListProtocols(ctx context.Context) ([]model.ProtocolConfig, error)

	LastNonce(ctx context.Context, protocol common.Address) (uint64, error)
	// AdvanceNonce moves the baseline from prev to next; false means it was not prev.
	AdvanceNonce(ctx context.Context, protocol common.Address, prev, next uint64) (bool, error)

	// AppendSwap assigns the next sequence id and returns the stored record.
	AppendSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error)
	SwapHistory(ctx context.Context, user *common.Address, limit int) ([]model.SwapRecord, error)
}

// Clock supplies the host's current time in unix seconds.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now(context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
}

// Config holds engine policy knobs. Zero values select the defaults.
type Config struct {
	AutoSwapWindow time.Duration
	NonceWindow    uint64
}

// Engine serializes every call, so each one observes and mutates state
// without interleaving.
type Engine struct {
	cfg    Config
	store  Store
	clock  Clock
	nonces *NonceLedger
	logger *zap.Logger

	mu sync.Mutex
}

// NewEngine builds an Engine with its dependencies.
func NewEngine(cfg Config, store Store, clock Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.AutoSwapWindow <= 0 {
		cfg.AutoSwapWindow = DefaultAutoSwapWindow
	}
	if cfg.NonceWindow == 0 {
		cfg.NonceWindow = DefaultNonceWindow
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		clock:  clock,
		nonces: NewNonceLedger(store, cfg.NonceWindow),
		logger: logger,
	}
}

// Nonces exposes the callback nonce ledger for inspection.
func (e *Engine) Nonces() *NonceLedger {
	return e.nonces
}

func (e *Engine) now(ctx context.Context) (uint64, error) {
	ts, err := e.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("read clock: %w", err)
	}
	return ts, nil
}

func (e *Engine) loadSettings(ctx context.Context) (model.Settings, common.Address, error) {
	settings, admin, ok, err := e.store.LoadSettings(ctx)
	if err != nil {
		return model.Settings{}, common.Address{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return model.Settings{}, common.Address{}, ErrNotInitialized
	}
	return settings, admin, nil
}

// requireAdmin compares an authenticated caller with the stored admin.
func (e *Engine) requireAdmin(ctx context.Context, caller common.Address) (model.Settings, error) {
	settings, admin, ok, err := e.store.LoadSettings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok || caller != admin {
		return model.Settings{}, fmt.Errorf("%w: caller %s is not admin", ErrUnauthorized, caller.Hex())
	}
	return settings, nil
}

func (e *Engine) reject(op string, err error, fields ...zap.Field) error {
	if IsRejection(err) {
		e.logger.Debug(op+" rejected", append(fields, zap.String("kind", Kind(err)), zap.Error(err))...)
	} else {
		e.logger.Warn(op+" failed", append(fields, zap.Error(err))...)
	}
	return err
}
