package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

// InitializeSettings creates the settings record once, with admin as its owner.
// Swaps and liquidity start enabled.
func (e *Engine) InitializeSettings(ctx context.Context, admin common.Address, defaultSlippageBps, maxSlippageBps uint32, threshold *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, ok, err := e.store.LoadSettings(ctx)
	if err != nil {
		return e.reject("initialize settings", fmt.Errorf("load settings: %w", err))
	}
	if ok {
		return e.reject("initialize settings", ErrAlreadyInitialized)
	}

	if threshold == nil {
		threshold = new(uint256.Int)
	}
	settings := model.Settings{
		DefaultSlippageBps: defaultSlippageBps,
		MaxSlippageBps:     maxSlippageBps,
		SwapEnabled:        true,
		LiquidityEnabled:   true,
		AutoSwapThreshold:  threshold.Clone(),
	}
	if err := settings.Validate(); err != nil {
		return e.reject("initialize settings", fmt.Errorf("%w: %v", ErrInvalidParameter, err))
	}

	created, err := e.store.InitSettings(ctx, admin, settings)
	if err != nil {
		return e.reject("initialize settings", fmt.Errorf("store settings: %w", err))
	}
	if !created {
		return e.reject("initialize settings", ErrAlreadyInitialized)
	}

	e.logger.Info("settings initialized",
		zap.String("admin", admin.Hex()),
		zap.Uint32("default_slippage_bps", defaultSlippageBps),
		zap.Uint32("max_slippage_bps", maxSlippageBps),
		zap.String("auto_swap_threshold", settings.AutoSwapThreshold.Dec()),
	)
	return nil
}

// Settings returns the current settings record.
func (e *Engine) Settings(ctx context.Context) (model.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, _, err := e.loadSettings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	return settings.Clone(), nil
}

// UpdateSettings replaces the whole settings record. Only the admin may call it.
func (e *Engine) UpdateSettings(ctx context.Context, caller common.Address, settings model.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return e.reject("update settings", err, zap.String("caller", caller.Hex()))
	}
	if err := settings.Validate(); err != nil {
		return e.reject("update settings", fmt.Errorf("%w: %v", ErrInvalidParameter, err))
	}

	next := settings.Clone()
	next.AutoSwapThreshold = settings.Threshold().Clone()
	if err := e.store.ReplaceSettings(ctx, next); err != nil {
		return e.reject("update settings", fmt.Errorf("replace settings: %w", err))
	}

	e.logger.Info("settings updated",
		zap.String("admin", caller.Hex()),
		zap.Uint32("default_slippage_bps", next.DefaultSlippageBps),
		zap.Uint32("max_slippage_bps", next.MaxSlippageBps),
		zap.Bool("swap_enabled", next.SwapEnabled),
		zap.Bool("liquidity_enabled", next.LiquidityEnabled),
		zap.String("auto_swap_threshold", next.AutoSwapThreshold.Dec()),
	)
	return nil
}
