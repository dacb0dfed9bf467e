package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

// RegisterProtocol adds or overwrites a protocol. Re-registration keeps the
// protocol's original position in the scan order.
func (e *Engine) RegisterProtocol(ctx context.Context, caller common.Address, cfg model.ProtocolConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return e.reject("register protocol", err, zap.String("caller", caller.Hex()))
	}
	if err := cfg.Validate(); err != nil {
		return e.reject("register protocol", fmt.Errorf("%w: %v", ErrInvalidParameter, err), zap.String("protocol", cfg.Address.Hex()))
	}
	if err := e.store.PutProtocol(ctx, cfg.Clone()); err != nil {
		return e.reject("register protocol", fmt.Errorf("put protocol: %w", err))
	}

	e.logger.Info("protocol registered",
		zap.String("protocol", cfg.Address.Hex()),
		zap.String("name", cfg.Name),
		zap.Bool("enabled", cfg.Enabled),
		zap.Uint32("fee_tier_bps", cfg.FeeTierBps),
		zap.Int("pairs", len(cfg.SupportedPairs)),
	)
	return nil
}

// DisableProtocol logically deletes a protocol by clearing Enabled.
func (e *Engine) DisableProtocol(ctx context.Context, caller, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return e.reject("disable protocol", err, zap.String("caller", caller.Hex()))
	}
	cfg, ok, err := e.store.GetProtocol(ctx, addr)
	if err != nil {
		return e.reject("disable protocol", fmt.Errorf("get protocol: %w", err))
	}
	if !ok {
		return e.reject("disable protocol", fmt.Errorf("%w: %s", ErrUnknownProtocol, addr.Hex()))
	}
	cfg.Enabled = false
	if err := e.store.PutProtocol(ctx, cfg); err != nil {
		return e.reject("disable protocol", fmt.Errorf("put protocol: %w", err))
	}

	e.logger.Info("protocol disabled", zap.String("protocol", addr.Hex()))
	return nil
}

// Protocol looks up a registered protocol.
func (e *Engine) Protocol(ctx context.Context, addr common.Address) (model.ProtocolConfig, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok, err := e.store.GetProtocol(ctx, addr)
	if err != nil {
		return model.ProtocolConfig{}, false, fmt.Errorf("get protocol: %w", err)
	}
	return cfg, ok, nil
}

// FindSupporting returns the first enabled protocol, in registration order,
// that serves in -> out.
func (e *Engine) FindSupporting(ctx context.Context, in, out model.Asset) (common.Address, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.findSupporting(ctx, in, out)
}

func (e *Engine) findSupporting(ctx context.Context, in, out model.Asset) (common.Address, bool, error) {
	protocols, err := e.store.ListProtocols(ctx)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("list protocols: %w", err)
	}
	for _, cfg := range protocols {
		if cfg.Enabled && cfg.Supports(in, out) {
			return cfg.Address, true, nil
		}
	}
	return common.Address{}, false, nil
}
