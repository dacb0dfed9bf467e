package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

// autoSwapMinOut accepts any strictly positive output.
var autoSwapMinOut = uint256.NewInt(1)

// AutoSwapForCollateral routes native collateral into tokenOut through the
// first enabled protocol that supports the pair. It applies the threshold gate
// and the default slippage, and favours completing the liquidation over price.
func (e *Engine) AutoSwapForCollateral(ctx context.Context, caller common.Address, tokenOut model.Asset, amount *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fields := []zap.Field{
		zap.String("user", caller.Hex()),
		zap.String("token_out", tokenOut.String()),
	}

	if amount == nil || amount.IsZero() {
		return nil, e.reject("auto swap", fmt.Errorf("%w: amount must be positive", ErrInvalidAmount), fields...)
	}

	settings, _, err := e.loadSettings(ctx)
	if err != nil {
		return nil, e.reject("auto swap", err, fields...)
	}
	threshold := settings.Threshold()
	if amount.Lt(threshold) {
		return nil, e.reject("auto swap", fmt.Errorf("%w: %s below %s", ErrBelowLiquidationThreshold, amount, threshold), fields...)
	}

	protocol, ok, err := e.findSupporting(ctx, model.Native(), tokenOut)
	if err != nil {
		return nil, e.reject("auto swap", err, fields...)
	}
	if !ok {
		return nil, e.reject("auto swap", fmt.Errorf("%w: native -> %s", ErrNoProtocolAvailable, tokenOut), fields...)
	}

	now, err := e.now(ctx)
	if err != nil {
		return nil, e.reject("auto swap", err, fields...)
	}

	params := model.SwapParams{
		Protocol:             protocol,
		TokenIn:              model.Native(),
		TokenOut:             tokenOut,
		AmountIn:             amount.Clone(),
		MinAmountOut:         autoSwapMinOut.Clone(),
		SlippageToleranceBps: settings.DefaultSlippageBps,
		Deadline:             now + uint64(e.cfg.AutoSwapWindow.Seconds()),
	}
	return e.executeSwap(ctx, caller, params, settings, now)
}
