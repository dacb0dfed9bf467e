package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

var bpsDenominator = uint256.NewInt(model.MaxBps)

// QuoteOutput returns floor(amountIn * (10000 - slippageBps) / 10000).
// The product is taken at 512 bits, so no amountIn can overflow it.
func QuoteOutput(amountIn *uint256.Int, slippageBps uint32) (*uint256.Int, error) {
	if amountIn == nil {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if slippageBps > model.MaxBps {
		return nil, fmt.Errorf("%w: slippage %d exceeds %d bps", ErrInvalidParameter, slippageBps, model.MaxBps)
	}
	keep := uint256.NewInt(uint64(model.MaxBps - slippageBps))
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, keep, bpsDenominator)
	if overflow {
		// keep <= denominator, so the quotient never exceeds amountIn.
		return nil, fmt.Errorf("%w: output overflow", ErrInvalidAmount)
	}
	return out, nil
}

// ExecuteSwap validates a swap against an explicitly named protocol and
// records it. Every check runs before the single history write.
func (e *Engine) ExecuteSwap(ctx context.Context, caller common.Address, params model.SwapParams) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, _, err := e.loadSettings(ctx)
	if err != nil {
		return nil, e.reject("swap", err)
	}
	now, err := e.now(ctx)
	if err != nil {
		return nil, e.reject("swap", err)
	}
	return e.executeSwap(ctx, caller, params, settings, now)
}

func (e *Engine) executeSwap(ctx context.Context, caller common.Address, params model.SwapParams, settings model.Settings, now uint64) (*uint256.Int, error) {
	fields := []zap.Field{
		zap.String("user", caller.Hex()),
		zap.String("protocol", params.Protocol.Hex()),
	}

	if !settings.SwapEnabled {
		return nil, e.reject("swap", ErrSwapsPaused, fields...)
	}

	protocol, ok, err := e.store.GetProtocol(ctx, params.Protocol)
	if err != nil {
		return nil, e.reject("swap", fmt.Errorf("get protocol: %w", err), fields...)
	}
	if !ok || !protocol.Enabled {
		return nil, e.reject("swap", fmt.Errorf("%w: %s", ErrProtocolUnavailable, params.Protocol.Hex()), fields...)
	}

	if params.Deadline < now {
		return nil, e.reject("swap", fmt.Errorf("%w: deadline %d before %d", ErrDeadlineExpired, params.Deadline, now), fields...)
	}

	if params.AmountIn == nil || params.AmountIn.IsZero() {
		return nil, e.reject("swap", fmt.Errorf("%w: amount in must be positive", ErrInvalidAmount), fields...)
	}
	if !protocol.InBounds(params.AmountIn) {
		return nil, e.reject("swap", fmt.Errorf("%w: %s not in [%s, %s]",
			ErrAmountOutOfBounds, params.AmountIn, protocol.MinSwapAmount, protocol.MaxSwapAmount), fields...)
	}

	if !protocol.Supports(params.TokenIn, params.TokenOut) {
		return nil, e.reject("swap", fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, params.TokenIn, params.TokenOut), fields...)
	}

	if params.SlippageToleranceBps > settings.MaxSlippageBps {
		return nil, e.reject("swap", fmt.Errorf("%w: %d exceeds max %d",
			ErrSlippageTooHigh, params.SlippageToleranceBps, settings.MaxSlippageBps), fields...)
	}

	amountOut, err := QuoteOutput(params.AmountIn, params.SlippageToleranceBps)
	if err != nil {
		return nil, e.reject("swap", err, fields...)
	}

	minOut := params.MinAmountOut
	if minOut == nil {
		minOut = new(uint256.Int)
	}
	if amountOut.Lt(minOut) {
		return nil, e.reject("swap", fmt.Errorf("%w: output %s below minimum %s", ErrInsufficientOutput, amountOut, minOut), fields...)
	}

	rec, err := e.appendSwap(ctx, model.SwapRecord{
		User:      caller,
		Protocol:  params.Protocol,
		TokenIn:   params.TokenIn,
		TokenOut:  params.TokenOut,
		AmountIn:  params.AmountIn.Clone(),
		AmountOut: amountOut.Clone(),
		Timestamp: now,
	})
	if err != nil {
		return nil, e.reject("swap", err, fields...)
	}

	e.logger.Info("swap executed", append(fields,
		zap.Uint64("sequence_id", rec.SequenceID),
		zap.String("amount_in", rec.AmountIn.Dec()),
		zap.String("amount_out", rec.AmountOut.Dec()),
		zap.Uint32("slippage_bps", params.SlippageToleranceBps),
	)...)
	return amountOut, nil
}
