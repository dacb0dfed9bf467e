package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidationRouter/internal/model"
)

// ValidateCallback checks that a callback from protocol matches a live,
// never-seen request and consumes its nonce.
func (e *Engine) ValidateCallback(ctx context.Context, protocol common.Address, data model.CallbackData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fields := []zap.Field{
		zap.String("protocol", protocol.Hex()),
		zap.Uint64("nonce", data.Nonce),
		zap.String("operation", data.Operation),
	}

	_, ok, err := e.store.GetProtocol(ctx, protocol)
	if err != nil {
		return e.reject("callback", fmt.Errorf("get protocol: %w", err), fields...)
	}
	if !ok {
		return e.reject("callback", fmt.Errorf("%w: %s", ErrUnknownProtocol, protocol.Hex()), fields...)
	}

	now, err := e.now(ctx)
	if err != nil {
		return e.reject("callback", err, fields...)
	}
	if data.Deadline < now {
		return e.reject("callback", fmt.Errorf("%w: deadline %d before %d", ErrDeadlineExpired, data.Deadline, now), fields...)
	}

	if err := e.nonces.Consume(ctx, protocol, data.Nonce); err != nil {
		return e.reject("callback", err, fields...)
	}

	e.logger.Info("callback accepted", append(fields, zap.String("user", data.User.Hex()))...)
	return nil
}
