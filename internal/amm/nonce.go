package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// NonceStatus classifies a callback nonce against a protocol's baseline.
type NonceStatus int

const (
	// NonceFresh has never been accepted and may be consumed.
	NonceFresh NonceStatus = iota
	// NonceConsumed is at or below the baseline and is rejected forever.
	NonceConsumed
	// NonceTooFar is beyond the configured forward window.
	NonceTooFar
)

func (s NonceStatus) String() string {
	switch s {
	case NonceFresh:
		return "fresh"
	case NonceConsumed:
		return "consumed"
	case NonceTooFar:
		return "too_far"
	default:
		return "unknown"
	}
}

// classifyNonce applies the monotonic rule: only nonces strictly above the
// baseline are fresh. A zero window places no upper bound.
func classifyNonce(baseline, nonce, window uint64) NonceStatus {
	if nonce <= baseline {
		return NonceConsumed
	}
	if window > 0 && nonce-baseline > window {
		return NonceTooFar
	}
	return NonceFresh
}

// NonceLedger tracks the last consumed callback nonce per protocol. A nonce
// moves from fresh to consumed only through Consume.
type NonceLedger struct {
	store  Store
	window uint64
}

func NewNonceLedger(store Store, window uint64) *NonceLedger {
	return &NonceLedger{store: store, window: window}
}

// Status reports how nonce would be treated for protocol, and the baseline.
func (l *NonceLedger) Status(ctx context.Context, protocol common.Address, nonce uint64) (NonceStatus, uint64, error) {
	baseline, err := l.store.LastNonce(ctx, protocol)
	if err != nil {
		return NonceConsumed, 0, fmt.Errorf("load nonce: %w", err)
	}
	return classifyNonce(baseline, nonce, l.window), baseline, nil
}

// Consume marks nonce as consumed, moving the baseline to it. It fails with
// ErrNonceReplay if the nonce is not fresh or another caller advanced the
// baseline first.
func (l *NonceLedger) Consume(ctx context.Context, protocol common.Address, nonce uint64) error {
	status, baseline, err := l.Status(ctx, protocol, nonce)
	if err != nil {
		return err
	}
	if status != NonceFresh {
		return fmt.Errorf("%w: nonce %d is %s (last consumed %d)", ErrNonceReplay, nonce, status, baseline)
	}
	advanced, err := l.store.AdvanceNonce(ctx, protocol, baseline, nonce)
	if err != nil {
		return fmt.Errorf("advance nonce: %w", err)
	}
	if !advanced {
		return fmt.Errorf("%w: nonce %d raced past baseline %d", ErrNonceReplay, nonce, baseline)
	}
	return nil
}
