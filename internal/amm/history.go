package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"liquidationRouter/internal/model"
)

func (e *Engine) appendSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	stored, err := e.store.AppendSwap(ctx, rec)
	if err != nil {
		return model.SwapRecord{}, fmt.Errorf("append swap: %w", err)
	}
	return stored, nil
}

// SwapHistory returns records in insertion order, truncated to limit. A nil
// user returns every user's records.
func (e *Engine) SwapHistory(ctx context.Context, user *common.Address, limit int) ([]model.SwapRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 {
		return []model.SwapRecord{}, nil
	}
	records, err := e.store.SwapHistory(ctx, user, limit)
	if err != nil {
		return nil, fmt.Errorf("swap history: %w", err)
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
