package storage

import "liquidationRouter/internal/model"

// SwapSink receives swap history records in sequence order.
type SwapSink interface {
	PutSwapBatch(records []model.SwapRecord) error
}
