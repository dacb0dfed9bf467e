package exporter

import (
	"errors"
	"fmt"
)

// SeqRange is an inclusive span of swap sequence ids.
type SeqRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts [from, to] into consecutive spans of at most size ids.
func SplitRange(from, to, size uint64) ([]SeqRange, error) {
	switch {
	case size == 0:
		return nil, errors.New("batch size must be positive")
	case from > to:
		return nil, fmt.Errorf("empty sequence range %d-%d", from, to)
	}

	spans := make([]SeqRange, (to-from)/size+1)
	for i := range spans {
		start := from + uint64(i)*size
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		spans[i] = SeqRange{From: start, To: end}
	}
	return spans, nil
}
