package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSwapHistoryPerUser(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()
	other := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	for _, amount := range []uint64{15_000, 50_000} {
		if _, err := e.ExecuteSwap(ctx, testUser, swapParams(amount, 100)); err != nil {
			t.Fatalf("execute swap: %v", err)
		}
	}
	if _, err := e.ExecuteSwap(ctx, other, swapParams(500_000_000, 100)); err != nil {
		t.Fatalf("execute swap: %v", err)
	}

	mine, err := e.SwapHistory(ctx, &testUser, 10)
	if err != nil {
		t.Fatalf("swap history: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 records, got %d", len(mine))
	}
	if mine[0].AmountOut.Uint64() != 14_850 || mine[1].AmountOut.Uint64() != 49_500 {
		t.Fatalf("unexpected order or amounts: %s, %s", mine[0].AmountOut, mine[1].AmountOut)
	}

	theirs, err := e.SwapHistory(ctx, &other, 10)
	if err != nil {
		t.Fatalf("swap history: %v", err)
	}
	if len(theirs) != 1 || theirs[0].AmountOut.Uint64() != 495_000_000 {
		t.Fatalf("unexpected history: %+v", theirs)
	}

	all, err := e.SwapHistory(ctx, nil, 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 records, got %d err=%v", len(all), err)
	}
}

func TestSwapHistoryLimit(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := e.ExecuteSwap(ctx, testUser, swapParams(15_000, 100)); err != nil {
			t.Fatalf("execute swap: %v", err)
		}
	}

	got, err := e.SwapHistory(ctx, &testUser, 2)
	if err != nil {
		t.Fatalf("swap history: %v", err)
	}
	if len(got) != 2 || got[0].SequenceID != 1 || got[1].SequenceID != 2 {
		t.Fatalf("unexpected truncation: %+v", got)
	}

	empty, err := e.SwapHistory(ctx, &testUser, 0)
	if err != nil {
		t.Fatalf("swap history: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	stranger := common.HexToAddress("0x01")
	none, err := e.SwapHistory(ctx, &stranger, 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no records for stranger, got %d err=%v", len(none), err)
	}
}
