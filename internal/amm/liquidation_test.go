package amm

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidationRouter/internal/model"
)

func TestAutoSwapForCollateral(t *testing.T) {
	e, store, _ := setupEngine(t)
	ctx := context.Background()

	out, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000))
	if err != nil {
		t.Fatalf("auto swap: %v", err)
	}
	if out.Uint64() != 14_850 {
		t.Fatalf("amount out = %s, want 14850", out)
	}

	history, _ := store.SwapHistory(ctx, &testUser, 10)
	if len(history) != 1 || history[0].Protocol != testProtocol || !history[0].TokenIn.IsNative() {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestAutoSwapThreshold(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(8000))
	if !errors.Is(err, ErrBelowLiquidationThreshold) {
		t.Fatalf("expected ErrBelowLiquidationThreshold, got %v", err)
	}
	if _, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(10_000)); err != nil {
		t.Fatalf("amount equal to threshold: %v", err)
	}

	settings, err := e.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	settings.AutoSwapThreshold = uint256.NewInt(5000)
	if err := e.UpdateSettings(ctx, testAdmin, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	out, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(8000))
	if err != nil {
		t.Fatalf("auto swap after lowering threshold: %v", err)
	}
	if out.Uint64() != 7920 {
		t.Fatalf("amount out = %s, want 7920", out)
	}
}

func TestAutoSwapRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("zero amount", func(t *testing.T) {
		e, _, _ := setupEngine(t)
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(0))
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("unsupported token", func(t *testing.T) {
		e, _, _ := setupEngine(t)
		other := model.Token(common.HexToAddress("0xdead"))
		_, err := e.AutoSwapForCollateral(ctx, testUser, other, uint256.NewInt(15_000))
		if !errors.Is(err, ErrNoProtocolAvailable) {
			t.Fatalf("expected ErrNoProtocolAvailable, got %v", err)
		}
	})

	t.Run("no protocols", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		if err := e.InitializeSettings(ctx, testAdmin, 100, 1000, uint256.NewInt(10_000)); err != nil {
			t.Fatalf("initialize settings: %v", err)
		}
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000))
		if !errors.Is(err, ErrNoProtocolAvailable) {
			t.Fatalf("expected ErrNoProtocolAvailable, got %v", err)
		}
	})

	t.Run("disabled protocol", func(t *testing.T) {
		e, _, _ := setupEngine(t)
		if err := e.DisableProtocol(ctx, testAdmin, testProtocol); err != nil {
			t.Fatalf("disable protocol: %v", err)
		}
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000))
		if !errors.Is(err, ErrNoProtocolAvailable) {
			t.Fatalf("expected ErrNoProtocolAvailable, got %v", err)
		}
	})

	t.Run("paused", func(t *testing.T) {
		e, _, _ := setupEngine(t)
		settings, _ := e.Settings(ctx)
		settings.SwapEnabled = false
		if err := e.UpdateSettings(ctx, testAdmin, settings); err != nil {
			t.Fatalf("update settings: %v", err)
		}
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000))
		if !errors.Is(err, ErrSwapsPaused) {
			t.Fatalf("expected ErrSwapsPaused, got %v", err)
		}
	})

	t.Run("over protocol max", func(t *testing.T) {
		e, _, _ := setupEngine(t)
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(1_000_000_001))
		if !errors.Is(err, ErrAmountOutOfBounds) {
			t.Fatalf("expected ErrAmountOutOfBounds, got %v", err)
		}
	})

	t.Run("not initialized", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000))
		if !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("expected ErrNotInitialized, got %v", err)
		}
	})
}

func TestAutoSwapPicksFirstEnabledProtocol(t *testing.T) {
	e, store, _ := setupEngine(t)
	ctx := context.Background()

	second := testProtocolConfig()
	second.Address = common.HexToAddress("0x0000000000000000000000000000000000000bbb")
	second.Name = "Second AMM"
	if err := e.RegisterProtocol(ctx, testAdmin, second); err != nil {
		t.Fatalf("register protocol: %v", err)
	}

	if _, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000)); err != nil {
		t.Fatalf("auto swap: %v", err)
	}
	if err := e.DisableProtocol(ctx, testAdmin, testProtocol); err != nil {
		t.Fatalf("disable protocol: %v", err)
	}
	if _, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(15_000)); err != nil {
		t.Fatalf("auto swap: %v", err)
	}

	history, _ := store.SwapHistory(ctx, &testUser, 10)
	if len(history) != 2 {
		t.Fatalf("expected two records, got %d", len(history))
	}
	if history[0].Protocol != testProtocol || history[1].Protocol != second.Address {
		t.Fatalf("unexpected routing: %s then %s", history[0].Protocol.Hex(), history[1].Protocol.Hex())
	}
}

func TestAutoSwapUsesDefaultSlippage(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	if err := e.InitializeSettings(ctx, testAdmin, 250, 1000, uint256.NewInt(0)); err != nil {
		t.Fatalf("initialize settings: %v", err)
	}
	if err := e.RegisterProtocol(ctx, testAdmin, testProtocolConfig()); err != nil {
		t.Fatalf("register protocol: %v", err)
	}

	out, err := e.AutoSwapForCollateral(ctx, testUser, testTokenOut, uint256.NewInt(20_000))
	if err != nil {
		t.Fatalf("auto swap: %v", err)
	}
	if out.Uint64() != 19_500 {
		t.Fatalf("amount out = %s, want 19500", out)
	}
}
