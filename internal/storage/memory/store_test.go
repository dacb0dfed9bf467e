package memory

import (
	"context"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidationRouter/internal/model"
)

func testProtocol(addr string) model.ProtocolConfig {
	return model.ProtocolConfig{
		Address:       common.HexToAddress(addr),
		Name:          "pool",
		Enabled:       true,
		MinSwapAmount: uint256.NewInt(1),
		MaxSwapAmount: uint256.NewInt(100),
		SupportedPairs: []model.TokenPair{
			{TokenIn: model.Native(), TokenOut: model.Token(common.HexToAddress("0x0b"))},
		},
	}
}

func TestInitSettingsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	admin := common.HexToAddress("0xad")

	created, err := s.InitSettings(ctx, admin, model.Settings{MaxSlippageBps: 10})
	if err != nil || !created {
		t.Fatalf("first init: created=%v err=%v", created, err)
	}
	created, err = s.InitSettings(ctx, common.HexToAddress("0xbe"), model.Settings{MaxSlippageBps: 20})
	if err != nil || created {
		t.Fatalf("second init: created=%v err=%v", created, err)
	}

	got, gotAdmin, ok, err := s.LoadSettings(ctx)
	if err != nil || !ok {
		t.Fatalf("load settings: ok=%v err=%v", ok, err)
	}
	if gotAdmin != admin || got.MaxSlippageBps != 10 {
		t.Fatalf("unexpected settings %+v admin %s", got, gotAdmin.Hex())
	}
}

func TestProtocolOrderSurvivesReRegistration(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, b := testProtocol("0x01"), testProtocol("0x02")
	for _, cfg := range []model.ProtocolConfig{a, b} {
		if err := s.PutProtocol(ctx, cfg); err != nil {
			t.Fatalf("put protocol: %v", err)
		}
	}
	a.Name = "renamed"
	if err := s.PutProtocol(ctx, a); err != nil {
		t.Fatalf("put protocol: %v", err)
	}

	list, err := s.ListProtocols(ctx)
	if err != nil {
		t.Fatalf("list protocols: %v", err)
	}
	got := []common.Address{list[0].Address, list[1].Address}
	want := []common.Address{a.Address, b.Address}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
	if list[0].Name != "renamed" {
		t.Fatalf("expected overwrite, got %q", list[0].Name)
	}
}

func TestStoredProtocolIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	cfg := testProtocol("0x01")
	if err := s.PutProtocol(ctx, cfg); err != nil {
		t.Fatalf("put protocol: %v", err)
	}
	cfg.MaxSwapAmount.SetUint64(1)

	got, ok, err := s.GetProtocol(ctx, cfg.Address)
	if err != nil || !ok {
		t.Fatalf("get protocol: ok=%v err=%v", ok, err)
	}
	if got.MaxSwapAmount.Uint64() != 100 {
		t.Fatalf("store shares caller memory: max=%s", got.MaxSwapAmount)
	}
}

func TestAdvanceNonce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := common.HexToAddress("0x01")

	if ok, _ := s.AdvanceNonce(ctx, p, 0, 5); !ok {
		t.Fatalf("expected advance from 0 to 5")
	}
	if ok, _ := s.AdvanceNonce(ctx, p, 0, 6); ok {
		t.Fatalf("expected stale baseline to fail")
	}
	if ok, _ := s.AdvanceNonce(ctx, p, 5, 5); ok {
		t.Fatalf("expected non-increasing nonce to fail")
	}
	last, _ := s.LastNonce(ctx, p)
	if last != 5 {
		t.Fatalf("last nonce = %d, want 5", last)
	}
}

func TestSwapHistoryAndRanges(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice, bob := common.HexToAddress("0xa1"), common.HexToAddress("0xb0")

	for i, user := range []common.Address{alice, bob, alice, alice} {
		rec, err := s.AppendSwap(ctx, model.SwapRecord{
			User:      user,
			AmountIn:  uint256.NewInt(uint64(i + 1)),
			AmountOut: uint256.NewInt(uint64(i + 1)),
		})
		if err != nil {
			t.Fatalf("append swap: %v", err)
		}
		if rec.SequenceID != uint64(i+1) {
			t.Fatalf("sequence id = %d, want %d", rec.SequenceID, i+1)
		}
	}

	got, err := s.SwapHistory(ctx, &alice, 2)
	if err != nil {
		t.Fatalf("swap history: %v", err)
	}
	if len(got) != 2 || got[0].SequenceID != 1 || got[1].SequenceID != 3 {
		t.Fatalf("unexpected alice history: %+v", got)
	}

	all, err := s.SwapHistory(ctx, nil, 10)
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 records, got %d err=%v", len(all), err)
	}

	latest, err := s.LatestSequence(ctx)
	if err != nil || latest != 4 {
		t.Fatalf("latest sequence = %d err=%v", latest, err)
	}
	between, err := s.SwapsBetween(ctx, 2, 3)
	if err != nil {
		t.Fatalf("swaps between: %v", err)
	}
	if len(between) != 2 || between[0].SequenceID != 2 || between[1].SequenceID != 3 {
		t.Fatalf("unexpected range: %+v", between)
	}
}
