package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapParams is a request to swap against a named protocol.
type SwapParams struct {
	Protocol             common.Address `json:"protocol"`
	TokenIn              Asset          `json:"token_in"`
	TokenOut             Asset          `json:"token_out"`
	AmountIn             *uint256.Int   `json:"amount_in"`
	MinAmountOut         *uint256.Int   `json:"min_amount_out"`
	SlippageToleranceBps uint32         `json:"slippage_tolerance_bps"`
	Deadline             uint64         `json:"deadline"`
}

// SwapRecord is an executed swap in the history ledger.
type SwapRecord struct {
	SequenceID uint64         `json:"sequence_id"`
	User       common.Address `json:"user"`
	Protocol   common.Address `json:"protocol"`
	TokenIn    Asset          `json:"token_in"`
	TokenOut   Asset          `json:"token_out"`
	AmountIn   *uint256.Int   `json:"amount_in"`
	AmountOut  *uint256.Int   `json:"amount_out"`
	Timestamp  uint64         `json:"timestamp"`
}

// Clone returns a deep copy.
func (r SwapRecord) Clone() SwapRecord {
	out := r
	out.AmountIn = cloneAmount(r.AmountIn)
	out.AmountOut = cloneAmount(r.AmountOut)
	return out
}

// CallbackData is sent by a protocol after it executed a swap.
type CallbackData struct {
	Nonce           uint64         `json:"nonce"`
	Operation       string         `json:"operation"`
	User            common.Address `json:"user"`
	ExpectedAmounts []*uint256.Int `json:"expected_amounts"`
	Deadline        uint64         `json:"deadline"`
}
