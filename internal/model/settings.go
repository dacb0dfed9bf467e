package model

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MaxBps is 100% expressed in basis points.
const MaxBps = 10_000

// Settings is the global swap configuration owned by the admin.
type Settings struct {
	DefaultSlippageBps uint32       `json:"default_slippage_bps" yaml:"default_slippage_bps"`
	MaxSlippageBps     uint32       `json:"max_slippage_bps" yaml:"max_slippage_bps"`
	SwapEnabled        bool         `json:"swap_enabled" yaml:"swap_enabled"`
	LiquidityEnabled   bool         `json:"liquidity_enabled" yaml:"liquidity_enabled"`
	AutoSwapThreshold  *uint256.Int `json:"auto_swap_threshold" yaml:"auto_swap_threshold"`
}

// Validate checks 0 <= default <= max <= 10000.
func (s Settings) Validate() error {
	if s.MaxSlippageBps > MaxBps {
		return fmt.Errorf("max slippage %d exceeds %d bps", s.MaxSlippageBps, MaxBps)
	}
	if s.DefaultSlippageBps > s.MaxSlippageBps {
		return fmt.Errorf("default slippage %d exceeds max slippage %d", s.DefaultSlippageBps, s.MaxSlippageBps)
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.AutoSwapThreshold = cloneAmount(s.AutoSwapThreshold)
	return out
}

// Threshold returns the auto swap threshold, treating nil as zero.
func (s Settings) Threshold() *uint256.Int {
	if s.AutoSwapThreshold == nil {
		return new(uint256.Int)
	}
	return s.AutoSwapThreshold
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}
