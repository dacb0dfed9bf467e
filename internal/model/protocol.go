package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenPair is a swap direction offered by a protocol pool.
type TokenPair struct {
	TokenIn  Asset          `json:"token_in" yaml:"token_in"`
	TokenOut Asset          `json:"token_out" yaml:"token_out"`
	Pool     common.Address `json:"pool" yaml:"pool"`
}

// Matches reports whether the pair serves exactly in -> out.
func (p TokenPair) Matches(in, out Asset) bool {
	return p.TokenIn.Equal(in) && p.TokenOut.Equal(out)
}

// ProtocolConfig describes a registered AMM protocol.
type ProtocolConfig struct {
	Address        common.Address `json:"address" yaml:"address"`
	Name           string         `json:"name" yaml:"name"`
	Enabled        bool           `json:"enabled" yaml:"enabled"`
	FeeTierBps     uint32         `json:"fee_tier_bps" yaml:"fee_tier_bps"`
	MinSwapAmount  *uint256.Int   `json:"min_swap_amount" yaml:"min_swap_amount"`
	MaxSwapAmount  *uint256.Int   `json:"max_swap_amount" yaml:"max_swap_amount"`
	SupportedPairs []TokenPair    `json:"supported_pairs" yaml:"supported_pairs"`
}

// Validate checks the registration rules.
func (c ProtocolConfig) Validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("protocol address is required")
	}
	if c.FeeTierBps > MaxBps {
		return fmt.Errorf("fee tier %d exceeds %d bps", c.FeeTierBps, MaxBps)
	}
	if c.MinSwapAmount == nil || c.MaxSwapAmount == nil {
		return fmt.Errorf("swap amount bounds are required")
	}
	if c.MinSwapAmount.Gt(c.MaxSwapAmount) {
		return fmt.Errorf("min swap amount %s exceeds max %s", c.MinSwapAmount, c.MaxSwapAmount)
	}
	if len(c.SupportedPairs) == 0 {
		return fmt.Errorf("at least one supported pair is required")
	}
	for i, pair := range c.SupportedPairs {
		if pair.TokenIn.IsZero() || pair.TokenOut.IsZero() {
			return fmt.Errorf("pair %d has an unset token", i)
		}
		for _, prev := range c.SupportedPairs[:i] {
			if prev.Matches(pair.TokenIn, pair.TokenOut) {
				return fmt.Errorf("duplicate pair %s -> %s", pair.TokenIn, pair.TokenOut)
			}
		}
	}
	return nil
}

// Supports reports whether any pair serves in -> out.
func (c ProtocolConfig) Supports(in, out Asset) bool {
	for _, pair := range c.SupportedPairs {
		if pair.Matches(in, out) {
			return true
		}
	}
	return false
}

// InBounds reports whether amount lies within [min, max].
func (c ProtocolConfig) InBounds(amount *uint256.Int) bool {
	if amount == nil || c.MinSwapAmount == nil || c.MaxSwapAmount == nil {
		return false
	}
	return !amount.Lt(c.MinSwapAmount) && !amount.Gt(c.MaxSwapAmount)
}

// Clone returns a deep copy.
func (c ProtocolConfig) Clone() ProtocolConfig {
	out := c
	out.MinSwapAmount = cloneAmount(c.MinSwapAmount)
	out.MaxSwapAmount = cloneAmount(c.MaxSwapAmount)
	out.SupportedPairs = append([]TokenPair(nil), c.SupportedPairs...)
	return out
}
