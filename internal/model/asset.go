package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const nativeAssetText = "native"

// Asset identifies either the chain's native asset or a token contract. The
// zero value is unset; no token lives at the zero address.
type Asset struct {
	native bool
	token  common.Address
}

// Native returns the native asset.
func Native() Asset {
	return Asset{native: true}
}

// Token returns the asset backed by the given token contract.
func Token(addr common.Address) Asset {
	return Asset{token: addr}
}

func (a Asset) IsNative() bool {
	return a.native
}

// IsZero reports whether the asset is unset.
func (a Asset) IsZero() bool {
	return !a.native && a.token == (common.Address{})
}

// Address returns the token contract and false for the native asset.
func (a Asset) Address() (common.Address, bool) {
	if a.native {
		return common.Address{}, false
	}
	return a.token, true
}

// Equal reports identity equality. Native only equals native.
func (a Asset) Equal(other Asset) bool {
	if a.native || other.native {
		return a.native == other.native
	}
	return a.token == other.token
}

func (a Asset) String() string {
	if a.native {
		return nativeAssetText
	}
	return a.token.Hex()
}

// ParseAsset parses "native" or a hex token address.
func ParseAsset(input string) (Asset, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, nativeAssetText) {
		return Native(), nil
	}
	if !common.IsHexAddress(input) {
		return Asset{}, fmt.Errorf("invalid asset: %q", input)
	}
	asset := Token(common.HexToAddress(input))
	if asset.IsZero() {
		return Asset{}, fmt.Errorf("invalid asset: zero address %q", input)
	}
	return asset, nil
}

func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Asset) UnmarshalText(data []byte) error {
	parsed, err := ParseAsset(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the asset as "native" or a checksummed address.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("decode asset: %w", err)
	}
	return a.UnmarshalText([]byte(text))
}
