package amm

import "errors"

var (
	ErrAlreadyInitialized        = errors.New("amm: settings already initialized")
	ErrNotInitialized            = errors.New("amm: settings not initialized")
	ErrUnauthorized              = errors.New("amm: unauthorized")
	ErrInvalidParameter          = errors.New("amm: invalid parameter")
	ErrSwapsPaused               = errors.New("amm: swaps paused")
	ErrProtocolUnavailable       = errors.New("amm: protocol unavailable")
	ErrDeadlineExpired           = errors.New("amm: deadline expired")
	ErrAmountOutOfBounds         = errors.New("amm: amount out of protocol bounds")
	ErrUnsupportedPair           = errors.New("amm: unsupported token pair")
	ErrSlippageTooHigh           = errors.New("amm: slippage too high")
	ErrInsufficientOutput        = errors.New("amm: insufficient output")
	ErrInvalidAmount             = errors.New("amm: invalid amount")
	ErrBelowLiquidationThreshold = errors.New("amm: amount below liquidation threshold")
	ErrNoProtocolAvailable       = errors.New("amm: no protocol available")
	ErrUnknownProtocol           = errors.New("amm: unknown protocol")
	ErrNonceReplay               = errors.New("amm: nonce replay")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidParameter, "InvalidParameter"},
	{ErrSwapsPaused, "SwapsPaused"},
	{ErrProtocolUnavailable, "ProtocolUnavailable"},
	{ErrDeadlineExpired, "DeadlineExpired"},
	{ErrAmountOutOfBounds, "AmountOutOfBounds"},
	{ErrUnsupportedPair, "UnsupportedPair"},
	{ErrSlippageTooHigh, "SlippageTooHigh"},
	{ErrInsufficientOutput, "InsufficientOutput"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrBelowLiquidationThreshold, "BelowLiquidationThreshold"},
	{ErrNoProtocolAvailable, "NoProtocolAvailable"},
	{ErrUnknownProtocol, "UnknownProtocol"},
	{ErrNonceReplay, "NonceReplay"},
}

// Kind returns the stable name of the rejection kind wrapped by err, or
// "Internal" for store and clock failures.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// IsRejection reports whether err is one of the validation kinds above.
func IsRejection(err error) bool {
	k := Kind(err)
	return k != "" && k != "Internal"
}
