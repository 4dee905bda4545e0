package market

import "errors"

var (
	// ErrNotCovered reports that a provider has no pair mapping for the ticker.
	ErrNotCovered = errors.New("market: asset not covered by provider")
	// ErrProviderUnavailable wraps network, timeout, status and decoding failures.
	ErrProviderUnavailable = errors.New("market: provider unavailable")
	// ErrInvalidReading reports a payload without a usable price or volume.
	ErrInvalidReading = errors.New("market: invalid reading")
	// ErrReferencePriceUnavailable reports that BTC/USD could not be resolved for the cycle.
	ErrReferencePriceUnavailable = errors.New("market: reference price unavailable")
)
