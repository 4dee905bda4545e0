package market

import "context"

// Adapter maps one provider's payloads into canonical readings.
type Adapter interface {
	// Name is the configured provider name, used in logs.
	Name() string
	// Fetch returns a validated reading for ticker. Any failure is reported as
	// an error wrapping ErrNotCovered, ErrProviderUnavailable, ErrInvalidReading
	// or ErrReferencePriceUnavailable; adapters never panic on bad payloads.
	Fetch(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error)
}

// AssetPlan is the ordered fallback chain for one tracked asset.
type AssetPlan struct {
	Ticker   Ticker
	Protocol string
	Chain    []Adapter
}
