package market

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Quote is the currency a provider denominates a trading pair in.
type Quote int

const (
	QuoteUSD Quote = iota
	QuoteBTC
)

func (q Quote) String() string {
	if q == QuoteBTC {
		return "BTC"
	}
	return "USD"
}

// ReferenceSource resolves the BTC/USD last traded price.
type ReferenceSource interface {
	BTCPrice(ctx context.Context) (decimal.Decimal, error)
}

// Converter turns native prices and volumes into USD price and BTC volume.
// One Converter lives for one cycle: the reference price is fetched on first
// use and the outcome, success or failure, is reused for the rest of the cycle.
// A failure caused by the caller's own context being done is not kept.
type Converter struct {
	source ReferenceSource

	mu       sync.Mutex
	resolved bool
	price    decimal.Decimal
	err      error
}

// NewConverter builds a cycle-scoped converter over source.
func NewConverter(source ReferenceSource) *Converter {
	return &Converter{source: source}
}

// FixedConverter returns a converter pinned to price, mainly for tests and tooling.
func FixedConverter(price decimal.Decimal) *Converter {
	c := &Converter{resolved: true}
	if !price.IsPositive() {
		c.err = fmt.Errorf("%w: non-positive price %s", ErrReferencePriceUnavailable, price)
		return c
	}
	c.price = price
	return c
}

// BTCPrice returns the memoised reference price.
func (c *Converter) BTCPrice(ctx context.Context) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, fmt.Errorf("%w: no converter", ErrReferencePriceUnavailable)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return c.price, c.err
	}
	if c.source == nil {
		c.resolved = true
		c.err = fmt.Errorf("%w: no reference source", ErrReferencePriceUnavailable)
		return c.price, c.err
	}
	price, err := c.source.BTCPrice(ctx)
	switch {
	case err != nil:
		if !errors.Is(err, ErrReferencePriceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrReferencePriceUnavailable, err)
		}
		if ctx.Err() != nil {
			// caller ran out of time; a later caller may still succeed
			return decimal.Zero, err
		}
		c.err = err
	case !price.IsPositive():
		c.err = fmt.Errorf("%w: non-positive price %s", ErrReferencePriceUnavailable, price)
	default:
		c.price = price
	}
	c.resolved = true
	return c.price, c.err
}

// Normalize converts a native price and 24h volume into a USD price and a BTC
// volume. BTC-quoted pairs are first lifted to USD so both paths share the
// same division. Without a reference price no conversion is attempted.
func (c *Converter) Normalize(ctx context.Context, price, volume decimal.Decimal, quote Quote) (priceUSD, volumeBTC decimal.Decimal, err error) {
	ref, err := c.BTCPrice(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	priceUSD, volumeUSD := price, volume
	if quote == QuoteBTC {
		priceUSD = price.Mul(ref)
		volumeUSD = volume.Mul(ref)
	}
	return priceUSD, volumeUSD.Div(ref), nil
}

// Build normalises raw values and validates them into a Reading. Price or
// volume that is not strictly positive is rejected; change is carried as is.
func (c *Converter) Build(ctx context.Context, price, volume, change decimal.Decimal, quote Quote) (Reading, error) {
	if !price.IsPositive() || !volume.IsPositive() {
		return Reading{}, fmt.Errorf("%w: price=%s volume=%s", ErrInvalidReading, price, volume)
	}
	priceUSD, volumeBTC, err := c.Normalize(ctx, price, volume, quote)
	if err != nil {
		return Reading{}, err
	}
	return NewReading(priceUSD, volumeBTC, change, "")
}
