package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Ticker is the upper-case asset symbol shared by every provider, e.g. "ORDI".
type Ticker string

// NormalizeTicker trims and upper-cases a raw symbol.
func NormalizeTicker(raw string) Ticker {
	return Ticker(strings.ToUpper(strings.TrimSpace(raw)))
}

func (t Ticker) String() string { return string(t) }

// Lower returns the lower-case form some indexers expect in query strings.
func (t Ticker) Lower() string { return strings.ToLower(string(t)) }

// Reading is the canonical per-asset record: USD price, BTC volume and 24h change.
// Values are immutable once constructed; use NewReading to build one.
type Reading struct {
	price     decimal.Decimal
	volumeBTC decimal.Decimal
	change24h decimal.Decimal
	protocol  string
}

// NewReading validates and builds a Reading. Price must be positive and volume
// must not be negative.
func NewReading(price, volumeBTC, change24h decimal.Decimal, protocol string) (Reading, error) {
	if !price.IsPositive() {
		return Reading{}, fmt.Errorf("%w: price %s must be positive", ErrInvalidReading, price)
	}
	if volumeBTC.IsNegative() {
		return Reading{}, fmt.Errorf("%w: volume %s must not be negative", ErrInvalidReading, volumeBTC)
	}
	return Reading{
		price:     price,
		volumeBTC: volumeBTC,
		change24h: change24h,
		protocol:  strings.TrimSpace(protocol),
	}, nil
}

// MustReading is NewReading for static fixtures; it panics on invalid input.
func MustReading(price, volumeBTC, change24h float64, protocol string) Reading {
	r, err := NewReading(
		decimal.NewFromFloat(price),
		decimal.NewFromFloat(volumeBTC),
		decimal.NewFromFloat(change24h),
		protocol,
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Reading) Price() decimal.Decimal     { return r.price }
func (r Reading) VolumeBTC() decimal.Decimal { return r.volumeBTC }
func (r Reading) Change24h() decimal.Decimal { return r.change24h }
func (r Reading) Protocol() string           { return r.protocol }

// IsZero reports whether r is the zero value (never produced by NewReading).
func (r Reading) IsZero() bool {
	return r.price.IsZero() && r.volumeBTC.IsZero() && r.change24h.IsZero() && r.protocol == ""
}

// WithProtocol returns a copy of r labelled with protocol.
func (r Reading) WithProtocol(protocol string) Reading {
	r.protocol = strings.TrimSpace(protocol)
	return r
}

// Equal compares values numerically, so 1.50 equals 1.5.
func (r Reading) Equal(other Reading) bool {
	return r.price.Equal(other.price) &&
		r.volumeBTC.Equal(other.volumeBTC) &&
		r.change24h.Equal(other.change24h) &&
		r.protocol == other.protocol
}

func (r Reading) String() string {
	return fmt.Sprintf("price=%s volume_btc=%s change_24h=%s protocol=%s",
		r.price, r.volumeBTC, r.change24h, r.protocol)
}
