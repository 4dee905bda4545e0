// Package gateio adapts the Gate.io v4 spot endpoints.
package gateio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL   = "https://api.gateio.ws"
	tickersPath      = "/api/v4/spot/tickers"
	candlesticksPath = "/api/v4/spot/candlesticks"
)

// pairs lists the Gate.io currency pairs tried for each ticker, in order.
var pairs = map[market.Ticker][]string{
	"STAMP": {"STAMP_USDT", "STAMP_BTC"},
	"ORDI":  {"ORDI_USDT", "ORDI_BTC"},
	"DOGS":  {"DOGS_USDT", "DOGS_BTC"},
	"CKB":   {"CKB_USDT"},
	"FB":    {"FB_USDT"},
}

var tickerFields = market.FieldSet{
	Price:  []string{"last"},
	Volume: []string{"quote_volume"},
	Change: []string{"change_percentage"},
}

// Provider fetches spot tickers from Gate.io.
type Provider struct {
	name    string
	client  *transport.Client
	timeout time.Duration
}

// ProviderOption customises the Gate.io provider.
type ProviderOption func(*Provider)

// WithName overrides the provider name used in logs.
func WithName(name string) ProviderOption {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// NewProvider constructs a Gate.io provider. A nil client talks to the public API.
func NewProvider(client *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{name: "gateio", client: client, timeout: transport.DefaultCallTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(p.name, defaultBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("gateio", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		client := transport.FromConfig(name, cfg, defaultBaseURL)
		return NewProvider(client, WithName(name), WithTimeout(transport.CallTimeout(cfg))), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// raw is a native quote before unit conversion.
type raw struct {
	price, volume, change decimal.Decimal
	quote                 market.Quote
}

// Fetch implements market.Adapter. Each pair is tried through the single
// ticker endpoint and then daily candlesticks; the full ticker listing is the
// last resort.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	candidates, ok := pairs[ticker]
	if !ok {
		return market.Reading{}, fmt.Errorf("%w: gateio has no pair for %s", market.ErrNotCovered, ticker)
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()
	logger := logx.WithContext(ctx)

	var errs []error
	for _, pair := range candidates {
		q, err := p.fromTicker(ctx, pair)
		if err == nil {
			return p.build(ctx, conv, q)
		}
		logger.Infof("gateio: ticker %s unusable: %v", pair, err)
		errs = append(errs, err)

		q, err = p.fromCandles(ctx, pair)
		if err == nil {
			return p.build(ctx, conv, q)
		}
		logger.Infof("gateio: candlesticks %s unusable: %v", pair, err)
		errs = append(errs, err)
	}

	q, err := p.fromListing(ctx, candidates)
	if err == nil {
		return p.build(ctx, conv, q)
	}
	errs = append(errs, err)
	return market.Reading{}, fmt.Errorf("gateio %s: %w", ticker, errors.Join(errs...))
}

func (p *Provider) build(ctx context.Context, conv *market.Converter, q raw) (market.Reading, error) {
	return conv.Build(ctx, q.price, q.volume, q.change, q.quote)
}

func (p *Provider) fromTicker(ctx context.Context, pair string) (raw, error) {
	doc, err := p.client.Get(ctx, tickersPath, url.Values{"currency_pair": {pair}})
	if err != nil {
		return raw{}, err
	}
	if !doc.IsArray() || len(doc.Array()) == 0 {
		return raw{}, fmt.Errorf("%w: gateio tickers %s: empty result", market.ErrProviderUnavailable, pair)
	}
	return parseTicker(doc.Get("0"), pair)
}

// fromCandles derives a quote from daily candlesticks. Gate.io returns them
// oldest first: [t, quote_volume, close, high, low, open, base_volume, closed].
func (p *Provider) fromCandles(ctx context.Context, pair string) (raw, error) {
	query := url.Values{"currency_pair": {pair}, "interval": {"1d"}, "limit": {"2"}}
	doc, err := p.client.Get(ctx, candlesticksPath, query)
	if err != nil {
		return raw{}, err
	}
	candles := doc.Array()
	if !doc.IsArray() || len(candles) < 2 {
		return raw{}, fmt.Errorf("%w: gateio candlesticks %s: need 2 candles", market.ErrInvalidReading, pair)
	}
	current, previous := candles[len(candles)-1], candles[len(candles)-2]
	price, ok1 := market.ParseDecimal(current.Get("2"))
	volume, ok2 := market.ParseDecimal(current.Get("1"))
	prevClose, ok3 := market.ParseDecimal(previous.Get("2"))
	if !ok1 || !ok2 || !ok3 || !prevClose.IsPositive() {
		return raw{}, fmt.Errorf("%w: gateio candlesticks %s: bad values", market.ErrInvalidReading, pair)
	}
	change := price.Sub(prevClose).Div(prevClose).Mul(decimal.NewFromInt(100))
	return checked(raw{price: price, volume: volume, change: change, quote: quoteOf(pair)}, pair)
}

func (p *Provider) fromListing(ctx context.Context, candidates []string) (raw, error) {
	doc, err := p.client.Get(ctx, tickersPath, nil)
	if err != nil {
		return raw{}, err
	}
	for _, pair := range candidates {
		item, ok := market.FindBy(doc, pair, "currency_pair")
		if !ok {
			continue
		}
		if q, err := parseTicker(item, pair); err == nil {
			return q, nil
		}
	}
	return raw{}, fmt.Errorf("%w: gateio listing has no usable pair among %s", market.ErrInvalidReading, strings.Join(candidates, ","))
}

func parseTicker(item gjson.Result, pair string) (raw, error) {
	vals := tickerFields.Extract(item)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return raw{}, fmt.Errorf("%w: gateio ticker %s missing last or quote_volume", market.ErrInvalidReading, pair)
	}
	return checked(raw{
		price:  vals.Price.Decimal,
		volume: vals.Volume.Decimal,
		change: vals.ChangeOrZero(),
		quote:  quoteOf(pair),
	}, pair)
}

func checked(q raw, pair string) (raw, error) {
	if !q.price.IsPositive() || !q.volume.IsPositive() {
		return raw{}, fmt.Errorf("%w: gateio %s price=%s volume=%s", market.ErrInvalidReading, pair, q.price, q.volume)
	}
	return q, nil
}

func quoteOf(pair string) market.Quote {
	if strings.HasSuffix(pair, "_BTC") {
		return market.QuoteBTC
	}
	return market.QuoteUSD
}
