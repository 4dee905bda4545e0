// Package binance adapts the Binance 24hr ticker endpoint.
package binance

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL = "https://api.binance.com"
	tickerPath     = "/api/v3/ticker/24hr"
)

// symbols maps tracked assets to Binance spot pairs. Binance's DOGS is an
// unrelated token and FB is not listed.
var symbols = map[market.Ticker]string{
	"ORDI": "ORDIUSDT",
	"CKB":  "CKBUSDT",
}

var tickerFields = market.FieldSet{
	Price:  []string{"lastPrice"},
	Volume: []string{"quoteVolume"},
	Change: []string{"priceChangePercent"},
}

// Provider fetches 24h rolling tickers from Binance.
type Provider struct {
	name    string
	client  *transport.Client
	timeout time.Duration
	listed  map[market.Ticker]bool
}

// ProviderOption customises the Binance provider.
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

// WithListed further restricts the provider to the given tickers.
func WithListed(tickers ...market.Ticker) ProviderOption {
	return func(p *Provider) {
		p.listed = make(map[market.Ticker]bool, len(tickers))
		for _, t := range tickers {
			p.listed[t] = true
		}
	}
}

// NewProvider constructs a Binance provider.
func NewProvider(client *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{name: "binance", client: client, timeout: transport.DefaultCallTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(p.name, defaultBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("binance", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		client := transport.FromConfig(name, cfg, defaultBaseURL)
		opts := []ProviderOption{WithName(name), WithTimeout(transport.CallTimeout(cfg))}
		if listed := cfg.ListedTickers(); listed != nil {
			opts = append(opts, WithListed(listed...))
		}
		return NewProvider(client, opts...), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// Fetch implements market.Adapter. Binance signals failure through the HTTP
// status only.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	symbol, ok := symbols[ticker]
	if !ok || (p.listed != nil && !p.listed[ticker]) {
		return market.Reading{}, fmt.Errorf("%w: binance does not list %s", market.ErrNotCovered, ticker)
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	doc, err := p.client.Get(ctx, tickerPath, url.Values{"symbol": {symbol}})
	if err != nil {
		return market.Reading{}, err
	}
	vals := tickerFields.Extract(doc)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return market.Reading{}, fmt.Errorf("%w: binance %s missing lastPrice or quoteVolume", market.ErrInvalidReading, symbol)
	}
	return conv.Build(ctx, vals.Price.Decimal, vals.Volume.Decimal, vals.ChangeOrZero(), market.QuoteUSD)
}
