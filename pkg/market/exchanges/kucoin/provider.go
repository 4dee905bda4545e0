// Package kucoin adapts the KuCoin 24h market stats endpoint.
package kucoin

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL = "https://api.kucoin.com"
	statsPath      = "/api/v1/market/stats"
	okCode         = "200000"
)

var symbols = map[market.Ticker]string{
	"STAMP": "STAMP-USDT",
	"ORDI":  "ORDI-USDT",
	"CKB":   "CKB-USDT",
	"SATS":  "SATS-USDT",
}

var statsFields = market.FieldSet{
	Price:  []string{"last"},
	Volume: []string{"volValue"},
	Change: []string{"changeRate"},
}

// Provider fetches 24h stats from KuCoin.
type Provider struct {
	name    string
	client  *transport.Client
	timeout time.Duration
}

// ProviderOption customises the KuCoin provider.
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

// NewProvider constructs a KuCoin provider.
func NewProvider(client *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{name: "kucoin", client: client, timeout: transport.DefaultCallTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(p.name, defaultBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("kucoin", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		client := transport.FromConfig(name, cfg, defaultBaseURL)
		return NewProvider(client, WithName(name), WithTimeout(transport.CallTimeout(cfg))), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// Fetch implements market.Adapter. KuCoin reports changeRate as a fraction.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	symbol, ok := symbols[ticker]
	if !ok {
		return market.Reading{}, fmt.Errorf("%w: kucoin has no symbol for %s", market.ErrNotCovered, ticker)
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	doc, err := p.client.Get(ctx, statsPath, url.Values{"symbol": {symbol}})
	if err != nil {
		return market.Reading{}, err
	}
	if code := doc.Get("code").String(); code != okCode {
		return market.Reading{}, fmt.Errorf("%w: kucoin stats %s code=%s msg=%s", market.ErrProviderUnavailable, symbol, code, doc.Get("msg").String())
	}
	data := doc.Get("data")
	if !data.IsObject() {
		return market.Reading{}, fmt.Errorf("%w: kucoin stats %s: no data", market.ErrProviderUnavailable, symbol)
	}

	vals := statsFields.Extract(data)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return market.Reading{}, fmt.Errorf("%w: kucoin stats %s missing last or volValue", market.ErrInvalidReading, symbol)
	}
	change := vals.ChangeOrZero().Mul(decimal.NewFromInt(100))
	return conv.Build(ctx, vals.Price.Decimal, vals.Volume.Decimal, change, market.QuoteUSD)
}
