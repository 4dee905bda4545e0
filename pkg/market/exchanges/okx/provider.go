// Package okx adapts the OKX public market endpoints. It also serves the
// BTC/USD reference price used for volume conversion.
package okx

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL  = "https://www.okx.com"
	tickerPath      = "/api/v5/market/ticker"
	candlesPath     = "/api/v5/market/candles"
	referenceInstID = "BTC-USDT"
	okCode          = "0"
)

// instruments maps tracked tickers to OKX spot instrument ids.
var instruments = map[market.Ticker]string{
	"ORDI": "ORDI-USDT",
	"DOGS": "DOGS-USDT",
	"SATS": "SATS-USDT",
	"RATS": "RATS-USDT",
	"CKB":  "CKB-USDT",
}

var tickerFields = market.FieldSet{
	Price:  []string{"last", "lastPx"},
	Volume: []string{"volCcy24h", "volCcy"},
}

var openFields = []string{"open24h", "sodUtc0"}

// Provider fetches ticker and daily candle data from OKX.
type Provider struct {
	name    string
	client  *transport.Client
	timeout time.Duration
}

// ProviderOption customises the OKX provider.
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

// NewProvider constructs an OKX provider. A nil client talks to the public API.
func NewProvider(client *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{
		name:    "okx",
		client:  client,
		timeout: transport.DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(p.name, defaultBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("okx", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		client := transport.FromConfig(name, cfg, defaultBaseURL)
		return NewProvider(client, WithName(name), WithTimeout(transport.CallTimeout(cfg))), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// Fetch implements market.Adapter. Price and volume come from the ticker; the
// 24h change from the last two daily candles, then from open24h.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	instID, ok := instruments[ticker]
	if !ok {
		return market.Reading{}, fmt.Errorf("%w: okx has no instrument for %s", market.ErrNotCovered, ticker)
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	item, err := p.ticker(ctx, instID)
	if err != nil {
		return market.Reading{}, err
	}
	vals := tickerFields.Extract(item)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return market.Reading{}, fmt.Errorf("%w: okx ticker %s missing price or volume", market.ErrInvalidReading, instID)
	}
	price, volume := vals.Price.Decimal, vals.Volume.Decimal
	if !price.IsPositive() || !volume.IsPositive() {
		return market.Reading{}, fmt.Errorf("%w: okx ticker %s price=%s volume=%s", market.ErrInvalidReading, instID, price, volume)
	}

	change := p.change24h(ctx, instID, item, price)
	return conv.Build(ctx, price, volume, change, market.QuoteUSD)
}

// BTCPrice implements market.ReferenceSource using the BTC-USDT last price.
func (p *Provider) BTCPrice(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	item, err := p.ticker(ctx, referenceInstID)
	if err != nil {
		logx.WithContext(ctx).Errorf("okx: reference price err=%v", err)
		return decimal.Zero, fmt.Errorf("%w: %v", market.ErrReferencePriceUnavailable, err)
	}
	price, ok := market.ParseDecimal(item.Get("last"))
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: okx %s last=%q", market.ErrReferencePriceUnavailable, referenceInstID, item.Get("last").String())
	}
	return price, nil
}

func (p *Provider) ticker(ctx context.Context, instID string) (gjson.Result, error) {
	doc, err := p.client.Get(ctx, tickerPath, url.Values{"instId": {instID}})
	if err != nil {
		return gjson.Result{}, err
	}
	data, err := envelope(doc)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("okx ticker %s: %w", instID, err)
	}
	first := data.Get("0")
	if !first.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: okx ticker %s: empty data", market.ErrProviderUnavailable, instID)
	}
	return first, nil
}

func (p *Provider) change24h(ctx context.Context, instID string, item gjson.Result, last decimal.Decimal) decimal.Decimal {
	logger := logx.WithContext(ctx)
	if change, err := p.candleChange(ctx, instID); err == nil {
		return change
	} else {
		logger.Infof("okx: candle change unavailable instId=%s err=%v", instID, err)
	}
	open := market.FirstDecimal(item, openFields)
	if open.Valid && open.Decimal.IsPositive() {
		return percentChange(last, open.Decimal)
	}
	logger.Infof("okx: no 24h change for %s, using 0", instID)
	return decimal.Zero
}

// candleChange compares the closes of the two most recent daily candles.
// OKX lists candles newest first: [ts, o, h, l, c, vol, volCcy, ...].
func (p *Provider) candleChange(ctx context.Context, instID string) (decimal.Decimal, error) {
	query := url.Values{"instId": {instID}, "bar": {"1D"}, "limit": {"2"}}
	doc, err := p.client.Get(ctx, candlesPath, query)
	if err != nil {
		return decimal.Zero, err
	}
	data, err := envelope(doc)
	if err != nil {
		return decimal.Zero, err
	}
	if len(data.Array()) < 2 {
		return decimal.Zero, fmt.Errorf("%w: okx candles %s: need 2 candles", market.ErrInvalidReading, instID)
	}
	current, ok1 := market.ParseDecimal(data.Get("0.4"))
	previous, ok2 := market.ParseDecimal(data.Get("1.4"))
	if !ok1 || !ok2 || !previous.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: okx candles %s: bad close values", market.ErrInvalidReading, instID)
	}
	return percentChange(current, previous), nil
}

func envelope(doc gjson.Result) (gjson.Result, error) {
	if code := doc.Get("code").String(); code != okCode {
		return gjson.Result{}, fmt.Errorf("%w: okx code=%s msg=%s", market.ErrProviderUnavailable, code, doc.Get("msg").String())
	}
	data := doc.Get("data")
	if !data.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: okx data is not a list", market.ErrProviderUnavailable)
	}
	return data, nil
}

func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
}
