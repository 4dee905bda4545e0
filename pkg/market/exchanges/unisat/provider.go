// Package unisat adapts the UniSat open API: the BRC20 indexer ticker and the
// CAT20 market endpoints. Both require a bearer API key.
package unisat

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL = "https://open-api.unisat.io"
	brc20Path      = "/v1/indexer/brc20/ticker"
	okCode         = 0
)

var brc20Fields = market.FieldSet{
	Price:  []string{"latestPrice", "price"},
	Volume: []string{"volume24h", "volume"},
	Change: []string{"priceChange24h", "change24h"},
}

type base struct {
	name    string
	client  *transport.Client
	timeout time.Duration
	listed  map[market.Ticker]bool
}

// Option customises UniSat providers.
type Option func(*base)

// WithName overrides the provider name used in logs.
func WithName(name string) Option {
	return func(b *base) {
		if name != "" {
			b.name = name
		}
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(b *base) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithListed restricts the provider to the given tickers.
func WithListed(tickers ...market.Ticker) Option {
	return func(b *base) {
		b.listed = make(map[market.Ticker]bool, len(tickers))
		for _, t := range tickers {
			b.listed[t] = true
		}
	}
}

func newBase(defaultName string, client *transport.Client, opts []Option) base {
	b := base{name: defaultName, client: client, timeout: transport.DefaultCallTimeout}
	for _, opt := range opts {
		opt(&b)
	}
	if b.client == nil {
		b.client = transport.New(b.name, defaultBaseURL)
	}
	return b
}

// Name implements market.Adapter.
func (b *base) Name() string { return b.name }

func (b *base) covers(ticker market.Ticker) error {
	if b.listed != nil && !b.listed[ticker] {
		return fmt.Errorf("%w: %s does not list %s", market.ErrNotCovered, b.name, ticker)
	}
	return nil
}

// get issues a request and unwraps the {code, msg, data} envelope.
func (b *base) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	doc, err := b.client.Get(ctx, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	if code := doc.Get("code"); !code.Exists() || code.Int() != okCode {
		return gjson.Result{}, fmt.Errorf("%w: %s %s code=%s msg=%s", market.ErrProviderUnavailable, b.name, path, code.Raw, doc.Get("msg").String())
	}
	data := doc.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return gjson.Result{}, fmt.Errorf("%w: %s %s: no data", market.ErrProviderUnavailable, b.name, path)
	}
	return data, nil
}

func clientFromConfig(name string, cfg *market.ProviderConfig) *transport.Client {
	var token string
	if cfg != nil {
		token = cfg.APIKey
	}
	return transport.FromConfig(name, cfg, defaultBaseURL, transport.WithBearerToken(token))
}

func configOptions(name string, cfg *market.ProviderConfig) []Option {
	opts := []Option{WithName(name), WithTimeout(transport.CallTimeout(cfg))}
	if listed := cfg.ListedTickers(); listed != nil {
		opts = append(opts, WithListed(listed...))
	}
	return opts
}

// BRC20 reads BRC20 token stats from the UniSat indexer.
type BRC20 struct {
	base
}

// NewBRC20 constructs the BRC20 provider.
func NewBRC20(client *transport.Client, opts ...Option) *BRC20 {
	return &BRC20{base: newBase("unisat-brc20", client, opts)}
}

// Fetch implements market.Adapter.
func (p *BRC20) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	if err := p.covers(ticker); err != nil {
		return market.Reading{}, err
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	data, err := p.get(ctx, brc20Path, url.Values{"ticker": {ticker.Lower()}})
	if err != nil {
		return market.Reading{}, err
	}
	vals := brc20Fields.Extract(data)
	if !vals.Price.Valid || !vals.Volume.Valid {
		logx.WithContext(ctx).Infof("unisat: brc20 %s payload lacks price or volume", ticker)
		return market.Reading{}, fmt.Errorf("%w: unisat brc20 %s missing latestPrice or volume24h", market.ErrInvalidReading, ticker)
	}
	return conv.Build(ctx, vals.Price.Decimal, vals.Volume.Decimal, vals.ChangeOrZero(), market.QuoteUSD)
}

func init() {
	market.RegisterProvider("unisat-brc20", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		return NewBRC20(clientFromConfig(name, cfg), configOptions(name, cfg)...), nil
	})
	market.RegisterProvider("unisat-cat20", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		return NewCAT20(clientFromConfig(name, cfg), configOptions(name, cfg)...), nil
	})
}
