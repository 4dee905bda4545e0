// Package magiceden adapts the Magic Eden runes statistics endpoint.
package magiceden

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultBaseURL = "https://api-mainnet.magiceden.dev"
	statsPath      = "/v2/ord/btc/runes/stats"
)

// runes lists the names each covered ticker may be listed under.
var runes = map[market.Ticker][]string{
	"DOGS": {"DOGS", "DOG•GO•TO•THE•MOON", "DOGGOTOTHEMOON"},
}

var lookupKeys = []string{"symbol", "ticker", "spacedRune", "rune"}

// Stats values are denominated in BTC.
var statsFields = market.FieldSet{
	Price:  []string{"floorPrice", "floor_price"},
	Volume: []string{"volume24h", "vol24h"},
	Change: []string{"change24h", "priceChange24h"},
}

// Provider reads rune floor price and volume from Magic Eden.
type Provider struct {
	name    string
	client  *transport.Client
	timeout time.Duration
}

// ProviderOption customises the Magic Eden provider.
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

// NewProvider constructs a Magic Eden provider.
func NewProvider(client *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{name: "magiceden", client: client, timeout: transport.DefaultCallTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(p.name, defaultBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("magiceden", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		var token string
		if cfg != nil {
			token = cfg.APIKey
		}
		client := transport.FromConfig(name, cfg, defaultBaseURL, transport.WithBearerToken(token))
		return NewProvider(client, WithName(name), WithTimeout(transport.CallTimeout(cfg))), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// Fetch implements market.Adapter. The stats payload is either a bare list or
// an object with a runes list.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	names, ok := runes[ticker]
	if !ok {
		return market.Reading{}, fmt.Errorf("%w: magiceden has no rune for %s", market.ErrNotCovered, ticker)
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	doc, err := p.client.Get(ctx, statsPath, nil)
	if err != nil {
		return market.Reading{}, err
	}
	list := doc
	if !list.IsArray() {
		list = doc.Get("runes")
	}
	if !list.IsArray() {
		return market.Reading{}, fmt.Errorf("%w: magiceden stats: unexpected payload", market.ErrProviderUnavailable)
	}

	item, ok := find(list, names)
	if !ok {
		return market.Reading{}, fmt.Errorf("%w: magiceden lists no rune for %s", market.ErrNotCovered, ticker)
	}
	vals := statsFields.Extract(item)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return market.Reading{}, fmt.Errorf("%w: magiceden %s missing floorPrice or volume24h", market.ErrInvalidReading, ticker)
	}
	return conv.Build(ctx, vals.Price.Decimal, vals.Volume.Decimal, vals.ChangeOrZero(), market.QuoteBTC)
}

func find(list gjson.Result, names []string) (gjson.Result, bool) {
	for _, name := range names {
		if item, ok := market.FindBy(list, name, lookupKeys...); ok {
			return item, true
		}
	}
	return gjson.Result{}, false
}
