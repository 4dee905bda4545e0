// Package coingecko adapts the CoinGecko coin endpoint, preferring the pro API
// and falling back to the public one.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

const (
	defaultProBaseURL  = "https://pro-api.coingecko.com"
	defaultFreeBaseURL = "https://api.coingecko.com"
	coinPath           = "/api/v3/coins/"
	searchPath         = "/api/v3/search"
	apiKeyHeader       = "x-cg-pro-api-key"
)

// knownIDs maps tickers to CoinGecko coin ids without a search round trip.
var knownIDs = map[market.Ticker]string{
	"STAMP": "stamp",
	"ORDI":  "ordinals",
	"DOGS":  "dog-go-to-the-moon-rune",
	"CKB":   "nervos-network",
	"FB":    "fractal-bitcoin",
}

var coinFields = market.FieldSet{
	Price:  []string{"market_data.current_price.usd"},
	Volume: []string{"market_data.total_volume.usd"},
	Change: []string{"market_data.price_change_percentage_24h"},
}

var coinQuery = url.Values{
	"localization":   {"false"},
	"tickers":        {"false"},
	"community_data": {"false"},
	"developer_data": {"false"},
	"sparkline":      {"false"},
}

// Provider resolves coin ids and reads USD market data from CoinGecko.
type Provider struct {
	name    string
	pro     *transport.Client
	free    *transport.Client
	timeout time.Duration

	mu  sync.Mutex
	ids map[market.Ticker]string
}

// ProviderOption customises the CoinGecko provider.
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

// WithCoinID pins the coin id used for ticker.
func WithCoinID(ticker market.Ticker, id string) ProviderOption {
	return func(p *Provider) {
		p.ids[ticker] = id
	}
}

// NewProvider constructs a CoinGecko provider. pro may be nil, in which case
// only the public API is used.
func NewProvider(pro, free *transport.Client, opts ...ProviderOption) *Provider {
	p := &Provider{
		name:    "coingecko",
		pro:     pro,
		free:    free,
		timeout: transport.DefaultCallTimeout,
		ids:     make(map[market.Ticker]string, len(knownIDs)),
	}
	for t, id := range knownIDs {
		p.ids[t] = id
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.free == nil {
		p.free = transport.New(p.name, defaultFreeBaseURL)
	}
	return p
}

func init() {
	market.RegisterProvider("coingecko", func(name string, cfg *market.ProviderConfig) (market.Adapter, error) {
		var pro *transport.Client
		if cfg != nil && cfg.APIKey != "" {
			pro = transport.FromConfig(name, cfg, defaultProBaseURL, transport.WithHeader(apiKeyHeader, cfg.APIKey))
		}
		freeCfg := market.ProviderConfig{}
		if cfg != nil {
			freeCfg = *cfg
			freeCfg.BaseURL = cfg.FallbackBaseURL
		}
		free := transport.FromConfig(name, &freeCfg, defaultFreeBaseURL)
		return NewProvider(pro, free, WithName(name), WithTimeout(transport.CallTimeout(cfg))), nil
	})
}

// Name implements market.Adapter.
func (p *Provider) Name() string { return p.name }

// Fetch implements market.Adapter.
func (p *Provider) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()

	id := p.coinID(ctx, ticker)
	doc, err := p.coin(ctx, id)
	if err != nil {
		return market.Reading{}, err
	}
	vals := coinFields.Extract(doc)
	if !vals.Price.Valid || !vals.Volume.Valid {
		return market.Reading{}, fmt.Errorf("%w: coingecko %s missing usd price or volume", market.ErrInvalidReading, id)
	}
	return conv.Build(ctx, vals.Price.Decimal, vals.Volume.Decimal, vals.ChangeOrZero(), market.QuoteUSD)
}

// coin fetches the coin document from the pro API, retrying once on the
// public API when the pro call fails at the transport level.
func (p *Provider) coin(ctx context.Context, id string) (gjson.Result, error) {
	path := coinPath + url.PathEscape(id)
	if p.pro != nil {
		doc, err := p.pro.Get(ctx, path, coinQuery)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, market.ErrProviderUnavailable) || ctx.Err() != nil {
			return gjson.Result{}, err
		}
		logx.WithContext(ctx).Infof("coingecko: pro api failed for %s (status=%d), trying public api: %v", id, transport.StatusCode(err), err)
	}
	return p.free.Get(ctx, path, coinQuery)
}

// coinID returns the pinned id, then a cached search hit, then the lower-case
// ticker itself.
func (p *Provider) coinID(ctx context.Context, ticker market.Ticker) string {
	p.mu.Lock()
	id, ok := p.ids[ticker]
	p.mu.Unlock()
	if ok {
		return id
	}

	id, err := p.search(ctx, ticker)
	if err != nil {
		logx.WithContext(ctx).Infof("coingecko: id search for %s failed: %v", ticker, err)
		return ticker.Lower()
	}
	p.mu.Lock()
	p.ids[ticker] = id
	p.mu.Unlock()
	return id
}

// search prefers an exact symbol match and otherwise takes the first hit.
func (p *Provider) search(ctx context.Context, ticker market.Ticker) (string, error) {
	client := p.pro
	if client == nil {
		client = p.free
	}
	doc, err := client.Get(ctx, searchPath, url.Values{"query": {ticker.Lower()}})
	if err != nil {
		return "", err
	}
	coins := doc.Get("coins")
	if len(coins.Array()) == 0 {
		return "", fmt.Errorf("%w: coingecko search for %s returned nothing", market.ErrNotCovered, ticker)
	}
	if hit, ok := market.FindBy(coins, ticker.String(), "symbol"); ok {
		if id := strings.TrimSpace(hit.Get("id").String()); id != "" {
			return id, nil
		}
	}
	if id := strings.TrimSpace(coins.Get("0.id").String()); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: coingecko search for %s returned no id", market.ErrNotCovered, ticker)
}
