package unisat

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

// catEndpoint is one of the redundant CAT20 market endpoints.
type catEndpoint struct {
	path string
	// tickQuery sends ?tick=<ticker>; the others return the whole market.
	tickQuery bool
}

var catEndpoints = []catEndpoint{
	{path: "/v2/market/cat/ticker"},
	{path: "/v2/market/cat/stats"},
	{path: "/v2/market/cat-dex/stats", tickQuery: true},
}

var cat20Fields = market.FieldSet{
	Price:  []string{"price", "lastPrice", "last", "currentPrice"},
	Volume: []string{"volume24h", "volume", "dailyVolume", "vol24h"},
	Change: []string{"priceChangePercent", "priceChange24h", "change24h", "change"},
}

// CAT20 queries every CAT20 market endpoint and reconciles the answers.
type CAT20 struct {
	base
}

// NewCAT20 constructs the CAT20 provider.
func NewCAT20(client *transport.Client, opts ...Option) *CAT20 {
	return &CAT20{base: newBase("unisat-cat20", client, opts)}
}

// Fetch implements market.Adapter. Endpoint failures are tolerated as long as
// one endpoint yields both a price and a volume.
func (p *CAT20) Fetch(ctx context.Context, ticker market.Ticker, conv *market.Converter) (market.Reading, error) {
	if err := p.covers(ticker); err != nil {
		return market.Reading{}, err
	}
	ctx, cancel := transport.WithDeadline(ctx, p.timeout)
	defer cancel()
	logger := logx.WithContext(ctx)

	var (
		samples []market.Sample
		errs    []error
	)
	for _, ep := range catEndpoints {
		item, err := p.lookup(ctx, ep, ticker)
		if err != nil {
			logger.Infof("unisat: cat20 %s via %s: %v", ticker, ep.path, err)
			errs = append(errs, err)
			continue
		}
		samples = append(samples, cat20Fields.Extract(item).Sample())
	}
	if len(samples) == 0 {
		return market.Reading{}, fmt.Errorf("unisat cat20 %s: %w", ticker, errors.Join(errs...))
	}

	ref, err := conv.BTCPrice(ctx)
	if err != nil {
		return market.Reading{}, err
	}
	for i := range samples {
		if samples[i].Volume.Valid {
			samples[i].Volume = decimal.NewNullDecimal(samples[i].Volume.Decimal.Div(ref))
		}
	}
	return market.Aggregate(samples)
}

func (p *CAT20) lookup(ctx context.Context, ep catEndpoint, ticker market.Ticker) (gjson.Result, error) {
	var query url.Values
	if ep.tickQuery {
		query = url.Values{"tick": {ticker.Lower()}}
	}
	data, err := p.get(ctx, ep.path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	if !data.IsArray() {
		return data, nil
	}
	item, ok := market.FindBy(data, ticker.String(), "tick", "ticker")
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: %s absent from %s", market.ErrInvalidReading, ticker, ep.path)
	}
	return item, nil
}
