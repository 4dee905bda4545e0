package svc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/internal/config"
	"btcdigest/pkg/journal"
	marketpkg "btcdigest/pkg/market"
	_ "btcdigest/pkg/market/exchanges/binance"
	_ "btcdigest/pkg/market/exchanges/coingecko"
	_ "btcdigest/pkg/market/exchanges/gateio"
	_ "btcdigest/pkg/market/exchanges/kucoin"
	_ "btcdigest/pkg/market/exchanges/magiceden"
	_ "btcdigest/pkg/market/exchanges/okx"
	_ "btcdigest/pkg/market/exchanges/unisat"
	"btcdigest/pkg/publish"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig *marketpkg.Config
	Collector    *marketpkg.Collector
	Poster       publish.Poster
	// Journal is nil unless JournalDir is configured.
	Journal *journal.Writer
}

// NewServiceContext builds the collector, poster and journal described by c.
// Console output goes to os.Stdout.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	return newServiceContext(c, os.Stdout)
}

func newServiceContext(c config.Config, out io.Writer) (*ServiceContext, error) {
	if !c.Market.Loaded() {
		return nil, errors.New("svc: market config not loaded")
	}
	collector, err := c.Market.Value.BuildCollector()
	if err != nil {
		return nil, fmt.Errorf("svc: build collector: %w", err)
	}

	svc := &ServiceContext{
		Config:       c,
		MarketConfig: c.Market.Value,
		Collector:    collector,
		Poster:       newPoster(c, out),
	}
	if dir := strings.TrimSpace(c.JournalDir); dir != "" {
		svc.Journal = journal.NewWriter(dir)
	}
	return svc, nil
}

func newPoster(c config.Config, out io.Writer) publish.Poster {
	if c.Publish.Mode != config.PublishWebhook {
		return publish.NewWriter(out)
	}
	// Test environment never reaches a live webhook.
	if c.IsTestEnv() {
		logx.Infof("svc: env=%s, webhook %s replaced by console output", c.Env, c.Publish.WebhookURL)
		return publish.NewWriter(out)
	}
	return publish.NewWebhook(c.Publish.WebhookURL,
		publish.WithToken(c.Publish.Token),
		publish.WithTimeout(c.Publish.Timeout),
	)
}
