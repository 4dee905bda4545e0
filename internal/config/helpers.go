package config

import (
	"btcdigest/pkg/confkit"
	"btcdigest/pkg/market"
)

// MustLoadMarket loads .env and then etc/market.yaml from the project root,
// panicking on error. Tools that only need the provider chains use it
// instead of Load.
func MustLoadMarket() *market.Config {
	confkit.LoadDotenvOnce()
	cfg, err := market.LoadConfig(confkit.MustProjectPath("etc/market.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}
