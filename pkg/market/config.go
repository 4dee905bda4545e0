package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the providers, the BTC/USD reference and the tracked assets.
type Config struct {
	Reference string                     `yaml:"reference"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
	Assets    []AssetConfig              `yaml:"assets"`
}

// ProviderConfig represents configuration for a single market provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL         string `yaml:"base_url"`
	FallbackBaseURL string `yaml:"fallback_base_url"`
	APIKey          string `yaml:"api_key"`
	UserAgent       string `yaml:"user_agent"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`

	// Tickers optionally restricts a provider to the listed assets.
	Tickers []string `yaml:"tickers"`
}

// AssetConfig is one tracked asset with its ordered provider chain.
type AssetConfig struct {
	Ticker   string   `yaml:"ticker"`
	Protocol string   `yaml:"protocol"`
	Chain    []string `yaml:"chain"`
}

// ProviderBuilder constructs an Adapter from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Adapter, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a market provider constructor under typeName.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk. Environment placeholders are
// expanded from the process environment as it is; callers load .env first.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.Reference = strings.TrimSpace(os.ExpandEnv(c.Reference))
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	for i := range c.Assets {
		asset := &c.Assets[i]
		asset.Ticker = string(NormalizeTicker(asset.Ticker))
		asset.Protocol = strings.TrimSpace(asset.Protocol)
		for j, name := range asset.Chain {
			asset.Chain[j] = strings.TrimSpace(name)
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.FallbackBaseURL = strings.TrimSpace(os.ExpandEnv(p.FallbackBaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.UserAgent = strings.TrimSpace(os.ExpandEnv(p.UserAgent))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.HTTPTimeoutRaw))
	for i, t := range p.Tickers {
		p.Tickers[i] = string(NormalizeTicker(t))
	}
}

// ListedTickers returns the configured allow-list, or nil when unrestricted.
func (p *ProviderConfig) ListedTickers() []Ticker {
	if p == nil || len(p.Tickers) == 0 {
		return nil
	}
	out := make([]Ticker, 0, len(p.Tickers))
	for _, t := range p.Tickers {
		out = append(out, Ticker(t))
	}
	return out
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw != "" {
		d, err := time.ParseDuration(p.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: timeout must be positive, got %s", name, d)
		}
		p.Timeout = d
	}
	if p.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(p.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid http_timeout %q: %w", name, p.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: http_timeout must be positive, got %s", name, d)
		}
		p.HTTPTimeout = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.Reference == "" {
		return fmt.Errorf("market config: reference provider is required")
	}
	if _, ok := c.Providers[c.Reference]; !ok {
		return fmt.Errorf("market config: reference provider %q not defined", c.Reference)
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("market config: assets cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for _, asset := range c.Assets {
		if asset.Ticker == "" {
			return fmt.Errorf("market config: asset ticker cannot be empty")
		}
		if _, dup := seen[asset.Ticker]; dup {
			return fmt.Errorf("market config: asset %s listed twice", asset.Ticker)
		}
		seen[asset.Ticker] = struct{}{}
		if asset.Protocol == "" {
			return fmt.Errorf("market config: asset %s must specify protocol", asset.Ticker)
		}
		if len(asset.Chain) == 0 {
			return fmt.Errorf("market config: asset %s has an empty chain", asset.Ticker)
		}
		for _, name := range asset.Chain {
			if _, ok := c.Providers[name]; !ok {
				return fmt.Errorf("market config: asset %s references undefined provider %q", asset.Ticker, name)
			}
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	return nil
}

// BuildProviders instantiates market adapters according to configuration.
func (c *Config) BuildProviders() (map[string]Adapter, error) {
	result := make(map[string]Adapter, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}

// BuildCollector instantiates providers and wires them into per-asset chains
// in configuration order.
func (c *Config) BuildCollector() (*Collector, error) {
	providers, err := c.BuildProviders()
	if err != nil {
		return nil, err
	}
	reference, ok := providers[c.Reference].(ReferenceSource)
	if !ok {
		return nil, fmt.Errorf("market provider %s: type %q cannot serve the BTC/USD reference", c.Reference, c.Providers[c.Reference].Type)
	}
	plans := make([]AssetPlan, 0, len(c.Assets))
	for _, asset := range c.Assets {
		chain := make([]Adapter, 0, len(asset.Chain))
		for _, name := range asset.Chain {
			chain = append(chain, providers[name])
		}
		plans = append(plans, AssetPlan{
			Ticker:   Ticker(asset.Ticker),
			Protocol: asset.Protocol,
			Chain:    chain,
		})
	}
	return NewCollector(reference, plans...), nil
}
