package transport

import (
	"context"
	"time"

	"btcdigest/pkg/market"
)

// DefaultCallTimeout bounds one adapter Fetch when the config sets no timeout.
const DefaultCallTimeout = 10 * time.Second

// FromConfig builds a client from provider configuration, falling back to
// defaultBaseURL when none is configured. Extra options apply last.
func FromConfig(name string, cfg *market.ProviderConfig, defaultBaseURL string, extra ...Option) *Client {
	base := defaultBaseURL
	opts := []Option{}
	if cfg != nil {
		if cfg.BaseURL != "" {
			base = cfg.BaseURL
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithTimeout(cfg.HTTPTimeout))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, WithHeader("User-Agent", cfg.UserAgent))
		}
	}
	opts = append(opts, extra...)
	return New(name, base, opts...)
}

// CallTimeout returns the configured per-call timeout or the default.
func CallTimeout(cfg *market.ProviderConfig) time.Duration {
	if cfg != nil && cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return DefaultCallTimeout
}

// WithDeadline derives a context bounded by timeout.
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
