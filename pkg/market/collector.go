package market

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// Collector walks each asset's fallback chain and assembles a snapshot.
type Collector struct {
	plans     []AssetPlan
	reference ReferenceSource
}

// NewCollector builds a collector for plans, converting with reference.
func NewCollector(reference ReferenceSource, plans ...AssetPlan) *Collector {
	cloned := make([]AssetPlan, len(plans))
	copy(cloned, plans)
	return &Collector{plans: cloned, reference: reference}
}

// Plans returns the configured asset plans in order.
func (c *Collector) Plans() []AssetPlan {
	out := make([]AssetPlan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Result is the outcome of one collection cycle.
type Result struct {
	Snapshot *Snapshot
	// Missing lists tickers for which every adapter failed.
	Missing []Ticker
}

// Collect runs one cycle. The first adapter that returns a reading wins;
// assets whose whole chain fails are left out of the snapshot.
func (c *Collector) Collect(ctx context.Context) Result {
	conv := NewConverter(c.reference)
	res := Result{Snapshot: NewSnapshot()}
	// The reference is resolved on the cycle context, never on an adapter's
	// per-call deadline.
	if len(c.plans) > 0 && ctx.Err() == nil {
		if _, err := conv.BTCPrice(ctx); err != nil {
			logx.WithContext(ctx).Errorf("market: reference price err=%v", err)
		}
	}
	for _, plan := range c.plans {
		if ctx.Err() != nil {
			res.Missing = append(res.Missing, plan.Ticker)
			continue
		}
		reading, ok := c.resolve(ctx, plan, conv)
		if !ok {
			logx.WithContext(ctx).Infof("market: no data for %s after %d providers", plan.Ticker, len(plan.Chain))
			res.Missing = append(res.Missing, plan.Ticker)
			continue
		}
		res.Snapshot.Add(plan.Ticker, reading)
	}
	return res
}

func (c *Collector) resolve(ctx context.Context, plan AssetPlan, conv *Converter) (Reading, bool) {
	logger := logx.WithContext(ctx)
	for _, adapter := range plan.Chain {
		if adapter == nil {
			continue
		}
		start := time.Now()
		reading, err := adapter.Fetch(ctx, plan.Ticker, conv)
		elapsed := time.Since(start)
		if err != nil {
			if errors.Is(err, ErrNotCovered) {
				logger.Debugf("market: %s skipped by %s: %v", plan.Ticker, adapter.Name(), err)
			} else {
				logger.Errorf("market: %s via %s failed after %dms: %v", plan.Ticker, adapter.Name(), elapsed.Milliseconds(), err)
			}
			continue
		}
		if !reading.Price().IsPositive() {
			logger.Errorf("market: %s via %s returned non-positive price %s", plan.Ticker, adapter.Name(), reading.Price())
			continue
		}
		if reading.Protocol() == "" {
			reading = reading.WithProtocol(plan.Protocol)
		}
		logger.Infof("market: %s via %s %s took %dms", plan.Ticker, adapter.Name(), reading, elapsed.Milliseconds())
		return reading, true
	}
	return Reading{}, false
}
