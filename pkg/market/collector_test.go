package market

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// stubAdapter returns canned readings or errors per ticker.
type stubAdapter struct {
	name     string
	readings map[Ticker]Reading
	errs     map[Ticker]error
	calls    []Ticker
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
	s.calls = append(s.calls, ticker)
	if err, ok := s.errs[ticker]; ok {
		return Reading{}, err
	}
	if r, ok := s.readings[ticker]; ok {
		return r, nil
	}
	return Reading{}, fmt.Errorf("%w: %s", ErrNotCovered, ticker)
}

func TestCollectorFallbackMatchesDirectSuccess(t *testing.T) {
	want := MustReading(0.48, 0.22, -15.3, "")
	failing := &stubAdapter{name: "kucoin", errs: map[Ticker]error{"STAMP": fmt.Errorf("%w: timeout", ErrProviderUnavailable)}}
	fallback := &stubAdapter{name: "gateio", readings: map[Ticker]Reading{"STAMP": want}}

	viaFallback := NewCollector(&countingSource{price: d("50000")}, AssetPlan{Ticker: "STAMP", Protocol: "SRC20", Chain: []Adapter{failing, fallback}})
	direct := NewCollector(&countingSource{price: d("50000")}, AssetPlan{Ticker: "STAMP", Protocol: "SRC20", Chain: []Adapter{fallback}})

	got := viaFallback.Collect(context.Background())
	ref := direct.Collect(context.Background())
	require.Empty(t, got.Missing)

	a, ok := got.Snapshot.Get("STAMP")
	require.True(t, ok)
	b, _ := ref.Snapshot.Get("STAMP")
	require.True(t, a.Equal(b))
	require.Equal(t, "SRC20", a.Protocol())
}

func TestCollectorOmitsFailedAssets(t *testing.T) {
	okx := &stubAdapter{name: "okx", readings: map[Ticker]Reading{
		"ORDI": MustReading(152.45, 1.25, 5.8, ""),
	}}
	broken := &stubAdapter{name: "binance", errs: map[Ticker]error{
		"CKB": fmt.Errorf("%w: bad payload", ErrInvalidReading),
	}}
	c := NewCollector(&countingSource{price: d("50000")},
		AssetPlan{Ticker: "ORDI", Protocol: "BRC20", Chain: []Adapter{okx, broken}},
		AssetPlan{Ticker: "CKB", Protocol: "CKB", Chain: []Adapter{okx, broken}},
	)

	res := c.Collect(context.Background())
	require.Equal(t, []Ticker{"ORDI"}, res.Snapshot.Tickers())
	require.Equal(t, []Ticker{"CKB"}, res.Missing)
	require.Equal(t, []Ticker{"ORDI", "CKB"}, okx.calls)
	require.Equal(t, []Ticker{"CKB"}, broken.calls, "chain stops at first success")
}

func TestCollectorKeepsAdapterProtocol(t *testing.T) {
	me := &stubAdapter{name: "magiceden", readings: map[Ticker]Reading{
		"DOGS": MustReading(0.82, 0.55, 35.5, "Runes-ME"),
	}}
	c := NewCollector(nil, AssetPlan{Ticker: "DOGS", Protocol: "Runes", Chain: []Adapter{nil, me}})

	res := c.Collect(context.Background())
	r, ok := res.Snapshot.Get("DOGS")
	require.True(t, ok)
	require.Equal(t, "Runes-ME", r.Protocol())
}

func TestCollectorSharesReferencePerCycle(t *testing.T) {
	src := &countingSource{price: d("50000")}
	convAdapter := adapterFunc(func(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
		return conv.Build(ctx, decimal.NewFromInt(1), decimal.NewFromInt(50000), decimal.Zero, QuoteUSD)
	})
	c := NewCollector(src,
		AssetPlan{Ticker: "A", Protocol: "x", Chain: []Adapter{convAdapter}},
		AssetPlan{Ticker: "B", Protocol: "x", Chain: []Adapter{convAdapter}},
	)

	res := c.Collect(context.Background())
	require.Equal(t, 2, res.Snapshot.Len())
	require.Equal(t, 1, src.calls)

	c.Collect(context.Background())
	require.Equal(t, 2, src.calls, "each cycle resolves the reference again")
}

func TestCollectorReferenceFailureOmitsEverything(t *testing.T) {
	src := &countingSource{err: errors.New("okx down")}
	convAdapter := adapterFunc(func(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
		return conv.Build(ctx, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, QuoteUSD)
	})
	c := NewCollector(src,
		AssetPlan{Ticker: "A", Protocol: "x", Chain: []Adapter{convAdapter, convAdapter}},
		AssetPlan{Ticker: "B", Protocol: "x", Chain: []Adapter{convAdapter}},
	)

	res := c.Collect(context.Background())
	require.Zero(t, res.Snapshot.Len())
	require.Equal(t, []Ticker{"A", "B"}, res.Missing)
	require.Equal(t, 1, src.calls)
}

func TestCollectorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	okx := &stubAdapter{name: "okx", readings: map[Ticker]Reading{"ORDI": MustReading(1, 1, 1, "")}}
	c := NewCollector(nil, AssetPlan{Ticker: "ORDI", Protocol: "BRC20", Chain: []Adapter{okx}})

	res := c.Collect(ctx)
	require.Equal(t, []Ticker{"ORDI"}, res.Missing)
	require.Empty(t, okx.calls)
}

type adapterFunc func(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error)

func (f adapterFunc) Name() string { return "func" }

func (f adapterFunc) Fetch(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
	return f(ctx, ticker, conv)
}

// ctxSource fails once its caller's context is done, like a real HTTP call.
type ctxSource struct {
	price decimal.Decimal
	calls int
}

func (s *ctxSource) BTCPrice(ctx context.Context) (decimal.Decimal, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.price, nil
}

func TestCollectorAdapterTimeoutStaysLocal(t *testing.T) {
	src := &ctxSource{price: d("50000")}
	slow := adapterFunc(func(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
		callCtx, cancel := context.WithTimeout(ctx, time.Millisecond)
		defer cancel()
		<-callCtx.Done()
		return conv.Build(callCtx, decimal.NewFromInt(1), decimal.NewFromInt(50000), decimal.Zero, QuoteUSD)
	})
	healthy := adapterFunc(func(ctx context.Context, ticker Ticker, conv *Converter) (Reading, error) {
		return conv.Build(ctx, decimal.NewFromInt(2), decimal.NewFromInt(100000), decimal.NewFromInt(3), QuoteUSD)
	})
	c := NewCollector(src,
		AssetPlan{Ticker: "DOGS", Protocol: "Runes", Chain: []Adapter{slow}},
		AssetPlan{Ticker: "ORDI", Protocol: "BRC20", Chain: []Adapter{healthy}},
		AssetPlan{Ticker: "CKB", Protocol: "CKB", Chain: []Adapter{healthy}},
	)

	res := c.Collect(context.Background())
	require.Equal(t, []Ticker{"DOGS", "ORDI", "CKB"}, res.Snapshot.Tickers())
	require.Empty(t, res.Missing)
	require.Equal(t, 1, src.calls)
}
