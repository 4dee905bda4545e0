package market

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	price decimal.Decimal
	err   error
	calls int
}

func (s *countingSource) BTCPrice(context.Context) (decimal.Decimal, error) {
	s.calls++
	return s.price, s.err
}

func TestConverterNormalize(t *testing.T) {
	src := &countingSource{price: d("50000")}
	conv := NewConverter(src)
	ctx := context.Background()

	price, volume, err := conv.Normalize(ctx, d("0.31"), d("117500"), QuoteUSD)
	require.NoError(t, err)
	require.Equal(t, "0.31", price.String())
	require.Equal(t, "2.35", volume.String())

	price, volume, err = conv.Normalize(ctx, d("0.00001"), d("2"), QuoteBTC)
	require.NoError(t, err)
	require.Equal(t, "0.5", price.String())
	require.Equal(t, "2", volume.String())

	require.Equal(t, 1, src.calls, "reference price is fetched once per converter")
}

func TestConverterMemoisesFailure(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	conv := NewConverter(src)
	ctx := context.Background()

	_, err := conv.Build(ctx, d("1"), d("1"), d("0"), QuoteUSD)
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)
	_, _, err = conv.Normalize(ctx, d("1"), d("1"), QuoteUSD)
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)
	require.Equal(t, 1, src.calls)
}

func TestConverterRejectsNonPositiveReference(t *testing.T) {
	_, err := NewConverter(&countingSource{price: d("0")}).BTCPrice(context.Background())
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)

	_, err = FixedConverter(d("-1")).BTCPrice(context.Background())
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)

	_, err = NewConverter(nil).BTCPrice(context.Background())
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)
}

func TestConverterBuildValidates(t *testing.T) {
	conv := FixedConverter(d("50000"))
	ctx := context.Background()

	_, err := conv.Build(ctx, d("0"), d("10"), d("1"), QuoteUSD)
	require.ErrorIs(t, err, ErrInvalidReading)
	_, err = conv.Build(ctx, d("1"), d("0"), d("1"), QuoteUSD)
	require.ErrorIs(t, err, ErrInvalidReading)

	reading, err := conv.Build(ctx, d("152.45"), d("62500"), d("-5.8"), QuoteUSD)
	require.NoError(t, err)
	require.Equal(t, "1.25", reading.VolumeBTC().String())
	require.Equal(t, "-5.8", reading.Change24h().String())
	require.Empty(t, reading.Protocol())
}

func TestConverterKeepsNoFailureFromDoneContext(t *testing.T) {
	src := &ctxSource{price: d("50000")}
	conv := NewConverter(src)

	done, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conv.BTCPrice(done)
	require.ErrorIs(t, err, ErrReferencePriceUnavailable)

	price, err := conv.BTCPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, "50000", price.String())

	_, err = conv.BTCPrice(done)
	require.NoError(t, err, "a resolved price is reused regardless of context")
	require.Equal(t, 2, src.calls)
}
