package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

func TestProviderFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickerPath, r.URL.Path)
		switch r.URL.Query().Get("symbol") {
		case "ORDIUSDT":
			fmt.Fprint(w, `{"symbol":"ORDIUSDT","priceChangePercent":"5.800","lastPrice":"152.45000000","quoteVolume":"62500.00"}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		}
	}))
	defer server.Close()

	provider := NewProvider(transport.New("binance", server.URL, transport.WithMaxRetries(0)))
	conv := market.FixedConverter(decimal.NewFromInt(50000))

	reading, err := provider.Fetch(context.Background(), "ORDI", conv)
	require.NoError(t, err)
	require.Equal(t, "152.45", reading.Price().String())
	require.Equal(t, "1.25", reading.VolumeBTC().String())
	require.Equal(t, "5.8", reading.Change24h().String())

	_, err = provider.Fetch(context.Background(), "CKB", conv)
	require.ErrorIs(t, err, market.ErrProviderUnavailable)
	require.Equal(t, http.StatusBadRequest, transport.StatusCode(err))
}

func TestProviderUnmappedTickerSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer server.Close()

	provider := NewProvider(transport.New("binance", server.URL))
	for _, ticker := range []market.Ticker{"DOGS", "FB", "STAMP"} {
		_, err := provider.Fetch(context.Background(), ticker, market.FixedConverter(decimal.NewFromInt(50000)))
		require.ErrorIs(t, err, market.ErrNotCovered, ticker)
	}
}

func TestProviderListedRestriction(t *testing.T) {
	provider := NewProvider(transport.New("binance", "http://127.0.0.1:1"), WithListed("ORDI"))
	_, err := provider.Fetch(context.Background(), "CKB", market.FixedConverter(decimal.NewFromInt(50000)))
	require.ErrorIs(t, err, market.ErrNotCovered)
}
