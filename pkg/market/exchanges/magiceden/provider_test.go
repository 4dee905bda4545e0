package magiceden

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"btcdigest/pkg/market"
	"btcdigest/pkg/market/transport"
)

func serve(t *testing.T, body string) (*httptest.Server, *Provider) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != statsPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	return server, NewProvider(transport.New("magiceden", server.URL, transport.WithMaxRetries(0)))
}

func TestProviderFetchList(t *testing.T) {
	server, provider := serve(t, `[
		{"symbol":"PUPS","floorPrice":"0.0001","volume24h":"3","change24h":"1"},
		{"symbol":"dogs","floorPrice":"0.0000164","volume24h":"0.55","change24h":"35.5"}
	]`)
	defer server.Close()

	reading, err := provider.Fetch(context.Background(), "DOGS", market.FixedConverter(decimal.NewFromInt(50000)))
	require.NoError(t, err)
	require.Equal(t, "0.82", reading.Price().String())
	require.Equal(t, "0.55", reading.VolumeBTC().String())
	require.Equal(t, "35.5", reading.Change24h().String())
}

func TestProviderFetchWrappedListAndAlias(t *testing.T) {
	server, provider := serve(t, `{"runes":[{"spacedRune":"DOG•GO•TO•THE•MOON","floorPrice":0.00001,"volume24h":2}]}`)
	defer server.Close()

	reading, err := provider.Fetch(context.Background(), "DOGS", market.FixedConverter(decimal.NewFromInt(50000)))
	require.NoError(t, err)
	require.Equal(t, "0.5", reading.Price().String())
	require.Equal(t, "2", reading.VolumeBTC().String())
	require.True(t, reading.Change24h().IsZero())
}

func TestProviderFetchRuneNotListed(t *testing.T) {
	server, provider := serve(t, `[{"symbol":"PUPS","floorPrice":"0.0001","volume24h":"3"}]`)
	defer server.Close()

	_, err := provider.Fetch(context.Background(), "DOGS", market.FixedConverter(decimal.NewFromInt(50000)))
	require.ErrorIs(t, err, market.ErrNotCovered)
}

func TestProviderFetchUnmappedTickerSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer server.Close()

	provider := NewProvider(transport.New("magiceden", server.URL))
	_, err := provider.Fetch(context.Background(), "ORDI", market.FixedConverter(decimal.NewFromInt(50000)))
	require.ErrorIs(t, err, market.ErrNotCovered)
}

func TestProviderFetchUnexpectedPayload(t *testing.T) {
	server, provider := serve(t, `{"error":"rate limited"}`)
	defer server.Close()

	_, err := provider.Fetch(context.Background(), "DOGS", market.FixedConverter(decimal.NewFromInt(50000)))
	require.ErrorIs(t, err, market.ErrProviderUnavailable)
}
