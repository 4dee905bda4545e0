package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"btcdigest/pkg/market"
)

const fixtureText = "今日比特币生态市值整体上升，\n\n" +
	"FB协议的$FB成交量2.35比特币，单价0.310美金，比昨日上升8.2%；\n" +
	"CKB协议的$CKB成交量1.85比特币，单价0.0220美金，比昨日下降2.1%；\n" +
	"BRC20协议的$ORDI成交量1.25比特币，单价152.5美金，比昨日上升5.8%；\n" +
	"Runes协议的$DOGS成交量0.55比特币，单价0.820美金，比昨日上升35.5%；\n" +
	"SRC20协议的$STAMP成交量0.22比特币，单价0.480美金，比昨日下降15.3%；"

func TestFormatFixture(t *testing.T) {
	text, err := Format(FixtureSnapshot())
	require.NoError(t, err)
	require.Equal(t, fixtureText, text)
}

func TestFormatEmptySnapshot(t *testing.T) {
	_, err := Format(market.NewSnapshot())
	require.ErrorIs(t, err, ErrEmptySnapshot)

	_, err = Format(nil)
	require.ErrorIs(t, err, ErrEmptySnapshot)
}

func TestFormatStableVolumeOrder(t *testing.T) {
	snap := market.NewSnapshot()
	snap.Add("A", market.MustReading(1, 5.0, 1, "P"))
	snap.Add("B", market.MustReading(1, 1.25, 1, "P"))
	snap.Add("C", market.MustReading(1, 5.0, 1, "P"))

	text, err := Format(snap)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 5)
	require.Contains(t, lines[2], "$A")
	require.Contains(t, lines[3], "$C")
	require.Contains(t, lines[4], "$B")

	require.Equal(t, []market.Ticker{"A", "B", "C"}, snap.Tickers(), "formatting must not reorder the snapshot")
}

func TestFormatDownTrendAndZeroChange(t *testing.T) {
	snap := market.NewSnapshot()
	snap.Add("ORDI", market.MustReading(40, 1, 0, "BRC20"))

	text, err := Format(snap)
	require.NoError(t, err)
	require.Equal(t, "今日比特币生态市值整体下降，\n\nBRC20协议的$ORDI成交量1.00比特币，单价40.00美金，比昨日下降0.0%；", text)
}

func TestFormatPriceTiers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.0005", "0.000500"},
		{"0.0000003", "0.000000"},
		{"0.001", "0.00100"},
		{"0.0099999", "0.01000"},
		{"0.022", "0.0220"},
		{"0.1", "0.100"},
		{"0.82", "0.820"},
		{"1", "1.00"},
		{"99.994", "99.99"},
		{"100", "100.0"},
		{"152.45", "152.5"},
		{"65000.25", "65000.3"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatPrice(decimal.RequireFromString(tc.in)), "price %s", tc.in)
	}
}
