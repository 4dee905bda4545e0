// Package report renders a market snapshot as the digest message text.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"btcdigest/pkg/market"
)

// ErrEmptySnapshot is returned when there is nothing to report. Callers must
// not post anything for the cycle.
var ErrEmptySnapshot = errors.New("report: empty snapshot")

const (
	wordUp   = "上升"
	wordDown = "下降"
)

// priceTiers maps upper bounds to decimal places; prices at or above the
// last bound use fallbackPlaces.
var priceTiers = []struct {
	below  decimal.Decimal
	places int32
}{
	{decimal.RequireFromString("0.001"), 6},
	{decimal.RequireFromString("0.01"), 5},
	{decimal.RequireFromString("0.1"), 4},
	{decimal.NewFromInt(1), 3},
	{decimal.NewFromInt(100), 2},
}

const fallbackPlaces = 1

// Format renders snap: a trend headline, a blank line, then one line per asset
// ordered by BTC volume, largest first. Equal volumes keep snapshot order.
func Format(snap *market.Snapshot) (string, error) {
	if snap.Len() == 0 {
		return "", ErrEmptySnapshot
	}

	var b strings.Builder
	fmt.Fprintf(&b, "今日比特币生态市值整体%s，\n\n", trendWord(snap.Trend()))
	for _, e := range sortedByVolume(snap.Entries()) {
		b.WriteString(Line(e))
		b.WriteByte('\n')
	}
	return strings.TrimRightFunc(b.String(), isSpace), nil
}

// Line renders a single asset line.
func Line(e market.Entry) string {
	r := e.Reading
	direction := wordDown
	if r.Change24h().IsPositive() {
		direction = wordUp
	}
	return fmt.Sprintf("%s协议的$%s成交量%s比特币，单价%s美金，比昨日%s%s%%；",
		r.Protocol(),
		e.Ticker,
		r.VolumeBTC().StringFixed(2),
		FormatPrice(r.Price()),
		direction,
		r.Change24h().Abs().StringFixed(1),
	)
}

// FormatPrice prints price with precision tiered by magnitude. Rounding is
// half away from zero.
func FormatPrice(price decimal.Decimal) string {
	for _, tier := range priceTiers {
		if price.LessThan(tier.below) {
			return price.StringFixed(tier.places)
		}
	}
	return price.StringFixed(fallbackPlaces)
}

func sortedByVolume(entries []market.Entry) []market.Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Reading.VolumeBTC().GreaterThan(entries[j].Reading.VolumeBTC())
	})
	return entries
}

func trendWord(t market.Trend) string {
	if t == market.TrendUp {
		return wordUp
	}
	return wordDown
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
