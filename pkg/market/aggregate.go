package market

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var maxAbsChange = decimal.NewFromInt(100)

// Sample is one partial reading from one endpoint, already in USD price and
// BTC volume. Volume and change may be missing.
type Sample struct {
	Price  decimal.Decimal
	Volume decimal.NullDecimal
	Change decimal.NullDecimal
}

func (s Sample) complete() bool {
	return s.Price.IsPositive() && s.Volume.Valid && s.Volume.Decimal.IsPositive()
}

// Aggregate reconciles samples from redundant endpoints of one provider:
// median price (lower middle on even counts), mean positive volume and mean
// change over values within ±100%. At least one sample must carry both a
// positive price and a positive volume.
func Aggregate(samples []Sample) (Reading, error) {
	var (
		prices  []decimal.Decimal
		volumes []decimal.Decimal
		changes []decimal.Decimal
		usable  bool
	)
	for _, s := range samples {
		if s.Price.IsPositive() {
			prices = append(prices, s.Price)
		}
		if s.Volume.Valid && s.Volume.Decimal.IsPositive() {
			volumes = append(volumes, s.Volume.Decimal)
		}
		if s.Change.Valid && s.Change.Decimal.Abs().LessThanOrEqual(maxAbsChange) {
			changes = append(changes, s.Change.Decimal)
		}
		if s.complete() {
			usable = true
		}
	}

	if !usable {
		return Reading{}, fmt.Errorf("%w: no sample with price and volume among %d", ErrInvalidReading, len(samples))
	}
	change := decimal.Zero
	if len(changes) > 0 {
		change = mean(changes)
	}
	return NewReading(median(prices), mean(volumes), change, "")
}

// median returns the middle value; for an even count the lower middle.
func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	return sorted[(len(sorted)-1)/2]
}

func mean(values []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}
