package market

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// FieldSet lists the synonym keys a provider may use for each value, in the
// order they are tried.
type FieldSet struct {
	Price  []string
	Volume []string
	Change []string
}

// Values holds what could be resolved from one payload object. Missing or
// unparseable values stay invalid.
type Values struct {
	Price  decimal.NullDecimal
	Volume decimal.NullDecimal
	Change decimal.NullDecimal
}

// Extract resolves every field of fs against obj.
func (fs FieldSet) Extract(obj gjson.Result) Values {
	return Values{
		Price:  FirstDecimal(obj, fs.Price),
		Volume: FirstDecimal(obj, fs.Volume),
		Change: FirstDecimal(obj, fs.Change),
	}
}

// FirstDecimal returns the first key in names that is present on obj and
// parses as a decimal. Keys are gjson paths, so nested values such as
// "market_data.current_price.usd" work too.
func FirstDecimal(obj gjson.Result, names []string) decimal.NullDecimal {
	for _, name := range names {
		if d, ok := ParseDecimal(obj.Get(name)); ok {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

// ParseDecimal accepts JSON numbers and numeric strings.
func ParseDecimal(v gjson.Result) (decimal.Decimal, bool) {
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimSpace(v.Str)
	default:
		return decimal.Zero, false
	}
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Sample converts resolved values into an aggregation sample.
func (v Values) Sample() Sample {
	s := Sample{Volume: v.Volume, Change: v.Change}
	if v.Price.Valid {
		s.Price = v.Price.Decimal
	}
	return s
}

// ChangeOrZero is the 24h change, defaulting to zero when it is missing.
func (v Values) ChangeOrZero() decimal.Decimal {
	if v.Change.Valid {
		return v.Change.Decimal
	}
	return decimal.Zero
}

// FindBy scans a JSON array for the first element whose key (any of keys)
// equals want, ignoring case.
func FindBy(list gjson.Result, want string, keys ...string) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	list.ForEach(func(_, item gjson.Result) bool {
		for _, k := range keys {
			if v := item.Get(k); v.Exists() && strings.EqualFold(strings.TrimSpace(v.String()), want) {
				found, ok = item, true
				return false
			}
		}
		return true
	})
	return found, ok
}
