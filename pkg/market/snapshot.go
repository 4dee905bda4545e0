package market

import "github.com/shopspring/decimal"

// Trend is the overall market direction derived from all readings.
type Trend int

const (
	TrendDown Trend = iota
	TrendUp
)

func (t Trend) String() string {
	if t == TrendUp {
		return "up"
	}
	return "down"
}

// Entry pairs a ticker with its reconciled reading.
type Entry struct {
	Ticker  Ticker
	Reading Reading
}

// Snapshot is the reconciled set of readings for one report cycle. It keeps
// insertion order, which the formatter relies on to break volume ties.
type Snapshot struct {
	entries []Entry
	index   map[Ticker]int
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{index: make(map[Ticker]int)}
}

// Add stores reading under ticker. Re-adding a ticker replaces the reading
// in place without changing its position.
func (s *Snapshot) Add(ticker Ticker, reading Reading) {
	if s.index == nil {
		s.index = make(map[Ticker]int)
	}
	if i, ok := s.index[ticker]; ok {
		s.entries[i].Reading = reading
		return
	}
	s.index[ticker] = len(s.entries)
	s.entries = append(s.entries, Entry{Ticker: ticker, Reading: reading})
}

// Get returns the reading for ticker.
func (s *Snapshot) Get(ticker Ticker) (Reading, bool) {
	if s == nil {
		return Reading{}, false
	}
	i, ok := s.index[ticker]
	if !ok {
		return Reading{}, false
	}
	return s.entries[i].Reading, true
}

// Len reports the number of assets in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of the entries in insertion order.
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tickers returns the tickers in insertion order.
func (s *Snapshot) Tickers() []Ticker {
	if s == nil {
		return nil
	}
	out := make([]Ticker, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Ticker)
	}
	return out
}

// Trend is up when the sum of all 24h changes is strictly positive.
func (s *Snapshot) Trend() Trend {
	sum := decimal.Zero
	for _, e := range s.Entries() {
		sum = sum.Add(e.Reading.Change24h())
	}
	if sum.IsPositive() {
		return TrendUp
	}
	return TrendDown
}
