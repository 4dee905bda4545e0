package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"btcdigest/pkg/market"
)

// AssetRecord is one reconciled asset as it was reported.
type AssetRecord struct {
	Ticker    string `json:"ticker"`
	Protocol  string `json:"protocol"`
	PriceUSD  string `json:"price_usd"`
	VolumeBTC string `json:"volume_btc"`
	Change24h string `json:"change_24h"`
}

// CycleRecord captures an end-to-end digest cycle for audit and analysis.
type CycleRecord struct {
	Timestamp    time.Time     `json:"timestamp"`
	CycleNumber  int           `json:"cycle_number"`
	Trigger      string        `json:"trigger,omitempty"`
	Trend        string        `json:"trend,omitempty"`
	Assets       []AssetRecord `json:"assets,omitempty"`
	Missing      []string      `json:"missing,omitempty"`
	Message      string        `json:"message,omitempty"`
	Posted       bool          `json:"posted"`
	DryRun       bool          `json:"dry_run,omitempty"`
	DurationMs   int64         `json:"duration_ms"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// FromResult fills the asset, missing and trend fields from a collection result.
func (rec *CycleRecord) FromResult(res market.Result) {
	for _, e := range res.Snapshot.Entries() {
		rec.Assets = append(rec.Assets, AssetRecord{
			Ticker:    e.Ticker.String(),
			Protocol:  e.Reading.Protocol(),
			PriceUSD:  e.Reading.Price().String(),
			VolumeBTC: e.Reading.VolumeBTC().String(),
			Change24h: e.Reading.Change24h().String(),
		})
	}
	for _, t := range res.Missing {
		rec.Missing = append(rec.Missing, t.String())
	}
	if res.Snapshot.Len() > 0 {
		rec.Trend = res.Snapshot.Trend().String()
	}
}

// Writer persists cycle records to a directory as JSON files (journal style).
type Writer struct {
	mu    sync.Mutex
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Dir returns the directory records are written to.
func (w *Writer) Dir() string { return w.dir }

// WriteCycle writes a cycle record to a timestamped JSON file.
func (w *Writer) WriteCycle(rec *CycleRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.CycleNumber = w.seq
	name := fmt.Sprintf("cycle_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
