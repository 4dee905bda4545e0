package report

import "btcdigest/pkg/market"

// FixtureSnapshot returns a fixed reference snapshot used by dry runs and
// regression tests.
func FixtureSnapshot() *market.Snapshot {
	snap := market.NewSnapshot()
	snap.Add("DOGS", market.MustReading(0.82, 0.55, 35.5, "Runes"))
	snap.Add("STAMP", market.MustReading(0.48, 0.22, -15.3, "SRC20"))
	snap.Add("ORDI", market.MustReading(152.45, 1.25, 5.8, "BRC20"))
	snap.Add("FB", market.MustReading(0.31, 2.35, 8.2, "FB"))
	snap.Add("CKB", market.MustReading(0.022, 1.85, -2.1, "CKB"))
	return snap
}
