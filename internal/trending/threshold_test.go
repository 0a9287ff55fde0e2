package trending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var defaultLevels = []int{10, 20, 30, 40, 50, 60, 70}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func keys(ks ...string) []string { return ks }

func runScan(t *testing.T, baseline string, prices ...string) []string {
	t.Helper()
	fired := map[ThresholdKey]struct{}{}
	var order []string
	for _, p := range prices {
		change := PercentChange(price(baseline), price(p))
		for _, k := range Scan(change, defaultLevels, fired) {
			fired[k] = struct{}{}
			order = append(order, k.String())
		}
	}
	return order
}

func TestThresholdKey_String(t *testing.T) {
	assert.Equal(t, "high_10", ThresholdKey{Direction: High, Level: 10}.String())
	assert.Equal(t, "dump_70", ThresholdKey{Direction: Dump, Level: 70}.String())
}

func TestPercentChange(t *testing.T) {
	assert.True(t, PercentChange(price("1.00"), price("1.12")).Equal(decimal.NewFromInt(12)))
	assert.True(t, PercentChange(price("2"), price("1")).Equal(decimal.NewFromInt(-50)))
	assert.True(t, PercentChange(price("0.00000010"), price("0.00000011")).Equal(decimal.NewFromInt(10)))
}

func TestPercentChange_UnknownOrZeroBaseline(t *testing.T) {
	assert.True(t, PercentChange(decimal.NullDecimal{}, price("5")).IsZero())
	assert.True(t, PercentChange(price("0"), price("5")).IsZero())
	assert.True(t, PercentChange(price("1"), decimal.NullDecimal{}).IsZero())
	assert.True(t, PercentChange(price("1"), price("0")).IsZero())
}

func TestScan_RisingSequence(t *testing.T) {
	// +10%, +25%, +5%, +40%
	fired := runScan(t, "1", "1.10", "1.25", "1.05", "1.40")
	assert.Equal(t, keys("high_10", "high_20", "high_30", "high_40"), fired)
}

func TestScan_PumpThenDump(t *testing.T) {
	fired := runScan(t, "1.00", "1.00", "1.05", "1.12", "0.60")
	assert.Equal(t, keys("high_10", "dump_10", "dump_20", "dump_30", "dump_40"), fired)
}

func TestScan_OscillationFiresOnce(t *testing.T) {
	fired := runScan(t, "1", "1.15", "0.95", "1.15", "0.85", "1.15", "0.85")
	assert.Equal(t, keys("high_10", "dump_10"), fired)
}

func TestScan_ExactBoundaryFires(t *testing.T) {
	fired := runScan(t, "1", "0.90", "1.70")
	assert.Equal(t, keys("dump_10", "high_10", "high_20", "high_30", "high_40", "high_50", "high_60", "high_70"), fired)
}

func TestScan_ZeroBaselineNeverFires(t *testing.T) {
	assert.Empty(t, runScan(t, "0", "1", "100", "0.000001"))
}

func TestScan_HighsBeforeDumpsAndUnsortedLevels(t *testing.T) {
	got := Scan(decimal.NewFromInt(-35), []int{30, 10, 20, 0, -5}, map[ThresholdKey]struct{}{})
	assert.Equal(t, []ThresholdKey{{Dump, 10}, {Dump, 20}, {Dump, 30}}, got)
}

func TestScan_DuplicateLevels(t *testing.T) {
	levels := []int{10, 10, 20}
	got := Scan(decimal.NewFromInt(15), levels, map[ThresholdKey]struct{}{})
	assert.Equal(t, []ThresholdKey{{High, 10}}, got)

	got = Scan(decimal.NewFromInt(-25), levels, map[ThresholdKey]struct{}{{High, 10}: {}})
	assert.Equal(t, []ThresholdKey{{Dump, 10}, {Dump, 20}}, got)
	assert.Equal(t, []int{10, 10, 20}, levels)
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[ThresholdKey]struct{}{
		{Dump, 20}: {}, {High, 30}: {}, {Dump, 10}: {}, {High, 10}: {},
	})
	assert.Equal(t, []ThresholdKey{{High, 10}, {High, 30}, {Dump, 10}, {Dump, 20}}, got)
}

func TestDurationHours(t *testing.T) {
	assert.Equal(t, 3, DurationHours("3h"))
	assert.Equal(t, 12, DurationHours("12H"))
	assert.Equal(t, 24, DurationHours(" 24h "))
	assert.Equal(t, 3, DurationHours("48h"))
	assert.Equal(t, 3, DurationHours(""))
}
