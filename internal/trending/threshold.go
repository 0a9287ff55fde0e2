package trending

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	High Direction = "high"
	Dump Direction = "dump"
)

type ThresholdKey struct {
	Direction Direction
	Level     int
}

func (k ThresholdKey) String() string {
	return fmt.Sprintf("%s_%d", k.Direction, k.Level)
}

var hundred = decimal.NewFromInt(100)

// PercentChange is (current-baseline)/baseline*100, or zero unless both prices are known and positive.
func PercentChange(baseline, current decimal.NullDecimal) decimal.Decimal {
	if !baseline.Valid || !current.Valid {
		return decimal.Zero
	}
	if !baseline.Decimal.IsPositive() || !current.Decimal.IsPositive() {
		return decimal.Zero
	}
	return current.Decimal.Sub(baseline.Decimal).Div(baseline.Decimal).Mul(hundred)
}

// Scan returns the keys crossed by change that are not in fired yet:
// highs in ascending level order, then dumps in ascending level order.
// Repeated levels count once. It does not modify fired.
func Scan(change decimal.Decimal, levels []int, fired map[ThresholdKey]struct{}) []ThresholdKey {
	sorted := lo.Uniq(levels)
	sort.Ints(sorted)

	var highs, dumps []ThresholdKey
	for _, level := range sorted {
		if level <= 0 {
			continue
		}
		lvl := decimal.NewFromInt(int64(level))

		if change.GreaterThanOrEqual(lvl) {
			key := ThresholdKey{Direction: High, Level: level}
			if _, done := fired[key]; !done {
				highs = append(highs, key)
			}
		}
		if change.LessThanOrEqual(lvl.Neg()) {
			key := ThresholdKey{Direction: Dump, Level: level}
			if _, done := fired[key]; !done {
				dumps = append(dumps, key)
			}
		}
	}
	return append(highs, dumps...)
}

func sortedKeys(fired map[ThresholdKey]struct{}) []ThresholdKey {
	out := make([]ThresholdKey, 0, len(fired))
	for k := range fired {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction == High
		}
		return out[i].Level < out[j].Level
	})
	return out
}
