// Package risk turns a market snapshot into a heuristic risk score and red flags.
package risk

import (
	"math"

	"omni-trending/internal/market"
)

type Flag string

const (
	FlagVeryNew                Flag = "very_new"
	FlagLowLiquidity           Flag = "low_liquidity"
	FlagHighOwnerConcentration Flag = "high_owner_concentration"
	FlagNoLogo                 Flag = "no_logo"
	FlagNoExplorer             Flag = "no_explorer"
)

const (
	lowLiquidityUSD   = 1_000.0
	thinLiquidityUSD  = 10_000.0
	volatileChange1h  = 10.0
	veryNewAgeSeconds = 3_600
	ownerConcentrated = 50.0
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Assessment struct {
	Score int
	Flags []Flag
}

func (a Assessment) Level() Level {
	switch {
	case a.Score >= 6:
		return LevelHigh
	case a.Score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (a Assessment) Has(flag Flag) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Score never fails: missing inputs count as zero or absent, and a nil pair is all-absent.
func Score(pair *market.CanonicalPair) Assessment {
	var p market.CanonicalPair
	if pair != nil {
		p = *pair
	}

	var a Assessment
	liquidity := valueOr(p.LiquidityUSD, 0)

	switch {
	case liquidity < lowLiquidityUSD:
		a.Score += 3
	case liquidity < thinLiquidityUSD:
		a.Score++
	}
	if math.Abs(valueOr(p.Change1h, 0)) >= volatileChange1h {
		a.Score += 2
	}
	veryNew := p.AgeSeconds != nil && *p.AgeSeconds < veryNewAgeSeconds
	if veryNew {
		a.Score += 2
	}
	concentrated := valueOr(p.OwnerPercent, 0) > ownerConcentrated
	if concentrated {
		a.Score += 3
	}

	if veryNew {
		a.Flags = append(a.Flags, FlagVeryNew)
	}
	if liquidity < lowLiquidityUSD {
		a.Flags = append(a.Flags, FlagLowLiquidity)
	}
	if concentrated {
		a.Flags = append(a.Flags, FlagHighOwnerConcentration)
	}
	if p.LogoURL == "" {
		a.Flags = append(a.Flags, FlagNoLogo)
	}
	if p.ExplorerURL == "" {
		a.Flags = append(a.Flags, FlagNoExplorer)
	}
	return a
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return fallback
	}
	return *v
}
