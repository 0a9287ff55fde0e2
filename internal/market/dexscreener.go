package market

import (
	"context"
	"strings"
	"time"

	"omni-trending/internal/clients_api/dexscreener"
	logging "omni-trending/internal/infra/log"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const ProviderDexScreener = "dexscreener"

// PairSearcher is the part of the DexScreener client the market package uses.
type PairSearcher interface {
	Search(ctx context.Context, query string) ([]dexscreener.Pair, error)
	TokenPairs(ctx context.Context, tokenAddress string) ([]dexscreener.Pair, error)
}

// DexScreenerSource tries the token lookup first and then the free-text search.
type DexScreenerSource struct {
	client PairSearcher
	now    func() time.Time
}

func NewDexScreenerSource(client PairSearcher) *DexScreenerSource {
	return &DexScreenerSource{client: client, now: time.Now}
}

func (s *DexScreenerSource) Name() string { return ProviderDexScreener }

func (s *DexScreenerSource) Fetch(ctx context.Context, network, address string) (*CanonicalPair, error) {
	var found []string

	lookups := []struct {
		name string
		call func(context.Context, string) ([]dexscreener.Pair, error)
	}{
		{"tokens", s.client.TokenPairs},
		{"search", s.client.Search},
	}

	for _, lookup := range lookups {
		pairs, err := lookup.call(ctx, address)
		if err != nil {
			logging.LogDebug("DexScreener lookup failed",
				zap.String("lookup", lookup.name),
				zap.String("network", network),
				zap.String("address", address),
				zap.Error(err))
			continue
		}

		best, networks, ok := SelectPair(pairsForToken(pairs, address), network)
		if ok {
			return FromDexScreener(best, s.now()), nil
		}
		found = append(found, networks...)
	}

	return nil, &NotFoundError{Network: network, Address: address, FoundNetworks: uniqueSorted(found)}
}

// pairsForToken keeps pairs where the address is the base token.
// Free-text results that never mention the address are returned unchanged.
func pairsForToken(pairs []dexscreener.Pair, address string) []dexscreener.Pair {
	base := lo.Filter(pairs, func(p dexscreener.Pair, _ int) bool {
		return strings.EqualFold(p.BaseToken.Address, address)
	})
	if len(base) > 0 {
		return base
	}
	return pairs
}

// SelectPair picks the highest-liquidity pair on network.
// When nothing matches it returns the networks the pairs were found on instead.
func SelectPair(pairs []dexscreener.Pair, network string) (dexscreener.Pair, []string, bool) {
	matches := lo.Filter(pairs, func(p dexscreener.Pair, _ int) bool {
		return strings.EqualFold(p.ChainID, network)
	})
	if len(matches) == 0 {
		networks := lo.Uniq(lo.FilterMap(pairs, func(p dexscreener.Pair, _ int) (string, bool) {
			return strings.ToLower(p.ChainID), p.ChainID != ""
		}))
		return dexscreener.Pair{}, networks, false
	}

	best := lo.MaxBy(matches, func(a, b dexscreener.Pair) bool {
		return a.LiquidityUSD() > b.LiquidityUSD()
	})
	return best, nil, true
}

// FromDexScreener normalizes a DexScreener pair. Negative numbers are treated as absent.
func FromDexScreener(p dexscreener.Pair, now time.Time) *CanonicalPair {
	network := strings.ToLower(p.ChainID)
	cp := &CanonicalPair{
		Network:      network,
		Dex:          p.DexID,
		BaseSymbol:   p.BaseToken.Symbol,
		BaseName:     p.BaseToken.Name,
		BaseAddress:  p.BaseToken.Address,
		QuoteSymbol:  p.QuoteToken.Symbol,
		PairAddress:  p.PairAddress,
		Price:        parsePrice(p.PriceUsd),
		Change1h:     copyFloat(p.PriceChange.H1),
		Change6h:     copyFloat(p.PriceChange.H6),
		Change24h:    copyFloat(p.PriceChange.H24),
		Volume24hUSD: nonNegative(p.Volume.H24),
		FDV:          nonNegative(p.Fdv),
		MarketCap:    nonNegative(p.MarketCap),
		URL:          p.URL,
		ExplorerURL:  ExplorerURL(network, p.BaseToken.Address),
		Provider:     ProviderDexScreener,
	}
	if p.Liquidity != nil {
		cp.LiquidityUSD = nonNegative(p.Liquidity.Usd)
	}
	if p.PairCreatedAt > 0 {
		age := int64(now.Sub(time.UnixMilli(p.PairCreatedAt)).Seconds())
		if age < 0 {
			age = 0
		}
		cp.AgeSeconds = &age
	}
	if p.Info != nil {
		cp.LogoURL = p.Info.ImageURL
		cp.LinkCount = len(p.Info.Websites) + len(p.Info.Socials)
	}
	return cp
}
