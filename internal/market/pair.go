package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Network ids as used by DexScreener's chainId field.
const (
	Solana   = "solana"
	Ethereum = "ethereum"
	BSC      = "bsc"
	Base     = "base"
	Arbitrum = "arbitrum"
)

var networkNames = map[string]string{
	Solana:   "Solana",
	Ethereum: "Ethereum",
	BSC:      "BNB Chain",
	Base:     "Base",
	Arbitrum: "Arbitrum",
}

var explorerTokenURLs = map[string]string{
	Solana:   "https://solscan.io/token/",
	Ethereum: "https://etherscan.io/token/",
	BSC:      "https://bscscan.com/token/",
	Base:     "https://basescan.org/token/",
	Arbitrum: "https://arbiscan.io/token/",
}

var networkAliases = map[string]string{
	"sol":          Solana,
	"eth":          Ethereum,
	"bnb":          BSC,
	"bnb chain":    BSC,
	"bnbchain":     BSC,
	"bsc":          BSC,
	"binance":      BSC,
	"arb":          Arbitrum,
	"all networks": AutoDetect,
	"auto":         AutoDetect,
}

// NormalizeNetwork maps user-facing names and aliases onto chain ids.
func NormalizeNetwork(network string) string {
	n := strings.ToLower(strings.TrimSpace(network))
	if alias, ok := networkAliases[n]; ok {
		return alias
	}
	return n
}

func NetworkName(network string) string {
	if name, ok := networkNames[network]; ok {
		return name
	}
	if network == "" {
		return "Unknown"
	}
	return strings.ToUpper(network[:1]) + network[1:]
}

// ExplorerURL returns the block-explorer token page, or "" for chains without a known explorer.
func ExplorerURL(network, address string) string {
	prefix, ok := explorerTokenURLs[network]
	if !ok || address == "" {
		return ""
	}
	return prefix + address
}

// CanonicalPair is one provider's normalized view of a token on one network.
// Optional numbers are nil when the provider did not report them.
type CanonicalPair struct {
	Network     string
	Dex         string
	BaseSymbol  string
	BaseName    string
	BaseAddress string
	QuoteSymbol string
	PairAddress string

	Price        decimal.NullDecimal
	Change1h     *float64
	Change6h     *float64
	Change24h    *float64
	LiquidityUSD *float64
	Volume24hUSD *float64
	FDV          *float64
	MarketCap    *float64

	LogoURL      string
	AgeSeconds   *int64
	OwnerPercent *float64

	URL         string
	ExplorerURL string
	LinkCount   int
	Provider    string
}

// HasPrice reports whether the pair carries a positive price.
func (p *CanonicalPair) HasPrice() bool {
	return p != nil && p.Price.Valid && p.Price.Decimal.IsPositive()
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	out := *v
	return &out
}

func floatPtr(v float64) *float64 {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func parsePrice(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
