package dexscreener

// Response shapes of the DexScreener public API.
// Numeric fields the API omits for young pairs are pointers so absence stays visible.

type SearchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

type Pair struct {
	ChainID       string       `json:"chainId"`
	DexID         string       `json:"dexId"`
	URL           string       `json:"url"`
	PairAddress   string       `json:"pairAddress"`
	BaseToken     Token        `json:"baseToken"`
	QuoteToken    Token        `json:"quoteToken"`
	PriceNative   string       `json:"priceNative"`
	PriceUsd      string       `json:"priceUsd"`
	Txns          Txns         `json:"txns"`
	Volume        Periods      `json:"volume"`
	PriceChange   Periods      `json:"priceChange"`
	Liquidity     *Liquidity   `json:"liquidity"`
	Fdv           *float64     `json:"fdv"`
	MarketCap     *float64     `json:"marketCap"`
	PairCreatedAt int64        `json:"pairCreatedAt"` // unix ms
	Info          *Info        `json:"info"`
	Labels        []string     `json:"labels"`
	Boosts        *BoostsCount `json:"boosts"`
}

type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Liquidity struct {
	Usd   *float64 `json:"usd"`
	Base  float64  `json:"base"`
	Quote float64  `json:"quote"`
}

type Txns struct {
	M5  TxnCount `json:"m5"`
	H1  TxnCount `json:"h1"`
	H6  TxnCount `json:"h6"`
	H24 TxnCount `json:"h24"`
}

type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Periods is used for both volume (USD) and price change (percent).
type Periods struct {
	M5  *float64 `json:"m5"`
	H1  *float64 `json:"h1"`
	H6  *float64 `json:"h6"`
	H24 *float64 `json:"h24"`
}

type Info struct {
	ImageURL string    `json:"imageUrl"`
	Header   string    `json:"header"`
	Websites []Website `json:"websites"`
	Socials  []Social  `json:"socials"`
}

type Website struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Social struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type BoostsCount struct {
	Active int `json:"active"`
}

// LiquidityUSD returns 0 when the pair reports no USD liquidity.
func (p Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil || p.Liquidity.Usd == nil {
		return 0
	}
	return *p.Liquidity.Usd
}
