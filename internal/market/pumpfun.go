package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omni-trending/internal/clients_api/pumpfun"

	"github.com/shopspring/decimal"
)

const ProviderPumpFun = "pumpfun"

type CoinFetcher interface {
	GetCoin(ctx context.Context, mint string) (*pumpfun.Coin, error)
}

// PumpFunSource covers Solana mints still on the pump.fun bonding curve.
// Graduated coins are reported as not found so the DEX pool data is used instead.
type PumpFunSource struct {
	client CoinFetcher
	now    func() time.Time
}

func NewPumpFunSource(client CoinFetcher) *PumpFunSource {
	return &PumpFunSource{client: client, now: time.Now}
}

func (s *PumpFunSource) Name() string { return ProviderPumpFun }

func (s *PumpFunSource) Fetch(ctx context.Context, network, address string) (*CanonicalPair, error) {
	if network != Solana {
		return nil, &NotFoundError{Network: network, Address: address}
	}

	coin, err := s.client.GetCoin(ctx, address)
	if err != nil {
		if errors.Is(err, pumpfun.ErrCoinNotFound) {
			return nil, &NotFoundError{Network: network, Address: address}
		}
		return nil, fmt.Errorf("pump.fun lookup: %w", err)
	}
	if coin.Complete {
		return nil, &NotFoundError{Network: network, Address: address}
	}

	return FromPumpFun(coin, s.now()), nil
}

func FromPumpFun(coin *pumpfun.Coin, now time.Time) *CanonicalPair {
	cp := &CanonicalPair{
		Network:     Solana,
		Dex:         "pump.fun",
		BaseSymbol:  coin.Symbol,
		BaseName:    coin.Name,
		BaseAddress: coin.Mint,
		QuoteSymbol: "SOL",
		PairAddress: coin.BondingCurve,
		LogoURL:     coin.ImageURI,
		URL:         "https://pump.fun/coin/" + coin.Mint,
		ExplorerURL: ExplorerURL(Solana, coin.Mint),
		Provider:    ProviderPumpFun,
	}

	if coin.USDMarketCap > 0 {
		cp.MarketCap = floatPtr(coin.USDMarketCap)
		cp.FDV = floatPtr(coin.USDMarketCap)
		if supply := coin.Supply(); supply > 0 {
			price := decimal.NewFromFloat(coin.USDMarketCap).Div(decimal.NewFromFloat(supply))
			cp.Price = decimal.NewNullDecimal(price)
		}
	}
	if coin.CreatedTimestamp > 0 {
		age := int64(now.Sub(time.UnixMilli(coin.CreatedTimestamp)).Seconds())
		if age < 0 {
			age = 0
		}
		cp.AgeSeconds = &age
	}
	for _, link := range []string{coin.Website, coin.Twitter, coin.Telegram} {
		if link != "" {
			cp.LinkCount++
		}
	}
	return cp
}
