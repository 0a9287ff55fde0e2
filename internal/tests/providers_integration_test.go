//go:build integration

package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"omni-trending/internal/clients_api/dexscreener"
	"omni-trending/internal/clients_api/pumpfun"
	"omni-trending/internal/market"
	"omni-trending/internal/risk"
)

const (
	// Wrapped Ether and BONK, both listed for years on their home chains.
	wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	bonkMint    = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func newClients() (*dexscreener.Client, *pumpfun.Client) {
	dex := dexscreener.NewClient(dexscreener.Options{
		BaseURL:    os.Getenv("DEXSCREENER_URL"),
		Timeout:    15 * time.Second,
		MaxRetries: 2,
	})
	pumpURL := os.Getenv("PUMPFUN_URL")
	if pumpURL == "" {
		pumpURL = "https://frontend-api-v3.pump.fun"
	}
	return dex, pumpfun.NewClient(pumpfun.Options{BaseURL: pumpURL, Timeout: 15 * time.Second, MaxRetries: 1})
}

// TestIntegration_DexScreener_TokenPairs:
// - Calls /tokens on a long-lived ERC-20
// - Checks that the canonical pair carries a price and liquidity
func TestIntegration_DexScreener_TokenPairs(t *testing.T) {
	dex, _ := newClients()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	pairs, err := dex.TokenPairs(ctx, wethAddress)
	if err != nil {
		t.Fatalf("TokenPairs failed: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatalf("TokenPairs returned no pairs for WETH")
	}

	best, found, ok := market.SelectPair(pairs, market.Ethereum)
	if !ok {
		t.Fatalf("no ethereum pair selected, found networks: %v", found)
	}
	p := market.FromDexScreener(best, time.Now())
	if !p.HasPrice() {
		t.Fatalf("expected a positive price, got %s", p.Price.Decimal)
	}
	t.Logf("WETH on %s via %s: price=%s liquidity=%v", p.Network, p.Dex, p.Price.Decimal, p.LiquidityUSD)
}

// TestIntegration_Resolver_DetectsAndRejects:
// - Auto-detects the chain of a Solana mint
// - Declaring the wrong chain yields a NetworkMismatchError
func TestIntegration_Resolver_DetectsAndRejects(t *testing.T) {
	dex, _ := newClients()
	r := market.NewResolver(dex, []string{market.Solana, market.Ethereum, market.BSC, market.Base, market.Arbitrum})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	network, err := r.Check(ctx, market.AutoDetect, bonkMint)
	if err != nil {
		t.Fatalf("Check(all) failed: %v", err)
	}
	if network != market.Solana {
		t.Fatalf("expected solana, got %s", network)
	}

	_, err = r.Check(ctx, market.Ethereum, bonkMint)
	if err == nil {
		t.Fatalf("expected network mismatch for BONK declared on ethereum")
	}
	t.Logf("mismatch: %v", err)
}

// TestIntegration_Adapter_Solana:
// - Runs the full provider chain (pump.fun first, DexScreener fallback) on a graduated mint
// - Scores the result
func TestIntegration_Adapter_Solana(t *testing.T) {
	dex, pump := newClients()
	adapter := market.NewDefaultAdapter(dex, pump)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	pair, err := adapter.Fetch(ctx, market.Solana, bonkMint)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if pair.Provider != market.ProviderDexScreener {
		t.Fatalf("graduated mint should come from dexscreener, got %s", pair.Provider)
	}
	a := risk.Score(pair)
	t.Logf("BONK: price=%s risk=%s flags=%v", pair.Price.Decimal, a.Level(), a.Flags)
}

// TestIntegration_PumpFun_Coin reads PUMPFUN_MINT, a coin still on the bonding curve.
func TestIntegration_PumpFun_Coin(t *testing.T) {
	mint := os.Getenv("PUMPFUN_MINT")
	if mint == "" {
		t.Skip("PUMPFUN_MINT is not set; cannot run pump.fun integration test")
	}
	_, pump := newClients()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	coin, err := pump.GetCoin(ctx, mint)
	if err != nil {
		t.Fatalf("GetCoin failed: %v", err)
	}
	p := market.FromPumpFun(coin, time.Now())
	t.Logf("%s (%s): price=%s mc=%v", p.BaseSymbol, p.BaseName, p.Price.Decimal, p.MarketCap)
}
