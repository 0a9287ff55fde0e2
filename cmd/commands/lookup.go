package commands

// Command to look a contract address up the same way the bot does:
// resolve its network, fetch the canonical pair and print the risk assessment.

import (
	"context"
	"fmt"
	"strings"

	"omni-trending/internal/infra/config"
	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/market"
	"omni-trending/internal/risk"
	"omni-trending/internal/telegram"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var lookupNetwork string

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Resolve a contract address and print its market data and risk",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupNetwork, "network", market.AutoDetect, "Network to check (solana, ethereum, bsc, base, arbitrum or all)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	address := strings.TrimSpace(args[0])
	adapter, resolver := newMarket(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*providerTimeout(cfg))
	defer cancel()

	network, err := resolver.Check(ctx, lookupNetwork, address)
	if err != nil {
		logging.LogWarn("Network check failed", zap.String("address", address), zap.Error(err))
		return err
	}

	pair, err := adapter.Fetch(ctx, network, address)
	if err != nil {
		return fmt.Errorf("fetch %s on %s: %w", address, network, err)
	}

	printPair(cmd, pair, risk.Score(pair))
	return nil
}

func printPair(cmd *cobra.Command, p *market.CanonicalPair, a risk.Assessment) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)

	bold.Fprintf(out, "%s (%s) on %s\n", p.BaseSymbol, p.BaseName, market.NetworkName(p.Network))
	fmt.Fprintf(out, "  Source:     %s\n", p.Provider)
	fmt.Fprintf(out, "  DEX:        %s\n", p.Dex)
	fmt.Fprintf(out, "  Pair:       %s\n", p.PairAddress)
	fmt.Fprintf(out, "  Price:      %s\n", telegram.FormatPrice(p.Price))
	fmt.Fprintf(out, "  Liquidity:  %s\n", telegram.FormatUSD(p.LiquidityUSD))
	fmt.Fprintf(out, "  Volume 24h: %s\n", telegram.FormatUSD(p.Volume24hUSD))
	fmt.Fprintf(out, "  Market cap: %s\n", telegram.FormatUSD(p.MarketCap))
	if p.URL != "" {
		fmt.Fprintf(out, "  Chart:      %s\n", p.URL)
	}

	levelColor := map[risk.Level]*color.Color{
		risk.LevelLow:    color.New(color.FgGreen),
		risk.LevelMedium: color.New(color.FgYellow),
		risk.LevelHigh:   color.New(color.FgRed),
	}[a.Level()]
	levelColor.Fprintf(out, "  Risk:       %s (score %d)\n", strings.ToUpper(string(a.Level())), a.Score)
	for _, f := range a.Flags {
		fmt.Fprintf(out, "    - %s\n", f)
	}
}
