package market

import (
	"context"
	"errors"
	"fmt"
	"sort"

	logging "omni-trending/internal/infra/log"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Provider is one source of market data.
// Fetch returns a *NotFoundError when the source has nothing for network+address.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, network, address string) (*CanonicalPair, error)
}

// Adapter tries network-specific providers first and then the shared fallbacks, in order.
type Adapter struct {
	specialized map[string][]Provider
	fallback    []Provider
}

func NewAdapter(fallback []Provider, specialized map[string][]Provider) *Adapter {
	if specialized == nil {
		specialized = map[string][]Provider{}
	}
	return &Adapter{specialized: specialized, fallback: fallback}
}

// NewDefaultAdapter wires pump.fun ahead of DexScreener for Solana and DexScreener alone elsewhere.
func NewDefaultAdapter(dex PairSearcher, pump CoinFetcher) *Adapter {
	specialized := map[string][]Provider{}
	if pump != nil {
		specialized[Solana] = []Provider{NewPumpFunSource(pump)}
	}
	return NewAdapter([]Provider{NewDexScreenerSource(dex)}, specialized)
}

func (a *Adapter) providersFor(network string) []Provider {
	out := make([]Provider, 0, len(a.specialized[network])+len(a.fallback))
	out = append(out, a.specialized[network]...)
	return append(out, a.fallback...)
}

// Fetch returns the first provider's pair for network+address.
// Every failure is reported as *NotFoundError carrying the networks other attempts saw.
func (a *Adapter) Fetch(ctx context.Context, network, address string) (*CanonicalPair, error) {
	network = NormalizeNetwork(network)
	var found []string

	for _, p := range a.providersFor(network) {
		if ctx.Err() != nil {
			break
		}

		pair, err := safeFetch(ctx, p, network, address)
		if err == nil && pair != nil {
			return pair, nil
		}

		var nf *NotFoundError
		if errors.As(err, &nf) {
			found = append(found, nf.FoundNetworks...)
			continue
		}
		logging.LogDebug("Market provider attempt failed",
			zap.String("provider", p.Name()),
			zap.String("network", network),
			zap.String("address", address),
			zap.Error(err))
	}

	return nil, &NotFoundError{Network: network, Address: address, FoundNetworks: uniqueSorted(found)}
}

func safeFetch(ctx context.Context, p Provider, network, address string) (pair *CanonicalPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			pair = nil
			err = fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Fetch(ctx, network, address)
}

func uniqueSorted(networks []string) []string {
	out := lo.Uniq(lo.Compact(networks))
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
