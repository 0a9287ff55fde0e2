package market

import (
	"context"
	"fmt"
	"strings"

	"omni-trending/internal/clients_api/dexscreener"

	"github.com/samber/lo"
)

// AutoDetect is the network value meaning "figure it out from the address".
const AutoDetect = "all"

type Searcher interface {
	Search(ctx context.Context, query string) ([]dexscreener.Pair, error)
}

// Resolver works out which chain a contract address lives on.
type Resolver struct {
	search    Searcher
	supported []string
}

func NewResolver(search Searcher, supported []string) *Resolver {
	return &Resolver{search: search, supported: lo.Map(supported, func(n string, _ int) string {
		return NormalizeNetwork(n)
	})}
}

func (r *Resolver) IsSupported(network string) bool {
	return lo.Contains(r.supported, NormalizeNetwork(network))
}

func (r *Resolver) Supported() []string {
	return append([]string(nil), r.supported...)
}

// Resolve returns the first supported network the search finds the address on.
// If only unsupported chains know it, the first result's chain id is returned as is.
func (r *Resolver) Resolve(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrAddressNotFound
	}

	pairs, err := r.search.Search(ctx, address)
	if err != nil {
		return "", fmt.Errorf("network lookup for %s: %w", address, err)
	}
	pairs = lo.Filter(pairsForToken(pairs, address), func(p dexscreener.Pair, _ int) bool {
		return p.ChainID != ""
	})
	if len(pairs) == 0 {
		return "", ErrAddressNotFound
	}

	if p, ok := lo.Find(pairs, func(p dexscreener.Pair) bool {
		return r.IsSupported(p.ChainID)
	}); ok {
		return strings.ToLower(p.ChainID), nil
	}
	return strings.ToLower(pairs[0].ChainID), nil
}

// Check validates a user-declared network. AutoDetect or "" accepts whatever Resolve finds.
func (r *Resolver) Check(ctx context.Context, declared, address string) (string, error) {
	resolved, err := r.Resolve(ctx, address)
	if err != nil {
		return "", err
	}

	declared = NormalizeNetwork(declared)
	if declared != "" && declared != AutoDetect && declared != resolved {
		return resolved, &NetworkMismatchError{Declared: declared, Resolved: resolved}
	}
	if !r.IsSupported(resolved) {
		return resolved, fmt.Errorf("%w: %s", ErrUnsupportedChain, resolved)
	}
	return resolved, nil
}
