package market

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("market data not found")
	ErrNetworkMismatch  = errors.New("network mismatch")
	ErrAddressNotFound  = errors.New("address not found on any network")
	ErrUnsupportedChain = errors.New("network not supported")
)

// NotFoundError is returned when no provider produced a pair for the requested network.
// FoundNetworks lists networks on which the address does have pairs.
type NotFoundError struct {
	Network       string
	Address       string
	FoundNetworks []string
}

func (e *NotFoundError) Error() string {
	if len(e.FoundNetworks) == 0 {
		return fmt.Sprintf("no market data for %s on %s", e.Address, e.Network)
	}
	return fmt.Sprintf("no market data for %s on %s (found on: %s)", e.Address, e.Network, strings.Join(e.FoundNetworks, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type NetworkMismatchError struct {
	Declared string
	Resolved string
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("address belongs to %s, not %s", e.Resolved, e.Declared)
}

func (e *NetworkMismatchError) Is(target error) bool {
	return target == ErrNetworkMismatch
}
