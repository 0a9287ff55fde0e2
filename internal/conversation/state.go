// Package conversation tracks where each Telegram user is in the
// network -> address -> package -> payment -> approval flow.
package conversation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrIllegalTransition = errors.New("illegal conversation transition")
	ErrIncomplete        = errors.New("conversation is missing required data")
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingNetwork  State = "awaiting_network"
	StateAwaitingAddress  State = "awaiting_address"
	StateTokenShown       State = "token_shown"
	StateAwaitingPackage  State = "awaiting_package"
	StateAwaitingPayment  State = "awaiting_payment"
	StateAwaitingApproval State = "awaiting_approval"
)

type Event string

const (
	EventStart         Event = "start"
	EventSelectNetwork Event = "select_network"
	EventSubmitAddress Event = "submit_address"
	EventTrend         Event = "trend"
	EventSelectPackage Event = "select_package"
	EventSelectPayment Event = "select_payment"
	EventConfirmPaid   Event = "confirm_paid"
	EventBack          Event = "back"
	EventReset         Event = "reset"
	EventApproved      Event = "approved"
	EventRejected      Event = "rejected"
)

// A user waiting for approval can only leave that state through an admin decision.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateAwaitingNetwork,
		EventReset: StateIdle,
	},
	StateAwaitingNetwork: {
		EventStart:         StateAwaitingNetwork,
		EventSelectNetwork: StateAwaitingAddress,
		EventBack:          StateIdle,
		EventReset:         StateIdle,
	},
	StateAwaitingAddress: {
		EventStart:         StateAwaitingNetwork,
		EventSelectNetwork: StateAwaitingAddress,
		EventSubmitAddress: StateTokenShown,
		EventBack:          StateAwaitingNetwork,
		EventReset:         StateIdle,
	},
	StateTokenShown: {
		EventStart:         StateAwaitingNetwork,
		EventSelectNetwork: StateAwaitingAddress,
		EventSubmitAddress: StateTokenShown,
		EventTrend:         StateAwaitingPackage,
		EventBack:          StateAwaitingNetwork,
		EventReset:         StateIdle,
	},
	StateAwaitingPackage: {
		EventStart:         StateAwaitingNetwork,
		EventSelectPackage: StateAwaitingPayment,
		EventBack:          StateTokenShown,
		EventReset:         StateIdle,
	},
	StateAwaitingPayment: {
		EventStart:         StateAwaitingNetwork,
		EventSelectPackage: StateAwaitingPayment,
		EventSelectPayment: StateAwaitingPayment,
		EventConfirmPaid:   StateAwaitingApproval,
		EventBack:          StateAwaitingPackage,
		EventReset:         StateIdle,
	},
	StateAwaitingApproval: {
		EventApproved: StateIdle,
		EventRejected: StateIdle,
	},
}

// Next returns the state reached from s on ev.
func Next(s State, ev Event) (State, error) {
	if s == "" {
		s = StateIdle
	}
	to, ok := transitions[s][ev]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s)
	}
	return to, nil
}

// UserState is the persisted position of one user in the flow.
type UserState struct {
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	State           State     `json:"state"`
	Network         string    `json:"network,omitempty"`
	ContractAddress string    `json:"contract_address,omitempty"`
	Symbol          string    `json:"symbol,omitempty"`
	Package         string    `json:"package,omitempty"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// apply moves us to the next state and clears the fields that no longer apply there.
func (us *UserState) apply(ev Event) error {
	to, err := Next(us.State, ev)
	if err != nil {
		return err
	}
	switch to {
	case StateIdle, StateAwaitingNetwork:
		us.Network, us.ContractAddress, us.Symbol = "", "", ""
		us.Package, us.PaymentMethod = "", ""
	case StateAwaitingAddress:
		us.ContractAddress, us.Symbol = "", ""
		us.Package, us.PaymentMethod = "", ""
	case StateTokenShown, StateAwaitingPackage:
		us.Package, us.PaymentMethod = "", ""
	}
	us.State = to
	return nil
}

func (us UserState) validate() error {
	switch us.State {
	case StateAwaitingAddress:
		if us.Network == "" {
			return fmt.Errorf("%w: network", ErrIncomplete)
		}
	case StateTokenShown, StateAwaitingPackage:
		if us.Network == "" || us.ContractAddress == "" {
			return fmt.Errorf("%w: token", ErrIncomplete)
		}
	case StateAwaitingPayment, StateAwaitingApproval:
		if us.ContractAddress == "" || us.Package == "" {
			return fmt.Errorf("%w: package", ErrIncomplete)
		}
		if us.State == StateAwaitingApproval && us.PaymentMethod == "" {
			return fmt.Errorf("%w: payment method", ErrIncomplete)
		}
	}
	return nil
}
