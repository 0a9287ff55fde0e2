// Package trending runs paid "trending" promotions: one polling goroutine per session
// that tracks price against a baseline and posts one-shot threshold alerts.
package trending

import (
	"context"
	"errors"
	"strings"
	"time"

	"omni-trending/internal/market"

	"github.com/shopspring/decimal"
)

var (
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	ErrGateway             = errors.New("notification gateway failed")
	ErrSessionNotFound     = errors.New("trending session not found")
	ErrDuplicateSession    = errors.New("trending session already exists")
	ErrShuttingDown        = errors.New("trending manager is shutting down")
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// MessageRef identifies a public post. ID doubles as the session id.
type MessageRef struct {
	ID       string
	HasImage bool
}

type PostKind string

const (
	PostStatus    PostKind = "status"
	PostAlert     PostKind = "alert"
	PostCompleted PostKind = "completed"
)

// Post carries what a gateway needs to render a public channel message.
type Post struct {
	Kind      PostKind
	Session   Snapshot
	Threshold ThresholdKey // alerts only
}

// Gateway is the outbound messaging sink. Implementations must be safe for concurrent use.
type Gateway interface {
	PostPublic(ctx context.Context, post Post) (MessageRef, error)
	EditPublic(ctx context.Context, ref MessageRef, post Post) error
	NotifyUser(ctx context.Context, userID int64, text string) error
	NotifyOperators(ctx context.Context, severity Severity, text string, fields map[string]string) error
}

// Fetcher returns current market data for a token; *market.Adapter implements it.
type Fetcher interface {
	Fetch(ctx context.Context, network, address string) (*market.CanonicalPair, error)
}

// Recorder receives one report per finished session.
type Recorder interface {
	Record(ctx context.Context, report SessionReport) error
}

type ActivationRequest struct {
	UserID          int64
	Network         string
	ContractAddress string
	DurationLabel   string
}

type SessionReport struct {
	SessionID       string    `json:"session_id"`
	UserID          int64     `json:"user_id"`
	Network         string    `json:"network"`
	ContractAddress string    `json:"contract_address"`
	Symbol          string    `json:"symbol"`
	Status          Status    `json:"status"`
	Baseline        string    `json:"baseline,omitempty"`
	FinalPrice      string    `json:"final_price,omitempty"`
	ChangePct       string    `json:"change_pct"`
	Fired           []string  `json:"fired"`
	Polls           int       `json:"polls"`
	Misses          int       `json:"misses"`
	RiskScore       int       `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	RiskFlags       []string  `json:"risk_flags"`
	StartedAt       time.Time `json:"started_at"`
	EndsAt          time.Time `json:"ends_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Snapshot is an immutable copy of a session's state, republished after every poll.
type Snapshot struct {
	ID              string
	UserID          int64
	Network         string
	ContractAddress string
	Symbol          string
	Name            string
	LogoURL         string
	ChartURL        string
	Message         MessageRef

	Baseline  decimal.NullDecimal
	LastPrice decimal.NullDecimal
	ChangePct decimal.Decimal
	LastPair  *market.CanonicalPair

	Fired  []ThresholdKey
	Polls  int
	Misses int
	Status Status

	StartedAt time.Time
	EndsAt    time.Time
	UpdatedAt time.Time
}

func (s Snapshot) Remaining(now time.Time) time.Duration {
	if d := s.EndsAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s Snapshot) FiredStrings() []string {
	out := make([]string, 0, len(s.Fired))
	for _, k := range s.Fired {
		out = append(out, k.String())
	}
	return out
}

var durationLabels = map[string]int{
	"3h":  3,
	"12h": 12,
	"24h": 24,
}

// DurationHours maps a package label to hours; unknown labels get the 3h package.
func DurationHours(label string) int {
	if h, ok := durationLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return h
	}
	return 3
}

// DurationLabels lists the known packages, shortest first.
func DurationLabels() []string {
	return []string{"3h", "12h", "24h"}
}
