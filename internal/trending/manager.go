package trending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/market"

	"go.uber.org/zap"
)

type Config struct {
	PollInterval    time.Duration
	Thresholds      []int
	ProviderTimeout time.Duration
	GatewayTimeout  time.Duration
}

type Option func(*Manager)

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSessionLength overrides how a duration label becomes a session length.
func WithSessionLength(fn func(label string) time.Duration) Option {
	return func(m *Manager) { m.sessionLength = fn }
}

// Manager owns the lifecycle of every trending session.
type Manager struct {
	cfg           Config
	fetcher       Fetcher
	gateway       Gateway
	recorder      Recorder
	store         *Store
	now           func() time.Time
	sessionLength func(label string) time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func NewManager(cfg Config, fetcher Fetcher, gateway Gateway, opts ...Option) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = []int{10, 20, 30, 40, 50, 60, 70}
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:     cfg,
		fetcher: fetcher,
		gateway: gateway,
		store:   NewStore(),
		now:     time.Now,
		sessionLength: func(label string) time.Duration {
			return time.Duration(DurationHours(label)) * time.Hour
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Activate captures a baseline, posts the public status message and starts polling.
// The returned id is the status message id.
func (m *Manager) Activate(ctx context.Context, req ActivationRequest) (string, error) {
	if m.isShuttingDown() {
		return "", ErrShuttingDown
	}

	network := market.NormalizeNetwork(req.Network)
	address := strings.TrimSpace(req.ContractAddress)

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.ProviderTimeout)
	pair, err := m.fetcher.Fetch(fetchCtx, network, address)
	cancel()
	if err != nil || pair == nil {
		return "", activationFetchError(network, err)
	}

	startedAt := m.now()
	s := &session{
		userID:          req.UserID,
		network:         network,
		contractAddress: address,
		baseline:        pair.Price,
		startedAt:       startedAt,
		endsAt:          startedAt.Add(m.sessionLength(req.DurationLabel)),
		fired:           make(map[ThresholdKey]struct{}),
		wake:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	snap := Snapshot{
		UserID:          req.UserID,
		Network:         network,
		ContractAddress: address,
		Symbol:          pair.BaseSymbol,
		Name:            pair.BaseName,
		LogoURL:         pair.LogoURL,
		ChartURL:        pair.URL,
		Baseline:        pair.Price,
		LastPrice:       pair.Price,
		LastPair:        pair,
		Status:          StatusActive,
		StartedAt:       s.startedAt,
		EndsAt:          s.endsAt,
		UpdatedAt:       startedAt,
	}

	postCtx, cancel := context.WithTimeout(ctx, m.cfg.GatewayTimeout)
	ref, err := m.gateway.PostPublic(postCtx, Post{Kind: PostStatus, Session: snap})
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: initial status post: %v", ErrGateway, err)
	}
	if ref.ID == "" {
		return "", fmt.Errorf("%w: initial status post returned no message id", ErrGateway)
	}

	s.id = ref.ID
	s.message = ref
	s.logger = logging.SessionLogger(ref.ID)
	snap.ID = ref.ID
	snap.Message = ref
	s.publish(snap)
	s.active.Store(true)

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		m.withdrawStatusPost(snap)
		return "", ErrShuttingDown
	}
	if err := m.store.add(s); err != nil {
		m.mu.Unlock()
		m.withdrawStatusPost(snap)
		return "", fmt.Errorf("session %s: %w", s.id, err)
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(s)

	if !pair.HasPrice() {
		s.logger.Warn("Baseline price unknown, threshold alerts disabled for this session")
	}
	logging.LogSuccess("Trending session activated",
		zap.String("session_id", s.id),
		zap.Int64("user_id", s.userID),
		zap.String("network", network),
		zap.String("address", address),
		zap.String("baseline", snap.Baseline.Decimal.String()),
		zap.Time("ends_at", s.endsAt))

	return s.id, nil
}

// withdrawStatusPost marks a status post whose session never started.
func (m *Manager) withdrawStatusPost(snap Snapshot) {
	snap.Status = StatusCancelled
	snap.UpdatedAt = m.now()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.GatewayTimeout)
	defer cancel()
	if err := m.gateway.EditPublic(ctx, snap.Message, Post{Kind: PostStatus, Session: snap}); err != nil {
		logging.LogWarn("Failed to withdraw status post of unstarted session",
			zap.String("message_id", snap.Message.ID),
			zap.Error(err))
	}
}

func activationFetchError(network string, err error) error {
	var nf *market.NotFoundError
	if errors.As(err, &nf) && len(nf.FoundNetworks) > 0 {
		return &market.NetworkMismatchError{Declared: network, Resolved: nf.FoundNetworks[0]}
	}
	if err == nil {
		return ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// Cancel stops a session; it exits without a completion notice.
// It returns false when the session is unknown or already stopping.
func (m *Manager) Cancel(sessionID string) bool {
	s, ok := m.store.get(sessionID)
	if !ok {
		return false
	}
	if !s.stop() {
		return false
	}
	logging.LogInfo("Trending session cancelled", zap.String("session_id", sessionID))
	return true
}

func (m *Manager) Get(sessionID string) (Snapshot, error) {
	s, ok := m.store.get(sessionID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.load(), nil
}

// List returns snapshots of running sessions, oldest first.
func (m *Manager) List() []Snapshot {
	sessions := m.store.list()
	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.load())
	}
	return out
}

func (m *Manager) Len() int {
	return m.store.Len()
}

// Shutdown cancels every session and waits for their goroutines, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()

	m.cancel()
	for _, s := range m.store.list() {
		s.stop()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d trending sessions: %w", m.store.Len(), ctx.Err())
	}
}

func (m *Manager) isShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}
