package trending

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/risk"

	"go.uber.org/zap"
)

func (m *Manager) run(s *session) {
	defer m.wg.Done()
	defer close(s.done)

	status := m.loop(s)
	m.finish(s, status)
}

func (m *Manager) loop(s *session) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Poll cycle panicked, session failed",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			status = StatusFailed
		}
	}()

	for {
		if !s.active.Load() {
			return StatusCancelled
		}
		if !m.now().Before(s.endsAt) {
			return StatusCompleted
		}

		m.cycle(s)

		if !s.active.Load() {
			return StatusCancelled
		}

		wait := m.cfg.PollInterval
		if remaining := s.endsAt.Sub(m.now()); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		case <-m.ctx.Done():
			timer.Stop()
			s.stop()
		}
	}
}

// cycle runs one fetch/compare/notify pass. Only the owning goroutine calls it.
func (m *Manager) cycle(s *session) {
	snap := s.load()
	snap.Polls++

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ProviderTimeout)
	pair, err := m.fetcher.Fetch(ctx, s.network, s.contractAddress)
	cancel()
	if err != nil || pair == nil {
		snap.Misses++
		s.publish(snap)
		s.logger.Warn("Market data fetch failed, skipping cycle",
			zap.Int("misses", snap.Misses),
			zap.Error(err))
		return
	}

	now := m.now()
	snap.LastPrice = pair.Price
	snap.LastPair = pair
	snap.ChangePct = PercentChange(s.baseline, pair.Price)
	snap.UpdatedAt = now
	if pair.LogoURL != "" {
		snap.LogoURL = pair.LogoURL
	}

	if err := m.withGateway(func(ctx context.Context) error {
		return m.gateway.EditPublic(ctx, s.message, Post{Kind: PostStatus, Session: snap})
	}); err != nil {
		s.logger.Warn("Failed to update status post", zap.Error(err))
	}

	crossed := Scan(snap.ChangePct, m.cfg.Thresholds, s.fired)
	for _, key := range crossed {
		s.fired[key] = struct{}{}
	}
	snap.Fired = sortedKeys(s.fired)
	s.publish(snap)

	for _, key := range crossed {
		s.logger.Info("Threshold crossed",
			zap.String("threshold", key.String()),
			zap.String("change_pct", snap.ChangePct.StringFixed(2)))

		alert := Post{Kind: PostAlert, Session: snap, Threshold: key}
		if err := m.withGateway(func(ctx context.Context) error {
			_, err := m.gateway.PostPublic(ctx, alert)
			return err
		}); err != nil {
			s.logger.Warn("Failed to post threshold alert", zap.String("threshold", key.String()), zap.Error(err))
		}
	}
}

// finish runs exactly once per session, after its loop has exited.
func (m *Manager) finish(s *session, status Status) {
	s.active.Store(false)

	snap := s.load()
	snap.Status = status
	snap.UpdatedAt = m.now()
	s.publish(snap)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.GatewayTimeout)
	defer cancel()

	if status == StatusCompleted {
		if err := m.gateway.NotifyUser(ctx, s.userID, completionText(snap)); err != nil {
			s.logger.Warn("Failed to notify user about completion", zap.Error(err))
		}
		if _, err := m.gateway.PostPublic(ctx, Post{Kind: PostCompleted, Session: snap}); err != nil {
			s.logger.Warn("Failed to post completion notice", zap.Error(err))
		}
	}

	assessment := risk.Score(snap.LastPair)
	report := buildReport(snap, assessment)

	severity := SeverityInfo
	if status == StatusFailed {
		severity = SeverityError
	}
	if err := m.gateway.NotifyOperators(ctx, severity, summaryText(snap, assessment), summaryFields(report)); err != nil {
		s.logger.Warn("Failed to send operator summary", zap.Error(err))
	}

	if m.recorder != nil {
		if err := m.recorder.Record(ctx, report); err != nil {
			s.logger.Warn("Failed to record session report", zap.Error(err))
		}
	}

	if !m.store.remove(s.id) {
		s.logger.Error("Session was already removed from store")
	}

	fields := []zap.Field{
		zap.String("session_id", s.id),
		zap.String("status", string(status)),
		zap.Strings("fired", report.Fired),
		zap.Int("polls", snap.Polls),
		zap.Int("misses", snap.Misses),
	}
	if status == StatusFailed {
		logging.LogError("Trending session failed", fields...)
	} else {
		logging.LogSuccess("Trending session finished", fields...)
	}
}

func (m *Manager) withGateway(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.GatewayTimeout)
	defer cancel()
	return fn(ctx)
}

func buildReport(snap Snapshot, a risk.Assessment) SessionReport {
	report := SessionReport{
		SessionID:       snap.ID,
		UserID:          snap.UserID,
		Network:         snap.Network,
		ContractAddress: snap.ContractAddress,
		Symbol:          snap.Symbol,
		Status:          snap.Status,
		ChangePct:       snap.ChangePct.StringFixed(2),
		Fired:           snap.FiredStrings(),
		Polls:           snap.Polls,
		Misses:          snap.Misses,
		RiskScore:       a.Score,
		RiskLevel:       string(a.Level()),
		StartedAt:       snap.StartedAt,
		EndsAt:          snap.EndsAt,
		FinishedAt:      snap.UpdatedAt,
	}
	if snap.Baseline.Valid {
		report.Baseline = snap.Baseline.Decimal.String()
	}
	if snap.LastPrice.Valid {
		report.FinalPrice = snap.LastPrice.Decimal.String()
	}
	for _, f := range a.Flags {
		report.RiskFlags = append(report.RiskFlags, string(f))
	}
	return report
}

func completionText(snap Snapshot) string {
	symbol := snap.Symbol
	if symbol == "" {
		symbol = snap.ContractAddress
	}
	return fmt.Sprintf("Your trending session for %s has completed. Final change vs. start: %s%%.",
		symbol, snap.ChangePct.StringFixed(2))
}

func summaryText(snap Snapshot, a risk.Assessment) string {
	return fmt.Sprintf("Session %s (%s on %s) ended: %s. Risk %d (%s).",
		snap.ID, snap.Symbol, snap.Network, snap.Status, a.Score, a.Level())
}

func summaryFields(r SessionReport) map[string]string {
	fields := map[string]string{
		"session":  r.SessionID,
		"user":     fmt.Sprint(r.UserID),
		"contract": r.ContractAddress,
		"change":   r.ChangePct + "%",
		"polls":    fmt.Sprintf("%d (%d missed)", r.Polls, r.Misses),
	}
	fields["fired"] = joinOr(r.Fired, "none")
	fields["flags"] = joinOr(r.RiskFlags, "none")
	return fields
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
