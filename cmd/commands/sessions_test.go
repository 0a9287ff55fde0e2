package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"omni-trending/internal/trending"

	"github.com/stretchr/testify/assert"
)

func TestRenderSessions(t *testing.T) {
	var buf bytes.Buffer
	renderSessions(&buf, []trending.SessionReport{
		{
			SessionID:  "101",
			UserID:     7,
			Network:    "solana",
			Symbol:     "BONK",
			Status:     trending.StatusCompleted,
			Baseline:   "0.00002",
			FinalPrice: "0.000026",
			ChangePct:  "30",
			Fired:      []string{"high_10", "high_20", "high_30"},
			Polls:      180,
			Misses:     2,
			RiskLevel:  "low",
			FinishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			SessionID:       "102",
			UserID:          8,
			Network:         "base",
			ContractAddress: "0x6982508145454ce325ddbe47a25d4ec3d2311933",
			Status:          trending.StatusCancelled,
			ChangePct:       "0",
			RiskLevel:       "high",
			RiskScore:       6,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "$BONK")
	assert.Contains(t, out, "high_10 high_20 high_30")
	assert.Contains(t, out, "178/180")
	assert.Contains(t, out, "0x698250...1933")
	assert.Contains(t, out, "CANCELLED")
	assert.Contains(t, strings.ToLower(out), "1/2 completed")
}
