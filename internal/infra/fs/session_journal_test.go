package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"omni-trending/internal/trending"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionJournal_RecordAndLoad(t *testing.T) {
	dir := t.TempDir()
	j := NewSessionJournal(dir)

	reports, err := j.Load()
	require.NoError(t, err)
	assert.Empty(t, reports)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.Record(context.Background(), trending.SessionReport{
		SessionID: "101",
		Status:    trending.StatusCompleted,
		Fired:     []string{"high_10"},
		StartedAt: started,
	}))
	require.NoError(t, j.Record(context.Background(), trending.SessionReport{
		SessionID: "102",
		Status:    trending.StatusCancelled,
	}))

	reports, err = j.Load()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "101", reports[0].SessionID)
	assert.Equal(t, []string{"high_10"}, reports[0].Fired)
	assert.True(t, started.Equal(reports[0].StartedAt))
	assert.Equal(t, trending.StatusCancelled, reports[1].Status)

	_, err = os.Stat(filepath.Join(dir, SessionJournalFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestSessionJournal_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SessionJournalFile), []byte("{}"), 0644))

	reports, err := NewSessionJournal(dir).Load()
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSessionJournal_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SessionJournalFile), []byte("{not json"), 0644))

	j := NewSessionJournal(dir)
	_, err := j.Load()
	require.Error(t, err)

	err = j.Record(context.Background(), trending.SessionReport{SessionID: "1"})
	require.Error(t, err)
}

func TestSessionJournal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSessionJournal(t.TempDir()).Record(ctx, trending.SessionReport{})
	assert.ErrorIs(t, err, context.Canceled)
}
