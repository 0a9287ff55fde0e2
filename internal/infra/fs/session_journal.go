package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/trending"

	"go.uber.org/zap"
)

const (
	SessionJournalFile = "sessions.json"
	// oldest reports are dropped past this many entries
	MaxJournalEntries = 5000
)

type SessionJournalData struct {
	Sessions []trending.SessionReport `json:"sessions"`
}

// SessionJournal keeps finished trending sessions in <data_dir>/sessions.json.
type SessionJournal struct {
	path string
	mu   sync.Mutex
}

func NewSessionJournal(dataDir string) *SessionJournal {
	if dataDir == "" {
		dataDir = "data_out"
	}
	return &SessionJournal{path: filepath.Join(dataDir, SessionJournalFile)}
}

func (j *SessionJournal) Path() string {
	return j.path
}

// Record appends report to the journal.
func (j *SessionJournal) Record(ctx context.Context, report trending.SessionReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	sessions, err := j.load()
	if err != nil {
		return fmt.Errorf("failed to load session journal: %w", err)
	}

	sessions = append(sessions, report)
	if len(sessions) > MaxJournalEntries {
		sessions = sessions[len(sessions)-MaxJournalEntries:]
	}

	if err := writeJSONAtomic(j.path, SessionJournalData{Sessions: sessions}); err != nil {
		return fmt.Errorf("failed to save session journal: %w", err)
	}

	logging.LogDebug("Recorded trending session",
		zap.String("file", j.path),
		zap.String("session_id", report.SessionID),
		zap.String("status", string(report.Status)))
	return nil
}

// Load returns every recorded report, oldest first.
func (j *SessionJournal) Load() ([]trending.SessionReport, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

func (j *SessionJournal) load() ([]trending.SessionReport, error) {
	if _, err := os.Stat(j.path); os.IsNotExist(err) {
		return []trending.SessionReport{}, nil
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session journal: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" {
		return []trending.SessionReport{}, nil
	}

	var journal SessionJournalData
	if err := json.Unmarshal(data, &journal); err != nil {
		return nil, fmt.Errorf("failed to parse session journal JSON: %w", err)
	}
	if journal.Sessions == nil {
		journal.Sessions = []trending.SessionReport{}
	}
	return journal.Sessions, nil
}
