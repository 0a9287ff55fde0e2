package log

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLineEncoder_MergesContextFields(t *testing.T) {
	enc := newLineEncoder()
	zap.String("session_id", "42").AddTo(enc)
	clone := enc.Clone()

	entry := zapcore.Entry{
		Level:   zapcore.WarnLevel,
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: "poll failed",
	}
	buf, err := clone.EncodeEntry(entry, []zapcore.Field{zap.Error(errors.New("timeout"))})
	require.NoError(t, err)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "2026-01-02 03:04:05     WARN poll failed\t"))
	assert.Contains(t, line, `"session_id":"42"`)
	assert.Contains(t, line, `"error":"timeout"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestLineEncoder_NoFields(t *testing.T) {
	buf, err := newLineEncoder().EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "ready"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "\t")
}

func TestDurationField(t *testing.T) {
	assert.Equal(t, int64(120), durationField([]zap.Field{zap.String("a", "b"), zap.Int64("duration_ms", 120)}))
	assert.Equal(t, int64(0), durationField([]zap.Field{zap.String("duration_ms", "5")}))
}
