package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func fastOptions(retries int) Options {
	return Options{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(3), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 502}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnClientError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(5), func() error {
		calls++
		return &HTTPError{StatusCode: 404, Body: []byte("missing")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 404, he.StatusCode)
}

func TestDo_PermanentIsNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(5), func() error {
		calls++
		return Permanent(&HTTPError{StatusCode: 503})
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(2), func() error {
		calls++
		return fmt.Errorf("wrapped: %w", timeoutErr{})
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "i/o timeout")
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, fastOptions(3), func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("garbage"))
}

func TestFullJitterSleep_RespectsCeiling(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 50*time.Millisecond, 2)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), FullJitterSleep(3, 0, time.Second, 2))
}
