package trending

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// session is owned by its polling goroutine. Other goroutines only touch
// active, wake and the published snapshot.
type session struct {
	id              string
	userID          int64
	network         string
	contractAddress string
	baseline        decimal.NullDecimal
	startedAt       time.Time
	endsAt          time.Time
	message         MessageRef

	fired map[ThresholdKey]struct{}

	active   atomic.Bool
	snapshot atomic.Pointer[Snapshot]
	wake     chan struct{}
	wakeOnce sync.Once
	done     chan struct{}
	logger   *zap.Logger
}

func (s *session) load() Snapshot {
	return *s.snapshot.Load()
}

func (s *session) publish(snap Snapshot) {
	snap.Fired = append([]ThresholdKey(nil), snap.Fired...)
	s.snapshot.Store(&snap)
}

// stop clears the active flag and interrupts the inter-poll wait.
// It reports whether this call was the one that deactivated the session.
func (s *session) stop() bool {
	stopped := s.active.CompareAndSwap(true, false)
	s.wakeOnce.Do(func() { close(s.wake) })
	return stopped
}
