package tracker

import (
	"sync/atomic"
	"time"
)

// ActivityMonitor holds the time of the most recent interaction. Record is
// safe to call from any goroutine at any rate.
type ActivityMonitor struct {
	last atomic.Int64
}

func NewActivityMonitor() *ActivityMonitor {
	return &ActivityMonitor{}
}

func (m *ActivityMonitor) Record(at time.Time) {
	m.last.Store(at.UnixNano())
}

// LastInteraction returns the last recorded time, or false if nothing was
// recorded yet.
func (m *ActivityMonitor) LastInteraction() (time.Time, bool) {
	n := m.last.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

func (m *ActivityMonitor) Seen() bool {
	return m.last.Load() != 0
}
