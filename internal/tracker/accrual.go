package tracker

import (
	"time"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// Thresholds split the time since the last interaction into the three tiers.
type Thresholds struct {
	Active  time.Duration
	Discard time.Duration
}

var DefaultThresholds = Thresholds{
	Active:  30 * time.Second,
	Discard: 5 * time.Minute,
}

// Engine classifies the wall-clock time between ticks.
type Engine struct {
	thresholds Thresholds
	lastTickAt time.Time
}

func NewEngine(t Thresholds, now time.Time) *Engine {
	return &Engine{thresholds: t, lastTickAt: now}
}

// Reset moves the tick clock to now without accruing anything.
func (e *Engine) Reset(now time.Time) {
	e.lastTickAt = now
}

// Tick adds the time since the previous tick to the session counter picked by
// the interaction gap. The tick clock always advances, whatever the outcome.
func (e *Engine) Tick(now time.Time, s *domain.Session, eligible bool, lastInteraction time.Time, seen bool) (ports.AccrualKind, int64) {
	elapsed := now.Sub(e.lastTickAt).Milliseconds()
	e.lastTickAt = now
	if elapsed < 0 {
		elapsed = 0
	}

	if !eligible || s.ItemID == "" || !s.Started || !seen {
		return ports.AccrualIgnored, elapsed
	}

	gap := now.Sub(lastInteraction)
	switch {
	case gap < e.thresholds.Active:
		s.ActiveMs += elapsed
		return ports.AccrualActive, elapsed
	case gap < e.thresholds.Discard:
		s.IdleMs += elapsed
		return ports.AccrualIdle, elapsed
	default:
		return ports.AccrualDiscarded, elapsed
	}
}
