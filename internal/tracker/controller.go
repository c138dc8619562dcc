package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/extract"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// Controller owns the session for one page. It is not safe for concurrent
// use; the agent goroutine is its only caller.
type Controller struct {
	session  domain.Session
	engine   *Engine
	activity *ActivityMonitor
	gate     *Gate
	state    domain.PageState

	identity domain.Identity
	teams    []string
	warned   bool

	delivery  ports.DeliveryChannel
	metrics   ports.MetricsRecorder
	sessionID string
	pageURL   string
	unloaded  bool

	logger hclog.Logger
}

type ControllerDeps struct {
	Activity   *ActivityMonitor
	Gate       *Gate
	Delivery   ports.DeliveryChannel
	Metrics    ports.MetricsRecorder
	Identity   domain.Identity
	Teams      []string
	Thresholds Thresholds
	SessionID  string
	Logger     hclog.Logger
}

func NewController(now time.Time, deps ControllerDeps) *Controller {
	if deps.Activity == nil {
		deps.Activity = NewActivityMonitor()
	}
	if deps.Gate == nil {
		deps.Gate = NewGate(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	if deps.Thresholds == (Thresholds{}) {
		deps.Thresholds = DefaultThresholds
	}
	return &Controller{
		engine:    NewEngine(deps.Thresholds, now),
		activity:  deps.Activity,
		gate:      deps.Gate,
		identity:  deps.Identity.Normalize(),
		teams:     deps.Teams,
		delivery:  deps.Delivery,
		metrics:   deps.Metrics,
		sessionID: deps.SessionID,
		logger:    deps.Logger,
	}
}

// Session returns a copy of the current session.
func (c *Controller) Session() domain.Session {
	return c.session
}

// SetPageState stores the latest visibility probe used by the gate.
func (c *Controller) SetPageState(s domain.PageState) {
	c.state = s
}

// SetIdentity applies id only while the current identity is unusable, so a
// page that already started keeps reporting as the same operator.
func (c *Controller) SetIdentity(id domain.Identity) bool {
	if c.identity.Valid(c.teams) {
		return false
	}
	c.identity = id.Normalize()
	c.warned = false
	return true
}

// Accrue runs one accrual tick against the latest page state.
func (c *Controller) Accrue(now time.Time) ports.AccrualKind {
	eligible := c.gate.EligibleNow(c.state, c.session.Source)
	last, seen := c.activity.LastInteraction()
	kind, ms := c.engine.Tick(now, &c.session, eligible, last, seen)
	c.metrics.RecordAccrual(context.Background(), kind, ms)
	return kind
}

// ObserveCandidate feeds one scan result into the session. A different valid
// id on a started session flushes and resets the old item before the new id
// is taken over.
func (c *Controller) ObserveCandidate(now time.Time, cand extract.Candidate, pageURL string) {
	if pageURL != "" {
		c.pageURL = pageURL
	}

	if c.session.Started && c.session.ItemID != "" && cand.ItemID != "" && cand.ItemID != c.session.ItemID {
		c.logger.Debug("item switch", "from", c.session.ItemID, "to", cand.ItemID)
		c.Accrue(now)
		c.MaybeSend(now, domain.ReasonSwitch)
		c.session.Reset()
	}

	if cand.ItemID != "" {
		c.session.ItemID = cand.ItemID
	}
	if cand.Section != "" {
		c.session.Section = cand.Section
	}
	if cand.Source != "" {
		c.session.Source = cand.Source
	}

	c.maybeStart(now)
}

func (c *Controller) maybeStart(now time.Time) {
	if c.session.Started || c.session.ItemID == "" {
		return
	}
	if err := c.identity.Validate(c.teams); err != nil {
		if !c.warned {
			c.logger.Warn("identity not configured, session will not start", "error", err)
			c.warned = true
		}
		return
	}
	if !c.session.Source.SelfContained() && !c.activity.Seen() {
		return
	}

	c.engine.Reset(now)
	c.session.Started = true
	c.send(now, domain.ReasonOpen, false)
}

// MaybeSend emits an event with reason only if a counter grew since the last
// transmission.
func (c *Controller) MaybeSend(now time.Time, reason domain.Reason) bool {
	if !c.session.Started || !c.session.HasUnsent() {
		return false
	}
	return c.send(now, reason, false)
}

// Heartbeat flushes whatever accrued since the previous send.
func (c *Controller) Heartbeat(now time.Time) bool {
	return c.MaybeSend(now, domain.ReasonHeartbeat)
}

// VisibilityChanged accrues up to now and flushes.
func (c *Controller) VisibilityChanged(now time.Time) bool {
	c.Accrue(now)
	return c.MaybeSend(now, domain.ReasonVisibility)
}

// Unload accrues and sends the final event through the reliable transport,
// at most once per page and regardless of what was sent before.
func (c *Controller) Unload(now time.Time) bool {
	if c.unloaded {
		return false
	}
	c.unloaded = true
	c.Accrue(now)

	if c.session.ItemID == "" || !c.identity.Valid(c.teams) {
		return false
	}
	return c.send(now, domain.ReasonUnload, true)
}

func (c *Controller) send(now time.Time, reason domain.Reason, reliable bool) bool {
	ev := domain.NewEvent(now, c.identity, &c.session, reason, c.pageURL, c.sessionID)
	body, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("failed to encode event", "reason", reason, "error", err)
		return false
	}

	if reliable {
		c.delivery.SendReliable(body)
	} else {
		c.delivery.SendNormal(body)
	}
	c.session.MarkSent()
	c.metrics.RecordEvent(context.Background(), reason, c.session.Source)
	c.logger.Debug("event sent", "reason", reason, "item", c.session.ItemID,
		"active_ms", c.session.ActiveMs, "idle_ms", c.session.IdleMs)
	return true
}

type noopMetrics struct{}

func (noopMetrics) RecordAccrual(context.Context, ports.AccrualKind, int64)   {}
func (noopMetrics) RecordEvent(context.Context, domain.Reason, domain.Source) {}
func (noopMetrics) RecordDeliveryFailure(context.Context, ports.DeliveryMode) {}
func (noopMetrics) Close(context.Context) error                               { return nil }
