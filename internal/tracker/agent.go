package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/config"
	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/extract"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// Agent tracks one page. All session state is owned by the goroutine running
// Run; page adapters only touch the activity monitor.
type Agent struct {
	page       ports.Page
	extractors *extract.Set
	controller *Controller
	clock      Clock
	timers     config.TimersConfig
	identities <-chan domain.Identity
	sessionID  string
	logger     hclog.Logger
}

type AgentDeps struct {
	Extractors *extract.Set
	Activity   *ActivityMonitor
	Delivery   ports.DeliveryChannel
	Metrics    ports.MetricsRecorder
	Identity   domain.Identity
	// Identities delivers identities saved while the page is open.
	Identities <-chan domain.Identity
	Config     *config.Config
	Clock      Clock
	Logger     hclog.Logger
}

func NewAgent(page ports.Page, deps AgentDeps) *Agent {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	sessionID := uuid.New().String()
	logger := deps.Logger.With("session_id", sessionID)

	return &Agent{
		page:       page,
		extractors: deps.Extractors,
		controller: NewController(deps.Clock.Now(), ControllerDeps{
			Activity:   deps.Activity,
			Gate:       NewGate(extract.Overlays(cfg.Extract)),
			Delivery:   deps.Delivery,
			Metrics:    deps.Metrics,
			Identity:   deps.Identity,
			Teams:      cfg.Teams,
			Thresholds: Thresholds{Active: cfg.Idle.ActiveThreshold, Discard: cfg.Idle.DiscardThreshold},
			SessionID:  sessionID,
			Logger:     logger,
		}),
		clock:      deps.Clock,
		timers:     cfg.Timers,
		identities: deps.Identities,
		sessionID:  sessionID,
		logger:     logger,
	}
}

func (a *Agent) SessionID() string {
	return a.sessionID
}

// Run drives the tick, rescan and heartbeat timers until the page unloads or
// ctx is cancelled. Cancellation is handled as an unload.
func (a *Agent) Run(ctx context.Context) {
	tick := time.NewTicker(a.timers.Tick)
	defer tick.Stop()
	rescan := time.NewTicker(a.timers.Rescan)
	defer rescan.Stop()
	heartbeat := time.NewTicker(a.timers.Heartbeat)
	defer heartbeat.Stop()

	a.logger.Debug("agent started")
	a.probe(ctx)
	a.rescan(ctx)

	events := a.page.Events()
	for {
		select {
		case <-ctx.Done():
			a.unload()
			return
		case <-tick.C:
			a.onTick(ctx)
		case <-rescan.C:
			a.rescan(ctx)
		case <-heartbeat.C:
			a.onHeartbeat(ctx)
		case ev, ok := <-events:
			if !ok {
				a.unload()
				return
			}
			if a.onPageEvent(ctx, ev) {
				return
			}
		case id := <-a.identities:
			a.onIdentity(ctx, id)
		}
	}
}

func (a *Agent) onTick(ctx context.Context) {
	a.probe(ctx)
	a.controller.Accrue(a.clock.Now())
}

func (a *Agent) onHeartbeat(ctx context.Context) {
	a.controller.Accrue(a.clock.Now())
	a.rescan(ctx)
	a.controller.Heartbeat(a.clock.Now())
}

// onPageEvent reports whether the page is gone.
func (a *Agent) onPageEvent(ctx context.Context, ev domain.PageEvent) bool {
	switch ev.Type {
	case domain.PageMutated:
		a.rescan(ctx)
	case domain.PageVisibilityChanged:
		a.controller.VisibilityChanged(a.clock.Now())
		a.probe(ctx)
	case domain.PageUnloaded:
		a.unload()
		return true
	}
	return false
}

func (a *Agent) onIdentity(ctx context.Context, id domain.Identity) {
	if a.controller.SetIdentity(id) {
		a.logger.Info("identity updated", "email", id.Email, "team", id.Team)
		a.rescan(ctx)
	}
}

// probe refreshes the page state. A failed probe counts as an ineligible
// moment so the tick is skipped without losing the clock.
func (a *Agent) probe(ctx context.Context) {
	state, err := a.page.State(ctx)
	if err != nil {
		a.logger.Debug("page probe failed", "error", err)
		state = domain.PageState{}
	}
	a.controller.SetPageState(state)
}

func (a *Agent) rescan(ctx context.Context) {
	content, err := a.page.Content(ctx, a.extractors.Selectors())
	if err != nil {
		a.logger.Debug("page scan failed", "error", err)
		return
	}
	a.controller.ObserveCandidate(a.clock.Now(), a.extractors.Scan(content), content.URL)
}

func (a *Agent) unload() {
	if a.controller.Unload(a.clock.Now()) {
		a.logger.Debug("unload sent")
	}
	a.logger.Debug("agent stopped")
}
