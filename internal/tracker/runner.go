package tracker

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/config"
	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/extract"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// Runner wires the shared services into a fresh Agent for every page that
// attaches. It is safe for concurrent use.
type Runner struct {
	Extractors *extract.Set
	Delivery   ports.DeliveryChannel
	Metrics    ports.MetricsRecorder
	Store      ports.IdentityStore
	Hub        *IdentityHub
	Config     *config.Config
	Clock      Clock
	Logger     hclog.Logger
}

// Attach opens a page and tracks it until it unloads or ctx is cancelled.
// The stored identity is read once per page, like a content script reading
// its settings on load.
func (r *Runner) Attach(ctx context.Context, open ports.PageOpener) error {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	activity := NewActivityMonitor()
	page, err := open(activity)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	var identity domain.Identity
	if r.Store != nil {
		identity, err = r.Store.Load(ctx)
		if err != nil {
			logger.Warn("failed to load identity", "error", err)
		}
	}

	var updates <-chan domain.Identity
	if r.Hub != nil {
		ch, release := r.Hub.Subscribe()
		defer release()
		updates = ch
	}

	agent := NewAgent(page, AgentDeps{
		Extractors: r.Extractors,
		Activity:   activity,
		Delivery:   r.Delivery,
		Metrics:    r.Metrics,
		Identity:   identity,
		Identities: updates,
		Config:     r.Config,
		Clock:      r.Clock,
		Logger:     logger,
	})
	agent.Run(ctx)
	return nil
}
