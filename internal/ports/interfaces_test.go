package ports_test

import (
	"testing"

	"github.com/emiliopalmerini/worktimer/internal/adapters/browser"
	"github.com/emiliopalmerini/worktimer/internal/adapters/delivery"
	"github.com/emiliopalmerini/worktimer/internal/adapters/feed"
	"github.com/emiliopalmerini/worktimer/internal/adapters/otel"
	"github.com/emiliopalmerini/worktimer/internal/adapters/turso"
	"github.com/emiliopalmerini/worktimer/internal/ports"
	"github.com/emiliopalmerini/worktimer/internal/tracker"
)

// Compile-time interface conformance checks.
// These verify that concrete adapters properly implement their port interfaces.

func TestIdentityStoreConformance(t *testing.T) {
	var _ ports.IdentityStore = (*turso.IdentityRepository)(nil)
}

func TestDeliveryChannelConformance(t *testing.T) {
	var _ ports.DeliveryChannel = (*delivery.HTTPChannel)(nil)
}

func TestMetricsRecorderConformance(t *testing.T) {
	var _ ports.MetricsRecorder = (*otel.Recorder)(nil)
	var _ ports.MetricsRecorder = (*otel.NoOpRecorder)(nil)
}

func TestPageConformance(t *testing.T) {
	var _ ports.Page = (*feed.Page)(nil)
	var _ ports.Page = (*browser.Page)(nil)
}

func TestInteractionRecorderConformance(t *testing.T) {
	var _ ports.InteractionRecorder = (*tracker.ActivityMonitor)(nil)
}

func TestPageOpenerConformance(t *testing.T) {
	var _ ports.PageOpener = func(ports.InteractionRecorder) (ports.Page, error) { return nil, nil }
	var _ feed.AttachFunc = (&tracker.Runner{}).Attach
}
