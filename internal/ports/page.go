package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// InteractionRecorder receives every qualifying input signal from a page.
// Implementations must not block; adapters call it from their own goroutines.
type InteractionRecorder interface {
	Record(at time.Time)
}

// Page is a single loaded page the tracker is attached to.
type Page interface {
	// State probes visibility, focus and embedded frames. Called every tick.
	State(ctx context.Context) (domain.PageState, error)
	// Content reads URL, title, body text and the given selectors. Called on every scan.
	Content(ctx context.Context, selectors []string) (domain.PageContent, error)
	// Events delivers mutation, visibility and unload notifications. A page
	// that goes away either sends PageUnloaded or closes the channel.
	Events() <-chan domain.PageEvent
}

// PageOpener builds a Page whose input listeners report to rec.
type PageOpener func(rec InteractionRecorder) (Page, error)
