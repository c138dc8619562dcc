package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

var (
	//go:embed js/hooks.js
	hooksJS string
	//go:embed js/state.js
	stateJS string
	//go:embed js/content.js
	contentJS string
)

// probe is what state.js returns.
type probe struct {
	Visibility        domain.Visibility `json:"visibility"`
	Focused           bool              `json:"focused"`
	Frames            []domain.Frame    `json:"frames"`
	LastInteraction   int64             `json:"last_interaction"`
	Mutations         int64             `json:"mutations"`
	VisibilityChanges int64             `json:"visibility_changes"`
}

// Page is one document loaded in a tab. A navigation ends it; callers open a
// new Page on the same tab to keep tracking.
type Page struct {
	page       *rod.Page
	recorder   ports.InteractionRecorder
	textLimit  int
	events     chan domain.PageEvent
	removeHook func() error
	cancel     context.CancelFunc
	logger     hclog.Logger

	mu         sync.Mutex
	last       int64
	mutations  int64
	visibility int64
	gone       bool
	unloaded   bool
}

// Open installs the input listeners on target and starts watching it for
// navigation and closure.
func Open(ctx context.Context, browser *rod.Browser, target *rod.Page, rec ports.InteractionRecorder, textLimit int, logger hclog.Logger) (*Page, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	remove, err := target.EvalOnNewDocument("(" + hooksJS + ")()")
	if err != nil {
		return nil, fmt.Errorf("install hooks: %w", err)
	}
	if _, err := target.Context(ctx).Evaluate(&rod.EvalOptions{JS: hooksJS, ByValue: true, AwaitPromise: true}); err != nil {
		_ = remove()
		return nil, fmt.Errorf("install hooks: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p := &Page{
		page:       target,
		recorder:   rec,
		textLimit:  textLimit,
		events:     make(chan domain.PageEvent, 4),
		removeHook: remove,
		cancel:     cancel,
		logger:     logger.With("target", string(target.TargetID)),
	}

	waitNav := target.Context(watchCtx).EachEvent(func(ev *proto.PageFrameNavigated) bool {
		if ev.Frame.ParentID != "" {
			return false
		}
		p.logger.Debug("main frame navigated", "url", ev.Frame.URL)
		p.unload(watchCtx, false)
		return true
	})
	waitClose := browser.Context(watchCtx).EachEvent(func(ev *proto.TargetTargetDestroyed) bool {
		if ev.TargetID != target.TargetID {
			return false
		}
		p.logger.Debug("tab closed")
		p.unload(watchCtx, true)
		return true
	})
	go waitNav()
	go waitClose()

	return p, nil
}

func (p *Page) Events() <-chan domain.PageEvent {
	return p.events
}

// Gone reports whether the tab itself was closed, as opposed to navigated.
func (p *Page) Gone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gone
}

// Close stops the watchers and removes the new-document hook.
func (p *Page) Close() error {
	p.cancel()
	return p.removeHook()
}

func (p *Page) State(ctx context.Context) (domain.PageState, error) {
	var pr probe
	if err := p.eval(ctx, &pr, stateJS); err != nil {
		return domain.PageState{}, err
	}

	p.mu.Lock()
	interacted := pr.LastInteraction > p.last
	mutated := pr.Mutations > p.mutations
	flipped := pr.VisibilityChanges > p.visibility
	p.last = max(p.last, pr.LastInteraction)
	p.mutations = max(p.mutations, pr.Mutations)
	p.visibility = max(p.visibility, pr.VisibilityChanges)
	p.mu.Unlock()

	if interacted {
		p.recorder.Record(time.UnixMilli(pr.LastInteraction))
	}
	if flipped {
		p.emit(domain.PageEvent{Type: domain.PageVisibilityChanged})
	}
	if mutated {
		p.emit(domain.PageEvent{Type: domain.PageMutated})
	}

	return domain.PageState{
		Visibility: pr.Visibility,
		Focused:    pr.Focused,
		Frames:     pr.Frames,
	}, nil
}

func (p *Page) Content(ctx context.Context, selectors []string) (domain.PageContent, error) {
	var c domain.PageContent
	if selectors == nil {
		selectors = []string{}
	}
	if err := p.eval(ctx, &c, contentJS, selectors, p.textLimit); err != nil {
		return domain.PageContent{}, err
	}
	return c, nil
}

func (p *Page) eval(ctx context.Context, out any, js string, args ...any) error {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// emit is called from the agent goroutine through State, so it must not block.
// Dropped events are coalesced into the one already queued.
func (p *Page) emit(ev domain.PageEvent) {
	select {
	case p.events <- ev:
	default:
	}
}

func (p *Page) unload(ctx context.Context, gone bool) {
	p.mu.Lock()
	if p.unloaded {
		p.gone = p.gone || gone
		p.mu.Unlock()
		return
	}
	p.unloaded = true
	p.gone = gone
	p.mu.Unlock()

	select {
	case p.events <- domain.PageEvent{Type: domain.PageUnloaded}:
	case <-ctx.Done():
	}
}
