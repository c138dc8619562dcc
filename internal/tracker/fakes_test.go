package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

var t0 = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type sentEvent struct {
	TS          string `json:"ts"`
	Reason      string `json:"reason"`
	ComplaintID string `json:"complaint_id"`
	Section     string `json:"section"`
	Source      string `json:"source"`
	Email       string `json:"email"`
	Team        string `json:"team"`
	Page        string `json:"page"`
	SessionID   string `json:"session_id"`
	ActiveMs    int64  `json:"active_ms"`
	IdleMs      int64  `json:"idle_ms"`
	Reliable    bool   `json:"-"`
}

type recordingChannel struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingChannel) SendNormal(body []byte)   { r.record(body, false) }
func (r *recordingChannel) SendReliable(body []byte) { r.record(body, true) }

func (r *recordingChannel) record(body []byte, reliable bool) {
	var ev sentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		panic(err)
	}
	ev.Reliable = reliable
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingChannel) Events() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEvent(nil), r.events...)
}

func (r *recordingChannel) Reasons() []string {
	var out []string
	for _, ev := range r.Events() {
		out = append(out, ev.Reason)
	}
	return out
}

type fakePage struct {
	mu       sync.Mutex
	state    domain.PageState
	content  domain.PageContent
	stateErr error
	events   chan domain.PageEvent
}

func newFakePage(itemID string) *fakePage {
	p := &fakePage{
		state:  visible(),
		events: make(chan domain.PageEvent, 4),
	}
	if itemID != "" {
		p.content = domain.PageContent{
			URL:      "https://crm.example.com/case?SR=" + itemID,
			Elements: map[string]domain.Element{"#bcTitle": {Title: "Product Analysis:8317, Open"}},
		}
	}
	return p
}

func (p *fakePage) State(context.Context) (domain.PageState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.stateErr
}

func (p *fakePage) Content(_ context.Context, _ []string) (domain.PageContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content, nil
}

func (p *fakePage) Events() <-chan domain.PageEvent { return p.events }

func (p *fakePage) SetURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content.URL = u
}

func visible() domain.PageState {
	return domain.PageState{Visibility: domain.VisibilityVisible, Focused: true}
}

func validIdentity() domain.Identity {
	return domain.Identity{Email: "ops@example.com", Team: "intake"}
}

func assertEqual[T comparable](t *testing.T, name string, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", name, expected, actual)
	}
}
