package tracker

import (
	"strings"
	"testing"
	"time"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/extract"
)

type harness struct {
	clock    *fakeClock
	activity *ActivityMonitor
	channel  *recordingChannel
	ctrl     *Controller
}

func newHarness(id domain.Identity) *harness {
	h := &harness{
		clock:    newFakeClock(),
		activity: NewActivityMonitor(),
		channel:  &recordingChannel{},
	}
	h.ctrl = NewController(h.clock.Now(), ControllerDeps{
		Activity:  h.activity,
		Gate:      NewGate([]extract.Location{{Host: "partner.example.com", PathPrefix: "/embedded"}}),
		Delivery:  h.channel,
		Identity:  id,
		Teams:     []string{"intake", "investigation"},
		SessionID: "sess-1",
	})
	h.ctrl.SetPageState(visible())
	return h
}

func (h *harness) interact() {
	h.activity.Record(h.clock.Now())
}

func (h *harness) observe(id string) {
	h.ctrl.ObserveCandidate(h.clock.Now(), extract.Candidate{
		ItemID:  id,
		Section: "Product Analysis",
		Source:  domain.SourcePrimary,
	}, "https://crm.example.com/case?SR="+id)
}

// started returns a harness whose session on 7123456 has already sent open.
func started() *harness {
	h := newHarness(validIdentity())
	h.interact()
	h.observe("7123456")
	return h
}

// activeTicks advances n ticks of d with an interaction at every tick.
func (h *harness) activeTicks(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		h.clock.Advance(d)
		h.interact()
		h.ctrl.Accrue(h.clock.Now())
	}
}

func TestController_OpenWaitsForFirstInteraction(t *testing.T) {
	h := newHarness(validIdentity())

	h.observe("7123456")
	if h.ctrl.Session().Started {
		t.Fatal("session must not start before any interaction")
	}
	assertEqual(t, "events before interaction", 0, len(h.channel.Events()))
	assertEqual(t, "item id is still tracked", "7123456", h.ctrl.Session().ItemID)

	h.clock.Advance(3 * time.Second)
	h.interact()
	h.clock.Advance(2 * time.Second)
	h.observe("7123456")

	events := h.channel.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %v", h.channel.Reasons())
	}
	assertEqual(t, "reason", "open", events[0].Reason)
	assertEqual(t, "active_ms", int64(0), events[0].ActiveMs)
	assertEqual(t, "idle_ms", int64(0), events[0].IdleMs)
	assertEqual(t, "complaint_id", "7123456", events[0].ComplaintID)
	assertEqual(t, "section", "Product Analysis", events[0].Section)
	assertEqual(t, "session_id", "sess-1", events[0].SessionID)
	assertEqual(t, "reliable", false, events[0].Reliable)

	h.observe("7123456")
	assertEqual(t, "open is sent once", 1, len(h.channel.Events()))
}

func TestController_OverlayHostStartsWithoutInteraction(t *testing.T) {
	h := newHarness(validIdentity())
	h.ctrl.ObserveCandidate(h.clock.Now(), extract.Candidate{
		ItemID: "7123456",
		Source: domain.SourceOverlayHost,
	}, "https://partner.example.com/embedded/case")

	assertEqual(t, "reasons", "open", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "source", "overlay-host", h.channel.Events()[0].Source)
}

func TestController_InvalidIdentityNeverEmits(t *testing.T) {
	for _, id := range []domain.Identity{
		{},
		{Email: "ops@example.com"},
		{Email: "ops@example.com", Team: "sales"},
		{Email: "not-an-email", Team: "intake"},
	} {
		h := newHarness(id)
		h.interact()
		h.observe("7123456")
		h.activeTicks(5, time.Second)
		h.ctrl.Heartbeat(h.clock.Now())
		h.ctrl.VisibilityChanged(h.clock.Now())
		h.ctrl.Unload(h.clock.Now())

		if n := len(h.channel.Events()); n != 0 {
			t.Errorf("identity %+v: expected no events, got %v", id, h.channel.Reasons())
		}
	}
}

func TestController_SetIdentityStartsWaitingPage(t *testing.T) {
	h := newHarness(domain.Identity{})
	h.interact()
	h.observe("7123456")
	assertEqual(t, "events", 0, len(h.channel.Events()))

	if !h.ctrl.SetIdentity(domain.Identity{Email: " ops@example.com ", Team: "intake"}) {
		t.Fatal("expected identity to be applied")
	}
	h.observe("7123456")
	assertEqual(t, "reasons", "open", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "email", "ops@example.com", h.channel.Events()[0].Email)

	if h.ctrl.SetIdentity(domain.Identity{Email: "other@example.com", Team: "investigation"}) {
		t.Fatal("a valid identity must not be replaced")
	}
}

func TestController_StoredIdentityIsNormalized(t *testing.T) {
	h := newHarness(domain.Identity{Email: "\tops@example.com ", Team: " intake\n"})
	h.interact()
	h.observe("7123456")

	assertEqual(t, "reasons", "open", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "email", "ops@example.com", h.channel.Events()[0].Email)
	assertEqual(t, "team", "intake", h.channel.Events()[0].Team)
}

func TestController_ActiveAccrualIsTickSum(t *testing.T) {
	for _, n := range []int{1, 7, 45} {
		h := started()
		h.activeTicks(n, 1500*time.Millisecond)

		assertEqual(t, "ActiveMs", int64(n)*1500, h.ctrl.Session().ActiveMs)
		assertEqual(t, "IdleMs", int64(0), h.ctrl.Session().IdleMs)
	}
}

func TestController_IneligibleTicksAccrueNothing(t *testing.T) {
	states := map[string]domain.PageState{
		"hidden":    {Visibility: domain.VisibilityHidden, Focused: true},
		"unfocused": {Visibility: domain.VisibilityVisible, Focused: false},
		"overlay": {
			Visibility: domain.VisibilityVisible,
			Focused:    true,
			Frames:     []domain.Frame{{URL: "https://partner.example.com/embedded/x", Width: 400, Height: 300}},
		},
	}

	for name, state := range states {
		t.Run(name, func(t *testing.T) {
			h := started()
			h.activeTicks(3, time.Second)
			h.ctrl.SetPageState(state)
			h.activeTicks(10, time.Second)

			assertEqual(t, "ActiveMs", int64(3000), h.ctrl.Session().ActiveMs)
			assertEqual(t, "IdleMs", int64(0), h.ctrl.Session().IdleMs)

			h.ctrl.SetPageState(visible())
			h.activeTicks(1, time.Second)
			assertEqual(t, "resumes without backlog", int64(4000), h.ctrl.Session().ActiveMs)
		})
	}
}

func TestController_IdleTierBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		gap        time.Duration
		wantActive int64
		wantIdle   int64
	}{
		{"just below active threshold", 29999 * time.Millisecond, 1000, 0},
		{"just above active threshold", 30001 * time.Millisecond, 0, 1000},
		{"at active threshold", 30000 * time.Millisecond, 0, 1000},
		{"just below discard threshold", 299999 * time.Millisecond, 0, 1000},
		{"just above discard threshold", 300001 * time.Millisecond, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := started()
			h.clock.Advance(tt.gap - time.Second)
			h.ctrl.Accrue(h.clock.Now())
			before := h.ctrl.Session()

			h.clock.Advance(time.Second)
			h.ctrl.Accrue(h.clock.Now())
			after := h.ctrl.Session()

			assertEqual(t, "active delta", tt.wantActive, after.ActiveMs-before.ActiveMs)
			assertEqual(t, "idle delta", tt.wantIdle, after.IdleMs-before.IdleMs)
		})
	}
}

func TestController_MaybeSendIsIdempotent(t *testing.T) {
	h := started()
	h.activeTicks(5, time.Second)

	if !h.ctrl.MaybeSend(h.clock.Now(), domain.ReasonHeartbeat) {
		t.Fatal("expected first flush to send")
	}
	if h.ctrl.MaybeSend(h.clock.Now(), domain.ReasonHeartbeat) {
		t.Fatal("expected second flush without growth to be skipped")
	}
	assertEqual(t, "reasons", "open,heartbeat", strings.Join(h.channel.Reasons(), ","))

	h.activeTicks(1, time.Second)
	if !h.ctrl.MaybeSend(h.clock.Now(), domain.ReasonVisibility) {
		t.Fatal("expected flush after growth")
	}
	assertEqual(t, "totals are cumulative", int64(6000), h.channel.Events()[2].ActiveMs)
}

func TestController_HeartbeatAfter45ActiveTicks(t *testing.T) {
	h := started()
	h.activeTicks(45, time.Second)
	h.ctrl.Heartbeat(h.clock.Now())

	events := h.channel.Events()
	assertEqual(t, "reasons", "open,heartbeat", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "active_ms", int64(45000), events[1].ActiveMs)
	assertEqual(t, "idle_ms", int64(0), events[1].IdleMs)
	assertEqual(t, "ts", "2025-03-04T09:00:45.000Z", events[1].TS)
}

func TestController_SwitchFlushesThenResets(t *testing.T) {
	h := started()
	h.activeTicks(10, time.Second)
	h.clock.Advance(40 * time.Second)
	h.ctrl.Accrue(h.clock.Now())
	h.clock.Advance(time.Second)

	h.observe("8123456")

	events := h.channel.Events()
	assertEqual(t, "reasons", "open,switch,open", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "switch item", "7123456", events[1].ComplaintID)
	assertEqual(t, "switch active", int64(10000), events[1].ActiveMs)
	assertEqual(t, "switch idle", int64(41000), events[1].IdleMs)

	s := h.ctrl.Session()
	assertEqual(t, "new item", "8123456", s.ItemID)
	assertEqual(t, "ActiveMs reset", int64(0), s.ActiveMs)
	assertEqual(t, "IdleMs reset", int64(0), s.IdleMs)
	assertEqual(t, "LastSentActiveMs reset", int64(0), s.LastSentActiveMs)
	assertEqual(t, "LastSentIdleMs reset", int64(0), s.LastSentIdleMs)
	assertEqual(t, "reopen item", "8123456", events[2].ComplaintID)
	assertEqual(t, "reopen active", int64(0), events[2].ActiveMs)
}

func TestController_SwitchWithoutGrowthSkipsFlush(t *testing.T) {
	h := started()
	h.activeTicks(3, time.Second)
	h.ctrl.Heartbeat(h.clock.Now())

	h.observe("8123456")

	assertEqual(t, "reasons", "open,heartbeat,open", strings.Join(h.channel.Reasons(), ","))
}

func TestController_EmptyCandidateKeepsItem(t *testing.T) {
	h := started()
	h.ctrl.ObserveCandidate(h.clock.Now(), extract.Candidate{Source: domain.SourcePrimary}, "")

	assertEqual(t, "ItemID", "7123456", h.ctrl.Session().ItemID)
	assertEqual(t, "Section", "Product Analysis", h.ctrl.Session().Section)
	assertEqual(t, "Started", true, h.ctrl.Session().Started)
}

func TestController_UnloadAlwaysSendsOnce(t *testing.T) {
	h := started()
	h.activeTicks(12, time.Second)
	h.ctrl.SetPageState(domain.PageState{Visibility: domain.VisibilityHidden})
	h.clock.Advance(30 * time.Second)
	h.ctrl.Accrue(h.clock.Now())
	h.ctrl.SetPageState(visible())
	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Second)
		h.ctrl.Accrue(h.clock.Now())
	}
	h.ctrl.Heartbeat(h.clock.Now())

	s := h.ctrl.Session()
	assertEqual(t, "ActiveMs", int64(12000), s.ActiveMs)
	assertEqual(t, "IdleMs", int64(3000), s.IdleMs)

	if !h.ctrl.Unload(h.clock.Now()) {
		t.Fatal("expected unload to be sent")
	}
	if h.ctrl.Unload(h.clock.Now()) {
		t.Fatal("expected a single unload per page")
	}

	events := h.channel.Events()
	last := events[len(events)-1]
	assertEqual(t, "reasons", "open,heartbeat,unload", strings.Join(h.channel.Reasons(), ","))
	assertEqual(t, "reliable", true, last.Reliable)
	assertEqual(t, "active_ms", int64(12000), last.ActiveMs)
	assertEqual(t, "idle_ms", int64(3000), last.IdleMs)
}

func TestController_UnloadWithoutItemSendsNothing(t *testing.T) {
	h := newHarness(validIdentity())
	h.interact()

	if h.ctrl.Unload(h.clock.Now()) {
		t.Fatal("expected no unload without an item")
	}
	assertEqual(t, "events", 0, len(h.channel.Events()))
}

func TestController_VisibilityFlushesAccruedTime(t *testing.T) {
	h := started()
	h.activeTicks(2, time.Second)
	h.clock.Advance(500 * time.Millisecond)

	if !h.ctrl.VisibilityChanged(h.clock.Now()) {
		t.Fatal("expected visibility flush")
	}
	assertEqual(t, "active_ms", int64(2500), h.channel.Events()[1].ActiveMs)
	assertEqual(t, "reason", "visibility", h.channel.Events()[1].Reason)
}

func TestController_ClockStepBackDoesNotShrinkCounters(t *testing.T) {
	h := started()
	h.activeTicks(3, time.Second)
	h.clock.Advance(-10 * time.Second)
	h.interact()
	h.ctrl.Accrue(h.clock.Now())

	assertEqual(t, "ActiveMs", int64(3000), h.ctrl.Session().ActiveMs)
}
