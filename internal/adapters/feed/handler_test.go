package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

type recorder struct {
	mu  sync.Mutex
	got []time.Time
}

func (r *recorder) Record(at time.Time) {
	r.mu.Lock()
	r.got = append(r.got, at)
	r.mu.Unlock()
}

func (r *recorder) Last() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return time.Time{}, false
	}
	return r.got[len(r.got)-1], true
}

// attached is what the test attach func hands back for each connection.
type attached struct {
	page ports.Page
	rec  *recorder
	done chan struct{}
}

func setupFeed(t *testing.T, cfg HandlerConfig) (*httptest.Server, chan attached, *Handler) {
	t.Helper()
	pages := make(chan attached, 1)
	attach := func(ctx context.Context, open ports.PageOpener) error {
		rec := &recorder{}
		page, err := open(rec)
		if err != nil {
			return err
		}
		a := attached{page: page, rec: rec, done: make(chan struct{})}
		pages <- a
		<-a.done
		return nil
	}
	h := NewHandler(context.Background(), attach, cfg, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, pages, h
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func nextEvent(t *testing.T, page ports.Page) (domain.PageEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-page.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for page event")
		return domain.PageEvent{}, false
	}
}

func TestHandler_ScanRequest(t *testing.T) {
	srv, pages, _ := setupFeed(t, HandlerConfig{Selectors: []string{"#caseNumber", "#bcTitle"}, TextLimit: 500})
	conn := dial(t, srv, nil)

	var req ScanRequest
	if err := conn.ReadJSON(&req); err != nil {
		t.Fatalf("failed to read scan request: %v", err)
	}
	assertEqual(t, "type", MsgScanRequest, req.Type)
	assertEqual(t, "selectors", "#caseNumber,#bcTitle", strings.Join(req.Selectors, ","))
	assertEqual(t, "text limit", 500, req.TextLimit)

	a := <-pages
	close(a.done)
}

func TestHandler_StreamsPageActivity(t *testing.T) {
	srv, pages, _ := setupFeed(t, HandlerConfig{})
	conn := dial(t, srv, nil)
	a := <-pages
	defer close(a.done)

	if _, err := a.page.State(context.Background()); err != ErrNoState {
		t.Fatalf("expected ErrNoState before first report, got %v", err)
	}
	if _, err := a.page.Content(context.Background(), nil); err != ErrNoContent {
		t.Fatalf("expected ErrNoContent before first report, got %v", err)
	}

	at := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	msgs := []Message{
		{Type: MsgState, State: &domain.PageState{Visibility: domain.VisibilityVisible, Focused: true}},
		{Type: MsgContent, Content: &domain.PageContent{URL: "https://crm.example.com/case?SR=7123456", Title: "Case"}},
		{Type: MsgInteraction, At: at.UnixMilli()},
		{Type: MsgMutation},
	}
	for _, m := range msgs {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	ev, ok := nextEvent(t, a.page)
	if !ok {
		t.Fatal("events closed early")
	}
	assertEqual(t, "event", domain.PageMutated, ev.Type)

	state, err := a.page.State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, "visibility", domain.VisibilityVisible, state.Visibility)
	assertEqual(t, "focused", true, state.Focused)

	content, err := a.page.Content(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, "url", "https://crm.example.com/case?SR=7123456", content.URL)

	last, ok := a.rec.Last()
	assertEqual(t, "interaction recorded", true, ok)
	assertEqual(t, "interaction time", true, last.Equal(at))

	if err := conn.WriteJSON(Message{Type: MsgVisibility}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev, _ = nextEvent(t, a.page)
	assertEqual(t, "event", domain.PageVisibilityChanged, ev.Type)

	if err := conn.WriteJSON(Message{Type: MsgUnload}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev, _ = nextEvent(t, a.page)
	assertEqual(t, "event", domain.PageUnloaded, ev.Type)
}

func TestHandler_DisconnectClosesEvents(t *testing.T) {
	srv, pages, h := setupFeed(t, HandlerConfig{})
	conn := dial(t, srv, nil)
	a := <-pages

	_ = conn.Close()
	for {
		if _, ok := nextEvent(t, a.page); !ok {
			break
		}
	}
	close(a.done)

	waited := make(chan struct{})
	go func() {
		h.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after disconnect")
	}
}

func TestHandler_CheckOrigin(t *testing.T) {
	srv, pages, _ := setupFeed(t, HandlerConfig{AllowedOrigins: []string{"https://crm.example.com"}})

	conn := dial(t, srv, http.Header{"Origin": {"https://crm.example.com"}})
	a := <-pages
	close(a.done)
	_ = conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatal("expected a foreign origin to be rejected")
	}
	assertEqual(t, "status", http.StatusForbidden, resp.StatusCode)
}

func TestHandler_WaitCoversAttachedPages(t *testing.T) {
	srv, pages, h := setupFeed(t, HandlerConfig{})
	dial(t, srv, nil)

	var a attached
	select {
	case a = <-pages:
	case <-time.After(2 * time.Second):
		t.Fatal("page was never attached")
	}

	waited := make(chan struct{})
	go func() {
		h.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a page was still attached")
	case <-time.After(50 * time.Millisecond):
	}

	close(a.done)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the page finished")
	}
}

func TestHandler_RejectsPagesAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := false
	attach := func(ctx context.Context, open ports.PageOpener) error {
		called = true
		return nil
	}
	h := NewHandler(ctx, attach, HandlerConfig{}, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cancel()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err == nil {
		t.Fatal("expected handshake to fail after shutdown")
	}
	if resp == nil {
		t.Fatalf("expected an HTTP response, got %v", err)
	}
	assertEqual(t, "status", http.StatusServiceUnavailable, resp.StatusCode)

	h.Wait()
	assertEqual(t, "attached", false, called)
}

func assertEqual[T comparable](t *testing.T, name string, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", name, expected, actual)
	}
}
