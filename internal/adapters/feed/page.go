package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

var (
	ErrNoState   = errors.New("page has not reported its state yet")
	ErrNoContent = errors.New("page has not reported its content yet")
)

// Page serves the last state and content the script pushed. The events
// channel is closed when the connection drops.
type Page struct {
	conn     *websocket.Conn
	recorder ports.InteractionRecorder
	events   chan domain.PageEvent
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	logger   hclog.Logger

	mu      sync.Mutex
	state   *domain.PageState
	content *domain.PageContent
}

func newPage(conn *websocket.Conn, rec ports.InteractionRecorder, logger hclog.Logger) *Page {
	p := &Page{
		conn:     conn,
		recorder: rec,
		events:   make(chan domain.PageEvent, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go p.read()
	return p
}

func (p *Page) State(context.Context) (domain.PageState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return domain.PageState{}, ErrNoState
	}
	return *p.state, nil
}

// Content returns the last pushed content. The selectors were sent to the
// script when the connection opened.
func (p *Page) Content(context.Context, []string) (domain.PageContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.content == nil {
		return domain.PageContent{}, ErrNoContent
	}
	return *p.content, nil
}

func (p *Page) Events() <-chan domain.PageEvent {
	return p.events
}

// Close drops the connection and waits for the reader to stop.
func (p *Page) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	err := p.conn.Close()
	<-p.done
	return err
}

func (p *Page) read() {
	defer close(p.done)
	defer close(p.events)

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("feed read ended", "error", err)
			}
			return
		}
		p.handle(msg)
	}
}

func (p *Page) handle(msg Message) {
	switch msg.Type {
	case MsgState:
		if msg.State != nil {
			p.mu.Lock()
			p.state = msg.State
			p.mu.Unlock()
		}
	case MsgContent:
		if msg.Content != nil {
			p.mu.Lock()
			p.content = msg.Content
			p.mu.Unlock()
		}
	case MsgInteraction:
		at := time.Now()
		if msg.At > 0 {
			at = time.UnixMilli(msg.At)
		}
		p.recorder.Record(at)
	case MsgMutation:
		p.emit(domain.PageEvent{Type: domain.PageMutated})
	case MsgVisibility:
		p.emit(domain.PageEvent{Type: domain.PageVisibilityChanged})
	case MsgUnload:
		p.emit(domain.PageEvent{Type: domain.PageUnloaded})
	default:
		p.logger.Debug("unknown feed message", "type", msg.Type)
	}
}

// emit blocks the reader until the agent takes the event, so events keep
// their order relative to the cached state updates around them.
func (p *Page) emit(ev domain.PageEvent) {
	select {
	case p.events <- ev:
	case <-p.stop:
	}
}
