package feed

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// AttachFunc tracks one page until it goes away.
type AttachFunc func(ctx context.Context, open ports.PageOpener) error

type HandlerConfig struct {
	Selectors      []string
	TextLimit      int
	AllowedOrigins []string
}

// Handler upgrades /ws connections and runs one tracked page per connection.
// Pages are tied to ctx rather than to the request so that cancelling ctx
// unloads every open page.
type Handler struct {
	ctx            context.Context
	attach         AttachFunc
	selectors      []string
	textLimit      int
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	logger         hclog.Logger
	wg             sync.WaitGroup
}

func NewHandler(ctx context.Context, attach AttachFunc, cfg HandlerConfig, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	h := &Handler{
		ctx:            ctx,
		attach:         attach,
		selectors:      cfg.Selectors,
		textLimit:      cfg.TextLimit,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		logger:         logger,
	}
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Counted before the upgrade hijacks the connection, so Wait never
	// races with a page that is still being attached.
	h.wg.Add(1)
	defer h.wg.Done()

	if h.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	logger := h.logger.With("remote", r.RemoteAddr)
	logger.Debug("page connected")

	req := ScanRequest{Type: MsgScanRequest, Selectors: h.selectors, TextLimit: h.textLimit}
	if err := conn.WriteJSON(req); err != nil {
		logger.Warn("failed to send scan request", "error", err)
		_ = conn.Close()
		return
	}

	var page *Page
	err = h.attach(h.ctx, func(rec ports.InteractionRecorder) (ports.Page, error) {
		page = newPage(conn, rec, logger)
		return page, nil
	})
	if err != nil {
		logger.Warn("page tracking failed", "error", err)
	}
	if page != nil {
		_ = page.Close()
	} else {
		_ = conn.Close()
	}
	logger.Debug("page disconnected")
}

// Wait blocks until every connected page has finished its unload.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	if h.allowedOrigins[origin] {
		return true
	}
	if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
		return h.allowedHosts[parsed.Host]
	}
	return false
}
