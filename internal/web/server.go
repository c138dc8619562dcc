// Package web serves the local options page and the page activity feed.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/adapters/feed"
	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// IdentityPublisher notifies open pages of a newly saved identity.
type IdentityPublisher interface {
	Publish(id domain.Identity)
}

type Server struct {
	router    *http.ServeMux
	addr      string
	store     ports.IdentityStore
	publisher IdentityPublisher
	teams     []string
	feed      http.Handler
	logger    hclog.Logger
}

// NewServer builds the routes. feed may be nil when pages are tracked over
// the DevTools protocol instead.
func NewServer(addr string, store ports.IdentityStore, publisher IdentityPublisher, teams []string, feedHandler http.Handler, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		router:    http.NewServeMux(),
		addr:      addr,
		store:     store,
		publisher: publisher,
		teams:     teams,
		feed:      feedHandler,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/options", http.StatusFound)
	})
	s.router.HandleFunc("GET /options", s.handleOptions)
	s.router.HandleFunc("POST /options", s.handleSaveOptions)

	s.router.HandleFunc("GET /shim.js", s.handleShim)
	if s.feed != nil {
		s.router.Handle("GET /ws", s.feed)
	}
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("starting server", "url", "http://"+s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleShim(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(feed.Shim)
}
