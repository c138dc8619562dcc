package web

import (
	"errors"
	"net/http"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/web/templates"
)

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := s.store.Load(ctx)
	data := s.pageData(r, id)
	if err != nil {
		s.logger.Warn("failed to load identity", "error", err)
		data.Error = "Could not load the saved identity"
	}

	_ = templates.OptionsPage(data).Render(ctx, w)
}

func (s *Server) handleSaveOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	id := domain.Identity{
		Email: r.FormValue("email"),
		Team:  r.FormValue("team"),
	}.Normalize()
	data := s.pageData(r, id)

	if err := id.Validate(s.teams); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		switch {
		case errors.Is(err, domain.ErrInvalidEmail):
			data.Error = "Enter a valid email address"
		default:
			data.Error = "Pick one of the listed teams"
		}
		_ = templates.OptionsPage(data).Render(ctx, w)
		return
	}

	if err := s.store.Save(ctx, id); err != nil {
		s.logger.Error("failed to save identity", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		data.Error = "Could not save, try again"
		_ = templates.OptionsPage(data).Render(ctx, w)
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(id)
	}
	s.logger.Info("identity saved", "email", id.Email, "team", id.Team)

	data.Status = "Saved"
	_ = templates.OptionsPage(data).Render(ctx, w)
}

func (s *Server) pageData(r *http.Request, id domain.Identity) templates.OptionsPageData {
	return templates.OptionsPageData{
		Email:   id.Email,
		Team:    id.Team,
		Teams:   s.teams,
		ShimURL: "http://" + r.Host + "/shim.js",
	}
}
