package extract

import (
	"net/url"
	"strings"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// Location is a host plus path prefix.
type Location struct {
	Host       string
	PathPrefix string
}

// Match reports whether raw points inside the location.
func (l Location) Match(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), l.Host) && strings.HasPrefix(u.Path, l.PathPrefix)
}

// SourceClassifier tells the overlay host view apart from primary pages.
type SourceClassifier struct {
	overlays []Location
}

func NewSourceClassifier(overlays []Location) *SourceClassifier {
	return &SourceClassifier{overlays: overlays}
}

func (s *SourceClassifier) Classify(pageURL string) domain.Source {
	if s.IsOverlay(pageURL) {
		return domain.SourceOverlayHost
	}
	return domain.SourcePrimary
}

// IsOverlay reports whether raw points at one of the recognized overlay views.
func (s *SourceClassifier) IsOverlay(raw string) bool {
	for _, o := range s.overlays {
		if o.Match(raw) {
			return true
		}
	}
	return false
}
