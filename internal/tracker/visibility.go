package tracker

import (
	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/extract"
)

// Gate decides whether the current moment may accrue time at all.
type Gate struct {
	overlays *extract.SourceClassifier
}

func NewGate(overlays []extract.Location) *Gate {
	return &Gate{overlays: extract.NewSourceClassifier(overlays)}
}

// EligibleNow is false while the page is hidden or unfocused, or while a
// rendered overlay frame is what the operator is looking at. The overlay
// view itself is exempt from the frame check.
func (g *Gate) EligibleNow(state domain.PageState, source domain.Source) bool {
	if state.Visibility != domain.VisibilityVisible || !state.Focused {
		return false
	}
	if source == domain.SourceOverlayHost {
		return true
	}
	for _, f := range state.Frames {
		if f.Rendered() && g.overlays.IsOverlay(f.URL) {
			return false
		}
	}
	return true
}
