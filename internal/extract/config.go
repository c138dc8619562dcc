package extract

import (
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/config"
)

// FromConfig builds the extractor chain: side navigation, URL, title and
// body text, then host markers.
func FromConfig(cfg config.ExtractConfig, logger hclog.Logger) (*Set, error) {
	policy, err := NewPolicy(cfg.IDPattern)
	if err != nil {
		return nil, err
	}

	chain := []Extractor{
		SideNav{},
		URLParams{Params: cfg.URLParams},
		Title{},
		Text{Limit: cfg.TextLimit},
	}
	for _, m := range cfg.HostMarkers {
		chain = append(chain, HostMarker{Host: m.Host, Marker: m.Selector})
	}

	return NewSet(policy, chain,
		WithLogger(logger),
		WithSources(NewSourceClassifier(Overlays(cfg))),
	), nil
}

// Overlays converts the configured overlay views.
func Overlays(cfg config.ExtractConfig) []Location {
	locs := make([]Location, 0, len(cfg.Overlays))
	for _, o := range cfg.Overlays {
		locs = append(locs, Location{Host: o.Host, PathPrefix: o.PathPrefix})
	}
	return locs
}
