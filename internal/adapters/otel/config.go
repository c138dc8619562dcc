package otel

import "github.com/emiliopalmerini/worktimer/internal/config"

// Config holds OTEL exporter configuration.
type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// FromConfig picks the OTEL settings out of the agent configuration, which
// already carries the WORKTIMER_OTEL_* environment overrides.
func FromConfig(c config.OTelConfig) Config {
	return Config{
		Endpoint: c.Endpoint,
		Enabled:  c.Enabled,
		Insecure: c.Insecure,
	}
}
