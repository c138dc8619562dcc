package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WORKTIMER"

// DefaultEndpoint is the local ingestion server used when nothing is configured.
const DefaultEndpoint = "http://127.0.0.1:8000/ingest"

type Config struct {
	Endpoint string         `yaml:"endpoint" envconfig:"endpoint"`
	Debug    bool           `yaml:"debug" envconfig:"debug"`
	Timers   TimersConfig   `yaml:"timers" envconfig:"timers"`
	Idle     IdleConfig     `yaml:"idle" envconfig:"idle"`
	Delivery DeliveryConfig `yaml:"delivery" envconfig:"delivery"`
	Extract  ExtractConfig  `yaml:"extract" ignored:"true"`
	Teams    []string       `yaml:"teams" envconfig:"teams"`
	Server   ServerConfig   `yaml:"server" envconfig:"server"`
	Database DatabaseConfig `yaml:"database" envconfig:"database"`
	OTel     OTelConfig     `yaml:"otel" envconfig:"otel"`
}

type TimersConfig struct {
	Tick      time.Duration `yaml:"tick" envconfig:"tick"`
	Rescan    time.Duration `yaml:"rescan" envconfig:"rescan"`
	Heartbeat time.Duration `yaml:"heartbeat" envconfig:"heartbeat"`
}

type IdleConfig struct {
	ActiveThreshold  time.Duration `yaml:"active_threshold" envconfig:"active_threshold"`
	DiscardThreshold time.Duration `yaml:"discard_threshold" envconfig:"discard_threshold"`
}

type DeliveryConfig struct {
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"retry_backoff"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"timeout"`
	DrainTimeout time.Duration `yaml:"drain_timeout" envconfig:"drain_timeout"`
}

// Overlay is an embedded view that competes with the page for the operator's attention.
type Overlay struct {
	Host       string `yaml:"host"`
	PathPrefix string `yaml:"path_prefix"`
}

// HostMarker names the element that carries the item id on a recognized alternate host.
type HostMarker struct {
	Host     string `yaml:"host"`
	Selector string `yaml:"selector"`
}

type ExtractConfig struct {
	IDPattern   string       `yaml:"id_pattern"`
	TextLimit   int          `yaml:"text_limit"`
	URLParams   []string     `yaml:"url_params"`
	Overlays    []Overlay    `yaml:"overlays"`
	HostMarkers []HostMarker `yaml:"host_markers"`
}

type ServerConfig struct {
	Host string `yaml:"host" envconfig:"host"`
	Port int    `yaml:"port" envconfig:"port"`
	// AllowedOrigins limits which pages may open the feed socket. Empty
	// accepts any origin; the server only listens on loopback by default.
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"allowed_origins"`
}

type DatabaseConfig struct {
	// URL is a libsql URL or a local file path. Empty means the default file
	// under the XDG data directory.
	URL       string `yaml:"url" envconfig:"url"`
	AuthToken string `yaml:"auth_token" envconfig:"auth_token"`
}

type OTelConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"enabled"`
	Endpoint string `yaml:"endpoint" envconfig:"endpoint"`
	Insecure bool   `yaml:"insecure" envconfig:"insecure"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Timers: TimersConfig{
			Tick:      time.Second,
			Rescan:    2 * time.Second,
			Heartbeat: 60 * time.Second,
		},
		Idle: IdleConfig{
			ActiveThreshold:  30 * time.Second,
			DiscardThreshold: 5 * time.Minute,
		},
		Delivery: DeliveryConfig{
			RetryBackoff: time.Second,
			Timeout:      10 * time.Second,
			DrainTimeout: 5 * time.Second,
		},
		Extract: ExtractConfig{
			IDPattern: `^\d{6,}$`,
			TextLimit: 200000,
			URLParams: []string{"OBJECT_ID", "object_id", "transaction_id", "TransactionID", "SR", "sr"},
		},
		Teams: []string{"intake", "investigation", "reportability", "quality"},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies WORKTIMER_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting the tracker cannot run with.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"timers.tick", c.Timers.Tick},
		{"timers.rescan", c.Timers.Rescan},
		{"timers.heartbeat", c.Timers.Heartbeat},
		{"idle.active_threshold", c.Idle.ActiveThreshold},
		{"idle.discard_threshold", c.Idle.DiscardThreshold},
		{"delivery.retry_backoff", c.Delivery.RetryBackoff},
		{"delivery.timeout", c.Delivery.Timeout},
		{"delivery.drain_timeout", c.Delivery.DrainTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}
	if c.Idle.DiscardThreshold <= c.Idle.ActiveThreshold {
		return fmt.Errorf("idle.discard_threshold (%s) must be above idle.active_threshold (%s)",
			c.Idle.DiscardThreshold, c.Idle.ActiveThreshold)
	}
	if _, err := regexp.Compile(c.Extract.IDPattern); err != nil {
		return fmt.Errorf("invalid extract.id_pattern: %w", err)
	}
	if c.Extract.TextLimit <= 0 {
		return fmt.Errorf("extract.text_limit must be positive, got %d", c.Extract.TextLimit)
	}
	if len(c.Teams) == 0 {
		return fmt.Errorf("teams must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// ServerAddr is the listen address for the local server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
