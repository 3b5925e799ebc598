package recompiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/recompiler/policy"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the recompiler configuration.
// It can be populated from JSON or YAML; fields missing from a document keep
// the values of DefaultConfig.
type Config struct {
	Recompiler  RecompilerConfig `json:"recompiler" yaml:"recompiler"`
	Tracing     TracingConfig    `json:"tracing" yaml:"tracing"`
	Endpoint    EndpointConfig   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Policy      *policy.Config   `json:"policy,omitempty" yaml:"policy,omitempty"`
	ArtifactURL string           `json:"artifactURL,omitempty" yaml:"artifactURL,omitempty"`
	EventBuffer int              `json:"eventBuffer,omitempty" yaml:"eventBuffer,omitempty"`
}

type RecompilerConfig struct {
	// Parallel enables the background worker; otherwise jobs are compiled
	// and installed on the submitting goroutine.
	Parallel        bool          `json:"parallel" yaml:"parallel"`
	Trace           bool          `json:"trace" yaml:"trace"`
	Delay           time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	QueueCapacity   int           `json:"queueCapacity" yaml:"queueCapacity"`
	DrainOnShutdown bool          `json:"drainOnShutdown,omitempty" yaml:"drainOnShutdown,omitempty"`
}

type TracingConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Output is a file path; empty means stdout.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

type EndpointConfig struct {
	// Address of the diagnostics HTTP server, e.g. ":8080"; empty disables it.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// DefaultConfig returns a Config populated with the default settings.
func DefaultConfig() *Config {
	return &Config{
		Recompiler: RecompilerConfig{
			Parallel:      true,
			QueueCapacity: 8,
		},
		Tracing: TracingConfig{
			Service: "recompiler",
		},
		EventBuffer: 64,
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Recompiler.QueueCapacity <= 0 {
		return fmt.Errorf("recompiler.queueCapacity must be > 0")
	}
	if c.Recompiler.Delay < 0 {
		return fmt.Errorf("recompiler.delay must be >= 0")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("eventBuffer must be >= 0")
	}
	if c.Policy != nil && c.Policy.Mode != "" {
		switch strings.ToLower(c.Policy.Mode) {
		case policy.ModeAuto, policy.ModeDeny:
		default:
			return fmt.Errorf("unsupported policy.mode: %v", c.Policy.Mode)
		}
	}
	return nil
}

// LoadConfig reads a YAML configuration from any afs supported URL.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
