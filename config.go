package dac

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/Luft21/owo-dac-laptop/service/protocol"
	"github.com/Luft21/owo-dac-laptop/service/queue"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML or JSON. The zero-value is useful – all nested
// fields inherit their package defaults.
type Config struct {
	Protocol protocol.Config `json:"protocol" yaml:"protocol"`
	Queue    queue.Config    `json:"queue" yaml:"queue"`

	// PendingURL, when set, persists the pending-case list at the given
	// storage URL instead of process memory.
	PendingURL string `json:"pendingURL,omitempty" yaml:"pendingURL,omitempty"`

	// Reverse loads the case list back to front.
	Reverse bool `json:"reverse,omitempty" yaml:"reverse,omitempty"`
}

// DefaultConfig returns a Config populated with the contract constants:
// 3 submit attempts with 2 s backoff, 3 save attempts with 1 s backoff and
// a 3 s success decay.
func DefaultConfig() *Config {
	return &Config{
		Protocol: protocol.DefaultConfig(),
		Queue:    queue.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Protocol.Submit.MaxAttempts <= 0 {
		return fmt.Errorf("protocol.submit.maxAttempts must be > 0")
	}
	if c.Protocol.Save.MaxAttempts <= 0 {
		return fmt.Errorf("protocol.save.maxAttempts must be > 0")
	}
	if c.Queue.IdleDelay < 0 {
		return fmt.Errorf("queue.idleDelay must be >= 0")
	}
	return nil
}

// LoadConfig reads a YAML config document from the supplied storage URL
// (file, s3, gs, mem, anything afs can address). Fields absent from the
// document keep their defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
