package symex

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/symrename/pkg/logging"
)

// Options configures path exploration.
type Options struct {
	// ConstantPropagation substitutes cached literal values for versioned
	// reads, so equations carry constants where the value is known.
	ConstantPropagation bool `yaml:"constantPropagation"`

	// Limits
	MaxSteps     int `yaml:"maxSteps"`     // Max instructions executed over all paths (default: 100000)
	MaxCallDepth int `yaml:"maxCallDepth"` // Max nested calls per thread before a path is cut (default: 32)

	// Behavior flags
	EnableMemo     bool `yaml:"enableMemo"`     // Skip states whose fingerprint was already explored (default: true)
	EnableWarnings bool `yaml:"enableWarnings"` // Collect warnings in the result (default: true)

	// Logging configuration
	LogLevel string         `yaml:"logLevel"` // "error", "warn", "info", "debug" (default: "warn")
	Logger   logging.Logger `yaml:"-"`        // Overrides LogLevel when set
}

// DefaultOptions returns the default exploration configuration.
func DefaultOptions() Options {
	return Options{
		ConstantPropagation: false,
		MaxSteps:            100000,
		MaxCallDepth:        32,
		EnableMemo:          true,
		EnableWarnings:      true,
		LogLevel:            "warn",
	}
}

// LoadOptions decodes YAML options over the defaults. Unknown keys are
// rejected.
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.MaxSteps <= 0 {
		return fmt.Errorf("maxSteps must be positive, got %d", o.MaxSteps)
	}
	if o.MaxCallDepth <= 0 {
		return fmt.Errorf("maxCallDepth must be positive, got %d", o.MaxCallDepth)
	}
	return nil
}

func (o Options) logger() logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if o.LogLevel != "" {
		return logging.NewLogger(logging.ParseLogLevel(o.LogLevel), nil)
	}
	return logging.NewNoopLogger()
}
