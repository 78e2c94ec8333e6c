package driver

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options configure controller setup. The zero value asks for the safe
// defaults: no forcing, documented poll ceiling, interrupts left routed
// however firmware configured them.
type Options struct {
	// Force enables the SMBus host block even when firmware left it
	// disabled. Dangerous: the BIOS may not have assigned the I/O
	// space it claims to decode.
	Force bool `yaml:"force"`

	// ForceAddr relocates the host block to the given I/O base before
	// enabling it. Even more dangerous than Force, which it disables.
	ForceAddr uint16 `yaml:"force_addr"`

	// PollInterval is the sleep quantum of the transaction poll loop.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxPolls bounds the poll loop.
	MaxPolls int `yaml:"max_polls"`

	// EnableInterrupt sets the controller's interrupt-select bit.
	// Completion is still detected by polling.
	EnableInterrupt bool `yaml:"enable_interrupt"`
}

// LoadOptions reads Options from a YAML file.
func LoadOptions(path string) (Options, error) {
	var opts Options
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("driver: read options: %w", err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("driver: parse options %s: %w", path, err)
	}
	return opts, nil
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
