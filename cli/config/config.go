package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFile is loaded from the working directory when --config is not
// given and the file exists.
const DefaultFile = "msival.yaml"

// Config is the content of a msival.yaml file. Every value is optional and
// acts as a default for msival validate; command-line flags always win.
type Config struct {
	Include          []string      `yaml:"include"`
	Exclude          []string      `yaml:"exclude"`
	Verbose          bool          `yaml:"verbose"`
	Rulesets         []string      `yaml:"rulesets"`
	NoDefaultRuleset bool          `yaml:"no_default_ruleset"`
	DefaultRuleset   string        `yaml:"default_ruleset"`
	Transforms       []string      `yaml:"transforms"`
	WorkDir          string        `yaml:"work_dir"`
	Journal          string        `yaml:"journal"`
	Format           string        `yaml:"format"`
	Storage          StorageConfig `yaml:"storage"`
	Policy           PolicyConfig  `yaml:"policy"`
	Adapter          AdapterConfig `yaml:"adapter"`
}

// StorageConfig selects where delivered outputs are persisted.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig selects the persistence policy.
type PolicyConfig struct {
	Name          string `yaml:"name"`
	BufferOutputs int    `yaml:"buffer_outputs"`
}

// AdapterConfig configures the run-completed notification.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	// Retries is nil when omitted so an explicit 0 can disable retries.
	Retries *int `yaml:"retries,omitempty"`
}

// Duration is a time.Duration written as a string such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string. An empty string is zero.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Accepted enumerations.
var (
	storageBackends = []string{"fs", "s3"}
	policyNames     = []string{"strict", "buffered", "noop"}
	adapterTypes    = []string{"webhook", "redis"}
	formats         = []string{"json", "yaml", "table"}
)

// Validate checks enumerated values and numeric bounds. Empty values are
// valid and mean "use the command default".
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if value == "" {
			return
		}
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", field, value, allowed))
	}

	check("storage.backend", c.Storage.Backend, storageBackends)
	check("policy.name", c.Policy.Name, policyNames)
	check("adapter.type", c.Adapter.Type, adapterTypes)
	check("format", c.Format, formats)

	if c.Policy.BufferOutputs < 0 {
		errs = append(errs, fmt.Errorf("policy.buffer_outputs must be >= 0, got %d", c.Policy.BufferOutputs))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, errors.New("adapter.url is required when adapter.type is set"))
	}
	if c.Storage.Backend != "" && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage.backend is set"))
	}
	return errors.Join(errs...)
}
