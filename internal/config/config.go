// ABOUTME: Configuration loading and parsing for copilot-console
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultHTTPAddr        = "localhost:8080"
	DefaultBackendTimeout  = 10 * time.Second
	DefaultMaxFailures     = 5
	DefaultOpenTimeout     = 30 * time.Second
	DefaultCapacity        = 10
	DefaultDwell           = 4 * time.Second
	DefaultActivateOn      = "all"
	DefaultRatePerMinute   = 30
	DefaultBurst           = 5
	DefaultDedupeWindow    = 10 * time.Second
	DefaultTranscriptLimit = 200

	MinJWTSecretLength = 32
)

// DefaultRoster is the agent roster used when none is configured.
var DefaultRoster = []string{"QUOTE", "POLICY", "REMINDER", "CRM"}

// DefaultMetaAgents are the orchestration identities used when none are configured.
var DefaultMetaAgents = []string{"COPILOT", "SYSTEM"}

// Config represents the complete copilot-console configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Backend  BackendConfig  `yaml:"backend" toml:"backend"`
	Activity ActivityConfig `yaml:"activity" toml:"activity"`
	Status   StatusConfig   `yaml:"status" toml:"status"`
	Commands CommandsConfig `yaml:"commands" toml:"commands"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the dashboard listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// BackendConfig describes the command-execution service
type BackendConfig struct {
	URL         string        `yaml:"url" toml:"url"`
	MaxFailures uint32        `yaml:"max_failures" toml:"max_failures"`
	Timeout     time.Duration `yaml:"-" toml:"-"`
	OpenTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TimeoutRaw     string `yaml:"timeout" toml:"timeout"`
	OpenTimeoutRaw string `yaml:"open_timeout" toml:"open_timeout"`
}

// ActivityConfig holds activity log settings
type ActivityConfig struct {
	Capacity int `yaml:"capacity" toml:"capacity"`
}

// StatusConfig holds agent status settings
type StatusConfig struct {
	Dwell      time.Duration `yaml:"-" toml:"-"`
	DwellRaw   string        `yaml:"dwell" toml:"dwell"`
	ActivateOn string        `yaml:"activate_on" toml:"activate_on"`
	Roster     []string      `yaml:"roster" toml:"roster"`
	MetaAgents []string      `yaml:"meta_agents" toml:"meta_agents"`
}

// CommandsConfig holds submission limits for operator commands
type CommandsConfig struct {
	RatePerMinute   int           `yaml:"rate_per_minute" toml:"rate_per_minute"`
	Burst           int           `yaml:"burst" toml:"burst"`
	TranscriptLimit int           `yaml:"transcript_limit" toml:"transcript_limit"`
	DedupeWindow    time.Duration `yaml:"-" toml:"-"`
	DedupeWindowRaw string        `yaml:"dedupe_window" toml:"dedupe_window"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills unset fields. Explicit zero durations and capacities
// are treated as unset.
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.OpenTimeout == 0 {
		c.Backend.OpenTimeout = DefaultOpenTimeout
	}
	if c.Backend.MaxFailures == 0 {
		c.Backend.MaxFailures = DefaultMaxFailures
	}
	if c.Activity.Capacity == 0 {
		c.Activity.Capacity = DefaultCapacity
	}
	if c.Status.Dwell == 0 {
		c.Status.Dwell = DefaultDwell
	}
	if c.Status.ActivateOn == "" {
		c.Status.ActivateOn = DefaultActivateOn
	}
	if len(c.Status.Roster) == 0 {
		c.Status.Roster = append([]string(nil), DefaultRoster...)
	}
	if c.Status.MetaAgents == nil {
		c.Status.MetaAgents = append([]string(nil), DefaultMetaAgents...)
	}
	if c.Commands.RatePerMinute == 0 {
		c.Commands.RatePerMinute = DefaultRatePerMinute
	}
	if c.Commands.Burst == 0 {
		c.Commands.Burst = DefaultBurst
	}
	if c.Commands.DedupeWindow == 0 {
		c.Commands.DedupeWindow = DefaultDedupeWindow
	}
	if c.Commands.TranscriptLimit == 0 {
		c.Commands.TranscriptLimit = DefaultTranscriptLimit
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("backend.url must start with http:// or https://")
	}
	if c.Backend.Timeout < 0 || c.Backend.OpenTimeout < 0 {
		return fmt.Errorf("backend timeouts must not be negative")
	}

	if c.Activity.Capacity < 0 {
		return fmt.Errorf("activity.capacity must not be negative")
	}

	if c.Status.Dwell < 0 {
		return fmt.Errorf("status.dwell must not be negative")
	}
	switch strings.ToLower(c.Status.ActivateOn) {
	case "", "all", "results":
	default:
		return fmt.Errorf("status.activate_on must be \"all\" or \"results\", got %q", c.Status.ActivateOn)
	}
	for _, name := range c.Status.Roster {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("status.roster contains an empty agent name")
		}
	}

	if c.Commands.RatePerMinute < 0 || c.Commands.Burst < 0 {
		return fmt.Errorf("commands.rate_per_minute and commands.burst must not be negative")
	}
	if c.Commands.DedupeWindow < 0 {
		return fmt.Errorf("commands.dedupe_window must not be negative")
	}

	// Empty disables API auth; a set secret must be long enough for HS256.
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"backend.timeout", cfg.Backend.TimeoutRaw, &cfg.Backend.Timeout},
		{"backend.open_timeout", cfg.Backend.OpenTimeoutRaw, &cfg.Backend.OpenTimeout},
		{"status.dwell", cfg.Status.DwellRaw, &cfg.Status.Dwell},
		{"commands.dedupe_window", cfg.Commands.DedupeWindowRaw, &cfg.Commands.DedupeWindow},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}

// DefaultPath returns the config file location.
// Priority: COPILOT_CONFIG env var > XDG_CONFIG_HOME/copilot/console.yaml > ~/.config/copilot/console.yaml
func DefaultPath() string {
	if envPath := os.Getenv("COPILOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "copilot", "console.yaml")
}
