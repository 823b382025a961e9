// Package config loads the ghostline configuration file.
//
// Files are YAML, or JSON/JSON5 when the extension says so. ${VAR}
// references are expanded from the environment before parsing, $include
// directives are merged, and unknown fields are rejected.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
)

const (
	DefaultProvider     = "anthropic"
	DefaultMaxRounds    = 4
	DefaultTemperature  = 0.2
	DefaultTimeout      = 5 * time.Minute
	DefaultServiceName  = "ghostline"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	defaultSamplingRate = 1.0
)

// Config is the main configuration structure for ghostline.
type Config struct {
	Version       int                 `yaml:"version" json:"version,omitempty"`
	Workspace     string              `yaml:"workspace" json:"workspace,omitempty"`
	Provider      ProviderConfig      `yaml:"provider" json:"provider,omitempty"`
	Agent         AgentConfig         `yaml:"agent" json:"agent,omitempty"`
	Tools         ToolsConfig         `yaml:"tools" json:"tools,omitempty"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging,omitempty"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability,omitempty"`
}

// ProviderConfig selects the model backend.
type ProviderConfig struct {
	// Name is anthropic, openai or ollama.
	Name    string `yaml:"name" json:"name,omitempty"`
	Model   string `yaml:"model" json:"model,omitempty"`
	APIKey  string `yaml:"api_key" json:"api_key,omitempty"`
	BaseURL string `yaml:"base_url" json:"base_url,omitempty"`

	MaxTokens  int           `yaml:"max_tokens" json:"max_tokens,omitempty"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay,omitempty"`
}

type AgentConfig struct {
	MaxRounds    int      `yaml:"max_rounds" json:"max_rounds,omitempty"`
	Temperature  *float64 `yaml:"temperature" json:"temperature,omitempty"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt,omitempty"`
}

// ToolsConfig tunes the tool executor. Zero values disable the optional
// limits.
type ToolsConfig struct {
	AllowedRoots      []string      `yaml:"allowed_roots" json:"allowed_roots,omitempty"`
	AllowedBinaries   []string      `yaml:"allowed_binaries" json:"allowed_binaries,omitempty"`
	MaxCallsPerMinute int           `yaml:"max_calls_per_minute" json:"max_calls_per_minute,omitempty"`
	OutputBudget      int           `yaml:"output_budget" json:"output_budget,omitempty"`
	CommandTimeout    time.Duration `yaml:"command_timeout" json:"command_timeout,omitempty"`
	PythonBinary      string        `yaml:"python_binary" json:"python_binary,omitempty"`
	// Ripgrep overrides rg discovery. "-" forces the built-in search.
	Ripgrep string `yaml:"ripgrep" json:"ripgrep,omitempty"`
}

type LoggingConfig struct {
	Level          string   `yaml:"level" json:"level,omitempty"`
	Format         string   `yaml:"format" json:"format,omitempty"`
	AddSource      bool     `yaml:"add_source" json:"add_source,omitempty"`
	RedactPatterns []string `yaml:"redact_patterns" json:"redact_patterns,omitempty"`
}

type ObservabilityConfig struct {
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string        `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing,omitempty"`
}

type TracingConfig struct {
	Enabled      bool              `yaml:"enabled" json:"enabled,omitempty"`
	Endpoint     string            `yaml:"endpoint" json:"endpoint,omitempty"`
	ServiceName  string            `yaml:"service_name" json:"service_name,omitempty"`
	Environment  string            `yaml:"environment" json:"environment,omitempty"`
	SamplingRate float64           `yaml:"sampling_rate" json:"sampling_rate,omitempty"`
	Insecure     bool              `yaml:"insecure" json:"insecure,omitempty"`
	Attributes   map[string]string `yaml:"attributes" json:"attributes,omitempty"`
}

// apiKeyEnv names the environment variable consulted for a missing key.
var apiKeyEnv = map[toolconv.Vendor]string{
	toolconv.Anthropic: "ANTHROPIC_API_KEY",
	toolconv.OpenAI:    "OPENAI_API_KEY",
}

// Override adjusts a decoded configuration before defaults are applied,
// so a changed provider name still picks up its own API key variable.
type Override func(*Config)

// Load reads, defaults and validates the configuration file at path. An
// empty path loads no file and yields the defaults.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		raw, err := LoadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = decodeRawConfig(raw); err != nil {
			return nil, err
		}
	}
	for _, override := range overrides {
		if override != nil {
			override(cfg)
		}
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if strings.TrimSpace(cfg.Workspace) == "" {
		cfg.Workspace = "."
	}
	if strings.TrimSpace(cfg.Provider.Name) == "" {
		cfg.Provider.Name = DefaultProvider
	}
	if cfg.Provider.APIKey == "" {
		if vendor, err := toolconv.ParseVendor(cfg.Provider.Name); err == nil {
			if env, ok := apiKeyEnv[vendor]; ok {
				cfg.Provider.APIKey = os.Getenv(env)
			}
		}
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultTimeout
	}
	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = DefaultMaxRounds
	}
	if cfg.Agent.Temperature == nil {
		t := DefaultTemperature
		cfg.Agent.Temperature = &t
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Observability.Tracing.ServiceName == "" {
		cfg.Observability.Tracing.ServiceName = DefaultServiceName
	}
	if cfg.Observability.Tracing.Enabled && cfg.Observability.Tracing.SamplingRate == 0 {
		cfg.Observability.Tracing.SamplingRate = defaultSamplingRate
	}
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	if err := ValidateVersion(c.Version); err != nil {
		errs = append(errs, err)
	}
	if _, err := toolconv.ParseVendor(c.Provider.Name); err != nil {
		errs = append(errs, fmt.Errorf("provider.name: %w", err))
	}
	if c.Provider.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.max_tokens must be >= 0"))
	}
	if c.Provider.Timeout < 0 || c.Provider.RetryDelay < 0 || c.Provider.MaxRetries < 0 {
		errs = append(errs, errors.New("provider.timeout, retry_delay and max_retries must be >= 0"))
	}
	if c.Agent.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be > 0, got %d", c.Agent.MaxRounds))
	}
	if t := c.Agent.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("agent.temperature must be within [0, 2], got %v", *t))
	}
	if c.Tools.MaxCallsPerMinute < 0 {
		errs = append(errs, errors.New("tools.max_calls_per_minute must be >= 0"))
	}
	if c.Tools.OutputBudget < 0 {
		errs = append(errs, errors.New("tools.output_budget must be >= 0"))
	}
	if c.Tools.CommandTimeout < 0 {
		errs = append(errs, errors.New("tools.command_timeout must be >= 0"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	tracing := c.Observability.Tracing
	if tracing.Enabled && strings.TrimSpace(tracing.Endpoint) == "" {
		errs = append(errs, errors.New("observability.tracing.endpoint is required when tracing is enabled"))
	}
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing.sampling_rate must be within [0, 1], got %v", tracing.SamplingRate))
	}
	return errors.Join(errs...)
}
