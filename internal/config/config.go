package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santosr2/seccode/pkg/sdk"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no config path is given.
var DefaultPaths = []string{".seccode.yaml", ".seccode.yml", ".seccode.toml"}

// envVarPattern matches ${VAR} or ${VAR:-default} patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Environment variables that override file settings.
const (
	EnvLogLevel          = "SECCODE_LOG_LEVEL"
	EnvLogFormat         = "SECCODE_LOG_FORMAT"
	EnvSeverityThreshold = "SECCODE_SEVERITY_THRESHOLD"
)

// Config represents the complete seccode configuration
type Config struct {
	Version  int                `yaml:"version" toml:"version"`
	Imports  []string           `yaml:"imports,omitempty" toml:"imports,omitempty"`
	Engines  Engines            `yaml:"engines" toml:"engines"`
	Profiles map[string]Profile `yaml:"profiles,omitempty" toml:"profiles,omitempty"`

	// Global settings
	SeverityThreshold string `yaml:"severity_threshold,omitempty" toml:"severity_threshold,omitempty"`
	FailFast          bool   `yaml:"fail_fast,omitempty" toml:"fail_fast,omitempty"`
	Parallel          bool   `yaml:"parallel,omitempty" toml:"parallel,omitempty"`
	Jobs              int    `yaml:"jobs,omitempty" toml:"jobs,omitempty"`

	// Per-rule overrides, keyed by rule ID
	Rules map[string]RuleConfig `yaml:"rules,omitempty" toml:"rules,omitempty"`

	// Rego rule sources
	Policies PoliciesConfig `yaml:"policies,omitempty" toml:"policies,omitempty"`

	// Plugin settings
	Plugins PluginsConfig `yaml:"plugins,omitempty" toml:"plugins,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty" toml:"logging,omitempty"`
}

// Engines configuration for each rule source
type Engines struct {
	Builtin EngineConfig `yaml:"builtin" toml:"builtin"`
	Policy  EngineConfig `yaml:"policy" toml:"policy"`
}

// EngineConfig represents configuration for a single engine
type EngineConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Profile represents a configuration profile
type Profile struct {
	Description       string                `yaml:"description" toml:"description"`
	Inherits          string                `yaml:"inherits,omitempty" toml:"inherits,omitempty"`
	Engines           Engines               `yaml:"engines" toml:"engines"`
	DisabledEngines   []string              `yaml:"disabled_engines,omitempty" toml:"disabled_engines,omitempty"` // Explicitly disable inherited engines
	DisabledRules     []string              `yaml:"disabled_rules,omitempty" toml:"disabled_rules,omitempty"`
	SeverityThreshold string                `yaml:"severity_threshold,omitempty" toml:"severity_threshold,omitempty"`
	Rules             map[string]RuleConfig `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

// RuleConfig represents configuration for a single rule. A listed rule with
// enabled: false is skipped.
type RuleConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// PoliciesConfig lists where Rego rules are loaded from
type PoliciesConfig struct {
	Directories []string `yaml:"directories,omitempty" toml:"directories,omitempty"`
	Files       []string `yaml:"files,omitempty" toml:"files,omitempty"`
}

// PluginsConfig represents plugin settings
type PluginsConfig struct {
	Enabled     bool     `yaml:"enabled" toml:"enabled"`
	Directories []string `yaml:"directories,omitempty" toml:"directories,omitempty"`
}

// LoggingConfig selects the log handler
type LoggingConfig struct {
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // text or json
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`   // debug, info, warn or error
}

// Load loads the configuration from the specified path. An empty path tries
// DefaultPaths; when no file exists the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	if path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}

		// Load imports if specified
		if len(loaded.Imports) > 0 {
			if err := loaded.loadImports(filepath.Dir(path)); err != nil {
				return nil, fmt.Errorf("loading imports: %w", err)
			}
		}
		cfg = loaded
	}

	cfg.applyEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Expand environment variables in the config
	cfg := DefaultConfig()
	if err := Unmarshal([]byte(expandEnvVars(string(data))), FormatOf(path), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Format is a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the config format implied by the file extension.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Unmarshal decodes data in the given format into cfg.
func Unmarshal(data []byte, format Format, cfg *Config) error {
	if format == FormatTOML {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Marshal encodes cfg in the given format.
func Marshal(cfg *Config, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if format == FormatTOML {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encoding toml config: %w", err)
		}
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding yaml config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml config: %w", err)
	}
	return buf.Bytes(), nil
}

// expandEnvVars expands environment variables in the config content
// Supports ${VAR} and ${VAR:-default} syntax
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1]

		if idx := strings.Index(expr, ":-"); idx != -1 {
			if val := os.Getenv(expr[:idx]); val != "" {
				return val
			}
			return expr[idx+2:]
		}

		// ${VAR:?message} expands to empty when unset; validation reports it
		if idx := strings.Index(expr, ":?"); idx != -1 {
			return os.Getenv(expr[:idx])
		}

		return os.Getenv(expr)
	})
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvSeverityThreshold); v != "" {
		c.SeverityThreshold = v
	}
}

// loadImports loads and merges imported configurations
func (c *Config) loadImports(baseDir string) error {
	for _, pattern := range c.Imports {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid import pattern %s: %w", pattern, err)
		}

		for _, match := range matches {
			partial, err := loadPartialConfig(match)
			if err != nil {
				return fmt.Errorf("loading %s: %w", match, err)
			}

			c.merge(partial)
		}
	}

	return nil
}

// loadPartialConfig loads a partial configuration file
func loadPartialConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := Unmarshal([]byte(expandEnvVars(string(data))), FormatOf(path), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// merge merges another config into this one
func (c *Config) merge(other *Config) {
	if c.Rules == nil {
		c.Rules = make(map[string]RuleConfig)
	}
	for k, v := range other.Rules {
		c.Rules[k] = v
	}

	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	for k, v := range other.Profiles {
		c.Profiles[k] = v
	}

	c.Policies.Directories = append(c.Policies.Directories, other.Policies.Directories...)
	c.Policies.Files = append(c.Policies.Files, other.Policies.Files...)
	c.Plugins.Directories = append(c.Plugins.Directories, other.Plugins.Directories...)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}

	if c.SeverityThreshold != "" {
		if _, err := sdk.ParseSeverity(c.SeverityThreshold); err != nil {
			return fmt.Errorf("invalid severity_threshold: %w", err)
		}
	}

	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative: %d", c.Jobs)
	}

	if err := c.validateProfiles(); err != nil {
		return fmt.Errorf("profile validation: %w", err)
	}

	if err := validateRules(c.Rules); err != nil {
		return fmt.Errorf("rules validation: %w", err)
	}

	if err := c.validatePlugins(); err != nil {
		return fmt.Errorf("plugins validation: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging validation: %w", err)
	}

	return nil
}

// validateProfiles validates profile configurations
func (c *Config) validateProfiles() error {
	for _, name := range c.ProfileNames() {
		profile := c.Profiles[name]
		if profile.Inherits != "" {
			if err := c.checkCircularInheritance(name, make(map[string]bool)); err != nil {
				return err
			}

			if _, exists := c.Profiles[profile.Inherits]; !exists {
				return fmt.Errorf("profile %q inherits from non-existent profile %q", name, profile.Inherits)
			}
		}

		if profile.SeverityThreshold != "" {
			if _, err := sdk.ParseSeverity(profile.SeverityThreshold); err != nil {
				return fmt.Errorf("profile %q: %w", name, err)
			}
		}

		for _, engine := range profile.DisabledEngines {
			if engine != "builtin" && engine != "policy" {
				return fmt.Errorf("profile %q disables unknown engine %q", name, engine)
			}
		}

		if err := validateRules(profile.Rules); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}

	return nil
}

// checkCircularInheritance checks for circular profile inheritance
func (c *Config) checkCircularInheritance(name string, visited map[string]bool) error {
	if visited[name] {
		return fmt.Errorf("circular inheritance detected involving profile %q", name)
	}

	visited[name] = true

	profile, exists := c.Profiles[name]
	if !exists {
		return nil
	}

	if profile.Inherits != "" {
		return c.checkCircularInheritance(profile.Inherits, visited)
	}

	return nil
}

func validateRules(rules map[string]RuleConfig) error {
	for id := range rules {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("rule ID cannot be empty")
		}
	}
	return nil
}

// validatePlugins validates plugin configuration
func (c *Config) validatePlugins() error {
	if !c.Plugins.Enabled {
		return nil
	}

	for _, dir := range c.Plugins.Directories {
		if dir == "" {
			return fmt.Errorf("plugin directory cannot be empty")
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.Logging.Format)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", c.Logging.Level)
	}

	return nil
}

// ProfileNames returns the profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns a profile with all inherited settings resolved
func (c *Config) GetProfile(name string) (*Profile, error) {
	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	if profile.Inherits == "" {
		return &profile, nil
	}

	return c.resolveProfileInheritance(name, make(map[string]bool))
}

// resolveProfileInheritance resolves a profile with all inherited settings
func (c *Config) resolveProfileInheritance(name string, visited map[string]bool) (*Profile, error) {
	if visited[name] {
		return nil, fmt.Errorf("circular inheritance detected involving profile %q", name)
	}
	visited[name] = true

	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	if profile.Inherits == "" {
		result := profile
		return &result, nil
	}

	parent, err := c.resolveProfileInheritance(profile.Inherits, visited)
	if err != nil {
		return nil, err
	}

	return mergeProfiles(parent, &profile), nil
}

// mergeProfiles merges a child profile into a parent, with child taking precedence.
// A child can only enable engines; use disabled_engines to turn one off.
func mergeProfiles(parent, child *Profile) *Profile {
	result := &Profile{
		Description:       child.Description,
		Inherits:          child.Inherits,
		SeverityThreshold: child.SeverityThreshold,
	}

	if result.Description == "" {
		result.Description = parent.Description
	}
	if result.SeverityThreshold == "" {
		result.SeverityThreshold = parent.SeverityThreshold
	}

	result.Engines = parent.Engines
	if child.Engines.Builtin.Enabled {
		result.Engines.Builtin = child.Engines.Builtin
	}
	if child.Engines.Policy.Enabled {
		result.Engines.Policy = child.Engines.Policy
	}

	result.DisabledEngines = append(append([]string{}, parent.DisabledEngines...), child.DisabledEngines...)
	applyDisabledEngines(&result.Engines, child.DisabledEngines)

	result.DisabledRules = append(append([]string{}, parent.DisabledRules...), child.DisabledRules...)

	result.Rules = make(map[string]RuleConfig)
	for k, v := range parent.Rules {
		result.Rules[k] = v
	}
	for k, v := range child.Rules {
		result.Rules[k] = v
	}

	return result
}

func applyDisabledEngines(e *Engines, names []string) {
	for _, name := range names {
		switch name {
		case "builtin":
			e.Builtin.Enabled = false
		case "policy":
			e.Policy.Enabled = false
		}
	}
}

// ApplyProfile applies a profile's settings to the config
func (c *Config) ApplyProfile(name string) error {
	profile, err := c.GetProfile(name)
	if err != nil {
		return err
	}

	c.Engines = profile.Engines
	applyDisabledEngines(&c.Engines, profile.DisabledEngines)

	if profile.SeverityThreshold != "" {
		c.SeverityThreshold = profile.SeverityThreshold
	}

	if c.Rules == nil {
		c.Rules = make(map[string]RuleConfig)
	}
	for k, v := range profile.Rules {
		c.Rules[k] = v
	}
	for _, id := range profile.DisabledRules {
		c.Rules[id] = RuleConfig{Enabled: false}
	}

	return nil
}

// Threshold returns the parsed severity threshold, LOW when unset.
func (c *Config) Threshold() sdk.Severity {
	sev, err := sdk.ParseSeverity(c.SeverityThreshold)
	if err != nil {
		return sdk.SeverityLow
	}
	return sev
}

// DisabledRules returns the IDs of rules turned off in the rules section,
// sorted.
func (c *Config) DisabledRules() []string {
	var ids []string
	for id, rc := range c.Rules {
		if !rc.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Engines: Engines{
			Builtin: EngineConfig{Enabled: true},
			Policy:  EngineConfig{Enabled: false}, // Opt-in
		},
		SeverityThreshold: "low",
		FailFast:          false,
		Parallel:          true,
		Policies: PoliciesConfig{
			Directories: []string{".seccode/policies"},
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
