// Package config loads and validates the analysis configuration,
// including the domain threshold profiles.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/scry/pkg/analyzer/deadcode"
	"github.com/panbanda/scry/pkg/analyzer/rules"
	gotoml "github.com/pelletier/go-toml"
)

// Profile names a domain threshold set.
const (
	ProfileGeneric = "generic"
	ProfileNetwork = "network"
)

// ConfigurationError reports an invalid configuration value. Fatal at
// startup, before any analysis begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Config holds all settings for a run.
type Config struct {
	// Profile selects the domain threshold set: generic or network.
	Profile    string          `koanf:"profile" toml:"profile"`
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`
	DeadCode   DeadCodeConfig  `koanf:"dead_code" toml:"dead_code"`
	Exclude    ExcludeConfig   `koanf:"exclude" toml:"exclude"`
	Output     OutputConfig    `koanf:"output" toml:"output"`
}

// ThresholdConfig defines the rule engine thresholds.
type ThresholdConfig struct {
	Complexity            int      `koanf:"complexity" toml:"complexity"`
	DocstringComplexity   int      `koanf:"docstring_complexity" toml:"docstring_complexity"`
	Length                int      `koanf:"length" toml:"length"`
	ParamCount            int      `koanf:"param_count" toml:"param_count"`
	RecommendationDensity float64  `koanf:"recommendation_density" toml:"recommendation_density"`
	MagicNumberAllowlist  []string `koanf:"magic_number_allowlist" toml:"magic_number_allowlist"`
}

// DeadCodeConfig defines the false-positive exclusion lists.
type DeadCodeConfig struct {
	EntryPoints       []string `koanf:"entry_points" toml:"entry_points"`
	DecoratorPrefixes []string `koanf:"decorator_prefixes" toml:"decorator_prefixes"`
	NamePrefixes      []string `koanf:"name_prefixes" toml:"name_prefixes"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, markdown, json, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// Default returns the generic profile defaults.
func Default() *Config {
	policy := deadcode.DefaultPolicy()
	ruleDefaults := rules.DefaultConfig()

	return &Config{
		Profile: ProfileGeneric,
		Thresholds: ThresholdConfig{
			Complexity:            int(ruleDefaults.ComplexityThreshold),
			DocstringComplexity:   int(ruleDefaults.DocstringComplexity),
			Length:                ruleDefaults.LengthThreshold,
			ParamCount:            ruleDefaults.ParamCountThreshold,
			RecommendationDensity: 0.1,
			MagicNumberAllowlist:  ruleDefaults.MagicNumberAllowlist,
		},
		DeadCode: DeadCodeConfig{
			EntryPoints:       policy.EntryPoints,
			DecoratorPrefixes: policy.DecoratorPrefixes,
			NamePrefixes:      policy.NamePrefixes,
		},
		Exclude: ExcludeConfig{
			Patterns:  []string{"*.min.py"},
			Dirs:      []string{".git", ".scry", "__pycache__", ".venv", "venv", "dist", "build", "node_modules"},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// networkAllowlist covers well-known port numbers and protocol constants
// common in networking code.
var networkAllowlist = []string{
	"0", "1", "-1", "2", "3", "5", "10", "16", "24", "32", "64",
	"22", "23", "25", "53", "80", "100", "161", "162", "200", "255",
	"256", "443", "500", "1000", "1024", "2048", "4096", "8080", "9000",
}

// ApplyProfile overlays the named domain profile onto the config.
func (c *Config) ApplyProfile(profile string) error {
	switch profile {
	case "", ProfileGeneric:
		c.Profile = ProfileGeneric
	case ProfileNetwork:
		c.Profile = ProfileNetwork
		c.Thresholds.MagicNumberAllowlist = networkAllowlist
	default:
		return &ConfigurationError{Field: "profile", Reason: fmt.Sprintf("unknown profile %q", profile)}
	}
	return nil
}

// Validate rejects threshold values that would make analysis meaningless.
func (c *Config) Validate() error {
	if c.Thresholds.Complexity <= 0 {
		return &ConfigurationError{Field: "thresholds.complexity", Reason: "must be positive"}
	}
	if c.Thresholds.DocstringComplexity <= 0 {
		return &ConfigurationError{Field: "thresholds.docstring_complexity", Reason: "must be positive"}
	}
	if c.Thresholds.Length <= 0 {
		return &ConfigurationError{Field: "thresholds.length", Reason: "must be positive"}
	}
	if c.Thresholds.ParamCount <= 0 {
		return &ConfigurationError{Field: "thresholds.param_count", Reason: "must be positive"}
	}
	if c.Thresholds.RecommendationDensity < 0 || c.Thresholds.RecommendationDensity > 1 {
		return &ConfigurationError{Field: "thresholds.recommendation_density", Reason: "must be within [0,1]"}
	}
	switch c.Output.Format {
	case "", "text", "markdown", "json", "toon":
	default:
		return &ConfigurationError{Field: "output.format", Reason: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}
	if c.Profile != ProfileGeneric && c.Profile != ProfileNetwork {
		return &ConfigurationError{Field: "profile", Reason: fmt.Sprintf("unknown profile %q", c.Profile)}
	}
	return nil
}

// Rules maps the thresholds onto the rule engine configuration.
func (c *Config) Rules() rules.Config {
	return rules.Config{
		ComplexityThreshold:  uint32(c.Thresholds.Complexity),
		DocstringComplexity:  uint32(c.Thresholds.DocstringComplexity),
		LengthThreshold:      c.Thresholds.Length,
		ParamCountThreshold:  c.Thresholds.ParamCount,
		MagicNumberAllowlist: c.Thresholds.MagicNumberAllowlist,
	}
}

// Policy maps the exclusion lists onto the dead-code policy.
func (c *Config) Policy() deadcode.Policy {
	return deadcode.Policy{
		EntryPoints:       c.DeadCode.EntryPoints,
		DecoratorPrefixes: c.DeadCode.DecoratorPrefixes,
		NamePrefixes:      c.DeadCode.NamePrefixes,
	}
}

// Load reads configuration from a file, overlaying the defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault searches the standard locations and falls back to the
// defaults when no config file exists.
func LoadOrDefault() *Config {
	names := []string{
		"scry.toml", "scry.yaml", "scry.yml", "scry.json",
		".scry.toml", ".scry.yaml", ".scry.yml", ".scry.json",
	}
	for _, dir := range []string{".", ".scry"} {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}
	return Default()
}

// WriteDefault writes the default configuration as TOML, for scry init.
func WriteDefault(path string) error {
	data, err := gotoml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ShouldExclude checks if a path is excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
