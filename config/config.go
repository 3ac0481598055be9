package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/resourcefs/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	DefaultFsName = "resourcefs"
	DefaultName   = "resourcefs"

	// DefaultHTTPTimeout bounds a whole HTTP exchange, body included
	DefaultHTTPTimeout = 30 * time.Second

	DefaultUserAgent = "resourcefs/1.0"

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0
)

// Config contains runtime configuration values for resourcefs.
type Config struct {
	MountOptions
	LogLvl util.LogLevel

	HTTPTimeout time.Duration     // Timeout per HTTP request, 0 disables (Default 30s)
	UserAgent   string            // User-Agent sent by HTTP locators (Default resourcefs/1.0)
	Headers     map[string]string // Extra headers sent by HTTP locators

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI verbosity between 1 (error) and 5 (trace)
	LogLvl      *int              `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	HTTPTimeout *float64          `yaml:"http_timeout,omitempty" json:"http_timeout,omitempty"` // seconds
	UserAgent   *string           `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	Debug      *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	AllowOther *bool   `yaml:"allow_other,omitempty" json:"allow_other,omitempty"`
	FsName     *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name       *string `yaml:"name,omitempty" json:"name,omitempty"`

	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		HTTPTimeout:  DefaultHTTPTimeout,
		UserAgent:    DefaultUserAgent,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
	}
}

// NewConfig returns the defaults with override applied. A nil override
// yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// Headers are merged key by key.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.HTTPTimeout != nil {
		c.HTTPTimeout = time.Duration(*override.HTTPTimeout * float64(time.Second))
	}
	if override.UserAgent != nil {
		c.UserAgent = *override.UserAgent
	}
	if len(override.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(c.Headers, override.Headers)
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride
	if err := Unmarshal(path, data, &override); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}

// Unmarshal decodes data into v as YAML or JSON depending on the extension
// of path.
func Unmarshal(path string, data []byte, v any) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".json":
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown config file extension: %s", path)
	}
}
