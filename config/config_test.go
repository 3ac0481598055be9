package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
}

func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	override.LogLvl = util.Pointer(TraceVerbose)
	cfg := NewConfig(override)

	expCfg := &Config{
		MountOptions: MountOptions{
			Debug:      true,
			AllowOther: true,
			FsName:     "test_fs",
			Name:       "test_name",
		},
		LogLvl:       util.TraceLevel,
		HTTPTimeout:  2500 * time.Millisecond,
		UserAgent:    "test-agent",
		Headers:      map[string]string{"Authorization": "Bearer x"},
		AttrTimeout:  *override.AttrTimeout,
		EntryTimeout: *override.EntryTimeout,
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", ErrorVerbose, util.ErrorLevel},
		{"verbose_2_warn", WarnVerbose, util.WarnLevel},
		{"verbose_3_info", InfoVerbose, util.InfoLevel},
		{"verbose_4_debug", DebugVerbose, util.DebugLevel},
		{"verbose_5_trace", TraceVerbose, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},
		{"verbose_100_clamped_to_5", 100, util.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(&ConfigOverride{LogLvl: &tt.verboseValue})

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_NilOverrideVals(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{})

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values for nil override fields")
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		FsName:      util.Pointer("test_fs"),
		HTTPTimeout: util.Pointer(0.0),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.FsName = "test_fs"
	expCfg.HTTPTimeout = 0

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestConfig_Merge_HeadersAccumulate(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{Headers: map[string]string{"A": "1", "B": "1"}})
	cfg.Merge(&ConfigOverride{Headers: map[string]string{"B": "2", "C": "2"}})

	assert.Equal(t, map[string]string{"A": "1", "B": "2", "C": "2"}, cfg.Headers)
}

func TestLoadConfigOverrideFile_Valid(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext     string
		marshal func(any) ([]byte, error)
	}

	cases := []tc{
		{".yaml", yaml.Marshal},
		{".yml", yaml.Marshal},
		{".json", json.Marshal},
	}

	for _, c := range cases {
		t.Run("valid"+c.ext, func(t *testing.T) {
			t.Parallel()
			override := createOverride()
			data, err := c.marshal(override)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadConfigOverrideFile(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, *override, *loaded)
		})
	}
}

func TestLoadConfigOverrideFile_HandWritten(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resourcefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
verbose: 4
http_timeout: 5
user_agent: my-agent
headers:
  X-Api-Key: abc
allow_other: true
`), 0o600))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, util.DebugLevel, cfg.LogLvl)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "my-agent", cfg.UserAgent)
	assert.Equal(t, map[string]string{"X-Api-Key": "abc"}, cfg.Headers)
	assert.True(t, cfg.AllowOther)
	assert.Equal(t, DefaultFsName, cfg.FsName)
}

// TestLoadConfigOverrideFile_NonExistentFile tests error handling
// when trying to load a file that doesn't exist.
func TestLoadConfigOverrideFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does_not_exist.yaml")

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not exist error, got %v", err)
}

func TestLoadConfigOverrideFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("verbose: 1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func TestLoadConfigOverrideFile_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	assert.ErrorContains(t, err, "failed to unmarshal config file")
}

func TestNewConfigFromFile_FileError(t *testing.T) {
	t.Parallel()

	_, err := NewConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func createDefaultCfg() *Config {
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

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	return &ConfigOverride{
		LogLvl:       util.Pointer(DebugVerbose),
		HTTPTimeout:  util.Pointer(2.5),
		UserAgent:    util.Pointer("test-agent"),
		Headers:      map[string]string{"Authorization": "Bearer x"},
		Debug:        util.Pointer(true),
		AllowOther:   util.Pointer(true),
		FsName:       util.Pointer("test_fs"),
		Name:         util.Pointer("test_name"),
		AttrTimeout:  util.Pointer(float64(DefaultAttrTimeout + 1)),
		EntryTimeout: util.Pointer(float64(DefaultEntryTimeout + 1)),
	}
}
