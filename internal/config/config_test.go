package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsInvalidWithoutInput(t *testing.T) {
	cfg := DefaultConfig()
	// A local input with no path cannot be opened.
	require.Error(t, cfg.Validate())

	cfg.Input.Path = "data.json"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown format", func(c *Config) { c.Format = "parquet" }},
		{"unknown input type", func(c *Config) { c.Input.Type = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Input.Type = "s3" }},
		{"multi-rune delimiter", func(c *Config) {
			c.Format = FormatDelimited
			c.Delimited.Delimiter = "||"
		}},
		{"jsonpath without paths", func(c *Config) { c.Format = FormatJSONPath }},
		{"template output without template", func(c *Config) { c.Output.Type = "template" }},
		{"sqlite output without path", func(c *Config) { c.Output.Type = "sqlite" }},
		{"unknown output type", func(c *Config) { c.Output.Type = "parquet" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Input.Path = "data.json"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	content := `
format: delimited
input:
  path: accounts.csv
delimited:
  delimiter: ";"
overrides:
  - id:long
  - balance:double
output:
  type: sqlite
  sqlite_path: out.db
  table: accounts
`
	path := filepath.Join(t.TempDir(), "rowkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, FormatDelimited, cfg.Format)
	assert.Equal(t, "accounts.csv", cfg.Input.Path)
	assert.Equal(t, ";", cfg.Delimited.Delimiter)
	assert.Equal(t, []string{"id:long", "balance:double"}, cfg.Overrides)
	assert.Equal(t, "sqlite", cfg.Output.Type)
	assert.Equal(t, "accounts", cfg.Output.Table)
}

func TestLoadFromJSONFile(t *testing.T) {
	content := `{"format": "avro", "input": {"path": "data.avro"}}`
	path := filepath.Join(t.TempDir(), "rowkit.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatAvro, cfg.Format)
	// Unset sections keep their defaults.
	assert.Equal(t, "ndjson", cfg.Output.Type)
}

func TestLoadFromFileRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rowkit.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ROWKIT_FORMAT", "jsonpath")
	t.Setenv("ROWKIT_INPUT_PATH", "events.json")
	t.Setenv("ROWKIT_PATHS", "id=id,city=address.city")
	t.Setenv("ROWKIT_OVERRIDES", "id:long")
	t.Setenv("ROWKIT_INPUT_SNAPPY", "1")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, FormatJSONPath, cfg.Format)
	assert.Equal(t, "events.json", cfg.Input.Path)
	assert.Equal(t, []string{"id=id", "city=address.city"}, cfg.JSONPath.Paths)
	assert.Equal(t, []string{"id:long"}, cfg.Overrides)
	assert.True(t, cfg.Input.Snappy)
	require.NoError(t, cfg.Validate())
}
