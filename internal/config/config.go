// Package config provides unified configuration for the rowkit tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the input record format.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatFlatJSON  Format = "flatjson"
	FormatJSONPath  Format = "jsonpath"
	FormatAvro      Format = "avro"
)

// Config holds the unified configuration for the rowkit tools.
type Config struct {
	// Format is the input record format: delimited, flatjson, jsonpath, avro
	Format Format `json:"format" yaml:"format"`

	// Input configuration
	Input InputConfig `json:"input" yaml:"input"`

	// Delimited reader configuration
	Delimited DelimitedConfig `json:"delimited" yaml:"delimited"`

	// JSONPath reader configuration
	JSONPath JSONPathConfig `json:"jsonpath" yaml:"jsonpath"`

	// Overrides are schema override specs in name:type[:layout] form
	Overrides []string `json:"overrides" yaml:"overrides"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`
}

// InputConfig describes where records are read from.
type InputConfig struct {
	// Type is the input source type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local file path (for local type)
	Path string `json:"path" yaml:"path"`

	// Snappy controls whether the input is snappy-framed
	Snappy bool `json:"snappy" yaml:"snappy"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 input configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Key is the object key
	Key string `json:"key" yaml:"key"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DelimitedConfig holds delimited-text reader configuration.
type DelimitedConfig struct {
	// Delimiter is the single-character field separator
	Delimiter string `json:"delimiter" yaml:"delimiter"`
}

// JSONPathConfig holds path-expression reader configuration.
type JSONPathConfig struct {
	// Paths maps field names to path expressions, in "name=path" form
	Paths []string `json:"paths" yaml:"paths"`
}

// OutputConfig describes where normalized records go.
type OutputConfig struct {
	// Type is the output type: ndjson, template, sqlite
	Type string `json:"type" yaml:"type"`

	// Template is the free-form text template (for template type)
	Template string `json:"template" yaml:"template"`

	// SQLitePath is the database file path (for sqlite type)
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// Table is the destination table name (for sqlite type)
	Table string `json:"table" yaml:"table"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Format: FormatFlatJSON,
		Input: InputConfig{
			Type: "local",
		},
		Delimited: DelimitedConfig{
			Delimiter: ",",
		},
		Output: OutputConfig{
			Type:  "ndjson",
			Table: "records",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatDelimited, FormatFlatJSON, FormatJSONPath, FormatAvro:
		// Valid formats
	default:
		return fmt.Errorf("invalid format: %s (must be delimited, flatjson, jsonpath, or avro)", c.Format)
	}

	if c.Input.Type != "local" && c.Input.Type != "s3" {
		return fmt.Errorf("invalid input type: %s (must be local or s3)", c.Input.Type)
	}
	if c.Input.Type == "local" && c.Input.Path == "" {
		return fmt.Errorf("input.path is required when input type is local")
	}
	if c.Input.Type == "s3" {
		if c.Input.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when input type is s3")
		}
		if c.Input.S3.Key == "" {
			return fmt.Errorf("s3.key is required when input type is s3")
		}
	}

	if c.Format == FormatDelimited && len([]rune(c.Delimited.Delimiter)) != 1 {
		return fmt.Errorf("delimited.delimiter must be a single character, got %q", c.Delimited.Delimiter)
	}
	if c.Format == FormatJSONPath && len(c.JSONPath.Paths) == 0 {
		return fmt.Errorf("jsonpath.paths is required when format is jsonpath")
	}

	switch c.Output.Type {
	case "ndjson":
	case "template":
		if c.Output.Template == "" {
			return fmt.Errorf("output.template is required when output type is template")
		}
	case "sqlite":
		if c.Output.SQLitePath == "" {
			return fmt.Errorf("output.sqlite_path is required when output type is sqlite")
		}
		if c.Output.Table == "" {
			return fmt.Errorf("output.table is required when output type is sqlite")
		}
	default:
		return fmt.Errorf("invalid output type: %s (must be ndjson, template, or sqlite)", c.Output.Type)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ROWKIT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ROWKIT_FORMAT"); v != "" {
		cfg.Format = Format(v)
	}

	// Input configuration
	if v := os.Getenv("ROWKIT_INPUT_TYPE"); v != "" {
		cfg.Input.Type = v
	}
	if v := os.Getenv("ROWKIT_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("ROWKIT_INPUT_SNAPPY"); v != "" {
		cfg.Input.Snappy = v == "true" || v == "1"
	}
	if v := os.Getenv("ROWKIT_S3_BUCKET"); v != "" {
		cfg.Input.S3.Bucket = v
	}
	if v := os.Getenv("ROWKIT_S3_KEY"); v != "" {
		cfg.Input.S3.Key = v
	}
	if v := os.Getenv("ROWKIT_S3_REGION"); v != "" {
		cfg.Input.S3.Region = v
	}
	if v := os.Getenv("ROWKIT_S3_ENDPOINT"); v != "" {
		cfg.Input.S3.Endpoint = v
	}

	// Reader configuration
	if v := os.Getenv("ROWKIT_DELIMITER"); v != "" {
		cfg.Delimited.Delimiter = v
	}
	if v := os.Getenv("ROWKIT_PATHS"); v != "" {
		cfg.JSONPath.Paths = strings.Split(v, ",")
	}
	if v := os.Getenv("ROWKIT_OVERRIDES"); v != "" {
		cfg.Overrides = strings.Split(v, ",")
	}

	// Output configuration
	if v := os.Getenv("ROWKIT_OUTPUT_TYPE"); v != "" {
		cfg.Output.Type = v
	}
	if v := os.Getenv("ROWKIT_OUTPUT_TEMPLATE"); v != "" {
		cfg.Output.Template = v
	}
	if v := os.Getenv("ROWKIT_OUTPUT_SQLITE_PATH"); v != "" {
		cfg.Output.SQLitePath = v
	}
	if v := os.Getenv("ROWKIT_OUTPUT_TABLE"); v != "" {
		cfg.Output.Table = v
	}
}
