// Package main implements the rowkit command-line tool.
// It normalizes delimited, JSON, or Avro input into positional records
// and writes them as NDJSON, free-form text, or rows in a SQLite table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rowkit/rowkit/internal/config"
	"github.com/rowkit/rowkit/internal/enumerate"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/internal/reader/avro"
	"github.com/rowkit/rowkit/internal/reader/delim"
	"github.com/rowkit/rowkit/internal/reader/flatjson"
	"github.com/rowkit/rowkit/internal/reader/jsonpath"
	"github.com/rowkit/rowkit/internal/sink/sqlite"
	"github.com/rowkit/rowkit/internal/source"
	"github.com/rowkit/rowkit/internal/writer/text"
	"github.com/rowkit/rowkit/pkg/types"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	// Load .env if present; ignore absence.
	_ = godotenv.Load()

	cfg, fields := parseFlags()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	logger := &logging.StdLogger{Component: "rowkit"}

	sources, err := buildSource(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize input source: %v", err)
	}
	readers, err := buildReaderFactory(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize reader: %v", err)
	}

	switch cfg.Output.Type {
	case "sqlite":
		err = runSQLite(ctx, cfg, sources, readers, logger)
	default:
		err = runStream(ctx, cfg, sources, readers, fields, logger)
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

func parseFlags() (*config.Config, []string) {
	cfg, fields, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	return cfg, fields
}

// parseArgs resolves the effective configuration with the precedence
// defaults < environment < config file < explicitly set flags.
func parseArgs(args []string) (*config.Config, []string, error) {
	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("rowkit", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML or JSON config file")
	format := fs.String("format", string(cfg.Format), "Input format: delimited, flatjson, jsonpath, avro")
	input := fs.String("input", cfg.Input.Path, "Path to input file")
	snappyIn := fs.Bool("snappy", cfg.Input.Snappy, "Input is snappy-framed")
	s3Bucket := fs.String("s3-bucket", cfg.Input.S3.Bucket, "S3 bucket (reads input from S3 when set)")
	s3Key := fs.String("s3-key", cfg.Input.S3.Key, "S3 object key")
	s3Region := fs.String("s3-region", cfg.Input.S3.Region, "AWS region")
	s3Endpoint := fs.String("s3-endpoint", cfg.Input.S3.Endpoint, "S3 endpoint for S3-compatible storage")
	delimiter := fs.String("delimiter", cfg.Delimited.Delimiter, "Field delimiter for delimited input")
	output := fs.String("output", cfg.Output.Type, "Output type: ndjson, template, sqlite")
	template := fs.String("template", cfg.Output.Template, "Text template for template output")
	sqlitePath := fs.String("sqlite", cfg.Output.SQLitePath, "SQLite database path for sqlite output")
	table := fs.String("table", cfg.Output.Table, "Destination table for sqlite output")
	fieldList := fs.String("fields", "", "Comma-separated field names to project")

	var paths, overrides stringList
	fs.Var(&paths, "path", "Field path in name=expression form (repeatable)")
	fs.Var(&overrides, "override", "Schema override in name:type[:layout] form (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if *configPath != "" {
		fileCfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config.LoadFromEnv(fileCfg)
		cfg = fileCfg
	}

	// Only flags the user actually set override the file; unset flags keep
	// whatever the file or environment resolved.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = config.Format(*format)
		case "input":
			cfg.Input.Path = *input
		case "snappy":
			cfg.Input.Snappy = *snappyIn
		case "s3-bucket":
			cfg.Input.S3.Bucket = *s3Bucket
		case "s3-key":
			cfg.Input.S3.Key = *s3Key
		case "s3-region":
			cfg.Input.S3.Region = *s3Region
		case "s3-endpoint":
			cfg.Input.S3.Endpoint = *s3Endpoint
		case "delimiter":
			cfg.Delimited.Delimiter = *delimiter
		case "output":
			cfg.Output.Type = *output
		case "template":
			cfg.Output.Template = *template
		case "sqlite":
			cfg.Output.SQLitePath = *sqlitePath
		case "table":
			cfg.Output.Table = *table
		case "path":
			cfg.JSONPath.Paths = paths
		case "override":
			cfg.Overrides = overrides
		}
	})

	if cfg.Input.S3.Bucket != "" {
		cfg.Input.Type = "s3"
	}

	var fields []string
	if *fieldList != "" {
		fields = strings.Split(*fieldList, ",")
	}
	return cfg, fields, nil
}

func buildSource(ctx context.Context, cfg *config.Config) (source.Factory, error) {
	var base source.Factory
	switch cfg.Input.Type {
	case "s3":
		s3src, err := source.NewS3Source(ctx, cfg.Input.S3.Bucket, cfg.Input.S3.Key, source.S3Config{
			Region:       cfg.Input.S3.Region,
			Endpoint:     cfg.Input.S3.Endpoint,
			UsePathStyle: cfg.Input.S3.Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		base = s3src
	default:
		base = source.NewFileSource(cfg.Input.Path)
	}

	if cfg.Input.Snappy {
		base = source.NewSnappySource(base)
	}
	return base, nil
}

func buildReaderFactory(cfg *config.Config) (reader.Factory, error) {
	overrides, err := reader.ParseOverrides(cfg.Overrides)
	if err != nil {
		return nil, err
	}

	switch cfg.Format {
	case config.FormatDelimited:
		return delim.NewFactory(delim.Config{
			Delimiter: []rune(cfg.Delimited.Delimiter)[0],
			Overrides: overrides,
		}), nil
	case config.FormatFlatJSON:
		return flatjson.NewFactory(overrides), nil
	case config.FormatJSONPath:
		paths, err := parsePaths(cfg.JSONPath.Paths)
		if err != nil {
			return nil, err
		}
		return jsonpath.NewFactory(paths, overrides), nil
	case config.FormatAvro:
		return avro.NewFactory(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.Format)
	}
}

func parsePaths(specs []string) ([]jsonpath.PathField, error) {
	paths := make([]jsonpath.PathField, 0, len(specs))
	for _, spec := range specs {
		name, expr, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid path spec %q: expected name=expression", spec)
		}
		paths = append(paths, jsonpath.PathField{Name: name, Path: expr})
	}
	return paths, nil
}

// runStream enumerates the input and writes each record to stdout as
// NDJSON or through the free-form text template.
func runStream(ctx context.Context, cfg *config.Config, sources source.Factory, readers reader.Factory, fields []string, logger logging.Logger) error {
	indices, schema, err := resolveProjection(ctx, sources, readers, fields, logger)
	if err != nil {
		return err
	}

	enum, err := enumerate.New(ctx, sources, readers, schema, indices, logger)
	if err != nil {
		return err
	}
	defer enum.Close()

	var write func(v any) error
	switch cfg.Output.Type {
	case "template":
		if len(indices) > 0 {
			return fmt.Errorf("field projection is not supported with template output")
		}
		tw, err := text.NewWriter(cfg.Output.Template, os.Stdout)
		if err != nil {
			return err
		}
		write = func(v any) error {
			row, _ := v.([]any)
			return tw.WriteRecord(enum.Schema(), row)
		}
	default:
		enc := json.NewEncoder(os.Stdout)
		write = func(v any) error {
			return enc.Encode(toObject(enum.Schema(), indices, v))
		}
	}

	count := 0
	for enum.MoveNext() {
		if err := write(enum.Current()); err != nil {
			return err
		}
		count++
	}
	log.Printf("Wrote %d records", count)
	return nil
}

// resolveProjection maps field names to column indices by probing the
// schema with a throwaway reader. Nil field names mean no projection.
func resolveProjection(ctx context.Context, sources source.Factory, readers reader.Factory, fields []string, logger logging.Logger) ([]int, *types.RecordSchema, error) {
	in, err := sources.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	rec, err := readers.NewReader(in, logger)
	if err != nil {
		in.Close()
		return nil, nil, err
	}
	schema, err := rec.Schema()
	rec.Close()
	in.Close()
	if err != nil {
		return nil, nil, err
	}

	if len(fields) == 0 {
		return nil, schema, nil
	}
	indices := make([]int, 0, len(fields))
	for _, name := range fields {
		idx := schema.Index(strings.TrimSpace(name))
		if idx < 0 {
			return nil, nil, fmt.Errorf("unknown field %q", name)
		}
		indices = append(indices, idx)
	}

	// A projection naming every column passes rows through in schema order,
	// so a reordered full-width field list cannot be honored.
	if len(indices) == schema.FieldCount() {
		for i, idx := range indices {
			if idx != i {
				logger.Warnf("projection names all %d fields; output keeps schema order, requested order is ignored", schema.FieldCount())
				break
			}
		}
	}
	return indices, schema, nil
}

// toObject shapes an enumerated value as a JSON object keyed by field name.
func toObject(schema *types.RecordSchema, indices []int, v any) any {
	row, ok := v.([]any)
	if !ok {
		// Single-column projection yields the bare value.
		if len(indices) == 1 {
			return map[string]any{schema.Field(indices[0]).Name: normalizeJSON(v)}
		}
		return normalizeJSON(v)
	}

	obj := make(map[string]any, len(row))
	for i, val := range row {
		idx := i
		// A full-width projection passes rows through in schema order, so
		// only narrower projections carry reordered indices.
		if len(indices) == len(row) && len(indices) < schema.FieldCount() {
			idx = indices[i]
		}
		if idx < schema.FieldCount() {
			obj[schema.Field(idx).Name] = normalizeJSON(val)
		}
	}
	return obj
}

// normalizeJSON keeps byte slices readable in NDJSON output.
func normalizeJSON(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func runSQLite(ctx context.Context, cfg *config.Config, sources source.Factory, readers reader.Factory, logger logging.Logger) error {
	in, err := sources.Open(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	rec, err := readers.NewReader(in, logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	loader := sqlite.NewLoader(cfg.Output.SQLitePath, cfg.Output.Table, logger)
	res, err := loader.Load(ctx, rec)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d records into %s (skipped %d, schema %016x)",
		res.RowCount, res.Table, res.SkippedCount, res.SchemaFingerprint)
	return nil
}
