// Package sqlite loads a normalized record stream into a SQLite table,
// giving relational consumers a queryable form of any supported source
// format. Structured values (arrays, nested records) are stored as
// snappy-compressed JSON blobs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/pkg/types"
)

// LoadResult describes a completed load.
type LoadResult struct {
	Table             string
	RowCount          int64
	SkippedCount      int64
	SchemaFingerprint uint64
}

// Loader writes records into a SQLite database file.
type Loader struct {
	dbPath string
	table  string
	logger logging.Logger
}

// NewLoader creates a loader targeting the given database file and table.
func NewLoader(dbPath, table string, logger logging.Logger) *Loader {
	return &Loader{dbPath: dbPath, table: table, logger: logger}
}

// Load drains the reader and materializes its records. Malformed records
// are logged and skipped, mirroring the enumerator's fault policy. The
// rows are buffered until the stream ends so that a schema that grows
// mid-stream (flat JSON) still produces a complete table.
func (l *Loader) Load(ctx context.Context, rec reader.Reader) (*LoadResult, error) {
	var rows [][]any
	var skipped int64

	for {
		schema, err := rec.Schema()
		if err != nil {
			return nil, err
		}
		row, err := rec.NextRecord(schema)
		if err == io.EOF {
			break
		}
		if err != nil {
			if rkerrors.IsMalformedRecord(err) {
				l.logger.Warnf("skipping malformed record: %v", err)
				skipped++
				continue
			}
			return nil, err
		}
		rows = append(rows, row)
	}

	schema, err := rec.Schema()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", l.dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	defer db.Close()

	if err := l.createTable(ctx, db, schema); err != nil {
		return nil, err
	}
	if err := l.insertRows(ctx, db, schema, rows); err != nil {
		return nil, err
	}
	if err := l.writeMeta(ctx, db, schema, int64(len(rows))); err != nil {
		return nil, err
	}

	return &LoadResult{
		Table:             l.table,
		RowCount:          int64(len(rows)),
		SkippedCount:      skipped,
		SchemaFingerprint: schema.Fingerprint(),
	}, nil
}

func (l *Loader) createTable(ctx context.Context, db *sql.DB, schema *types.RecordSchema) error {
	cols := make([]string, 0, schema.FieldCount())
	for i := 0; i < schema.FieldCount(); i++ {
		f := schema.Field(i)
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(f.Name), sqliteType(f.DataType.Type)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(l.table), strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("sqlite: failed to create table: %w", err)
	}
	return nil
}

func (l *Loader) insertRows(ctx context.Context, db *sql.DB, schema *types.RecordSchema, rows [][]any) error {
	n := schema.FieldCount()
	names := make([]string, n)
	marks := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = quoteIdent(schema.Field(i).Name)
		marks[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(l.table), strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, n)
		for i := 0; i < n; i++ {
			// Rows read before the schema grew are shorter; trailing
			// columns are null for them.
			if i < len(row) {
				args[i] = bindValue(row[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit: %w", err)
	}
	return nil
}

// writeMeta records the schema fingerprint and shape alongside the data so
// later loads can detect whether the table matches the incoming stream.
func (l *Loader) writeMeta(ctx context.Context, db *sql.DB, schema *types.RecordSchema, rowCount int64) error {
	metaSQL := `
		CREATE TABLE IF NOT EXISTS _rowkit_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		) WITHOUT ROWID
	`
	if _, err := db.ExecContext(ctx, metaSQL); err != nil {
		return fmt.Errorf("sqlite: failed to create meta table: %w", err)
	}

	fieldsJSON, err := json.Marshal(schema.FieldNames())
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal field names: %w", err)
	}

	entries := map[string]string{
		"table":              l.table,
		"schema_fingerprint": fmt.Sprintf("%016x", schema.Fingerprint()),
		"fields":             string(fieldsJSON),
		"row_count":          fmt.Sprintf("%d", rowCount),
	}
	for k, v := range entries {
		if _, err := db.ExecContext(ctx,
			"INSERT OR REPLACE INTO _rowkit_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("sqlite: failed to write meta entry: %w", err)
		}
	}
	return nil
}

// sqliteType maps a declared field type onto a SQLite column type.
func sqliteType(ft types.FieldType) string {
	switch ft {
	case types.BooleanType, types.ByteType, types.ShortType, types.IntType, types.LongType, types.BigIntType:
		return "INTEGER"
	case types.FloatType, types.DoubleType:
		return "REAL"
	case types.ArrayType, types.RecordType:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// bindValue converts a record value into a driver-bindable form.
func bindValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64, []byte, time.Time:
		return v
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	default:
		// Structured values are stored as snappy-compressed JSON.
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return snappy.Encode(nil, raw)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
