// Package delim reads delimited text (CSV and friends) as a record stream.
// The schema comes from the header row; every column is String unless an
// override says otherwise.
package delim

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rowkit/rowkit/internal/coerce"
	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/pkg/types"
)

// LineFieldName is the synthetic field used when the header row yields no
// usable column names.
const LineFieldName = "line"

// Config holds the reader configuration.
type Config struct {
	// Delimiter is the field separator. Zero means comma.
	Delimiter rune

	// Overrides force declared types for named columns.
	Overrides reader.Overrides
}

// Reader reads delimited rows and coerces each token to its column's
// declared type.
type Reader struct {
	cr     *csv.Reader
	closer io.Closer
	schema *types.RecordSchema
	logger logging.Logger
	closed bool
}

// NewReader consumes the header row and builds the schema. An I/O failure
// while reading the header fails construction.
func NewReader(in io.Reader, logger logging.Logger, cfg Config) (*Reader, error) {
	cr := csv.NewReader(bufio.NewReader(in))
	if cfg.Delimiter != 0 {
		cr.Comma = cfg.Delimiter
	}
	// Row width is validated here, not by the csv parser, so that short
	// rows can be skipped instead of failing the stream.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil && err != io.EOF {
		return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to read header row", err)
	}

	var fields []types.RecordField
	for _, token := range header {
		name := strings.TrimSpace(token)
		if name == "" {
			continue
		}
		dt := types.DataType{Type: types.StringType}
		if override, ok := cfg.Overrides.Get(name); ok {
			dt = override
		}
		fields = append(fields, types.RecordField{Name: name, DataType: dt})
	}
	if len(fields) == 0 {
		fields = append(fields, types.RecordField{
			Name:     LineFieldName,
			DataType: types.DataType{Type: types.StringType},
		})
	}

	closer, _ := in.(io.Closer)
	return &Reader{
		cr:     cr,
		closer: closer,
		schema: types.NewRecordSchema(fields),
		logger: logger,
	}, nil
}

// NewFactory returns a reader.Factory that builds delimited readers with
// the given configuration.
func NewFactory(cfg Config) reader.Factory {
	return reader.FactoryFunc(func(in io.Reader, logger logging.Logger) (reader.Reader, error) {
		return NewReader(in, logger, cfg)
	})
}

// Schema returns the header-derived schema.
func (r *Reader) Schema() (*types.RecordSchema, error) {
	return r.schema, nil
}

// NextRecord returns the next row. Rows whose token count does not match
// the schema are logged and skipped. A hard coercion failure is returned
// as a malformed-record error for the row.
func (r *Reader) NextRecord(schema *types.RecordSchema) ([]any, error) {
	dts := schema.DataTypes()

	for {
		line, err := r.cr.Read()
		if err == io.EOF {
			r.release()
			return nil, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, rkerrors.NewMalformedRecordError("invalid delimited row", err)
			}
			return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to read row", err)
		}

		if len(line) != len(dts) {
			r.logger.Warnf("row has %d fields, expected %d; skipping row", len(line), len(dts))
			continue
		}

		values := make([]any, len(dts))
		for i, token := range line {
			v, err := coerce.Convert(dts[i], strings.TrimSpace(token), r.logger)
			if err != nil {
				return nil, rkerrors.NewMalformedRecordError("invalid delimited row", err)
			}
			values[i] = v
		}
		return values, nil
	}
}

// Close releases the underlying source. Idempotent.
func (r *Reader) Close() error {
	return r.release()
}

func (r *Reader) release() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		if err := r.closer.Close(); err != nil {
			return rkerrors.NewResourceError("failed to close delimited source", err)
		}
	}
	return nil
}
