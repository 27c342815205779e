// Package jsonpath reads JSON documents as records whose fields are
// extracted by configured path expressions (tidwall/gjson syntax; a
// leading "$." is tolerated and stripped).
//
// The schema is fixed by the configured (name, path) list: types are
// inferred by probing the first document, overrides win over inference,
// and overrides that match no configured field are appended as trailing
// fields. A path that does not resolve against a document yields nil for
// that field, never an error.
package jsonpath

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rowkit/rowkit/internal/coerce"
	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/pkg/types"
)

// PathField names one output field and the path expression that extracts
// its value from a document.
type PathField struct {
	Name string
	Path string
}

// Reader implements the path-expression JSON record reader.
type Reader struct {
	dec       *json.Decoder
	closer    io.Closer
	logger    logging.Logger
	paths     []PathField
	overrides reader.Overrides
	schema    *types.RecordSchema

	inArray bool
	pending []byte
	hasPend bool
	closed  bool
}

// NewReader builds a path-expression reader over a stream holding a single
// JSON document, an array of documents, or a sequence of documents.
func NewReader(in io.Reader, logger logging.Logger, paths []PathField, overrides reader.Overrides) (*Reader, error) {
	br := bufio.NewReader(in)
	dec := json.NewDecoder(br)

	r := &Reader{
		dec:       dec,
		logger:    logger,
		paths:     normalizePaths(paths),
		overrides: overrides,
	}
	r.closer, _ = in.(io.Closer)

	if b, err := peekByte(br); err == nil && b == '[' {
		r.inArray = true
		if _, err := dec.Token(); err != nil {
			return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to read JSON array start", err)
		}
	}
	return r, nil
}

// NewFactory returns a reader.Factory for path-expression readers.
func NewFactory(paths []PathField, overrides reader.Overrides) reader.Factory {
	return reader.FactoryFunc(func(in io.Reader, logger logging.Logger) (reader.Reader, error) {
		return NewReader(in, logger, paths, overrides)
	})
}

func normalizePaths(paths []PathField) []PathField {
	out := make([]PathField, len(paths))
	for i, p := range paths {
		p.Path = strings.TrimPrefix(p.Path, "$.")
		out[i] = p
	}
	return out
}

func peekByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}

// Schema probes the first document and fixes the schema. It is stable for
// the life of the reader.
func (r *Reader) Schema() (*types.RecordSchema, error) {
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}
	return r.schema, nil
}

func (r *Reader) ensureSchema() error {
	if r.schema != nil {
		return nil
	}

	var fields []types.RecordField
	doc, err := r.nextDoc()
	if err != nil && err != io.EOF {
		return err
	}
	if err == nil {
		r.pending = doc
		r.hasPend = true
		for _, pf := range r.paths {
			dt, overridden := r.overrides.Get(pf.Name)
			if !overridden {
				ft := types.StringType
				if res := gjson.GetBytes(doc, pf.Path); res.Exists() {
					if t, ok := reader.Classify(materialize(res)); ok {
						ft = t
					}
				}
				dt = types.DataType{Type: ft}
			}
			fields = append(fields, types.RecordField{Name: pf.Name, DataType: dt})
		}
	}

	schema := types.NewRecordSchema(fields)
	for _, ov := range r.overrides {
		if schema.Index(ov.Name) < 0 {
			schema = schema.WithField(types.RecordField{Name: ov.Name, DataType: ov.DataType})
		}
	}
	r.schema = schema
	return nil
}

// NextRecord evaluates every configured path against the next document.
// Unresolved paths localize to nil values; only a hard coercion failure
// fails the record.
func (r *Reader) NextRecord(schema *types.RecordSchema) ([]any, error) {
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}

	var doc []byte
	if r.hasPend {
		doc = r.pending
		r.pending = nil
		r.hasPend = false
	} else {
		var err error
		doc, err = r.nextDoc()
		if err == io.EOF {
			r.release()
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
	}

	values := make([]any, schema.FieldCount())
	for i, pf := range r.paths {
		res := gjson.GetBytes(doc, pf.Path)
		if !res.Exists() || res.Type == gjson.Null {
			continue
		}

		value := materialize(res)
		determined, _ := reader.Classify(value)
		desired, known := schema.DataType(pf.Name)

		switch {
		case res.IsArray(), res.IsObject():
			// Structured values pass through unchanged.
		case known && determined != desired.Type:
			converted, err := coerce.Convert(desired, res.String(), r.logger)
			if err != nil {
				return nil, rkerrors.NewMalformedRecordError("invalid JSON record", err)
			}
			value = converted
		}
		values[i] = value
	}
	return values, nil
}

// nextDoc returns the raw bytes of the next top-level document.
func (r *Reader) nextDoc() ([]byte, error) {
	if r.inArray {
		if !r.dec.More() {
			return nil, io.EOF
		}
		var raw json.RawMessage
		if err := r.dec.Decode(&raw); err != nil {
			return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to decode JSON document", err)
		}
		return raw, nil
	}

	var raw json.RawMessage
	err := r.dec.Decode(&raw)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to decode JSON document", err)
	}
	return raw, nil
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
			return rkerrors.NewResourceError("failed to close JSON source", err)
		}
	}
	return nil
}

// materialize converts a gjson result into the generic record value forms.
// Integral numbers narrow from the raw text so large values keep precision.
func materialize(res gjson.Result) any {
	switch {
	case res.Type == gjson.String:
		return res.Str
	case res.Type == gjson.True:
		return true
	case res.Type == gjson.False:
		return false
	case res.Type == gjson.Null:
		return nil
	case res.IsArray():
		elems := res.Array()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = materialize(e)
		}
		return out
	case res.IsObject():
		m := make(map[string]any)
		res.ForEach(func(k, v gjson.Result) bool {
			m[k.String()] = materialize(v)
			return true
		})
		return m
	case res.Type == gjson.Number:
		return materializeNumber(res.Raw, res.Num)
	default:
		return res.Value()
	}
}

func materializeNumber(raw string, num float64) any {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if i >= -1<<31 && i < 1<<31 {
				return int32(i)
			}
			return i
		}
	}
	return num
}
