// Package avro reads Avro object container files as a record stream. The
// container schema is translated into a RecordSchema at construction time;
// unions are resolved per value, with nullable unions erased into the
// single branch type and heterogeneous unions flattened into name→value
// maps of whichever branch was actually encoded.
package avro

import (
	"fmt"
	"io"
	"math/big"
	"reflect"
	"time"

	hamba "github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/pkg/types"
)

// schemaMetadataKey is the container header entry holding the writer schema.
const schemaMetadataKey = "avro.schema"

// Reader implements the binary-schema record reader.
type Reader struct {
	dec    *ocf.Decoder
	closer io.Closer
	root   *hamba.RecordSchema
	schema *types.RecordSchema
	closed bool
}

// NewReader reads the container header, parses the embedded writer schema
// and translates it. Unsupported schema constructs fail here, before any
// record is read.
func NewReader(in io.Reader, _ logging.Logger) (*Reader, error) {
	dec, err := ocf.NewDecoder(in)
	if err != nil {
		return nil, rkerrors.NewIOError(rkerrors.CodeOpenFailed, "failed to read container header", err)
	}

	raw, ok := dec.Metadata()[schemaMetadataKey]
	if !ok {
		return nil, rkerrors.NewSchemaError(rkerrors.CodeUnsupportedSchema, "container carries no schema", nil)
	}
	parsed, err := hamba.Parse(string(raw))
	if err != nil {
		return nil, rkerrors.NewSchemaError(rkerrors.CodeUnsupportedSchema, "failed to parse container schema", err)
	}
	root, ok := parsed.(*hamba.RecordSchema)
	if !ok {
		return nil, rkerrors.NewSchemaError(rkerrors.CodeUnsupportedSchema,
			fmt.Sprintf("top-level schema must be a record, got %q", parsed.Type()), nil)
	}

	schema, err := newTranslator().translateRecord(root)
	if err != nil {
		return nil, err
	}

	closer, _ := in.(io.Closer)
	return &Reader{dec: dec, closer: closer, root: root, schema: schema}, nil
}

// NewFactory returns a reader.Factory for container readers.
func NewFactory() reader.Factory {
	return reader.FactoryFunc(func(in io.Reader, logger logging.Logger) (reader.Reader, error) {
		return NewReader(in, logger)
	})
}

// Schema returns the translated schema.
func (r *Reader) Schema() (*types.RecordSchema, error) {
	return r.schema, nil
}

// NextRecord decodes the next container record into a positional value
// slice. A record whose decoded shape does not match the translated schema
// is a recoverable malformed-record error.
func (r *Reader) NextRecord(schema *types.RecordSchema) ([]any, error) {
	if !r.dec.HasNext() {
		r.release()
		return nil, io.EOF
	}

	var v any
	if err := r.dec.Decode(&v); err != nil {
		return nil, rkerrors.NewMalformedRecordError("failed to decode container record", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, rkerrors.NewMalformedRecordError(
			fmt.Sprintf("container record decoded to %T, expected a record", v), nil)
	}

	values := make([]any, schema.FieldCount())
	for i, f := range r.root.Fields() {
		if i >= len(values) {
			break
		}
		dv, err := decodeValue(f.Type(), m[f.Name()])
		if err != nil {
			return nil, err
		}
		values[i] = dv
	}
	return values, nil
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
			return rkerrors.NewResourceError("failed to close container source", err)
		}
	}
	return nil
}

// decodeValue normalizes one decoded Avro value against its source schema
// node. Record-typed branches flatten into plain name→value maps so that
// structurally different union branches can coexist under one static
// Record field.
func decodeValue(s hamba.Schema, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch s.Type() {
	case hamba.Ref:
		return decodeValue(s.(*hamba.RefSchema).Schema(), v)
	case hamba.Union:
		return decodeUnion(s.(*hamba.UnionSchema), v)
	case hamba.Record:
		return decodeRecord(s.(*hamba.RecordSchema), v)
	case hamba.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, shapeErr(s, v)
		}
		vs := s.(*hamba.MapSchema).Values()
		out := make(map[string]any, len(m))
		for k, mv := range m {
			dv, err := decodeValue(vs, mv)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	case hamba.Array:
		arr, ok := v.([]any)
		if !ok {
			return nil, shapeErr(s, v)
		}
		items := s.(*hamba.ArraySchema).Items()
		out := make([]any, len(arr))
		for i, av := range arr {
			dv, err := decodeValue(items, av)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case hamba.Bytes, hamba.Fixed:
		b, ok := toByteSlice(v)
		if !ok {
			return nil, shapeErr(s, v)
		}
		return b, nil
	case hamba.Int:
		return toInt32(v)
	case hamba.Long:
		return toInt64(v)
	case hamba.Float:
		if f, ok := v.(float32); ok {
			return f, nil
		}
		if f, ok := v.(float64); ok {
			return float32(f), nil
		}
		return nil, shapeErr(s, v)
	case hamba.Double:
		if f, ok := v.(float64); ok {
			return f, nil
		}
		if r, ok := v.(*big.Rat); ok {
			f, _ := r.Float64()
			return f, nil
		}
		return nil, shapeErr(s, v)
	case hamba.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, shapeErr(s, v)
	case hamba.String, hamba.Enum:
		if str, ok := v.(string); ok {
			return str, nil
		}
		return nil, shapeErr(s, v)
	case hamba.Null:
		return nil, nil
	default:
		return v, nil
	}
}

// decodeUnion resolves whichever branch is actually present. The decoder
// surfaces nullable unions as the bare value and all other unions as a
// single-entry map keyed by the branch name.
func decodeUnion(us *hamba.UnionSchema, v any) (any, error) {
	var nonNull []hamba.Schema
	for _, alt := range us.Types() {
		if alt.Type() != hamba.Null {
			nonNull = append(nonNull, alt)
		}
	}
	if len(nonNull) == 0 {
		return nil, nil
	}
	if len(nonNull) == 1 {
		return decodeValue(nonNull[0], v)
	}

	wrapper, ok := v.(map[string]any)
	if !ok || len(wrapper) != 1 {
		return nil, shapeErr(us, v)
	}
	for key, inner := range wrapper {
		branch := branchByName(nonNull, key)
		if branch == nil {
			return nil, rkerrors.NewMalformedRecordError(
				fmt.Sprintf("union value names unknown branch %q", key), nil)
		}
		return decodeValue(branch, inner)
	}
	return nil, nil
}

func branchByName(alts []hamba.Schema, name string) hamba.Schema {
	for _, alt := range alts {
		resolved := alt
		if ref, ok := alt.(*hamba.RefSchema); ok {
			resolved = ref.Schema()
		}
		if named, ok := resolved.(hamba.NamedSchema); ok {
			if named.FullName() == name || named.Name() == name {
				return resolved
			}
			continue
		}
		if string(resolved.Type()) == name {
			return resolved
		}
	}
	return nil
}

func decodeRecord(rs *hamba.RecordSchema, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, shapeErr(rs, v)
	}
	out := make(map[string]any, len(rs.Fields()))
	for _, f := range rs.Fields() {
		dv, err := decodeValue(f.Type(), m[f.Name()])
		if err != nil {
			return nil, err
		}
		out[f.Name()] = dv
	}
	return out, nil
}

func toByteSlice(v any) ([]byte, bool) {
	if b, ok := v.([]byte); ok {
		return b, true
	}
	if s, ok := v.(string); ok {
		return []byte(s), true
	}
	// Fixed values decode to byte arrays of schema-determined length.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, true
	}
	return nil, false
}

func toInt32(v any) (any, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case int64:
		return int32(n), nil
	default:
		if t, ok := asTime(v); ok {
			return t, nil
		}
		return nil, rkerrors.NewMalformedRecordError(fmt.Sprintf("value %T is not an int", v), nil)
	}
}

func toInt64(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	default:
		if t, ok := asTime(v); ok {
			return t, nil
		}
		return nil, rkerrors.NewMalformedRecordError(fmt.Sprintf("value %T is not a long", v), nil)
	}
}

// asTime recognizes values produced for temporal logical types, which
// decode to time.Time (dates, timestamps) or time.Duration (time-of-day).
func asTime(v any) (any, bool) {
	switch v.(type) {
	case time.Time, time.Duration:
		return v, true
	}
	return nil, false
}

func shapeErr(s hamba.Schema, v any) error {
	return rkerrors.NewMalformedRecordError(
		fmt.Sprintf("value %T does not match source schema type %q", v, s.Type()), nil)
}
