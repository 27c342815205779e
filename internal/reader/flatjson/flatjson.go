// Package flatjson reads a stream of top-level JSON objects (or one array
// of objects) as records, inferring the schema from the data itself.
//
// The schema accretes: the first object seeds the field list in its key
// order, and any later record that reveals an unseen key appends that key
// at the end of the schema. Fields are never removed or reordered, so a
// field's positional index is stable for the life of the reader.
package flatjson

import (
	"bufio"
	"io"

	"github.com/bcicen/jstream"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/pkg/types"
)

// Reader implements the flat JSON record reader.
type Reader struct {
	dec     *jstream.Decoder
	stream  chan *jstream.MetaValue
	closer  io.Closer
	logger  logging.Logger
	schema  *types.RecordSchema
	options reader.Overrides

	// first record pulled while probing the schema, not yet returned
	pending jstream.KVS
	hasPend bool
	closed  bool
}

// NewReader builds a flat JSON reader. The top-level value may be a single
// object or an array whose elements are each treated as one record.
func NewReader(in io.Reader, logger logging.Logger, overrides reader.Overrides) (*Reader, error) {
	br := bufio.NewReader(in)

	// The emit depth depends on the shape of the document: elements of a
	// top-level array are records, while a lone top-level object is itself
	// the record.
	depth := 0
	if b, err := peekByte(br); err == nil && b == '[' {
		depth = 1
	}

	dec := jstream.NewDecoder(br, depth).ObjectAsKVS()
	closer, _ := in.(io.Closer)
	return &Reader{
		dec:     dec,
		stream:  dec.Stream(),
		closer:  closer,
		logger:  logger,
		options: overrides,
	}, nil
}

// NewFactory returns a reader.Factory for flat JSON readers.
func NewFactory(overrides reader.Overrides) reader.Factory {
	return reader.FactoryFunc(func(in io.Reader, logger logging.Logger) (reader.Reader, error) {
		return NewReader(in, logger, overrides)
	})
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

// Schema probes the first record when necessary and returns the schema as
// currently known. Later records may grow it; they never shrink it.
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
	kvs, err := r.pull()
	if err == io.EOF {
		// No data at all: the schema is just the overrides.
		kvs = nil
	} else if err != nil {
		return err
	} else {
		r.pending = kvs
		r.hasPend = true
		for _, kv := range kvs {
			fields = append(fields, types.RecordField{
				Name:     kv.Key,
				DataType: r.fieldType(kv.Key, normalize(kv.Value)),
			})
		}
	}

	schema := types.NewRecordSchema(fields)
	for _, ov := range r.options {
		if schema.Index(ov.Name) < 0 {
			schema = schema.WithField(types.RecordField{Name: ov.Name, DataType: ov.DataType})
		}
	}
	r.schema = schema
	return nil
}

func (r *Reader) fieldType(name string, sample any) types.DataType {
	if dt, ok := r.options.Get(name); ok {
		return dt
	}
	ft, ok := reader.Classify(sample)
	if !ok {
		ft = types.StringType
	}
	return types.DataType{Type: ft}
}

// NextRecord returns the next object as a positional value slice. The
// schema argument is ignored; this reader's schema can grow, so positions
// always follow the reader's own current schema.
func (r *Reader) NextRecord(_ *types.RecordSchema) ([]any, error) {
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}

	var kvs jstream.KVS
	if r.hasPend {
		kvs = r.pending
		r.pending = nil
		r.hasPend = false
	} else {
		var err error
		kvs, err = r.pull()
		if err == io.EOF {
			r.release()
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
	}

	// Accrete unseen fields before building the positional slice.
	for _, kv := range kvs {
		if r.schema.Index(kv.Key) < 0 {
			r.schema = r.schema.WithField(types.RecordField{
				Name:     kv.Key,
				DataType: r.fieldType(kv.Key, normalize(kv.Value)),
			})
		}
	}

	values := make([]any, r.schema.FieldCount())
	for _, kv := range kvs {
		values[r.schema.Index(kv.Key)] = normalize(kv.Value)
	}
	return values, nil
}

// pull reads the next top-level record from the decode stream.
func (r *Reader) pull() (jstream.KVS, error) {
	mv, ok := <-r.stream
	if !ok {
		if err := r.dec.Err(); err != nil {
			return nil, rkerrors.NewIOError(rkerrors.CodeReadFailed, "failed to decode JSON stream", err)
		}
		return nil, io.EOF
	}

	kvs, ok := mv.Value.(jstream.KVS)
	if !ok {
		return nil, rkerrors.NewMalformedRecordError("top-level JSON element is not an object", nil)
	}
	return kvs, nil
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

	// The decode goroutine blocks sending records nobody will read. Drain
	// the stream so it can run to the closed source and exit.
	go func(stream chan *jstream.MetaValue) {
		for range stream {
		}
	}(r.stream)

	if r.closer != nil {
		if err := r.closer.Close(); err != nil {
			return rkerrors.NewResourceError("failed to close JSON source", err)
		}
	}
	return nil
}

// normalize converts decoded jstream values into the generic record value
// forms: ordered key-value objects become maps, arrays become []any, and
// numbers are narrowed from float64.
func normalize(v any) any {
	switch t := v.(type) {
	case jstream.KVS:
		m := make(map[string]any, len(t))
		for _, kv := range t {
			m[kv.Key] = normalize(kv.Value)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case float64:
		return reader.NormalizeNumber(t)
	default:
		return v
	}
}
