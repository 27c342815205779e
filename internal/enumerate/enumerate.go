// Package enumerate adapts a record reader into the lazy pull contract a
// relational execution engine consumes: current, move-next, reset, close.
//
// Malformed records are logged and skipped, an I/O failure is treated as
// an unexpected but terminal end of stream, and reset is realized by
// reopening the byte source through its factory rather than seeking.
package enumerate

import (
	"context"
	"io"

	"github.com/google/uuid"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/internal/source"
	"github.com/rowkit/rowkit/pkg/types"
)

// Enumerator is the pull-based iterator over a normalized record stream,
// optionally projecting a subset of columns.
type Enumerator struct {
	ctx     context.Context
	sources source.Factory
	readers reader.Factory
	schema  *types.RecordSchema
	fields  []int
	logger  logging.Logger
	id      string

	in      io.ReadCloser
	rec     reader.Reader
	current any
	closed  bool
}

// New opens the byte source and positions the enumerator before the first
// record. fields selects the projected column indices; nil means all
// columns. A nil schema uses the reader's own schema.
func New(ctx context.Context, sources source.Factory, readers reader.Factory, schema *types.RecordSchema, fields []int, logger logging.Logger) (*Enumerator, error) {
	e := &Enumerator{
		ctx:     ctx,
		sources: sources,
		readers: readers,
		schema:  schema,
		fields:  fields,
		logger:  logger,
		id:      uuid.New().String()[:8],
	}
	if err := e.open(); err != nil {
		return nil, err
	}
	return e, nil
}

// Schema returns the schema rows are read against, resolved at open time.
func (e *Enumerator) Schema() *types.RecordSchema {
	return e.schema
}

// Current returns the record produced by the last successful MoveNext: the
// full positional slice, a projected sub-slice, or the bare value when
// exactly one column is projected.
func (e *Enumerator) Current() any {
	return e.current
}

// MoveNext advances to the next readable record. Malformed records are
// skipped; any other failure ends the iteration and releases resources.
func (e *Enumerator) MoveNext() bool {
	e.current = nil
	if e.closed || e.rec == nil {
		return false
	}
	available := false

	for {
		row, err := e.rec.NextRecord(e.schema)
		if err == io.EOF {
			break
		}
		if err != nil {
			if rkerrors.IsMalformedRecord(err) {
				e.logger.Errorf("enumerator %s: failed to parse record, skipping: %v", e.id, err)
				continue
			}
			e.logger.Errorf("enumerator %s: failed to read next record, assuming end of stream: %v", e.id, err)
			break
		}

		e.current = e.project(row)
		available = true
		break
	}

	if !available {
		// The engine does not always call Close after the last row, so
		// release the stream as soon as it is exhausted.
		e.Close()
	}
	return available
}

// project applies the configured column projection to a row. No indices
// or a full-width index list passes the row through unmodified.
func (e *Enumerator) project(row []any) any {
	if len(e.fields) == 0 || len(e.fields) == len(row) {
		return row
	}

	// Single-column consumers expect the bare value, not a 1-element slice.
	if len(e.fields) == 1 {
		return row[e.fields[0]]
	}

	filtered := make([]any, len(e.fields))
	for i, idx := range e.fields {
		filtered[i] = row[idx]
	}
	return filtered
}

// Reset closes the current reader and byte source and reopens both from
// the start. The underlying format is not assumed seekable.
func (e *Enumerator) Reset() error {
	e.releaseQuietly()
	return e.open()
}

func (e *Enumerator) open() error {
	in, err := e.sources.Open(e.ctx)
	if err != nil {
		return rkerrors.NewIOError(rkerrors.CodeOpenFailed, "failed to open byte source", err)
	}

	rec, err := e.readers.NewReader(in, e.logger)
	if err != nil {
		in.Close()
		return err
	}

	if e.schema == nil {
		schema, err := rec.Schema()
		if err != nil {
			rec.Close()
			in.Close()
			return err
		}
		e.schema = schema
	}

	e.in = in
	e.rec = rec
	e.closed = false
	e.current = nil
	return nil
}

// Close releases the reader and byte source. It is idempotent and
// best-effort: release failures are logged, never returned.
func (e *Enumerator) Close() error {
	e.releaseQuietly()
	return nil
}

func (e *Enumerator) releaseQuietly() {
	if e.closed {
		return
	}
	e.closed = true

	if e.rec != nil {
		if err := e.rec.Close(); err != nil {
			e.logger.Warnf("enumerator %s: failed to close reader: %v", e.id, err)
		}
		e.rec = nil
	}
	if e.in != nil {
		if err := e.in.Close(); err != nil {
			e.logger.Warnf("enumerator %s: failed to close byte source: %v", e.id, err)
		}
		e.in = nil
	}
}
