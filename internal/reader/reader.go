// Package reader defines the record reader contract implemented by every
// source format, plus the inference helpers the JSON readers share.
//
// A reader owns its underlying byte source: it releases it exactly once,
// on Close or on terminal exhaustion. A single logical consumer owns a
// reader end to end; the mutable read position is not safe for concurrent
// use.
package reader

import (
	"io"

	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/pkg/types"
)

// Reader is the uniform record stream every source format is normalized
// into. Consumers depend only on this contract, never on the format.
type Reader interface {
	// Schema returns the record schema. It is computed once and stable
	// after the first call, except for the flat JSON reader, where later
	// records may append previously unseen fields at the end.
	Schema() (*types.RecordSchema, error)

	// NextRecord returns the next positional value slice. The slice length
	// always equals the field count of the schema in effect at the time of
	// the call. A clean end of stream returns io.EOF. A recoverable
	// malformed-record failure returns an error for which
	// errors.IsMalformedRecord reports true; the caller decides whether to
	// skip or abort.
	NextRecord(schema *types.RecordSchema) ([]any, error)

	// Close releases the underlying byte source. It is idempotent.
	Close() error
}

// Factory constructs a reader over a freshly opened byte stream. The
// enumerator uses it to realize reset-by-reopen.
type Factory interface {
	NewReader(in io.Reader, logger logging.Logger) (Reader, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(in io.Reader, logger logging.Logger) (Reader, error)

func (f FactoryFunc) NewReader(in io.Reader, logger logging.Logger) (Reader, error) {
	return f(in, logger)
}
