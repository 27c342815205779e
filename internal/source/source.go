// Package source provides byte-source factories for record readers. A
// Factory opens a fresh stream positioned at the start; the enumerator
// realizes reset by reopening through the factory instead of seeking, so
// no opened handle needs to stay valid across a reset.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Common errors for source operations.
var (
	ErrOpenFailed = errors.New("open failed")
)

// Factory opens the underlying byte source. Every call returns a new
// stream reading from the beginning.
type Factory interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (io.ReadCloser, error)

func (f FactoryFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// FileSource opens a local file.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return f, nil
}

// BytesSource serves a fixed in-memory payload. Used in tests and for
// small inline inputs.
type BytesSource struct {
	Data []byte
}

func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{Data: data}
}

func (s *BytesSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// SnappySource decorates another factory with snappy stream decompression.
type SnappySource struct {
	inner Factory
}

func NewSnappySource(inner Factory) *SnappySource {
	return &SnappySource{inner: inner}
}

func (s *SnappySource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &snappyReadCloser{r: snappy.NewReader(rc), closer: rc}, nil
}

type snappyReadCloser struct {
	r      *snappy.Reader
	closer io.Closer
}

func (s *snappyReadCloser) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *snappyReadCloser) Close() error {
	return s.closer.Close()
}
