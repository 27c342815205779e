package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0644))

	src := NewFileSource(path)
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing"))
	_, err := src.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestBytesSourceIsReusable(t *testing.T) {
	src := NewBytesSource([]byte("hello"))

	for i := 0; i < 2; i++ {
		rc, err := src.Open(context.Background())
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		require.NoError(t, rc.Close())
	}
}

func TestSnappySourceDecompresses(t *testing.T) {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	_, err := w.Write([]byte("id,name\n1,John\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	src := NewSnappySource(NewBytesSource(buf.Bytes()))
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,John\n", string(data))
}
