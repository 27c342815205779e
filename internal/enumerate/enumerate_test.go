package enumerate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/internal/reader"
	"github.com/rowkit/rowkit/internal/reader/delim"
	"github.com/rowkit/rowkit/internal/source"
)

type spyLogger struct {
	warnings []string
	errors   []string
}

func (s *spyLogger) Warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

func (s *spyLogger) Errorf(format string, args ...any) {
	s.errors = append(s.errors, fmt.Sprintf(format, args...))
}

// countingSource wraps a BytesSource and counts opens, to observe reset
// going back to the factory.
type countingSource struct {
	data  []byte
	opens int
}

func (c *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	c.opens++
	return io.NopCloser(strings.NewReader(string(c.data))), nil
}

func csvEnumerator(t *testing.T, data string, fields []int, logger logging.Logger) *Enumerator {
	t.Helper()
	e, err := New(context.Background(),
		source.NewBytesSource([]byte(data)),
		delim.NewFactory(delim.Config{}),
		nil, fields, logger)
	require.NoError(t, err)
	return e
}

func TestEnumerateAllColumns(t *testing.T) {
	e := csvEnumerator(t, "id,name\n1,John\n2,Jane\n", nil, logging.Nop{})
	defer e.Close()

	assert.Equal(t, []string{"id", "name"}, e.Schema().FieldNames())

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{"1", "John"}, e.Current())

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{"2", "Jane"}, e.Current())

	assert.False(t, e.MoveNext())
	assert.Nil(t, e.Current())
}

func TestSingleColumnProjectionYieldsBareValue(t *testing.T) {
	e := csvEnumerator(t, "id,name\n1,John\n", []int{1}, logging.Nop{})
	defer e.Close()

	require.True(t, e.MoveNext())
	assert.Equal(t, "John", e.Current())
}

func TestMultiColumnProjectionReorders(t *testing.T) {
	e := csvEnumerator(t, "a,b,c\n1,2,3\n", []int{2, 0}, logging.Nop{})
	defer e.Close()

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{"3", "1"}, e.Current())
}

func TestFullWidthProjectionPassesThrough(t *testing.T) {
	e := csvEnumerator(t, "a,b\n1,2\n", []int{0, 1}, logging.Nop{})
	defer e.Close()

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{"1", "2"}, e.Current())
}

func TestMalformedRecordIsSkipped(t *testing.T) {
	// The middle row fails integer coercion; only it is lost.
	data := "id,name\n1,John\nbogus,Jim\n3,Jane\n"
	spy := &spyLogger{}
	e, err := New(context.Background(),
		source.NewBytesSource([]byte(data)),
		delim.NewFactory(delim.Config{Overrides: mustOverrides(t, "id:int")}),
		nil, nil, spy)
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{int32(1), "John"}, e.Current())

	require.True(t, e.MoveNext())
	assert.Equal(t, []any{int32(3), "Jane"}, e.Current())

	assert.False(t, e.MoveNext())
	require.Len(t, spy.errors, 1)
	assert.Contains(t, spy.errors[0], "skipping")
}

func mustOverrides(t *testing.T, specs ...string) reader.Overrides {
	t.Helper()
	overrides, err := reader.ParseOverrides(specs)
	require.NoError(t, err)
	return overrides
}

func TestResetReopensSource(t *testing.T) {
	src := &countingSource{data: []byte("id\n1\n2\n")}
	e, err := New(context.Background(), src, delim.NewFactory(delim.Config{}), nil, nil, logging.Nop{})
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.MoveNext())
	require.True(t, e.MoveNext())
	assert.False(t, e.MoveNext())

	require.NoError(t, e.Reset())
	assert.Equal(t, 2, src.opens)

	require.True(t, e.MoveNext())
	assert.Equal(t, "1", e.Current())
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	e := csvEnumerator(t, "id\n1\n", nil, logging.Nop{})

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.False(t, e.MoveNext())
	assert.Nil(t, e.Current())
}

func TestOpenFailureSurfaces(t *testing.T) {
	failing := source.FactoryFunc(func(ctx context.Context) (io.ReadCloser, error) {
		return nil, fmt.Errorf("no such object")
	})
	_, err := New(context.Background(), failing, delim.NewFactory(delim.Config{}), nil, nil, logging.Nop{})
	require.Error(t, err)
}
