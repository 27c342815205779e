package avro

import (
	"bytes"
	"io"
	"testing"

	hamba "github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/pkg/types"
)

const accountSchema = `{
	"type": "record",
	"name": "Account",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "name", "type": "string"},
		{"name": "balance", "type": "double"},
		{"name": "rate", "type": "float"},
		{"name": "active", "type": "boolean"},
		{"name": "nickname", "type": ["null", "string"]},
		{"name": "binary", "type": "bytes"},
		{"name": "labels", "type": {"type": "map", "values": "string"}},
		{"name": "scores", "type": {"type": "array", "items": "long"}},
		{"name": "address", "type": {
			"type": "record",
			"name": "Address",
			"fields": [
				{"name": "city", "type": "string"},
				{"name": "zip", "type": "string"}
			]
		}},
		{"name": "debt", "type": ["null", "string", "long"]}
	]
}`

func encodeContainer(t *testing.T, schema string, records []map[string]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(schema, &buf)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, enc.Encode(rec))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func TestTranslateContainerSchema(t *testing.T) {
	parsed, err := hamba.Parse(accountSchema)
	require.NoError(t, err)

	schema, err := newTranslator().translateRecord(parsed.(*hamba.RecordSchema))
	require.NoError(t, err)

	expect := map[string]types.FieldType{
		"id":       types.LongType,
		"name":     types.StringType,
		"balance":  types.DoubleType,
		"rate":     types.FloatType,
		"active":   types.BooleanType,
		"nickname": types.StringType,
		"binary":   types.ArrayType,
		"labels":   types.RecordType,
		"scores":   types.ArrayType,
		"address":  types.RecordType,
		"debt":     types.RecordType,
	}
	for name, want := range expect {
		dt, ok := schema.DataType(name)
		require.True(t, ok, "field %s missing", name)
		assert.Equal(t, want, dt.Type, "field %s", name)
	}

	// Bytes fields carry a byte element type.
	dt, _ := schema.DataType("binary")
	require.NotNil(t, dt.Elem)
	assert.Equal(t, types.ByteType, dt.Elem.Type)

	// A statically known record shape carries a child schema; unions and
	// maps do not.
	dt, _ = schema.DataType("address")
	require.NotNil(t, dt.Child)
	assert.Equal(t, []string{"city", "zip"}, dt.Child.FieldNames())
	dt, _ = schema.DataType("debt")
	assert.Nil(t, dt.Child)
}

func TestTranslateLogicalTypes(t *testing.T) {
	const schema = `{
		"type": "record",
		"name": "Temporal",
		"fields": [
			{"name": "d", "type": {"type": "int", "logicalType": "date"}},
			{"name": "tm", "type": {"type": "int", "logicalType": "time-millis"}},
			{"name": "tu", "type": {"type": "long", "logicalType": "time-micros"}},
			{"name": "tsm", "type": {"type": "long", "logicalType": "timestamp-millis"}},
			{"name": "tsu", "type": {"type": "long", "logicalType": "timestamp-micros"}}
		]
	}`
	parsed, err := hamba.Parse(schema)
	require.NoError(t, err)

	rs, err := newTranslator().translateRecord(parsed.(*hamba.RecordSchema))
	require.NoError(t, err)

	for name, want := range map[string]types.FieldType{
		"d":   types.DateType,
		"tm":  types.TimeType,
		"tu":  types.TimeType,
		"tsm": types.TimestampType,
		"tsu": types.TimestampType,
	} {
		dt, ok := rs.DataType(name)
		require.True(t, ok)
		assert.Equal(t, want, dt.Type, "field %s", name)
	}
}

func TestReadContainer(t *testing.T) {
	data := encodeContainer(t, accountSchema, []map[string]any{
		{
			"id":       int64(1),
			"name":     "John",
			"balance":  4750.89,
			"rate":     float32(0.045),
			"active":   true,
			"nickname": "Johnny",
			"binary":   []byte{0x01, 0x02},
			"labels":   map[string]any{"tier": "gold"},
			"scores":   []any{int64(10), int64(20)},
			"address":  map[string]any{"city": "Boston", "zip": "02134"},
			"debt":     map[string]any{"long": int64(150)},
		},
		{
			"id":       int64(2),
			"name":     "Jane",
			"balance":  4820.09,
			"rate":     float32(0.035),
			"active":   false,
			"nickname": nil,
			"binary":   []byte{},
			"labels":   map[string]any{},
			"scores":   []any{},
			"address":  map[string]any{"city": "Austin", "zip": "78701"},
			"debt":     nil,
		},
	})

	r, err := NewReader(bytes.NewReader(data), logging.Nop{})
	require.NoError(t, err)
	defer r.Close()

	schema, err := r.Schema()
	require.NoError(t, err)
	require.Equal(t, 11, schema.FieldCount())

	row, err := r.NextRecord(schema)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row[schema.Index("id")])
	assert.Equal(t, "John", row[schema.Index("name")])
	assert.Equal(t, 4750.89, row[schema.Index("balance")])
	assert.Equal(t, float32(0.045), row[schema.Index("rate")])
	assert.Equal(t, true, row[schema.Index("active")])
	assert.Equal(t, "Johnny", row[schema.Index("nickname")])
	assert.Equal(t, []byte{0x01, 0x02}, row[schema.Index("binary")])
	assert.Equal(t, map[string]any{"tier": "gold"}, row[schema.Index("labels")])
	assert.Equal(t, []any{int64(10), int64(20)}, row[schema.Index("scores")])
	assert.Equal(t, map[string]any{"city": "Boston", "zip": "02134"}, row[schema.Index("address")])
	assert.Equal(t, int64(150), row[schema.Index("debt")])

	row, err = r.NextRecord(schema)
	require.NoError(t, err)
	assert.Equal(t, int64(2), row[schema.Index("id")])
	assert.Nil(t, row[schema.Index("nickname")])
	assert.Nil(t, row[schema.Index("debt")])

	_, err = r.NextRecord(schema)
	assert.Equal(t, io.EOF, err)
}

func TestUnionOfRecordsFlattensActualBranch(t *testing.T) {
	const schema = `{
		"type": "record",
		"name": "Event",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "detail", "type": [
				{
					"type": "record",
					"name": "Account",
					"fields": [
						{"name": "accountId", "type": "long"},
						{"name": "accountName", "type": "string"}
					]
				},
				{
					"type": "record",
					"name": "Location",
					"fields": [
						{"name": "city", "type": "string"}
					]
				}
			]}
		]
	}`
	data := encodeContainer(t, schema, []map[string]any{
		{
			"id":     int64(1),
			"detail": map[string]any{"Account": map[string]any{"accountId": int64(83), "accountName": "Checking"}},
		},
		{
			"id":     int64(2),
			"detail": map[string]any{"Location": map[string]any{"city": "Boston"}},
		},
	})

	r, err := NewReader(bytes.NewReader(data), logging.Nop{})
	require.NoError(t, err)
	defer r.Close()

	rs, err := r.Schema()
	require.NoError(t, err)

	// Two structurally different branches share one opaque Record slot.
	dt, ok := rs.DataType("detail")
	require.True(t, ok)
	assert.Equal(t, types.RecordType, dt.Type)
	assert.Nil(t, dt.Child)

	// Each value carries only the encoded branch's fields, flattened.
	row, err := r.NextRecord(rs)
	require.NoError(t, err)
	detail, ok := row[rs.Index("detail")].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"accountId": int64(83), "accountName": "Checking"}, detail)
	assert.NotContains(t, detail, "city")

	row, err = r.NextRecord(rs)
	require.NoError(t, err)
	detail, ok = row[rs.Index("detail")].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"city": "Boston"}, detail)
	assert.NotContains(t, detail, "accountId")

	_, err = r.NextRecord(rs)
	assert.Equal(t, io.EOF, err)
}

func TestNonRecordTopLevelRejected(t *testing.T) {
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(`"string"`, &buf)
	require.NoError(t, err)
	require.NoError(t, enc.Encode("just text"))
	require.NoError(t, enc.Close())

	_, err = NewReader(bytes.NewReader(buf.Bytes()), logging.Nop{})
	require.Error(t, err)
}

func TestGarbageInputRejected(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not a container")), logging.Nop{})
	require.Error(t, err)
}

func TestFixedValuesDecodeToByteSlices(t *testing.T) {
	b, ok := toByteSlice([3]byte{0x0a, 0x0b, 0x0c})
	require.True(t, ok)
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, b)

	b, ok = toByteSlice("ab")
	require.True(t, ok)
	assert.Equal(t, []byte("ab"), b)

	_, ok = toByteSlice(42)
	assert.False(t, ok)
}
