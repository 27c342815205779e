// Package types provides the declared-type vocabulary and record schema
// model shared by every rowkit reader.
package types

import "fmt"

// FieldType is the closed set of declared field types a RecordSchema can
// carry. Record is the catch-all for structured values: nested records,
// maps, and unions that cannot be statically narrowed to one shape.
type FieldType int

const (
	StringType FieldType = iota
	BooleanType
	ByteType
	ShortType
	IntType
	LongType
	BigIntType
	FloatType
	DoubleType
	CharType
	DateType
	TimeType
	TimestampType
	ArrayType
	RecordType
)

var fieldTypeNames = map[FieldType]string{
	StringType:    "string",
	BooleanType:   "boolean",
	ByteType:      "byte",
	ShortType:     "short",
	IntType:       "int",
	LongType:      "long",
	BigIntType:    "bigint",
	FloatType:     "float",
	DoubleType:    "double",
	CharType:      "char",
	DateType:      "date",
	TimeType:      "time",
	TimestampType: "timestamp",
	ArrayType:     "array",
	RecordType:    "record",
}

// String returns the canonical lowercase name of the field type.
func (ft FieldType) String() string {
	if name, ok := fieldTypeNames[ft]; ok {
		return name
	}
	return fmt.Sprintf("fieldtype(%d)", int(ft))
}

// ParseFieldType resolves a canonical type name to a FieldType. It is used
// when parsing caller-supplied type overrides.
func ParseFieldType(name string) (FieldType, error) {
	for ft, n := range fieldTypeNames {
		if n == name {
			return ft, nil
		}
	}
	return StringType, fmt.Errorf("%w: %q", ErrUnknownFieldType, name)
}

// DataType is a field's declared type plus the optional temporal parse
// layout and the optional nested schema. Elem carries the element type for
// ArrayType when known; Child carries the nested RecordSchema for
// RecordType when the source schema pins exactly one record shape. Both may
// be nil, in which case resolution happens per value at decode time.
type DataType struct {
	Type   FieldType
	Format string
	Elem   *DataType
	Child  *RecordSchema
}

// RecordField is a named, typed slot in a RecordSchema. Order of fields is
// significant; it defines the positional index of values.
type RecordField struct {
	Name     string
	DataType DataType
}
