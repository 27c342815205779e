package avro

import (
	"fmt"

	hamba "github.com/hamba/avro/v2"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/pkg/types"
)

// translator walks an Avro schema tree and produces the declared type
// model. Named schemas currently being translated are tracked so that
// self-referential records terminate as opaque Record slots instead of
// recursing forever.
type translator struct {
	inProgress map[string]bool
}

func newTranslator() *translator {
	return &translator{inProgress: make(map[string]bool)}
}

// translateRecord translates the top-level record schema of a container.
func (t *translator) translateRecord(rec *hamba.RecordSchema) (*types.RecordSchema, error) {
	if t.inProgress[rec.FullName()] {
		return nil, nil
	}
	t.inProgress[rec.FullName()] = true
	defer delete(t.inProgress, rec.FullName())

	fields := make([]types.RecordField, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		dt, err := t.translateType(f.Type())
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.RecordField{Name: f.Name(), DataType: dt})
	}
	return types.NewRecordSchema(fields), nil
}

// translateType maps one Avro schema node onto a declared DataType.
func (t *translator) translateType(s hamba.Schema) (types.DataType, error) {
	switch s.Type() {
	case hamba.Ref:
		return t.translateType(s.(*hamba.RefSchema).Schema())
	case hamba.String, hamba.Enum:
		return types.DataType{Type: types.StringType}, nil
	case hamba.Boolean:
		return types.DataType{Type: types.BooleanType}, nil
	case hamba.Int:
		if lt := logicalTypeOf(s); lt == hamba.Date {
			return types.DataType{Type: types.DateType}, nil
		} else if lt == hamba.TimeMillis {
			return types.DataType{Type: types.TimeType}, nil
		}
		return types.DataType{Type: types.IntType}, nil
	case hamba.Long:
		switch logicalTypeOf(s) {
		case hamba.TimeMicros:
			return types.DataType{Type: types.TimeType}, nil
		case hamba.TimestampMillis, hamba.TimestampMicros:
			return types.DataType{Type: types.TimestampType}, nil
		}
		return types.DataType{Type: types.LongType}, nil
	case hamba.Float:
		return types.DataType{Type: types.FloatType}, nil
	case hamba.Double:
		return types.DataType{Type: types.DoubleType}, nil
	case hamba.Null:
		// A standalone null schema is an always-nil opaque slot.
		return types.DataType{Type: types.RecordType}, nil
	case hamba.Bytes, hamba.Fixed:
		return types.DataType{
			Type: types.ArrayType,
			Elem: &types.DataType{Type: types.ByteType},
		}, nil
	case hamba.Array:
		elem, err := t.translateType(s.(*hamba.ArraySchema).Items())
		if err != nil {
			return types.DataType{}, err
		}
		return types.DataType{Type: types.ArrayType, Elem: &elem}, nil
	case hamba.Map:
		return types.DataType{Type: types.RecordType}, nil
	case hamba.Record:
		child, err := t.translateRecord(s.(*hamba.RecordSchema))
		if err != nil {
			return types.DataType{}, err
		}
		return types.DataType{Type: types.RecordType, Child: child}, nil
	case hamba.Union:
		return t.translateUnion(s.(*hamba.UnionSchema))
	default:
		return types.DataType{}, rkerrors.NewSchemaError(rkerrors.CodeUnsupportedSchema,
			fmt.Sprintf("unsupported source schema type %q", s.Type()), nil)
	}
}

// translateUnion erases nullability: union[null, T] becomes T. A union
// with two or more non-null alternatives cannot be statically narrowed and
// becomes an opaque Record; the concrete branch is resolved per value.
func (t *translator) translateUnion(us *hamba.UnionSchema) (types.DataType, error) {
	var nonNull []hamba.Schema
	for _, alt := range us.Types() {
		if alt.Type() != hamba.Null {
			nonNull = append(nonNull, alt)
		}
	}

	switch len(nonNull) {
	case 0:
		return types.DataType{Type: types.RecordType}, nil
	case 1:
		return t.translateType(nonNull[0])
	default:
		return types.DataType{Type: types.RecordType}, nil
	}
}

func logicalTypeOf(s hamba.Schema) hamba.LogicalType {
	ls, ok := s.(hamba.LogicalTypeSchema)
	if !ok {
		return ""
	}
	logical := ls.Logical()
	if logical == nil {
		return ""
	}
	return logical.Type()
}
