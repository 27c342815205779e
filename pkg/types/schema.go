package types

import (
	"strings"

	"github.com/spaolacci/murmur3"
)

// RecordSchema is an ordered, name-addressable set of typed fields. It is
// immutable after construction; adding a field always builds a new schema.
// Immutability makes schemas freely shareable across goroutines for reads.
type RecordSchema struct {
	fields      []RecordField
	byName      map[string]int
	fingerprint uint64
}

// NewRecordSchema builds a schema from an ordered field list. Name
// uniqueness is the caller's responsibility; on a duplicate name the first
// occurrence wins for name lookups.
func NewRecordSchema(fields []RecordField) *RecordSchema {
	s := &RecordSchema{
		fields: append([]RecordField(nil), fields...),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if _, exists := s.byName[f.Name]; !exists {
			s.byName[f.Name] = i
		}
	}
	s.fingerprint = fingerprint(s.fields)
	return s
}

// FieldCount returns the number of fields. Every record conforming to this
// schema has exactly this many values.
func (s *RecordSchema) FieldCount() int {
	return len(s.fields)
}

// Field returns the field at positional index i.
func (s *RecordSchema) Field(i int) RecordField {
	return s.fields[i]
}

// FieldNames returns the field names in positional order.
func (s *RecordSchema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// DataTypes returns the declared data types in positional order.
func (s *RecordSchema) DataTypes() []DataType {
	dts := make([]DataType, len(s.fields))
	for i, f := range s.fields {
		dts[i] = f.DataType
	}
	return dts
}

// DataType looks up a field's declared type by name. An absent name is not
// an error; the second return is false.
func (s *RecordSchema) DataType(name string) (DataType, bool) {
	i, ok := s.byName[name]
	if !ok {
		return DataType{}, false
	}
	return s.fields[i].DataType, true
}

// Index returns the positional index of the named field, or -1.
func (s *RecordSchema) Index(name string) int {
	i, ok := s.byName[name]
	if !ok {
		return -1
	}
	return i
}

// WithField returns a new schema with the field appended at the end.
// Existing fields keep their positions.
func (s *RecordSchema) WithField(f RecordField) *RecordSchema {
	fields := make([]RecordField, 0, len(s.fields)+1)
	fields = append(fields, s.fields...)
	fields = append(fields, f)
	return NewRecordSchema(fields)
}

// Fingerprint returns a 64-bit murmur3 hash of the ordered field names and
// declared types. Two schemas with the same fields in the same order have
// the same fingerprint.
func (s *RecordSchema) Fingerprint() uint64 {
	return s.fingerprint
}

func fingerprint(fields []RecordField) uint64 {
	h := murmur3.New64()
	var sb strings.Builder
	for _, f := range fields {
		sb.Reset()
		sb.WriteString(f.Name)
		sb.WriteByte(':')
		sb.WriteString(f.DataType.Type.String())
		if f.DataType.Format != "" {
			sb.WriteByte(':')
			sb.WriteString(f.DataType.Format)
		}
		sb.WriteByte('\n')
		h.Write([]byte(sb.String()))
	}
	return h.Sum64()
}
