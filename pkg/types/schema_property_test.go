package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_SchemaFingerprint validates that the schema fingerprint is a
// pure function of the ordered field list: equal field lists always agree,
// and appending a field always changes the fingerprint.
func TestProperty_SchemaFingerprint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	fieldGen := gen.SliceOf(gen.Identifier()).Map(func(names []string) []RecordField {
		fields := make([]RecordField, len(names))
		for i, n := range names {
			fields[i] = RecordField{Name: n, DataType: DataType{Type: FieldType(i % 15)}}
		}
		return fields
	})

	properties.Property("equal field lists produce equal fingerprints", prop.ForAll(
		func(fields []RecordField) bool {
			return NewRecordSchema(fields).Fingerprint() == NewRecordSchema(fields).Fingerprint()
		},
		fieldGen,
	))

	properties.Property("appending a field changes the fingerprint", prop.ForAll(
		func(fields []RecordField, extra string) bool {
			s := NewRecordSchema(fields)
			grown := s.WithField(RecordField{Name: extra, DataType: DataType{Type: StringType}})
			return s.Fingerprint() != grown.Fingerprint()
		},
		fieldGen,
		gen.Identifier(),
	))

	properties.Property("growth preserves existing field positions", prop.ForAll(
		func(fields []RecordField, extra string) bool {
			s := NewRecordSchema(fields)
			grown := s.WithField(RecordField{Name: extra, DataType: DataType{Type: StringType}})
			if grown.FieldCount() != s.FieldCount()+1 {
				return false
			}
			for i := 0; i < s.FieldCount(); i++ {
				if grown.Field(i).Name != s.Field(i).Name {
					return false
				}
			}
			return true
		},
		fieldGen,
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
