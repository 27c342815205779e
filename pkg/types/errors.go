package types

import "errors"

var (
	// ErrUnknownFieldType is returned when a type override names a field
	// type outside the closed FieldType set.
	ErrUnknownFieldType = errors.New("unknown field type")
)
