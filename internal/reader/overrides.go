package reader

import (
	"fmt"
	"strings"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/pkg/types"
)

// Override forces a declared data type for a named field, replacing type
// inference for that field.
type Override struct {
	Name     string
	DataType types.DataType
}

// Overrides is an ordered list of field type overrides. Order matters:
// overrides that never match an inferred or configured field are appended
// to the schema as trailing fields in this order.
type Overrides []Override

// Get returns the override for the named field, if any.
func (o Overrides) Get(name string) (types.DataType, bool) {
	for _, ov := range o {
		if ov.Name == name {
			return ov.DataType, true
		}
	}
	return types.DataType{}, false
}

// ParseOverride parses a "name:type" or "name:type:layout" specification.
// The layout portion is a Go time reference layout for temporal types.
func ParseOverride(spec string) (Override, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Override{}, rkerrors.NewSchemaError(rkerrors.CodeInvalidOverride,
			fmt.Sprintf("override %q is not of the form name:type[:layout]", spec), nil)
	}

	ft, err := types.ParseFieldType(strings.TrimSpace(parts[1]))
	if err != nil {
		return Override{}, rkerrors.NewSchemaError(rkerrors.CodeInvalidOverride,
			fmt.Sprintf("override %q names an unknown type", spec), err)
	}

	dt := types.DataType{Type: ft}
	if len(parts) == 3 {
		dt.Format = parts[2]
	}
	return Override{Name: parts[0], DataType: dt}, nil
}

// ParseOverrides parses a list of override specifications, preserving order.
func ParseOverrides(specs []string) (Overrides, error) {
	overrides := make(Overrides, 0, len(specs))
	for _, spec := range specs {
		ov, err := ParseOverride(spec)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, ov)
	}
	return overrides, nil
}
