// Package coerce converts textual values into the runtime representation
// implied by a declared DataType.
//
// The error policy is asymmetric on purpose: numeric and boolean parse
// failures are hard errors that fail the whole record, while temporal parse
// failures are logged and substituted with nil. Callers relying on
// skip-on-malformed semantics depend on this split.
package coerce

import (
	"fmt"
	"strconv"
	"time"

	rkerrors "github.com/rowkit/rowkit/internal/errors"
	"github.com/rowkit/rowkit/internal/logging"
	"github.com/rowkit/rowkit/pkg/types"
)

// Default temporal layouts, applied when the DataType carries no Format.
// All temporal values are interpreted in UTC.
const (
	DefaultDateLayout      = "2006-01-02"
	DefaultTimeLayout      = "15:04:05"
	DefaultTimestampLayout = "2006-01-02 15:04:05"
)

// Convert parses text into the runtime value for the given data type.
//
// An empty string becomes nil for typed targets; for String (and any type
// that passes through as text) the empty string is a valid value. A failed
// numeric or boolean parse returns a recoverable coercion error. A failed
// temporal parse logs a warning and returns nil.
func Convert(dt types.DataType, text string, logger logging.Logger) (any, error) {
	switch dt.Type {
	case types.BooleanType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return v, nil
	case types.ByteType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(text, 10, 8)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return int8(v), nil
	case types.ShortType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return int16(v), nil
	case types.IntType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return int32(v), nil
	case types.LongType, types.BigIntType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return v, nil
	case types.FloatType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return float32(v), nil
	case types.DoubleType:
		if text == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, coercionErr(dt.Type, text, err)
		}
		return v, nil
	case types.DateType:
		return parseTemporal(dt, text, DefaultDateLayout, logger), nil
	case types.TimeType:
		return parseTemporal(dt, text, DefaultTimeLayout, logger), nil
	case types.TimestampType:
		return parseTemporal(dt, text, DefaultTimestampLayout, logger), nil
	case types.StringType:
		return text, nil
	default:
		// Char and any future additions pass the text through unchanged.
		return text, nil
	}
}

func parseTemporal(dt types.DataType, text, defaultLayout string, logger logging.Logger) any {
	if text == "" {
		return nil
	}
	layout := dt.Format
	if layout == "" {
		layout = defaultLayout
	}
	t, err := time.ParseInLocation(layout, text, time.UTC)
	if err != nil {
		logger.Warnf("invalid value for %s field: %q does not match layout %q; substituting nil", dt.Type, text, layout)
		return nil
	}
	return t
}

func coercionErr(ft types.FieldType, text string, cause error) error {
	return rkerrors.NewCoercionError(fmt.Sprintf("invalid %s value %q", ft, text), cause)
}
