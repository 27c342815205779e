package reader

import (
	"math"
	"time"

	"github.com/rowkit/rowkit/pkg/types"
)

// Classify deduces the declared field type for a decoded sample value. The
// second return is false when the value is nil and nothing can be deduced.
// Anything structured or otherwise unrecognized classifies as Record.
func Classify(v any) (types.FieldType, bool) {
	if v == nil {
		return types.StringType, false
	}

	switch v.(type) {
	case string:
		return types.StringType, true
	case bool:
		return types.BooleanType, true
	case int8:
		return types.ByteType, true
	case int16:
		return types.ShortType, true
	case int32, int:
		return types.IntType, true
	case int64:
		return types.LongType, true
	case float32:
		return types.FloatType, true
	case float64:
		return types.DoubleType, true
	case time.Time:
		return types.DateType, true
	case []any:
		return types.ArrayType, true
	case map[string]any:
		return types.RecordType, true
	default:
		return types.RecordType, true
	}
}

// NormalizeNumber narrows a decoded JSON number to the smallest natural
// representation: int32 when integral and in range, then int64, else the
// float64 as given. JSON decoders in this package surface all numbers as
// float64; without narrowing every numeric field would infer as Double.
func NormalizeNumber(f float64) any {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		return int32(f)
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
