package reflectutil

import (
	"math"
	"reflect"
	"strings"
	"unicode"
)

// SnakeCase converts a Go identifier to snake_case.
// Runs of capitals are treated as one word: "CreatedAt" -> "created_at",
// "UserID" -> "user_id", "HTTPServer" -> "http_server".
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IndirectType strips pointer, slice and array layers from t:
// []*User -> User.
func IndirectType(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
	return t
}

// IsIntegerKind reports whether k is a signed or unsigned integer kind.
func IsIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// IsFloatKind reports whether k is a floating point kind.
func IsFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// Int64 converts an integer or an integral floating point value to int64.
// Values outside the int64 range are rejected. JSON numbers decode as
// float64, so 30.0 is accepted while 30.5 and 2^63 are not.
func Int64(rv reflect.Value) (int64, bool) {
	switch k := rv.Kind(); {
	case k == reflect.Uint, k == reflect.Uint8, k == reflect.Uint16, k == reflect.Uint32, k == reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case IsIntegerKind(k):
		return rv.Int(), true
	case IsFloatKind(k):
		// float64(math.MaxInt64) rounds up to 2^63, hence the strict bound.
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}
