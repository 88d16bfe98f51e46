package reflectutil

import (
	"reflect"

	"github.com/llehouerou/go-graphql-gremlin/types"
)

// ImplementsValuer reports whether the given type implements types.Valuer.
func ImplementsValuer(t reflect.Type) bool {
	return t != nil && t.Implements(types.ValuerInterface)
}

// UnwrapValuer returns the wrapped value of v if v implements types.Valuer,
// and v itself otherwise. Nested wrappers are unwrapped until a plain value
// is reached. A nil pointer implementing Valuer unwraps to nil.
func UnwrapValuer(v any) any {
	for v != nil {
		valuer, ok := v.(types.Valuer)
		if !ok {
			return v
		}
		rv := reflect.ValueOf(valuer)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil
		}
		v = valuer.GremlinValue()
	}
	return v
}
