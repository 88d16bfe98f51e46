package reflectutil

import "reflect"

// IsNillable returns true if the given kind can hold a nil value.
func IsNillable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Ptr,
		reflect.Interface,
		reflect.Slice,
		reflect.Map,
		reflect.Chan,
		reflect.Func:
		return true
	default:
		return false
	}
}

// Indirect unwraps pointers and interfaces down to the concrete value.
// It returns an invalid reflect.Value when a nil is met on the way.
//
//	var x **int
//	Indirect(reflect.ValueOf(x)) // the int, or invalid if any pointer is nil
func Indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// IsNilValue reports whether v is invalid or a nil of a nillable kind.
// Non-nillable kinds (int, string, struct, ...) are never nil.
func IsNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	return IsNillable(v.Kind()) && v.IsNil()
}

// IsNil reports whether x is nil or an interface holding a nil pointer,
// map, slice, ...
func IsNil(x any) bool {
	return x == nil || IsNilValue(reflect.ValueOf(x))
}
