package types

import "reflect"

// Valuer is implemented by argument types that wrap a plain value, such as
// custom GraphQL scalars. Filters and property writes use the wrapped value.
//
//	type Email struct{ Address string }
//
//	func (e Email) GremlinValue() any { return e.Address }
type Valuer interface {
	GremlinValue() any
}

// ValuerInterface is the reflect.Type of the Valuer interface.
var ValuerInterface = reflect.TypeOf((*Valuer)(nil)).Elem()
