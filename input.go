package gqlgremlin

import (
	"reflect"

	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Payload is one resolver invocation as sent by the GraphQL gateway.
type Payload struct {
	TypeName  string         `json:"type_name"`
	FieldName string         `json:"field_name"`
	Arguments map[string]any `json:"arguments"`
	Identity  map[string]any `json:"identity"`
	Source    map[string]any `json:"source"`
}

// Input is the read-only view of a Payload handed to resolver bodies.
type Input struct {
	typeName  string
	fieldName string
	arguments map[string]any
	identity  map[string]any
	source    map[string]any
}

// NewInput builds the Input of p. Nil arguments are replaced by an empty
// map; identity and source stay nil when absent.
func NewInput(p Payload) *Input {
	args := make(map[string]any, len(p.Arguments))
	for k, v := range p.Arguments {
		args[k] = v
	}
	return &Input{
		typeName:  p.TypeName,
		fieldName: p.FieldName,
		arguments: args,
		identity:  p.Identity,
		source:    p.Source,
	}
}

// TypeName returns the GraphQL type enclosing the resolved field, e.g. Query.
func (in *Input) TypeName() string { return in.typeName }

// FieldName returns the resolved GraphQL field.
func (in *Input) FieldName() string { return in.fieldName }

// Arguments returns a copy of the field arguments.
func (in *Input) Arguments() map[string]any {
	out := make(map[string]any, len(in.arguments))
	for k, v := range in.arguments {
		out[k] = v
	}
	return out
}

// Argument returns the argument name and whether it was supplied.
func (in *Input) Argument(name string) (any, bool) {
	v, ok := in.arguments[name]
	return v, ok
}

// Identity returns the caller identity, nil for anonymous calls.
func (in *Input) Identity() map[string]any { return in.identity }

// Source returns the parent object of a nested field, nil for root fields.
func (in *Input) Source() map[string]any { return in.source }

// Filter returns the vertex filter input, the "input" argument.
func (in *Input) Filter() any {
	return in.arguments[types.FilterArgument]
}

// StringArgument returns a required string argument. A missing or
// non-string argument is a BAD_REQUEST failure.
func (in *Input) StringArgument(name string) (string, error) {
	v, ok := in.arguments[name]
	if !ok || v == nil {
		return "", types.BadRequest("argument %q is required", name).WithData("argument", name)
	}
	rv := reflectutil.Indirect(reflect.ValueOf(reflectutil.UnwrapValuer(v)))
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return "", types.BadRequest("argument %q must be a string, got %T", name, v).WithData("argument", name)
	}
	return rv.String(), nil
}

// IntArgument returns a required integer argument. JSON numbers with an
// integral value are accepted.
func (in *Input) IntArgument(name string) (int64, error) {
	v, ok := in.arguments[name]
	if !ok || v == nil {
		return 0, types.BadRequest("argument %q is required", name).WithData("argument", name)
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, types.BadRequest("argument %q must be an integer, got %v", name, v).WithData("argument", name)
	}
	return n, nil
}

// Pagination returns the page and page size requested through the
// "pagination" argument. Missing fields default to page 1 and
// defaultPerPage; present is false when the argument was not supplied.
// Range validation is left to Range.
func (in *Input) Pagination(defaultPerPage int64) (page, perPage int64, present bool, err error) {
	raw, ok := in.arguments[types.PaginationArgument]
	if !ok || raw == nil {
		return types.DefaultPage, defaultPerPage, false, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, 0, true, types.BadRequest("argument %q must be an object", types.PaginationArgument)
	}

	page, perPage = types.DefaultPage, defaultPerPage
	for key, dst := range map[string]*int64{types.PageField: &page, types.PerPageField: &perPage} {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		n, ok := toInt64(v)
		if !ok {
			return 0, 0, true, types.BadRequest("pagination %s must be an integer, got %v", key, v).
				WithData("field", key)
		}
		*dst = n
	}
	return page, perPage, true, nil
}

func toInt64(v any) (int64, bool) {
	return reflectutil.Int64(reflectutil.Indirect(reflect.ValueOf(reflectutil.UnwrapValuer(v))))
}
