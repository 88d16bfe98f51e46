// Package filter compiles GraphQL filter inputs into traversal fragments.
//
// Filters are declared once, at initialization time, and are read-only
// afterwards:
//
//	user := filter.NewVertex("User")
//	user.Field("id", filter.ID().On(traversal.TokenID))
//	user.Field("name", filter.String())
//	user.Field("following", filter.Relationship("FOLLOWING", filter.Out, user))
//
// Compiling an input such as
//
//	{"name": {"begins_with": "J"}, "following": {"name": {"eq": "Jane"}}}
//
// yields
//
//	__.hasLabel('User').has('name',startingWith('J'))
//	  .where(__.out('FOLLOWING').hasLabel('User').has('name',eq('Jane')))
//
// Invalid inputs are reported as *types.Failure values (BAD_REQUEST,
// INVALID_FILTER_FIELD); invalid declarations as plain errors.
package filter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Filter is a field of a vertex filter: a *ScalarFilter or a
// *RelationshipFilter.
type Filter interface {
	// fieldFilter seals the interface.
	fieldFilter()
}

func (*ScalarFilter) fieldFilter()       {}
func (*RelationshipFilter) fieldFilter() {}

// toMap converts a filter input object to a map. It accepts maps with string
// keys and structs (field names from json tags, else snake_case); nil
// pointer fields and nil map values are dropped. ok is false when input is
// nil.
func toMap(input any) (map[string]any, bool, error) {
	if m, isMap := input.(map[string]any); isMap {
		if m == nil {
			return nil, false, nil
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			if !reflectutil.IsNil(v) {
				out[k] = v
			}
		}
		return out, true, nil
	}

	input = reflectutil.UnwrapValuer(input)
	rv := reflectutil.Indirect(reflect.ValueOf(input))
	if !rv.IsValid() || reflectutil.IsNilValue(rv) {
		return nil, false, nil
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v := iter.Value()
			if reflectutil.IsNilValue(v) {
				continue
			}
			out[iter.Key().String()] = v.Interface()
		}
		return out, true, nil
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := inputFieldName(sf)
			if name == "" {
				continue
			}
			v := rv.Field(i)
			if reflectutil.IsNilValue(v) {
				continue
			}
			out[name] = v.Interface()
		}
		return out, true, nil
	}
	return nil, false, types.BadRequest("filter input must be an object, got %T", input)
}

func inputFieldName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return reflectutil.SnakeCase(sf.Name)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func configError(format string, args ...any) error {
	return fmt.Errorf("filter: "+format, args...)
}
