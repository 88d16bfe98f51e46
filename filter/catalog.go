package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Kind is the scalar kind a filter applies to.
type Kind int

const (
	KindID Kind = iota
	KindString
	KindInt
	KindFloat
	KindBoolean
	KindDateTime
	KindEnum
)

var kindNames = [...]string{
	KindID:       "ID",
	KindString:   "String",
	KindInt:      "Int",
	KindFloat:    "Float",
	KindBoolean:  "Boolean",
	KindDateTime: "DateTime",
	KindEnum:     "Enum",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses a kind name, case-insensitively ("id", "datetime", ...).
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}

// Operator names as they appear in filter inputs.
const (
	OpNe            = "ne"
	OpEq            = "eq"
	OpLe            = "le"
	OpLt            = "lt"
	OpGe            = "ge"
	OpGt            = "gt"
	OpIn            = "in"
	OpNotIn         = "not_in"
	OpContains      = "contains"
	OpNotContains   = "not_contains"
	OpBeginsWith    = "begins_with"
	OpNotBeginsWith = "not_begins_with"
	OpEndsWith      = "ends_with"
	OpNotEndsWith   = "not_ends_with"
)

type family int

const (
	familyEquality family = iota
	familyMembership
	familyOrdering
	familyText
)

type operator struct {
	name      string
	family    family
	predicate func(v any) traversal.P
}

// operators is the catalog in canonical order. Scalar filters apply their
// operators in this order.
var operators = []operator{
	{OpNe, familyEquality, traversal.Neq},
	{OpEq, familyEquality, traversal.Eq},
	{OpLe, familyOrdering, traversal.Lte},
	{OpLt, familyOrdering, traversal.Lt},
	{OpGe, familyOrdering, traversal.Gte},
	{OpGt, familyOrdering, traversal.Gt},
	{OpIn, familyMembership, func(v any) traversal.P { return traversal.Within(v.([]any)...) }},
	{OpNotIn, familyMembership, func(v any) traversal.P { return traversal.Without(v.([]any)...) }},
	{OpContains, familyText, func(v any) traversal.P { return traversal.Containing(v.(string)) }},
	{OpNotContains, familyText, func(v any) traversal.P { return traversal.NotContaining(v.(string)) }},
	{OpBeginsWith, familyText, func(v any) traversal.P { return traversal.StartingWith(v.(string)) }},
	{OpNotBeginsWith, familyText, func(v any) traversal.P { return traversal.NotStartingWith(v.(string)) }},
	{OpEndsWith, familyText, func(v any) traversal.P { return traversal.EndingWith(v.(string)) }},
	{OpNotEndsWith, familyText, func(v any) traversal.P { return traversal.NotEndingWith(v.(string)) }},
}

var operatorIndex = func() map[string]int {
	idx := make(map[string]int, len(operators))
	for i, op := range operators {
		idx[op.name] = i
	}
	return idx
}()

// families lists the operator families each kind supports.
var families = map[Kind][]family{
	KindID:       {familyEquality, familyMembership},
	KindString:   {familyEquality, familyMembership, familyText},
	KindInt:      {familyEquality, familyMembership, familyOrdering},
	KindFloat:    {familyEquality, familyMembership, familyOrdering},
	KindBoolean:  {familyEquality, familyMembership},
	KindDateTime: {familyEquality, familyMembership, familyOrdering},
	KindEnum:     {familyEquality, familyMembership},
}

// defaultOperators overrides the full catalog of a kind when a ready-made
// filter exposes less than what the kind supports.
var defaultOperators = map[Kind][]string{
	KindBoolean: {OpNe, OpEq},
}

// Supports reports whether the catalog allows op on kind.
func Supports(kind Kind, op string) bool {
	i, ok := operatorIndex[op]
	if !ok {
		return false
	}
	for _, f := range families[kind] {
		if operators[i].family == f {
			return true
		}
	}
	return false
}

// Operators returns the operators the catalog allows on kind, in canonical
// order.
func Operators(kind Kind) []string {
	var out []string
	for _, op := range operators {
		if Supports(kind, op.name) {
			out = append(out, op.name)
		}
	}
	return out
}

// predicate coerces value to kind and builds the predicate of op. Values of
// the wrong shape are reported as BAD_REQUEST failures.
func predicate(kind Kind, op string, value any) (traversal.P, error) {
	entry := operators[operatorIndex[op]]
	switch entry.family {
	case familyMembership:
		list, ok := toList(value)
		if !ok {
			return traversal.P{}, types.BadRequest("operator %s expects a list, got %T", op, value)
		}
		coerced := make([]any, len(list))
		for i, item := range list {
			v, err := coerce(kind, item)
			if err != nil {
				return traversal.P{}, err
			}
			coerced[i] = v
		}
		return entry.predicate(coerced), nil
	case familyText:
		s, ok := reflectutil.UnwrapValuer(value).(string)
		if !ok {
			return traversal.P{}, types.BadRequest("operator %s expects a string, got %T", op, value)
		}
		return entry.predicate(s), nil
	default:
		v, err := coerce(kind, value)
		if err != nil {
			return traversal.P{}, err
		}
		return entry.predicate(v), nil
	}
}

// coerce converts a request value to the Go representation of kind: string
// for ID, String and Enum, int64, float64, bool and UTC time.Time.
func coerce(kind Kind, value any) (any, error) {
	value = reflectutil.UnwrapValuer(value)
	if value == nil {
		return nil, types.BadRequest("%s filter value must not be null", kind)
	}
	rv := reflectutil.Indirect(reflect.ValueOf(value))
	if !rv.IsValid() {
		return nil, types.BadRequest("%s filter value must not be null", kind)
	}

	switch kind {
	case KindID:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		if n, ok := reflectutil.Int64(rv); ok {
			return n, nil
		}
	case KindString, KindEnum:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindInt:
		if n, ok := reflectutil.Int64(rv); ok {
			return n, nil
		}
	case KindFloat:
		if reflectutil.IsFloatKind(rv.Kind()) {
			return rv.Float(), nil
		}
		if n, ok := reflectutil.Int64(rv); ok {
			return float64(n), nil
		}
	case KindBoolean:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindDateTime:
		return NormalizeDateTime(rv.Interface())
	}
	return nil, types.BadRequest("invalid %s filter value %v (%T)", kind, value, value)
}

// toList accepts any slice or array.
func toList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflectutil.Indirect(reflect.ValueOf(value))
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}
