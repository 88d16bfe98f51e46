package filter

import (
	"fmt"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// ScalarFilter compiles the filter input of one scalar property, e.g.
// {eq: "John", ne: "Jane"}, into has() steps.
//
// A ScalarFilter is either bound to a property key (On) or unbound; an
// unbound filter used as a vertex filter field is bound to the field name.
type ScalarFilter struct {
	kind Kind
	key  traversal.Key
	ops  []string
	enum []string
}

// NewScalar creates an unbound scalar filter of kind accepting the given
// operators, or the whole catalog of the kind when none are given. An
// operator the catalog does not allow for kind (lt on String, contains on
// Int, ...) is an error.
func NewScalar(kind Kind, ops ...string) (*ScalarFilter, error) {
	if _, ok := families[kind]; !ok {
		return nil, configError("unknown kind %v", kind)
	}
	f := &ScalarFilter{kind: kind}
	if len(ops) == 0 {
		f.ops = Operators(kind)
		return f, nil
	}

	wanted := make(map[string]bool, len(ops))
	for _, op := range ops {
		if _, known := operatorIndex[op]; !known {
			return nil, configError("unknown operator %q", op)
		}
		if !Supports(kind, op) {
			return nil, configError("operator %q is not supported on %s", op, kind)
		}
		wanted[op] = true
	}
	for _, op := range operators {
		if wanted[op.name] {
			f.ops = append(f.ops, op.name)
		}
	}
	return f, nil
}

func mustScalar(kind Kind, ops ...string) *ScalarFilter {
	f, err := NewScalar(kind, ops...)
	if err != nil {
		panic(err)
	}
	return f
}

// ID returns an ID filter: ne, eq, in, not_in.
func ID() *ScalarFilter { return mustScalar(KindID) }

// String returns a String filter: equality, membership and the text family.
func String() *ScalarFilter { return mustScalar(KindString) }

// Int returns an Int filter: equality, ordering and membership.
func Int() *ScalarFilter { return mustScalar(KindInt) }

// Float returns a Float filter: equality, ordering and membership.
func Float() *ScalarFilter { return mustScalar(KindFloat) }

// Boolean returns a Boolean filter: ne, eq.
func Boolean() *ScalarFilter { return mustScalar(KindBoolean, defaultOperators[KindBoolean]...) }

// DateTime returns a DateTime filter: equality, ordering and membership.
func DateTime() *ScalarFilter { return mustScalar(KindDateTime) }

// Enum returns a filter over a closed enumeration: ne, eq, in, not_in. A
// value outside values is a BAD_REQUEST.
func Enum(values ...string) *ScalarFilter {
	f := mustScalar(KindEnum)
	f.enum = append([]string(nil), values...)
	return f
}

// On returns a copy of f bound to key.
func (f *ScalarFilter) On(key traversal.Key) *ScalarFilter {
	clone := *f
	clone.key = key
	return &clone
}

// Key returns the bound property key, empty when unbound.
func (f *ScalarFilter) Key() traversal.Key { return f.key }

// Kind returns the scalar kind.
func (f *ScalarFilter) Kind() Kind { return f.kind }

// Operators returns the accepted operators in application order.
func (f *ScalarFilter) Operators() []string {
	return append([]string(nil), f.ops...)
}

// Compile compiles input with a bound filter.
func (f *ScalarFilter) Compile(input any) (traversal.Traversal, error) {
	if f.key == "" {
		return traversal.Traversal{}, configError("%s filter is not bound to a property", f.kind)
	}
	return f.compile(f.key, input)
}

// CompileAs compiles input against key. For an unbound filter it behaves
// exactly like f.On(key).Compile(input).
func (f *ScalarFilter) CompileAs(key traversal.Key, input any) (traversal.Traversal, error) {
	return f.compile(key, input)
}

// Apply appends the compiled input to t.
func (f *ScalarFilter) Apply(t traversal.Traversal, input any) (traversal.Traversal, error) {
	fragment, err := f.Compile(input)
	if err != nil {
		return t, err
	}
	return t.Append(fragment), nil
}

// compile emits one has(key, predicate) per operator present in input, in
// the filter's operator order. Nil or empty input compiles to the identity.
func (f *ScalarFilter) compile(key traversal.Key, input any) (traversal.Traversal, error) {
	m, ok, err := toMap(input)
	if err != nil {
		return traversal.Traversal{}, err
	}
	if !ok || len(m) == 0 {
		return traversal.T__, nil
	}

	for op := range m {
		if !f.accepts(op) {
			return traversal.Traversal{}, types.BadRequest("unsupported operator %q on %s filter of %s", op, f.kind, key.Name()).
				WithData("operator", op)
		}
	}

	t := traversal.T__
	for _, op := range f.ops {
		value, present := m[op]
		if !present {
			continue
		}
		if err := f.checkEnum(op, value); err != nil {
			return traversal.Traversal{}, err
		}
		p, err := predicate(f.kind, op, value)
		if err != nil {
			if failure, ok := types.AsFailure(err); ok {
				return traversal.Traversal{}, failure.WithData("field", key.Name())
			}
			return traversal.Traversal{}, err
		}
		t = t.Has(key, p)
	}
	return t, nil
}

func (f *ScalarFilter) accepts(op string) bool {
	for _, candidate := range f.ops {
		if candidate == op {
			return true
		}
	}
	return false
}

func (f *ScalarFilter) checkEnum(op string, value any) error {
	if f.enum == nil {
		return nil
	}
	values := []any{value}
	if list, ok := toList(value); ok {
		values = list
	}
	for _, v := range values {
		s, _ := coerce(KindEnum, v)
		if !f.inEnum(s) {
			return types.BadRequest("%v is not a valid value for operator %s", v, op).
				WithData("allowed", append([]string(nil), f.enum...))
		}
	}
	return nil
}

func (f *ScalarFilter) inEnum(v any) bool {
	for _, allowed := range f.enum {
		if v == allowed {
			return true
		}
	}
	return false
}

func (f *ScalarFilter) String() string {
	if f.key == "" {
		return fmt.Sprintf("%s filter", f.kind)
	}
	return fmt.Sprintf("%s filter on %s", f.kind, f.key.Name())
}
