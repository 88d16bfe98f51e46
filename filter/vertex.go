package filter

import (
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// VertexFilter compiles the filter input of one vertex label. Its fields are
// scalar filters on the vertex properties and relationship filters on its
// neighbours.
//
// Vertex filters are declared at initialization time and are read-only
// afterwards; compiling is safe for concurrent use.
type VertexFilter struct {
	table    *vertexTable
	maxDepth int
}

// vertexTable is shared by every copy of a vertex filter, so a relationship
// that points back at its own vertex filter sees fields and labels bound
// later.
type vertexTable struct {
	label  string
	names  []string
	fields map[string]Filter
}

// NewVertex creates a vertex filter for label. An empty label defers the
// binding to BindLabel.
func NewVertex(label string) *VertexFilter {
	return &VertexFilter{table: &vertexTable{
		label:  label,
		fields: map[string]Filter{},
	}}
}

// BindLabel binds the label of a filter created with an empty one. It can
// only be called once.
func (v *VertexFilter) BindLabel(label string) error {
	if label == "" {
		return configError("empty vertex label")
	}
	if v.table.label != "" {
		return configError("vertex filter is already bound to %q", v.table.label)
	}
	v.table.label = label
	return nil
}

// Label returns the vertex label, empty until bound.
func (v *VertexFilter) Label() string {
	return v.table.label
}

// WithMaxDepth returns a copy of v limiting relationship filters nested in a
// single input to n levels. n <= 0 restores the default.
func (v *VertexFilter) WithMaxDepth(n int) *VertexFilter {
	if n < 0 {
		n = 0
	}
	return &VertexFilter{table: v.table, maxDepth: n}
}

// MaxDepth returns the relationship nesting limit.
func (v *VertexFilter) MaxDepth() int {
	if v.maxDepth == 0 {
		return types.DefaultMaxFilterDepth
	}
	return v.maxDepth
}

// HasMaxDepth reports whether a limit was set with WithMaxDepth.
func (v *VertexFilter) HasMaxDepth() bool {
	return v.maxDepth != 0
}

// AddField declares the filter field name. f is a *ScalarFilter (an unbound
// one is bound to name) or a *RelationshipFilter.
func (v *VertexFilter) AddField(name string, f Filter) error {
	if name == "" {
		return configError("empty field name on %q", v.table.label)
	}
	if _, dup := v.table.fields[name]; dup {
		return configError("duplicate field %q on %q", name, v.table.label)
	}

	switch field := f.(type) {
	case *ScalarFilter:
		if field == nil {
			return configError("nil filter for field %q", name)
		}
		if field.key == "" {
			f = field.On(traversal.Key(name))
		}
	case *RelationshipFilter:
		if field == nil || field.target == nil {
			return configError("relationship field %q has no target vertex filter", name)
		}
	default:
		return configError("unsupported filter %T for field %q", f, name)
	}

	v.table.names = append(v.table.names, name)
	v.table.fields[name] = f
	return nil
}

// Field is AddField for initialization code: it panics on error and returns
// v for chaining.
func (v *VertexFilter) Field(name string, f Filter) *VertexFilter {
	if err := v.AddField(name, f); err != nil {
		panic(err)
	}
	return v
}

// Fields returns the declared field names in declaration order.
func (v *VertexFilter) Fields() []string {
	return append([]string(nil), v.table.names...)
}

// Lookup returns the filter of a declared field.
func (v *VertexFilter) Lookup(name string) (Filter, bool) {
	f, ok := v.table.fields[name]
	return f, ok
}

// Compile compiles input into hasLabel(label) followed by the scalar fields
// present in input, then the relationship fields, each group in declaration
// order. Nil input only selects the label.
func (v *VertexFilter) Compile(input any) (traversal.Traversal, error) {
	return v.compile(input, 0, v.MaxDepth())
}

// Apply appends the compiled input to t.
func (v *VertexFilter) Apply(t traversal.Traversal, input any) (traversal.Traversal, error) {
	fragment, err := v.Compile(input)
	if err != nil {
		return t, err
	}
	return t.Append(fragment), nil
}

func (v *VertexFilter) compile(input any, depth, maxDepth int) (traversal.Traversal, error) {
	label := v.table.label
	if label == "" {
		return traversal.Traversal{}, configError("vertex filter has no label")
	}

	t := traversal.T__.HasLabel(label)
	m, ok, err := toMap(input)
	if err != nil {
		return traversal.Traversal{}, err
	}
	if !ok {
		return t, nil
	}

	var unknown []string
	for _, name := range sortedKeys(m) {
		if _, declared := v.table.fields[name]; !declared {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return traversal.Traversal{}, types.InvalidFilterField(label, unknown)
	}

	for _, name := range v.table.names {
		f, isScalar := v.table.fields[name].(*ScalarFilter)
		value, present := m[name]
		if !isScalar || !present {
			continue
		}
		fragment, err := f.Compile(value)
		if err != nil {
			return traversal.Traversal{}, err
		}
		t = t.Append(fragment)
	}

	for _, name := range v.table.names {
		r, isRelationship := v.table.fields[name].(*RelationshipFilter)
		value, present := m[name]
		if !isRelationship || !present {
			continue
		}
		fragment, err := r.compile(value, depth+1, maxDepth)
		if err != nil {
			return traversal.Traversal{}, err
		}
		t = t.Append(fragment)
	}

	return t, nil
}
