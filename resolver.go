package gqlgremlin

import (
	"context"
	"fmt"

	"github.com/llehouerou/go-graphql-gremlin/filter"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Body builds the traversal of a resolver. g is bound to the handler's
// executor, so a body may run pre-condition checks (existence, duplicates)
// before returning a mutating traversal. Domain failures are returned as
// *types.Failure errors.
type Body func(ctx context.Context, g traversal.Source, in *Input) (traversal.Traversal, error)

// ResolverKind selects how the traversal of a resolver is executed and how
// its result is shaped.
type ResolverKind int

const (
	// KindVertexField resolves to a single vertex value map, or null.
	KindVertexField ResolverKind = iota
	// KindVertexListField resolves to a list of vertex value maps, or to a
	// Page when a pagination argument is present.
	KindVertexListField
	// KindCalculatedField resolves to the first raw result, or null.
	KindCalculatedField
	// KindMutation resolves to the value map of the mutated vertex.
	KindMutation
	// KindValueMutation resolves to the first raw result of the mutation,
	// such as a confirmation flag.
	KindValueMutation
)

var resolverKindNames = [...]string{
	KindVertexField:     "vertex_field",
	KindVertexListField: "vertex_list_field",
	KindCalculatedField: "calculated_field",
	KindMutation:        "mutation",
	KindValueMutation:   "value_mutation",
}

func (k ResolverKind) String() string {
	if k < 0 || int(k) >= len(resolverKindNames) {
		return fmt.Sprintf("ResolverKind(%d)", int(k))
	}
	return resolverKindNames[k]
}

// Resolver binds a Body to a GraphQL (type, field) pair.
type Resolver struct {
	typeName  string
	fieldName string
	kind      ResolverKind
	body      Body
	filter    *filter.VertexFilter
}

// VertexField creates a resolver returning the first vertex of body, as a
// value map, or null when body yields nothing.
func VertexField(typeName, fieldName string, body Body) *Resolver {
	return newResolver(typeName, fieldName, KindVertexField, body)
}

// VertexListField creates a resolver returning the vertices of body. When vf
// is not nil, the "input" argument is compiled with vf and appended to the
// traversal of body. With a "pagination" argument the result is a Page.
func VertexListField(typeName, fieldName string, vf *filter.VertexFilter, body Body) *Resolver {
	r := newResolver(typeName, fieldName, KindVertexListField, body)
	r.filter = vf
	return r
}

// CalculatedField creates a resolver returning the first raw result of body,
// e.g. a count.
func CalculatedField(typeName, fieldName string, body Body) *Resolver {
	return newResolver(typeName, fieldName, KindCalculatedField, body)
}

// Mutation creates a resolver returning the vertex the mutation of body
// produced.
func Mutation(typeName, fieldName string, body Body) *Resolver {
	return newResolver(typeName, fieldName, KindMutation, body)
}

// ValueMutation creates a resolver returning the first raw result of the
// mutation of body, e.g. constant(true) after a drop.
func ValueMutation(typeName, fieldName string, body Body) *Resolver {
	return newResolver(typeName, fieldName, KindValueMutation, body)
}

func newResolver(typeName, fieldName string, kind ResolverKind, body Body) *Resolver {
	return &Resolver{
		typeName:  typeName,
		fieldName: fieldName,
		kind:      kind,
		body:      body,
	}
}

// TypeName returns the GraphQL type of the resolved field.
func (r *Resolver) TypeName() string { return r.typeName }

// FieldName returns the resolved GraphQL field.
func (r *Resolver) FieldName() string { return r.fieldName }

// Kind returns the resolver kind.
func (r *Resolver) Kind() ResolverKind { return r.kind }

// Filter returns the vertex filter of a vertex list resolver.
func (r *Resolver) Filter() *filter.VertexFilter { return r.filter }

// resolve runs the body and shapes the result of its traversal according
// to the resolver kind.
func (r *Resolver) resolve(ctx context.Context, h *Handler, in *Input) (any, error) {
	t, err := r.body(ctx, h.source, in)
	if err != nil {
		return nil, err
	}
	if t.IsAnonymous() {
		t = h.source.Bind(t)
	}
	h.logger.Debug().
		Str("type", r.typeName).
		Str("field", r.fieldName).
		Stringer("traversal", t).
		Msg("resolving")

	switch r.kind {
	case KindVertexField:
		return first(ctx, t.ValueMap(true).By(traversal.T__.Unfold()))
	case KindVertexListField:
		return r.resolveList(ctx, h, in, t)
	case KindMutation:
		v, err := first(ctx, t.ValueMap(true).By(traversal.T__.Unfold()))
		if err == nil && v == nil {
			return nil, types.NotFound("%s.%s did not return the mutated element", r.typeName, r.fieldName)
		}
		return v, err
	default:
		return first(ctx, t)
	}
}

func (r *Resolver) resolveList(ctx context.Context, h *Handler, in *Input, t traversal.Traversal) (any, error) {
	if r.filter != nil {
		vf := r.filter
		if !vf.HasMaxDepth() && h.maxDepth > 0 {
			vf = vf.WithMaxDepth(h.maxDepth)
		}
		var err error
		if t, err = vf.Apply(t, in.Filter()); err != nil {
			return nil, err
		}
	}

	page, perPage, paginated, err := in.Pagination(h.defaultPerPage)
	if err != nil {
		return nil, err
	}
	if paginated {
		return Paginate(ctx, t, page, perPage)
	}

	results, err := t.ValueMap(true).By(traversal.T__.Unfold()).ToList(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]any, len(results))
	for i, item := range results {
		items[i] = FormatValue(item)
	}
	return items, nil
}

func first(ctx context.Context, t traversal.Traversal) (any, error) {
	v, ok, err := t.Next(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return FormatValue(v), nil
}
