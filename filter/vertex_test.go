package filter

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/go-graphql-gremlin/pkg/graphson"
	"github.com/llehouerou/go-graphql-gremlin/pkg/memgraph"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

const socialFixture = `{
  "vertices": [
    {"id": "u1", "label": "User", "properties": {"name": "John", "age": 30, "active": true}},
    {"id": "u2", "label": "User", "properties": {"name": "Jane", "age": 25, "active": true}},
    {"id": "u3", "label": "User", "properties": {"name": "Bob", "age": 41, "active": false}},
    {"id": "u4", "label": "User", "properties": {"name": "Alice", "age": 35, "active": true}},
    {"id": "p1", "label": "Post", "properties": {"title": "hello"}}
  ],
  "edges": [
    {"label": "FOLLOWING", "out": "u1", "in": "u2"},
    {"label": "FOLLOWING", "out": "u1", "in": "u3"},
    {"label": "FOLLOWING", "out": "u4", "in": "u3"},
    {"label": "FOLLOWING", "out": "u2", "in": "u3"},
    {"label": "FOLLOWING", "out": "u3", "in": "u4"},
    {"label": "WROTE", "out": "u3", "in": "p1"}
  ]
}`

func newUserFilter() *VertexFilter {
	user := NewVertex("User")
	user.Field("id", ID().On(traversal.TokenID)).
		Field("name", String()).
		Field("age", Int()).
		Field("active", Boolean()).
		Field("following", Relationship("FOLLOWING", Out, user)).
		Field("followers", Relationship("FOLLOWING", In, user))
	return user
}

func newSocialGraph(t *testing.T) *memgraph.Graph {
	t.Helper()
	g := memgraph.New()
	require.NoError(t, g.Load(strings.NewReader(socialFixture)))
	return g
}

func run(t *testing.T, g *memgraph.Graph, fragment traversal.Traversal) []string {
	t.Helper()
	results, err := g.Source().V().Append(fragment).ToList(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(results))
	for _, r := range results {
		v, ok := r.(graphson.Vertex)
		require.True(t, ok, "expected vertex, got %T", r)
		out = append(out, v.ID.(string))
	}
	sort.Strings(out)
	return out
}

func TestVertexCompile(t *testing.T) {
	user := newUserFilter()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "nil input selects the label",
			input: nil,
			want:  "__.hasLabel('User')",
		},
		{
			name:  "scalars in declaration order",
			input: map[string]any{"age": map[string]any{"gt": 20}, "name": map[string]any{"begins_with": "J"}},
			want:  "__.hasLabel('User').has('name',startingWith('J')).has('age',gt(20L))",
		},
		{
			name: "relationships after scalars",
			input: map[string]any{
				"following": map[string]any{"name": map[string]any{"eq": "Jane"}},
				"active":    map[string]any{"eq": true},
			},
			want: "__.hasLabel('User').has('active',eq(true))" +
				".where(__.out('FOLLOWING').hasLabel('User').has('name',eq('Jane')))",
		},
		{
			name:  "token key",
			input: map[string]any{"id": map[string]any{"ne": "u1"}},
			want:  "__.hasLabel('User').has(T.id,neq('u1'))",
		},
		{
			name: "nested relationships",
			input: map[string]any{
				"followers": map[string]any{
					"following": map[string]any{"id": map[string]any{"eq": "u4"}},
				},
			},
			want: "__.hasLabel('User').where(__.in('FOLLOWING').hasLabel('User')" +
				".where(__.out('FOLLOWING').hasLabel('User').has(T.id,eq('u4'))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := user.Compile(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestVertexCompileIsOrderIndependent(t *testing.T) {
	user := newUserFilter()

	type input struct {
		Name      map[string]any `json:"name,omitempty"`
		Age       map[string]any `json:"age,omitempty"`
		Following map[string]any `json:"following,omitempty"`
	}

	fromMap, err := user.Compile(map[string]any{
		"following": map[string]any{"age": map[string]any{"lt": 30}},
		"age":       map[string]any{"ge": 18},
		"name":      map[string]any{"ne": "Bob"},
	})
	require.NoError(t, err)
	fromStruct, err := user.Compile(input{
		Name:      map[string]any{"ne": "Bob"},
		Age:       map[string]any{"ge": 18},
		Following: map[string]any{"age": map[string]any{"lt": 30}},
	})
	require.NoError(t, err)

	assert.Equal(t, fromMap.String(), fromStruct.String())
}

func TestVertexInvalidFilterField(t *testing.T) {
	user := newUserFilter()

	_, err := user.Compile(map[string]any{
		"nickname": map[string]any{"eq": "JJ"},
		"name":     map[string]any{"eq": "John"},
		"email":    map[string]any{"eq": "john@example.com"},
	})
	require.Error(t, err)

	failure, ok := types.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeInvalidFilterField, failure.Type)
	assert.Equal(t, "User", failure.Data["label"])
	assert.Equal(t, []any{"email", "nickname"}, failure.Data["fields"])
}

func TestVertexInvalidFieldInRelationship(t *testing.T) {
	user := newUserFilter()

	_, err := user.Compile(map[string]any{
		"following": map[string]any{"title": map[string]any{"eq": "hello"}},
	})
	failure, ok := types.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeInvalidFilterField, failure.Type)
	assert.Equal(t, []any{"title"}, failure.Data["fields"])
}

func TestVertexFilterAgainstGraph(t *testing.T) {
	g := newSocialGraph(t)
	user := newUserFilter()

	tests := []struct {
		name  string
		input map[string]any
		want  []string
	}{
		{
			name:  "label only",
			input: nil,
			want:  []string{"u1", "u2", "u3", "u4"},
		},
		{
			name:  "scalar conjunction",
			input: map[string]any{"active": map[string]any{"eq": true}, "age": map[string]any{"ge": 30}},
			want:  []string{"u1", "u4"},
		},
		{
			name:  "eq and ne on the same field",
			input: map[string]any{"name": map[string]any{"eq": "John", "ne": "Jane"}},
			want:  []string{"u1"},
		},
		{
			name:  "contradicting eq and ne",
			input: map[string]any{"name": map[string]any{"eq": "John", "ne": "John"}},
			want:  []string{},
		},
		{
			name:  "users following Bob",
			input: map[string]any{"following": map[string]any{"name": map[string]any{"eq": "Bob"}}},
			want:  []string{"u1", "u2", "u4"},
		},
		{
			name:  "users followed by an inactive user",
			input: map[string]any{"followers": map[string]any{"active": map[string]any{"eq": false}}},
			want:  []string{"u4"},
		},
		{
			name: "two hops",
			input: map[string]any{
				"following": map[string]any{
					"following": map[string]any{"name": map[string]any{"eq": "Alice"}},
				},
			},
			want: []string{"u1", "u2", "u4"},
		},
		{
			name:  "membership on ids",
			input: map[string]any{"id": map[string]any{"in": []any{"u1", "u3", "p1"}}},
			want:  []string{"u1", "u3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragment, err := user.Compile(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, run(t, g, fragment))
		})
	}
}

func TestRelationshipDoesNotMultiplyTraversers(t *testing.T) {
	g := newSocialGraph(t)
	user := newUserFilter()

	// u1 follows two users; it must still come out once.
	fragment, err := user.Compile(map[string]any{
		"following": map[string]any{"age": map[string]any{"gt": 0}},
	})
	require.NoError(t, err)

	results, err := g.Source().V().Append(fragment).Count().ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(4), results[0])
}

func TestRelationshipDepthLimit(t *testing.T) {
	user := newUserFilter()

	nest := func(levels int) map[string]any {
		input := map[string]any{"name": map[string]any{"eq": "John"}}
		for i := 0; i < levels; i++ {
			input = map[string]any{"following": input}
		}
		return input
	}

	_, err := user.Compile(nest(types.DefaultMaxFilterDepth))
	require.NoError(t, err)

	_, err = user.Compile(nest(types.DefaultMaxFilterDepth + 1))
	failure, ok := types.AsFailure(err)
	require.True(t, ok, "expected failure, got %v", err)
	assert.Equal(t, types.ErrorTypeBadRequest, failure.Type)

	shallow := user.WithMaxDepth(2)
	assert.Equal(t, 2, shallow.MaxDepth())
	assert.Equal(t, types.DefaultMaxFilterDepth, user.MaxDepth())
	_, err = shallow.Compile(nest(2))
	require.NoError(t, err)
	_, err = shallow.Compile(nest(3))
	require.Error(t, err)
}

func TestRelationshipCyclicInput(t *testing.T) {
	user := newUserFilter()

	input := map[string]any{}
	input["following"] = input

	_, err := user.Compile(input)
	failure, ok := types.AsFailure(err)
	require.True(t, ok, "expected failure, got %v", err)
	assert.Equal(t, types.ErrorTypeBadRequest, failure.Type)
}

func TestRelationshipCompile(t *testing.T) {
	post := NewVertex("Post").Field("title", String())
	wrote := Relationship("WROTE", Out, post)

	got, err := wrote.Compile(map[string]any{"title": map[string]any{"contains": "ell"}})
	require.NoError(t, err)
	assert.Equal(t, "__.where(__.out('WROTE').hasLabel('Post').has('title',containing('ell')))", got.String())

	got, err = Relationship("WROTE", In, NewVertex("User")).Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, "__.where(__.in('WROTE').hasLabel('User'))", got.String())

	got, err = Relationship("KNOWS", Both, NewVertex("User")).Apply(traversal.T__.HasLabel("User"), nil)
	require.NoError(t, err)
	assert.Equal(t, "__.hasLabel('User').where(__.both('KNOWS').hasLabel('User'))", got.String())
}

func TestBindLabel(t *testing.T) {
	node := NewVertex("")
	node.Field("name", String()).Field("parent", Relationship("CHILD_OF", Out, node))

	_, err := node.Compile(nil)
	require.Error(t, err)
	_, isFailure := types.AsFailure(err)
	assert.False(t, isFailure, "an unbound label is a configuration error")

	limited := node.WithMaxDepth(3)
	require.NoError(t, node.BindLabel("Category"))
	assert.Error(t, node.BindLabel("Other"))
	assert.Error(t, NewVertex("").BindLabel(""))

	got, err := limited.Compile(map[string]any{"parent": map[string]any{"name": map[string]any{"eq": "root"}}})
	require.NoError(t, err)
	assert.Equal(t,
		"__.hasLabel('Category').where(__.out('CHILD_OF').hasLabel('Category').has('name',eq('root')))",
		got.String())
}

func TestAddFieldErrors(t *testing.T) {
	user := NewVertex("User").Field("name", String())

	assert.Error(t, user.AddField("name", String()), "duplicate")
	assert.Error(t, user.AddField("", String()), "empty name")
	assert.Error(t, user.AddField("friend", Relationship("KNOWS", Out, nil)), "no target")
	assert.Error(t, user.AddField("nothing", (*ScalarFilter)(nil)), "nil scalar")
	assert.Panics(t, func() { user.Field("name", Int()) })

	assert.Equal(t, []string{"name"}, user.Fields())
	f, ok := user.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, traversal.Key("name"), f.(*ScalarFilter).Key())
}

func TestVertexApply(t *testing.T) {
	g := traversal.NewSource("g", nil)
	user := newUserFilter()

	got, err := user.Apply(g.V(), map[string]any{"name": map[string]any{"eq": "John"}})
	require.NoError(t, err)
	assert.Equal(t, "g.V().hasLabel('User').has('name',eq('John'))", got.String())

	_, err = user.Apply(g.V(), []any{"not", "an", "object"})
	failure, ok := types.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeBadRequest, failure.Type)
}
