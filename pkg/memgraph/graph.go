// Package memgraph is an in-memory property graph that executes traversals
// locally. It implements traversal.Executor and is meant for tests, fixtures
// and the command line tool; it is not a Gremlin server.
//
// Vertices and edges are kept in B-trees ordered by id, so V() without ids
// always yields vertices in id order.
package memgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/llehouerou/go-graphql-gremlin/pkg/graphson"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

var (
	// ErrDuplicateID is returned when an element id is already in use.
	ErrDuplicateID = errors.New("memgraph: duplicate id")
	// ErrVertexNotFound is returned when an edge endpoint does not exist.
	ErrVertexNotFound = errors.New("memgraph: vertex not found")
)

type vertex struct {
	id         string
	label      string
	properties map[string]any
}

type edge struct {
	id         string
	label      string
	outV       string
	inV        string
	properties map[string]any
}

func vertexLess(a, b *vertex) bool { return a.id < b.id }
func edgeLess(a, b *edge) bool     { return a.id < b.id }

// Graph is an in-memory property graph. It is safe for concurrent use:
// read-only traversals run under a shared lock, mutating ones exclusively.
type Graph struct {
	mu       sync.RWMutex
	vertices *btree.BTreeG[*vertex]
	edges    *btree.BTreeG[*edge]
	out      map[string][]*edge
	in       map[string][]*edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices: btree.NewBTreeG[*vertex](vertexLess),
		edges:    btree.NewBTreeG[*edge](edgeLess),
		out:      make(map[string][]*edge),
		in:       make(map[string][]*edge),
	}
}

// Source returns a traversal source bound to the graph.
func (g *Graph) Source() traversal.Source {
	return traversal.NewSource(traversal.DefaultSourceName, g)
}

// AddVertex adds a vertex. An empty id is replaced by a random UUID. The
// id actually used is returned.
func (g *Graph) AddVertex(id, label string, properties map[string]any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, err := g.addVertex(id, label, properties)
	if err != nil {
		return "", err
	}
	return v.id, nil
}

// AddEdge adds an edge from outV to inV and returns its id.
func (g *Graph) AddEdge(label, outV, inV string, properties map[string]any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, err := g.addEdge("", label, outV, inV, properties)
	if err != nil {
		return "", err
	}
	return e.id, nil
}

// Vertex returns a copy of the vertex with the given id.
func (g *Graph) Vertex(id string) (graphson.Vertex, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.lookup(id)
	if !ok {
		return graphson.Vertex{}, false
	}
	return v.export(), true
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vertices.Len()
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges.Len()
}

func (g *Graph) lookup(id string) (*vertex, bool) {
	return g.vertices.Get(&vertex{id: id})
}

func (g *Graph) addVertex(id, label string, properties map[string]any) (*vertex, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := g.lookup(id); exists {
		return nil, fmt.Errorf("%w: vertex %q", ErrDuplicateID, id)
	}
	v := &vertex{id: id, label: label, properties: make(map[string]any, len(properties))}
	for k, val := range properties {
		v.properties[k] = normalize(val)
	}
	g.vertices.Set(v)
	return v, nil
}

func (g *Graph) addEdge(id, label, outV, inV string, properties map[string]any) (*edge, error) {
	if _, ok := g.lookup(outV); !ok {
		return nil, fmt.Errorf("%w: %q", ErrVertexNotFound, outV)
	}
	if _, ok := g.lookup(inV); !ok {
		return nil, fmt.Errorf("%w: %q", ErrVertexNotFound, inV)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := g.edges.Get(&edge{id: id}); exists {
		return nil, fmt.Errorf("%w: edge %q", ErrDuplicateID, id)
	}
	e := &edge{id: id, label: label, outV: outV, inV: inV, properties: make(map[string]any, len(properties))}
	for k, val := range properties {
		e.properties[k] = normalize(val)
	}
	g.edges.Set(e)
	g.out[outV] = append(g.out[outV], e)
	g.in[inV] = append(g.in[inV], e)
	return e, nil
}

// rekey changes the id of a vertex that has no incident edges yet. It is
// how property(T.id, ...) right after addV() is honoured.
func (g *Graph) rekey(v *vertex, id string) error {
	if v.id == id {
		return nil
	}
	if len(g.out[v.id]) > 0 || len(g.in[v.id]) > 0 {
		return fmt.Errorf("memgraph: cannot change the id of vertex %q with edges", v.id)
	}
	if _, exists := g.lookup(id); exists {
		return fmt.Errorf("%w: vertex %q", ErrDuplicateID, id)
	}
	g.vertices.Delete(v)
	v.id = id
	g.vertices.Set(v)
	return nil
}

func (g *Graph) dropVertex(v *vertex) {
	incident := make([]*edge, 0, len(g.out[v.id])+len(g.in[v.id]))
	incident = append(incident, g.out[v.id]...)
	incident = append(incident, g.in[v.id]...)
	for _, e := range incident {
		g.dropEdge(e)
	}
	delete(g.out, v.id)
	delete(g.in, v.id)
	g.vertices.Delete(v)
}

func (g *Graph) dropEdge(e *edge) {
	if _, ok := g.edges.Delete(e); !ok {
		return
	}
	g.out[e.outV] = removeEdge(g.out[e.outV], e)
	g.in[e.inV] = removeEdge(g.in[e.inV], e)
}

func removeEdge(list []*edge, e *edge) []*edge {
	out := list[:0]
	for _, candidate := range list {
		if candidate != e {
			out = append(out, candidate)
		}
	}
	return out
}

func (v *vertex) export() graphson.Vertex {
	return graphson.Vertex{ID: v.id, Label: v.label, Properties: copyProperties(v.properties)}
}

func (e *edge) export() graphson.Edge {
	return graphson.Edge{ID: e.id, Label: e.label, OutV: e.outV, InV: e.inV, Properties: copyProperties(e.properties)}
}

func copyProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func sortedKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalize converts a property value to the representation a Gremlin server
// would hand back over GraphSON: int64 for integers, float64 for floats and
// UTC millisecond precision for dates.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val
	case time.Time:
		return val.UTC().Truncate(time.Millisecond)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return v
	}
}

type fixture struct {
	Vertices []struct {
		ID         string          `json:"id"`
		Label      string          `json:"label"`
		Properties json.RawMessage `json:"properties"`
	} `json:"vertices"`
	Edges []struct {
		ID         string          `json:"id"`
		Label      string          `json:"label"`
		Out        string          `json:"out"`
		In         string          `json:"in"`
		Properties json.RawMessage `json:"properties"`
	} `json:"edges"`
}

// Load adds the vertices and edges of a JSON fixture to the graph:
//
//	{
//	  "vertices": [{"id": "u1", "label": "User", "properties": {"name": "John"}}],
//	  "edges": [{"label": "FOLLOWING", "out": "u1", "in": "u2"}]
//	}
//
// Property objects may use GraphSON typed values, e.g.
// {"@type": "g:Date", "@value": 1577836800000}.
func (g *Graph) Load(r io.Reader) error {
	var f fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("failed to decode fixture: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, v := range f.Vertices {
		props, err := decodeProperties(v.Properties)
		if err != nil {
			return fmt.Errorf("failed to decode properties of vertex %q: %w", v.ID, err)
		}
		if _, err := g.addVertex(v.ID, v.Label, props); err != nil {
			return err
		}
	}
	for _, e := range f.Edges {
		props, err := decodeProperties(e.Properties)
		if err != nil {
			return fmt.Errorf("failed to decode properties of edge %s->%s: %w", e.Out, e.In, err)
		}
		if _, err := g.addEdge(e.ID, e.Label, e.Out, e.In, props); err != nil {
			return err
		}
	}
	return nil
}

func decodeProperties(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	decoded, err := graphson.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, nil
	}
	props, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", decoded)
	}
	return props, nil
}
