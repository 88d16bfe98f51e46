package filter

import (
	"fmt"
	"strings"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Direction is the edge direction a relationship filter follows.
type Direction int

const (
	Out Direction = iota
	In
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "out", "in" or "both".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "out":
		return Out, nil
	case "in":
		return In, nil
	case "both":
		return Both, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// RelationshipFilter matches vertices having at least one neighbour, across
// edges of one label, that matches the target vertex filter.
//
// The target may be the vertex filter the relationship is declared on.
type RelationshipFilter struct {
	edge   string
	dir    Direction
	target *VertexFilter
}

// Relationship creates a relationship filter following edges labelled edge
// in direction dir to vertices matched by target.
func Relationship(edge string, dir Direction, target *VertexFilter) *RelationshipFilter {
	return &RelationshipFilter{edge: edge, dir: dir, target: target}
}

// EdgeLabel returns the followed edge label.
func (r *RelationshipFilter) EdgeLabel() string { return r.edge }

// Direction returns the followed direction.
func (r *RelationshipFilter) Direction() Direction { return r.dir }

// Target returns the vertex filter applied to neighbours.
func (r *RelationshipFilter) Target() *VertexFilter { return r.target }

// Compile compiles input, a filter input of the target vertex, into
// where(__.out(edge).<target filter>). The where step does not move the
// current traverser.
func (r *RelationshipFilter) Compile(input any) (traversal.Traversal, error) {
	return r.compile(input, 1, r.target.MaxDepth())
}

// Apply appends the compiled input to t.
func (r *RelationshipFilter) Apply(t traversal.Traversal, input any) (traversal.Traversal, error) {
	fragment, err := r.Compile(input)
	if err != nil {
		return t, err
	}
	return t.Append(fragment), nil
}

func (r *RelationshipFilter) compile(input any, depth, maxDepth int) (traversal.Traversal, error) {
	if depth > maxDepth {
		return traversal.Traversal{}, types.BadRequest(
			"relationship filters are nested more than %d levels deep", maxDepth,
		).WithData("max_depth", maxDepth)
	}

	var hop traversal.Traversal
	switch r.dir {
	case In:
		hop = traversal.T__.In(r.edge)
	case Both:
		hop = traversal.T__.Both(r.edge)
	default:
		hop = traversal.T__.Out(r.edge)
	}

	target, err := r.target.compile(input, depth, maxDepth)
	if err != nil {
		return traversal.Traversal{}, err
	}
	return traversal.T__.Where(hop.Append(target)), nil
}
