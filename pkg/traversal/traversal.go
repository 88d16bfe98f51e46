// Package traversal provides an immutable, composable Gremlin traversal.
//
// A Traversal is a list of steps. Every builder method returns a new
// Traversal and never modifies the receiver, so fragments can be shared
// freely between goroutines and reused as building blocks:
//
//	named := traversal.T__.Has("name", traversal.Eq("John"))
//	users := g.V().HasLabel("User").Append(named)
//
// Traversals spawned from a Source are bound to that source's Executor and
// can be run with ToList, Next or Iterate. Anonymous traversals (T__) are
// only meaningful as arguments of other steps (where, by, to, ...).
package traversal

import (
	"context"
	"errors"
	"fmt"
)

// Step names. They match the Gremlin step names used in bytecode.
const (
	StepV        = "V"
	StepAddV     = "addV"
	StepAddE     = "addE"
	StepHas      = "has"
	StepHasLabel = "hasLabel"
	StepWhere    = "where"
	StepNot      = "not"
	StepOut      = "out"
	StepIn       = "in"
	StepBoth     = "both"
	StepRange    = "range"
	StepLimit    = "limit"
	StepCount    = "count"
	StepFold     = "fold"
	StepUnfold   = "unfold"
	StepValueMap = "valueMap"
	StepValues   = "values"
	StepID       = "id"
	StepLabel    = "label"
	StepProject  = "project"
	StepBy       = "by"
	StepProperty = "property"
	StepTo       = "to"
	StepFrom     = "from"
	StepDrop     = "drop"
	StepDedup    = "dedup"
	StepIdentity = "identity"
	StepConstant = "constant"
	StepIs       = "is"
)

// ErrAnonymous is returned when a terminal step is called on a traversal
// that is not bound to an executor.
var ErrAnonymous = errors.New("traversal: anonymous traversal cannot be executed")

// Step is a single traversal instruction.
type Step struct {
	Name string
	Args []any
}

// Traversal is an immutable sequence of steps.
type Traversal struct {
	source string
	exec   Executor
	steps  []Step
}

// T__ is the empty anonymous traversal. It is the starting point of every
// nested traversal and, applied on its own, the identity transform.
var T__ = Traversal{}

// Steps returns a copy of the traversal's steps.
func (t Traversal) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Len returns the number of steps.
func (t Traversal) Len() int {
	return len(t.steps)
}

// IsAnonymous reports whether the traversal was not spawned from a Source.
func (t Traversal) IsAnonymous() bool {
	return t.source == ""
}

// IsIdentity reports whether the traversal is anonymous and has no steps,
// i.e. applying it leaves any traversal unchanged.
func (t Traversal) IsIdentity() bool {
	return t.IsAnonymous() && len(t.steps) == 0
}

// SourceName returns the name of the traversal source ("g" by default), or
// an empty string for anonymous traversals.
func (t Traversal) SourceName() string {
	return t.source
}

// add returns a copy of t with one more step. The three-index slice forces
// append to allocate, so sibling traversals built from t never share a
// backing array.
func (t Traversal) add(name string, args ...any) Traversal {
	t.steps = append(t.steps[:len(t.steps):len(t.steps)], Step{Name: name, Args: args})
	return t
}

// Append returns t followed by the steps of fragment. The fragment keeps
// its own identity; its source and executor are ignored.
func (t Traversal) Append(fragment Traversal) Traversal {
	if len(fragment.steps) == 0 {
		return t
	}
	steps := make([]Step, 0, len(t.steps)+len(fragment.steps))
	steps = append(steps, t.steps...)
	steps = append(steps, fragment.steps...)
	t.steps = steps
	return t
}

// V starts (or continues) the traversal from the vertices with the given
// ids, or from all vertices when none are given.
func (t Traversal) V(ids ...any) Traversal { return t.add(StepV, ids...) }

// AddV adds a vertex with the given label.
func (t Traversal) AddV(label string) Traversal { return t.add(StepAddV, label) }

// AddE adds an edge with the given label from the current vertex. It is
// completed by To and/or From.
func (t Traversal) AddE(label string) Traversal { return t.add(StepAddE, label) }

// To sets the incoming vertex of the preceding AddE.
func (t Traversal) To(vertex Traversal) Traversal { return t.add(StepTo, vertex) }

// From sets the outgoing vertex of the preceding AddE.
func (t Traversal) From(vertex Traversal) Traversal { return t.add(StepFrom, vertex) }

// Property sets a property on the current element.
func (t Traversal) Property(key Key, value any) Traversal {
	return t.add(StepProperty, key, value)
}

// Has keeps elements whose key satisfies p.
func (t Traversal) Has(key Key, p P) Traversal { return t.add(StepHas, key, p) }

// HasLabel keeps elements carrying one of the labels.
func (t Traversal) HasLabel(labels ...string) Traversal {
	return t.add(StepHasLabel, stringArgs(labels)...)
}

// Where keeps traversers for which the nested traversal yields at least one
// result. The traverser stays where it is.
func (t Traversal) Where(nested Traversal) Traversal { return t.add(StepWhere, nested) }

// Not keeps traversers for which the nested traversal yields nothing.
func (t Traversal) Not(nested Traversal) Traversal { return t.add(StepNot, nested) }

// Out moves to adjacent vertices over outgoing edges.
func (t Traversal) Out(labels ...string) Traversal {
	return t.add(StepOut, stringArgs(labels)...)
}

// In moves to adjacent vertices over incoming edges.
func (t Traversal) In(labels ...string) Traversal {
	return t.add(StepIn, stringArgs(labels)...)
}

// Both moves to adjacent vertices in either direction.
func (t Traversal) Both(labels ...string) Traversal {
	return t.add(StepBoth, stringArgs(labels)...)
}

// Range keeps traversers with a position in [low, high). A negative high
// means no upper bound.
func (t Traversal) Range(low, high int64) Traversal { return t.add(StepRange, low, high) }

// Limit keeps the first n traversers.
func (t Traversal) Limit(n int64) Traversal { return t.add(StepLimit, n) }

// Count reduces the traversers to their number.
func (t Traversal) Count() Traversal { return t.add(StepCount) }

// Fold reduces the traversers to a single list.
func (t Traversal) Fold() Traversal { return t.add(StepFold) }

// Unfold flattens lists into their elements.
func (t Traversal) Unfold() Traversal { return t.add(StepUnfold) }

// ValueMap maps elements to their properties. With tokens set, the id and
// label are included under T.id and T.label.
func (t Traversal) ValueMap(tokens bool) Traversal { return t.add(StepValueMap, tokens) }

// Values maps elements to the values of the given properties.
func (t Traversal) Values(keys ...string) Traversal {
	return t.add(StepValues, stringArgs(keys)...)
}

// ID maps elements to their id.
func (t Traversal) ID() Traversal { return t.add(StepID) }

// Label maps elements to their label.
func (t Traversal) Label() Traversal { return t.add(StepLabel) }

// Project maps each traverser to a map with the given keys. The values are
// supplied by the By modulators that follow, in order.
func (t Traversal) Project(keys ...string) Traversal {
	return t.add(StepProject, stringArgs(keys)...)
}

// By modulates the preceding ValueMap or Project step.
func (t Traversal) By(nested Traversal) Traversal { return t.add(StepBy, nested) }

// Drop removes the current elements from the graph.
func (t Traversal) Drop() Traversal { return t.add(StepDrop) }

// Dedup removes duplicate traversers.
func (t Traversal) Dedup() Traversal { return t.add(StepDedup) }

// Identity passes traversers through unchanged.
func (t Traversal) Identity() Traversal { return t.add(StepIdentity) }

// Constant replaces every traverser with value.
func (t Traversal) Constant(value any) Traversal { return t.add(StepConstant, value) }

// Is keeps scalar traversers satisfying p.
func (t Traversal) Is(p P) Traversal { return t.add(StepIs, p) }

// ToList executes the traversal and returns every result.
func (t Traversal) ToList(ctx context.Context) ([]any, error) {
	if t.exec == nil {
		return nil, ErrAnonymous
	}
	results, err := t.exec.Submit(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to execute traversal: %w", err)
	}
	return results, nil
}

// Next executes the traversal and returns its first result. ok is false
// when the traversal produced nothing.
func (t Traversal) Next(ctx context.Context) (result any, ok bool, err error) {
	results, err := t.ToList(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// HasNext executes the traversal and reports whether it produced anything.
func (t Traversal) HasNext(ctx context.Context) (bool, error) {
	_, ok, err := t.Next(ctx)
	return ok, err
}

// Iterate executes the traversal for its side effects.
func (t Traversal) Iterate(ctx context.Context) error {
	_, err := t.ToList(ctx)
	return err
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
