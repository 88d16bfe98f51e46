package memgraph

import (
	"context"
	"fmt"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

// start is the single traverser a root traversal begins with. Source steps
// (V, addV) replace it; any other first step sees it as an opaque value.
type start struct{}

// Submit implements traversal.Executor. Results use the same Go types the
// GraphSON decoder produces, so code under test cannot tell memgraph from a
// remote server.
func (g *Graph) Submit(ctx context.Context, t traversal.Traversal) ([]any, error) {
	steps := t.Steps()
	if len(steps) == 0 {
		return []any{}, nil
	}

	if mutates(steps) {
		g.mu.Lock()
		defer g.mu.Unlock()
	} else {
		g.mu.RLock()
		defer g.mu.RUnlock()
	}

	results, err := g.run(ctx, steps, []any{start{}})
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(results))
	for _, r := range results {
		if _, ok := r.(start); ok {
			continue
		}
		out = append(out, export(r))
	}
	return out, nil
}

// mutates reports whether any step, nested traversals included, changes the
// graph.
func mutates(steps []traversal.Step) bool {
	for _, s := range steps {
		switch s.Name {
		case traversal.StepAddV, traversal.StepAddE, traversal.StepProperty, traversal.StepDrop:
			return true
		}
		for _, arg := range s.Args {
			if nested, ok := arg.(traversal.Traversal); ok && mutates(nested.Steps()) {
				return true
			}
		}
	}
	return false
}

// run evaluates steps over the traversers in stream. The caller holds the
// graph lock.
func (g *Graph) run(ctx context.Context, steps []traversal.Step, stream []any) ([]any, error) {
	for i := 0; i < len(steps); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := steps[i]

		// Modulators that follow addE, valueMap and project belong to them.
		var modulators []traversal.Step
		switch s.Name {
		case traversal.StepAddE:
			for i+1 < len(steps) && (steps[i+1].Name == traversal.StepTo || steps[i+1].Name == traversal.StepFrom) {
				i++
				modulators = append(modulators, steps[i])
			}
		case traversal.StepValueMap, traversal.StepProject:
			for i+1 < len(steps) && steps[i+1].Name == traversal.StepBy {
				i++
				modulators = append(modulators, steps[i])
			}
		}

		next, err := g.step(ctx, s, modulators, stream)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		stream = next
	}
	return stream, nil
}

func (g *Graph) step(ctx context.Context, s traversal.Step, modulators []traversal.Step, stream []any) ([]any, error) {
	switch s.Name {
	case traversal.StepV:
		return g.stepV(s.Args, stream), nil
	case traversal.StepAddV:
		return g.stepAddV(s.Args, stream)
	case traversal.StepAddE:
		return g.stepAddE(ctx, s.Args, modulators, stream)
	case traversal.StepProperty:
		return g.stepProperty(s.Args, stream)
	case traversal.StepHas:
		return stepHas(s.Args, stream)
	case traversal.StepHasLabel:
		return filter(stream, func(t any) bool {
			label, ok := labelOf(t)
			return ok && containsArg(s.Args, label)
		}), nil
	case traversal.StepWhere, traversal.StepNot:
		return g.stepWhere(ctx, s, stream)
	case traversal.StepOut, traversal.StepIn, traversal.StepBoth:
		return g.stepAdjacent(s, stream), nil
	case traversal.StepRange:
		low, high, err := int64Args(s.Args)
		if err != nil {
			return nil, err
		}
		return window(stream, low, high), nil
	case traversal.StepLimit:
		if len(s.Args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(s.Args))
		}
		n, ok := normalize(s.Args[0]).(int64)
		if !ok {
			return nil, fmt.Errorf("expected an integer argument")
		}
		return window(stream, 0, n), nil
	case traversal.StepCount:
		return []any{int64(len(stream))}, nil
	case traversal.StepFold:
		list := make([]any, len(stream))
		copy(list, stream)
		return []any{list}, nil
	case traversal.StepUnfold:
		return unfold(stream), nil
	case traversal.StepValueMap:
		return g.stepValueMap(ctx, s.Args, modulators, stream)
	case traversal.StepValues:
		return stepValues(s.Args, stream), nil
	case traversal.StepID:
		return mapStream(stream, idOf), nil
	case traversal.StepLabel:
		return mapStream(stream, func(t any) (any, bool) { return labelOf(t) }), nil
	case traversal.StepProject:
		return g.stepProject(ctx, s.Args, modulators, stream)
	case traversal.StepDrop:
		g.stepDrop(stream)
		return []any{}, nil
	case traversal.StepDedup:
		return dedup(stream), nil
	case traversal.StepIdentity:
		return stream, nil
	case traversal.StepConstant:
		if len(s.Args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(s.Args))
		}
		out := make([]any, len(stream))
		for i := range stream {
			out[i] = normalize(s.Args[0])
		}
		return out, nil
	case traversal.StepIs:
		p, ok := predicateArg(s.Args, 0)
		if !ok {
			return nil, fmt.Errorf("expected a predicate")
		}
		return filter(stream, func(t any) bool { return p.Test(t) }), nil
	case traversal.StepBy, traversal.StepTo, traversal.StepFrom:
		return nil, fmt.Errorf("modulator without a step to modulate")
	default:
		return nil, fmt.Errorf("unsupported step")
	}
}

func (g *Graph) stepV(ids []any, stream []any) []any {
	var out []any
	for range stream {
		if len(ids) == 0 {
			g.vertices.Scan(func(v *vertex) bool {
				out = append(out, v)
				return true
			})
			continue
		}
		for _, id := range ids {
			if v, ok := g.lookup(fmt.Sprint(id)); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func (g *Graph) stepAddV(args []any, stream []any) ([]any, error) {
	label, _ := stringArg(args, 0)
	out := make([]any, 0, len(stream))
	for range stream {
		v, err := g.addVertex("", label, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (g *Graph) stepAddE(ctx context.Context, args []any, modulators []traversal.Step, stream []any) ([]any, error) {
	label, _ := stringArg(args, 0)
	out := make([]any, 0, len(stream))
	for _, t := range stream {
		from, _ := t.(*vertex)
		to := from
		for _, m := range modulators {
			nested, ok := traversalArg(m.Args, 0)
			if !ok {
				return nil, fmt.Errorf("%s expects a traversal", m.Name)
			}
			results, err := g.run(ctx, nested.Steps(), []any{t})
			if err != nil {
				return nil, err
			}
			var endpoint *vertex
			if len(results) > 0 {
				endpoint, _ = results[0].(*vertex)
			}
			if endpoint == nil {
				return nil, fmt.Errorf("%s: %w", m.Name, ErrVertexNotFound)
			}
			if m.Name == traversal.StepTo {
				to = endpoint
			} else {
				from = endpoint
			}
		}
		if from == nil || to == nil {
			return nil, fmt.Errorf("edge endpoints must be vertices")
		}
		e, err := g.addEdge("", label, from.id, to.id, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (g *Graph) stepProperty(args []any, stream []any) ([]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	key := keyArg(args[0])
	value := normalize(args[1])
	for _, t := range stream {
		switch el := t.(type) {
		case *vertex:
			switch key {
			case traversal.TokenID:
				if err := g.rekey(el, fmt.Sprint(value)); err != nil {
					return nil, err
				}
			case traversal.TokenLabel:
				return nil, fmt.Errorf("the label of an element cannot be changed")
			default:
				el.properties[string(key)] = value
			}
		case *edge:
			if key.IsToken() {
				return nil, fmt.Errorf("%s of an edge cannot be changed", key)
			}
			el.properties[string(key)] = value
		default:
			return nil, fmt.Errorf("expected an element, got %T", t)
		}
	}
	return stream, nil
}

func stepHas(args []any, stream []any) ([]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	key := keyArg(args[0])
	p, ok := predicateArg(args, 1)
	if !ok {
		return nil, fmt.Errorf("expected a predicate")
	}
	return filter(stream, func(t any) bool {
		value, ok := valueOf(t, key)
		return ok && p.Test(value)
	}), nil
}

func (g *Graph) stepWhere(ctx context.Context, s traversal.Step, stream []any) ([]any, error) {
	nested, ok := traversalArg(s.Args, 0)
	if !ok {
		return nil, fmt.Errorf("expected a traversal")
	}
	keep := s.Name == traversal.StepWhere
	out := make([]any, 0, len(stream))
	for _, t := range stream {
		results, err := g.run(ctx, nested.Steps(), []any{t})
		if err != nil {
			return nil, err
		}
		if (len(results) > 0) == keep {
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *Graph) stepAdjacent(s traversal.Step, stream []any) []any {
	var out []any
	for _, t := range stream {
		v, ok := t.(*vertex)
		if !ok {
			continue
		}
		if s.Name == traversal.StepOut || s.Name == traversal.StepBoth {
			for _, e := range g.out[v.id] {
				if len(s.Args) == 0 || containsArg(s.Args, e.label) {
					if target, ok := g.lookup(e.inV); ok {
						out = append(out, target)
					}
				}
			}
		}
		if s.Name == traversal.StepIn || s.Name == traversal.StepBoth {
			for _, e := range g.in[v.id] {
				if len(s.Args) == 0 || containsArg(s.Args, e.label) {
					if source, ok := g.lookup(e.outV); ok {
						out = append(out, source)
					}
				}
			}
		}
	}
	return out
}

// stepValueMap maps elements to their properties. Property values are
// single-element lists unless a by() modulator says otherwise; tokens are
// added under "id" and "label" as plain values.
func (g *Graph) stepValueMap(ctx context.Context, args []any, modulators []traversal.Step, stream []any) ([]any, error) {
	var tokens bool
	if len(args) > 0 {
		tokens, _ = args[0].(bool)
	}
	var by *traversal.Traversal
	if len(modulators) > 0 {
		nested, ok := traversalArg(modulators[0].Args, 0)
		if !ok {
			return nil, fmt.Errorf("by expects a traversal")
		}
		by = &nested
	}

	out := make([]any, 0, len(stream))
	for _, t := range stream {
		var props map[string]any
		switch el := t.(type) {
		case *vertex:
			props = el.properties
		case *edge:
			props = el.properties
		default:
			return nil, fmt.Errorf("expected an element, got %T", t)
		}

		m := make(map[string]any, len(props)+2)
		for k, v := range props {
			var value any = []any{v}
			if by != nil {
				results, err := g.run(ctx, by.Steps(), []any{value})
				if err != nil {
					return nil, err
				}
				if len(results) == 0 {
					continue
				}
				value = results[0]
			}
			m[k] = value
		}
		if tokens {
			m[traversal.TokenID.Name()], _ = idOf(t)
			m[traversal.TokenLabel.Name()], _ = labelOf(t)
		}
		out = append(out, m)
	}
	return out, nil
}

func stepValues(args []any, stream []any) []any {
	var out []any
	for _, t := range stream {
		var props map[string]any
		switch el := t.(type) {
		case *vertex:
			props = el.properties
		case *edge:
			props = el.properties
		default:
			continue
		}
		keys := make([]string, 0, len(args))
		if len(args) == 0 {
			keys = sortedKeys(props)
		} else {
			for _, a := range args {
				if k, ok := a.(string); ok {
					keys = append(keys, k)
				}
			}
		}
		for _, k := range keys {
			if v, ok := props[k]; ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// stepProject builds one map per traverser. by() modulators are applied to
// the keys in order and reused round-robin when there are fewer of them
// than keys. A key whose modulator yields nothing is left out.
func (g *Graph) stepProject(ctx context.Context, args []any, modulators []traversal.Step, stream []any) ([]any, error) {
	bys := make([]traversal.Traversal, 0, len(modulators))
	for _, m := range modulators {
		nested, ok := traversalArg(m.Args, 0)
		if !ok {
			return nil, fmt.Errorf("by expects a traversal")
		}
		bys = append(bys, nested)
	}

	out := make([]any, 0, len(stream))
	for _, t := range stream {
		m := make(map[string]any, len(args))
		for i, a := range args {
			key, _ := a.(string)
			if len(bys) == 0 {
				m[key] = t
				continue
			}
			by := bys[i%len(bys)]
			results, err := g.run(ctx, by.Steps(), []any{t})
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				m[key] = results[0]
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *Graph) stepDrop(stream []any) {
	for _, t := range stream {
		switch el := t.(type) {
		case *vertex:
			g.dropVertex(el)
		case *edge:
			g.dropEdge(el)
		}
	}
}

func filter(stream []any, keep func(any) bool) []any {
	out := make([]any, 0, len(stream))
	for _, t := range stream {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func mapStream(stream []any, fn func(any) (any, bool)) []any {
	out := make([]any, 0, len(stream))
	for _, t := range stream {
		if v, ok := fn(t); ok {
			out = append(out, v)
		}
	}
	return out
}

// window keeps the traversers at positions [low, high). A negative high
// means no upper bound.
func window(stream []any, low, high int64) []any {
	n := int64(len(stream))
	if high < 0 || high > n {
		high = n
	}
	if low < 0 {
		low = 0
	}
	if low >= high {
		return []any{}
	}
	return stream[low:high]
}

func unfold(stream []any) []any {
	var out []any
	for _, t := range stream {
		switch val := t.(type) {
		case []any:
			out = append(out, val...)
		case map[string]any:
			for _, k := range sortedKeys(val) {
				out = append(out, map[string]any{k: val[k]})
			}
		default:
			out = append(out, t)
		}
	}
	return out
}

func dedup(stream []any) []any {
	seen := make(map[string]struct{}, len(stream))
	out := make([]any, 0, len(stream))
	for _, t := range stream {
		var key string
		switch el := t.(type) {
		case *vertex:
			key = "v:" + el.id
		case *edge:
			key = "e:" + el.id
		default:
			key = fmt.Sprintf("%T:%v", t, t)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func idOf(t any) (any, bool) {
	switch el := t.(type) {
	case *vertex:
		return el.id, true
	case *edge:
		return el.id, true
	default:
		return nil, false
	}
}

func labelOf(t any) (string, bool) {
	switch el := t.(type) {
	case *vertex:
		return el.label, true
	case *edge:
		return el.label, true
	default:
		return "", false
	}
}

// valueOf returns the value of key on an element. Properties that are not
// set report ok=false so that no predicate can match them.
func valueOf(t any, key traversal.Key) (any, bool) {
	switch key {
	case traversal.TokenID:
		return idOf(t)
	case traversal.TokenLabel:
		return labelOf(t)
	}
	switch el := t.(type) {
	case *vertex:
		v, ok := el.properties[string(key)]
		return v, ok
	case *edge:
		v, ok := el.properties[string(key)]
		return v, ok
	default:
		return nil, false
	}
}

// export converts internal elements into detached copies.
func export(v any) any {
	switch val := v.(type) {
	case *vertex:
		return val.export()
	case *edge:
		return val.export()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = export(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = export(item)
		}
		return out
	default:
		return v
	}
}

func keyArg(arg any) traversal.Key {
	switch k := arg.(type) {
	case traversal.Key:
		return k
	case string:
		return traversal.Key(k)
	default:
		return traversal.Key(fmt.Sprint(arg))
	}
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func predicateArg(args []any, i int) (traversal.P, bool) {
	if i >= len(args) {
		return traversal.P{}, false
	}
	p, ok := args[i].(traversal.P)
	return p, ok
}

func traversalArg(args []any, i int) (traversal.Traversal, bool) {
	if i >= len(args) {
		return traversal.Traversal{}, false
	}
	t, ok := args[i].(traversal.Traversal)
	return t, ok
}

func int64Args(args []any) (int64, int64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	a, okA := normalize(args[0]).(int64)
	b, okB := normalize(args[1]).(int64)
	if !okA || !okB {
		return 0, 0, fmt.Errorf("expected integer arguments")
	}
	return a, b, nil
}

func containsArg(args []any, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}
