package filter

import (
	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// ApplyFlat applies an undeclared filter input of the form
// {property: {operator: value}} to t, without a vertex filter. Properties are
// applied in name order, operators in catalog order. Values are used as
// given: membership operators still require a list and text operators a
// string.
func ApplyFlat(t traversal.Traversal, input any) (traversal.Traversal, error) {
	fields, ok, err := toMap(input)
	if err != nil || !ok {
		return t, err
	}

	for _, field := range sortedKeys(fields) {
		ops, ok, err := toMap(fields[field])
		if err != nil {
			return t, err
		}
		if !ok {
			continue
		}
		for op := range ops {
			if _, known := operatorIndex[op]; !known {
				return t, types.BadRequest("unsupported operator %q on %s", op, field).
					WithData("operator", op)
			}
		}
		for _, entry := range operators {
			value, present := ops[entry.name]
			if !present {
				continue
			}
			p, err := flatPredicate(entry, reflectutil.UnwrapValuer(value))
			if err != nil {
				return t, err
			}
			t = t.Has(traversal.Key(field), p)
		}
	}
	return t, nil
}

func flatPredicate(entry operator, value any) (traversal.P, error) {
	switch entry.family {
	case familyMembership:
		list, ok := toList(value)
		if !ok {
			return traversal.P{}, types.BadRequest("operator %s expects a list, got %T", entry.name, value)
		}
		return entry.predicate(list), nil
	case familyText:
		s, ok := value.(string)
		if !ok {
			return traversal.P{}, types.BadRequest("operator %s expects a string, got %T", entry.name, value)
		}
		return entry.predicate(s), nil
	}
	return entry.predicate(value), nil
}
