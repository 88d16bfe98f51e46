package traversal

import (
	"strings"
)

// Key names an element property or one of the element tokens.
type Key string

// Element tokens. They address the id and label of an element rather than
// one of its properties.
const (
	TokenID    Key = "T.id"
	TokenLabel Key = "T.label"
)

// IsToken reports whether k is TokenID or TokenLabel.
func (k Key) IsToken() bool {
	return k == TokenID || k == TokenLabel
}

// Name returns the property name, or "id"/"label" for tokens.
func (k Key) Name() string {
	return strings.TrimPrefix(string(k), "T.")
}

// Predicate operator names, as used by Gremlin.
const (
	OpEq              = "eq"
	OpNeq             = "neq"
	OpLt              = "lt"
	OpLte             = "lte"
	OpGt              = "gt"
	OpGte             = "gte"
	OpWithin          = "within"
	OpWithout         = "without"
	OpContaining      = "containing"
	OpNotContaining   = "notContaining"
	OpStartingWith    = "startingWith"
	OpNotStartingWith = "notStartingWith"
	OpEndingWith      = "endingWith"
	OpNotEndingWith   = "notEndingWith"
)

// P is a predicate over a single value. Text predicates (the string-match
// family) are serialized as TextP.
type P struct {
	Operator string
	Value    any
}

// IsText reports whether p belongs to the TextP family.
func (p P) IsText() bool {
	switch p.Operator {
	case OpContaining, OpNotContaining,
		OpStartingWith, OpNotStartingWith,
		OpEndingWith, OpNotEndingWith:
		return true
	default:
		return false
	}
}

func Eq(v any) P  { return P{Operator: OpEq, Value: v} }
func Neq(v any) P { return P{Operator: OpNeq, Value: v} }
func Lt(v any) P  { return P{Operator: OpLt, Value: v} }
func Lte(v any) P { return P{Operator: OpLte, Value: v} }
func Gt(v any) P  { return P{Operator: OpGt, Value: v} }
func Gte(v any) P { return P{Operator: OpGte, Value: v} }

// Within matches values equal to one of values.
func Within(values ...any) P { return P{Operator: OpWithin, Value: values} }

// Without matches values equal to none of values.
func Without(values ...any) P { return P{Operator: OpWithout, Value: values} }

func Containing(s string) P      { return P{Operator: OpContaining, Value: s} }
func NotContaining(s string) P   { return P{Operator: OpNotContaining, Value: s} }
func StartingWith(s string) P    { return P{Operator: OpStartingWith, Value: s} }
func NotStartingWith(s string) P { return P{Operator: OpNotStartingWith, Value: s} }
func EndingWith(s string) P      { return P{Operator: OpEndingWith, Value: s} }
func NotEndingWith(s string) P   { return P{Operator: OpNotEndingWith, Value: s} }

// Test evaluates p against v the way a Gremlin server does: ordering
// predicates never match incomparable values, text predicates never match
// non-strings.
func (p P) Test(v any) bool {
	switch p.Operator {
	case OpEq:
		return Equal(v, p.Value)
	case OpNeq:
		return !Equal(v, p.Value)
	case OpLt, OpLte, OpGt, OpGte:
		c, ok := Compare(v, p.Value)
		if !ok {
			return false
		}
		switch p.Operator {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	case OpWithin, OpWithout:
		found := false
		for _, candidate := range listValue(p.Value) {
			if Equal(v, candidate) {
				found = true
				break
			}
		}
		return found == (p.Operator == OpWithin)
	}

	s, ok := v.(string)
	if !ok {
		return false
	}
	arg, _ := p.Value.(string)
	switch p.Operator {
	case OpContaining:
		return strings.Contains(s, arg)
	case OpNotContaining:
		return !strings.Contains(s, arg)
	case OpStartingWith:
		return strings.HasPrefix(s, arg)
	case OpNotStartingWith:
		return !strings.HasPrefix(s, arg)
	case OpEndingWith:
		return strings.HasSuffix(s, arg)
	case OpNotEndingWith:
		return !strings.HasSuffix(s, arg)
	}
	return false
}

func listValue(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}
