// Package graphson encodes traversals and values to GraphSON 3.0 and decodes
// GraphSON 3.0 results into plain Go values.
//
// Decoded values use a small set of Go types: string, bool, int64, float64,
// time.Time (UTC), []any, map[string]any, Vertex, Edge, Traverser and
// traversal.Key for the T.id / T.label tokens. Map keys that are tokens are
// rendered as "id" and "label".
package graphson

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

// MimeType is the GraphSON 3.0 content type understood by Gremlin Server.
const MimeType = "application/vnd.gremlin-v3.0+json"

// GraphSON type names.
const (
	TypeInt32          = "g:Int32"
	TypeInt64          = "g:Int64"
	TypeFloat          = "g:Float"
	TypeDouble         = "g:Double"
	TypeDate           = "g:Date"
	TypeTimestamp      = "g:Timestamp"
	TypeUUID           = "g:UUID"
	TypeList           = "g:List"
	TypeSet            = "g:Set"
	TypeMap            = "g:Map"
	TypeT              = "g:T"
	TypeP              = "g:P"
	TypeTextP          = "g:TextP"
	TypeBytecode       = "g:Bytecode"
	TypeVertex         = "g:Vertex"
	TypeEdge           = "g:Edge"
	TypeVertexProperty = "g:VertexProperty"
	TypeProperty       = "g:Property"
	TypeTraverser      = "g:Traverser"
	TypeDirection      = "g:Direction"
	TypeClass          = "g:Class"
	TypeByte           = "gx:Byte"
	TypeInt16          = "gx:Int16"
	TypeBigInt         = "gx:BigInteger"
	TypeBigDec         = "gx:BigDecimal"
)

// typed is the {"@type": ..., "@value": ...} wrapper of every non-native
// GraphSON value.
type typed struct {
	Type  string `json:"@type"`
	Value any    `json:"@value"`
}

// Marshal encodes v as GraphSON 3.0 JSON.
func Marshal(v any) ([]byte, error) {
	tree, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Encode converts v into a tree of values that encoding/json serializes as
// GraphSON 3.0. Traversals become g:Bytecode.
func Encode(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case int:
		if val >= math.MinInt32 && val <= math.MaxInt32 {
			return typed{TypeInt32, val}, nil
		}
		return typed{TypeInt64, int64(val)}, nil
	case int8:
		return typed{TypeInt32, int32(val)}, nil
	case int16:
		return typed{TypeInt32, int32(val)}, nil
	case int32:
		return typed{TypeInt32, val}, nil
	case int64:
		return typed{TypeInt64, val}, nil
	case uint8:
		return typed{TypeInt32, int32(val)}, nil
	case uint16:
		return typed{TypeInt32, int32(val)}, nil
	case uint32:
		return typed{TypeInt64, int64(val)}, nil
	case float32:
		return typed{TypeFloat, val}, nil
	case float64:
		return encodeDouble(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return typed{TypeInt64, i}, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return encodeDouble(f), nil
	case time.Time:
		return typed{TypeDate, val.UnixMilli()}, nil
	case uuid.UUID:
		return typed{TypeUUID, val.String()}, nil
	case traversal.Key:
		if val.IsToken() {
			return typed{TypeT, val.Name()}, nil
		}
		return string(val), nil
	case traversal.P:
		return encodePredicate(val)
	case traversal.Traversal:
		return EncodeBytecode(val)
	case []string:
		list := make([]any, len(val))
		for i, s := range val {
			list[i] = s
		}
		return typed{TypeList, list}, nil
	case []any:
		return encodeList(val)
	case map[string]any:
		return encodeMap(val)
	default:
		return nil, fmt.Errorf("graphson: unsupported type %T", v)
	}
}

// EncodeBytecode converts a traversal into its g:Bytecode form.
func EncodeBytecode(t traversal.Traversal) (any, error) {
	steps := t.Steps()
	instructions := make([][]any, 0, len(steps))
	for _, s := range steps {
		instruction := make([]any, 0, len(s.Args)+1)
		instruction = append(instruction, s.Name)
		for _, arg := range s.Args {
			encoded, err := Encode(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to encode argument of step %s: %w", s.Name, err)
			}
			instruction = append(instruction, encoded)
		}
		instructions = append(instructions, instruction)
	}
	return typed{TypeBytecode, map[string]any{"step": instructions}}, nil
}

func encodeDouble(f float64) any {
	switch {
	case math.IsNaN(f):
		return typed{TypeDouble, "NaN"}
	case math.IsInf(f, 1):
		return typed{TypeDouble, "Infinity"}
	case math.IsInf(f, -1):
		return typed{TypeDouble, "-Infinity"}
	}
	return typed{TypeDouble, f}
}

func encodePredicate(p traversal.P) (any, error) {
	value, err := Encode(p.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode predicate %s: %w", p.Operator, err)
	}
	typeName := TypeP
	if p.IsText() {
		typeName = TypeTextP
	}
	return typed{typeName, map[string]any{"predicate": p.Operator, "value": value}}, nil
}

func encodeList(values []any) (any, error) {
	list := make([]any, len(values))
	for i, item := range values {
		encoded, err := Encode(item)
		if err != nil {
			return nil, err
		}
		list[i] = encoded
	}
	return typed{TypeList, list}, nil
}

// encodeMap writes a g:Map as a flat key/value list. Keys are sorted for
// deterministic output.
func encodeMap(m map[string]any) (any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := make([]any, 0, 2*len(m))
	for _, k := range keys {
		encoded, err := Encode(m[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode map value %q: %w", k, err)
		}
		flat = append(flat, k, encoded)
	}
	return typed{TypeMap, flat}, nil
}
