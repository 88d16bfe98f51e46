package graphson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

// Vertex is a decoded g:Vertex.
type Vertex struct {
	ID         any
	Label      string
	Properties map[string]any
}

// Edge is a decoded g:Edge.
type Edge struct {
	ID         any
	Label      string
	OutV       any
	InV        any
	Properties map[string]any
}

// Traverser is a decoded g:Traverser: a value and how many times it occurs
// in the result.
type Traverser struct {
	Bulk  int64
	Value any
}

// Unmarshal parses GraphSON 3.0 JSON and returns the decoded value.
//
// The implementation is created on top of the JSON tokenizer available
// in "encoding/json".Decoder.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	d := &decoder{tokenizer: dec}
	v, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	tok, err := dec.Token()
	switch err {
	case io.EOF:
		// Expect to get io.EOF. There shouldn't be any more
		// tokens left after we've decoded v successfully.
		return v, nil
	case nil:
		return nil, fmt.Errorf("invalid token '%v' after top-level value", tok)
	default:
		return nil, err
	}
}

// decoder is a GraphSON decoder implemented on top of a JSON tokenizer.
// Typed values are converted bottom-up: the @value of a wrapper is fully
// decoded before the wrapper itself is interpreted.
type decoder struct {
	tokenizer interface {
		Token() (json.Token, error)
		More() bool
	}
}

func (d *decoder) decodeValue() (any, error) {
	tok, err := d.tokenizer.Token()
	if err != nil {
		return nil, err
	}
	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			return d.decodeObject()
		case '[':
			return d.decodeArray()
		default:
			return nil, fmt.Errorf("unexpected delimiter '%v'", tok)
		}
	case json.Number:
		return decodeNumber(tok)
	case string, bool, nil:
		return tok, nil
	default:
		return nil, fmt.Errorf("unexpected token '%v'", tok)
	}
}

func (d *decoder) decodeArray() (any, error) {
	list := []any{}
	for d.tokenizer.More() {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	if _, err := d.tokenizer.Token(); err != nil { // closing ']'
		return nil, err
	}
	return list, nil
}

func (d *decoder) decodeObject() (any, error) {
	obj := map[string]any{}
	for d.tokenizer.More() {
		tok, err := d.tokenizer.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key '%v'", tok)
		}
		v, err := d.decodeValue()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", key, err)
		}
		obj[key] = v
	}
	if _, err := d.tokenizer.Token(); err != nil { // closing '}'
		return nil, err
	}

	typeName, isTyped := obj["@type"].(string)
	value, hasValue := obj["@value"]
	if !isTyped || !hasValue || len(obj) != 2 {
		return obj, nil
	}
	return convertTyped(typeName, value)
}

func decodeNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n, err)
	}
	return f, nil
}

// convertTyped interprets an already decoded @value according to @type.
func convertTyped(typeName string, value any) (any, error) {
	switch typeName {
	case TypeInt32, TypeInt64, TypeByte, TypeInt16, TypeBigInt:
		return asInt64(typeName, value)
	case TypeFloat, TypeDouble, TypeBigDec:
		return asFloat64(typeName, value)
	case TypeDate, TypeTimestamp:
		ms, err := asInt64(typeName, value)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms.(int64)).UTC(), nil
	case TypeUUID, TypeDirection, TypeClass:
		return fmt.Sprint(value), nil
	case TypeT:
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string, got %T", typeName, value)
		}
		return traversal.Key("T." + name), nil
	case TypeList, TypeSet:
		list, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected array, got %T", typeName, value)
		}
		return list, nil
	case TypeMap:
		return asMap(value)
	case TypeVertex:
		return asVertex(value)
	case TypeEdge:
		return asEdge(value)
	case TypeVertexProperty, TypeProperty:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %T", typeName, value)
		}
		return obj["value"], nil
	case TypeTraverser:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %T", typeName, value)
		}
		bulk, err := asInt64(typeName, obj["bulk"])
		if err != nil {
			return nil, err
		}
		return Traverser{Bulk: bulk.(int64), Value: obj["value"]}, nil
	default:
		// Unknown types (custom serializers, provider extensions) are
		// passed through as their raw value.
		return value, nil
	}
}

func asInt64(typeName string, value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
	}
	return nil, fmt.Errorf("%s: invalid integer %v", typeName, value)
}

func asFloat64(typeName string, value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		switch v {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%s: invalid number %v", typeName, value)
}

// asMap converts the flat key/value list of a g:Map.
func asMap(value any) (any, error) {
	flat, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %T", TypeMap, value)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%s: odd number of entries", TypeMap)
	}
	m := make(map[string]any, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		m[MapKey(flat[i])] = flat[i+1]
	}
	return m, nil
}

// MapKey renders a decoded map key as a string: tokens become "id" and
// "label", other non-string keys use their default formatting.
func MapKey(k any) string {
	switch key := k.(type) {
	case string:
		return key
	case traversal.Key:
		return key.Name()
	default:
		return fmt.Sprint(key)
	}
}

func asVertex(value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %T", TypeVertex, value)
	}
	v := Vertex{ID: obj["id"], Properties: map[string]any{}}
	v.Label, _ = obj["label"].(string)
	if props, ok := obj["properties"].(map[string]any); ok {
		for name, p := range props {
			// Vertex properties arrive as a list per key; single
			// cardinality is assumed.
			if list, ok := p.([]any); ok && len(list) > 0 {
				v.Properties[name] = list[0]
			} else {
				v.Properties[name] = p
			}
		}
	}
	return v, nil
}

func asEdge(value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %T", TypeEdge, value)
	}
	e := Edge{
		ID:         obj["id"],
		OutV:       obj["outV"],
		InV:        obj["inV"],
		Properties: map[string]any{},
	}
	e.Label, _ = obj["label"].(string)
	if props, ok := obj["properties"].(map[string]any); ok {
		for name, p := range props {
			e.Properties[name] = p
		}
	}
	return e, nil
}
