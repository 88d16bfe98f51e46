package graphson

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

func TestMarshalBytecode(t *testing.T) {
	g := traversal.NewSource("g", nil)
	tr := g.V().HasLabel("User").
		Has("name", traversal.Eq("John")).
		Has(traversal.TokenID, traversal.Within("1", "2")).
		Where(traversal.T__.Out("FOLLOWING").Has("email", traversal.EndingWith(".com"))).
		Range(0, 10)

	got, err := Marshal(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"@type":"g:Bytecode","@value":{"step":[` +
		`["V"],` +
		`["hasLabel","User"],` +
		`["has","name",{"@type":"g:P","@value":{"predicate":"eq","value":"John"}}],` +
		`["has",{"@type":"g:T","@value":"id"},{"@type":"g:P","@value":{"predicate":"within","value":{"@type":"g:List","@value":["1","2"]}}}],` +
		`["where",{"@type":"g:Bytecode","@value":{"step":[["out","FOLLOWING"],["has","email",{"@type":"g:TextP","@value":{"predicate":"endingWith","value":".com"}}]]}}],` +
		`["range",{"@type":"g:Int64","@value":0},{"@type":"g:Int64","@value":10}]` +
		`]}}`
	if string(got) != want {
		t.Errorf("unexpected bytecode\nexpected: %s\ngot:      %s", want, got)
	}
}

func TestMarshalValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "a", `"a"`},
		{"bool", true, `true`},
		{"nil", nil, `null`},
		{"int", 5, `{"@type":"g:Int32","@value":5}`},
		{"int64", int64(5), `{"@type":"g:Int64","@value":5}`},
		{"double", 1.5, `{"@type":"g:Double","@value":1.5}`},
		{"date", time.UnixMilli(1577836800000), `{"@type":"g:Date","@value":1577836800000}`},
		{"map", map[string]any{"b": 1, "a": "x"}, `{"@type":"g:Map","@value":["a","x","b",{"@type":"g:Int32","@value":1}]}`},
		{"list", []any{"a", int64(1)}, `{"@type":"g:List","@value":["a",{"@type":"g:Int64","@value":1}]}`},
		{"label token", traversal.TokenLabel, `{"@type":"g:T","@value":"label"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMarshalUnsupported(t *testing.T) {
	_, err := Marshal(struct{}{})
	if err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestUnmarshalValueMap(t *testing.T) {
	data := `{"@type":"g:List","@value":[
		{"@type":"g:Map","@value":[
			{"@type":"g:T","@value":"id"},"u1",
			{"@type":"g:T","@value":"label"},"User",
			"name","John",
			"age",{"@type":"g:Int32","@value":30},
			"score",{"@type":"g:Double","@value":1.5},
			"created_at",{"@type":"g:Date","@value":1577836800000}
		]}
	]}`

	got, err := Unmarshal([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []any{
		map[string]any{
			"id":         "u1",
			"label":      "User",
			"name":       "John",
			"age":        int64(30),
			"score":      1.5,
			"created_at": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

func TestUnmarshalElements(t *testing.T) {
	data := `{"@type":"g:List","@value":[
		{"@type":"g:Vertex","@value":{"id":{"@type":"g:Int64","@value":1},"label":"User",
			"properties":{"name":[{"@type":"g:VertexProperty","@value":{"id":{"@type":"g:Int64","@value":0},"value":"John","label":"name"}}]}}},
		{"@type":"g:Edge","@value":{"id":"e1","label":"FOLLOWING","inV":"u2","outV":"u1","properties":{}}},
		{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":2},"value":"x"}}
	]}`

	got, err := Unmarshal([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("expected 3 items, got %#v", got)
	}

	v, ok := list[0].(Vertex)
	if !ok {
		t.Fatalf("expected Vertex, got %T", list[0])
	}
	if v.ID != int64(1) || v.Label != "User" || v.Properties["name"] != "John" {
		t.Errorf("unexpected vertex: %#v", v)
	}

	e, ok := list[1].(Edge)
	if !ok {
		t.Fatalf("expected Edge, got %T", list[1])
	}
	if e.Label != "FOLLOWING" || e.OutV != "u1" || e.InV != "u2" {
		t.Errorf("unexpected edge: %#v", e)
	}

	tr, ok := list[2].(Traverser)
	if !ok || tr.Bulk != 2 || tr.Value != "x" {
		t.Errorf("unexpected traverser: %#v", list[2])
	}
}

func TestUnmarshalPlainObject(t *testing.T) {
	data := `{"requestId":"abc","status":{"code":200,"message":""},"result":{"data":{"@type":"g:List","@value":["a"]}}}`

	got, err := Unmarshal([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := got.(map[string]any)
	status := obj["status"].(map[string]any)
	if status["code"] != int64(200) {
		t.Errorf("expected code 200, got %#v", status["code"])
	}
	result := obj["result"].(map[string]any)
	if !reflect.DeepEqual(result["data"], []any{"a"}) {
		t.Errorf("unexpected data: %#v", result["data"])
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"trailing token", `"a" "b"`},
		{"odd map", `{"@type":"g:Map","@value":["a"]}`},
		{"bad int", `{"@type":"g:Int64","@value":"x"}`},
		{"truncated", `{"a":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Errorf("expected error for %s", tt.data)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := map[string]any{
		"name": "John",
		"age":  int64(30),
		"tags": []any{"a", "b"},
		"at":   time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC),
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("invalid json: %s", data)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("expected %#v, got %#v", in, out)
	}
}
