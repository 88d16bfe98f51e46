package tagparser

import (
	"reflect"
	"testing"
)

func TestParseGremlinTag_SimpleFieldName(t *testing.T) {
	tag := "name"

	parsed, err := ParseGremlinTag(tag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.FieldName != "name" {
		t.Errorf("expected FieldName 'name', got '%s'", parsed.FieldName)
	}
	if parsed.Skip {
		t.Error("expected Skip to be false")
	}
	if len(parsed.Options) != 0 {
		t.Errorf("expected no options, got %v", parsed.Options)
	}
}

func TestParseGremlinTag_Options(t *testing.T) {
	tag := "id, key=T.id ,kind=id"

	parsed, err := ParseGremlinTag(tag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.FieldName != "id" {
		t.Errorf("expected FieldName 'id', got '%s'", parsed.FieldName)
	}
	want := map[string]string{"key": "T.id", "kind": "id"}
	if !reflect.DeepEqual(parsed.Options, want) {
		t.Errorf("expected options %v, got %v", want, parsed.Options)
	}
	if v, ok := parsed.Option("key"); !ok || v != "T.id" {
		t.Errorf("expected Option(key) = T.id, got %q (%v)", v, ok)
	}
	if _, ok := parsed.Option("edge"); ok {
		t.Error("expected Option(edge) to be absent")
	}
}

func TestParseGremlinTag_OptionsWithoutName(t *testing.T) {
	tag := ",enum=ACTIVE|BANNED"

	parsed, err := ParseGremlinTag(tag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.FieldName != "" {
		t.Errorf("expected empty FieldName, got '%s'", parsed.FieldName)
	}
	if parsed.Options["enum"] != "ACTIVE|BANNED" {
		t.Errorf("expected enum option, got %v", parsed.Options)
	}
}

func TestParseGremlinTag_Relationship(t *testing.T) {
	tag := "following,edge=FOLLOWING,dir=out,label=User"

	parsed, err := ParseGremlinTag(tag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ParsedTag{
		FieldName: "following",
		Options:   map[string]string{"edge": "FOLLOWING", "dir": "out", "label": "User"},
	}
	if !reflect.DeepEqual(parsed, want) {
		t.Errorf("expected %+v, got %+v", want, parsed)
	}
}

func TestParseGremlinTag_Skip(t *testing.T) {
	parsed, err := ParseGremlinTag(" - ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Skip {
		t.Error("expected Skip to be true")
	}
}

func TestParseGremlinTag_Empty(t *testing.T) {
	parsed, err := ParseGremlinTag("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.FieldName != "" || parsed.Skip || len(parsed.Options) != 0 {
		t.Errorf("expected zero tag, got %+v", parsed)
	}
}

func TestParseGremlinTag_Errors(t *testing.T) {
	tests := []struct {
		name string
		tag  string
	}{
		{"option without value", "name,edge"},
		{"option without key", "name,=x"},
		{"duplicate option", "name,kind=id,kind=int"},
		{"name with equals", "kind=id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGremlinTag(tt.tag); err == nil {
				t.Errorf("expected error for tag %q", tt.tag)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"A|B|C", []string{"A", "B", "C"}},
		{" A | B ", []string{"A", "B"}},
		{"A||B", []string{"A", "B"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SplitList(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitList(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
