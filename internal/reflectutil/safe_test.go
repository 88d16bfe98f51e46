package reflectutil

import (
	"reflect"
	"testing"
)

func TestIndirect(t *testing.T) {
	n := 5
	p := &n
	var nilPtr *int
	var iface any = p

	tests := []struct {
		name      string
		value     reflect.Value
		wantValid bool
		wantValue any
	}{
		{name: "plain value", value: reflect.ValueOf(3), wantValid: true, wantValue: 3},
		{name: "pointer", value: reflect.ValueOf(p), wantValid: true, wantValue: 5},
		{name: "pointer to pointer", value: reflect.ValueOf(&p), wantValid: true, wantValue: 5},
		{name: "interface", value: reflect.ValueOf(&iface).Elem(), wantValid: true, wantValue: 5},
		{name: "nil pointer", value: reflect.ValueOf(nilPtr), wantValid: false},
		{name: "invalid", value: reflect.Value{}, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Indirect(tt.value)
			if got.IsValid() != tt.wantValid {
				t.Fatalf("Indirect() valid = %v, want %v", got.IsValid(), tt.wantValid)
			}
			if tt.wantValid && got.Interface() != tt.wantValue {
				t.Errorf("Indirect() = %v, want %v", got.Interface(), tt.wantValue)
			}
		})
	}
}

func TestIsNil(t *testing.T) {
	var nilPtr *int
	var nilMap map[string]any
	var nilSlice []any

	tests := []struct {
		name string
		x    any
		want bool
	}{
		{name: "nil", x: nil, want: true},
		{name: "nil pointer", x: nilPtr, want: true},
		{name: "nil map", x: nilMap, want: true},
		{name: "nil slice", x: nilSlice, want: true},
		{name: "empty map", x: map[string]any{}, want: false},
		{name: "zero int", x: 0, want: false},
		{name: "empty string", x: "", want: false},
		{name: "struct", x: struct{}{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNil(tt.x); got != tt.want {
				t.Errorf("IsNil(%#v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestIsNillable(t *testing.T) {
	tests := []struct {
		name string
		kind reflect.Kind
		want bool
	}{
		// Nillable types
		{name: "ptr", kind: reflect.Ptr, want: true},
		{name: "interface", kind: reflect.Interface, want: true},
		{name: "slice", kind: reflect.Slice, want: true},
		{name: "map", kind: reflect.Map, want: true},
		{name: "chan", kind: reflect.Chan, want: true},
		{name: "func", kind: reflect.Func, want: true},

		// Non-nillable types
		{name: "bool", kind: reflect.Bool, want: false},
		{name: "int", kind: reflect.Int, want: false},
		{name: "float64", kind: reflect.Float64, want: false},
		{name: "array", kind: reflect.Array, want: false},
		{name: "string", kind: reflect.String, want: false},
		{name: "struct", kind: reflect.Struct, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNillable(tt.kind); got != tt.want {
				t.Errorf("IsNillable(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}
