package filter

import (
	"fmt"
	"reflect"
	"time"

	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/internal/tagparser"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Tag options understood by Declare.
const (
	tagKind  = "kind"
	tagEnum  = "enum"
	tagOps   = "ops"
	tagKey   = "key"
	tagEdge  = "edge"
	tagDir   = "dir"
	tagLabel = "label"
)

var timeType = reflect.TypeOf(time.Time{})

// Declare builds the vertex filter of label from the gremlin tags of a
// struct prototype:
//
//	type User struct {
//		ID        string     `gremlin:"id,key=T.id,kind=id"`
//		Name      string     `gremlin:"name"`
//		Status    string     `gremlin:"status,enum=ACTIVE|BANNED"`
//		CreatedAt time.Time  `gremlin:"created_at,ops=lt|gt"`
//		Following []User     `gremlin:"following,edge=FOLLOWING"`
//		Followers []User     `gremlin:"followers,edge=FOLLOWING,dir=in"`
//		Internal  string     `gremlin:"-"`
//	}
//
// Field kinds follow the Go type (string, integers, floats, bool,
// time.Time) unless kind= or enum= says otherwise. Fields tagged edge= are
// relationships; their struct type is declared recursively, with the root
// label when it is the prototype type and its Go type name otherwise, unless
// label= is given.
func Declare(label string, prototype any) (*VertexFilter, error) {
	root := reflectutil.IndirectType(reflect.TypeOf(prototype))
	if root == nil || root.Kind() != reflect.Struct {
		return nil, configError("prototype must be a struct, got %T", prototype)
	}
	if label == "" {
		label = root.Name()
	}
	d := &declarer{root: root, rootLabel: label, memo: map[declared]*VertexFilter{}}
	return d.declare(root, label)
}

// MustDeclare is Declare for initialization code; it panics on error.
func MustDeclare(label string, prototype any) *VertexFilter {
	v, err := Declare(label, prototype)
	if err != nil {
		panic(err)
	}
	return v
}

type declared struct {
	t     reflect.Type
	label string
}

type declarer struct {
	root      reflect.Type
	rootLabel string
	memo      map[declared]*VertexFilter
}

func (d *declarer) declare(t reflect.Type, label string) (*VertexFilter, error) {
	key := declared{t: t, label: label}
	if v, ok := d.memo[key]; ok {
		return v, nil
	}
	v := NewVertex(label)
	d.memo[key] = v

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, err := tagparser.ParseGremlinTag(sf.Tag.Get(types.GremlinTag))
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag of %s.%s: %w", t.Name(), sf.Name, err)
		}
		if tag.Skip {
			continue
		}
		name := tag.FieldName
		if name == "" {
			name = reflectutil.SnakeCase(sf.Name)
		}

		var f Filter
		if _, isEdge := tag.Option(tagEdge); isEdge {
			f, err = d.relationship(sf, tag)
		} else {
			f, err = scalarFromTag(sf, tag)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to declare %s.%s: %w", t.Name(), sf.Name, err)
		}
		if err := v.AddField(name, f); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (d *declarer) relationship(sf reflect.StructField, tag tagparser.ParsedTag) (*RelationshipFilter, error) {
	edge, _ := tag.Option(tagEdge)
	if edge == "" {
		return nil, configError("empty edge label")
	}

	dir := Out
	if s, ok := tag.Option(tagDir); ok {
		var err error
		if dir, err = ParseDirection(s); err != nil {
			return nil, err
		}
	}

	target := reflectutil.IndirectType(sf.Type)
	if target.Kind() != reflect.Struct || target == timeType {
		return nil, configError("relationship field must be a struct, a pointer or a slice of structs, got %s", sf.Type)
	}

	label, ok := tag.Option(tagLabel)
	if !ok || label == "" {
		label = target.Name()
		if target == d.root {
			label = d.rootLabel
		}
	}

	v, err := d.declare(target, label)
	if err != nil {
		return nil, err
	}
	return Relationship(edge, dir, v), nil
}

func scalarFromTag(sf reflect.StructField, tag tagparser.ParsedTag) (*ScalarFilter, error) {
	for _, opt := range []string{tagDir, tagLabel} {
		if _, ok := tag.Option(opt); ok {
			return nil, configError("option %q requires edge=", opt)
		}
	}

	var (
		kind  Kind
		err   error
		enums []string
	)
	if s, ok := tag.Option(tagEnum); ok {
		kind = KindEnum
		if enums = tagparser.SplitList(s); len(enums) == 0 {
			return nil, configError("empty enumeration")
		}
	}
	if s, ok := tag.Option(tagKind); ok {
		if kind, err = ParseKind(s); err != nil {
			return nil, err
		}
		if enums != nil && kind != KindEnum {
			return nil, configError("enum= cannot be combined with kind=%s", s)
		}
	} else if enums == nil {
		if kind, err = kindOf(sf.Type); err != nil {
			return nil, err
		}
	}

	f, err := NewScalar(kind, tagparser.SplitList(tag.Options[tagOps])...)
	if err != nil {
		return nil, err
	}
	f.enum = enums

	if s, ok := tag.Option(tagKey); ok {
		f = f.On(traversal.Key(s))
	}
	return f, nil
}

func kindOf(t reflect.Type) (Kind, error) {
	t = reflectutil.IndirectType(t)
	if t == timeType {
		return KindDateTime, nil
	}
	if reflectutil.ImplementsValuer(t) || reflectutil.ImplementsValuer(reflect.PointerTo(t)) {
		return 0, configError("%s wraps its value, declare its kind with kind=", t)
	}
	switch k := t.Kind(); {
	case k == reflect.String:
		return KindString, nil
	case k == reflect.Bool:
		return KindBoolean, nil
	case reflectutil.IsIntegerKind(k):
		return KindInt, nil
	case reflectutil.IsFloatKind(k):
		return KindFloat, nil
	}
	return 0, configError("cannot infer filter kind of %s", t)
}
