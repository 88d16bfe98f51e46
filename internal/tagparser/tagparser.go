package tagparser

import (
	"fmt"
	"strings"
)

// ParsedTag represents a parsed gremlin struct tag.
type ParsedTag struct {
	// FieldName is the filter field name, empty when the tag does not name
	// the field.
	FieldName string
	// Skip indicates the "-" tag: the field is not part of the filter.
	Skip bool
	// Options holds the key=value options following the name.
	Options map[string]string
}

// Option returns the value of an option and whether it was present.
func (p ParsedTag) Option(key string) (string, bool) {
	v, ok := p.Options[key]
	return v, ok
}

// ParseGremlinTag parses a gremlin struct tag value and returns structured information.
// Examples:
//   - "name" -> {FieldName: "name"}
//   - "id,key=T.id,kind=id" -> {FieldName: "id", Options: {key: T.id, kind: id}}
//   - ",enum=ACTIVE|BANNED" -> {Options: {enum: ACTIVE|BANNED}}
//   - "following,edge=FOLLOWING,dir=out" -> {FieldName: "following", Options: {edge: FOLLOWING, dir: out}}
//   - "-" -> {Skip: true}
func ParseGremlinTag(tag string) (ParsedTag, error) {
	tag = strings.TrimSpace(tag)

	parsed := ParsedTag{Options: map[string]string{}}

	// Handle empty string
	if tag == "" {
		return parsed, nil
	}

	// Handle skip field
	if tag == "-" {
		parsed.Skip = true
		return parsed, nil
	}

	parts := strings.Split(tag, ",")
	parsed.FieldName = strings.TrimSpace(parts[0])
	if strings.ContainsAny(parsed.FieldName, "= ") {
		return parsed, fmt.Errorf("invalid field name %q in tag %q", parsed.FieldName, tag)
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eqIdx := strings.Index(part, "=")
		if eqIdx <= 0 {
			return parsed, fmt.Errorf("invalid option %q in tag %q: expected key=value", part, tag)
		}
		key := strings.TrimSpace(part[:eqIdx])
		value := strings.TrimSpace(part[eqIdx+1:])
		if _, dup := parsed.Options[key]; dup {
			return parsed, fmt.Errorf("duplicate option %q in tag %q", key, tag)
		}
		parsed.Options[key] = value
	}

	return parsed, nil
}

// SplitList splits a "|" separated option value, dropping empty items:
// "A|B|C" -> [A B C].
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, "|") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
