package traversal

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// String renders the traversal as Gremlin-Groovy, e.g.
// g.V().hasLabel('User').has('name',eq('John')). The rendering is meant for
// logs and debugging; executors work on the step list.
func (t Traversal) String() string {
	var buf bytes.Buffer
	writeTraversal(&buf, t)
	return buf.String()
}

// String renders the predicate as Gremlin-Groovy, e.g. within('a','b').
func (p P) String() string {
	var buf bytes.Buffer
	writePredicate(&buf, p)
	return buf.String()
}

// writeTraversal writes t to w, prefixed with its source name or "__".
func writeTraversal(w io.Writer, t Traversal) {
	if t.IsAnonymous() {
		_, _ = io.WriteString(w, "__")
		if len(t.steps) == 0 {
			_, _ = io.WriteString(w, ".identity()")
			return
		}
	} else {
		_, _ = io.WriteString(w, t.source)
	}
	for _, s := range t.steps {
		_, _ = io.WriteString(w, ".")
		_, _ = io.WriteString(w, s.Name)
		_, _ = io.WriteString(w, "(")
		for i, arg := range s.Args {
			if i != 0 {
				_, _ = io.WriteString(w, ",")
			}
			writeValue(w, arg)
		}
		_, _ = io.WriteString(w, ")")
	}
}

// writePredicate writes p to w. Membership predicates spread their values
// as arguments.
func writePredicate(w io.Writer, p P) {
	_, _ = io.WriteString(w, p.Operator)
	_, _ = io.WriteString(w, "(")
	if p.Operator == OpWithin || p.Operator == OpWithout {
		for i, v := range listValue(p.Value) {
			if i != 0 {
				_, _ = io.WriteString(w, ",")
			}
			writeValue(w, v)
		}
	} else {
		writeValue(w, p.Value)
	}
	_, _ = io.WriteString(w, ")")
}

// writeValue writes a single step argument as a Groovy literal.
func writeValue(w io.Writer, v any) {
	switch val := v.(type) {
	case nil:
		_, _ = io.WriteString(w, "null")
	case Traversal:
		writeTraversal(w, val)
	case P:
		writePredicate(w, val)
	case Key:
		if val.IsToken() {
			_, _ = io.WriteString(w, string(val))
		} else {
			writeString(w, string(val))
		}
	case string:
		writeString(w, val)
	case bool:
		_, _ = io.WriteString(w, strconv.FormatBool(val))
	case int64:
		_, _ = io.WriteString(w, strconv.FormatInt(val, 10))
		_, _ = io.WriteString(w, "L")
	case float64:
		_, _ = io.WriteString(w, strconv.FormatFloat(val, 'g', -1, 64))
		_, _ = io.WriteString(w, "d")
	case float32:
		_, _ = io.WriteString(w, strconv.FormatFloat(float64(val), 'g', -1, 32))
		_, _ = io.WriteString(w, "f")
	case time.Time:
		_, _ = io.WriteString(w, "datetime(")
		writeString(w, val.UTC().Format(time.RFC3339Nano))
		_, _ = io.WriteString(w, ")")
	case []any:
		_, _ = io.WriteString(w, "[")
		for i, item := range val {
			if i != 0 {
				_, _ = io.WriteString(w, ",")
			}
			writeValue(w, item)
		}
		_, _ = io.WriteString(w, "]")
	case map[string]any:
		writeMap(w, val)
	default:
		_, _ = fmt.Fprint(w, val)
	}
}

// writeMap writes a Groovy map literal. Keys are sorted for deterministic
// output.
func writeMap(w io.Writer, m map[string]any) {
	if len(m) == 0 {
		_, _ = io.WriteString(w, "[:]")
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = io.WriteString(w, "[")
	for i, k := range keys {
		if i != 0 {
			_, _ = io.WriteString(w, ",")
		}
		writeString(w, k)
		_, _ = io.WriteString(w, ":")
		writeValue(w, m[k])
	}
	_, _ = io.WriteString(w, "]")
}

var groovyEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func writeString(w io.Writer, s string) {
	_, _ = io.WriteString(w, "'")
	_, _ = io.WriteString(w, groovyEscaper.Replace(s))
	_, _ = io.WriteString(w, "'")
}
