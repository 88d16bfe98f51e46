package gqlgremlin

import (
	"encoding/json"
	"fmt"
	"time"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	"github.com/llehouerou/go-graphql-gremlin/pkg/graphson"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Envelope is the result of one invocation: either Data or Error, never
// both.
type Envelope struct {
	Data  any
	Error *types.Failure
}

// Failed reports whether the envelope carries an error.
func (e Envelope) Failed() bool {
	return e.Error != nil
}

// MarshalJSON implements json.Marshaler: {"data": ...} or
// {"error": {"error_type", "error_message", "error_data"}}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Error != nil {
		failure := *e.Error
		if failure.Data == nil {
			failure.Data = map[string]any{}
		}
		return json.Marshal(struct {
			Error *types.Failure `json:"error"`
		}{&failure})
	}
	return json.Marshal(struct {
		Data any `json:"data"`
	}{e.Data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data  any            `json:"data"`
		Error *types.Failure `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	if raw.Error != nil && raw.Data != nil {
		return fmt.Errorf("failed to decode envelope: both data and error are set")
	}
	e.Data, e.Error = raw.Data, raw.Error
	return nil
}

// QueryError converts a failed envelope to a graph-gophers query error
// carrying errorType and errorData extensions. It returns nil for a
// successful envelope.
func (e Envelope) QueryError() *gqlerrors.QueryError {
	if e.Error == nil {
		return nil
	}
	qe := gqlerrors.Errorf("%s", e.Error.Message)
	qe.ResolverError = e.Error
	qe.Extensions = e.Error.Extensions()
	return qe
}

// FormatValue shapes a traversal result for the gateway: elements become
// maps with id and label, times become RFC 3339 strings. Maps and lists are
// formatted recursively.
func FormatValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case graphson.Vertex:
		return formatElement(val.ID, val.Label, val.Properties)
	case graphson.Edge:
		m := formatElement(val.ID, val.Label, val.Properties)
		m["out"] = FormatValue(val.OutV)
		m["in"] = FormatValue(val.InV)
		return m
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = FormatValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = FormatValue(item)
		}
		return out
	}
	return v
}

func formatElement(id any, label string, properties map[string]any) map[string]any {
	m := make(map[string]any, len(properties)+2)
	for k, v := range properties {
		m[k] = FormatValue(v)
	}
	m["id"] = FormatValue(id)
	m["label"] = label
	return m
}
