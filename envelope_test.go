package gqlgremlin

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/go-graphql-gremlin/pkg/graphson"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

func TestEnvelopeMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		envelope Envelope
		want     string
	}{
		{
			name:     "data",
			envelope: Envelope{Data: map[string]any{"id": "u1"}},
			want:     `{"data":{"id":"u1"}}`,
		},
		{
			name:     "null data",
			envelope: Envelope{},
			want:     `{"data":null}`,
		},
		{
			name:     "error",
			envelope: Envelope{Error: types.NotFound("user u9 not found").WithData("id", "u9")},
			want:     `{"error":{"error_type":"NOT_FOUND","error_message":"user u9 not found","error_data":{"id":"u9"}}}`,
		},
		{
			name:     "error without data",
			envelope: Envelope{Error: &types.Failure{Type: "CUSTOM", Message: "m"}},
			want:     `{"error":{"error_type":"CUSTOM","error_message":"m","error_data":{}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.envelope)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEnvelopeUnmarshalJSON(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"error":{"error_type":"BAD_REQUEST","error_message":"m","error_data":{}}}`), &env))
	require.True(t, env.Failed())
	assert.Equal(t, types.ErrorTypeBadRequest, env.Error.Type)

	env = Envelope{}
	require.NoError(t, json.Unmarshal([]byte(`{"data":[1,2]}`), &env))
	assert.False(t, env.Failed())
	assert.Equal(t, []any{1.0, 2.0}, env.Data)

	assert.Error(t, json.Unmarshal([]byte(`{"data":1,"error":{"error_type":"X"}}`), &env))
}

func TestEnvelopeQueryError(t *testing.T) {
	assert.Nil(t, Envelope{Data: 1}.QueryError())

	failure := types.InvalidFilterField("User", []string{"email"})
	qe := Envelope{Error: failure}.QueryError()
	require.NotNil(t, qe)
	assert.Equal(t, failure.Message, qe.Message)
	assert.Equal(t, types.ErrorTypeInvalidFilterField, qe.Extensions["errorType"])
	assert.Equal(t, failure.Data, qe.Extensions["errorData"])
	assert.Same(t, failure, qe.ResolverError)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "scalar",
			value: int64(3),
			want:  int64(3),
		},
		{
			name:  "time",
			value: ts,
			want:  "2024-03-01T11:30:00Z",
		},
		{
			name: "vertex",
			value: graphson.Vertex{ID: "u1", Label: "User", Properties: map[string]any{
				"name": "John", "born": ts,
			}},
			want: map[string]any{"id": "u1", "label": "User", "name": "John", "born": "2024-03-01T11:30:00Z"},
		},
		{
			name:  "edge",
			value: graphson.Edge{ID: "e1", Label: "FOLLOWING", OutV: "u1", InV: "u2"},
			want:  map[string]any{"id": "e1", "label": "FOLLOWING", "out": "u1", "in": "u2"},
		},
		{
			name:  "nested",
			value: map[string]any{"at": []any{ts, "x"}},
			want:  map[string]any{"at": []any{"2024-03-01T11:30:00Z", "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}
