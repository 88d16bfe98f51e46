package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gqlgremlin "github.com/llehouerou/go-graphql-gremlin"
)

const fixture = `{
  "vertices": [
    {"id": "u1", "label": "User", "properties": {"name": "John", "status": "ACTIVE"}},
    {"id": "u2", "label": "User", "properties": {"name": "Jane", "status": "ACTIVE"}}
  ],
  "edges": [
    {"label": "FOLLOWING", "out": "u1", "in": "u2"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunWithFixture(t *testing.T) {
	fixturePath := writeFile(t, "social.json", fixture)
	t.Setenv("GREMLINQL_CONFIG", "")

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "single",
			payload: `{"type_name":"Query","field_name":"userCount"}`,
			want:    `{"data":2}`,
		},
		{
			name: "batch",
			payload: `[
				{"type_name":"User","field_name":"followingCount","source":{"id":"u1"}},
				{"type_name":"Query","field_name":"nope"}
			]`,
			want: `[
				{"data":1},
				{"error":{"error_type":"RESOLVER_NOT_FOUND","error_message":"no resolver for Query.nope",
				  "error_data":{"type_name":"Query","field_name":"nope"}}}
			]`,
		},
		{
			name:    "malformed",
			payload: `{"type_name":`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run([]string{"-fixture", fixturePath}, strings.NewReader(tt.payload), &stdout, &stderr)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Contains(t, stdout.String(), `"error_type":"BAD_REQUEST"`)
				return
			}
			assert.JSONEq(t, tt.want, stdout.String())
		})
	}
}

func TestRunPayloadFile(t *testing.T) {
	fixturePath := writeFile(t, "social.json", fixture)
	payloadPath := writeFile(t, "payload.json", `{"type_name":"Query","field_name":"user","arguments":{"id":"u2"}}`)
	t.Setenv("GREMLINQL_CONFIG", "")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-fixture", fixturePath, "-payload", payloadPath}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"id":"u2","label":"User","name":"Jane","status":"ACTIVE"}}`, stdout.String())
}

func TestRunMetrics(t *testing.T) {
	fixturePath := writeFile(t, "social.json", fixture)
	configPath := writeFile(t, "config.yaml", "log:\n  format: json\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", configPath, "-fixture", fixturePath, "-metrics"},
		strings.NewReader(`{"type_name":"Query","field_name":"userCount"}`), &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), `"message":"resolver invocations"`)
	assert.Contains(t, stderr.String(), `"outcome":"success"`)
}

func TestRunValidate(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "gremlin:\n  host: db.internal\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-config", configPath, "-validate"}, nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "valid")

	configPath = writeFile(t, "bad.yaml", "gremlin:\n  scheme: http\n")
	assert.Error(t, run([]string{"-config", configPath, "-validate"}, nil, &stdout, &stderr))
}

func TestRunErrors(t *testing.T) {
	t.Setenv("GREMLINQL_CONFIG", "")
	var stdout, stderr bytes.Buffer

	assert.Error(t, run([]string{"-fixture", filepath.Join(t.TempDir(), "missing.json")}, strings.NewReader("{}"), &stdout, &stderr))
	assert.Error(t, run([]string{"extra"}, nil, &stdout, &stderr))
	assert.Error(t, run([]string{"-unknown"}, nil, &stdout, &stderr))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(gqlgremlin.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(gqlgremlin.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}
