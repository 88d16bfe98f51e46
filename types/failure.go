package types

import (
	"errors"
	"fmt"
)

// Error types reported in the error envelope. The set is open: resolvers may
// report any string, these are the ones the library itself produces.
const (
	ErrorTypeBadRequest         = "BAD_REQUEST"
	ErrorTypeInvalidFilterField = "INVALID_FILTER_FIELD"
	ErrorTypeNotFound           = "NOT_FOUND"
	ErrorTypeResolverNotFound   = "RESOLVER_NOT_FOUND"
	ErrorTypeInternal           = "INTERNAL_ERROR"
)

// Failure is a domain-level resolver failure. It is reported to the gateway
// as {error: {error_type, error_message, error_data}}.
type Failure struct {
	Type    string         `json:"error_type"`
	Message string         `json:"error_message"`
	Data    map[string]any `json:"error_data"`
}

// NewFailure creates a Failure. A nil data map is replaced by an empty one so
// the envelope never carries a null error_data.
func NewFailure(errorType, message string, data map[string]any) *Failure {
	if data == nil {
		data = map[string]any{}
	}
	return &Failure{
		Type:    errorType,
		Message: message,
		Data:    data,
	}
}

// BadRequest reports invalid arguments or a violated pre-condition.
func BadRequest(format string, args ...any) *Failure {
	return NewFailure(ErrorTypeBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...any) *Failure {
	return NewFailure(ErrorTypeNotFound, fmt.Sprintf(format, args...), nil)
}

// InvalidFilterField reports filter input fields the vertex filter does not
// declare.
func InvalidFilterField(label string, fields []string) *Failure {
	names := make([]any, len(fields))
	for i, f := range fields {
		names[i] = f
	}
	return NewFailure(
		ErrorTypeInvalidFilterField,
		fmt.Sprintf("filter on %s has no field(s) %v", label, fields),
		map[string]any{"label": label, "fields": names},
	)
}

// WithData returns a copy of f with key set in its error data.
func (f *Failure) WithData(key string, value any) *Failure {
	data := make(map[string]any, len(f.Data)+1)
	for k, v := range f.Data {
		data[k] = v
	}
	data[key] = value
	return &Failure{Type: f.Type, Message: f.Message, Data: data}
}

// Error implements error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

// Extensions exposes the failure to GraphQL servers that copy error
// extensions into the response (graph-gophers/graphql-go does).
func (f *Failure) Extensions() map[string]any {
	return map[string]any{
		"errorType": f.Type,
		"errorData": f.Data,
	}
}

// AsFailure reports whether err is, or wraps, a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
