// Package gqlgremlin resolves GraphQL fields against a Gremlin graph.
//
// Resolvers are registered on a Handler under their (type, field) pair. Each
// resolver body returns a traversal; the handler executes it, shapes the
// result according to the resolver kind and reports it to the gateway as an
// envelope, {data: ...} or {error: {error_type, error_message, error_data}}:
//
//	h := gqlgremlin.NewHandler(client, gqlgremlin.WithLogger(logger))
//	err := h.Register(
//		gqlgremlin.VertexListField("Query", "users", userFilter,
//			func(ctx context.Context, g traversal.Source, in *gqlgremlin.Input) (traversal.Traversal, error) {
//				return g.V(), nil
//			}),
//	)
//	envelope := h.Handle(ctx, payload)
package gqlgremlin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// DefaultBatchConcurrency bounds the items of a batch resolved at the same
// time when no configuration says otherwise.
const DefaultBatchConcurrency = 8

type resolverKey struct {
	typeName  string
	fieldName string
}

// Handler dispatches invocations to registered resolvers.
//
// A Handler is safe for concurrent use. Resolvers are usually registered at
// initialization time, before the first invocation.
type Handler struct {
	source         traversal.Source
	logger         zerolog.Logger
	registerer     prometheus.Registerer
	metrics        *metrics
	concurrency    int
	maxDepth       int
	defaultPerPage int64

	mu        sync.RWMutex
	resolvers map[resolverKey]*Resolver
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the invocation logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithRegisterer registers the handler metrics on reg. Handlers sharing a
// registerer share their collectors.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(h *Handler) { h.registerer = reg }
}

// WithBatchConcurrency bounds how many items of a batch run at the same
// time. Values below 1 run items one at a time.
func WithBatchConcurrency(n int) Option {
	return func(h *Handler) {
		if n < 1 {
			n = 1
		}
		h.concurrency = n
	}
}

// WithMaxFilterDepth bounds relationship nesting in the filter inputs of
// vertex list resolvers whose vertex filter does not set its own limit.
func WithMaxFilterDepth(n int) Option {
	return func(h *Handler) { h.maxDepth = n }
}

// WithDefaultPerPage sets the page size used when a pagination argument
// omits per_page.
func WithDefaultPerPage(n int64) Option {
	return func(h *Handler) { h.defaultPerPage = n }
}

// WithConfig applies the filter, pagination and batch sections of cfg.
func WithConfig(cfg Config) Option {
	return func(h *Handler) {
		WithMaxFilterDepth(cfg.Filter.MaxDepth)(h)
		WithDefaultPerPage(cfg.Pagination.DefaultPerPage)(h)
		WithBatchConcurrency(cfg.Batch.Concurrency)(h)
	}
}

// NewHandler creates a handler whose resolvers run their traversals on
// exec.
func NewHandler(exec traversal.Executor, opts ...Option) *Handler {
	h := &Handler{
		source:         traversal.NewSource(traversal.DefaultSourceName, exec),
		logger:         zerolog.Nop(),
		concurrency:    DefaultBatchConcurrency,
		maxDepth:       types.DefaultMaxFilterDepth,
		defaultPerPage: types.DefaultPerPage,
		resolvers:      map[resolverKey]*Resolver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	m, err := newMetrics(h.registerer)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to register metrics, keeping them unregistered")
		m, _ = newMetrics(nil)
	}
	h.metrics = m
	return h
}

// Register adds resolvers. Registering two resolvers for the same (type,
// field) pair is an error; nothing is registered then.
func (h *Handler) Register(resolvers ...*Resolver) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := make(map[resolverKey]bool, len(resolvers))
	for _, r := range resolvers {
		if r == nil || r.body == nil {
			return fmt.Errorf("failed to register resolver: missing body")
		}
		key := resolverKey{r.typeName, r.fieldName}
		if _, dup := h.resolvers[key]; dup || pending[key] {
			return fmt.Errorf("failed to register resolver: %s.%s is already registered", r.typeName, r.fieldName)
		}
		pending[key] = true
	}
	for _, r := range resolvers {
		h.resolvers[resolverKey{r.typeName, r.fieldName}] = r
	}
	return nil
}

// Resolver returns the resolver registered for (typeName, fieldName).
func (h *Handler) Resolver(typeName, fieldName string) (*Resolver, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.resolvers[resolverKey{typeName, fieldName}]
	return r, ok
}

// Handle resolves a single invocation. It always returns a well-formed
// envelope: unknown fields yield RESOLVER_NOT_FOUND, errors that are not
// domain failures (graph errors, panics, cancellation) INTERNAL_ERROR.
//
// Mutations a resolver committed before failing are not rolled back.
func (h *Handler) Handle(ctx context.Context, p Payload) Envelope {
	start := time.Now()
	in := NewInput(p)

	r, ok := h.Resolver(in.TypeName(), in.FieldName())
	if !ok {
		failure := types.NewFailure(
			types.ErrorTypeResolverNotFound,
			fmt.Sprintf("no resolver for %s.%s", in.TypeName(), in.FieldName()),
			map[string]any{"type_name": in.TypeName(), "field_name": in.FieldName()},
		)
		h.logger.Warn().
			Str("type", in.TypeName()).
			Str("field", in.FieldName()).
			Msg("resolver not found")
		// Unknown names come from the caller and stay out of the label set.
		h.metrics.observe(unknownLabel, unknownLabel, OutcomeResolverNotFound, time.Since(start))
		return Envelope{Error: failure}
	}

	data, err := h.invoke(ctx, r, in)
	elapsed := time.Since(start)
	if err == nil {
		h.logger.Debug().
			Str("type", r.typeName).
			Str("field", r.fieldName).
			Dur("duration", elapsed).
			Msg("resolved")
		h.metrics.observe(r.typeName, r.fieldName, OutcomeSuccess, elapsed)
		return Envelope{Data: data}
	}

	if failure, ok := types.AsFailure(err); ok {
		h.logger.Info().
			Str("type", r.typeName).
			Str("field", r.fieldName).
			Str("error_type", failure.Type).
			Msg(failure.Message)
		h.metrics.observe(r.typeName, r.fieldName, OutcomeFailure, elapsed)
		return Envelope{Error: failure}
	}

	h.logger.Error().
		Err(err).
		Str("type", r.typeName).
		Str("field", r.fieldName).
		Msg("resolver failed")
	h.metrics.observe(r.typeName, r.fieldName, OutcomeInternalError, elapsed)
	return Envelope{Error: types.NewFailure(types.ErrorTypeInternal, err.Error(), nil)}
}

func (h *Handler) invoke(ctx context.Context, r *Resolver, in *Input) (data any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("resolver %s.%s panicked: %v", r.typeName, r.fieldName, rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.resolve(ctx, h, in)
}

// HandleBatch resolves every payload independently and returns the
// envelopes in payload order. A failing item does not affect the others.
func (h *Handler) HandleBatch(ctx context.Context, payloads []Payload) []Envelope {
	envelopes := make([]Envelope, len(payloads))

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, p := range payloads {
		g.Go(func() error {
			envelopes[i] = h.Handle(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return envelopes
}

// HandleJSON resolves a JSON payload, an object or an array of objects, and
// returns the JSON envelope or array of envelopes. A payload that is not
// valid JSON yields a BAD_REQUEST envelope; inside a valid array, each item
// that cannot be decoded yields a BAD_REQUEST envelope at its own position.
func (h *Handler) HandleJSON(ctx context.Context, payload []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return json.Marshal(malformed(err))
		}
		return json.Marshal(h.handleRawBatch(ctx, items))
	}

	var single Payload
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return json.Marshal(malformed(err))
	}
	return json.Marshal(h.Handle(ctx, single))
}

func (h *Handler) handleRawBatch(ctx context.Context, items []json.RawMessage) []Envelope {
	envelopes := make([]Envelope, len(items))
	payloads := make([]Payload, 0, len(items))
	positions := make([]int, 0, len(items))
	for i, raw := range items {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			envelopes[i] = malformed(err)
			continue
		}
		payloads = append(payloads, p)
		positions = append(positions, i)
	}
	for j, env := range h.HandleBatch(ctx, payloads) {
		envelopes[positions[j]] = env
	}
	return envelopes
}

func malformed(err error) Envelope {
	return Envelope{Error: types.BadRequest("malformed payload: %v", err)}
}
