// Package gremlin is a Gremlin Server client speaking the WebSocket
// sub-protocol with GraphSON 3.0 bytecode requests.
//
// A Client implements traversal.Executor, so traversals spawned from
// client.Source() run remotely:
//
//	client := gremlin.NewClient("ws://localhost:8182/gremlin")
//	defer client.Close()
//	g := client.Source()
//	names, err := g.V().HasLabel("User").Values("name").ToList(ctx)
package gremlin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/llehouerou/go-graphql-gremlin/pkg/graphson"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

// Gremlin Server response status codes.
const (
	StatusSuccess         = 200
	StatusNoContent       = 204
	StatusPartialContent  = 206
	StatusAuthenticate    = 407
	StatusMalformed       = 498
	StatusInvalidRequest  = 499
	StatusServerError     = 500
	StatusScriptEvalError = 597
	StatusTimeout         = 598
	StatusSerialization   = 599
)

const (
	// DefaultTraversalSource is the server-side name of the graph traversal
	// source.
	DefaultTraversalSource = "g"
	// DefaultPoolSize is the number of connections a client keeps open.
	DefaultPoolSize = 4
	// DefaultReadLimit is the maximum size of a single response frame.
	DefaultReadLimit = 16 << 20
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("gremlin: client closed")

// ResponseError is a non-success status returned by the server.
type ResponseError struct {
	RequestID string
	Code      int
	Message   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("gremlin server returned status %d: %s", e.Code, e.Message)
}

// Client is a Gremlin Server client.
//
// # Immutable Pattern
//
// The Client's With* methods return a new Client instance rather than
// modifying the receiver. The returned Client has its own connection pool;
// configure the client once, before use, and Close the instance you keep:
//
//	client := gremlin.NewClient(url).WithCredentials("user", "secret").WithPoolSize(8)
//	defer client.Close()
type Client struct {
	url             string
	traversalSource string
	username        string
	password        string
	poolSize        int
	readLimit       int64
	header          http.Header
	logger          zerolog.Logger
	pool            *pool
}

// NewClient creates a client for the Gremlin Server at url, e.g.
// ws://localhost:8182/gremlin. Connections are opened lazily.
func NewClient(url string) *Client {
	c := &Client{
		url:             url,
		traversalSource: DefaultTraversalSource,
		poolSize:        DefaultPoolSize,
		readLimit:       DefaultReadLimit,
		logger:          zerolog.Nop(),
	}
	c.pool = newPool(c.poolSize, c.dial)
	return c
}

// clone creates a copy of the Client with all settings preserved and a
// fresh connection pool.
func (c *Client) clone() *Client {
	clone := &Client{
		url:             c.url,
		traversalSource: c.traversalSource,
		username:        c.username,
		password:        c.password,
		poolSize:        c.poolSize,
		readLimit:       c.readLimit,
		header:          c.header.Clone(),
		logger:          c.logger,
	}
	return clone
}

func (c *Client) withPool() *Client {
	c.pool = newPool(c.poolSize, c.dial)
	return c
}

// WithTraversalSource returns a new Client that binds traversals to the
// named server-side traversal source instead of "g".
func (c *Client) WithTraversalSource(name string) *Client {
	clone := c.clone()
	clone.traversalSource = name
	return clone.withPool()
}

// WithCredentials returns a new Client that answers authentication
// challenges with SASL PLAIN using the given credentials.
func (c *Client) WithCredentials(username, password string) *Client {
	clone := c.clone()
	clone.username = username
	clone.password = password
	return clone.withPool()
}

// WithPoolSize returns a new Client keeping at most n connections open.
// Values below 1 are treated as 1.
func (c *Client) WithPoolSize(n int) *Client {
	clone := c.clone()
	if n < 1 {
		n = 1
	}
	clone.poolSize = n
	return clone.withPool()
}

// WithReadLimit returns a new Client accepting response frames up to n
// bytes.
func (c *Client) WithReadLimit(n int64) *Client {
	clone := c.clone()
	clone.readLimit = n
	return clone.withPool()
}

// WithHeader returns a new Client sending header with the WebSocket
// handshake.
func (c *Client) WithHeader(header http.Header) *Client {
	clone := c.clone()
	clone.header = header.Clone()
	return clone.withPool()
}

// WithLogger returns a new Client logging requests to logger at debug
// level.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	clone := c.clone()
	clone.logger = logger
	return clone.withPool()
}

// Source returns a traversal source whose traversals run on this client.
func (c *Client) Source() traversal.Source {
	return traversal.NewSource(traversal.DefaultSourceName, c)
}

// Close closes every pooled connection. Submit fails with ErrClosed
// afterwards.
func (c *Client) Close() error {
	return c.pool.close()
}

type request struct {
	RequestID any            `json:"requestId"`
	Op        string         `json:"op"`
	Processor string         `json:"processor"`
	Args      map[string]any `json:"args"`
}

// Submit implements traversal.Executor. It sends t as bytecode and collects
// every partial response. Traversers are expanded by their bulk.
func (c *Client) Submit(ctx context.Context, t traversal.Traversal) ([]any, error) {
	bytecode, err := graphson.EncodeBytecode(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode traversal: %w", err)
	}

	id := uuid.New()
	encodedID, err := graphson.Encode(id)
	if err != nil {
		return nil, err
	}
	req := request{
		RequestID: encodedID,
		Op:        "bytecode",
		Processor: "traversal",
		Args: map[string]any{
			"gremlin": bytecode,
			"aliases": map[string]any{t.SourceName(): c.traversalSource},
		},
	}

	c.logger.Debug().
		Str("request_id", id.String()).
		Stringer("traversal", t).
		Msg("submitting traversal")

	conn, err := c.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	results, err := c.roundTrip(ctx, conn, id, req)
	c.pool.release(conn, err == nil || isResponseError(err))
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", id.String()).Msg("traversal failed")
		return nil, err
	}
	return results, nil
}

func (c *Client) roundTrip(ctx context.Context, conn *websocket.Conn, id uuid.UUID, req request) ([]any, error) {
	if err := c.write(ctx, conn, req); err != nil {
		return nil, err
	}

	var results []any
	for {
		resp, err := c.read(ctx, conn)
		if err != nil {
			return nil, err
		}

		switch resp.Status.Code {
		case StatusSuccess, StatusPartialContent:
			results = append(results, expand(resp.Result.Data)...)
			if resp.Status.Code == StatusSuccess {
				return results, nil
			}
		case StatusNoContent:
			return results, nil
		case StatusAuthenticate:
			if err := c.authenticate(ctx, conn, id); err != nil {
				return nil, err
			}
		default:
			return nil, &ResponseError{
				RequestID: id.String(),
				Code:      resp.Status.Code,
				Message:   resp.Status.Message,
			}
		}
	}
}

// authenticate answers a 407 challenge with SASL PLAIN.
func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn, id uuid.UUID) error {
	if c.username == "" {
		return &ResponseError{
			RequestID: id.String(),
			Code:      StatusAuthenticate,
			Message:   "server requires authentication but no credentials are configured",
		}
	}
	encodedID, err := graphson.Encode(id)
	if err != nil {
		return err
	}
	sasl := base64.StdEncoding.EncodeToString([]byte("\x00" + c.username + "\x00" + c.password))
	return c.write(ctx, conn, request{
		RequestID: encodedID,
		Op:        "authentication",
		Processor: "traversal",
		Args: map[string]any{
			"saslMechanism": "PLAIN",
			"sasl":          sasl,
		},
	})
}

// write sends req as a binary frame: one byte holding the length of the
// mime type, the mime type, then the JSON body.
func (c *Client) write(ctx context.Context, conn *websocket.Conn, req request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	frame := make([]byte, 0, 1+len(graphson.MimeType)+len(body))
	frame = append(frame, byte(len(graphson.MimeType)))
	frame = append(frame, graphson.MimeType...)
	frame = append(frame, body...)
	if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

type response struct {
	Status struct {
		Code    int
		Message string
	}
	Result struct {
		Data any
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) (response, error) {
	var resp response
	_, data, err := conn.Read(ctx)
	if err != nil {
		return resp, fmt.Errorf("failed to read response: %w", err)
	}
	decoded, err := graphson.Unmarshal(data)
	if err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return resp, fmt.Errorf("failed to decode response: expected object, got %T", decoded)
	}

	status, _ := obj["status"].(map[string]any)
	code, ok := status["code"].(int64)
	if !ok {
		return resp, fmt.Errorf("failed to decode response: missing status code")
	}
	resp.Status.Code = int(code)
	resp.Status.Message, _ = status["message"].(string)
	if result, ok := obj["result"].(map[string]any); ok {
		resp.Result.Data = result["data"]
	}
	return resp, nil
}

// expand flattens the result data of one response and repeats every
// traverser bulk times.
func expand(data any) []any {
	var items []any
	switch v := data.(type) {
	case nil:
		return nil
	case []any:
		items = v
	default:
		items = []any{v}
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		tr, ok := item.(graphson.Traverser)
		if !ok {
			out = append(out, item)
			continue
		}
		for i := int64(0); i < tr.Bulk; i++ {
			out = append(out, tr.Value)
		}
	}
	return out
}

func isResponseError(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPHeader: c.header})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	conn.SetReadLimit(c.readLimit)
	c.logger.Debug().Str("url", c.url).Msg("connected to gremlin server")
	return conn, nil
}
