package gqlgremlin

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/llehouerou/go-graphql-gremlin/pkg/gremlin"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Environment variables overriding the gremlin section.
const (
	EnvGremlinHost     = "GREMLIN_HOST"
	EnvGremlinPort     = "GREMLIN_PORT"
	EnvGremlinUsername = "GREMLIN_USERNAME"
	EnvGremlinPassword = "GREMLIN_PASSWORD"
)

// Config is the configuration of a handler and of its Gremlin connection.
type Config struct {
	Gremlin    GremlinConfig    `yaml:"gremlin"`
	Filter     FilterConfig     `yaml:"filter"`
	Pagination PaginationConfig `yaml:"pagination"`
	Batch      BatchConfig      `yaml:"batch"`
	Log        LogConfig        `yaml:"log"`
}

// GremlinConfig locates the Gremlin Server (or Neptune cluster endpoint).
type GremlinConfig struct {
	// Scheme is ws or wss.
	Scheme          string `yaml:"scheme"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Path            string `yaml:"path"`
	TraversalSource string `yaml:"traversal_source"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	PoolSize        int    `yaml:"pool_size"`
	ReadLimit       int64  `yaml:"read_limit"`
}

type FilterConfig struct {
	// MaxDepth bounds how many relationship filters may be nested in one
	// filter input.
	MaxDepth int `yaml:"max_depth"`
}

type PaginationConfig struct {
	DefaultPerPage int64 `yaml:"default_per_page"`
}

type BatchConfig struct {
	// Concurrency bounds how many items of a batch run at the same time.
	Concurrency int `yaml:"concurrency"`
}

type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration for a local Gremlin Server.
func DefaultConfig() Config {
	return Config{
		Gremlin: GremlinConfig{
			Scheme:          "ws",
			Host:            "localhost",
			Port:            8182,
			Path:            "/gremlin",
			TraversalSource: traversal.DefaultSourceName,
			PoolSize:        gremlin.DefaultPoolSize,
			ReadLimit:       gremlin.DefaultReadLimit,
		},
		Filter:     FilterConfig{MaxDepth: types.DefaultMaxFilterDepth},
		Pagination: PaginationConfig{DefaultPerPage: types.DefaultPerPage},
		Batch:      BatchConfig{Concurrency: DefaultBatchConcurrency},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads a YAML configuration file over the defaults, using
// strict parsing, then applies the environment overrides. An empty path
// yields the defaults with the overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer func() { _ = file.Close() }()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvGremlinHost); ok && v != "" {
		c.Gremlin.Host = v
	}
	if v, ok := lookup(EnvGremlinPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvGremlinPort, err)
		}
		c.Gremlin.Port = port
	}
	if v, ok := lookup(EnvGremlinUsername); ok {
		c.Gremlin.Username = v
	}
	if v, ok := lookup(EnvGremlinPassword); ok {
		c.Gremlin.Password = v
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Gremlin.Scheme {
	case "ws", "wss":
	default:
		errs = append(errs, fmt.Errorf("gremlin.scheme must be ws or wss, got %q", c.Gremlin.Scheme))
	}
	if c.Gremlin.Host == "" {
		errs = append(errs, errors.New("gremlin.host is required"))
	}
	if c.Gremlin.Port < 1 || c.Gremlin.Port > 65535 {
		errs = append(errs, fmt.Errorf("gremlin.port must be in [1, 65535], got %d", c.Gremlin.Port))
	}
	if c.Gremlin.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("gremlin.pool_size must be at least 1, got %d", c.Gremlin.PoolSize))
	}
	if c.Filter.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("filter.max_depth must be at least 1, got %d", c.Filter.MaxDepth))
	}
	if c.Pagination.DefaultPerPage < 1 {
		errs = append(errs, fmt.Errorf("pagination.default_per_page must be at least 1, got %d", c.Pagination.DefaultPerPage))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// URL returns the websocket URL of the server, e.g.
// wss://cluster.example.com:8182/gremlin.
func (g GremlinConfig) URL() string {
	path := g.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: g.Scheme,
		Host:   net.JoinHostPort(g.Host, strconv.Itoa(g.Port)),
		Path:   path,
	}
	return u.String()
}

// NewClient creates a Gremlin client for the configured server.
func (g GremlinConfig) NewClient() *gremlin.Client {
	client := gremlin.NewClient(g.URL()).
		WithTraversalSource(g.TraversalSource).
		WithPoolSize(g.PoolSize)
	if g.ReadLimit > 0 {
		client = client.WithReadLimit(g.ReadLimit)
	}
	if g.Username != "" {
		client = client.WithCredentials(g.Username, g.Password)
	}
	return client
}
