// Command gremlinql resolves gateway invocations of the social example
// schema, one JSON payload (or an array of payloads) per run, and prints the
// envelopes on stdout.
//
//	echo '{"type_name":"Query","field_name":"userCount"}' | gremlinql -config config.yaml
//	gremlinql -fixture testdata/social.json -payload invocations.json
//
// With -fixture the graph is an in-memory graph loaded from a JSON fixture;
// otherwise it is the Gremlin Server of the configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	gqlgremlin "github.com/llehouerou/go-graphql-gremlin"
	"github.com/llehouerou/go-graphql-gremlin/examples/social"
	"github.com/llehouerou/go-graphql-gremlin/pkg/gremlin"
	"github.com/llehouerou/go-graphql-gremlin/pkg/memgraph"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
)

type options struct {
	configPath  string
	payloadPath string
	fixturePath string
	validate    bool
	metrics     bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("gremlinql", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", os.Getenv("GREMLINQL_CONFIG"),
		"Path to the YAML configuration file (env: GREMLINQL_CONFIG)")
	fs.StringVar(&opts.payloadPath, "payload", "-",
		"Path to the JSON payload, - for stdin")
	fs.StringVar(&opts.fixturePath, "fixture", "",
		"Serve an in-memory graph loaded from this JSON fixture instead of the Gremlin Server")
	fs.BoolVar(&opts.validate, "validate", false, "Validate the configuration and exit")
	fs.BoolVar(&opts.metrics, "metrics", false, "Log the resolver metrics once the payload is resolved")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "gremlinql: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := gqlgremlin.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.validate {
		_, err := fmt.Fprintln(stdout, "configuration is valid")
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, closeExec, err := newExecutor(cfg, opts.fixturePath, logger)
	if err != nil {
		return err
	}
	defer closeExec()

	reg := prometheus.NewRegistry()
	h := gqlgremlin.NewHandler(exec,
		gqlgremlin.WithConfig(cfg),
		gqlgremlin.WithLogger(logger),
		gqlgremlin.WithRegisterer(reg),
	)
	if err := social.Register(h); err != nil {
		return err
	}

	payload, err := readPayload(opts.payloadPath, stdin)
	if err != nil {
		return err
	}
	out, err := h.HandleJSON(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := fmt.Fprintln(stdout, string(out)); err != nil {
		return err
	}

	if opts.metrics {
		return logMetrics(reg, logger)
	}
	return nil
}

func logMetrics(reg *prometheus.Registry, logger zerolog.Logger) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if family.GetName() != "gqlgremlin_resolver_invocations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			event := logger.Info()
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			event.Float64("count", m.GetCounter().GetValue()).Msg("resolver invocations")
		}
	}
	return nil
}

func newExecutor(cfg gqlgremlin.Config, fixturePath string, logger zerolog.Logger) (traversal.Executor, func(), error) {
	if fixturePath != "" {
		file, err := os.Open(fixturePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open fixture: %w", err)
		}
		defer func() { _ = file.Close() }()

		g := memgraph.New()
		if err := g.Load(file); err != nil {
			return nil, nil, fmt.Errorf("failed to load fixture %s: %w", fixturePath, err)
		}
		logger.Debug().
			Str("fixture", fixturePath).
			Int("vertices", g.VertexCount()).
			Int("edges", g.EdgeCount()).
			Msg("loaded in-memory graph")
		return g, func() {}, nil
	}

	client := cfg.Gremlin.NewClient().WithLogger(logger.With().Str("component", "gremlin").Logger())
	logger.Debug().Str("url", cfg.Gremlin.URL()).Msg("using gremlin server")
	return client, func() {
		if err := client.Close(); err != nil && !errors.Is(err, gremlin.ErrClosed) {
			logger.Warn().Err(err).Msg("failed to close gremlin client")
		}
	}, nil
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		payload, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		return payload, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return payload, nil
}
