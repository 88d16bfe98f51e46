package traversal

import "context"

// DefaultSourceName is the conventional name of the graph traversal source.
const DefaultSourceName = "g"

// Executor runs a traversal against a graph and returns its results.
//
// Implementations must be safe for concurrent use. Timeouts and retries are
// the executor's business; callers only supply a context.
type Executor interface {
	Submit(ctx context.Context, t Traversal) ([]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t Traversal) ([]any, error)

// Submit implements Executor.
func (f ExecutorFunc) Submit(ctx context.Context, t Traversal) ([]any, error) {
	return f(ctx, t)
}

// Source spawns traversals bound to an executor. It plays the role of the
// Gremlin "g".
type Source struct {
	name string
	exec Executor
}

// NewSource returns a source named name (DefaultSourceName when empty)
// whose traversals run on exec.
func NewSource(name string, exec Executor) Source {
	if name == "" {
		name = DefaultSourceName
	}
	return Source{name: name, exec: exec}
}

// Name returns the traversal source name.
func (s Source) Name() string {
	return s.name
}

func (s Source) spawn() Traversal {
	return Traversal{source: s.name, exec: s.exec}
}

// V starts a traversal from the vertices with the given ids, or from every
// vertex when no id is given.
func (s Source) V(ids ...any) Traversal {
	return s.spawn().V(ids...)
}

// AddV starts a traversal that adds a vertex with the given label.
func (s Source) AddV(label string) Traversal {
	return s.spawn().AddV(label)
}

// Bind returns a copy of t bound to this source, e.g. to execute a
// traversal assembled from anonymous fragments.
func (s Source) Bind(t Traversal) Traversal {
	t.source = s.name
	t.exec = s.exec
	return t
}
