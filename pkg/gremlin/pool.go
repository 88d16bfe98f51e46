package gremlin

import (
	"context"
	"errors"
	"sync"

	"nhooyr.io/websocket"
)

// pool hands out at most size connections, one request at a time per
// connection. Slots start empty and are dialled on first use; a connection
// released as unhealthy is closed and its slot emptied.
type pool struct {
	slots chan *websocket.Conn
	dial  func(ctx context.Context) (*websocket.Conn, error)

	mu     sync.Mutex
	closed bool
	open   map[*websocket.Conn]struct{}
}

func newPool(size int, dial func(ctx context.Context) (*websocket.Conn, error)) *pool {
	p := &pool{
		slots: make(chan *websocket.Conn, size),
		dial:  dial,
		open:  make(map[*websocket.Conn]struct{}),
	}
	for i := 0; i < size; i++ {
		p.slots <- nil
	}
	return p
}

func (p *pool) acquire(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	select {
	case conn = <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.slots <- conn
		return nil, ErrClosed
	}
	if conn != nil {
		return conn, nil
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.slots <- nil
		return nil, err
	}
	p.mu.Lock()
	p.open[conn] = struct{}{}
	p.mu.Unlock()
	return conn, nil
}

func (p *pool) release(conn *websocket.Conn, healthy bool) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if healthy && !closed {
		p.slots <- conn
		return
	}
	p.discard(conn)
	p.slots <- nil
}

func (p *pool) discard(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.open, conn)
	p.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (p *pool) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*websocket.Conn, 0, len(p.open))
	for conn := range p.open {
		conns = append(conns, conn)
	}
	p.open = make(map[*websocket.Conn]struct{})
	p.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
