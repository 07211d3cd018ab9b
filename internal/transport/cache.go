package transport

import (
	"context"
	"net"
	"sync"
	"time"
)

// Dialer lets tests stub the network out.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func netDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
}

// ConnCache keeps one persistent connection per target. Reuse is the fast
// path; a missing connection is dialed under the entry lock, so two callers
// racing for the same target never dial twice. The entry lock is also held
// across the caller's write, keeping concurrent orders from interleaving
// bytes on a shared connection.
type ConnCache struct {
	dial Dialer

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu   sync.Mutex
	conn net.Conn
}

func NewConnCache(dial Dialer) *ConnCache {
	return &ConnCache{dial: dial, entries: make(map[string]*cacheEntry)}
}

func (c *ConnCache) entry(addr string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[addr]
	if !ok {
		e = &cacheEntry{}
		c.entries[addr] = e
	}
	return e
}

// Do runs fn against the cached connection for addr, connecting first if
// needed. Any error drops the connection so the next call starts clean.
func (c *ConnCache) Do(ctx context.Context, addr string, fn func(net.Conn) error) error {
	e := c.entry(addr)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		conn, err := c.dial(ctx, addr)
		if err != nil {
			return err
		}
		e.conn = conn
	}

	if err := fn(e.conn); err != nil {
		_ = e.conn.Close()
		e.conn = nil
		return err
	}
	return nil
}

// Close drops every cached connection.
func (c *ConnCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.mu.Lock()
		if e.conn != nil {
			_ = e.conn.Close()
			e.conn = nil
		}
		e.mu.Unlock()
	}
}
