package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeDialer(dials *atomic.Int32) Dialer {
	return func(context.Context, string) (net.Conn, error) {
		dials.Add(1)
		client, server := net.Pipe()
		// Drain the server side so writes never block.
		go func() {
			buf := make([]byte, 1024)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return client, nil
	}
}

func TestCacheReusesConnection(t *testing.T) {
	var dials atomic.Int32
	cache := NewConnCache(pipeDialer(&dials))
	defer cache.Close()

	for i := 0; i < 3; i++ {
		err := cache.Do(context.Background(), "printer-a", func(c net.Conn) error {
			_, err := c.Write([]byte("x"))
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), dials.Load())
}

func TestCacheSeparateTargetsSeparateConns(t *testing.T) {
	var dials atomic.Int32
	cache := NewConnCache(pipeDialer(&dials))
	defer cache.Close()

	require.NoError(t, cache.Do(context.Background(), "printer-a", func(net.Conn) error { return nil }))
	require.NoError(t, cache.Do(context.Background(), "printer-b", func(net.Conn) error { return nil }))
	assert.Equal(t, int32(2), dials.Load())
}

func TestCacheNoDuplicateConcurrentConnect(t *testing.T) {
	var dials atomic.Int32
	slowDialer := func(ctx context.Context, addr string) (net.Conn, error) {
		dials.Add(1)
		time.Sleep(20 * time.Millisecond)
		return pipeDialer(new(atomic.Int32))(ctx, addr)
	}
	cache := NewConnCache(slowDialer)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cache.Do(context.Background(), "printer-a", func(net.Conn) error { return nil })
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), dials.Load())
}

func TestCacheDropsConnectionOnError(t *testing.T) {
	var dials atomic.Int32
	cache := NewConnCache(pipeDialer(&dials))
	defer cache.Close()

	boom := errors.New("write failed")
	err := cache.Do(context.Background(), "printer-a", func(net.Conn) error { return boom })
	assert.ErrorIs(t, err, boom)

	// Next call redials instead of reusing the poisoned connection.
	require.NoError(t, cache.Do(context.Background(), "printer-a", func(net.Conn) error { return nil }))
	assert.Equal(t, int32(2), dials.Load())
}

func TestCacheDialErrorPropagates(t *testing.T) {
	refused := errors.New("connection refused")
	cache := NewConnCache(func(context.Context, string) (net.Conn, error) { return nil, refused })
	err := cache.Do(context.Background(), "printer-a", func(net.Conn) error { return nil })
	assert.ErrorIs(t, err, refused)
}
