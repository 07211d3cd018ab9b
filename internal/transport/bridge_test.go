package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge answers the bridge wire protocol on the server end of a pipe.
func fakeBridge(t *testing.T, status string, got chan<- bridgeHeader) Dialer {
	t.Helper()
	return func(context.Context, string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			r := bufio.NewReader(server)
			line, err := r.ReadBytes('\n')
			if err != nil {
				return
			}
			var h bridgeHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return
			}
			if _, err := io.ReadFull(r, make([]byte, h.Size)); err != nil {
				return
			}
			got <- h
			_, _ = server.Write([]byte(status + "\n"))
		}()
		return client, nil
	}
}

func newBridgeUnderTest(dial Dialer) *BridgeTransport {
	return &BridgeTransport{
		addr:         "127.0.0.1:9323",
		cache:        NewConnCache(dial),
		printTimeout: 2 * time.Second,
	}
}

func TestBridgeSendsHeaderAndPayload(t *testing.T) {
	got := make(chan bridgeHeader, 1)
	bt := newBridgeUnderTest(fakeBridge(t, "ok", got))
	defer bt.Close()

	req := testRequest()
	require.NoError(t, bt.Attempt(context.Background(), req))

	h := <-got
	assert.Equal(t, "dev-1", h.DeviceID)
	assert.Equal(t, "o-1", h.OrderID)
	assert.Equal(t, len(req.Payload), h.Size)
}

func TestBridgeRejectionIsAnError(t *testing.T) {
	got := make(chan bridgeHeader, 1)
	bt := newBridgeUnderTest(fakeBridge(t, "err printer jam", got))
	defer bt.Close()

	err := bt.Attempt(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer jam")
}

func TestBridgeUnconfiguredIsUnavailable(t *testing.T) {
	bt := &BridgeTransport{cache: NewConnCache(nil)}
	err := bt.Attempt(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNetworkUnaddressedDeviceIsUnavailable(t *testing.T) {
	nt := &NetworkTransport{printTimeout: time.Second}
	req := testRequest()
	req.Device.Address = ""
	err := nt.Attempt(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnavailable)
}
