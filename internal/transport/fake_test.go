package transport_test

import (
	"context"
	"io"
	"sync"

	"github.com/omochice/wschat/internal/transport"
	"github.com/omochice/wschat/pkg/protocol"
)

// blockingDialer never completes a handshake until its context ends.
type blockingDialer struct {
	release chan struct{}
}

func (d *blockingDialer) Dial(ctx context.Context, _ string) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.release:
		return newFakeConn(), nil
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	dials int
	conn  *fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	return d.conn, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// fakeConn delivers frames pushed on inbound and records written text.
type fakeConn struct {
	inbound  chan protocol.Frame
	written  chan string
	writeErr error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan protocol.Frame, 16),
		written: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return protocol.Frame{}, io.EOF
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

func (c *fakeConn) WriteText(_ context.Context, text string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written <- text
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
