package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/wschat/pkg/protocol"
)

// GobwasDialer dials with github.com/gobwas/ws over a raw net.Conn.
type GobwasDialer struct{}

// Dial implements Dialer.
func (GobwasDialer) Dial(ctx context.Context, address string) (Conn, error) {
	conn, br, _, err := ws.Dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	// Bytes the server sent right after the handshake are left in br.
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	c := &gobwasConn{conn: conn}
	control := wsutil.ControlFrameHandler(conn, ws.StateClientSide)
	c.reader = &wsutil.Reader{
		Source:    src,
		State:     ws.StateClientSide,
		CheckUTF8: true,
		OnIntermediate: func(h ws.Header, r io.Reader) error {
			c.wmu.Lock()
			defer c.wmu.Unlock()
			return control(h, r)
		},
	}
	return c, nil
}

type gobwasConn struct {
	conn   net.Conn
	reader *wsutil.Reader
	wmu    sync.Mutex // serializes frame writes, including control replies
}

func (c *gobwasConn) ReadFrame(_ context.Context) (protocol.Frame, error) {
	for {
		h, err := c.reader.NextFrame()
		if err != nil {
			return protocol.Frame{}, closeError(err)
		}
		if h.OpCode.IsControl() {
			if err := c.reader.OnIntermediate(h, c.reader); err != nil {
				return protocol.Frame{}, closeError(err)
			}
			continue
		}
		if h.OpCode != ws.OpText && h.OpCode != ws.OpBinary {
			if err := c.reader.Discard(); err != nil {
				return protocol.Frame{}, closeError(err)
			}
			continue
		}

		data, err := io.ReadAll(c.reader)
		if err != nil {
			return protocol.Frame{}, closeError(err)
		}
		return protocol.Frame{Body: data, Binary: h.OpCode == ws.OpBinary}, nil
	}
}

func (c *gobwasConn) WriteText(ctx context.Context, text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientText(c.conn, []byte(text))
}

func (c *gobwasConn) Close() error {
	c.wmu.Lock()
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
	c.wmu.Unlock()
	return c.conn.Close()
}

// closeError maps a normal or going-away close to io.EOF.
func closeError(err error) error {
	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		switch ce.Code {
		case ws.StatusNormalClosure, ws.StatusGoingAway, ws.StatusNoStatusRcvd:
			return io.EOF
		}
	}
	return err
}
