package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/omochice/wschat/pkg/protocol"
	"nhooyr.io/websocket"
)

// NhooyrDialer dials with nhooyr.io/websocket.
type NhooyrDialer struct {
	// ReadLimit overrides the library's default maximum message size when positive.
	ReadLimit int64
}

// Dial implements Dialer.
func (d NhooyrDialer) Dial(ctx context.Context, address string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &nhooyrConn{conn: conn}, nil
}

type nhooyrConn struct {
	conn *websocket.Conn
}

func (c *nhooyrConn) ReadFrame(ctx context.Context) (protocol.Frame, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return protocol.Frame{}, io.EOF
		}
		return protocol.Frame{}, err
	}
	return protocol.Frame{Body: data, Binary: typ == websocket.MessageBinary}, nil
}

func (c *nhooyrConn) WriteText(ctx context.Context, text string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (c *nhooyrConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
