package server

import (
	"context"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/wschat/pkg/protocol"
)

const closeGracePeriod = time.Second

// Conn adapts a gorilla websocket connection to chat.Conn.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string
}

// NewConn wraps conn with the remote address used in logs.
func NewConn(conn *websocket.Conn, remoteAddr string) *Conn {
	return &Conn{conn: conn, remoteAddr: remoteAddr}
}

// Read implements chat.Conn. Control frames are handled by gorilla.
func (c *Conn) Read(_ context.Context) (protocol.Frame, error) {
	typ, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return protocol.Frame{}, io.EOF
		}
		return protocol.Frame{}, err
	}
	return protocol.Frame{Body: data, Binary: typ == websocket.BinaryMessage}, nil
}

// Write implements chat.Conn. Only one goroutine may write at a time.
func (c *Conn) Write(ctx context.Context, frame protocol.Frame) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	typ := websocket.TextMessage
	if frame.Binary {
		typ = websocket.BinaryMessage
	}
	return c.conn.WriteMessage(typ, frame.Body)
}

// Close implements chat.Conn. It sends a normal close frame before closing
// the socket; WriteControl is safe alongside a concurrent writer.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}
