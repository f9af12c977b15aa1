// Package chat provides the relay hub shared by every server-side session.
package chat

import (
	"context"

	"github.com/omochice/wschat/pkg/protocol"
)

// Conn abstracts one server-side WebSocket session.
type Conn interface {
	// Read reads a single data frame.
	// Returns io.EOF when the peer closed the connection.
	Read(ctx context.Context) (protocol.Frame, error)

	// Write sends a single data frame.
	Write(ctx context.Context, frame protocol.Frame) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
