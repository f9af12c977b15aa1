package transport

import (
	"context"
	"fmt"

	"github.com/omochice/wschat/pkg/protocol"
)

// Engine names accepted by NewDialer.
const (
	EngineNhooyr = "nhooyr"
	EngineGobwas = "gobwas"
)

// DefaultReadLimit caps one inbound message for the nhooyr engine. nhooyr
// otherwise stops at 32 KiB, which the relay and the gobwas engine do not.
const DefaultReadLimit int64 = 16 << 20

// Conn is an established WebSocket connection.
type Conn interface {
	// ReadFrame blocks until the next data frame arrives.
	// Returns io.EOF when the peer closed the connection normally.
	ReadFrame(ctx context.Context) (protocol.Frame, error)

	// WriteText sends text as a single text frame.
	WriteText(ctx context.Context, text string) error

	// Close performs a normal closure.
	Close() error
}

// Dialer opens Conns.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// NewDialer returns the Dialer for the named engine.
func NewDialer(engine string) (Dialer, error) {
	switch engine {
	case "", EngineNhooyr:
		return NhooyrDialer{ReadLimit: DefaultReadLimit}, nil
	case EngineGobwas:
		return GobwasDialer{}, nil
	default:
		return nil, fmt.Errorf("unknown websocket engine %q", engine)
	}
}
