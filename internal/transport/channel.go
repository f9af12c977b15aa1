// Package transport owns the single WebSocket connection of a chat session.
//
// A Channel moves through connecting → open → closed and never goes back.
// Inbound frames are delivered to a Handler on one dispatch goroutine, so
// handlers run strictly in arrival order without overlapping.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrConnectionUnavailable is logged when a send is attempted while the channel is not open.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrConnectionLost wraps the error that killed an open or connecting channel.
	ErrConnectionLost = errors.New("connection lost")
)

// Channel is one WebSocket connection to a chat endpoint.
type Channel struct {
	id      string
	dialer  Dialer
	handler Handler
	log     zerolog.Logger

	state atomic.Int32

	mu      sync.Mutex
	opened  bool
	conn    Conn
	ctx     context.Context
	cancel  context.CancelFunc
	failure error

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a Channel in StateConnecting. Nothing is dialed until Open.
func New(dialer Dialer, handler Handler) *Channel {
	id := uuid.NewString()
	return &Channel{
		id:      id,
		dialer:  dialer,
		handler: handler,
		log:     log.With().Str("session", id).Logger(),
		done:    make(chan struct{}),
	}
}

// ID returns the session ID used in log lines.
func (c *Channel) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Done is closed once the channel reaches StateClosed and OnClose has returned.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Open starts connecting to address and returns immediately. Failures are
// reported through Handler.OnError and Handler.OnClose. Only the first call
// has any effect.
func (c *Channel) Open(ctx context.Context, address string) {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		c.log.Debug().Msg("[transport] open called twice")
		return
	}
	c.opened = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(runCtx, address)
}

// Send transmits text unmodified as one text frame. It reports whether the
// frame was written; when the channel is not open the text is dropped.
func (c *Channel) Send(text string) bool {
	if st := c.State(); st != StateOpen {
		c.log.Debug().Err(ErrConnectionUnavailable).Stringer("state", st).Msg("[transport] dropping outgoing message")
		return false
	}

	c.mu.Lock()
	conn, ctx := c.conn, c.ctx
	c.mu.Unlock()

	if err := conn.WriteText(ctx, text); err != nil {
		c.mu.Lock()
		if c.failure == nil {
			c.failure = fmt.Errorf("%w: write: %w", ErrConnectionLost, err)
		}
		c.mu.Unlock()
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed))
		_ = conn.Close()
		return false
	}
	return true
}

// Close closes the channel with a normal closure and waits for the dispatch
// goroutine to exit. It must not be called from a Handler method.
func (c *Channel) Close() {
	c.closing.Store(true)

	c.mu.Lock()
	if !c.opened {
		c.opened = true
		c.mu.Unlock()
		c.terminate(nil)
		return
	}
	conn, cancel := c.conn, c.cancel
	c.mu.Unlock()
	if cancel == nil {
		// Closed before Open; terminate already ran.
		return
	}

	c.state.Store(int32(StateClosed))
	if conn != nil {
		_ = conn.Close()
	}
	cancel()
	c.wg.Wait()
}

func (c *Channel) run(ctx context.Context, address string) {
	defer c.wg.Done()

	c.log.Debug().Str("address", address).Msg("[transport] dialing")
	conn, err := c.dialer.Dial(ctx, address)
	if err != nil {
		c.terminate(c.failureFor(ctx, err))
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		_ = conn.Close()
		c.terminate(nil)
		return
	}
	c.log.Info().Str("address", address).Msg("[transport] connected")
	c.handler.OnOpen()

	for {
		frame, err := conn.ReadFrame(ctx)
		if err != nil {
			c.terminate(c.failureFor(ctx, err))
			return
		}
		c.handler.OnMessage(frame)
	}
}

// failureFor classifies a dial or read error. A normal closure by the peer and
// cancellation of the Open context both end the channel without an error.
func (c *Channel) failureFor(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConnectionLost, err)
}

// terminate moves the channel to StateClosed and fires the terminal events once.
func (c *Channel) terminate(err error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))

		c.mu.Lock()
		if c.failure != nil {
			err = c.failure
		}
		c.mu.Unlock()

		if err != nil && !c.closing.Load() {
			c.log.Warn().Err(err).Msg("[transport] connection lost")
			c.handler.OnError(err)
		}
		c.log.Info().Msg("[transport] closed")
		c.handler.OnClose()
		close(c.done)
	})
}
