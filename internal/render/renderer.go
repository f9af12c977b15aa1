// Package render keeps the visible message list in step with the message stream.
package render

import (
	"sync"

	"github.com/omochice/wschat/pkg/protocol"
)

// Sender forwards outgoing text. *transport.Channel satisfies it.
type Sender interface {
	Send(text string) bool
}

// Renderer owns the input field and the display list of one chat session.
type Renderer struct {
	sender  Sender
	display Display

	mu    sync.Mutex
	input string
}

// New creates a Renderer that sends through sender and appends to display.
func New(sender Sender, display Display) *Renderer {
	return &Renderer{sender: sender, display: display}
}

// SetInput replaces the current input value.
func (r *Renderer) SetInput(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = text
}

// Input returns the current input value.
func (r *Renderer) Input() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.input
}

// Submit sends the current input if it is non-empty, then clears the input
// whether or not the send succeeded. It reports whether a frame was written.
func (r *Renderer) Submit() bool {
	r.mu.Lock()
	text := r.input
	r.input = ""
	r.mu.Unlock()

	if text == "" {
		return false
	}
	return r.sender.Send(text)
}

// DecodeAndAppend appends the display line of one inbound frame.
func (r *Renderer) DecodeAndAppend(frame protocol.Frame) {
	r.Append(protocol.Decode(frame).DisplayLine())
}

// Append adds line to the end of the display list.
func (r *Renderer) Append(line string) {
	r.display.Append(line)
}
