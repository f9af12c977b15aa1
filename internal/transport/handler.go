package transport

import "github.com/omochice/wschat/pkg/protocol"

// Handler receives Channel events. All methods are called from the Channel's
// dispatch goroutine, one at a time.
type Handler interface {
	// OnOpen is called once when the channel becomes open.
	OnOpen()

	// OnMessage is called once per inbound frame, in arrival order.
	OnMessage(frame protocol.Frame)

	// OnError is called before OnClose when the channel dies abnormally.
	OnError(err error)

	// OnClose is called once when the channel reaches StateClosed.
	OnClose()
}

// HandlerFuncs adapts optional functions to a Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Open    func()
	Message func(frame protocol.Frame)
	Error   func(err error)
	Close   func()
}

// OnOpen implements Handler.
func (h HandlerFuncs) OnOpen() {
	if h.Open != nil {
		h.Open()
	}
}

// OnMessage implements Handler.
func (h HandlerFuncs) OnMessage(frame protocol.Frame) {
	if h.Message != nil {
		h.Message(frame)
	}
}

// OnError implements Handler.
func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// OnClose implements Handler.
func (h HandlerFuncs) OnClose() {
	if h.Close != nil {
		h.Close()
	}
}
