package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/omochice/wschat/pkg/protocol"
)

// Client represents a connected session with a transport-agnostic connection.
type Client struct {
	Conn     Conn
	Name     string
	Outgoing chan protocol.Frame
}

// NewClient creates a Client with a buffered outgoing queue.
func NewClient(conn Conn, name string) *Client {
	return &Client{
		Conn:     conn,
		Name:     name,
		Outgoing: make(chan protocol.Frame, 16),
	}
}

// Transform rewrites a frame before it is relayed.
type Transform func(sender *Client, frame protocol.Frame) protocol.Frame

// WrapUser re-encodes text frames as a structured payload naming the sender.
// Binary frames are relayed untouched.
func WrapUser(sender *Client, frame protocol.Frame) protocol.Frame {
	if frame.Binary {
		return frame
	}
	data, err := protocol.Structured{User: sender.Name, Message: string(frame.Body)}.Encode()
	if err != nil {
		log.Debug().Err(err).Msg("[chat] wrap frame")
		return frame
	}
	return protocol.Frame{Body: data}
}

// Hub manages all connected clients and relays every frame to the others.
type Hub struct {
	clients   map[*Client]bool
	mu        sync.RWMutex
	transform Transform
}

// NewHub creates a new Hub. A nil transform relays frames unchanged.
func NewHub(transform Transform) *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		transform: transform,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub and closes its outgoing queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.Outgoing)
	}
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every client connection. Their HandleClient loops then
// return and unregister them.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients))
	for client := range h.clients {
		conns = append(conns, client.Conn)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Broadcast queues frame for every client except sender. Clients whose queue
// is full miss the frame.
func (h *Hub) Broadcast(frame protocol.Frame, sender *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client == sender {
			continue
		}
		select {
		case client.Outgoing <- frame:
		default:
			log.Warn().Str("remote", client.Conn.RemoteAddr()).Msg("[chat] client queue full, skipping")
		}
	}
}

// HandleClient relays frames read from client until its connection ends, then
// unregisters it. A normal closure returns nil.
func (h *Hub) HandleClient(ctx context.Context, client *Client) error {
	defer h.Unregister(client)

	for {
		frame, err := client.Conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		log.Debug().Str("remote", client.Conn.RemoteAddr()).Int("bytes", len(frame.Body)).Msg("[chat] frame")
		if h.transform != nil {
			frame = h.transform(client, frame)
		}
		h.Broadcast(frame, client)
	}
}
