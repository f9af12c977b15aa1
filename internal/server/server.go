// Package server implements the chat relay: it serves the browser page and
// relays every frame received on /chat to every other connected session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/omochice/wschat/internal/chat"
)

// ChatPath is the WebSocket endpoint.
const ChatPath = "/chat"

// Server is the HTTP/WebSocket chat relay.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	server   *http.Server
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// New creates a relay listening on address that uses the provided Hub.
func New(address string, hub *chat.Hub) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler builds the relay router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", serveIndex)
	r.Get(ChatPath, s.handleChat)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("url", r.URL.String()).Msg("[server] unhandled")
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return r
}

// Listen binds the listening socket. Addr is valid once it returns.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	log.Info().Str("addr", listener.Addr().String()).Msg("[server] listening")
	return nil
}

// Serve accepts connections until Stop. It returns nil after Stop.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, listener := s.server, s.listener
	s.mu.Unlock()
	if srv == nil {
		return errors.New("server is not listening")
	}

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Start listens and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop shuts the HTTP server down, closes every session and waits for the
// session goroutines to finish.
func (s *Server) Stop() {
	s.cancel()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("[server] shutdown")
		}
	}

	s.hub.CloseAll()
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of connected sessions.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("[server] upgrade failed")
		return
	}

	name := r.URL.Query().Get("user")
	if name == "" {
		name = r.RemoteAddr
	}
	client := chat.NewClient(NewConn(wsConn, r.RemoteAddr), name)
	s.hub.Register(client)
	log.Info().Str("remote", r.RemoteAddr).Int("clients", s.hub.ClientCount()).Msg("[server] session started")

	s.wg.Add(2)
	go s.readLoop(client)
	go s.writeLoop(client)
}

func (s *Server) readLoop(client *chat.Client) {
	defer s.wg.Done()
	defer client.Conn.Close()

	if err := s.hub.HandleClient(s.ctx, client); err != nil && s.ctx.Err() == nil {
		log.Warn().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("[server] session error")
	}
	log.Info().Str("remote", client.Conn.RemoteAddr()).Int("clients", s.hub.ClientCount()).Msg("[server] session ended")
}

func (s *Server) writeLoop(client *chat.Client) {
	defer s.wg.Done()
	for frame := range client.Outgoing {
		if err := client.Conn.Write(s.ctx, frame); err != nil {
			log.Debug().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("[server] write failed")
			_ = client.Conn.Close()
			return
		}
	}
}
