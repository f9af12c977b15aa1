package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omochice/wschat/internal/chat"
	"github.com/omochice/wschat/pkg/protocol"
)

func TestHub_Register(t *testing.T) {
	hub := chat.NewHub(nil)
	client := chat.NewClient(newMockConn("127.0.0.1:1234"), "testuser")

	hub.Register(client)

	require.Equal(t, 1, hub.ClientCount())
}

func TestHub_Register_MultipleClients(t *testing.T) {
	hub := chat.NewHub(nil)

	for i := 0; i < 3; i++ {
		hub.Register(chat.NewClient(newMockConn("127.0.0.1:1234"), "user"))
	}

	require.Equal(t, 3, hub.ClientCount())
}

func TestHub_Unregister_ClosesQueue(t *testing.T) {
	hub := chat.NewHub(nil)
	client := chat.NewClient(newMockConn("127.0.0.1:1234"), "testuser")
	hub.Register(client)

	hub.Unregister(client)
	hub.Unregister(client)

	require.Equal(t, 0, hub.ClientCount())
	_, ok := <-client.Outgoing
	require.False(t, ok)
}

func TestHub_Broadcast_SkipsSender(t *testing.T) {
	hub := chat.NewHub(nil)
	alice := chat.NewClient(newMockConn("a"), "alice")
	bob := chat.NewClient(newMockConn("b"), "bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Broadcast(protocol.TextFrame("hi"), alice)

	require.Len(t, alice.Outgoing, 0)
	require.Equal(t, protocol.TextFrame("hi"), <-bob.Outgoing)
}

func TestHub_Broadcast_FullQueueSkipsClient(t *testing.T) {
	hub := chat.NewHub(nil)
	alice := chat.NewClient(newMockConn("a"), "alice")
	slow := &chat.Client{Conn: newMockConn("s"), Name: "slow", Outgoing: make(chan protocol.Frame, 1)}
	hub.Register(alice)
	hub.Register(slow)

	hub.Broadcast(protocol.TextFrame("one"), alice)
	hub.Broadcast(protocol.TextFrame("two"), alice)

	require.Len(t, slow.Outgoing, 1)
	require.Equal(t, protocol.TextFrame("one"), <-slow.Outgoing)
}

func TestHub_HandleClient_RelaysUntilEOF(t *testing.T) {
	hub := chat.NewHub(nil)
	conn := newMockConn("a")
	alice := chat.NewClient(conn, "alice")
	bob := chat.NewClient(newMockConn("b"), "bob")
	hub.Register(alice)
	hub.Register(bob)

	conn.readCh <- protocol.TextFrame("A")
	conn.readCh <- protocol.TextFrame("B")
	close(conn.readCh)

	err := hub.HandleClient(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, 1, hub.ClientCount())

	require.Equal(t, protocol.TextFrame("A"), <-bob.Outgoing)
	require.Equal(t, protocol.TextFrame("B"), <-bob.Outgoing)
}

func TestHub_HandleClient_ReturnsReadError(t *testing.T) {
	hub := chat.NewHub(nil)
	conn := newMockConn("a")
	conn.readErr = errors.New("reset by peer")
	client := chat.NewClient(conn, "alice")
	hub.Register(client)

	err := hub.HandleClient(context.Background(), client)
	require.EqualError(t, err, "reset by peer")
	require.Equal(t, 0, hub.ClientCount())
}

func TestHub_HandleClient_WrapUser(t *testing.T) {
	hub := chat.NewHub(chat.WrapUser)
	conn := newMockConn("a")
	alice := chat.NewClient(conn, "alice")
	bob := chat.NewClient(newMockConn("b"), "bob")
	hub.Register(alice)
	hub.Register(bob)

	conn.readCh <- protocol.TextFrame("hi")
	conn.readCh <- protocol.Frame{Body: []byte{1, 2}, Binary: true}
	close(conn.readCh)
	require.NoError(t, hub.HandleClient(context.Background(), alice))

	select {
	case f := <-bob.Outgoing:
		require.Equal(t, "hi alice", protocol.Decode(f).DisplayLine())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
	require.Equal(t, protocol.Frame{Body: []byte{1, 2}, Binary: true}, <-bob.Outgoing)
}
