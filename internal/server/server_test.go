package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/omochice/wschat/internal/chat"
	"github.com/omochice/wschat/internal/server"
	"github.com/omochice/wschat/pkg/protocol"
)

func newTestServer(t *testing.T, transform chat.Transform) (*server.Server, *httptest.Server) {
	t.Helper()
	srv := server.New(":0", chat.NewHub(transform))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + server.ChatPath + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	return string(data)
}

func TestServer_Index(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `id="room-messages"`)
	require.Contains(t, string(body), "new WebSocket(")
	require.Contains(t, string(body), `socket.binaryType = "arraybuffer"`)
	require.NotContains(t, string(body), `typeof e.data !== "string"`)
}

func TestServer_NotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RelaysToOthersOnly(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	alice := dial(t, ts, "")
	bob := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("hi")))
	require.Equal(t, "hi", readText(t, bob))

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte("back")))
	require.Equal(t, "back", readText(t, alice))
}

func TestServer_WrapUser(t *testing.T) {
	srv, ts := newTestServer(t, chat.WrapUser)
	alice := dial(t, ts, "?user=bob")
	carol := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("yo")))

	got := protocol.Decode(protocol.TextFrame(readText(t, carol)))
	require.Equal(t, protocol.Structured{User: "bob", Message: "yo"}, got)
	require.Equal(t, "yo bob", got.DisplayLine())
}

func TestServer_SessionEndUnregisters(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, msg))

	require.Eventually(t, func() bool { return srv.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StartStop(t *testing.T) {
	srv := server.New("127.0.0.1:0", chat.NewHub(nil))
	require.NoError(t, srv.Listen())
	require.NotEmpty(t, srv.Addr())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve()
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+server.ChatPath, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.Stop()

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Server did not stop in time")
	}
	require.Equal(t, 0, srv.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestServer_ServeWithoutListen(t *testing.T) {
	srv := server.New(":0", chat.NewHub(nil))
	require.Error(t, srv.Serve())
	srv.Stop()
	require.Empty(t, srv.Addr())
}

func TestServer_ShutdownContext(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Stop did not return")
	}
}
