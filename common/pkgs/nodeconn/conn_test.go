package nodeconn

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type echoMsg struct {
	Value string `json:"value"`
}

func (*echoMsg) OpName() string { return "echo" }

type echoResp struct {
	Value string `json:"value"`
}

// newConnPair dials a real websocket through httptest and returns both ends
// with their read loops running.
func newConnPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverCh <- NewConn(ws)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	client := NewConn(ws)
	server := <-serverCh

	t.Cleanup(func() {
		client.Close(nil)
		server.Close(nil)
	})
	return client, server
}

func serveEcho(server *Conn) {
	server.Handle("echo", func(body json.RawMessage) (any, *CodeMessage) {
		var msg echoMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, Failed("BadArgument", "bad body")
		}
		return &echoResp{Value: msg.Value}, nil
	})
	go server.Serve()
}

func TestRequestResponse(t *testing.T) {
	client, server := newConnPair(t)
	serveEcho(server)
	go client.Serve()

	resp, err := Request[echoResp](client, &echoMsg{Value: "xin chào"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "xin chào", resp.Value)
}

func TestRequestRemoteError(t *testing.T) {
	client, server := newConnPair(t)
	server.Handle("echo", func(body json.RawMessage) (any, *CodeMessage) {
		return nil, Failed("OperationFailed", "disk full")
	})
	go server.Serve()
	go client.Serve()

	_, err := Request[echoResp](client, &echoMsg{Value: "x"}, time.Second)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "disk full", remoteErr.Message)
}

func TestRequestUnknownOp(t *testing.T) {
	client, server := newConnPair(t)
	go server.Serve()
	go client.Serve()

	_, err := Request[echoResp](client, &echoMsg{Value: "x"}, time.Second)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Contains(t, remoteErr.Message, "unknown operation")
}

// A peer that never acks must fail the call within timeout+epsilon and never
// before timeout-epsilon.
func TestRequestTimeoutBound(t *testing.T) {
	client, server := newConnPair(t)
	server.Handle("echo", func(body json.RawMessage) (any, *CodeMessage) {
		time.Sleep(2 * time.Second)
		return &echoResp{}, nil
	})
	go server.Serve()
	go client.Serve()

	const timeout = 100 * time.Millisecond
	start := time.Now()
	_, err := Request[echoResp](client, &echoMsg{Value: "x"}, timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrRequestTimeout)
	require.GreaterOrEqual(t, elapsed, timeout-10*time.Millisecond)
	require.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestRequestDisconnectWhileWaiting(t *testing.T) {
	client, server := newConnPair(t)
	server.Handle("echo", func(body json.RawMessage) (any, *CodeMessage) {
		time.Sleep(2 * time.Second)
		return &echoResp{}, nil
	})
	go server.Serve()
	go client.Serve()

	done := make(chan error, 1)
	go func() {
		_, err := Request[echoResp](client, &echoMsg{Value: "x"}, 5*time.Second)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	server.Close(errors.New("node crashed"))

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrConnClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not settle after disconnect")
	}
}

// Sequential calls, successes and timeouts mixed, must not accumulate
// disconnect listeners.
func TestNoListenerLeak(t *testing.T) {
	client, server := newConnPair(t)
	server.Handle("echo", func(body json.RawMessage) (any, *CodeMessage) {
		var msg echoMsg
		json.Unmarshal(body, &msg)
		if msg.Value == "slow" {
			time.Sleep(300 * time.Millisecond)
		}
		return &echoResp{Value: msg.Value}, nil
	})
	go server.Serve()
	go client.Serve()

	for i := 0; i < 20; i++ {
		value := "ok"
		timeout := time.Second
		if i%5 == 0 {
			value = "slow"
			timeout = 30 * time.Millisecond
		}
		Request[echoResp](client, &echoMsg{Value: value}, timeout)
		require.Zero(t, client.disconnectListenerCount())
	}
}

func TestNotifyEvent(t *testing.T) {
	client, server := newConnPair(t)

	got := make(chan string, 1)
	server.HandleEvent("heartbeat", func(body json.RawMessage) {
		got <- "beat"
	})
	go server.Serve()
	go client.Serve()

	require.NoError(t, client.Notify(NewHeartbeat()))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestOnDisconnectAfterClose(t *testing.T) {
	client, _ := newConnPair(t)
	client.Close(errors.New("gone"))

	fired := false
	client.OnDisconnect(func(err error) { fired = true })
	require.True(t, fired)
}
