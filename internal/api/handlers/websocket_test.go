// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefoundry/vibefoundry/internal/broadcast"
	"github.com/vibefoundry/vibefoundry/internal/terminal"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestWatchWebSocket_Broadcast(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dial(t, srv, "/ws/watch")
	require.Eventually(t, func() bool { return env.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := broadcast.Message{Type: broadcast.TypeScriptChange, Path: "app_folder/scripts/a.py"}
	assert.Equal(t, 1, env.registry.Broadcast(msg.Encode()))

	var got broadcast.Message
	require.NoError(t, json.Unmarshal([]byte(readText(t, conn, 2*time.Second)), &got))
	assert.Equal(t, msg, got)
}

func TestWatchWebSocket_PingPong(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dial(t, srv, "/ws/watch")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	// A keepalive may arrive first on a slow machine.
	for i := 0; i < 5; i++ {
		if readText(t, conn, 2*time.Second) == "pong" {
			return
		}
	}
	t.Fatal("no pong received")
}

func TestWatchWebSocket_Keepalive(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dial(t, srv, "/ws/watch")
	assert.JSONEq(t, `{"type":"keepalive"}`, readText(t, conn, 2*time.Second))
}

func TestWatchWebSocket_UnregisterOnClose(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dial(t, srv, "/ws/watch")
	require.Eventually(t, func() bool { return env.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return env.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTerminalWebSocket_RoundTrip(t *testing.T) {
	root := t.TempDir()
	env := newTestEnv(t, root)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dial(t, srv, "/ws/terminal")
	require.Eventually(t, func() bool { return env.mgr.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("echo mark$((40+2))\n")))

	var sawPong, sawOutput bool
	deadline := time.Now().Add(5 * time.Second)
	var out strings.Builder
	for time.Now().Before(deadline) && !(sawPong && sawOutput) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if string(data) == `{"type":"pong"}` {
			sawPong = true
			continue
		}
		out.Write(data)
		sawOutput = strings.Contains(out.String(), "mark42")
	}
	assert.True(t, sawPong, "pong")
	assert.True(t, sawOutput, "output: %q", out.String())

	conn.Close()
	require.Eventually(t, func() bool { return env.mgr.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWSChannel_ReceiveTimeoutAndClose(t *testing.T) {
	server := make(chan *wsChannel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		server <- newWSChannel(conn)
	}))
	defer srv.Close()

	client := dial(t, srv, "/")
	ch := <-server
	defer ch.Close()

	_, err := ch.Receive(0)
	assert.ErrorIs(t, err, terminal.ErrTimeout)
	_, err = ch.Receive(20 * time.Millisecond)
	assert.ErrorIs(t, err, terminal.ErrTimeout)

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte("abc")))
	data, err := ch.Receive(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, ch.Send([]byte("out")))
	assert.Equal(t, "out", readText(t, client, 2*time.Second))
	assert.Less(t, ch.idle(), time.Second)

	client.Close()
	_, err = ch.Receive(2 * time.Second)
	assert.ErrorIs(t, err, terminal.ErrChannelClosed)

	ch.Close()
	assert.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Send([]byte("x")), terminal.ErrChannelClosed)
}

func TestWSChannel_QueuedFramesOutliveHangup(t *testing.T) {
	server := make(chan *wsChannel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		server <- newWSChannel(conn)
	}))
	defer srv.Close()

	client := dial(t, srv, "/")
	ch := <-server
	defer ch.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.WriteMessage(websocket.TextMessage, []byte("ls\n"))
		client.WriteMessage(websocket.TextMessage, []byte("exit\n"))
		client.Close()
	}()

	var got []string
	for {
		data, err := ch.Receive(2 * time.Second)
		if err != nil {
			assert.ErrorIs(t, err, terminal.ErrChannelClosed)
			break
		}
		got = append(got, string(data))
	}
	assert.Equal(t, []string{"ls\n", "exit\n"}, got)
}
