package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/events"
	"github.com/tecu23/csa-client/pkg/messages"
)

type fakeController struct {
	mu       sync.Mutex
	logins   int
	stops    int
	loginErr error
}

func (f *fakeController) Login(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

func (f *fakeController) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeController) Logout() error { return nil }

func (f *fakeController) Status() messages.StatusPayload {
	return messages.StatusPayload{State: "ready", SessionID: 3, Repeat: 1}
}

type received struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T, controller Controller) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(controller, zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeConn(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	msg := readMessage(t, ws)
	require.Equal(t, messages.EventConnected, msg.Event)
	return hub, ws
}

func readMessage(t *testing.T, ws *websocket.Conn) received {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func sendCommand(t *testing.T, ws *websocket.Conn, command string) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(messages.InboundMessage{Type: command}))
}

func TestHubStatusCommand(t *testing.T) {
	_, ws := startHub(t, &fakeController{})

	sendCommand(t, ws, messages.CommandStatus)
	msg := readMessage(t, ws)
	require.Equal(t, messages.EventStatus, msg.Event)

	var status messages.StatusPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	assert.Equal(t, "ready", status.State)
	assert.Equal(t, 3, status.SessionID)
}

func TestHubLoginAndStop(t *testing.T) {
	controller := &fakeController{}
	_, ws := startHub(t, controller)

	sendCommand(t, ws, messages.CommandLogin)
	msg := readMessage(t, ws)
	assert.Equal(t, messages.EventAccepted, msg.Event)
	assert.JSONEq(t, `{"command":"LOGIN"}`, string(msg.Payload))

	sendCommand(t, ws, messages.CommandStop)
	msg = readMessage(t, ws)
	assert.Equal(t, messages.EventAccepted, msg.Event)

	controller.mu.Lock()
	defer controller.mu.Unlock()
	assert.Equal(t, 1, controller.logins)
	assert.Equal(t, 1, controller.stops)
}

func TestHubCommandErrors(t *testing.T) {
	controller := &fakeController{loginErr: errors.New("session already exists")}
	_, ws := startHub(t, controller)

	sendCommand(t, ws, messages.CommandLogin)
	msg := readMessage(t, ws)
	assert.Equal(t, messages.EventError, msg.Event)
	assert.JSONEq(t, `{"message":"session already exists"}`, string(msg.Payload))

	sendCommand(t, ws, "MAKE_MOVE")
	msg = readMessage(t, ws)
	assert.Equal(t, messages.EventError, msg.Event)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readMessage(t, ws)
	assert.Equal(t, messages.EventError, msg.Event)
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, ws := startHub(t, &fakeController{})

	p := events.NewPublisher()
	p.SubscribeAll(hub.HandleEvent)
	p.Publish(events.Event{Type: events.EventStateChanged, Payload: events.StatePayload{State: "game"}})
	p.Publish(events.Event{Type: events.EventError, Payload: errors.New("move rejected")})

	msg := readMessage(t, ws)
	assert.Equal(t, string(events.EventStateChanged), msg.Event)
	assert.JSONEq(t, `{"state":"game"}`, string(msg.Payload))

	msg = readMessage(t, ws)
	assert.Equal(t, string(events.EventError), msg.Event)
	assert.JSONEq(t, `{"message":"move rejected"}`, string(msg.Payload))
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub, ws := startHub(t, &fakeController{})
	assert.Equal(t, 1, hub.Len())

	hub.Shutdown()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}
