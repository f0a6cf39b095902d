package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T, cfg *config.WebSocketConfig) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(cfg)
	go hub.Run()

	r := gin.New()
	r.GET("/ws", ServeWebSocket(hub))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNewWebSocketSettings(t *testing.T) {
	s := NewWebSocketSettings(nil)
	assert.Equal(t, 10*time.Second, s.WriteWait)
	assert.Equal(t, 54*time.Second, s.PingPeriod)

	s = NewWebSocketSettings(&config.WebSocketConfig{
		PongTimeout:  10 * time.Second,
		PingInterval: 20 * time.Second,
		ClientBuffer: 8,
	})
	assert.Equal(t, 9*time.Second, s.PingPeriod)
	assert.Equal(t, 8, s.ClientBuffer)
}

func TestMessageFromEvent(t *testing.T) {
	event := models.NewEvent(models.EventTypeActuationComplete, "L1", "Actuation complete: lights ON").
		WithData(map[string]bool{"lights_on": true})

	msg := MessageFromEvent(event)
	require.NotNil(t, msg)
	assert.Equal(t, MessageTypeActuation, msg.Type)
	assert.Equal(t, "actuation_complete", msg.Event)
	assert.Equal(t, "L1", msg.LightID)

	assert.Nil(t, MessageFromEvent(models.NewEvent("unknown", "L1", "")))
}

func TestBridge_ForwardsToSubscribedLight(t *testing.T) {
	hub, srv := startHub(t, nil)

	l1 := dial(t, srv, "?light_id=L1")
	all := dial(t, srv, "?light_id=*")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	events := make(chan *models.Event, 4)
	unsubscribed := false
	bridge := NewEventBridge(hub, events, func() { unsubscribed = true })
	bridge.Start()

	events <- models.NewEvent(models.EventTypeDecisionMade, "L2", "Lighting decision: TURN_OFF")
	events <- models.NewEvent(models.EventTypeDecisionMade, "L1", "Lighting decision: TURN_ON")

	msg := readMessage(t, l1)
	assert.Equal(t, "L1", msg.LightID)
	assert.Equal(t, MessageTypeDecision, msg.Type)

	first := readMessage(t, all)
	second := readMessage(t, all)
	assert.Equal(t, "L2", first.LightID)
	assert.Equal(t, "L1", second.LightID)

	bridge.Stop()
	assert.True(t, unsubscribed)
}

func TestClient_SubscribeMessage(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", LightID: "L9"}))
	ack := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, ack.Type)
	assert.Equal(t, "L9", ack.LightID)

	hub.BroadcastToLight("L9", NewMessage(MessageTypeAlert, "L9", "hello").JSON())
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeAlert, msg.Type)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "unsubscribe"}))
	ack = readMessage(t, conn)
	assert.Equal(t, "L9", ack.LightID)
}

func TestHub_BroadcastAll(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(NewMessage(MessageTypeAlert, "", "system").JSON())
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeAlert, msg.Type)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn := dial(t, srv, "?light_id=L1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWebSocket_MaxConnections(t *testing.T) {
	hub, srv := startHub(t, &config.WebSocketConfig{MaxConnections: 1})

	dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}
