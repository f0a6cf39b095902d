package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// AllLights subscribes a client to every streetlight
const AllLights = "*"

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	lightID string
	mu      sync.RWMutex
}

type IncomingMessage struct {
	Type    string `json:"type"`
	LightID string `json:"light_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, lightID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.settings.ClientBuffer),
		lightID: lightID,
	}
}

func (c *Client) Subscribed(lightID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lightID != "" && (c.lightID == AllLights || c.lightID == lightID)
}

func (c *Client) subscribe(lightID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.lightID
	c.lightID = lightID
	return old
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.LightID != "" {
			c.subscribe(msg.LightID)
			logger.WithLight(msg.LightID).Info("Client subscribed to streetlight")
			c.sendConfirmation("subscribed", msg.LightID)
		}
	case "unsubscribe":
		old := c.subscribe("")
		logger.Info("Client unsubscribed from streetlight")
		c.sendConfirmation("unsubscribed", old)
	}
}

func (c *Client) sendConfirmation(action, lightID string) {
	msg := NewMessage(MessageTypeSubscription, lightID, map[string]string{"action": action})
	select {
	case c.send <- msg.JSON():
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

// ServeWebSocket upgrades the request and subscribes the client to the
// light named by the light_id query parameter, if any.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	settings := hub.settings
	upgrader := websocket.Upgrader{
		ReadBufferSize:  settings.ReadBufferSize,
		WriteBufferSize: settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		if settings.MaxConnections > 0 && hub.ClientCount() >= settings.MaxConnections {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("light_id"))
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
