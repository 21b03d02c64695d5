package ws

import (
	"log"
	"net/http"
	"time"

	"hubadmin/internal/checkout"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Browsers send Origin on websocket handshakes; the default check only
// accepts the console's own host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	EventSnapshot = "snapshot"
	EventPayment  = "payment"
)

// Event is what the payments stream carries.
type Event struct {
	Type     string             `json:"type"`
	Attempt  *checkout.Attempt  `json:"attempt,omitempty"`
	Attempts []checkout.Attempt `json:"attempts,omitempty"`
}

// PaymentEvent wraps one attempt change.
func PaymentEvent(a checkout.Attempt) Event {
	return Event{Type: EventPayment, Attempt: &a}
}

// Source yields the session a request belongs to and its current attempts.
// The route is expected to sit behind the auth middleware.
type Source func(c *gin.Context) (sessionID string, attempts []checkout.Attempt, ok bool)

// ServePayments upgrades to a websocket that streams the session's payment
// attempts: a snapshot first, then every change.
func ServePayments(hub *Hub, source Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, attempts, ok := source(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "redirect": "/login"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade failed session=%s: %v", sessionID, err)
			return
		}
		defer conn.Close()

		client := NewClient(sessionID)
		hub.Register(client)
		defer client.Close()

		if err := conn.WriteJSON(Event{Type: EventSnapshot, Attempts: attempts}); err != nil {
			return
		}
		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection until the peer goes away. The stream is
// server-to-client only.
func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
