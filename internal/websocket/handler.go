package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws?name=<displayName>
//
// Each upgrade gets a fresh connection id; ids are never reused while the
// process lives, so assistant context and room membership stay per-connection.
func ServeWS(hub *Hub, onConnect func(id, name string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			name = "anonymous"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &Client{
			ID:   uuid.NewString(),
			Name: name,
			Conn: conn,
			Send: make(chan OutgoingMessage, 32),
			Hub:  hub,
		}

		hub.Register(client)
		go client.writePump()

		onConnect(client.ID, client.Name)

		go client.readPump()
	}
}
