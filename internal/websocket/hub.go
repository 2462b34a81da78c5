package websocket

import (
	"sync"

	"PairLink/internal/utils"
)

type HubInterface interface {
	SendToClient(id string, msg OutgoingMessage)
	BroadcastToClients(ids []string, msg OutgoingMessage)
	ClientByID(id string) (*Client, bool)
	Close()
}

// Hub owns the set of live connections. Incoming frames from every client are
// funneled through a single Run loop so the relay sees them one at a time.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client // connection id -> client
	incoming chan IncomingMessage
	quit     chan struct{}

	// OnIncoming receives every decoded frame, in per-connection arrival order.
	OnIncoming func(IncomingMessage)
	// OnClosed fires once per connection after it is removed from the hub.
	OnClosed func(id string)
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		incoming: make(chan IncomingMessage),
		quit:     make(chan struct{}),
	}
}

// eventConnClosed is an internal sentinel the read pump pushes through the
// incoming funnel when its connection dies. Riding the same channel as the
// frames guarantees the connection's final frame is dispatched before the
// close is.
const eventConnClosed = "__conn-closed"

func (h *Hub) Run() {
	utils.Info.Println("Hub started")

	for {
		select {
		case msg := <-h.incoming:
			if msg.Event == eventConnClosed {
				if c, ok := h.ClientByID(msg.From); ok {
					h.Unregister(c)
				}
				continue
			}
			if h.OnIncoming != nil {
				h.OnIncoming(msg)
			}
		case <-h.quit:
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.Send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}

// Register must complete before the connection's first outbound emit, so it
// mutates the map directly instead of going through the Run loop.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	utils.Info.Printf("Hub.register -> %s (connections: %d)", c.ID, len(h.clients))
	h.mu.Unlock()
}

// closeConn hands a dead connection to the Run loop. Once the loop has quit,
// the unregister happens inline instead.
func (h *Hub) closeConn(c *Client) {
	select {
	case h.incoming <- IncomingMessage{From: c.ID, Event: eventConnClosed}:
	case <-h.quit:
		h.Unregister(c)
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
		utils.Info.Printf("Hub.unregister -> %s (connections: %d)", c.ID, len(h.clients))
		close(c.Send)
	}
	h.mu.Unlock()
	if ok && h.OnClosed != nil {
		h.OnClosed(c.ID)
	}
}

// SendToClient is safe from any goroutine. Unknown ids and full send buffers
// drop the message; a disconnect race is not an error here.
//
// The read lock is held across the channel send: Unregister closes Send under
// the write lock, so a send can never hit a closed channel. The send itself
// never blocks, so the lock is held only briefly.
func (h *Hub) SendToClient(id string, msg OutgoingMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case client.Send <- msg:
	default:
		utils.Error.Printf("send buffer full, dropping %s for %s", msg.Event, id)
	}
}

// BroadcastToClients emits to each id in order.
func (h *Hub) BroadcastToClients(ids []string, msg OutgoingMessage) {
	for _, id := range ids {
		h.SendToClient(id, msg)
	}
}

// ClientByID looks up a live connection.
func (h *Hub) ClientByID(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) Close() {
	close(h.quit)
}
