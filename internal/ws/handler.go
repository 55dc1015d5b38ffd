package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected viewer or host for one draw room.
type Client struct {
	conn      *websocket.Conn
	viewerID  string
	drawToken string
	isHost    bool
	send      chan []byte
}

// Hub maintains the set of active clients grouped by draw room.
type Hub struct {
	clients    map[string]*Client            // viewerID -> Client
	drawRooms  map[string]map[string]*Client // drawToken -> viewerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		drawRooms:  make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// BroadcastToDraw sends a message to every viewer of a draw room.
func (h *Hub) BroadcastToDraw(drawToken string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.drawRooms[drawToken]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full
				log.Printf("Client send buffer full for viewer %s in draw %s, dropping message", client.viewerID, drawToken)
			}
		}
	}
}

// SendToViewer sends a message to one specific client.
func (h *Hub) SendToViewer(viewerID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[viewerID]; exists {
		select {
		case client.send <- data:
			// sent
		default:
			log.Printf("[WS] SendToViewer dropped message for viewer %s (buffer full)", viewerID)
		}
	} else {
		log.Printf("[WS] SendToViewer no client for viewer %s", viewerID)
	}
}

// RoomSize returns the number of connected viewers for a draw.
func (h *Hub) RoomSize(drawToken string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.drawRooms[drawToken])
}

// WSMessage is the envelope for all incoming messages.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed: the connection is being replaced or
				// cleaned up. Best-effort close frame.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for viewer %s: %v", c.viewerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for viewer %s: %v", c.viewerID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	c.send <- data
}
