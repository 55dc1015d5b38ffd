package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/playtombola/backend/internal/game"
)

// Draw-specific message data types
type SetSwirlData struct {
	Value float64 `json:"value"`
}

type DrawNamedData struct {
	Name string `json:"name"`
}

type LayoutData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DrawHub is the single hub for all draw rooms.
var DrawHub *Hub

// casters cancels the per-room snapshot broadcaster when a room empties.
var casters = make(map[string]context.CancelFunc)

func init() {
	DrawHub = NewHub()
	go runDrawHub(DrawHub)
}

// HandleWebSocket handles WebSocket connections for draw rooms. Viewers
// connect with the draw token only; the host additionally presents the
// host token issued at creation to unlock control messages.
func HandleWebSocket(c *gin.Context) {
	drawToken := c.Query("token")
	hostToken := c.Query("ht")

	if drawToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	g, err := game.Manager.GetDrawByToken(drawToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
		return
	}

	isHost := false
	if hostToken != "" {
		if !validateHostToken(hostToken, drawToken) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid host token"})
			return
		}
		isHost = true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		viewerID:  fmt.Sprintf("%s:%d", g.ID, time.Now().UnixNano()),
		drawToken: drawToken,
		isHost:    isHost,
		send:      make(chan []byte, 256),
	}

	DrawHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runDrawHub runs the hub loop: viewer registration, room lifecycle, and
// the per-room snapshot broadcaster.
func runDrawHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.viewerID] = client
			if _, exists := h.drawRooms[client.drawToken]; !exists {
				h.drawRooms[client.drawToken] = make(map[string]*Client)
			}
			h.drawRooms[client.drawToken][client.viewerID] = client
			roomSize := len(h.drawRooms[client.drawToken])
			h.mu.Unlock()

			log.Printf("[WS] Viewer %s joined draw %s (host=%t, room_size=%d)", client.viewerID, client.drawToken, client.isHost, roomSize)

			if roomSize == 1 {
				startSnapshotCaster(h, client.drawToken)
			}

			// Late joiners get the full state immediately.
			if g, err := game.Manager.GetDrawByToken(client.drawToken); err == nil {
				state := g.Snapshot()
				state["type"] = "draw_state"
				h.SendToViewer(client.viewerID, state)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.viewerID]; ok && cur == client {
				delete(h.clients, client.viewerID)
				if room, exists := h.drawRooms[client.drawToken]; exists {
					delete(room, client.viewerID)
					if len(room) == 0 {
						delete(h.drawRooms, client.drawToken)
						stopSnapshotCaster(client.drawToken)
					}
				}
				log.Printf("[WS] Viewer %s left draw %s", client.viewerID, client.drawToken)

				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// startSnapshotCaster streams draw snapshots to a room at the configured
// rate while anyone is watching. The frame driver runs at full rate in the
// manager regardless; this only throttles the wire.
func startSnapshotCaster(h *Hub, drawToken string) {
	ctx, cancel := context.WithCancel(context.Background())
	casters[drawToken] = cancel

	hz := 20
	if wsConfig != nil && wsConfig.SnapshotHz > 0 {
		hz = wsConfig.SnapshotHz
	}

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(hz))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g, err := game.Manager.GetDrawByToken(drawToken)
				if err != nil {
					return
				}
				state := g.Snapshot()
				state["type"] = "draw_state"
				h.BroadcastToDraw(drawToken, state)
			}
		}
	}()
}

func stopSnapshotCaster(drawToken string) {
	if cancel, ok := casters[drawToken]; ok {
		cancel()
		delete(casters, drawToken)
	}
}

// readPump reads messages for draw rooms.
func (c *Client) readPump() {
	defer func() {
		DrawHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for viewer %s: %v", c.viewerID, err)
			} else {
				log.Printf("WebSocket read error for viewer %s: %v", c.viewerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming draw room messages. Everything except
// get_state is host-only.
func (c *Client) handleMessage(msg WSMessage) {
	g, err := game.Manager.GetDrawByToken(c.drawToken)
	if err != nil {
		c.sendError("Draw not found")
		return
	}

	if msg.Type == "get_state" {
		state := g.Snapshot()
		state["type"] = "draw_state"
		d, _ := json.Marshal(state)
		c.send <- d
		return
	}

	if !c.isHost {
		c.sendError("Host token required")
		return
	}

	switch msg.Type {
	case "layout":
		var data LayoutData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Width <= 0 || data.Height <= 0 {
			c.sendError("Invalid layout data")
			return
		}
		c.handleLayout(g, data)

	case "load_balls":
		c.handleLoadBalls(g)

	case "seal":
		g.Seal()
		game.Manager.SaveDrawToRedis(g)
		game.Manager.PublishEvent(game.DrawEvent{Type: "sealed", Token: g.Token})

	case "start_mix":
		if err := g.StartMix(); err != nil {
			c.sendError(err.Error())
			return
		}
		game.Manager.SaveDrawToRedis(g)
		game.Manager.PublishEvent(game.DrawEvent{Type: "mix_started", Token: g.Token})

	case "stop_mix":
		g.StopMix()
		game.Manager.SaveDrawToRedis(g)
		game.Manager.PublishEvent(game.DrawEvent{Type: "mix_stopped", Token: g.Token})

	case "set_swirl":
		var data SetSwirlData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Value <= 0 {
			c.sendError("Invalid swirl data")
			return
		}
		g.SetSwirl(data.Value)
		game.Manager.PublishEvent(game.DrawEvent{Type: "swirl_set", Token: g.Token, Swirl: data.Value})

	case "draw_ball":
		game.Manager.DrawBall(g)

	case "draw_named_ball":
		var data DrawNamedData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Name == "" {
			c.sendError("Invalid draw data")
			return
		}
		game.Manager.DrawNamedBall(g, data.Name)

	case "reset":
		cfg := game.Manager.GetConfig()
		g.Reset(cfg.CanvasWidth, cfg.CanvasHeight)
		game.Manager.SaveDrawToRedis(g)
		game.Manager.PublishEvent(game.DrawEvent{Type: "draw_reset", Token: g.Token})

	default:
		c.sendError("Unknown message type")
	}
}

// handleLayout rebuilds geometry for the host's canvas size and pushes the
// new state to the room.
func (c *Client) handleLayout(g *game.DrawState, data LayoutData) {
	g.Layout(data.Width, data.Height)
	game.Manager.SaveDrawToRedis(g)

	state := g.Snapshot()
	state["type"] = "draw_state"
	DrawHub.BroadcastToDraw(c.drawToken, state)
}

// handleLoadBalls starts the staggered drop and seals the container once
// the last ball is in, after a short settling delay.
func (c *Client) handleLoadBalls(g *game.DrawState) {
	cfg := game.Manager.GetConfig()

	done, err := g.LoadBalls(cfg.BallRadius)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	game.Manager.PublishEvent(game.DrawEvent{Type: "load_started", Token: g.Token})
	DrawHub.BroadcastToDraw(c.drawToken, map[string]interface{}{
		"type": "load_started",
	})

	go func(token string) {
		<-done

		delay := time.Duration(cfg.SealDelayMillis) * time.Millisecond
		time.Sleep(delay)

		g2, err := game.Manager.GetDrawByToken(token)
		if err != nil {
			return
		}
		g2.Seal()
		game.Manager.SaveDrawToRedis(g2)
		game.Manager.PublishEvent(game.DrawEvent{Type: "sealed", Token: token})
		DrawHub.BroadcastToDraw(token, map[string]interface{}{
			"type": "sealed",
		})
	}(c.drawToken)
}

// validateHostToken checks the HS256 host JWT issued at draw creation and
// that it was minted for this draw.
func validateHostToken(tokenStr, drawToken string) bool {
	if wsConfig == nil {
		return false
	}
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(wsConfig.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	claimToken, _ := claims["draw_token"].(string)
	return claimToken == drawToken
}
