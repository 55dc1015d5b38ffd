package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playtombola/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// Frame driver timing. The per-tick delta is bounded so a stalled
// goroutine cannot make the simulation jump.
const (
	FrameRate     = 60
	MaxFrameDelta = 0.05
)

// DrawEventChannel is the redis pub/sub channel carrying draw events for
// cross-instance replication and websocket fan-out.
const DrawEventChannel = "draw_events"

// DrawEvent is the replication payload. Mirror instances replay drum
// operations from it through the same public engine contract the local
// controller uses.
type DrawEvent struct {
	Origin   string  `json:"origin"`
	Type     string  `json:"type"`
	Token    string  `json:"token"`
	Name     string  `json:"name,omitempty"`
	Position int     `json:"position,omitempty"`
	Swirl    float64 `json:"swirl,omitempty"`
	Complete bool    `json:"complete,omitempty"`

	// draw_created / entries_added payload, so other instances can build
	// and grow a mirror room without touching the database.
	DrawID    string   `json:"draw_id,omitempty"`
	HostName  string   `json:"host_name,omitempty"`
	Entries   []string `json:"entries,omitempty"`
	WinTarget int      `json:"win_target,omitempty"`
}

// DrawManager manages all active draw rooms on this instance.
type DrawManager struct {
	draws      map[string]*DrawState // keyed by draw token
	loops      map[string]context.CancelFunc
	rdb        *redis.Client
	db         *sqlx.DB
	config     *config.Config
	instanceID string
	mu         sync.RWMutex
}

var (
	// Global draw manager instance
	Manager *DrawManager

	ErrDrawNotFound = errors.New("draw not found")
)

// InitializeManager initializes the global draw manager with Redis, DB and
// config, and starts the expiry checker.
func InitializeManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	Manager = NewDrawManager(db, rdb, cfg)
	go Manager.StartExpiryChecker(context.Background())
}

// NewDrawManager creates a draw manager.
func NewDrawManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *DrawManager {
	return &DrawManager{
		draws:      make(map[string]*DrawState),
		loops:      make(map[string]context.CancelFunc),
		rdb:        rdb,
		db:         db,
		config:     cfg,
		instanceID: generateToken(8),
	}
}

// InstanceID identifies this process in replication events.
func (m *DrawManager) InstanceID() string { return m.instanceID }

// GetConfig exposes the app config to handlers.
func (m *DrawManager) GetConfig() *config.Config { return m.config }

// CreateDraw registers a new draw room, persists it, and starts its frame
// driver. The host PIN hash is stored by the API layer; the manager only
// owns the live simulation side.
func (m *DrawManager) CreateDraw(hostName string, entries []string, winTarget int) (*DrawState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := generateDrawID()
	token := generateToken(16)

	expiry := time.Duration(m.config.DrawExpiryMinutes) * time.Minute
	seed := time.Now().UnixNano()
	g := NewDrawState(id, token, hostName, entries, winTarget, seed, expiry)
	g.Layout(m.config.CanvasWidth, m.config.CanvasHeight)
	if m.config.SwirlMultiplier > 0 {
		g.SetSwirl(m.config.SwirlMultiplier)
	}

	if m.db != nil {
		var sessionID int
		err := m.db.Get(&sessionID,
			`INSERT INTO draws (draw_id, token, host_name, win_target, status, created_at, expires_at)
			 VALUES ($1,$2,$3,$4,$5,NOW(),$6) RETURNING id`,
			id, token, hostName, g.WinTarget, string(g.Status), g.ExpiresAt)
		if err != nil {
			log.Printf("[DB] Failed to insert draw %s: %v", id, err)
		} else {
			g.SessionID = sessionID
			for _, name := range entries {
				if _, err := m.db.Exec(
					`INSERT INTO draw_entries (draw_id, entry_name, created_at) VALUES ($1,$2,NOW())`,
					sessionID, name); err != nil {
					log.Printf("[DB] Failed to insert entry %q for draw %s: %v", name, id, err)
				}
			}
		}
	}

	m.draws[token] = g
	m.startFrameDriver(g)
	m.saveDrawToRedisLocked(g)

	// Announce the room so other instances can register a mirror to
	// replay draw events into.
	m.PublishEvent(DrawEvent{
		Type:      "draw_created",
		Token:     token,
		DrawID:    id,
		HostName:  hostName,
		Entries:   entries,
		WinTarget: g.WinTarget,
	})

	log.Printf("[MANAGER] Draw created: %s (token=%s, entries=%d)", id, token, len(entries))
	return g, nil
}

// RegisterMirror creates a local mirror of a draw room announced by
// another instance, so subsequent draw events have something to replay
// into. Mirrors carry no DB session; the originating instance owns
// persistence. Idempotent per token.
func (m *DrawManager) RegisterMirror(token, id, hostName string, entries []string, winTarget int) *DrawState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.draws[token]; ok {
		return g
	}

	expiry := time.Duration(m.config.DrawExpiryMinutes) * time.Minute
	seed := time.Now().UnixNano()
	g := NewDrawState(id, token, hostName, entries, winTarget, seed, expiry)
	g.Layout(m.config.CanvasWidth, m.config.CanvasHeight)
	if m.config.SwirlMultiplier > 0 {
		g.SetSwirl(m.config.SwirlMultiplier)
	}

	m.draws[token] = g
	m.startFrameDriver(g)

	log.Printf("[MANAGER] Mirror registered for draw %s (token=%s, entries=%d)", id, token, len(entries))
	return g
}

// GetDrawByToken returns a live draw room.
func (m *DrawManager) GetDrawByToken(token string) (*DrawState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.draws[token]
	if !ok {
		return nil, ErrDrawNotFound
	}
	return g, nil
}

// RemoveDraw stops the frame driver and forgets the room.
func (m *DrawManager) RemoveDraw(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.loops[token]; ok {
		cancel()
		delete(m.loops, token)
	}
	delete(m.draws, token)
}

// startFrameDriver runs the external frame loop for one room: a bounded-dt
// ticker that calls Update once per tick. Caller holds m.mu.
func (m *DrawManager) startFrameDriver(g *DrawState) {
	ctx, cancel := context.WithCancel(context.Background())
	m.loops[g.Token] = cancel

	go func() {
		ticker := time.NewTicker(time.Second / FrameRate)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				if dt > MaxFrameDelta {
					dt = MaxFrameDelta
				}
				g.Step(dt)
			}
		}
	}()
}

// DrawBall starts an ejection and handles its result asynchronously:
// winner bookkeeping, DB record, redis state save, and the replication
// event other instances replay.
func (m *DrawManager) DrawBall(g *DrawState) {
	m.resolveEjection(g, g.DrawNext())
}

// DrawNamedBall ejects a host-picked ball with full winner bookkeeping,
// same as DrawBall but with the choice made by the host instead of the
// proximity rule.
func (m *DrawManager) DrawNamedBall(g *DrawState, name string) {
	m.resolveEjection(g, g.DrawNamed(name))
}

// ReplayDrawBall applies a remote draw decision to the local mirror room.
// It records no winner row: the originating instance owns persistence.
func (m *DrawManager) ReplayDrawBall(g *DrawState, name string) {
	ch := g.DrawNamed(name)
	go func() {
		res := <-ch
		if !res.OK {
			log.Printf("[MANAGER] replay eject of %q failed for draw %s", name, g.Token)
			return
		}
		g.RecordWinner(res.Name)
	}()
}

func (m *DrawManager) resolveEjection(g *DrawState, ch <-chan EjectResult) {
	go func() {
		res := <-ch
		if res.Aborted {
			log.Printf("[MANAGER] ejection aborted by reset for draw %s", g.Token)
			return
		}
		if !res.OK {
			log.Printf("[MANAGER] no eligible ball for draw %s", g.Token)
			m.PublishEvent(DrawEvent{Type: "draw_empty", Token: g.Token})
			return
		}

		position, complete := g.RecordWinner(res.Name)
		m.recordWinnerToDB(g, res.Name, position)
		m.SaveDrawToRedis(g)
		m.PublishEvent(DrawEvent{
			Type:     "ball_drawn",
			Token:    g.Token,
			Name:     res.Name,
			Position: position,
			Complete: complete,
		})
		log.Printf("[MANAGER] draw %s: ball %q drawn at position %d", g.Token, res.Name, position)
	}()
}

// recordWinnerToDB persists one winner row.
func (m *DrawManager) recordWinnerToDB(g *DrawState, name string, position int) {
	if m.db == nil || g.SessionID == 0 {
		return
	}
	_, err := m.db.Exec(
		`INSERT INTO draw_winners (draw_id, winner_name, position, drawn_at) VALUES ($1,$2,$3,NOW())`,
		g.SessionID, name, position)
	if err != nil {
		log.Printf("[DB] Failed to record winner %q for draw %s: %v", name, g.ID, err)
	}
}

// SaveDrawToRedis caches the room snapshot for late joiners and restarts.
func (m *DrawManager) SaveDrawToRedis(g *DrawState) {
	if m.rdb == nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.saveDrawToRedisLocked(g)
}

func (m *DrawManager) saveDrawToRedisLocked(g *DrawState) {
	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		log.Printf("[REDIS] Failed to marshal draw %s: %v", g.Token, err)
		return
	}
	key := "draw:" + g.Token + ":state"
	if err := m.rdb.SetEx(context.Background(), key, data, time.Hour).Err(); err != nil {
		log.Printf("[REDIS] Failed to save draw %s: %v", g.Token, err)
	}
}

// PublishEvent tags the event with this instance and publishes it on the
// replication channel.
func (m *DrawManager) PublishEvent(ev DrawEvent) {
	if m.rdb == nil {
		return
	}
	ev.Origin = m.instanceID
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[REDIS] Failed to marshal event %s: %v", ev.Type, err)
		return
	}
	if err := m.rdb.Publish(context.Background(), DrawEventChannel, data).Err(); err != nil {
		log.Printf("[REDIS] Failed to publish event %s: %v", ev.Type, err)
	}
}

// StartExpiryChecker removes rooms past their expiry.
func (m *DrawManager) StartExpiryChecker(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[MANAGER] Expiry checker stopping")
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for token, g := range m.draws {
				if !g.Expired(now) {
					continue
				}
				log.Printf("[MANAGER] Draw %s expired", token)
				if cancel, ok := m.loops[token]; ok {
					cancel()
					delete(m.loops, token)
				}
				delete(m.draws, token)
			}
			m.mu.Unlock()
		}
	}
}

// generateDrawID creates a short unique draw identifier.
func generateDrawID() string {
	return "draw_" + generateToken(6)
}

// generateToken returns a hex token of 2n characters.
func generateToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:2*n]
	}
	return hex.EncodeToString(b)
}
