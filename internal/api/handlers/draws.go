package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playtombola/backend/internal/config"
	"github.com/playtombola/backend/internal/game"
	"github.com/playtombola/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// CreateDraw registers a new draw room. The host PIN is bcrypt-hashed and
// stored so the host token can be reissued later; the plain host token is
// returned exactly once here.
func CreateDraw(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			HostName  string   `json:"host_name"`
			HostPin   string   `json:"host_pin"`
			Entries   []string `json:"entries"`
			WinTarget int      `json:"win_target"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		hostName := strings.TrimSpace(req.HostName)
		if hostName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "host_name required"})
			return
		}
		if len(req.HostPin) < 4 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "host_pin must be at least 4 characters"})
			return
		}

		entries := cleanEntries(req.Entries)
		if len(entries) > cfg.MaxEntriesPerDraw {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many entries"})
			return
		}

		g, err := game.Manager.CreateDraw(hostName, entries, req.WinTarget)
		if err != nil {
			log.Printf("CreateDraw failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create draw"})
			return
		}

		pinHash, err := bcrypt.GenerateFromPassword([]byte(req.HostPin), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("CreateDraw bcrypt error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if g.SessionID > 0 {
			if _, err := db.Exec(`UPDATE draws SET host_pin_hash=$1 WHERE id=$2`, string(pinHash), g.SessionID); err != nil {
				log.Printf("Failed to store host PIN hash for draw %s: %v", g.ID, err)
			}
		}

		hostToken, err := IssueHostToken(cfg, g.Token)
		if err != nil {
			log.Printf("Failed to sign host token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":          g.ID,
			"token":       g.Token,
			"host_token":  hostToken,
			"host_name":   g.HostName,
			"entry_count": len(entries),
			"win_target":  g.WinTarget,
			"expires_at":  g.ExpiresAt,
		})
	}
}

// RecoverHostToken reissues the host JWT after verifying the host PIN.
func RecoverHostToken(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		var req struct {
			HostPin string `json:"host_pin"`
		}
		if err := c.BindJSON(&req); err != nil || req.HostPin == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "host_pin required"})
			return
		}

		var draw models.Draw
		if err := db.Get(&draw, `SELECT id, draw_id, token, host_name, host_pin_hash, win_target, status, created_at, expires_at, completed_at FROM draws WHERE token=$1`, token); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
			return
		}
		if !draw.HostPinHash.Valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "draw has no host PIN"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(draw.HostPinHash.String), []byte(req.HostPin)); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid PIN"})
			return
		}

		hostToken, err := IssueHostToken(cfg, token)
		if err != nil {
			log.Printf("Failed to sign host token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"host_token": hostToken})
	}
}

// AddEntries appends names to a draw that has not loaded its balls yet.
// Host-only.
func AddEntries(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		var req struct {
			Names []string `json:"names"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		names := cleanEntries(req.Names)
		if len(names) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "names required"})
			return
		}

		g, err := game.Manager.GetDrawByToken(token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
			return
		}
		if g.EntryCount()+len(names) > cfg.MaxEntriesPerDraw {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many entries"})
			return
		}
		if err := g.AddEntries(names); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		if g.SessionID > 0 {
			for _, name := range names {
				if _, err := db.Exec(`INSERT INTO draw_entries (draw_id, entry_name, created_at) VALUES ($1,$2,NOW())`, g.SessionID, name); err != nil {
					log.Printf("Failed to insert entry %q for draw %s: %v", name, g.ID, err)
				}
			}
		}
		game.Manager.SaveDrawToRedis(g)
		game.Manager.PublishEvent(game.DrawEvent{Type: "entries_added", Token: g.Token, Entries: names})

		c.JSON(http.StatusOK, gin.H{"entry_count": g.EntryCount()})
	}
}

// GetDraw returns the live snapshot of a draw, falling back to the cached
// redis state if this instance does not hold the room.
func GetDraw(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		if g, err := game.Manager.GetDrawByToken(token); err == nil {
			c.JSON(http.StatusOK, g.Snapshot())
			return
		}

		if rdb != nil {
			if data, err := rdb.Get(context.Background(), "draw:"+token+":state").Result(); err == nil {
				c.Data(http.StatusOK, "application/json", []byte(data))
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
	}
}

// GetWinners returns the recorded winners in draw order.
func GetWinners(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		var drawID int
		if err := db.Get(&drawID, `SELECT id FROM draws WHERE token=$1`, token); err != nil {
			// Not persisted; fall back to the live room if we hold it.
			if g, err := game.Manager.GetDrawByToken(token); err == nil {
				c.JSON(http.StatusOK, gin.H{"winners": g.WinnerList()})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
			return
		}

		winners := []models.DrawWinner{}
		if err := db.Select(&winners, `SELECT id, draw_id, winner_name, position, drawn_at FROM draw_winners WHERE draw_id=$1 ORDER BY position ASC`, drawID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch winners"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"winners": winners})
	}
}

// cleanEntries trims names and drops empties.
func cleanEntries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
