package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playtombola/backend/internal/config"
	"github.com/playtombola/backend/internal/game"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client
var wsConfig *config.Config

func SetRedisClient(r *redis.Client, cfg *config.Config) {
	rdbClient = r
	wsConfig = cfg
}

// StartDrawEventSubscriber subscribes to the draw_events channel. Events
// from other instances are replayed against the local mirror of the draw
// so every process converges on the same outcome; events from any origin
// are fanned out to local viewers.
func StartDrawEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; draw event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, game.DrawEventChannel)
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] draw_events subscriber started")
		for msg := range ch {
			var ev game.DrawEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] invalid draw event payload: %v", err)
				continue
			}

			if ev.Origin != game.Manager.InstanceID() {
				replayEvent(ev)
			}

			broadcastEvent(ev)
		}
	}()
}

// replayEvent applies a remote instance's decision to the local draw, if
// this instance holds a mirror of it. The drum operations are the same
// ones the originating host used, so the simulations converge.
func replayEvent(ev game.DrawEvent) {
	if ev.Type == "draw_created" {
		game.Manager.RegisterMirror(ev.Token, ev.DrawID, ev.HostName, ev.Entries, ev.WinTarget)
		return
	}

	g, err := game.Manager.GetDrawByToken(ev.Token)
	if err != nil {
		// No local mirror; nothing to replay.
		return
	}

	switch ev.Type {
	case "entries_added":
		if err := g.AddEntries(ev.Entries); err != nil {
			log.Printf("[WS] replay entries_added failed for draw %s: %v", ev.Token, err)
		}

	case "load_started":
		cfg := game.Manager.GetConfig()
		if _, err := g.LoadBalls(cfg.BallRadius); err != nil {
			log.Printf("[WS] replay load_balls failed for draw %s: %v", ev.Token, err)
		}

	case "sealed":
		g.Seal()

	case "mix_started":
		if err := g.StartMix(); err != nil {
			log.Printf("[WS] replay start_mix failed for draw %s: %v", ev.Token, err)
		}

	case "mix_stopped":
		g.StopMix()

	case "swirl_set":
		g.SetSwirl(ev.Swirl)

	case "ball_drawn":
		game.Manager.ReplayDrawBall(g, ev.Name)

	case "draw_reset":
		cfg := game.Manager.GetConfig()
		g.Reset(cfg.CanvasWidth, cfg.CanvasHeight)
	}
}

// broadcastEvent forwards the event to any local viewers of the draw.
func broadcastEvent(ev game.DrawEvent) {
	if DrawHub.RoomSize(ev.Token) == 0 {
		return
	}

	out := map[string]interface{}{
		"type": ev.Type,
	}
	switch ev.Type {
	case "ball_drawn":
		out["name"] = ev.Name
		out["position"] = ev.Position
		out["complete"] = ev.Complete
	case "swirl_set":
		out["swirl"] = ev.Swirl
	}

	DrawHub.BroadcastToDraw(ev.Token, out)
}
