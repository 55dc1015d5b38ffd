package game

import (
	"errors"
	"sync"
	"time"
)

// DrawStatus tracks a draw room through its lifecycle.
type DrawStatus string

const (
	StatusCreated  DrawStatus = "CREATED"
	StatusLoading  DrawStatus = "LOADING"
	StatusReady    DrawStatus = "READY"
	StatusMixing   DrawStatus = "MIXING"
	StatusDrawing  DrawStatus = "DRAWING"
	StatusComplete DrawStatus = "COMPLETE"
	StatusExpired  DrawStatus = "EXPIRED"
)

// Winner records one drawn name and its draw position (1-based).
type Winner struct {
	Name     string    `json:"name"`
	Position int       `json:"position"`
	DrawnAt  time.Time `json:"drawn_at"`
}

// DrawState is one live draw room: the simulation context plus the entry
// list, winners, and lifecycle bookkeeping. All access to the embedded
// drum goes through methods holding mu; the frame driver in the manager
// takes the same lock per tick.
type DrawState struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	HostName  string     `json:"host_name"`
	Status    DrawStatus `json:"status"`
	Entries   []string   `json:"entries"`
	Winners   []Winner   `json:"winners"`
	WinTarget int        `json:"win_target"`

	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActivity time.Time  `json:"last_activity"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	SessionID int `json:"session_id,omitempty"`

	drum *Drum
	mu   sync.RWMutex
}

var (
	ErrDrawNotLoadable = errors.New("draw is not in a loadable state")
	ErrDrawNotReady    = errors.New("draw has no balls to mix or draw")
	ErrNoEntries       = errors.New("draw has no entries")
)

// NewDrawState creates a draw room with its own seeded drum.
func NewDrawState(id, token, hostName string, entries []string, winTarget int, seed int64, expiry time.Duration) *DrawState {
	now := time.Now()
	if winTarget <= 0 || winTarget > len(entries) {
		winTarget = len(entries)
	}
	return &DrawState{
		ID:           id,
		Token:        token,
		HostName:     hostName,
		Status:       StatusCreated,
		Entries:      append([]string(nil), entries...),
		Winners:      make([]Winner, 0, winTarget),
		WinTarget:    winTarget,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiry),
		LastActivity: now,
		drum:         NewDrum(seed),
	}
}

// AddEntries appends names before the balls are loaded.
func (g *DrawState) AddEntries(names []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Status != StatusCreated {
		return ErrDrawNotLoadable
	}
	g.Entries = append(g.Entries, names...)
	if g.WinTarget < len(g.Entries) && g.WinTarget == 0 {
		g.WinTarget = len(g.Entries)
	}
	g.touch()
	return nil
}

// EntryCount returns the number of names in the pool.
func (g *DrawState) EntryCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.Entries)
}

// WinnerList returns a copy of the winners drawn so far.
func (g *DrawState) WinnerList() []Winner {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Winner(nil), g.Winners...)
}

// Layout rebuilds drum geometry for a viewer canvas size.
func (g *DrawState) Layout(w, h float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drum.Cleanup()
	g.drum.Layout(w, h)
	g.touch()
}

// LoadBalls starts the staggered drop of one ball per entry. The returned
// channel closes when the last ball has spawned.
func (g *DrawState) LoadBalls(radius float64) (<-chan struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Entries) == 0 {
		return nil, ErrNoEntries
	}
	if g.Status != StatusCreated && g.Status != StatusReady {
		return nil, ErrDrawNotLoadable
	}
	g.Status = StatusLoading
	g.touch()
	return g.drum.CreateBalls(g.Entries, radius), nil
}

// Seal closes the container once loading is done.
func (g *DrawState) Seal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drum.SealContainer()
	if g.Status == StatusLoading {
		g.Status = StatusReady
	}
	g.touch()
}

// StartMix activates turbulence.
func (g *DrawState) StartMix() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drum.BallCount() == 0 {
		return ErrDrawNotReady
	}
	g.drum.StartTurbulence()
	g.Status = StatusMixing
	g.touch()
	return nil
}

// StopMix deactivates turbulence.
func (g *DrawState) StopMix() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drum.StopTurbulence()
	if g.Status == StatusMixing {
		g.Status = StatusReady
	}
	g.touch()
}

// SetSwirl adjusts the turbulence intensity multiplier.
func (g *DrawState) SetSwirl(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drum.SetSwirlMultiplier(v)
	g.touch()
}

// DrawNext opens the exit gate if needed and starts ejecting the nearest
// eligible ball. The result channel resolves during a later frame tick.
func (g *DrawState) DrawNext() <-chan EjectResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drum.IsExitGateClosed() {
		g.drum.OpenExitGate()
	}
	g.Status = StatusDrawing
	g.touch()
	return g.drum.EjectOneBall()
}

// DrawNamed replays a remote draw decision on this instance's drum.
func (g *DrawState) DrawNamed(name string) <-chan EjectResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drum.IsExitGateClosed() {
		g.drum.OpenExitGate()
	}
	g.Status = StatusDrawing
	g.touch()
	return g.drum.EjectSpecificBall(name)
}

// RecordWinner appends a drawn name. Returns the winner's position and
// whether the draw is now complete.
func (g *DrawState) RecordWinner(name string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	position := len(g.Winners) + 1
	g.Winners = append(g.Winners, Winner{Name: name, Position: position, DrawnAt: time.Now()})
	complete := position >= g.WinTarget || g.drum.BallCount() == 0
	if complete {
		g.Status = StatusComplete
		now := time.Now()
		g.CompletedAt = &now
		g.drum.CloseExitGate()
	}
	g.touch()
	return position, complete
}

// Reset abandons in-flight work and rebuilds geometry so the draw can run
// again from its entry list.
func (g *DrawState) Reset(w, h float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drum.Cleanup()
	g.drum.Layout(w, h)
	g.Winners = g.Winners[:0]
	g.CompletedAt = nil
	g.Status = StatusCreated
	g.touch()
}

// Step advances the simulation; called only by the manager's frame driver.
func (g *DrawState) Step(dt float64) {
	g.mu.Lock()
	g.drum.Update(dt)
	g.mu.Unlock()
}

// Expired reports whether the room has outlived its expiry.
func (g *DrawState) Expired(now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return now.After(g.ExpiresAt) && g.Status != StatusComplete
}

// touch must be called with mu held.
func (g *DrawState) touch() {
	g.LastActivity = time.Now()
}

// Snapshot returns the full render state for viewers: geometry, balls,
// flags, and winners. Everything is copied; the caller never sees live
// engine state.
func (g *DrawState) Snapshot() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	center := g.drum.ContainerCenter()
	return map[string]interface{}{
		"id":                   g.ID,
		"token":                g.Token,
		"host_name":            g.HostName,
		"status":               g.Status,
		"entry_count":          len(g.Entries),
		"winners":              append([]Winner(nil), g.Winners...),
		"win_target":           g.WinTarget,
		"container_center":     center,
		"container_radius":     g.drum.ContainerRadius(),
		"sealed":               g.drum.Sealed(),
		"exit_channel":         g.drum.Channel(),
		"exit_gap_half_angle":  g.drum.ExitGapHalfAngle(),
		"entry_gap_half_angle": g.drum.EntryGapHalfAngle(),
		"entry_angle":          g.drum.EntryAngle(),
		"exit_gate_closed":     g.drum.IsExitGateClosed(),
		"turbulence":           g.drum.TurbulenceActive(),
		"swirl":                g.drum.SwirlMultiplier(),
		"ball_radius":          g.drum.BallRadius(),
		"balls":                g.drum.Balls(),
	}
}
