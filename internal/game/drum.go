package game

import (
	"math"
	"math/rand"

	"github.com/playtombola/backend/internal/phys"
)

// EjectPhase tracks a ball's progress out of the container.
type EjectPhase int

const (
	PhaseNone EjectPhase = iota
	PhaseRising
	PhaseEntering
	PhaseUpChannel
	PhaseExited
)

func (p EjectPhase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseRising:
		return "rising"
	case PhaseEntering:
		return "entering"
	case PhaseUpChannel:
		return "upChannel"
	case PhaseExited:
		return "exited"
	}
	return "unknown"
}

// DrumBall is one named token inside the drum. Position and velocity live
// on the solver body; the engine owns phase transitions exclusively.
type DrumBall struct {
	Name   string
	Radius float64
	Seed   float64

	body *phys.Body

	Exiting      bool
	phase        EjectPhase
	ejectElapsed float64
	result       chan EjectResult
}

// EjectResult is delivered on the channel returned by EjectOneBall /
// EjectSpecificBall. OK is false when no eligible ball existed; Aborted
// marks an ejection abandoned by Cleanup, so callers can tell a reset
// apart from an empty drum.
type EjectResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Aborted bool   `json:"aborted,omitempty"`
}

// ExitChannel describes the vertical tube above the container.
type ExitChannel struct {
	CenterX float64 `json:"center_x"`
	Width   float64 `json:"width"`
	TopY    float64 `json:"top_y"`
	BottomY float64 `json:"bottom_y"`
}

// BallSnapshot is the read-only view of a ball handed to renderers.
type BallSnapshot struct {
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Exiting bool    `json:"exiting"`
}

// Drum is the lottery drum simulation: a circular container whose boundary
// is tiled with thin wall segments, an exit channel, a turbulence force
// field, and a per-ball ejection state machine. A Drum is owned by exactly
// one caller; it is not safe for concurrent use (DrawState serializes
// access, matching how game state guards its physics).
type Drum struct {
	world *phys.World
	rng   *rand.Rand

	ballRadius float64
	swirl      float64

	canvasW float64
	canvasH float64
	center  phys.Vec2
	radius  float64
	sealed  bool

	channel     ExitChannel
	exitGapHalf float64

	boundary     []*phys.Body
	sealSegments []*phys.Body
	channelWalls []*phys.Body
	stopper      *phys.Body
	entryGates   []*phys.Body
	exitGate     *phys.Body

	balls []*DrumBall

	pendingNames []string
	spawnTimer   float64
	spawnDone    chan struct{}

	turbulence  bool
	turbElapsed float64
}

// NewDrum constructs the drum with its solver instance. The seed drives
// every random draw inside the engine, so two drums built with the same
// seed and fed the same operations stay identical.
func NewDrum(seed int64) *Drum {
	return &Drum{
		world:      phys.NewWorld(phys.NewVec2(0, GravityY)),
		rng:        rand.New(rand.NewSource(seed)),
		ballRadius: DefaultBallRadius,
		swirl:      DefaultSwirl,
	}
}

// SetBallRadius configures the ball radius used by Layout and CreateBalls.
func (d *Drum) SetBallRadius(r float64) {
	if r > 0 {
		d.ballRadius = r
	}
}

// SetSwirlMultiplier sets the turbulence intensity multiplier.
func (d *Drum) SetSwirlMultiplier(v float64) {
	if v > 0 {
		d.swirl = v
	}
}

// Update advances the simulation by dt seconds: staggered spawning, solver
// step, turbulence pass, ejection guidance, then the sealed boundary clamp.
func (d *Drum) Update(dt float64) {
	if dt <= 0 {
		return
	}
	d.advanceSpawner(dt)
	d.world.Step(dt)
	d.applyTurbulence(dt)
	d.advanceEjections(dt)
	d.enforceBoundary()
}

// enforceBoundary is a hard radial clamp against solver tunneling through
// the intentionally thin arc segments. Only active once sealed; ejecting
// balls have left container physics and are skipped.
func (d *Drum) enforceBoundary() {
	if !d.sealed || d.radius == 0 {
		return
	}
	limit := d.radius * HardBoundaryFrac
	for _, b := range d.balls {
		if b.Exiting || b.phase == PhaseExited {
			continue
		}
		offset := b.body.Position.Minus(d.center)
		dist := offset.Magnitude()
		if dist <= limit || dist == 0 {
			continue
		}
		dir := offset.Times(1 / dist)
		b.body.SetPosition(d.center.Plus(dir.Times(d.radius * ClampInsetFrac)))
		// Cancel only the outward radial component; tangential motion
		// is preserved.
		vr := b.body.Velocity.Dot(dir)
		if vr > 0 {
			b.body.SetVelocity(b.body.Velocity.Minus(dir.Times(vr)))
		}
	}
}

// Cleanup abandons all in-flight work: the pending spawn queue and every
// active ejection. Must be called before re-layout or discarding the drum.
// Pending eject channels receive a not-ok result; a pending spawn-done
// channel is closed without the remaining balls being created.
func (d *Drum) Cleanup() {
	if len(d.pendingNames) > 0 && d.spawnDone != nil {
		close(d.spawnDone)
	}
	d.pendingNames = nil
	d.spawnDone = nil
	d.spawnTimer = 0

	for _, b := range d.balls {
		if !b.Exiting || b.phase == PhaseExited {
			continue
		}
		if b.result != nil {
			b.result <- EjectResult{Aborted: true}
			b.result = nil
		}
		b.phase = PhaseNone
		b.Exiting = false
		b.ejectElapsed = 0
		// Return the ball to container physics; a bare Cleanup must not
		// leave it colliding (or falling) like an ejecting ball.
		b.body.Category = phys.CategoryBall
		b.body.CollidesWith = phys.Admit(phys.CategoryBall, phys.CategoryWall)
		b.body.IgnoreGravity = false
	}
}

// --- read-only snapshot accessors (consumed by renderer and replication) ---

func (d *Drum) ContainerCenter() phys.Vec2 { return d.center }
func (d *Drum) ContainerRadius() float64   { return d.radius }
func (d *Drum) Sealed() bool               { return d.sealed }

func (d *Drum) EntryGateOpen() bool { return len(d.entryGates) == 0 }

func (d *Drum) Channel() ExitChannel { return d.channel }

// ExitGapHalfAngle is the half-angle of the exit-only opening, satisfying
// sin(halfAngle) = (width/2 + margin) / radius.
func (d *Drum) ExitGapHalfAngle() float64 { return d.exitGapHalf }

func (d *Drum) EntryGapHalfAngle() float64 { return EntryGapHalfAngle }
func (d *Drum) EntryAngle() float64        { return EntryGapAngle }

func (d *Drum) TurbulenceActive() bool   { return d.turbulence }
func (d *Drum) SwirlMultiplier() float64 { return d.swirl }
func (d *Drum) BallRadius() float64      { return d.ballRadius }

// Balls returns position/identity snapshots for every live ball.
func (d *Drum) Balls() []BallSnapshot {
	out := make([]BallSnapshot, 0, len(d.balls))
	for _, b := range d.balls {
		out = append(out, BallSnapshot{
			Name:    b.Name,
			X:       b.body.Position.X,
			Y:       b.body.Position.Y,
			Radius:  b.Radius,
			Exiting: b.Exiting,
		})
	}
	return out
}

// BallCount returns the number of balls still in the simulation.
func (d *Drum) BallCount() int { return len(d.balls) }

// Categories returns the collision-category constants so a renderer or a
// mirror instance can replicate the same filtering.
func (d *Drum) Categories() (ball, wall, exiting phys.Category) {
	return phys.CategoryBall, phys.CategoryWall, phys.CategoryExiting
}

// exitPoint is the channel's container-side opening, the target for
// ejection selection and the rising phase.
func (d *Drum) exitPoint() phys.Vec2 {
	return phys.NewVec2(d.channel.CenterX, d.channel.BottomY)
}

// clampSpeed rescales a ball's velocity if it exceeds cap.
func clampSpeed(b *phys.Body, cap float64) {
	b.SetVelocity(b.Velocity.ClampMagnitude(cap))
}

// angularDistance returns the minimal absolute distance between two angles.
func angularDistance(a, b float64) float64 {
	diff := math.Mod(a-b, 2*math.Pi)
	if diff < -math.Pi {
		diff += 2 * math.Pi
	}
	if diff > math.Pi {
		diff -= 2 * math.Pi
	}
	return math.Abs(diff)
}
