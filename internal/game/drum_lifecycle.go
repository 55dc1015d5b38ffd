package game

import (
	"math"

	"github.com/playtombola/backend/internal/phys"
)

// CreateBalls queues one ball per name for staggered spawning: one ball
// every SpawnInterval seconds of simulated time, dropped at a jittered
// point above the container interior. The returned channel is closed once
// every name has been spawned (or on Cleanup). A radius of 0 keeps the
// configured ball radius.
func (d *Drum) CreateBalls(names []string, radius float64) <-chan struct{} {
	if radius > 0 {
		d.ballRadius = radius
	}

	done := make(chan struct{})
	if len(names) == 0 {
		close(done)
		return done
	}

	d.pendingNames = append([]string(nil), names...)
	d.spawnTimer = 0
	d.spawnDone = done
	return done
}

// advanceSpawner is driven by Update and consumes the pending name queue.
func (d *Drum) advanceSpawner(dt float64) {
	if len(d.pendingNames) == 0 {
		return
	}
	d.spawnTimer += dt
	for d.spawnTimer >= SpawnInterval && len(d.pendingNames) > 0 {
		d.spawnTimer -= SpawnInterval
		d.spawnBall(d.pendingNames[0])
		d.pendingNames = d.pendingNames[1:]
	}
	if len(d.pendingNames) == 0 && d.spawnDone != nil {
		close(d.spawnDone)
		d.spawnDone = nil
	}
}

func (d *Drum) spawnBall(name string) {
	x := d.center.X + (d.rng.Float64()*2-1)*SpawnJitterX
	y := d.center.Y - d.radius - 2*d.ballRadius - d.rng.Float64()*SpawnJitterY

	body := phys.NewCircle(name, phys.NewVec2(x, y), d.ballRadius,
		phys.CategoryBall, phys.Admit(phys.CategoryBall, phys.CategoryWall))
	body.Restitution = SettledRestitution
	body.FrictionAir = SettledFrictionAir
	d.world.AddBody(body)

	d.balls = append(d.balls, &DrumBall{
		Name:   name,
		Radius: d.ballRadius,
		Seed:   d.rng.Float64() * 1000,
		body:   body,
	})
}

// SealContainer switches to the low-gravity regime, restores the settled
// contact profile, rebuilds the entry gates if they were opened, and fills
// the load arc with wall segments so only the exit channel remains open.
// Finishes with a rescue pass for any ball the transition left outside.
func (d *Drum) SealContainer() {
	d.world.GravityScale = SealedGravityScale

	for _, b := range d.balls {
		if b.Exiting {
			continue
		}
		b.body.Restitution = SettledRestitution
		b.body.FrictionAir = SettledFrictionAir
	}

	if len(d.entryGates) == 0 {
		d.buildEntryGates()
	}

	if len(d.sealSegments) == 0 {
		admits := phys.Admit(phys.CategoryBall, phys.CategoryExiting)
		for i := 0; i < BoundarySegments; i++ {
			theta := segmentAngle(i)
			dist := angularDistance(theta, exitGapCenter)
			if dist >= LoadGapHalfAngle || dist < d.exitGapHalf {
				continue
			}
			d.sealSegments = append(d.sealSegments, d.addWallSegment("seal", theta, admits))
		}
	}

	d.sealed = true
	d.rescueStrandedBalls()
}

// rescueStrandedBalls teleports any ball that tunneled outside the sealed
// boundary back to a random safe interior point with zero velocity.
func (d *Drum) rescueStrandedBalls() {
	threshold := d.radius * RescueThresholdFrac
	for _, b := range d.balls {
		if b.Exiting || b.phase == PhaseExited {
			continue
		}
		if b.body.Position.DistanceTo(d.center) <= threshold {
			continue
		}
		angle := d.rng.Float64() * 2 * math.Pi
		dist := d.rng.Float64() * d.radius * RescueSafeFrac
		b.body.SetPosition(d.center.Plus(phys.NewVec2(math.Cos(angle), math.Sin(angle)).Times(dist)))
		b.body.SetVelocity(phys.Vec2{})
	}
}
