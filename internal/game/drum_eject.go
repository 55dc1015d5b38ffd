package game

import (
	"math"

	"github.com/playtombola/backend/internal/phys"
)

// EjectOneBall selects the eligible ball nearest the exit point (squared
// distance, stable iteration order on ties) and starts its four-phase
// guidance. The result arrives on the returned buffered channel once the
// ball has left the simulation; if no eligible ball exists the channel
// carries a not-ok result immediately and nothing is mutated.
func (d *Drum) EjectOneBall() <-chan EjectResult {
	ch := make(chan EjectResult, 1)

	exit := d.exitPoint()
	var best *DrumBall
	bestDist := math.MaxFloat64
	for _, b := range d.balls {
		if b.Exiting || b.phase != PhaseNone {
			continue
		}
		dist := b.body.Position.Minus(exit).MagnitudeSquared()
		if dist < bestDist {
			bestDist = dist
			best = b
		}
	}

	if best == nil {
		ch <- EjectResult{OK: false}
		return ch
	}
	d.beginEjection(best, ch)
	return ch
}

// EjectSpecificBall starts ejection for the first eligible ball with the
// given name. Used by the replication layer so mirror drums replay the
// exact choice made elsewhere.
func (d *Drum) EjectSpecificBall(name string) <-chan EjectResult {
	ch := make(chan EjectResult, 1)
	for _, b := range d.balls {
		if b.Exiting || b.phase != PhaseNone || b.Name != name {
			continue
		}
		d.beginEjection(b, ch)
		return ch
	}
	ch <- EjectResult{OK: false}
	return ch
}

// beginEjection flips the ball out of container physics: category switches
// to Exiting so it only collides with walls that admit that category, and
// from here on only the guidance pass touches it.
func (d *Drum) beginEjection(b *DrumBall, ch chan EjectResult) {
	b.Exiting = true
	b.phase = PhaseRising
	b.ejectElapsed = 0
	b.result = ch
	b.body.Category = phys.CategoryExiting
	b.body.CollidesWith = phys.Admit(phys.CategoryWall)
	// Guidance owns the ball completely from here: gravity is off so the
	// lift forces do not have to outfight the sealed-regime pull.
	b.body.IgnoreGravity = true
}

// advanceEjections drives every ejecting ball's phase machine. Driven by
// Update, after the solver step and turbulence pass.
func (d *Drum) advanceEjections(dt float64) {
	// Iterate over a copy: finishing an ejection removes from d.balls.
	active := make([]*DrumBall, 0, 4)
	for _, b := range d.balls {
		if b.Exiting && b.phase != PhaseExited {
			active = append(active, b)
		}
	}

	for _, b := range active {
		b.ejectElapsed += dt

		// Guidance fallback: if geometry or tuning ever strands a ball,
		// force-complete rather than stall the draw forever.
		if b.ejectElapsed > EjectTimeout {
			b.body.SetPosition(phys.NewVec2(d.channel.CenterX, d.channel.TopY-ExitMargin-1))
			b.phase = PhaseUpChannel
		}

		switch b.phase {
		case PhaseRising:
			d.guideRising(b)
		case PhaseEntering:
			d.guideInChannel(b)
			if b.body.Position.Y < d.channel.BottomY-EnterAdvance {
				b.phase = PhaseUpChannel
			}
		case PhaseUpChannel:
			d.guideInChannel(b)
			if b.body.Position.Y < d.channel.TopY-ExitMargin {
				d.finishEjection(b)
			}
		}
	}
}

// guideRising steers the ball toward the channel opening with force
// magnitudes ramping linearly over the ramp duration, and a phase-specific
// speed cap.
func (d *Drum) guideRising(b *DrumBall) {
	t := b.ejectElapsed / RiseRampDuration
	if t > 1 {
		t = 1
	}
	up := RiseForceBase + (RiseForceMax-RiseForceBase)*t
	side := RiseSideBase + (RiseSideMax-RiseSideBase)*t

	dx := d.channel.CenterX - b.body.Position.X
	b.body.ApplyForce(phys.NewVec2(math.Copysign(side, dx), -up))
	clampSpeed(b.body, RiseSpeedCap)

	if b.body.Position.DistanceTo(d.exitPoint()) < EnterRadius {
		b.phase = PhaseEntering
	}
}

// guideInChannel applies the weaker correction used in the entering and
// upChannel phases: constant lift plus a mild horizontal pull to the
// channel centerline.
func (d *Drum) guideInChannel(b *DrumBall) {
	dx := d.channel.CenterX - b.body.Position.X
	b.body.ApplyForce(phys.NewVec2(math.Copysign(EnterSideForce, dx), -EnterUpForce))
}

// finishEjection removes the ball from the solver and the active
// collection, then delivers the result exactly once.
func (d *Drum) finishEjection(b *DrumBall) {
	b.phase = PhaseExited
	d.world.RemoveBody(b.body)
	for i, ob := range d.balls {
		if ob == b {
			d.balls = append(d.balls[:i], d.balls[i+1:]...)
			break
		}
	}
	if b.result != nil {
		b.result <- EjectResult{Name: b.Name, OK: true}
		b.result = nil
	}
}
