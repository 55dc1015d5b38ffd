package game

import (
	"math"

	"github.com/playtombola/backend/internal/phys"
)

// StartTurbulence switches the drum into the mixing regime: zero gravity,
// fluid contact profile, and a random initial kick for every free ball
// scaled by the intensity multiplier. Elapsed turbulence time restarts.
func (d *Drum) StartTurbulence() {
	d.turbulence = true
	d.turbElapsed = 0
	d.world.GravityScale = 0

	for _, b := range d.balls {
		if b.Exiting {
			continue
		}
		b.body.Restitution = FluidRestitution
		b.body.FrictionAir = FluidFrictionAir

		angle := d.rng.Float64() * 2 * math.Pi
		speed := (TurbulenceKickMin + d.rng.Float64()*(TurbulenceKickMax-TurbulenceKickMin)) * d.swirl
		b.body.SetVelocity(phys.NewVec2(math.Cos(angle), math.Sin(angle)).Times(speed))
	}
}

// StopTurbulence reverses both regime changes.
func (d *Drum) StopTurbulence() {
	d.turbulence = false
	if d.sealed {
		d.world.GravityScale = SealedGravityScale
	} else {
		d.world.GravityScale = 1
	}
	for _, b := range d.balls {
		if b.Exiting {
			continue
		}
		b.body.Restitution = SettledRestitution
		b.body.FrictionAir = SettledFrictionAir
	}
}

// applyTurbulence runs the five-term force model on every free ball, then
// clamps the resulting speed. Ejecting balls have left container physics
// and never receive a contribution.
func (d *Drum) applyTurbulence(dt float64) {
	if !d.turbulence || d.radius == 0 {
		return
	}
	d.turbElapsed += dt

	for _, b := range d.balls {
		if b.Exiting || b.phase == PhaseExited {
			continue
		}
		force := d.vortexForce(b).
			Plus(d.noiseForce(b)).
			Plus(d.burstForce(dt)).
			Plus(d.centeringForce(b)).
			Plus(d.fountainForce(b))
		b.body.ApplyForce(force)
		clampSpeed(b.body, MaxTurbulenceSpeed)
	}
}

// vortexForce blends two counter-rotating vortices offset left and right
// of the container center. The blend runs across a narrow vertical band
// around the centerline so the field stays continuous at the midline.
func (d *Drum) vortexForce(b *DrumBall) phys.Vec2 {
	offset := d.radius * VortexOffsetFrac
	leftCenter := d.center.Minus(phys.NewVec2(offset, 0))
	rightCenter := d.center.Plus(phys.NewVec2(offset, 0))

	strength := SwirlStrength * d.swirl

	var left, right phys.Vec2
	if rel := b.body.Position.Minus(leftCenter); !rel.IsZero() {
		left = rel.LeftNormal().Normalize().Times(strength)
	}
	if rel := b.body.Position.Minus(rightCenter); !rel.IsZero() {
		right = rel.RightNormal().Normalize().Times(strength)
	}

	dx := b.body.Position.X - d.center.X
	t := (dx + VortexBlendHalf) / (2 * VortexBlendHalf)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return left.Times(1 - t).Plus(right.Times(t))
}

// noiseForce is a deterministic pseudo-periodic perturbation: sums of
// sine/cosine cross-products of elapsed time desynchronized by the ball's
// fixed seed. Continuous and non-repeating-looking without randomness.
func (d *Drum) noiseForce(b *DrumBall) phys.Vec2 {
	t := d.turbElapsed
	s := b.Seed
	nx := math.Sin(t*1.7+s)*math.Cos(t*2.3+s*0.5) +
		math.Sin(t*3.1+s*1.7)*math.Cos(t*0.9+s*2.3)
	ny := math.Sin(t*2.9+s*1.3)*math.Cos(t*1.1+s*2.1) +
		math.Sin(t*0.7+s*0.9)*math.Cos(t*3.3+s*1.1)
	return phys.NewVec2(nx, ny).Times(NoiseStrength * d.swirl)
}

// burstForce occasionally fires an impulse in a uniformly random direction.
func (d *Drum) burstForce(dt float64) phys.Vec2 {
	if d.rng.Float64() >= BurstChancePerSec*d.swirl*dt {
		return phys.Vec2{}
	}
	angle := d.rng.Float64() * 2 * math.Pi
	mag := BurstMinForce + d.rng.Float64()*(BurstMaxForce-BurstMinForce)
	return phys.NewVec2(math.Cos(angle), math.Sin(angle)).Times(mag)
}

// centeringForce pushes balls back toward the center once they drift past
// the start fraction of the radius, proportional to the overshoot.
func (d *Drum) centeringForce(b *DrumBall) phys.Vec2 {
	offset := b.body.Position.Minus(d.center)
	dist := offset.Magnitude()
	start := d.radius * CenteringStartFrac
	if dist <= start || dist == 0 {
		return phys.Vec2{}
	}
	return offset.Times(-1 / dist).Times(CenteringStrength * (dist - start))
}

// fountainForce lifts balls below the vertical center, growing linearly
// with depth: zero at the centerline, maximum at the bottom edge.
func (d *Drum) fountainForce(b *DrumBall) phys.Vec2 {
	depth := b.body.Position.Y - d.center.Y
	if depth <= 0 {
		return phys.Vec2{}
	}
	frac := depth / d.radius
	if frac > 1 {
		frac = 1
	}
	return phys.NewVec2(0, -FountainStrength*frac*d.swirl)
}
