package phys

import "math"

// World is a minimal rigid-body solver: force integration, air damping,
// and discrete contact resolution for circles against circles and oriented
// rectangles. Collision pairs are filtered through the category predicate.
// Coordinates are canvas-style: x right, y down, so gravity points +y.
type World struct {
	Gravity      Vec2
	GravityScale float64

	bodies []*Body
	nextID int
}

// NewWorld creates a world with the given gravity vector at scale 1.
func NewWorld(gravity Vec2) *World {
	return &World{
		Gravity:      gravity,
		GravityScale: 1,
		bodies:       make([]*Body, 0, 64),
		nextID:       1,
	}
}

// AddBody inserts a body and assigns its ID.
func (w *World) AddBody(b *Body) *Body {
	b.ID = w.nextID
	w.nextID++
	w.bodies = append(w.bodies, b)
	return b
}

// RemoveBody deletes a body from the world. Removing a body that is not
// present is a no-op.
func (w *World) RemoveBody(b *Body) {
	for i, ob := range w.bodies {
		if ob == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

// Bodies returns the live body slice. Callers must not mutate it.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// Step advances the simulation by dt seconds: integrate, damp, move, then
// resolve contacts. A single resolution pass per step is enough because the
// engine layers its own boundary clamp on top for tunneling cases.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}

	g := w.Gravity.Times(w.GravityScale)
	for _, b := range w.bodies {
		if b.Static {
			continue
		}
		accel := b.force
		if !b.IgnoreGravity {
			accel = accel.Plus(g)
		}
		b.Velocity = b.Velocity.Plus(accel.Times(dt))
		b.Velocity = b.Velocity.Times(1 - b.FrictionAir)
		b.Position = b.Position.Plus(b.Velocity.Times(dt))
		b.force = Vec2{}
	}

	for i := 0; i < len(w.bodies); i++ {
		a := w.bodies[i]
		for j := i + 1; j < len(w.bodies); j++ {
			b := w.bodies[j]
			if a.Static && b.Static {
				continue
			}
			if !ShouldCollide(a, b) {
				continue
			}
			switch {
			case a.Shape == ShapeCircle && b.Shape == ShapeCircle:
				resolveCircleCircle(a, b)
			case a.Shape == ShapeCircle && b.Shape == ShapeRect:
				resolveCircleRect(a, b)
			case a.Shape == ShapeRect && b.Shape == ShapeCircle:
				resolveCircleRect(b, a)
			}
		}
	}
}

func resolveCircleCircle(a, b *Body) {
	delta := b.Position.Minus(a.Position)
	distSq := delta.MagnitudeSquared()
	minDist := a.Radius + b.Radius
	if distSq >= minDist*minDist || distSq == 0 {
		return
	}

	dist := math.Sqrt(distSq)
	n := delta.Times(1 / dist)
	overlap := minDist - dist

	switch {
	case a.Static:
		b.Position = b.Position.Plus(n.Times(overlap))
	case b.Static:
		a.Position = a.Position.Minus(n.Times(overlap))
	default:
		half := n.Times(overlap / 2)
		a.Position = a.Position.Minus(half)
		b.Position = b.Position.Plus(half)
	}

	// Impulse only when converging along the contact normal.
	relVel := b.Velocity.Minus(a.Velocity)
	vn := relVel.Dot(n)
	if vn >= 0 {
		return
	}

	e := math.Min(a.Restitution, b.Restitution)
	jmag := -(1 + e) * vn / 2
	impulse := n.Times(jmag)
	if !a.Static {
		a.Velocity = a.Velocity.Minus(impulse)
	}
	if !b.Static {
		b.Velocity = b.Velocity.Plus(impulse)
	}
}

func resolveCircleRect(c, r *Body) {
	// Work in the rectangle's local frame.
	local := c.Position.Minus(r.Position).Rotate(-r.Angle)
	closest := Vec2{
		X: math.Max(-r.HalfW, math.Min(r.HalfW, local.X)),
		Y: math.Max(-r.HalfH, math.Min(r.HalfH, local.Y)),
	}
	delta := local.Minus(closest)
	distSq := delta.MagnitudeSquared()
	if distSq >= c.Radius*c.Radius {
		return
	}

	var n Vec2
	var overlap float64
	if distSq > 0 {
		dist := math.Sqrt(distSq)
		n = delta.Times(1 / dist).Rotate(r.Angle)
		overlap = c.Radius - dist
	} else {
		// Center inside the rect: push out along the shallowest face.
		dx := r.HalfW - math.Abs(local.X)
		dy := r.HalfH - math.Abs(local.Y)
		if dx < dy {
			n = NewVec2(math.Copysign(1, local.X), 0).Rotate(r.Angle)
			overlap = c.Radius + dx
		} else {
			n = NewVec2(0, math.Copysign(1, local.Y)).Rotate(r.Angle)
			overlap = c.Radius + dy
		}
	}

	if c.Static {
		return
	}
	c.Position = c.Position.Plus(n.Times(overlap))

	vn := c.Velocity.Dot(n)
	if vn < 0 {
		e := math.Min(c.Restitution, r.Restitution)
		c.Velocity = c.Velocity.Minus(n.Times((1 + e) * vn))
	}
}
