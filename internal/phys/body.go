package phys

// Shape selects the collision geometry of a body.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeRect
)

// Body is a rigid body in the world. Static bodies never move; dynamic
// bodies are integrated every step. Rectangles may be rotated (Angle is in
// radians, applied about the body center).
type Body struct {
	ID     int
	Label  string
	Shape  Shape
	Static bool

	Position Vec2
	Velocity Vec2
	Angle    float64

	// Circle
	Radius float64

	// Rect half extents
	HalfW float64
	HalfH float64

	Restitution float64
	FrictionAir float64

	// IgnoreGravity exempts the body from the world's gravity while still
	// integrating applied forces. Used for bodies under external guidance.
	IgnoreGravity bool

	Category     Category
	CollidesWith CategorySet

	force Vec2
}

// ApplyForce accumulates a force for the next Step. Bodies have unit mass,
// so force doubles as acceleration.
func (b *Body) ApplyForce(f Vec2) {
	if b.Static {
		return
	}
	b.force = b.force.Plus(f)
}

// SetVelocity overwrites the body's velocity.
func (b *Body) SetVelocity(v Vec2) {
	b.Velocity = v
}

// SetPosition teleports the body.
func (b *Body) SetPosition(p Vec2) {
	b.Position = p
}

// NewCircle creates a dynamic circular body.
func NewCircle(label string, pos Vec2, radius float64, cat Category, admits CategorySet) *Body {
	return &Body{
		Label:        label,
		Shape:        ShapeCircle,
		Position:     pos,
		Radius:       radius,
		Restitution:  0.4,
		FrictionAir:  0.02,
		Category:     cat,
		CollidesWith: admits,
	}
}

// NewStaticRect creates a static rectangular body centered at pos with the
// given full width/height and rotation.
func NewStaticRect(label string, pos Vec2, w, h, angle float64, cat Category, admits CategorySet) *Body {
	return &Body{
		Label:        label,
		Shape:        ShapeRect,
		Static:       true,
		Position:     pos,
		Angle:        angle,
		HalfW:        w / 2,
		HalfH:        h / 2,
		Restitution:  0.6,
		Category:     cat,
		CollidesWith: admits,
	}
}
