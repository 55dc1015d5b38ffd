package phys

import "math"

// Vec2 is a 2D vector with fixed-precision arithmetic so that mirror
// simulations on other instances stay bit-identical.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// fix rounds to 4 decimal places. NaN collapses to 0 so a degenerate
// normalize can never poison downstream math.
func fix(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

// Fix exposes the rounding used by the solver for callers that precompute
// geometry and need matching precision.
func Fix(n float64) float64 { return fix(n) }

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: fix(x), Y: fix(y)}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X + o.X), Y: fix(v.Y + o.Y)}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X - o.X), Y: fix(v.Y - o.Y)}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: fix(v.X * s), Y: fix(v.Y * s)}
}

func (v Vec2) Dot(o Vec2) float64 {
	return fix(v.X*o.X + v.Y*o.Y)
}

func (v Vec2) Magnitude() float64 {
	return fix(math.Sqrt(v.X*v.X + v.Y*v.Y))
}

func (v Vec2) MagnitudeSquared() float64 {
	return fix(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 {
		return Vec2{}
	}
	return v.Times(1.0 / m)
}

func (v Vec2) RightNormal() Vec2 {
	return Vec2{X: v.Y, Y: -v.X}
}

func (v Vec2) LeftNormal() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Rotate rotates the vector by the given angle in radians.
func (v Vec2) Rotate(rad float64) Vec2 {
	sin, cos := math.Sincos(rad)
	return Vec2{
		X: fix(v.X*cos - v.Y*sin),
		Y: fix(v.X*sin + v.Y*cos),
	}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// DistanceTo returns the distance between two points.
func (v Vec2) DistanceTo(o Vec2) float64 {
	return v.Minus(o).Magnitude()
}

// ClampMagnitude rescales the vector so its magnitude does not exceed max.
func (v Vec2) ClampMagnitude(max float64) Vec2 {
	m := v.Magnitude()
	if m <= max || m == 0 {
		return v
	}
	return v.Times(max / m)
}
