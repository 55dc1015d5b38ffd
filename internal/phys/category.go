package phys

// Category tags a body for collision filtering. The set is closed: free
// balls, wall segments, and balls being expelled through the exit channel.
type Category int

const (
	CategoryBall Category = iota
	CategoryWall
	CategoryExiting

	numCategories
)

func (c Category) String() string {
	switch c {
	case CategoryBall:
		return "ball"
	case CategoryWall:
		return "wall"
	case CategoryExiting:
		return "exiting"
	}
	return "unknown"
}

// CategorySet is the set of categories a body is willing to collide with.
// Two bodies interact only when each admits the other's category.
type CategorySet [numCategories]bool

func Admit(cs ...Category) CategorySet {
	var s CategorySet
	for _, c := range cs {
		s[c] = true
	}
	return s
}

func (s CategorySet) Has(c Category) bool {
	if c < 0 || c >= numCategories {
		return false
	}
	return s[c]
}

// ShouldCollide reports whether two bodies may physically interact.
func ShouldCollide(a, b *Body) bool {
	return a.CollidesWith.Has(b.Category) && b.CollidesWith.Has(a.Category)
}
