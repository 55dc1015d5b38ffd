package phys

import (
	"math"
	"testing"
)

func TestGravityPullsDynamicBodyDown(t *testing.T) {
	w := NewWorld(NewVec2(0, 900))
	b := w.AddBody(NewCircle("ball", NewVec2(0, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))

	for i := 0; i < 60; i++ {
		w.Step(1.0 / 60)
	}

	if b.Position.Y <= 0 {
		t.Errorf("body did not fall: y=%.2f", b.Position.Y)
	}
}

func TestStaticRectStopsFallingCircle(t *testing.T) {
	w := NewWorld(NewVec2(0, 900))
	ball := w.AddBody(NewCircle("ball", NewVec2(0, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
	w.AddBody(NewStaticRect("floor", NewVec2(0, 100), 400, 20, 0, CategoryWall, Admit(CategoryBall, CategoryExiting)))

	for i := 0; i < 300; i++ {
		w.Step(1.0 / 60)
	}

	// Floor top is at y=90; ball center must rest at or above 90-radius.
	if ball.Position.Y > 90-ball.Radius+1 {
		t.Errorf("ball fell through floor: y=%.2f", ball.Position.Y)
	}
}

func TestCategoryFilterSkipsNonAdmittedPairs(t *testing.T) {
	w := NewWorld(NewVec2(0, 900))
	// Exiting ball admits walls only; the stopper admits balls only, so the
	// pair must never interact.
	ball := w.AddBody(NewCircle("exiting", NewVec2(0, 0), 10, CategoryExiting, Admit(CategoryWall)))
	w.AddBody(NewStaticRect("stopper", NewVec2(0, 100), 400, 20, 0, CategoryWall, Admit(CategoryBall)))

	for i := 0; i < 120; i++ {
		w.Step(1.0 / 60)
	}

	if ball.Position.Y < 110 {
		t.Errorf("exiting ball should pass through ball-only stopper: y=%.2f", ball.Position.Y)
	}
}

func TestCircleCircleSeparation(t *testing.T) {
	w := NewWorld(Vec2{})
	a := w.AddBody(NewCircle("a", NewVec2(0, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
	b := w.AddBody(NewCircle("b", NewVec2(5, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))

	w.Step(1.0 / 60)

	dist := a.Position.DistanceTo(b.Position)
	if dist < 19.9 {
		t.Errorf("overlapping circles not separated: dist=%.2f", dist)
	}
}

func TestHeadOnImpulseTransfersMotion(t *testing.T) {
	w := NewWorld(Vec2{})
	a := w.AddBody(NewCircle("a", NewVec2(-15, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
	b := w.AddBody(NewCircle("b", NewVec2(15, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
	a.SetVelocity(NewVec2(300, 0))

	for i := 0; i < 30; i++ {
		w.Step(1.0 / 60)
	}

	if b.Velocity.X <= 0 && b.Position.X <= 15 {
		t.Errorf("target ball received no motion: vx=%.2f x=%.2f", b.Velocity.X, b.Position.X)
	}
}

func TestRotatedRectContactNormal(t *testing.T) {
	w := NewWorld(Vec2{})
	// A 45-degree wall below the ball; the push-out must have an upward
	// (negative y) component in canvas coordinates.
	ball := w.AddBody(NewCircle("ball", NewVec2(0, 0), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
	w.AddBody(NewStaticRect("wall", NewVec2(0, 12), 200, 10, math.Pi/4, CategoryWall, Admit(CategoryBall)))
	ball.SetVelocity(NewVec2(0, 100))

	for i := 0; i < 10; i++ {
		w.Step(1.0 / 60)
	}

	if ball.Position.Y > 12 {
		t.Errorf("ball penetrated rotated wall: y=%.2f", ball.Position.Y)
	}
}

func TestRemoveBody(t *testing.T) {
	w := NewWorld(Vec2{})
	a := w.AddBody(NewCircle("a", NewVec2(0, 0), 10, CategoryBall, Admit(CategoryBall)))
	b := w.AddBody(NewCircle("b", NewVec2(50, 0), 10, CategoryBall, Admit(CategoryBall)))

	w.RemoveBody(a)
	if len(w.Bodies()) != 1 || w.Bodies()[0] != b {
		t.Errorf("expected only body b to remain, got %d bodies", len(w.Bodies()))
	}

	// Removing again is a no-op.
	w.RemoveBody(a)
	if len(w.Bodies()) != 1 {
		t.Errorf("double remove changed body count: %d", len(w.Bodies()))
	}
}

func TestStepDeterminism(t *testing.T) {
	run := func() Vec2 {
		w := NewWorld(NewVec2(0, 900))
		ball := w.AddBody(NewCircle("ball", NewVec2(3, -7), 10, CategoryBall, Admit(CategoryBall, CategoryWall)))
		w.AddBody(NewStaticRect("floor", NewVec2(0, 100), 400, 20, 0.1, CategoryWall, Admit(CategoryBall)))
		ball.SetVelocity(NewVec2(40, -20))
		for i := 0; i < 240; i++ {
			w.Step(1.0 / 60)
		}
		return ball.Position
	}

	p1 := run()
	p2 := run()
	if p1.X != p2.X || p1.Y != p2.Y {
		t.Errorf("non-deterministic step: (%.4f,%.4f) vs (%.4f,%.4f)", p1.X, p1.Y, p2.X, p2.Y)
	}
}
