package game

import (
	"math"
	"testing"

	"github.com/playtombola/backend/internal/phys"
)

const tick = 1.0 / 60

func names(n int) []string {
	out := make([]string, n)
	letters := []string{"Alice", "Ben", "Carol", "Dan", "Eve", "Fred", "Gina", "Hugo", "Iris", "Jack"}
	for i := range out {
		out[i] = letters[i%len(letters)] + string(rune('0'+i/len(letters)))
	}
	return out
}

// spawnAll creates balls and advances the drum until the spawn queue drains.
func spawnAll(t *testing.T, d *Drum, count int) {
	t.Helper()
	done := d.CreateBalls(names(count), 0)
	for i := 0; i < count*6+10; i++ {
		d.Update(tick)
	}
	select {
	case <-done:
	default:
		t.Fatalf("spawn did not complete: %d of %d balls", d.BallCount(), count)
	}
}

func TestExitGapHalfAngleFormula(t *testing.T) {
	d := NewDrum(1)
	d.center = phys.NewVec2(400, 400)
	d.radius = 200
	d.ballRadius = 18 // width = 2*18 + 14 = 50
	d.computeChannel()

	want := math.Asin((50.0/2 + GapMargin) / 200)
	if math.Abs(d.ExitGapHalfAngle()-want) > 1e-9 {
		t.Errorf("exit gap half angle = %.6f, want %.6f", d.ExitGapHalfAngle(), want)
	}
	// Scenario from the drawing constants: asin(49/200) ~ 0.2468 rad.
	if math.Abs(want-0.2468) > 1e-3 {
		t.Errorf("asin(49/200) = %.4f, expected ~0.2468", want)
	}
	if math.Abs(math.Sin(d.ExitGapHalfAngle())-49.0/200) > 1e-9 {
		t.Errorf("sin(halfAngle) does not equal (width/2+margin)/radius")
	}
}

func TestGapArcsDoNotOverlap(t *testing.T) {
	dist := angularDistance(exitGapCenter, EntryGapAngle)
	if dist <= LoadGapHalfAngle+EntryGapHalfAngle {
		t.Errorf("load gap and entry gap overlap: dist=%.3f sum=%.3f",
			dist, LoadGapHalfAngle+EntryGapHalfAngle)
	}
}

func TestLayoutClampsContainerToCanvas(t *testing.T) {
	d := NewDrum(1)
	d.Layout(400, 300)

	c := d.ContainerCenter()
	r := d.ContainerRadius()
	if c.X-r < CanvasMargin-1 || c.X+r > 400-CanvasMargin+1 ||
		c.Y-r < CanvasMargin-1 || c.Y+r > 300-CanvasMargin+1 {
		t.Errorf("container does not fit canvas: center=(%.1f,%.1f) r=%.1f", c.X, c.Y, r)
	}
}

func TestChannelWidthFloor(t *testing.T) {
	d := NewDrum(1)
	d.SetBallRadius(8) // 2*8+14 = 30 < floor
	d.Layout(800, 800)

	if d.Channel().Width != MinChannelWidth {
		t.Errorf("channel width = %.1f, want floor %.1f", d.Channel().Width, MinChannelWidth)
	}
	if d.Channel().Width < 2*d.BallRadius()+ChannelClearance {
		t.Errorf("channel narrower than ball diameter plus clearance")
	}
}

func TestStaggeredSpawnTiming(t *testing.T) {
	d := NewDrum(7)
	d.Layout(800, 800)

	done := d.CreateBalls(names(30), 0)

	// 30 balls at 80ms apart: all present 2400ms after the call.
	steps := int(math.Ceil(2.4/tick)) + 1
	for i := 0; i < steps; i++ {
		d.Update(tick)
	}

	if d.BallCount() != 30 {
		t.Fatalf("expected 30 balls after 2.4s, got %d", d.BallCount())
	}
	select {
	case <-done:
	default:
		t.Error("spawn-complete channel not closed after final ball")
	}
}

func TestSealContainerRescuesStrandedBalls(t *testing.T) {
	d := NewDrum(3)
	d.Layout(800, 800)
	spawnAll(t, d, 5)

	// Strand one ball well outside the boundary.
	stray := d.balls[2]
	stray.body.SetPosition(d.center.Plus(phys.NewVec2(d.radius*1.4, 0)))
	stray.body.SetVelocity(phys.NewVec2(500, 0))

	d.SealContainer()

	dist := stray.body.Position.DistanceTo(d.center)
	if dist > d.radius*RescueSafeFrac+1 {
		t.Errorf("stray ball not rescued: dist=%.1f limit=%.1f", dist, d.radius*RescueSafeFrac)
	}
	if !stray.body.Velocity.IsZero() {
		t.Errorf("rescued ball velocity not zeroed: %+v", stray.body.Velocity)
	}
}

func TestBoundaryContainmentUnderTurbulence(t *testing.T) {
	d := NewDrum(11)
	d.Layout(800, 800)
	spawnAll(t, d, 12)
	d.SealContainer()
	d.StartTurbulence()

	limit := d.radius*HardBoundaryFrac + 0.01
	for i := 0; i < 600; i++ {
		d.Update(tick)
		for _, b := range d.balls {
			if b.Exiting {
				continue
			}
			if dist := b.body.Position.DistanceTo(d.center); dist > limit {
				t.Fatalf("ball %q escaped at step %d: dist=%.2f limit=%.2f", b.Name, i, dist, limit)
			}
		}
	}
}

func TestBoundaryClampPreservesTangentialVelocity(t *testing.T) {
	d := NewDrum(1)
	d.Layout(800, 800)
	spawnAll(t, d, 1)
	d.SealContainer()

	b := d.balls[0]
	// Place past the hard boundary moving outward and sideways.
	b.body.SetPosition(d.center.Plus(phys.NewVec2(d.radius*0.99, 0)))
	b.body.SetVelocity(phys.NewVec2(100, 50))

	d.enforceBoundary()

	dist := b.body.Position.DistanceTo(d.center)
	if math.Abs(dist-d.radius*ClampInsetFrac) > 0.5 {
		t.Errorf("clamp distance = %.2f, want %.2f", dist, d.radius*ClampInsetFrac)
	}
	// Outward component (x here) cancelled, tangential (y) preserved.
	if b.body.Velocity.X > 0.01 {
		t.Errorf("outward radial velocity not cancelled: vx=%.2f", b.body.Velocity.X)
	}
	if math.Abs(b.body.Velocity.Y-50) > 0.01 {
		t.Errorf("tangential velocity not preserved: vy=%.2f", b.body.Velocity.Y)
	}
}

func TestTurbulenceSpeedCap(t *testing.T) {
	d := NewDrum(5)
	d.Layout(800, 800)
	spawnAll(t, d, 8)
	d.SealContainer()
	d.StartTurbulence()

	for i := 0; i < 300; i++ {
		d.Update(tick)
		for _, b := range d.balls {
			if b.Exiting {
				continue
			}
			if speed := b.body.Velocity.Magnitude(); speed > MaxTurbulenceSpeed+0.01 {
				t.Fatalf("ball %q over speed cap: %.1f", b.Name, speed)
			}
		}
	}
}

func TestEjectingBallSkippedByTurbulenceAndClamp(t *testing.T) {
	d := NewDrum(2)
	d.Layout(800, 800)
	spawnAll(t, d, 3)
	d.SealContainer()
	d.StartTurbulence()

	d.EjectOneBall()
	var exiting *DrumBall
	for _, b := range d.balls {
		if b.Exiting {
			exiting = b
		}
	}
	if exiting == nil {
		t.Fatal("no ball marked exiting")
	}

	// Turbulence clamps free balls over the cap but must not touch the
	// ejecting ball.
	exiting.body.SetVelocity(phys.NewVec2(9000, 0))
	free := d.balls[0]
	if free == exiting {
		free = d.balls[1]
	}
	free.body.SetVelocity(phys.NewVec2(9000, 0))
	d.applyTurbulence(tick)

	if exiting.body.Velocity.Magnitude() < 8999 {
		t.Errorf("ejecting ball received turbulence clamp: speed=%.1f", exiting.body.Velocity.Magnitude())
	}
	if free.body.Velocity.Magnitude() > MaxTurbulenceSpeed+0.01 {
		t.Errorf("free ball not clamped: speed=%.1f", free.body.Velocity.Magnitude())
	}

	// Boundary clamp must skip the ejecting ball too.
	outside := d.center.Plus(phys.NewVec2(d.radius*0.99, 0))
	exiting.body.SetPosition(outside)
	d.enforceBoundary()
	if exiting.body.Position.DistanceTo(outside) > 0.01 {
		t.Error("boundary clamp moved an ejecting ball")
	}
}

func TestEjectSelectsNearestToExitPoint(t *testing.T) {
	d := NewDrum(4)
	d.Layout(800, 800)
	spawnAll(t, d, 3)
	d.SealContainer()

	exit := d.exitPoint()
	d.balls[0].body.SetPosition(exit.Plus(phys.NewVec2(0, 200)))
	d.balls[1].body.SetPosition(exit.Plus(phys.NewVec2(0, 50)))
	d.balls[2].body.SetPosition(exit.Plus(phys.NewVec2(0, 120)))

	d.EjectOneBall()

	if !d.balls[1].Exiting {
		t.Errorf("expected nearest ball %q to be selected", d.balls[1].Name)
	}
	if d.balls[0].Exiting || d.balls[2].Exiting {
		t.Error("a farther ball was selected")
	}
}

func TestEjectTieBreakIsStable(t *testing.T) {
	d := NewDrum(4)
	d.Layout(800, 800)
	spawnAll(t, d, 3)
	d.SealContainer()

	exit := d.exitPoint()
	// Equidistant: mirrored left/right of the exit point.
	d.balls[0].body.SetPosition(exit.Plus(phys.NewVec2(-80, 100)))
	d.balls[1].body.SetPosition(exit.Plus(phys.NewVec2(80, 100)))
	d.balls[2].body.SetPosition(exit.Plus(phys.NewVec2(0, 300)))

	d.EjectOneBall()

	if !d.balls[0].Exiting {
		t.Error("tie should resolve to the first ball in iteration order")
	}
}

func TestSecondEjectExcludesFirst(t *testing.T) {
	d := NewDrum(4)
	d.Layout(800, 800)
	spawnAll(t, d, 2)
	d.SealContainer()

	d.EjectOneBall()
	d.EjectOneBall()

	count := 0
	for _, b := range d.balls {
		if b.Exiting {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected both balls exiting after two eject calls, got %d", count)
	}
}

func TestEjectNoEligibleBallsReportsNotOK(t *testing.T) {
	d := NewDrum(4)
	d.Layout(800, 800)

	res := <-d.EjectOneBall()
	if res.OK || res.Name != "" {
		t.Errorf("expected not-ok empty result, got %+v", res)
	}
	if d.BallCount() != 0 {
		t.Error("eject on empty drum mutated state")
	}

	if res.Aborted {
		t.Error("empty-drum result must not read as aborted")
	}

	res = <-d.EjectSpecificBall("Nobody")
	if res.OK {
		t.Errorf("expected not-ok result for unknown name, got %+v", res)
	}
}

func TestEjectionCompletesExactlyOnce(t *testing.T) {
	d := NewDrum(9)
	d.Layout(800, 800)
	spawnAll(t, d, 6)
	d.SealContainer()
	d.OpenExitGate()

	before := d.BallCount()
	ch := d.EjectOneBall()

	var res EjectResult
	got := false
	// The guidance timeout guarantees completion well inside this window.
	for i := 0; i < int((EjectTimeout+4)/tick); i++ {
		d.Update(tick)
		select {
		case res = <-ch:
			got = true
		default:
		}
		if got {
			break
		}
	}

	if !got {
		t.Fatal("ejection never completed")
	}
	if !res.OK || res.Name == "" {
		t.Fatalf("bad ejection result: %+v", res)
	}
	if d.BallCount() != before-1 {
		t.Errorf("ball count = %d, want %d", d.BallCount(), before-1)
	}
	for _, b := range d.balls {
		if b.Name == res.Name {
			t.Errorf("ejected ball %q still in active collection", res.Name)
		}
	}

	// No second result may ever arrive.
	for i := 0; i < 120; i++ {
		d.Update(tick)
	}
	select {
	case extra := <-ch:
		t.Errorf("duplicate ejection result: %+v", extra)
	default:
	}
}

func TestEjectionCompletesBeforeGuidanceTimeout(t *testing.T) {
	d := NewDrum(9)
	d.Layout(800, 800)
	spawnAll(t, d, 6)
	d.SealContainer()
	d.OpenExitGate()

	ch := d.EjectOneBall()

	var target *DrumBall
	for _, b := range d.balls {
		if b.Exiting {
			target = b
		}
	}
	if target == nil {
		t.Fatal("no ball selected")
	}

	// Completion must come from the guidance forces, well before the
	// forced-completion fallback at EjectTimeout: the ball moves
	// continuously (no teleport-sized jumps) and finishes with time to
	// spare.
	var res EjectResult
	got := false
	elapsed := 0.0
	prev := target.body.Position
	for i := 0; i < int(EjectTimeout/tick); i++ {
		d.Update(tick)
		elapsed += tick

		if target.phase != PhaseExited {
			step := target.body.Position.DistanceTo(prev)
			if step > 50 {
				t.Fatalf("ball jumped %.1f px in one tick at t=%.2fs", step, elapsed)
			}
			prev = target.body.Position
		}

		select {
		case res = <-ch:
			got = true
		default:
		}
		if got {
			break
		}
	}

	if !got {
		t.Fatalf("ejection not complete after %.1fs", elapsed)
	}
	if !res.OK || res.Name != target.Name {
		t.Fatalf("bad ejection result: %+v", res)
	}
	if elapsed > EjectTimeout-2 {
		t.Errorf("ejection took %.2fs, too close to the %.0fs fallback", elapsed, EjectTimeout)
	}
}

func TestEjectSpecificBallByName(t *testing.T) {
	d := NewDrum(9)
	d.Layout(800, 800)
	spawnAll(t, d, 4)
	d.SealContainer()
	d.OpenExitGate()

	target := d.balls[2].Name
	ch := d.EjectSpecificBall(target)

	var res EjectResult
	for i := 0; i < int((EjectTimeout+4)/tick); i++ {
		d.Update(tick)
		select {
		case res = <-ch:
		default:
			continue
		}
		break
	}

	if !res.OK || res.Name != target {
		t.Errorf("expected ejection of %q, got %+v", target, res)
	}
}

func TestExitGateToggle(t *testing.T) {
	d := NewDrum(1)
	d.Layout(800, 800)

	if !d.IsExitGateClosed() {
		t.Error("gate should start closed")
	}
	d.OpenExitGate()
	if d.IsExitGateClosed() {
		t.Error("gate should be open after OpenExitGate")
	}
	d.OpenExitGate() // no-op
	d.CloseExitGate()
	if !d.IsExitGateClosed() {
		t.Error("gate should be closed after CloseExitGate")
	}
}

func TestCleanupAbandonsPendingWork(t *testing.T) {
	d := NewDrum(6)
	d.Layout(800, 800)

	done := d.CreateBalls(names(10), 0)
	d.Update(tick) // partial spawn at most

	d.Cleanup()

	select {
	case <-done:
	default:
		t.Error("spawn-done channel not closed by Cleanup")
	}
	if got := d.BallCount(); got >= 10 {
		t.Errorf("pending spawns ran after Cleanup: %d balls", got)
	}

	// In-flight ejection resolves with an aborted result, distinct from
	// the empty-drum case.
	spawnAll(t, d, 2)
	d.SealContainer()
	ch := d.EjectOneBall()
	d.Cleanup()
	select {
	case res := <-ch:
		if res.OK || !res.Aborted {
			t.Errorf("cleanup should deliver an aborted result, got %+v", res)
		}
	default:
		t.Error("cleanup did not resolve in-flight ejection")
	}
}

func TestCleanupRestoresContainerPhysics(t *testing.T) {
	d := NewDrum(6)
	d.Layout(800, 800)
	spawnAll(t, d, 2)
	d.SealContainer()

	ch := d.EjectOneBall()
	var b *DrumBall
	for _, ob := range d.balls {
		if ob.Exiting {
			b = ob
		}
	}
	if b == nil {
		t.Fatal("no ball selected")
	}

	d.Cleanup()
	<-ch

	if b.Exiting || b.phase != PhaseNone {
		t.Errorf("ball still marked exiting after Cleanup: exiting=%t phase=%s", b.Exiting, b.phase)
	}
	if b.body.Category != phys.CategoryBall {
		t.Errorf("body category = %v, want %v", b.body.Category, phys.CategoryBall)
	}
	if b.body.CollidesWith != phys.Admit(phys.CategoryBall, phys.CategoryWall) {
		t.Error("body admit set not restored to container physics")
	}
	if b.body.IgnoreGravity {
		t.Error("body still exempt from gravity after Cleanup")
	}

	// The ball must be eligible for the next draw.
	d.EjectOneBall()
	any := false
	for _, ob := range d.balls {
		if ob.Exiting {
			any = true
		}
	}
	if !any {
		t.Error("no ball eligible for ejection after Cleanup")
	}
}

func TestDrumDeterminismAcrossSeededRuns(t *testing.T) {
	run := func() []BallSnapshot {
		d := NewDrum(42)
		d.Layout(800, 800)
		done := d.CreateBalls(names(8), 0)
		for i := 0; i < 300; i++ {
			d.Update(tick)
		}
		<-done
		d.SealContainer()
		d.StartTurbulence()
		for i := 0; i < 300; i++ {
			d.Update(tick)
		}
		return d.Balls()
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("ball counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("ball %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}
