package game

import (
	"math"

	"github.com/playtombola/backend/internal/phys"
)

// Layout (re)builds the entire drum geometry for the given canvas size.
// Safe to call repeatedly; every existing body and all derived state is
// discarded first. Degenerate canvas sizes are the caller's problem.
func (d *Drum) Layout(canvasW, canvasH float64) {
	d.world = phys.NewWorld(phys.NewVec2(0, GravityY))
	d.world.GravityScale = 1

	d.canvasW = canvasW
	d.canvasH = canvasH
	d.sealed = false
	d.turbulence = false
	d.turbElapsed = 0
	d.balls = nil
	d.boundary = nil
	d.sealSegments = nil
	d.channelWalls = nil
	d.stopper = nil
	d.entryGates = nil
	d.exitGate = nil

	d.computeContainer(canvasW, canvasH)
	d.computeChannel()
	d.buildBoundary()
	d.buildChannelWalls()
	d.buildEntryGates()
	d.buildExitGate()
}

// computeContainer maps the background-image anchor into canvas space under
// cover scaling and clamps the circle (plus margin) onto the canvas.
func (d *Drum) computeContainer(w, h float64) {
	scale := math.Max(w/BaseImageWidth, h/BaseImageHeight)
	dispW := BaseImageWidth * scale
	dispH := BaseImageHeight * scale
	offX := (w - dispW) / 2
	offY := (h - dispH) / 2

	cx := offX + dispW*AnchorXRatio
	cy := offY + dispH*AnchorYRatio
	r := dispH * RadiusHeightRatio

	// The full circle plus margin must fit on the canvas.
	maxR := math.Min(w, h)/2 - CanvasMargin
	if r > maxR {
		r = maxR
	}
	cx = math.Max(r+CanvasMargin, math.Min(w-r-CanvasMargin, cx))
	cy = math.Max(r+CanvasMargin, math.Min(h-r-CanvasMargin, cy))

	d.center = phys.NewVec2(cx, cy)
	d.radius = phys.Fix(r)
}

// computeChannel derives the exit tube from the configured ball radius and
// the gap half-angle from the channel width.
func (d *Drum) computeChannel() {
	width := 2*d.ballRadius + ChannelClearance
	if width < MinChannelWidth {
		width = MinChannelWidth
	}

	bottom := d.center.Y - d.radius
	d.channel = ExitChannel{
		CenterX: d.center.X,
		Width:   width,
		TopY:    bottom - ChannelHeight,
		BottomY: bottom,
	}

	arg := (width/2 + GapMargin) / d.radius
	if arg > 1 {
		arg = 1
	}
	d.exitGapHalf = math.Asin(arg)
}

// segmentAngle returns the boundary angle of segment i.
func segmentAngle(i int) float64 {
	return 2 * math.Pi * float64(i) / BoundarySegments
}

// addWallSegment places one static rectangle tangent to the container
// circle at the given angle.
func (d *Drum) addWallSegment(label string, theta float64, admits phys.CategorySet) *phys.Body {
	pos := d.center.Plus(phys.NewVec2(math.Cos(theta), math.Sin(theta)).Times(d.radius))
	segLen := 2 * math.Pi * d.radius / BoundarySegments * SegmentOverlap
	body := phys.NewStaticRect(label, pos, segLen, WallThickness, theta+math.Pi/2, phys.CategoryWall, admits)
	return d.world.AddBody(body)
}

// buildBoundary tiles the circle with segments, omitting the load gap at
// the top and the entry gap on the side. Boundary segments block both free
// and ejecting balls.
func (d *Drum) buildBoundary() {
	admits := phys.Admit(phys.CategoryBall, phys.CategoryExiting)
	for i := 0; i < BoundarySegments; i++ {
		theta := segmentAngle(i)
		if angularDistance(theta, exitGapCenter) < LoadGapHalfAngle {
			continue
		}
		if angularDistance(theta, EntryGapAngle) < EntryGapHalfAngle {
			continue
		}
		d.boundary = append(d.boundary, d.addWallSegment("boundary", theta, admits))
	}
}

// buildChannelWalls creates the two vertical tube walls and the one-way
// stopper at the container-side opening. All three admit only free balls:
// ordinary balls are kept out of (and inside) the tube, while an ejecting
// ball passes them and is steered by guidance forces instead.
func (d *Drum) buildChannelWalls() {
	admits := phys.Admit(phys.CategoryBall)
	wallH := ChannelHeight + WallThickness
	midY := (d.channel.TopY + d.channel.BottomY) / 2
	halfSpan := d.channel.Width/2 + ChannelWallWidth/2

	left := phys.NewStaticRect("channel-left",
		phys.NewVec2(d.channel.CenterX-halfSpan, midY),
		ChannelWallWidth, wallH, 0, phys.CategoryWall, admits)
	right := phys.NewStaticRect("channel-right",
		phys.NewVec2(d.channel.CenterX+halfSpan, midY),
		ChannelWallWidth, wallH, 0, phys.CategoryWall, admits)
	d.channelWalls = []*phys.Body{d.world.AddBody(left), d.world.AddBody(right)}

	stopper := phys.NewStaticRect("channel-stopper",
		phys.NewVec2(d.channel.CenterX, d.channel.BottomY),
		d.channel.Width, StopperThickness, 0, phys.CategoryWall, admits)
	d.stopper = d.world.AddBody(stopper)
}

// buildEntryGates covers the entry gap with removable segments.
func (d *Drum) buildEntryGates() {
	admits := phys.Admit(phys.CategoryBall, phys.CategoryExiting)
	for i := 0; i < BoundarySegments; i++ {
		theta := segmentAngle(i)
		if angularDistance(theta, EntryGapAngle) >= EntryGapHalfAngle {
			continue
		}
		d.entryGates = append(d.entryGates, d.addWallSegment("entry-gate", theta, admits))
	}
}

// buildExitGate creates the removable bar across the channel top. It only
// interacts with ejecting balls, so free balls never notice it.
func (d *Drum) buildExitGate() {
	gate := phys.NewStaticRect("exit-gate",
		phys.NewVec2(d.channel.CenterX, d.channel.TopY),
		d.channel.Width+2*ChannelWallWidth, ExitGateThickness, 0,
		phys.CategoryWall, phys.Admit(phys.CategoryExiting))
	d.exitGate = d.world.AddBody(gate)
}

// OpenExitGate removes the bar at the channel top so ejected balls can
// leave. No-op if already open.
func (d *Drum) OpenExitGate() {
	if d.exitGate == nil {
		return
	}
	d.world.RemoveBody(d.exitGate)
	d.exitGate = nil
}

// CloseExitGate recreates the bar. No-op if already closed.
func (d *Drum) CloseExitGate() {
	if d.exitGate != nil {
		return
	}
	d.buildExitGate()
}

// IsExitGateClosed reports whether the gate bar currently exists.
func (d *Drum) IsExitGateClosed() bool {
	return d.exitGate != nil
}

// OpenEntryGate removes the entry-gap segments to represent an open
// intake. SealContainer rebuilds them.
func (d *Drum) OpenEntryGate() {
	for _, g := range d.entryGates {
		d.world.RemoveBody(g)
	}
	d.entryGates = nil
}
