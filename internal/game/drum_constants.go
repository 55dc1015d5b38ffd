package game

import "math"

// Tuning constants for the lottery drum simulation. The force model is a
// stylized approximation tuned for visual plausibility, not a fluid solver.
// These MUST match the viewer-side constants exactly so mirrored drums on
// other instances replay identically.

const (
	// Container / geometry
	BoundarySegments = 90
	WallThickness    = 12.0
	SegmentOverlap   = 1.25
	GapMargin        = 24.0
	CanvasMargin     = 16.0

	// Background anchoring: the drum artwork is drawn with CSS-style
	// "cover" scaling; the container circle sits at a fixed anchor point
	// of the image and its radius is a fixed ratio of the displayed height.
	BaseImageWidth    = 1920.0
	BaseImageHeight   = 1080.0
	AnchorXRatio      = 0.5
	AnchorYRatio      = 0.55
	RadiusHeightRatio = 0.36

	// Exit channel
	ChannelHeight    = 140.0
	ChannelWallWidth = 10.0
	ChannelClearance = 14.0
	MinChannelWidth  = 50.0

	// Gap arcs. The load gap at the top admits falling balls before the
	// container is sealed; sealing narrows it to the exit-only arc derived
	// from the channel width.
	LoadGapHalfAngle  = 0.62
	EntryGapHalfAngle = 0.30
	EntryGapAngle     = -math.Pi / 6

	// Balls
	DefaultBallRadius = 16.0
	SpawnInterval     = 0.08
	SpawnJitterX      = 40.0
	SpawnJitterY      = 30.0

	// Gravity regimes
	GravityY           = 900.0
	SealedGravityScale = 0.3

	// Friction / restitution profiles
	SettledFrictionAir = 0.05
	SettledRestitution = 0.3
	FluidFrictionAir   = 0.01
	FluidRestitution   = 0.85

	// Boundary enforcement
	RescueThresholdFrac = 0.95
	RescueSafeFrac      = 0.5
	HardBoundaryFrac    = 0.92
	ClampInsetFrac      = 0.88

	// Turbulence force model
	VortexOffsetFrac   = 0.35
	VortexBlendHalf    = 30.0
	SwirlStrength      = 260.0
	NoiseStrength      = 120.0
	BurstChancePerSec  = 1.2
	BurstMinForce      = 250.0
	BurstMaxForce      = 600.0
	CenteringStartFrac = 0.7
	CenteringStrength  = 4.0
	FountainStrength   = 380.0
	TurbulenceKickMin  = 120.0
	TurbulenceKickMax  = 260.0
	MaxTurbulenceSpeed = 420.0
	DefaultSwirl       = 1.0

	// Ejection guidance
	RiseForceBase     = 300.0
	RiseForceMax      = 900.0
	RiseSideBase      = 120.0
	RiseSideMax       = 360.0
	RiseRampDuration  = 1.5
	RiseSpeedCap      = 240.0
	EnterRadius       = 30.0
	EnterUpForce      = 640.0
	EnterSideForce    = 120.0
	EnterAdvance      = 10.0
	ExitMargin        = 20.0
	EjectTimeout      = 8.0
	ExitGateThickness = 10.0
	StopperThickness  = 8.0
)

// exitGapCenter is the angle of the exit opening at the top of the
// container (canvas coordinates: y grows downward, so top is -pi/2).
const exitGapCenter = -math.Pi / 2
