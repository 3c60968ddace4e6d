package arena

import (
	"math"
	"time"
)

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func (t Team) Other() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2        { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2        { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2   { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Len() float64           { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64    { return v.Sub(o).Len() }
func (v Vec2) finite() bool           { return isFinite(v.X) && isFinite(v.Y) }
func isFinite(f float64) bool         { return !math.IsNaN(f) && !math.IsInf(f, 0) }
func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

// rect is an axis-aligned box. Touching edges do not overlap.
type rect struct {
	minX, minY, maxX, maxY float64
}

func (r rect) overlaps(o rect) bool {
	return r.minX < o.maxX && o.minX < r.maxX && r.minY < o.maxY && o.minY < r.maxY
}

// Player positions are the top-left corner of a size×size footprint.
type Player struct {
	ID    string
	Pos   Vec2
	Team  Team
	Score int

	Dir    Vec2
	Moving bool

	Stunned   bool
	StunUntil time.Time

	// Zero until the first placement.
	LastBarrierAt time.Time
}

type OrbMode uint8

const (
	OrbResting OrbMode = iota
	OrbHeld
	OrbInFlight
)

func (m OrbMode) String() string {
	switch m {
	case OrbHeld:
		return "held"
	case OrbInFlight:
		return "in_flight"
	default:
		return "resting"
	}
}

// Orb carries its mode explicitly. holder is set only while Held and vel only
// while InFlight; the transition methods keep that true.
type Orb struct {
	Pos  Vec2
	Mode OrbMode

	holder string
	vel    Vec2
}

func (o Orb) Holder() (string, bool) {
	if o.Mode != OrbHeld {
		return "", false
	}
	return o.holder, true
}

func (o Orb) Velocity() Vec2 {
	if o.Mode != OrbInFlight {
		return Vec2{}
	}
	return o.vel
}

func (o Orb) heldBy(id string) bool { return o.Mode == OrbHeld && o.holder == id }

func (o *Orb) hold(id string, at Vec2) {
	o.Mode = OrbHeld
	o.holder = id
	o.vel = Vec2{}
	o.Pos = at
}

func (o *Orb) rest() {
	o.Mode = OrbResting
	o.holder = ""
	o.vel = Vec2{}
}

func (o *Orb) launch(v Vec2) {
	o.Mode = OrbInFlight
	o.holder = ""
	o.vel = v
}

// Barrier positions are the centre of the box.
type Barrier struct {
	ID        string
	Pos       Vec2
	Team      Team
	Health    int
	CreatedAt time.Time
}

type Base struct {
	Team   Team
	Pos    Vec2
	Radius float64
}
