package arena

import (
	"fmt"
	"time"

	"orbarena.io/internal/protocol"
)

// Config holds the per-match constants. Zero fields take the defaults below.
type Config struct {
	TickRateHz int

	Width      float64
	Height     float64
	PlayerSize float64

	PlayerSpeed      float64 // units per second
	HolderSpeedScale float64
	StunDuration     time.Duration

	PickupRange float64
	StealRange  float64
	ThrowSpeed  float64 // units per second
	OrbFriction float64 // velocity multiplier per tick
	WallDamping float64
	RestEpsilon float64 // units per second, per axis

	CaptureRadius float64
	RedBase       Vec2
	BlueBase      Vec2
	WinThreshold  time.Duration

	BarrierHealth   int
	BarrierWidth    float64
	BarrierHeight   float64
	BarrierCooldown time.Duration
	BarrierLifetime time.Duration

	// 0 disables the automatic reset after a win.
	AutoResetAfter time.Duration
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 60
	}
	if c.Width <= 0 {
		c.Width = 1080
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.PlayerSize <= 0 {
		c.PlayerSize = 20
	}
	if c.PlayerSpeed <= 0 {
		c.PlayerSpeed = 200
	}
	if c.HolderSpeedScale <= 0 {
		c.HolderSpeedScale = 0.75
	}
	if c.StunDuration <= 0 {
		c.StunDuration = 3 * time.Second
	}
	if c.PickupRange <= 0 {
		c.PickupRange = 30
	}
	if c.StealRange <= 0 {
		c.StealRange = 40
	}
	if c.ThrowSpeed <= 0 {
		c.ThrowSpeed = 600
	}
	if c.OrbFriction <= 0 {
		c.OrbFriction = 0.98
	}
	if c.WallDamping <= 0 {
		c.WallDamping = 0.7
	}
	if c.RestEpsilon <= 0 {
		c.RestEpsilon = 1
	}
	if c.CaptureRadius <= 0 {
		c.CaptureRadius = 60
	}
	if c.RedBase == (Vec2{}) {
		c.RedBase = Vec2{X: 100, Y: c.Height / 2}
	}
	if c.BlueBase == (Vec2{}) {
		c.BlueBase = Vec2{X: c.Width - 100, Y: c.Height / 2}
	}
	if c.WinThreshold <= 0 {
		c.WinThreshold = 50 * time.Second
	}
	if c.BarrierHealth <= 0 {
		c.BarrierHealth = 3
	}
	if c.BarrierWidth <= 0 {
		c.BarrierWidth = 30
	}
	if c.BarrierHeight <= 0 {
		c.BarrierHeight = 60
	}
	if c.BarrierCooldown <= 0 {
		c.BarrierCooldown = 5 * time.Second
	}
	if c.BarrierLifetime <= 0 {
		c.BarrierLifetime = 10 * time.Second
	}
	if c.AutoResetAfter < 0 {
		c.AutoResetAfter = 0
	}
}

// Validate checks invariants the defaults cannot repair. Overlapping capture
// circles are rejected so the scoring loop never has to break a tie.
func (c Config) Validate() error {
	if c.PlayerSize >= c.Width || c.PlayerSize >= c.Height {
		return fmt.Errorf("player size %v does not fit arena %vx%v", c.PlayerSize, c.Width, c.Height)
	}
	if c.OrbFriction > 1 {
		return fmt.Errorf("orb friction must be <= 1, got %v", c.OrbFriction)
	}
	if c.WallDamping >= 1 {
		return fmt.Errorf("wall damping must be < 1, got %v", c.WallDamping)
	}
	for _, b := range []struct {
		name string
		pos  Vec2
	}{{"red base", c.RedBase}, {"blue base", c.BlueBase}} {
		if b.pos.X < 0 || b.pos.X > c.Width || b.pos.Y < 0 || b.pos.Y > c.Height {
			return fmt.Errorf("%s (%v,%v) outside arena", b.name, b.pos.X, b.pos.Y)
		}
	}
	if d := c.RedBase.Dist(c.BlueBase); d <= 2*c.CaptureRadius {
		return fmt.Errorf("capture radii overlap: bases %.1f apart, radius %.1f", d, c.CaptureRadius)
	}
	return nil
}

// TickDuration is the fixed simulation step.
func (c Config) TickDuration() time.Duration {
	hz := c.TickRateHz
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}

func (c Config) ArenaParams() protocol.ArenaParams {
	return protocol.ArenaParams{
		Width:             c.Width,
		Height:            c.Height,
		PlayerSize:        c.PlayerSize,
		TickRateHz:        c.TickRateHz,
		CaptureRadius:     c.CaptureRadius,
		WinThresholdMs:    c.WinThreshold.Milliseconds(),
		BarrierWidth:      c.BarrierWidth,
		BarrierHeight:     c.BarrierHeight,
		BarrierLifetimeMs: c.BarrierLifetime.Milliseconds(),
		BarrierCooldownMs: c.BarrierCooldown.Milliseconds(),
	}
}
