package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int     `yaml:"tick_rate_hz"`
	Arena      Arena   `yaml:"arena"`
	Player     Player  `yaml:"player"`
	Orb        Orb     `yaml:"orb"`
	Bases      Bases   `yaml:"bases"`
	Barrier    Barrier `yaml:"barrier"`
	Match      Match   `yaml:"match"`

	ClientQueue int `yaml:"client_queue"`
}

type Arena struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type Player struct {
	Size             float64 `yaml:"size"`
	Speed            float64 `yaml:"speed"`
	HolderSpeedScale float64 `yaml:"holder_speed_scale"`
	StunMs           int     `yaml:"stun_ms"`
}

type Orb struct {
	PickupRange float64 `yaml:"pickup_range"`
	StealRange  float64 `yaml:"steal_range"`
	ThrowSpeed  float64 `yaml:"throw_speed"`
	Friction    float64 `yaml:"friction"`
	WallDamping float64 `yaml:"wall_damping"`
	RestEpsilon float64 `yaml:"rest_epsilon"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Bases struct {
	CaptureRadius float64 `yaml:"capture_radius"`
	Red           Point   `yaml:"red"`
	Blue          Point   `yaml:"blue"`
}

type Barrier struct {
	Health     int     `yaml:"health"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	CooldownMs int     `yaml:"cooldown_ms"`
	LifetimeMs int     `yaml:"lifetime_ms"`
}

type Match struct {
	WinThresholdMs int `yaml:"win_threshold_ms"`
	// 0 leaves a finished match on screen until an admin reset.
	AutoResetMs int `yaml:"auto_reset_ms"`
}

// Defaults mirrors configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      60,
		Arena:           Arena{Width: 1080, Height: 720},
		Player: Player{
			Size:             20,
			Speed:            200,
			HolderSpeedScale: 0.75,
			StunMs:           3000,
		},
		Orb: Orb{
			PickupRange: 30,
			StealRange:  40,
			ThrowSpeed:  600,
			Friction:    0.98,
			WallDamping: 0.7,
			RestEpsilon: 1,
		},
		Bases: Bases{
			CaptureRadius: 60,
			Red:           Point{X: 100, Y: 360},
			Blue:          Point{X: 980, Y: 360},
		},
		Barrier: Barrier{
			Health:     3,
			Width:      30,
			Height:     60,
			CooldownMs: 5000,
			LifetimeMs: 10000,
		},
		Match:       Match{WinThresholdMs: 50000},
		ClientQueue: 32,
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0 || t.TickRateHz > 240:
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	case t.Arena.Width <= 0 || t.Arena.Height <= 0:
		return fmt.Errorf("arena size must be positive")
	case t.Player.Size <= 0 || t.Player.Size >= t.Arena.Width || t.Player.Size >= t.Arena.Height:
		return fmt.Errorf("player.size out of range: %v", t.Player.Size)
	case t.Orb.Friction <= 0 || t.Orb.Friction > 1:
		return fmt.Errorf("orb.friction must be in (0,1]: %v", t.Orb.Friction)
	case t.Orb.WallDamping <= 0 || t.Orb.WallDamping >= 1:
		return fmt.Errorf("orb.wall_damping must be in (0,1): %v", t.Orb.WallDamping)
	case t.Player.Speed <= 0 || t.Player.StunMs <= 0:
		return fmt.Errorf("player.speed and player.stun_ms must be positive")
	case t.Player.HolderSpeedScale <= 0 || t.Player.HolderSpeedScale > 1:
		return fmt.Errorf("player.holder_speed_scale must be in (0,1]: %v", t.Player.HolderSpeedScale)
	case t.Orb.PickupRange <= 0 || t.Orb.StealRange <= 0 || t.Orb.ThrowSpeed <= 0 || t.Orb.RestEpsilon <= 0:
		return fmt.Errorf("orb ranges, throw_speed and rest_epsilon must be positive")
	case t.Bases.CaptureRadius <= 0:
		return fmt.Errorf("bases.capture_radius must be positive")
	case t.Barrier.Health <= 0 || t.Barrier.Width <= 0 || t.Barrier.Height <= 0 ||
		t.Barrier.CooldownMs <= 0 || t.Barrier.LifetimeMs <= 0:
		return fmt.Errorf("barrier values must be positive")
	case t.Match.WinThresholdMs <= 0:
		return fmt.Errorf("match.win_threshold_ms must be positive")
	case t.Match.AutoResetMs < 0:
		return fmt.Errorf("match.auto_reset_ms must not be negative")
	}
	return nil
}
