package protocol

// welcome (server -> client), sent once right after the upgrade.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	Spectator       bool        `json:"spectator,omitempty"`
	MatchID         string      `json:"match_id"`
	Arena           ArenaParams `json:"arena"`
}

type ArenaParams struct {
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	PlayerSize        float64 `json:"player_size"`
	TickRateHz        int     `json:"tick_rate_hz"`
	CaptureRadius     float64 `json:"capture_radius"`
	WinThresholdMs    int64   `json:"win_threshold_ms"`
	BarrierWidth      float64 `json:"barrier_width"`
	BarrierHeight     float64 `json:"barrier_height"`
	BarrierLifetimeMs int64   `json:"barrier_lifetime_ms"`
	BarrierCooldownMs int64   `json:"barrier_cooldown_ms"`
}

// ActionMsg is the union of every client action payload. Fields not used by
// Type are ignored.
type ActionMsg struct {
	Type string `json:"type"`

	// move / moveStart
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// throwOrb
	TargetX float64 `json:"targetX,omitempty"`
	TargetY float64 `json:"targetY,omitempty"`

	// createBarrier; both must be set to override the actor position.
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// hitBarrier
	BarrierID string `json:"barrierId,omitempty"`
}

// gameState (server -> client). Field names follow the browser client.
type StateMsg struct {
	Type         string                `json:"type"`
	Tick         uint64                `json:"tick"`
	MatchID      string                `json:"matchId"`
	Players      map[string]PlayerView `json:"players"`
	Orb          OrbView               `json:"orb"`
	Bases        BasesView             `json:"bases"`
	TeamProgress ProgressView          `json:"teamProgress"`
	Barriers     []BarrierView         `json:"barriers"`
}

type PlayerView struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Score   int     `json:"score"`
	Team    string  `json:"team"`
	Stunned bool    `json:"stunned"`
	// Unix ms; 0 when not stunned.
	StunEndTime int64 `json:"stunEndTime"`
}

type OrbView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Holder *string `json:"holder"`
}

type BaseView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type BasesView struct {
	Red  BaseView `json:"red"`
	Blue BaseView `json:"blue"`
}

type ProgressView struct {
	Red  float64 `json:"red"`
	Blue float64 `json:"blue"`
}

type BarrierView struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Team      string  `json:"team"`
	Health    int     `json:"health"`
	CreatedAt int64   `json:"createdAt"`
}

// win (server -> client), sent once per match.
type WinMsg struct {
	Type    string `json:"type"`
	Winner  string `json:"winner"`
	MatchID string `json:"matchId"`
}
