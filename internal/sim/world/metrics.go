package world

import "orbarena.io/internal/sim/arena"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick    uint64 `json:"tick"`
	MatchID string `json:"match_id"`

	Players    int `json:"players"`
	Clients    int `json:"clients"`
	Spectators int `json:"spectators"`
	Barriers   int `json:"barriers"`

	OrbMode        string  `json:"orb_mode"`
	RedProgressMS  float64 `json:"red_progress_ms"`
	BlueProgressMS float64 `json:"blue_progress_ms"`
	Winner         string  `json:"winner,omitempty"`

	ResetTotal     uint64 `json:"reset_total"`
	BroadcastTotal uint64 `json:"broadcast_total"`
	PendingEffects int    `json:"pending_effects"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics() {
	spectators := 0
	for _, c := range w.clients {
		if c.Spectator {
			spectators++
		}
	}
	winner, _ := w.state.Winner()
	w.metrics.Store(WorldMetrics{
		Tick:           w.tick.Load(),
		MatchID:        w.state.MatchID(),
		Players:        w.state.NumPlayers(),
		Clients:        len(w.clients),
		Spectators:     spectators,
		Barriers:       w.state.NumBarriers(),
		OrbMode:        w.state.Orb().Mode.String(),
		RedProgressMS:  w.state.Progress(arena.TeamRed).Seconds() * 1000,
		BlueProgressMS: w.state.Progress(arena.TeamBlue).Seconds() * 1000,
		Winner:         string(winner),
		ResetTotal:     w.resetTotal,
		BroadcastTotal: w.broadcasts,
		PendingEffects: w.state.PendingEffects(),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS: w.lastStepMS,
	})
}
