package world

import "orbarena.io/internal/sim/arena"

type EventLogger interface {
	WriteEvent(entry EventEntry) error
}

// EventEntry is one match event as written to the event log and index.
type EventEntry struct {
	Tick    uint64  `json:"tick"`
	TimeMS  int64   `json:"ts_ms"`
	WorldID string  `json:"world_id"`
	MatchID string  `json:"match_id"`
	Kind    string  `json:"kind"`
	Actor   string  `json:"actor,omitempty"`
	Target  string  `json:"target,omitempty"`
	Team    string  `json:"team,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (w *World) flushEvents() {
	events := w.state.DrainEvents()
	if len(events) == 0 {
		return
	}
	tick := w.tick.Load()
	for _, e := range events {
		switch e.Kind {
		case arena.EventMatchStart:
			w.logf("world %s: match %s started", w.cfg.ID, e.MatchID)
		case arena.EventWin:
			w.logf("world %s: match %s won by %s", w.cfg.ID, e.MatchID, e.Team)
		}
		if w.eventLogger == nil {
			continue
		}
		entry := EventEntry{
			Tick:    tick,
			TimeMS:  e.At.UnixMilli(),
			WorldID: w.cfg.ID,
			MatchID: e.MatchID,
			Kind:    string(e.Kind),
			Actor:   e.Actor,
			Target:  e.Target,
			Team:    string(e.Team),
			X:       e.Pos.X,
			Y:       e.Pos.Y,
		}
		if err := w.eventLogger.WriteEvent(entry); err != nil {
			w.logf("world %s: event log: %v", w.cfg.ID, err)
		}
	}
}
