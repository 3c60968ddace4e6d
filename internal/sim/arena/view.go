package arena

import (
	"time"

	"orbarena.io/internal/protocol"
)

// View builds the broadcast document for the current state.
func (s *State) View(tick uint64) protocol.StateMsg {
	m := protocol.StateMsg{
		Type:     protocol.TypeGameState,
		Tick:     tick,
		MatchID:  s.matchID,
		Players:  make(map[string]protocol.PlayerView, len(s.players)),
		Barriers: make([]protocol.BarrierView, 0, len(s.barriers)),
		Orb:      protocol.OrbView{X: s.orb.Pos.X, Y: s.orb.Pos.Y},
		TeamProgress: protocol.ProgressView{
			Red:  durationMs(s.progress[TeamRed]),
			Blue: durationMs(s.progress[TeamBlue]),
		},
	}
	for id, p := range s.players {
		pv := protocol.PlayerView{
			X:       p.Pos.X,
			Y:       p.Pos.Y,
			Score:   p.Score,
			Team:    string(p.Team),
			Stunned: p.Stunned,
		}
		if p.Stunned {
			pv.StunEndTime = p.StunUntil.UnixMilli()
		}
		m.Players[id] = pv
	}
	if id, ok := s.orb.Holder(); ok {
		m.Orb.Holder = &id
	}
	for _, b := range s.bases {
		bv := protocol.BaseView{X: b.Pos.X, Y: b.Pos.Y, Radius: b.Radius}
		if b.Team == TeamRed {
			m.Bases.Red = bv
		} else {
			m.Bases.Blue = bv
		}
	}
	for _, b := range s.barriers {
		m.Barriers = append(m.Barriers, protocol.BarrierView{
			ID:        b.ID,
			X:         b.Pos.X,
			Y:         b.Pos.Y,
			Team:      string(b.Team),
			Health:    b.Health,
			CreatedAt: b.CreatedAt.UnixMilli(),
		})
	}
	return m
}

func durationMs(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
