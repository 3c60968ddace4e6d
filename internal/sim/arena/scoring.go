package arena

import "time"

// score accrues capture time while the orb rests unheld inside a base's
// radius. Both bases are checked every tick; config validation keeps the
// circles disjoint, so at most one accrues. Once a winner is latched progress
// is frozen until Reset.
func (s *State) score(dt time.Duration, now time.Time) (accrued bool, win Team) {
	if s.orb.Mode != OrbResting || s.winner != "" {
		return false, ""
	}
	for _, b := range s.bases {
		if s.orb.Pos.Dist(b.Pos) > b.Radius {
			continue
		}
		s.progress[b.Team] += dt
		accrued = true
		if win == "" && s.progress[b.Team] >= s.cfg.WinThreshold {
			win = b.Team
		}
	}
	if win != "" {
		s.winner = win
		s.emit(Event{Kind: EventWin, At: now, Team: win, Pos: s.orb.Pos})
		if s.cfg.AutoResetAfter > 0 {
			s.sched.schedule(now.Add(s.cfg.AutoResetAfter), effectMatchReset, s.matchID)
		}
	}
	return accrued, win
}
