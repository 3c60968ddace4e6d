package arena

import (
	"math"
	"time"
)

type TickResult struct {
	// Changed is true when anything visible in the broadcast moved or changed.
	Changed bool
	// Win names the team that crossed the threshold this tick, if any.
	Win Team
	// Reset is true when a scheduled match reset fired this tick.
	Reset bool
}

// Tick advances the match by one fixed step: due effects first, then player
// movement, then orb flight, then scoring.
func (s *State) Tick(now time.Time) TickResult {
	var res TickResult
	dt := s.cfg.TickDuration()

	if s.runEffects(now, &res) {
		res.Changed = true
	}
	if s.movePlayers(dt.Seconds()) {
		res.Changed = true
	}
	if s.stepOrb(dt.Seconds()) {
		res.Changed = true
	}
	if accrued, win := s.score(dt, now); accrued {
		res.Changed = true
		res.Win = win
	}
	return res
}

func (s *State) runEffects(now time.Time, res *TickResult) bool {
	changed := false
	for {
		e, ok := s.sched.popDue(now)
		if !ok {
			return changed
		}
		switch e.kind {
		case effectStunExpire:
			p, ok := s.players[e.target]
			// A stale effect (player gone, or stunned again later) is ignored.
			if !ok || !p.Stunned || !p.StunUntil.Equal(e.at) {
				continue
			}
			p.Stunned = false
			p.StunUntil = time.Time{}
			changed = true
		case effectBarrierExpire:
			i := s.barrierIndex(e.target)
			if i < 0 {
				continue
			}
			b := s.removeBarrier(i)
			s.emit(Event{Kind: EventBarrierExpired, At: now, Target: b.ID, Team: b.Team, Pos: b.Pos})
			changed = true
		case effectMatchReset:
			if e.target != s.matchID {
				continue
			}
			s.Reset(now)
			res.Reset = true
			changed = true
		}
	}
}

// movePlayers integrates every moving, non-stunned player. A proposed
// position that overlaps an opposing barrier is rejected whole.
func (s *State) movePlayers(dt float64) bool {
	changed := false
	for _, id := range s.PlayerIDs() {
		p := s.players[id]
		if !p.Moving || p.Stunned {
			continue
		}
		speed := s.cfg.PlayerSpeed
		holding := s.orb.heldBy(id)
		if holding {
			speed *= s.cfg.HolderSpeedScale
		}
		next := s.clampPlayer(p.Pos.Add(p.Dir.Scale(speed * dt)))
		if next == p.Pos || s.blocked(p.Team, next) {
			continue
		}
		p.Pos = next
		if holding {
			s.orb.Pos = next
		}
		changed = true
	}
	return changed
}

// stepOrb moves a free-flying orb, bouncing off the arena edges with damping
// and decaying velocity by friction until it comes to rest.
func (s *State) stepOrb(dt float64) bool {
	if s.orb.Mode != OrbInFlight {
		return false
	}
	o := &s.orb
	o.Pos = o.Pos.Add(o.vel.Scale(dt))

	if o.Pos.X < 0 {
		o.Pos.X = 0
		o.vel.X = -o.vel.X * s.cfg.WallDamping
	} else if o.Pos.X > s.cfg.Width {
		o.Pos.X = s.cfg.Width
		o.vel.X = -o.vel.X * s.cfg.WallDamping
	}
	if o.Pos.Y < 0 {
		o.Pos.Y = 0
		o.vel.Y = -o.vel.Y * s.cfg.WallDamping
	} else if o.Pos.Y > s.cfg.Height {
		o.Pos.Y = s.cfg.Height
		o.vel.Y = -o.vel.Y * s.cfg.WallDamping
	}

	o.vel = o.vel.Scale(s.cfg.OrbFriction)
	if math.Abs(o.vel.X) < s.cfg.RestEpsilon && math.Abs(o.vel.Y) < s.cfg.RestEpsilon {
		o.rest()
	}
	return true
}
