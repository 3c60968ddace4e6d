package arena

import (
	"fmt"
	"time"
)

// Action handlers. Each one either mutates the state and reports true, or
// leaves it untouched and reports false: unknown actors and failed
// preconditions are silent no-ops.

// Join adds a player with a random spawn point and a random team.
func (s *State) Join(id string, now time.Time) bool {
	if id == "" {
		return false
	}
	if _, ok := s.players[id]; ok {
		return false
	}
	team := TeamRed
	if s.rng.Intn(2) == 1 {
		team = TeamBlue
	}
	p := &Player{ID: id, Team: team, Pos: s.spawnPos()}
	s.players[id] = p
	s.emit(Event{Kind: EventJoin, At: now, Actor: id, Team: team, Pos: p.Pos})
	return true
}

// SetMoveIntent sets the direction the integrator moves the player in.
// Directions longer than 1 are normalized; a zero vector clears the intent.
func (s *State) SetMoveIntent(id string, dx, dy float64) bool {
	p := s.active(id)
	if p == nil {
		return false
	}
	d := Vec2{X: dx, Y: dy}
	if !d.finite() {
		return false
	}
	l := d.Len()
	if l == 0 {
		return s.clearIntent(p)
	}
	if l > 1 {
		d = d.Scale(1 / l)
	}
	if p.Moving && p.Dir == d {
		return false
	}
	p.Dir = d
	p.Moving = true
	return true
}

func (s *State) ClearMoveIntent(id string) bool {
	p := s.active(id)
	if p == nil {
		return false
	}
	return s.clearIntent(p)
}

func (s *State) clearIntent(p *Player) bool {
	if !p.Moving && p.Dir == (Vec2{}) {
		return false
	}
	p.Dir = Vec2{}
	p.Moving = false
	return true
}

// OrbAction drops the orb if the actor holds it, steals it from an opposing
// holder in range, or picks up a free orb in range.
func (s *State) OrbAction(id string, now time.Time) bool {
	p := s.active(id)
	if p == nil {
		return false
	}

	if holderID, held := s.orb.Holder(); held {
		if holderID == id {
			s.orb.rest()
			s.emit(Event{Kind: EventDrop, At: now, Actor: id, Team: p.Team, Pos: s.orb.Pos})
			return true
		}
		h := s.players[holderID]
		if h.Team == p.Team || p.Pos.Dist(h.Pos) >= s.cfg.StealRange {
			return false
		}
		s.orb.hold(id, p.Pos)
		p.Score++
		s.stun(h, now)
		s.emit(Event{Kind: EventSteal, At: now, Actor: id, Target: h.ID, Team: p.Team, Pos: p.Pos})
		return true
	}

	if p.Pos.Dist(s.orb.Pos) >= s.cfg.PickupRange {
		return false
	}
	s.orb.hold(id, p.Pos)
	s.emit(Event{Kind: EventPickup, At: now, Actor: id, Team: p.Team, Pos: p.Pos})
	return true
}

// stun disables p until now+StunDuration. Only the scheduled expiry clears it.
func (s *State) stun(p *Player, now time.Time) {
	p.Stunned = true
	p.StunUntil = now.Add(s.cfg.StunDuration)
	p.Dir = Vec2{}
	p.Moving = false
	s.sched.schedule(p.StunUntil, effectStunExpire, p.ID)
}

// Throw launches a held orb toward (tx, ty) at ThrowSpeed.
func (s *State) Throw(id string, tx, ty float64, now time.Time) bool {
	p, ok := s.players[id]
	if !ok || !s.orb.heldBy(id) {
		return false
	}
	dir := Vec2{X: tx, Y: ty}.Sub(s.orb.Pos)
	l := dir.Len()
	if l == 0 || !isFinite(l) {
		return false
	}
	s.orb.launch(dir.Scale(s.cfg.ThrowSpeed / l))
	s.emit(Event{Kind: EventThrow, At: now, Actor: id, Team: p.Team, Pos: s.orb.Pos})
	return true
}

func (s *State) SwitchTeam(id string, now time.Time) bool {
	p, ok := s.players[id]
	if !ok {
		return false
	}
	p.Team = p.Team.Other()
	s.emit(Event{Kind: EventTeamSwitch, At: now, Actor: id, Team: p.Team, Pos: p.Pos})
	return true
}

// CreateBarrier places a barrier at at (clamped to the arena) or, when at is
// nil, at the actor's position.
func (s *State) CreateBarrier(id string, at *Vec2, now time.Time) bool {
	p := s.active(id)
	if p == nil || s.orb.heldBy(id) {
		return false
	}
	if !p.LastBarrierAt.IsZero() && now.Sub(p.LastBarrierAt) < s.cfg.BarrierCooldown {
		return false
	}
	pos := p.Pos
	if at != nil {
		if !at.finite() {
			return false
		}
		pos = Vec2{X: clamp(at.X, 0, s.cfg.Width), Y: clamp(at.Y, 0, s.cfg.Height)}
	}
	s.barrierSeq++
	b := &Barrier{
		ID:        fmt.Sprintf("b%d", s.barrierSeq),
		Pos:       pos,
		Team:      p.Team,
		Health:    s.cfg.BarrierHealth,
		CreatedAt: now,
	}
	s.barriers = append(s.barriers, b)
	p.LastBarrierAt = now
	s.sched.schedule(now.Add(s.cfg.BarrierLifetime), effectBarrierExpire, b.ID)
	s.emit(Event{Kind: EventBarrierPlaced, At: now, Actor: id, Target: b.ID, Team: b.Team, Pos: b.Pos})
	return true
}

// HitBarrier damages an opposing barrier and removes it at zero health.
func (s *State) HitBarrier(id, barrierID string, now time.Time) bool {
	p, ok := s.players[id]
	if !ok {
		return false
	}
	i := s.barrierIndex(barrierID)
	if i < 0 {
		return false
	}
	b := s.barriers[i]
	if b.Team == p.Team {
		return false
	}
	b.Health--
	if b.Health <= 0 {
		s.removeBarrier(i)
		s.emit(Event{Kind: EventBarrierDestroyed, At: now, Actor: id, Target: b.ID, Team: b.Team, Pos: b.Pos})
	}
	return true
}

// Leave removes the player. A held orb is released where it is; pending
// effects naming the player become no-ops.
func (s *State) Leave(id string, now time.Time) bool {
	p, ok := s.players[id]
	if !ok {
		return false
	}
	if s.orb.heldBy(id) {
		s.orb.rest()
	}
	delete(s.players, id)
	s.emit(Event{Kind: EventLeave, At: now, Actor: id, Team: p.Team, Pos: p.Pos})
	return true
}
