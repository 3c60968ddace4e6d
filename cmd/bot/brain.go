package main

import (
	"math"
	"time"

	"orbarena.io/internal/protocol"
)

// Ranges are a little inside the server's so a stale frame does not waste
// the action.
const (
	pickupReach  = 26
	stealReach   = 36
	hitReach     = 45
	guardRadius  = 180
	arriveRadius = 4

	hitEvery = 250 * time.Millisecond
)

type brain struct {
	id      string
	arena   protocol.ArenaParams
	lastBB  time.Time
	lastHit time.Time

	// last movement sent, so steady state does not flood the socket.
	moving  bool
	lastDir [2]float64
}

func newBrain(w protocol.WelcomeMsg) *brain {
	return &brain{id: w.PlayerID, arena: w.Arena}
}

// decide maps one state frame to the actions worth sending.
func (b *brain) decide(st protocol.StateMsg, now time.Time) []protocol.ActionMsg {
	me, ok := st.Players[b.id]
	if !ok || me.Stunned {
		b.moving = false
		return nil
	}
	home := st.Bases.Red
	if me.Team == "blue" {
		home = st.Bases.Blue
	}

	var out []protocol.ActionMsg
	if hit, ok := b.blockingBarrier(st, me); ok && now.Sub(b.lastHit) >= hitEvery {
		b.lastHit = now
		out = append(out, protocol.ActionMsg{Type: protocol.TypeHitBarrier, BarrierID: hit})
	}

	orb := st.Orb
	switch {
	case orb.Holder != nil && *orb.Holder == b.id:
		// Carry home and drop well inside the radius.
		if dist(orb.X, orb.Y, home.X, home.Y) < home.Radius/2 {
			out = append(out, protocol.ActionMsg{Type: protocol.TypeOrbAction})
			return append(out, b.stop()...)
		}
		return append(out, b.moveToward(me, home.X, home.Y)...)

	case orb.Holder != nil:
		h := st.Players[*orb.Holder]
		if h.Team == me.Team {
			return append(out, b.moveToward(me, h.X, h.Y)...)
		}
		if dist(me.X, me.Y, h.X, h.Y) < stealReach {
			out = append(out, protocol.ActionMsg{Type: protocol.TypeOrbAction})
		}
		return append(out, b.moveToward(me, h.X, h.Y)...)

	case dist(orb.X, orb.Y, home.X, home.Y) <= home.Radius:
		// Scoring for us: leave it alone and wall off the nearest opponent.
		if opp, ok := nearestOpponent(st, me, orb.X, orb.Y); ok &&
			dist(opp.X, opp.Y, orb.X, orb.Y) < guardRadius && b.barrierReady(now) {
			x, y := (opp.X+orb.X)/2, (opp.Y+orb.Y)/2
			b.lastBB = now
			out = append(out, protocol.ActionMsg{Type: protocol.TypeCreateBarrier, X: &x, Y: &y})
		}
		return append(out, b.stop()...)

	default:
		if dist(me.X, me.Y, orb.X, orb.Y) < pickupReach {
			out = append(out, protocol.ActionMsg{Type: protocol.TypeOrbAction})
		}
		return append(out, b.moveToward(me, orb.X, orb.Y)...)
	}
}

func (b *brain) barrierReady(now time.Time) bool {
	cd := time.Duration(b.arena.BarrierCooldownMs) * time.Millisecond
	return b.lastBB.IsZero() || now.Sub(b.lastBB) >= cd
}

// blockingBarrier returns an opposing barrier close enough to be in the way.
func (b *brain) blockingBarrier(st protocol.StateMsg, me protocol.PlayerView) (string, bool) {
	for _, bar := range st.Barriers {
		if bar.Team != me.Team && dist(me.X, me.Y, bar.X, bar.Y) < hitReach {
			return bar.ID, true
		}
	}
	return "", false
}

func (b *brain) moveToward(me protocol.PlayerView, x, y float64) []protocol.ActionMsg {
	dx, dy := x-me.X, y-me.Y
	l := math.Hypot(dx, dy)
	if l < arriveRadius {
		return b.stop()
	}
	dir := [2]float64{round1(dx / l), round1(dy / l)}
	if b.moving && dir == b.lastDir {
		return nil
	}
	b.moving, b.lastDir = true, dir
	return []protocol.ActionMsg{{Type: protocol.TypeMoveStart, DX: dir[0], DY: dir[1]}}
}

func (b *brain) stop() []protocol.ActionMsg {
	if !b.moving {
		return nil
	}
	b.moving = false
	return []protocol.ActionMsg{{Type: protocol.TypeMoveEnd}}
}

func nearestOpponent(st protocol.StateMsg, me protocol.PlayerView, x, y float64) (protocol.PlayerView, bool) {
	var best protocol.PlayerView
	bestD := math.Inf(1)
	for _, p := range st.Players {
		if p.Team == me.Team {
			continue
		}
		if d := dist(p.X, p.Y, x, y); d < bestD {
			best, bestD = p, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

func dist(ax, ay, bx, by float64) float64 { return math.Hypot(ax-bx, ay-by) }

// round1 quantizes directions so small jitter does not resend movement.
func round1(v float64) float64 { return math.Round(v*10) / 10 }
