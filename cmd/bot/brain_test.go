package main

import (
	"testing"
	"time"

	"orbarena.io/internal/protocol"
)

func strp(s string) *string { return &s }

func testState(me protocol.PlayerView) protocol.StateMsg {
	return protocol.StateMsg{
		Type:    protocol.TypeGameState,
		Players: map[string]protocol.PlayerView{"P1": me},
		Orb:     protocol.OrbView{X: 540, Y: 360},
		Bases: protocol.BasesView{
			Red:  protocol.BaseView{X: 100, Y: 360, Radius: 60},
			Blue: protocol.BaseView{X: 980, Y: 360, Radius: 60},
		},
	}
}

func newTestBrain() *brain {
	return newBrain(protocol.WelcomeMsg{PlayerID: "P1", Arena: protocol.ArenaParams{BarrierCooldownMs: 5000}})
}

func types(acts []protocol.ActionMsg) []string {
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = a.Type
	}
	return out
}

func TestDecide_ChasesFreeOrbAndPicksUp(t *testing.T) {
	b := newTestBrain()
	now := time.Unix(0, 0)

	st := testState(protocol.PlayerView{X: 300, Y: 360, Team: "red"})
	acts := b.decide(st, now)
	if len(acts) != 1 || acts[0].Type != protocol.TypeMoveStart || acts[0].DX != 1 || acts[0].DY != 0 {
		t.Fatalf("expected moveStart toward orb, got %+v", acts)
	}
	// Same heading: nothing resent.
	if acts := b.decide(st, now); len(acts) != 0 {
		t.Fatalf("duplicate movement sent: %+v", acts)
	}

	st = testState(protocol.PlayerView{X: 530, Y: 360, Team: "red"})
	acts = b.decide(st, now)
	if len(acts) == 0 || acts[0].Type != protocol.TypeOrbAction {
		t.Fatalf("expected orbAction in reach, got %v", types(acts))
	}
}

func TestDecide_CarriesHomeThenDrops(t *testing.T) {
	b := newTestBrain()
	now := time.Unix(0, 0)

	st := testState(protocol.PlayerView{X: 540, Y: 360, Team: "blue"})
	st.Orb = protocol.OrbView{X: 540, Y: 360, Holder: strp("P1")}
	acts := b.decide(st, now)
	if len(acts) != 1 || acts[0].Type != protocol.TypeMoveStart || acts[0].DX != 1 {
		t.Fatalf("blue carrier should head right, got %+v", acts)
	}

	st = testState(protocol.PlayerView{X: 975, Y: 360, Team: "blue"})
	st.Orb = protocol.OrbView{X: 975, Y: 360, Holder: strp("P1")}
	got := types(b.decide(st, now))
	if len(got) != 2 || got[0] != protocol.TypeOrbAction || got[1] != protocol.TypeMoveEnd {
		t.Fatalf("expected drop then stop, got %v", got)
	}
}

func TestDecide_StealsFromOpponent(t *testing.T) {
	b := newTestBrain()
	st := testState(protocol.PlayerView{X: 500, Y: 360, Team: "red"})
	st.Players["P2"] = protocol.PlayerView{X: 520, Y: 360, Team: "blue"}
	st.Orb = protocol.OrbView{X: 520, Y: 360, Holder: strp("P2")}

	got := types(b.decide(st, time.Unix(0, 0)))
	if len(got) == 0 || got[0] != protocol.TypeOrbAction {
		t.Fatalf("expected steal attempt, got %v", got)
	}

	// Teammate holder: escort only.
	st.Players["P2"] = protocol.PlayerView{X: 520, Y: 360, Team: "red"}
	for _, typ := range types(b.decide(st, time.Unix(0, 0))) {
		if typ == protocol.TypeOrbAction {
			t.Fatalf("must not try to steal from a teammate")
		}
	}
}

func TestDecide_GuardsScoringOrbWithBarrier(t *testing.T) {
	b := newTestBrain()
	now := time.Unix(100, 0)
	st := testState(protocol.PlayerView{X: 150, Y: 360, Team: "red"})
	st.Orb = protocol.OrbView{X: 100, Y: 360}
	st.Players["P2"] = protocol.PlayerView{X: 220, Y: 360, Team: "blue"}

	acts := b.decide(st, now)
	if len(acts) != 1 || acts[0].Type != protocol.TypeCreateBarrier {
		t.Fatalf("expected a barrier, got %v", types(acts))
	}
	if acts[0].X == nil || *acts[0].X != 160 || *acts[0].Y != 360 {
		t.Fatalf("barrier should sit between orb and opponent: %+v", acts[0])
	}
	// Cooldown respected locally.
	if acts := b.decide(st, now.Add(time.Second)); len(acts) != 0 {
		t.Fatalf("barrier during cooldown: %v", types(acts))
	}
	if acts := b.decide(st, now.Add(5*time.Second)); len(acts) != 1 {
		t.Fatalf("barrier after cooldown: %v", types(acts))
	}
}

func TestDecide_HitsBlockingBarrierAndIdlesWhenStunned(t *testing.T) {
	b := newTestBrain()
	now := time.Unix(0, 0)
	st := testState(protocol.PlayerView{X: 300, Y: 360, Team: "red"})
	st.Barriers = []protocol.BarrierView{{ID: "b1", X: 320, Y: 360, Team: "blue", Health: 3}}

	acts := b.decide(st, now)
	if len(acts) == 0 || acts[0].Type != protocol.TypeHitBarrier || acts[0].BarrierID != "b1" {
		t.Fatalf("expected hitBarrier, got %+v", acts)
	}
	if got := types(b.decide(st, now.Add(100*time.Millisecond))); len(got) != 0 {
		t.Fatalf("hit not throttled: %v", got)
	}

	st.Players["P1"] = protocol.PlayerView{X: 300, Y: 360, Team: "red", Stunned: true}
	if acts := b.decide(st, now.Add(time.Second)); acts != nil {
		t.Fatalf("stunned bot acted: %v", types(acts))
	}
}

func TestRound1(t *testing.T) {
	cases := map[float64]float64{0.96: 1, 0.04: 0, -0.26: -0.3, 0.707: 0.7}
	for in, want := range cases {
		if got := round1(in); got != want {
			t.Fatalf("round1(%v)=%v want %v", in, got, want)
		}
	}
}
