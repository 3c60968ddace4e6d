package arena

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Unix(1_700_000_000, 0)

func newTestState(t *testing.T, cfg Config) *State {
	t.Helper()
	s, err := New(cfg, 42, t0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// place joins id and pins its team and position.
func place(t *testing.T, s *State, id string, team Team, pos Vec2) *Player {
	t.Helper()
	if !s.Join(id, t0) {
		t.Fatalf("join %s failed", id)
	}
	p := s.players[id]
	p.Team = team
	p.Pos = pos
	return p
}

// run ticks n times starting one step after from and returns the last time.
func run(s *State, from time.Time, n int) time.Time {
	now := from
	for i := 0; i < n; i++ {
		now = now.Add(s.cfg.TickDuration())
		s.Tick(now)
	}
	return now
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func assertHolderSnap(t *testing.T, s *State) {
	t.Helper()
	id, ok := s.orb.Holder()
	if !ok {
		return
	}
	p, exists := s.players[id]
	if !exists {
		t.Fatalf("orb held by missing player %q", id)
	}
	if s.orb.Pos != p.Pos {
		t.Fatalf("orb at %+v, holder %s at %+v", s.orb.Pos, id, p.Pos)
	}
}
