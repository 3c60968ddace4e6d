package arena

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// State is the whole match: players, orb, barriers, bases and progress.
// It is not safe for concurrent use; one goroutine owns it and calls the
// handlers and Tick in sequence.
type State struct {
	cfg Config
	rng *rand.Rand

	matchID  string
	players  map[string]*Player
	orb      Orb
	barriers []*Barrier // creation order
	bases    [2]Base
	progress map[Team]time.Duration
	winner   Team

	sched      scheduler
	barrierSeq uint64

	events []Event
}

func New(cfg Config, seed int64, now time.Time) (*State, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arena config: %w", err)
	}
	s := &State{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		players: map[string]*Player{},
		bases: [2]Base{
			{Team: TeamRed, Pos: cfg.RedBase, Radius: cfg.CaptureRadius},
			{Team: TeamBlue, Pos: cfg.BlueBase, Radius: cfg.CaptureRadius},
		},
	}
	s.startMatch(now)
	return s, nil
}

func (s *State) Config() Config   { return s.cfg }
func (s *State) MatchID() string  { return s.matchID }
func (s *State) Orb() Orb         { return s.orb }
func (s *State) NumPlayers() int  { return len(s.players) }
func (s *State) NumBarriers() int { return len(s.barriers) }

// Player returns a copy.
func (s *State) Player(id string) (Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (s *State) PlayerIDs() []string {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *State) Barriers() []Barrier {
	out := make([]Barrier, 0, len(s.barriers))
	for _, b := range s.barriers {
		out = append(out, *b)
	}
	return out
}

func (s *State) Progress(t Team) time.Duration { return s.progress[t] }

func (s *State) Winner() (Team, bool) { return s.winner, s.winner != "" }

func (s *State) PendingEffects() int { return s.sched.len() }

// Reset starts a new match with the connected players: progress and the win
// latch are cleared, barriers and timers dropped, the orb returned to the
// centre and every player respawned. Teams are kept.
func (s *State) Reset(now time.Time) {
	s.sched.clear()
	s.barriers = nil
	for _, id := range s.PlayerIDs() {
		p := s.players[id]
		p.Pos = s.spawnPos()
		p.Dir = Vec2{}
		p.Moving = false
		p.Stunned = false
		p.StunUntil = time.Time{}
		p.LastBarrierAt = time.Time{}
	}
	s.startMatch(now)
}

func (s *State) startMatch(now time.Time) {
	s.matchID = uuid.NewString()
	s.progress = map[Team]time.Duration{TeamRed: 0, TeamBlue: 0}
	s.winner = ""
	s.orb = Orb{Pos: Vec2{X: s.cfg.Width / 2, Y: s.cfg.Height / 2}}
	s.emit(Event{Kind: EventMatchStart, At: now})
}

func (s *State) spawnPos() Vec2 {
	return Vec2{
		X: s.rng.Float64() * (s.cfg.Width - s.cfg.PlayerSize),
		Y: s.rng.Float64() * (s.cfg.Height - s.cfg.PlayerSize),
	}
}

func (s *State) clampPlayer(v Vec2) Vec2 {
	return Vec2{
		X: clamp(v.X, 0, s.cfg.Width-s.cfg.PlayerSize),
		Y: clamp(v.Y, 0, s.cfg.Height-s.cfg.PlayerSize),
	}
}

// active returns the player if it exists and is not stunned.
func (s *State) active(id string) *Player {
	p, ok := s.players[id]
	if !ok || p.Stunned {
		return nil
	}
	return p
}

func (s *State) barrierIndex(id string) int {
	for i, b := range s.barriers {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) removeBarrier(i int) *Barrier {
	b := s.barriers[i]
	s.barriers = append(s.barriers[:i], s.barriers[i+1:]...)
	return b
}

func (s *State) barrierRect(b *Barrier) rect {
	hw, hh := s.cfg.BarrierWidth/2, s.cfg.BarrierHeight/2
	return rect{minX: b.Pos.X - hw, minY: b.Pos.Y - hh, maxX: b.Pos.X + hw, maxY: b.Pos.Y + hh}
}

func (s *State) playerRect(pos Vec2) rect {
	return rect{minX: pos.X, minY: pos.Y, maxX: pos.X + s.cfg.PlayerSize, maxY: pos.Y + s.cfg.PlayerSize}
}

// blocked reports whether a player of team t at pos would overlap any
// barrier owned by the other team.
func (s *State) blocked(t Team, pos Vec2) bool {
	r := s.playerRect(pos)
	for _, b := range s.barriers {
		if b.Team == t {
			continue
		}
		if r.overlaps(s.barrierRect(b)) {
			return true
		}
	}
	return false
}
