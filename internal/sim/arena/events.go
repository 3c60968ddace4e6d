package arena

import "time"

type EventKind string

const (
	EventMatchStart       EventKind = "match_start"
	EventJoin             EventKind = "join"
	EventLeave            EventKind = "leave"
	EventPickup           EventKind = "pickup"
	EventDrop             EventKind = "drop"
	EventSteal            EventKind = "steal"
	EventThrow            EventKind = "throw"
	EventTeamSwitch       EventKind = "team_switch"
	EventBarrierPlaced    EventKind = "barrier_placed"
	EventBarrierDestroyed EventKind = "barrier_destroyed"
	EventBarrierExpired   EventKind = "barrier_expired"
	EventWin              EventKind = "win"
)

// Event records a notable transition for logs and match history. Events are
// buffered on the State until DrainEvents.
type Event struct {
	Kind    EventKind
	At      time.Time
	MatchID string
	Actor   string
	Target  string
	Team    Team
	Pos     Vec2
}

func (s *State) emit(e Event) {
	e.MatchID = s.matchID
	s.events = append(s.events, e)
}

// DrainEvents returns and clears the buffered events.
func (s *State) DrainEvents() []Event {
	if len(s.events) == 0 {
		return nil
	}
	out := s.events
	s.events = nil
	return out
}
