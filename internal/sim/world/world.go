package world

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"orbarena.io/internal/protocol"
	"orbarena.io/internal/sim/arena"
)

type JoinRequest struct {
	Spectator bool
	Encoding  protocol.Encoding
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	// ClientID is what the transport sends on Leave; for players it is also
	// the player id.
	ClientID string
	Welcome  protocol.WelcomeMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActionMsg
}

// World owns the match state and is the only goroutine that touches it.
// Transports talk to it through channels.
type World struct {
	cfg   WorldConfig
	state *arena.State
	now   func() time.Time
	log   *log.Logger

	tick atomic.Uint64

	clients map[string]*clientState

	inbox      chan ActionEnvelope
	join       chan JoinRequest
	leave      chan string
	adminReset chan adminResetReq
	stop       chan struct{}

	nextPlayerNum    atomic.Uint64
	nextSpectatorNum atomic.Uint64

	// Optional (may be nil). Implemented in internal/persistence/*.
	eventLogger EventLogger

	broadcasts uint64
	resetTotal uint64
	lastStepMS float64
	metrics    atomic.Value
}

type clientState struct {
	Out       chan []byte
	Encoding  protocol.Encoding
	Spectator bool
}

func New(cfg WorldConfig) (*World, error) {
	cfg.applyDefaults()
	st, err := arena.New(cfg.Arena, cfg.Seed, cfg.Clock())
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	cfg.Arena = st.Config()

	w := &World{
		cfg:        cfg,
		state:      st,
		now:        cfg.Clock,
		clients:    map[string]*clientState{},
		inbox:      make(chan ActionEnvelope, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		adminReset: make(chan adminResetReq, 8),
		stop:       make(chan struct{}),
	}
	// The match_start event stays buffered until the first flush so an event
	// logger attached after New still records it.
	w.publishMetrics()
	return w, nil
}

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) SetEventLogger(l EventLogger) { w.eventLogger = l }
func (w *World) SetLogger(l *log.Logger)      { w.log = l }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// ArenaConfig is the effective (defaulted) match configuration. It is fixed
// for the life of the world, so it is safe to read from any goroutine.
func (w *World) ArenaConfig() arena.Config { return w.cfg.Arena }

func (w *World) logf(format string, args ...any) {
	if w.log == nil {
		return
	}
	w.log.Printf(format, args...)
}
