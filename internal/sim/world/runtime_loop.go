package world

import (
	"context"
	"fmt"
	"time"

	"orbarena.io/internal/protocol"
	"orbarena.io/internal/sim/arena"
)

// Run drives the world until ctx is cancelled or Stop is called. Joins,
// leaves, actions and admin requests are applied as they arrive, each one to
// completion; the ticker advances the simulation between them.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Arena.TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case req := <-w.adminReset:
			w.handleAdminReset(req)
		case env := <-w.inbox:
			w.handleAction(env)
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick. Intended for tests.
func (w *World) StepOnce() uint64 {
	w.step()
	return w.tick.Load()
}

func (w *World) step() {
	start := time.Now()
	now := w.now()

	res := w.state.Tick(now)
	w.tick.Add(1)
	w.flushEvents()

	if res.Changed {
		w.broadcastState()
	}
	if res.Win != "" {
		w.broadcast(protocol.WinMsg{
			Type:    protocol.TypeWin,
			Winner:  string(res.Win),
			MatchID: w.state.MatchID(),
		})
	}
	if res.Reset {
		w.resetTotal++
	}

	w.lastStepMS = float64(time.Since(start).Microseconds()) / 1000.0
	if budget := w.cfg.Arena.TickDuration(); time.Since(start) > budget {
		w.logf("world %s: slow tick %d took %.3fms (budget %s)", w.cfg.ID, w.tick.Load(), w.lastStepMS, budget)
	}
	w.publishMetrics()
}

func (w *World) handleJoin(req JoinRequest) {
	now := w.now()
	var id string
	if req.Spectator {
		id = fmt.Sprintf("S%06d", w.nextSpectatorNum.Add(1))
	} else {
		id = fmt.Sprintf("P%06d", w.nextPlayerNum.Add(1))
		w.state.Join(id, now)
	}
	enc := req.Encoding
	if enc == "" {
		enc = protocol.EncodingJSON
	}
	if req.Out != nil {
		w.clients[id] = &clientState{Out: req.Out, Encoding: enc, Spectator: req.Spectator}
	}

	resp := JoinResponse{
		ClientID: id,
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			Spectator:       req.Spectator,
			MatchID:         w.state.MatchID(),
			Arena:           w.cfg.Arena.ArenaParams(),
		},
	}
	if !req.Spectator {
		resp.Welcome.PlayerID = id
	}
	if req.Resp != nil {
		select {
		case req.Resp <- resp:
		default:
		}
	}

	w.flushEvents()
	w.broadcastState()
	w.publishMetrics()
}

func (w *World) handleLeave(id string) {
	delete(w.clients, id)
	if w.state.Leave(id, w.now()) {
		w.flushEvents()
		w.broadcastState()
	}
	w.publishMetrics()
}

func (w *World) handleAction(env ActionEnvelope) {
	if c := w.clients[env.PlayerID]; c != nil && c.Spectator {
		return
	}
	if w.applyAction(env.PlayerID, env.Act, w.now()) {
		w.flushEvents()
		w.broadcastState()
	}
}

// applyAction routes one action to its handler and reports whether the
// state changed.
func (w *World) applyAction(id string, act protocol.ActionMsg, now time.Time) bool {
	st := w.state
	switch act.Type {
	case protocol.TypeMove, protocol.TypeMoveStart:
		return st.SetMoveIntent(id, act.DX, act.DY)
	case protocol.TypeMoveEnd:
		return st.ClearMoveIntent(id)
	case protocol.TypeOrbAction:
		return st.OrbAction(id, now)
	case protocol.TypeThrowOrb:
		return st.Throw(id, act.TargetX, act.TargetY, now)
	case protocol.TypeSwitchTeam:
		return st.SwitchTeam(id, now)
	case protocol.TypeCreateBarrier:
		var at *arena.Vec2
		if act.X != nil && act.Y != nil {
			at = &arena.Vec2{X: *act.X, Y: *act.Y}
		}
		return st.CreateBarrier(id, at, now)
	case protocol.TypeHitBarrier:
		return st.HitBarrier(id, act.BarrierID, now)
	default:
		return false
	}
}

func (w *World) broadcastState() {
	w.broadcast(w.state.View(w.tick.Load()))
}

// broadcast encodes v once per encoding in use and queues it on every client.
// A full client queue drops its oldest frame; the world never waits on I/O.
func (w *World) broadcast(v any) {
	if len(w.clients) == 0 {
		return
	}
	frames := map[protocol.Encoding][]byte{}
	for id, c := range w.clients {
		b, ok := frames[c.Encoding]
		if !ok {
			var err error
			b, err = c.Encoding.Marshal(v)
			if err != nil {
				w.logf("world %s: encode %s for %s: %v", w.cfg.ID, c.Encoding, id, err)
			}
			frames[c.Encoding] = b
		}
		if b == nil {
			continue
		}
		sendLatest(c.Out, b)
	}
	w.broadcasts++
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
