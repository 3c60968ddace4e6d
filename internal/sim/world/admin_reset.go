package world

import (
	"context"
	"errors"
)

type adminResetReq struct {
	Resp chan adminResetResp
}

type adminResetResp struct {
	Tick    uint64
	MatchID string
}

// RequestReset asks the world loop goroutine to start a new match right away.
// It is safe to call from other goroutines (e.g. admin HTTP handlers).
func (w *World) RequestReset(ctx context.Context) (matchID string, err error) {
	if w == nil || w.adminReset == nil {
		return "", errors.New("admin reset not available")
	}
	resp := make(chan adminResetResp, 1)
	req := adminResetReq{Resp: resp}

	select {
	case w.adminReset <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-resp:
		return r.MatchID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (w *World) handleAdminReset(req adminResetReq) {
	prev := w.state.MatchID()
	w.state.Reset(w.now())
	w.resetTotal++
	w.logf("world %s: admin reset, match %s -> %s", w.cfg.ID, prev, w.state.MatchID())
	w.flushEvents()
	w.broadcastState()
	w.publishMetrics()

	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- adminResetResp{Tick: w.tick.Load(), MatchID: w.state.MatchID()}:
	default:
	}
}
