package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"orbarena.io/internal/sim/world"
	"orbarena.io/internal/transport/ws"
)

type serverDeps struct {
	world       *world.World
	index       runtimeIndex // optional
	log         *log.Logger
	clientQueue int

	enableAdmin bool
	enablePprof bool
}

func newMux(d serverDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(d))

	if d.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", loopbackOnly(adminStateHandler(d)))
		mux.HandleFunc("/admin/v1/reset", loopbackOnly(adminResetHandler(d)))
		mux.HandleFunc("/admin/v1/matches", loopbackOnly(adminMatchesHandler(d)))
	} else {
		logf(d.log, "admin endpoints disabled (ORB_ENABLE_ADMIN_HTTP=false)")
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(d.world, d.log, d.clientQueue).Handler())
	return mux
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func metricsHandler(d serverDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		id := d.world.ID()
		m := d.world.Metrics()
		tick := d.world.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP orbarena_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_tick gauge\n")
		fmt.Fprintf(rw, "orbarena_world_tick{world=%q} %d\n", id, tick)

		fmt.Fprintf(rw, "# HELP orbarena_world_players Players in the current match.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_players gauge\n")
		fmt.Fprintf(rw, "orbarena_world_players{world=%q} %d\n", id, m.Players)

		fmt.Fprintf(rw, "# HELP orbarena_world_clients Connected clients, spectators included.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_clients gauge\n")
		fmt.Fprintf(rw, "orbarena_world_clients{world=%q} %d\n", id, m.Clients)

		fmt.Fprintf(rw, "# HELP orbarena_world_spectators Connected spectators.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_spectators gauge\n")
		fmt.Fprintf(rw, "orbarena_world_spectators{world=%q} %d\n", id, m.Spectators)

		fmt.Fprintf(rw, "# HELP orbarena_world_barriers Live barriers.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_barriers gauge\n")
		fmt.Fprintf(rw, "orbarena_world_barriers{world=%q} %d\n", id, m.Barriers)

		fmt.Fprintf(rw, "# HELP orbarena_team_progress_ms Capture progress per team in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_team_progress_ms gauge\n")
		fmt.Fprintf(rw, "orbarena_team_progress_ms{world=%q,team=%q} %.1f\n", id, "red", m.RedProgressMS)
		fmt.Fprintf(rw, "orbarena_team_progress_ms{world=%q,team=%q} %.1f\n", id, "blue", m.BlueProgressMS)

		fmt.Fprintf(rw, "# HELP orbarena_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "orbarena_world_queue_depth{world=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "orbarena_world_queue_depth{world=%q,queue=%q} %d\n", id, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "orbarena_world_queue_depth{world=%q,queue=%q} %d\n", id, "leave", m.QueueDepths.Leave)

		fmt.Fprintf(rw, "# HELP orbarena_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_world_step_ms gauge\n")
		fmt.Fprintf(rw, "orbarena_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

		fmt.Fprintf(rw, "# HELP orbarena_broadcast_total State and win frames fanned out.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_broadcast_total counter\n")
		fmt.Fprintf(rw, "orbarena_broadcast_total{world=%q} %d\n", id, m.BroadcastTotal)

		fmt.Fprintf(rw, "# HELP orbarena_match_reset_total Matches reset by admin or auto-reset.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_match_reset_total counter\n")
		fmt.Fprintf(rw, "orbarena_match_reset_total{world=%q} %d\n", id, m.ResetTotal)

		if d.index != nil {
			st := d.index.Stats()
			fmt.Fprintf(rw, "# HELP orbarena_index_queue_depth Pending match index writes.\n")
			fmt.Fprintf(rw, "# TYPE orbarena_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "orbarena_index_queue_depth %d\n", st.QueueDepth)
			fmt.Fprintf(rw, "# HELP orbarena_index_dropped_total Index writes dropped on a full queue.\n")
			fmt.Fprintf(rw, "# TYPE orbarena_index_dropped_total counter\n")
			fmt.Fprintf(rw, "orbarena_index_dropped_total %d\n", st.DropTotal)
		}
	}
}

func adminStateHandler(d serverDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		m := d.world.Metrics()
		writeJSON(rw, http.StatusOK, struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			MatchID string             `json:"match_id"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: d.world.ID(),
			Tick:    d.world.CurrentTick(),
			MatchID: m.MatchID,
			Metrics: m,
		})
	}
}

func adminResetHandler(d serverDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		matchID, err := d.world.RequestReset(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		logf(d.log, "admin reset via http: match %s", matchID)
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "match_id": matchID})
	}
}

func adminMatchesHandler(d serverDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if d.index == nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "index disabled"})
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		rows, err := d.index.RecentMatches(r.Context(), limit)
		if err != nil {
			writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "matches": rows})
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func logf(l *log.Logger, format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf(format, args...)
}
