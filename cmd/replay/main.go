package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	persistlog "orbarena.io/internal/persistence/log"
	"orbarena.io/internal/sim/world"
)

// replay walks event logs in order and rebuilds per-match summaries, so match
// history can be checked against (or recovered without) the sqlite index.
func main() {
	var (
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst")
		file      = flag.String("file", "", "single event log file (overrides -events)")
		matchID   = flag.String("match", "", "only summarize this match")
	)
	flag.Parse()

	var files []string
	switch {
	case *file != "":
		files = []string{*file}
	case *eventsDir != "":
		matches, err := filepath.Glob(filepath.Join(*eventsDir, "events-*.jsonl.zst"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "glob:", err)
			os.Exit(1)
		}
		sort.Strings(matches)
		files = matches
	default:
		fmt.Fprintln(os.Stderr, "missing -events or -file")
		os.Exit(2)
	}

	r := newReplayer()
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		err = persistlog.ReadEvents(f, func(e world.EventEntry) error {
			r.apply(e)
			return nil
		})
		_ = f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for _, s := range r.summaries() {
		if *matchID != "" && s.MatchID != *matchID {
			continue
		}
		_ = enc.Encode(s)
	}
	if n := r.orphans; n > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d events before their match_start (log started mid-match)\n", n)
	}
}

type playerStats struct {
	Pickups  int `json:"pickups,omitempty"`
	Steals   int `json:"steals,omitempty"`
	Stolen   int `json:"stolen,omitempty"`
	Throws   int `json:"throws,omitempty"`
	Barriers int `json:"barriers,omitempty"`
}

type matchSummary struct {
	MatchID    string                  `json:"match_id"`
	WorldID    string                  `json:"world_id"`
	StartMS    int64                   `json:"start_ms"`
	EndMS      int64                   `json:"end_ms,omitempty"`
	DurationMS int64                   `json:"duration_ms,omitempty"`
	Winner     string                  `json:"winner,omitempty"`
	Events     int                     `json:"events"`
	Players    map[string]*playerStats `json:"players"`

	seq int
}

type replayer struct {
	byID    map[string]*matchSummary
	open    map[string]*matchSummary // world id -> running match
	seq     int
	orphans int
}

func newReplayer() *replayer {
	return &replayer{byID: map[string]*matchSummary{}, open: map[string]*matchSummary{}}
}

func (r *replayer) apply(e world.EventEntry) {
	if e.Kind == "match_start" {
		if prev := r.open[e.WorldID]; prev != nil && prev.EndMS == 0 {
			r.end(prev, e.TimeMS)
		}
		r.seq++
		m := &matchSummary{
			MatchID: e.MatchID,
			WorldID: e.WorldID,
			StartMS: e.TimeMS,
			Players: map[string]*playerStats{},
			seq:     r.seq,
		}
		r.byID[e.MatchID] = m
		r.open[e.WorldID] = m
	}
	m := r.byID[e.MatchID]
	if m == nil {
		r.orphans++
		return
	}
	m.Events++

	stats := func(id string) *playerStats {
		if id == "" {
			return &playerStats{}
		}
		ps := m.Players[id]
		if ps == nil {
			ps = &playerStats{}
			m.Players[id] = ps
		}
		return ps
	}
	switch e.Kind {
	case "join":
		stats(e.Actor)
	case "pickup":
		stats(e.Actor).Pickups++
	case "steal":
		stats(e.Actor).Steals++
		stats(e.Target).Stolen++
	case "throw":
		stats(e.Actor).Throws++
	case "barrier_placed":
		stats(e.Actor).Barriers++
	case "win":
		m.Winner = e.Team
		r.end(m, e.TimeMS)
	}
}

func (r *replayer) end(m *matchSummary, at int64) {
	m.EndMS = at
	m.DurationMS = at - m.StartMS
}

// summaries returns matches in the order they started.
func (r *replayer) summaries() []*matchSummary {
	out := make([]*matchSummary, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
