package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"orbarena.io/internal/sim/world"
)

// MatchRow is one indexed match. EndedAtMS and EndTick are zero while the
// match is still running; Winner is empty for a match ended by reset.
type MatchRow struct {
	MatchID     string `json:"match_id"`
	WorldID     string `json:"world_id"`
	StartedAtMS int64  `json:"started_at_ms"`
	StartTick   uint64 `json:"start_tick"`
	EndedAtMS   int64  `json:"ended_at_ms,omitempty"`
	EndTick     uint64 `json:"end_tick,omitempty"`
	Winner      string `json:"winner,omitempty"`
	Events      int    `json:"events"`
}

// Reader runs read-only queries against an index database.
type Reader struct {
	db *sql.DB
}

// OpenReader opens an existing index for queries. It never creates the file.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA query_only=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite query_only: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// RecentMatches returns up to limit matches, newest first.
func (r *Reader) RecentMatches(ctx context.Context, limit int) ([]MatchRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, world_id, started_at_ms, start_tick,
		       COALESCE(ended_at_ms, 0), COALESCE(end_tick, 0), COALESCE(winner, ''), events
		FROM matches
		ORDER BY started_at_ms DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MatchRow{}
	for rows.Next() {
		var m MatchRow
		var startTick, endTick int64
		if err := rows.Scan(&m.MatchID, &m.WorldID, &m.StartedAtMS, &startTick, &m.EndedAtMS, &endTick, &m.Winner, &m.Events); err != nil {
			return nil, err
		}
		m.StartTick, m.EndTick = uint64(startTick), uint64(endTick)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MatchEvents returns the events of one match in the order they were indexed.
func (r *Reader) MatchEvents(ctx context.Context, matchID string, limit int) ([]world.EventEntry, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT tick, ts_ms, world_id, match_id, kind, actor, target, team, x, y
		FROM events
		WHERE match_id = ?
		ORDER BY id
		LIMIT ?`, matchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []world.EventEntry{}
	for rows.Next() {
		var e world.EventEntry
		var tick int64
		if err := rows.Scan(&tick, &e.TimeMS, &e.WorldID, &e.MatchID, &e.Kind, &e.Actor, &e.Target, &e.Team, &e.X, &e.Y); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}
