package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"orbarena.io/internal/sim/world"
)

// SQLiteIndex keeps a queryable history of matches and their events. Writes
// are queued and applied by a single writer goroutine; the event log stays
// the source of truth, so a full queue drops entries instead of blocking.
type SQLiteIndex struct {
	Reader

	log *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropTotal atomic.Uint64
}

type req struct {
	event world.EventEntry
	// flush, when set, is closed after everything queued before it is committed.
	flush chan struct{}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTotal     uint64 `json:"drop_total"`
}

func OpenSQLite(path string, logger *log.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteIndex{
		Reader: Reader{db: db},
		log:    logger,
		ch:     make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			start_tick INTEGER NOT NULL,
			ended_at_ms INTEGER,
			end_tick INTEGER,
			winner TEXT,
			events INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_started ON matches(started_at_ms);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL,
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ts_ms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL,
			target TEXT NOT NULL,
			team TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_match ON events(match_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor, ts_ms);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent queues e for indexing. It never blocks the caller.
func (s *SQLiteIndex) WriteEvent(e world.EventEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{event: e}:
	default:
		s.dropTotal.Add(1)
	}
	return nil
}

// Flush waits until every event queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{flush: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
	}
}

func (s *SQLiteIndex) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Printf(format, args...)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 250 * time.Millisecond
	)

	begin := func() bool {
		if tx != nil {
			return true
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.logf("index: begin: %v", err)
			time.Sleep(50 * time.Millisecond)
			return false
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
		return true
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.logf("index: commit: %v (%d events lost)", err, opCount)
			s.dropTotal.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.flush != nil {
			commit()
			close(r.flush)
			continue
		}
		if !begin() {
			s.dropTotal.Add(1)
			continue
		}
		if err := applyEventSavepoint(ctx, tx, r.event); err != nil {
			s.logf("index: %s event for match %s: %v", r.event.Kind, r.event.MatchID, err)
			s.dropTotal.Add(1)
			continue
		}
		opCount++
		// Commit on idle so admin reads on the shared connection are not held up.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

// applyEventSavepoint undoes only the failed event, keeping the rest of the
// open batch.
func applyEventSavepoint(ctx context.Context, tx *sql.Tx, e world.EventEntry) error {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT ev`); err != nil {
		return err
	}
	if err := applyEvent(ctx, tx, e); err != nil {
		_, _ = tx.ExecContext(ctx, `ROLLBACK TO ev`)
		_, _ = tx.ExecContext(ctx, `RELEASE ev`)
		return err
	}
	_, err := tx.ExecContext(ctx, `RELEASE ev`)
	return err
}

func applyEvent(ctx context.Context, tx *sql.Tx, e world.EventEntry) error {
	if e.Kind == "match_start" {
		// A new match in the same world ends any match still open there.
		if _, err := tx.ExecContext(ctx,
			`UPDATE matches SET ended_at_ms=?, end_tick=? WHERE world_id=? AND ended_at_ms IS NULL AND match_id<>?`,
			e.TimeMS, int64(e.Tick), e.WorldID, e.MatchID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO matches(match_id,world_id,started_at_ms,start_tick) VALUES(?,?,?,?)`,
		e.MatchID, e.WorldID, e.TimeMS, int64(e.Tick)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events(match_id,world_id,tick,ts_ms,kind,actor,target,team,x,y) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		e.MatchID, e.WorldID, int64(e.Tick), e.TimeMS, e.Kind, e.Actor, e.Target, e.Team, e.X, e.Y); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE matches SET events=events+1 WHERE match_id=?`, e.MatchID); err != nil {
		return err
	}
	if e.Kind == "win" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE matches SET winner=?, ended_at_ms=?, end_tick=? WHERE match_id=?`,
			e.Team, e.TimeMS, int64(e.Tick), e.MatchID); err != nil {
			return err
		}
	}
	return nil
}
