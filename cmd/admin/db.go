package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orbarena.io/internal/persistence/indexdb"
)

type dbFlags struct {
	dataDir *string
	worldID *string
	dbPath  *string
	limit   *int
}

func addDBFlags(fs *flag.FlagSet) dbFlags {
	return dbFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		worldID: fs.String("world", "arena_1", "world id (ignored with -db)"),
		dbPath:  fs.String("db", "", "sqlite db path (optional)"),
		limit:   fs.Int("limit", 20, "result limit"),
	}
}

func (f dbFlags) path() string {
	if p := strings.TrimSpace(*f.dbPath); p != "" {
		return p
	}
	return indexPath(*f.dataDir, *f.worldID)
}

func indexPath(dataDir, worldID string) string {
	return filepath.Join(dataDir, "worlds", worldID, "index", "matches.sqlite")
}

func matchesCmd(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	df := addDBFlags(fs)
	_ = fs.Parse(args)

	r := openReader(df.path())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.RecentMatches(ctx, *df.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(rows)
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	df := addDBFlags(fs)
	matchID := fs.String("match", "", "match id (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*matchID) == "" {
		fmt.Fprintln(os.Stderr, "missing -match")
		os.Exit(2)
	}
	r := openReader(df.path())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// -limit applies to matches; events default to the whole match.
	evs, err := r.MatchEvents(ctx, *matchID, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(evs)
}

func openReader(path string) *indexdb.Reader {
	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return r
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
