package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"orbarena.io/internal/persistence/indexdb"
	"orbarena.io/internal/sim/world"
)

type runtimeIndex interface {
	world.EventLogger
	Close() error
	RecentMatches(ctx context.Context, limit int) ([]indexdb.MatchRow, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ORB_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "matches.sqlite"), logger)
	default:
		return nil, fmt.Errorf("unsupported ORB_INDEX_BACKEND: %s", backend)
	}
}
