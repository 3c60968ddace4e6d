package world

import (
	"time"

	"orbarena.io/internal/sim/arena"
)

type WorldConfig struct {
	ID   string
	Seed int64

	// Match constants; zero fields fall back to arena defaults.
	Arena arena.Config

	// Clock supplies the time for every handler and tick. Defaults to time.Now.
	Clock func() time.Time
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "arena_1"
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
