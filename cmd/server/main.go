package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "orbarena.io/internal/persistence/log"
	"orbarena.io/internal/sim/arena"
	"orbarena.io/internal/sim/tuning"
	"orbarena.io/internal/sim/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "arena_1", "arena id")
		seed       = flag.Int64("seed", 1337, "rng seed for spawn positions and team assignment")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite match index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	// Optional read-model index; the sim never reads from it.
	idx, err := openRuntimeIndex(worldDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	w, err := world.New(world.WorldConfig{
		ID:    *worldID,
		Seed:  *seed,
		Arena: arenaConfig(tune),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(logger)

	eventLog := persistlog.NewEventLogger(worldDir)
	defer eventLog.Close()
	w.SetEventLogger(multiEventLogger{eventLog, idx})

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: *addr,
		Handler: newMux(serverDeps{
			world:       w,
			index:       idx,
			log:         logger,
			clientQueue: tune.ClientQueue,
			enableAdmin: envBool("ORB_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
			enablePprof: envBool("ORB_ENABLE_PPROF_HTTP", false),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (world=%s tick=%dHz)", *addr, *worldID, tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
	logger.Printf("shutdown complete")
}

// arenaConfig maps the tuning file onto the match constants.
func arenaConfig(t tuning.Tuning) arena.Config {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return arena.Config{
		TickRateHz:       t.TickRateHz,
		Width:            t.Arena.Width,
		Height:           t.Arena.Height,
		PlayerSize:       t.Player.Size,
		PlayerSpeed:      t.Player.Speed,
		HolderSpeedScale: t.Player.HolderSpeedScale,
		StunDuration:     ms(t.Player.StunMs),
		PickupRange:      t.Orb.PickupRange,
		StealRange:       t.Orb.StealRange,
		ThrowSpeed:       t.Orb.ThrowSpeed,
		OrbFriction:      t.Orb.Friction,
		WallDamping:      t.Orb.WallDamping,
		RestEpsilon:      t.Orb.RestEpsilon,
		CaptureRadius:    t.Bases.CaptureRadius,
		RedBase:          arena.Vec2{X: t.Bases.Red.X, Y: t.Bases.Red.Y},
		BlueBase:         arena.Vec2{X: t.Bases.Blue.X, Y: t.Bases.Blue.Y},
		WinThreshold:     ms(t.Match.WinThresholdMs),
		BarrierHealth:    t.Barrier.Health,
		BarrierWidth:     t.Barrier.Width,
		BarrierHeight:    t.Barrier.Height,
		BarrierCooldown:  ms(t.Barrier.CooldownMs),
		BarrierLifetime:  ms(t.Barrier.LifetimeMs),
		AutoResetAfter:   ms(t.Match.AutoResetMs),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiEventLogger struct {
	a world.EventLogger
	b world.EventLogger
}

func (m multiEventLogger) WriteEvent(e world.EventEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteEvent(e)
	}
	if m.b != nil {
		if err2 := m.b.WriteEvent(e); err == nil {
			err = err2
		}
	}
	return err
}
