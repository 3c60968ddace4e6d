package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"orbarena.io/internal/persistence/indexdb"
	"orbarena.io/internal/sim/arena"
	"orbarena.io/internal/sim/tuning"
	"orbarena.io/internal/sim/world"
)

func newRunningWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "arena_test", Seed: 1, Arena: arenaConfig(tuning.Defaults())})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()
	return w
}

func do(t *testing.T, mux http.Handler, method, target, remote string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

const loopback = "127.0.0.1:50000"

func TestHealthzAndMetrics(t *testing.T) {
	mux := newMux(serverDeps{world: newRunningWorld(t), enableAdmin: true})

	if rr := do(t, mux, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}

	rr := do(t, mux, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`orbarena_world_tick{world="arena_test"}`,
		`orbarena_world_players{world="arena_test"} 0`,
		`orbarena_team_progress_ms{world="arena_test",team="red"}`,
		`orbarena_world_queue_depth{world="arena_test",queue="inbox"}`,
		`orbarena_match_reset_total{world="arena_test"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "orbarena_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}

	// Every series carries its own HELP and TYPE lines.
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		name := line
		if i := strings.IndexAny(line, "{ "); i >= 0 {
			name = line[:i]
		}
		for _, hdr := range []string{"# HELP " + name + " ", "# TYPE " + name + " "} {
			if !strings.Contains(body, hdr) {
				t.Fatalf("series %s missing %q", name, strings.TrimSpace(hdr))
			}
		}
	}
}

func TestAdminEndpoints_LoopbackOnly(t *testing.T) {
	mux := newMux(serverDeps{world: newRunningWorld(t), enableAdmin: true})

	for _, path := range []string{"/admin/v1/state", "/admin/v1/matches"} {
		if rr := do(t, mux, http.MethodGet, path, "203.0.113.7:4000"); rr.Code != http.StatusForbidden {
			t.Fatalf("%s from remote: got %d", path, rr.Code)
		}
	}

	rr := do(t, mux, http.MethodGet, "/admin/v1/state", loopback)
	if rr.Code != http.StatusOK {
		t.Fatalf("state: %d", rr.Code)
	}
	var st struct {
		WorldID string `json:"world_id"`
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.WorldID != "arena_test" || st.MatchID == "" {
		t.Fatalf("unexpected state body: %s", rr.Body.String())
	}
}

func TestAdminReset(t *testing.T) {
	w := newRunningWorld(t)
	mux := newMux(serverDeps{world: w, enableAdmin: true})
	before := w.Metrics().MatchID

	if rr := do(t, mux, http.MethodGet, "/admin/v1/reset", loopback); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reset: %d", rr.Code)
	}
	rr := do(t, mux, http.MethodPost, "/admin/v1/reset", loopback)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		OK      bool   `json:"ok"`
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.MatchID == "" || resp.MatchID == before {
		t.Fatalf("expected a new match, got %+v (before %s)", resp, before)
	}
}

func TestAdminMatches(t *testing.T) {
	w := newRunningWorld(t)

	noIndex := newMux(serverDeps{world: w, enableAdmin: true})
	if rr := do(t, noIndex, http.MethodGet, "/admin/v1/matches", loopback); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("matches without index: %d", rr.Code)
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "matches.sqlite"), nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()
	for i, id := range []string{"m1", "m2", "m3"} {
		_ = idx.WriteEvent(world.EventEntry{TimeMS: int64(1000 * (i + 1)), WorldID: "arena_test", MatchID: id, Kind: "match_start"})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	mux := newMux(serverDeps{world: w, index: idx, enableAdmin: true})
	if rr := do(t, mux, http.MethodGet, "/admin/v1/matches?limit=x", loopback); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rr.Code)
	}
	rr := do(t, mux, http.MethodGet, "/admin/v1/matches?limit=2", loopback)
	if rr.Code != http.StatusOK {
		t.Fatalf("matches: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Matches []indexdb.MatchRow `json:"matches"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Matches) != 2 || resp.Matches[0].MatchID != "m3" {
		t.Fatalf("unexpected matches: %+v", resp.Matches)
	}

	if body := do(t, mux, http.MethodGet, "/metrics", "").Body.String(); !strings.Contains(body, "orbarena_index_dropped_total 0") {
		t.Fatalf("index metrics missing:\n%s", body)
	}
}

func TestAdminDisabled(t *testing.T) {
	mux := newMux(serverDeps{world: newRunningWorld(t)})
	if rr := do(t, mux, http.MethodPost, "/admin/v1/reset", loopback); rr.Code != http.StatusNotFound {
		t.Fatalf("disabled admin reset: %d", rr.Code)
	}
}

func TestArenaConfigFromTuning(t *testing.T) {
	cfg := arenaConfig(tuning.Defaults())
	if cfg.StunDuration != 3*time.Second || cfg.WinThreshold != 50*time.Second || cfg.BarrierLifetime != 10*time.Second {
		t.Fatalf("durations: %+v", cfg)
	}
	if cfg.RedBase != (arena.Vec2{X: 100, Y: 360}) || cfg.BlueBase != (arena.Vec2{X: 980, Y: 360}) {
		t.Fatalf("bases: %+v %+v", cfg.RedBase, cfg.BlueBase)
	}
	if cfg.AutoResetAfter != 0 || cfg.TickRateHz != 60 {
		t.Fatalf("match: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default tuning should validate: %v", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80":   true,
		"[::1]:9000":     true,
		"::1":            true,
		"10.0.0.1:80":    false,
		"example.com:80": false,
		"":               false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("ORB_TEST_FLAG", "false")
	if envBool("ORB_TEST_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("ORB_TEST_FLAG", "junk")
	if !envBool("ORB_TEST_FLAG", true) {
		t.Fatalf("junk should fall back to default")
	}
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin must default off in production")
	}
}
