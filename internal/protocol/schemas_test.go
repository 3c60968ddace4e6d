package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"orbarena.io/internal/protocol"
	"orbarena.io/internal/sim/arena"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// validateEncoded marshals v the way the server does and checks the result.
func validateEncoded(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := protocol.EncodingJSON.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemas_ValidateServerFrames(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	st, err := arena.New(arena.Config{}, 7, now)
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	st.Join("p1", now)
	st.Join("p2", now)
	st.CreateBarrier("p1", nil, now)

	validateEncoded(t, compile(t, "game_state.schema.json"), st.View(12))
	validateEncoded(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        "p1",
		MatchID:         st.MatchID(),
		Arena:           st.Config().ArenaParams(),
	})
	validateEncoded(t, compile(t, "win.schema.json"), protocol.WinMsg{
		Type:    protocol.TypeWin,
		Winner:  string(arena.TeamBlue),
		MatchID: st.MatchID(),
	})
}

func TestSchemas_GameStateHolderIsNullOrString(t *testing.T) {
	s := compile(t, "game_state.schema.json")
	holder := "p1"
	m := protocol.StateMsg{
		Type:     protocol.TypeGameState,
		MatchID:  "m",
		Players:  map[string]protocol.PlayerView{"p1": {Team: "red"}},
		Barriers: []protocol.BarrierView{},
		Orb:      protocol.OrbView{Holder: &holder},
	}
	validateEncoded(t, s, m)

	m.Orb.Holder = nil
	b, _ := json.Marshal(m)
	var doc map[string]any
	_ = json.Unmarshal(b, &doc)
	if orb := doc["orb"].(map[string]any); orb["holder"] != nil {
		t.Fatalf("expected null holder, got %v", orb["holder"])
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := map[string]any{}
	_ = json.Unmarshal(b, &bad)
	bad["players"] = map[string]any{"p1": map[string]any{"x": 0, "y": 0, "score": 0, "team": "green", "stunned": false, "stunEndTime": 0}}
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected unknown team rejected")
	}
}

func TestSchemas_ValidateClientActions(t *testing.T) {
	s := compile(t, "action.schema.json")
	good := []string{
		`{"type":"moveStart","dx":1,"dy":0}`,
		`{"type":"move","dx":-0.5,"dy":0.5}`,
		`{"type":"moveEnd"}`,
		`{"type":"orbAction"}`,
		`{"type":"throwOrb","targetX":500,"targetY":500}`,
		`{"type":"switchTeam"}`,
		`{"type":"createBarrier"}`,
		`{"type":"createBarrier","x":10,"y":20}`,
		`{"type":"hitBarrier","barrierId":"b3"}`,
	}
	for _, raw := range good {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("json %s: %v", raw, err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
		if _, err := protocol.DecodeAction(protocol.EncodingJSON, []byte(raw)); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}

	bad := []string{
		`{"type":"teleport"}`,
		`{"type":"hitBarrier"}`,
		`{"type":"throwOrb","targetX":1}`,
	}
	for _, raw := range bad {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := s.Validate(v); err == nil {
			t.Fatalf("expected schema to reject %s", raw)
		}
	}
}
