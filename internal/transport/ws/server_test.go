package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"orbarena.io/internal/protocol"
	"orbarena.io/internal/sim/world"
)

func startServer(t *testing.T) string {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "ws_test", Seed: 5})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, nil, 16).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readWelcome(t *testing.T, conn *websocket.Conn, enc protocol.Encoding) protocol.WelcomeMsg {
	t.Helper()
	mt, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if enc.Binary() != (mt == websocket.BinaryMessage) {
		t.Fatalf("unexpected frame type %d for %s", mt, enc)
	}
	var w protocol.WelcomeMsg
	if err := enc.Unmarshal(b, &w); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if w.Type != protocol.TypeWelcome {
		t.Fatalf("expected welcome first, got %q", w.Type)
	}
	return w
}

// readState skips win frames and returns the next gameState.
func readState(t *testing.T, conn *websocket.Conn, enc protocol.Encoding) protocol.StateMsg {
	t.Helper()
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read state: %v", err)
		}
		var st protocol.StateMsg
		if err := enc.Unmarshal(b, &st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if st.Type == protocol.TypeGameState {
			return st
		}
	}
}

func TestHandler_JSONJoinAndAction(t *testing.T) {
	conn := dial(t, startServer(t))

	welcome := readWelcome(t, conn, protocol.EncodingJSON)
	if welcome.PlayerID == "" || welcome.ProtocolVersion != protocol.Version {
		t.Fatalf("bad welcome: %+v", welcome)
	}
	st := readState(t, conn, protocol.EncodingJSON)
	before, ok := st.Players[welcome.PlayerID]
	if !ok {
		t.Fatalf("player missing from first state")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"switchTeam"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	st = readState(t, conn, protocol.EncodingJSON)
	if st.Players[welcome.PlayerID].Team == before.Team {
		t.Fatalf("switchTeam not applied: %+v", st.Players[welcome.PlayerID])
	}
}

func TestHandler_MalformedFramesIgnored(t *testing.T) {
	conn := dial(t, startServer(t))
	welcome := readWelcome(t, conn, protocol.EncodingJSON)
	_ = readState(t, conn, protocol.EncodingJSON)

	for _, raw := range []string{`not json`, `{"type":"fly"}`, `{}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"switchTeam"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	st := readState(t, conn, protocol.EncodingJSON)
	if _, ok := st.Players[welcome.PlayerID]; !ok {
		t.Fatalf("connection should survive malformed frames")
	}
}

func TestHandler_MsgpackEncoding(t *testing.T) {
	conn := dial(t, startServer(t)+"?encoding=msgpack")
	welcome := readWelcome(t, conn, protocol.EncodingMsgpack)
	st := readState(t, conn, protocol.EncodingMsgpack)
	before := st.Players[welcome.PlayerID]

	b, err := protocol.EncodingMsgpack.Marshal(protocol.ActionMsg{Type: protocol.TypeSwitchTeam})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	st = readState(t, conn, protocol.EncodingMsgpack)
	if st.Players[welcome.PlayerID].Team == before.Team {
		t.Fatalf("msgpack switchTeam not applied")
	}
}

func TestHandler_Spectator(t *testing.T) {
	url := startServer(t)
	player := dial(t, url)
	pw := readWelcome(t, player, protocol.EncodingJSON)
	_ = readState(t, player, protocol.EncodingJSON)

	watcher := dial(t, url+"?spectate=1")
	sw := readWelcome(t, watcher, protocol.EncodingJSON)
	if !sw.Spectator || sw.PlayerID != "" || sw.MatchID != pw.MatchID {
		t.Fatalf("bad spectator welcome: %+v", sw)
	}
	st := readState(t, watcher, protocol.EncodingJSON)
	if len(st.Players) != 1 {
		t.Fatalf("spectator should see one player, got %d", len(st.Players))
	}
}

func TestHandler_BadEncodingCloses(t *testing.T) {
	conn := dial(t, startServer(t)+"?encoding=xml")
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected close")
	}
	ce, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %T %v", err, err)
	}
	if ce.Text != protocol.ErrBadEncoding {
		t.Fatalf("expected %s, got %q", protocol.ErrBadEncoding, ce.Text)
	}
}

func TestHandler_DisconnectRemovesPlayer(t *testing.T) {
	url := startServer(t)
	a := dial(t, url)
	aw := readWelcome(t, a, protocol.EncodingJSON)
	_ = readState(t, a, protocol.EncodingJSON)

	b := dial(t, url)
	_ = readWelcome(t, b, protocol.EncodingJSON)
	st := readState(t, b, protocol.EncodingJSON)
	if _, ok := st.Players[aw.PlayerID]; !ok {
		t.Fatalf("first player missing")
	}

	_ = a.Close()
	st = readState(t, b, protocol.EncodingJSON)
	if _, ok := st.Players[aw.PlayerID]; ok {
		raw, _ := json.Marshal(st.Players)
		t.Fatalf("closed player still present: %s", raw)
	}
}

func TestHandler_JoinTimeoutLeavesNoPlayer(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "ws_slow", Seed: 5})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	h := NewServer(w, nil, 16)
	h.joinTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	// The world loop is not running yet, so the join sits in its queue.
	early := dial(t, url)
	_, _, err = early.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseTryAgainLater || ce.Text != protocol.ErrWorldBusy {
		t.Fatalf("expected busy close, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	late := dial(t, url)
	lw := readWelcome(t, late, protocol.EncodingJSON)
	if lw.PlayerID != "P000002" {
		t.Fatalf("expected the queued join to be processed first, got %s", lw.PlayerID)
	}
	for {
		st := readState(t, late, protocol.EncodingJSON)
		if len(st.Players) == 1 {
			if _, ok := st.Players[lw.PlayerID]; !ok {
				t.Fatalf("unexpected survivor: %+v", st.Players)
			}
			break
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		m := w.Metrics()
		if m.Players == 1 && m.Clients == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("abandoned join not removed: players=%d clients=%d", m.Players, m.Clients)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
