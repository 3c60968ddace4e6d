package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"orbarena.io/internal/protocol"
)

func main() {
	var (
		wsURL    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		encoding = flag.String("encoding", "json", "wire encoding: json|msgpack")
		spectate = flag.Bool("spectate", false, "connect as a spectator and only log wins")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	enc, err := protocol.ParseEncoding(*encoding)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	u, err := url.Parse(*wsURL)
	if err != nil {
		logger.Fatalf("url: %v", err)
	}
	q := u.Query()
	q.Set("encoding", string(enc))
	if *spectate {
		q.Set("spectate", "1")
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	var b *brain
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(enc, msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := enc.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s match=%s arena=%.0fx%.0f tick_rate=%d", w.PlayerID, w.MatchID, w.Arena.Width, w.Arena.Height, w.Arena.TickRateHz)
			if !w.Spectator {
				b = newBrain(w)
			}

		case protocol.TypeWin:
			var win protocol.WinMsg
			if err := enc.Unmarshal(msg, &win); err == nil {
				logger.Printf("WIN team=%s match=%s", win.Winner, win.MatchID)
			}

		case protocol.TypeGameState:
			if b == nil {
				continue
			}
			var st protocol.StateMsg
			if err := enc.Unmarshal(msg, &st); err != nil {
				continue
			}
			for _, act := range b.decide(st, time.Now()) {
				if err := send(conn, enc, act); err != nil {
					logger.Printf("send %s: %v", act.Type, err)
					return
				}
			}
		}
	}
}

func send(conn *websocket.Conn, enc protocol.Encoding, act protocol.ActionMsg) error {
	b, err := enc.Marshal(act)
	if err != nil {
		return err
	}
	mt := websocket.TextMessage
	if enc.Binary() {
		mt = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(mt, b)
}
