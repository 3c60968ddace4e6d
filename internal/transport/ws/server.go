package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"orbarena.io/internal/protocol"
	"orbarena.io/internal/sim/world"
)

const (
	readLimit    = 4096
	readTimeout  = 60 * time.Second
	pingInterval = 20 * time.Second
	writeTimeout = 5 * time.Second
	joinTimeout  = 5 * time.Second
)

type Server struct {
	world *world.World
	log   *log.Logger
	queue int

	joinTimeout time.Duration

	upgrader websocket.Upgrader
}

// NewServer serves game clients of w. queue is the per-client outbound frame
// buffer; the oldest frame is dropped when it fills.
func NewServer(w *world.World, logger *log.Logger, queue int) *Server {
	if queue <= 0 {
		queue = 32
	}
	return &Server{
		world:       w,
		log:         logger,
		queue:       queue,
		joinTimeout: joinTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		enc, encErr := protocol.ParseEncoding(q.Get("encoding"))
		spectator := q.Get("spectate") == "1" || q.Get("spectate") == "true"

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if encErr != nil {
			closeWith(conn, websocket.CloseUnsupportedData, protocol.ErrBadEncoding)
			return
		}

		out := make(chan []byte, s.queue)
		clientID, ok := s.join(r.Context(), conn, enc, spectator, out)
		if !ok {
			return
		}
		s.logf("client %s connected (encoding=%s spectator=%v)", clientID, enc, spectator)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go s.writeLoop(ctx, cancel, conn, enc, out)

		conn.SetReadLimit(readLimit)
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})

		// Reader loop.
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if spectator {
				continue
			}
			frameEnc := protocol.EncodingJSON
			if mt == websocket.BinaryMessage {
				frameEnc = protocol.EncodingMsgpack
			}
			act, err := protocol.DecodeAction(frameEnc, msg)
			if err != nil {
				continue
			}
			select {
			case s.world.Inbox() <- world.ActionEnvelope{PlayerID: clientID, Act: act}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()

		// Cleanup.
		select {
		case s.world.Leave() <- clientID:
		case <-time.After(joinTimeout):
			s.logf("client %s: leave not delivered", clientID)
		}
		s.logf("client %s disconnected", clientID)
	}
}

// join registers the connection with the world and writes the welcome frame
// before any queued state frame can go out.
func (s *Server) join(ctx context.Context, conn *websocket.Conn, enc protocol.Encoding, spectator bool, out chan []byte) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.joinTimeout)
	defer cancel()

	respCh := make(chan world.JoinResponse, 1)
	req := world.JoinRequest{Spectator: spectator, Encoding: enc, Out: out, Resp: respCh}
	select {
	case s.world.Join() <- req:
	case <-ctx.Done():
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrWorldBusy)
		return "", false
	}

	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		// The request is already queued; undo it once the world gets to it.
		go s.leaveWhenJoined(respCh)
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrWorldBusy)
		return "", false
	}

	b, err := enc.Marshal(resp.Welcome)
	if err != nil {
		s.logf("client %s: encode welcome: %v", resp.ClientID, err)
		closeWith(conn, websocket.CloseInternalServerErr, protocol.ErrInternal)
		s.world.Leave() <- resp.ClientID
		return "", false
	}
	if err := writeFrame(conn, enc, b); err != nil {
		s.world.Leave() <- resp.ClientID
		return "", false
	}
	return resp.ClientID, true
}

func (s *Server) leaveWhenJoined(respCh <-chan world.JoinResponse) {
	resp := <-respCh
	s.logf("client %s: join answered after timeout, removing", resp.ClientID)
	s.world.Leave() <- resp.ClientID
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, enc protocol.Encoding, out chan []byte) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	mt := websocket.TextMessage
	if enc.Binary() {
		mt = websocket.BinaryMessage
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				cancel()
				return
			}
		case b := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(mt, b); err != nil {
				cancel()
				// Unblock the reader.
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Printf(format, args...)
}

func writeFrame(conn *websocket.Conn, enc protocol.Encoding, b []byte) error {
	mt := websocket.TextMessage
	if enc.Binary() {
		mt = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(mt, b)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
