package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/protocol"
)

// Board is the part of *board.Board a connection drives.
type Board interface {
	Welcome() protocol.WelcomeMsg
	Subscribe(ctx context.Context) (board.Subscription, error)
	Unsubscribe(id string)
	Submit(ctx context.Context, ev board.Event) (protocol.StateMsg, error)
}

type Server struct {
	board Board
	log   *log.Logger

	submitTimeout time.Duration
	upgrader      websocket.Upgrader
}

func NewServer(b Board, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		board:         b,
		log:           logger,
		submitTimeout: 2 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := s.board.Subscribe(ctx)
		if err != nil {
			s.log.Printf("subscribe: %v", err)
			return
		}
		defer s.board.Unsubscribe(sub.ID)

		welcome := s.board.Welcome()
		if err := writeJSON(conn, welcome); err != nil {
			return
		}
		if err := writeJSON(conn, sub.Initial); err != nil {
			return
		}
		s.log.Printf("session %s open client=%q view_only=%v", welcome.SessionID, hello.ClientName, hello.ViewOnly)

		// Writer goroutine; the only writer after the handshake.
		acks := make(chan []byte, 16)
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-sub.C:
					if !ok {
						cancel()
						return
					}
					b = msg
				case msg := <-acks:
					b = msg
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			ack, ok := s.handleMessage(ctx, hello, msg)
			if !ok {
				continue
			}
			b, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			select {
			case acks <- b:
			case <-ctx.Done():
			}
		}
		s.log.Printf("session %s closed", welcome.SessionID)
	}
}

// handleMessage applies one client frame and returns the ACK to send, if any.
func (s *Server) handleMessage(ctx context.Context, hello protocol.HelloMsg, msg []byte) (protocol.AckMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return reject("", protocol.ErrProtoBadRequest, "malformed message"), true
	}
	if base.Type != protocol.TypeEvent {
		return protocol.AckMsg{}, false
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(msg, &ev); err != nil {
		return reject("", protocol.ErrProtoBadRequest, "malformed EVENT"), true
	}
	if ev.ProtocolVersion != protocol.Version {
		return reject(ev.ID, protocol.ErrProtoBadRequest, "bad protocol_version"), true
	}
	if hello.ViewOnly {
		return reject(ev.ID, protocol.ErrBadRequest, "view-only session"), true
	}

	sctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()
	st, err := s.board.Submit(sctx, board.Event{
		Kind:     ev.Kind,
		RegionID: ev.RegionID,
		PlayerID: ev.PlayerID,
		Points:   ev.Points,
	})
	if err != nil {
		return reject(ev.ID, board.ErrorCode(err), err.Error()), true
	}
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ev.ID,
		Accepted:        true,
		Seq:             st.Seq,
	}, true
}

func reject(ackFor, code, message string) protocol.AckMsg {
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ackFor,
		Code:            code,
		Message:         message,
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.HelloMsg{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return protocol.HelloMsg{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}
	return hello, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
