package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/engine"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/game/tuning"
	"riskyrun.app/internal/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Tuning:  tuning.Defaults(),
		Regions: []region.ID{"station", "de-haven"},
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	b, err := board.New(board.Config{Engine: eng})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()

	srv := httptest.NewServer(NewServer(b, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, viewOnly bool) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test", ViewOnly: viewOnly}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	readJSON(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" || len(welcome.Regions) != 2 {
		t.Fatalf("welcome: %+v", welcome)
	}
	var st protocol.StateMsg
	readJSON(t, conn, &st)
	if st.Type != protocol.TypeState {
		t.Fatalf("initial state: %+v", st)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

// readUntil reads frames until it has seen an ACK for ackFor and, if
// wantState, at least one STATE.
func readUntil(t *testing.T, conn *websocket.Conn, ackFor string, wantState bool) (protocol.AckMsg, protocol.StateMsg) {
	t.Helper()
	var (
		ack      protocol.AckMsg
		st       protocol.StateMsg
		gotAck   bool
		gotState bool
	)
	for !gotAck || (wantState && !gotState) {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		switch base.Type {
		case protocol.TypeAck:
			var a protocol.AckMsg
			_ = json.Unmarshal(raw, &a)
			if a.AckFor == ackFor {
				ack, gotAck = a, true
			}
		case protocol.TypeState:
			_ = json.Unmarshal(raw, &st)
			gotState = true
		}
	}
	return ack, st
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev protocol.EventMsg) {
	t.Helper()
	ev.Type = protocol.TypeEvent
	ev.ProtocolVersion = protocol.Version
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestServer_ClickIsAckedAndBroadcast(t *testing.T) {
	srv := newTestServer(t)
	player := dial(t, srv, false)
	viewer := dial(t, srv, true)

	sendEvent(t, player, protocol.EventMsg{ID: "e1", Kind: protocol.EventClick, RegionID: "station"})
	ack, st := readUntil(t, player, "e1", true)
	if !ack.Accepted || ack.Seq == 0 {
		t.Fatalf("ack: %+v", ack)
	}
	if st.LastCommit == nil || st.LastCommit.RegionID != "station" {
		t.Fatalf("state: %+v", st)
	}

	var pushed protocol.StateMsg
	readJSON(t, viewer, &pushed)
	if pushed.Type != protocol.TypeState || pushed.Seq != ack.Seq {
		t.Fatalf("viewer state: %+v", pushed)
	}
}

func TestServer_RejectsBadEvents(t *testing.T) {
	srv := newTestServer(t)
	player := dial(t, srv, false)

	sendEvent(t, player, protocol.EventMsg{ID: "e1", Kind: protocol.EventClick, RegionID: "nowhere"})
	ack, _ := readUntil(t, player, "e1", false)
	if ack.Accepted || ack.Code != protocol.ErrUnknownRegion {
		t.Fatalf("ack: %+v", ack)
	}

	if err := player.WriteMessage(websocket.TextMessage, []byte(`{not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack, _ = readUntil(t, player, "", false)
	if ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("malformed ack: %+v", ack)
	}

	viewer := dial(t, srv, true)
	sendEvent(t, viewer, protocol.EventMsg{ID: "v1", Kind: protocol.EventClick, RegionID: "station"})
	ack, _ = readUntil(t, viewer, "v1", false)
	if ack.Accepted || ack.Code != protocol.ErrBadRequest {
		t.Fatalf("view-only ack: %+v", ack)
	}
}

func TestServer_RequiresHello(t *testing.T) {
	srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendEvent(t, conn, protocol.EventMsg{ID: "e1", Kind: protocol.EventClick, RegionID: "station"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection closed without HELLO")
	}
}
