package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/internal/proto"
	"coil-and-cash/server/internal/rooms"
)

func newTestServer(t *testing.T) (*httptest.Server, *rooms.Registry) {
	t.Helper()
	registry := rooms.NewRegistry([]float64{1}, rooms.Deps{
		Settler: arena.SettlerFunc(func(string, string, float64) (string, error) {
			return "ref-test", nil
		}),
		WorldCfg: arena.Config{Seed: 1, TargetItems: 5},
	})
	t.Cleanup(registry.Close)

	handler := NewHandler(registry, nil, nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler.Serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg proto.ClientMessage) {
	t.Helper()
	msg.Ver = proto.Version
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// readUntilType drains frames until one with the wanted type arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, want string) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed waiting for %q: %v", want, err)
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &head); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if head.Type == want {
			return payload
		}
	}
}

func TestJoinRoomAcknowledged(t *testing.T) {
	srv, registry := newTestServer(t)
	conn := dialTestServer(t, srv)

	sendMessage(t, conn, proto.ClientMessage{
		Type:     proto.TypeJoinRoom,
		RoomID:   "room-1",
		PlayerID: "p1",
		Name:     "alice",
	})

	payload := readUntilType(t, conn, proto.TypeJoinSuccess)
	var ack proto.JoinSuccess
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.RoomID != "room-1" {
		t.Fatalf("expected room-1, got %q", ack.RoomID)
	}

	room, _ := registry.Room("room-1")
	if room.PlayerCount() != 1 {
		t.Fatalf("player not joined, count %d", room.PlayerCount())
	}
}

func TestJoinUnknownRoomRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	sendMessage(t, conn, proto.ClientMessage{
		Type:     proto.TypeJoinRoom,
		RoomID:   "room-999",
		PlayerID: "p1",
	})

	payload := readUntilType(t, conn, proto.TypeJoinError)
	var reject proto.JoinError
	if err := json.Unmarshal(payload, &reject); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if reject.Reason != "room not found" {
		t.Fatalf("unexpected reason %q", reject.Reason)
	}
}

func TestJoinedSessionReceivesSnapshots(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	sendMessage(t, conn, proto.ClientMessage{
		Type:     proto.TypeJoinRoom,
		RoomID:   "room-1",
		PlayerID: "p1",
		Name:     "alice",
	})
	readUntilType(t, conn, proto.TypeJoinSuccess)

	payload := readUntilType(t, conn, proto.TypeRoomState)
	var frame proto.RoomState
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(frame.Snapshot.Players) != 1 || frame.Snapshot.Players[0].ID != "p1" {
		t.Fatalf("snapshot missing the joined player: %+v", frame.Snapshot.Players)
	}
}

func TestHeartbeatAcknowledged(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	sent := time.Now().UnixMilli()
	sendMessage(t, conn, proto.ClientMessage{
		Type:   proto.TypeHeartbeat,
		SentAt: sent,
	})

	payload := readUntilType(t, conn, proto.TypeHeartbeat)
	var ack proto.Heartbeat
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ClientTime != sent {
		t.Fatalf("client time not echoed: %+v", ack)
	}

	// The next heartbeat reports the round trip the client measured from
	// that ack; the server records and echoes it.
	sendMessage(t, conn, proto.ClientMessage{
		Type:      proto.TypeHeartbeat,
		SentAt:    time.Now().UnixMilli(),
		RTTMillis: 42,
	})
	payload = readUntilType(t, conn, proto.TypeHeartbeat)
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.RTTMillis != 42 {
		t.Fatalf("reported rtt not recorded: %+v", ack)
	}
}

func TestDisconnectDetachesPlayer(t *testing.T) {
	srv, registry := newTestServer(t)
	conn := dialTestServer(t, srv)

	sendMessage(t, conn, proto.ClientMessage{
		Type:     proto.TypeJoinRoom,
		RoomID:   "room-1",
		PlayerID: "p1",
		Name:     "alice",
	})
	readUntilType(t, conn, proto.TypeJoinSuccess)
	conn.Close()

	room, _ := registry.Room("room-1")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if room.PlayerCount() == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("player still present after disconnect")
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The connection must survive the malformed frame.
	sendMessage(t, conn, proto.ClientMessage{
		Type:   proto.TypeHeartbeat,
		SentAt: time.Now().UnixMilli(),
	})
	readUntilType(t, conn, proto.TypeHeartbeat)
}
