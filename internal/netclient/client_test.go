package netclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/internal/rooms"
	"coil-and-cash/server/internal/ws"
)

func startGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := rooms.NewRegistry([]float64{1}, rooms.Deps{
		Settler: arena.SettlerFunc(func(string, string, float64) (string, error) {
			return "ref-test", nil
		}),
		WorldCfg: arena.Config{Seed: 1, TargetItems: 5},
	})
	t.Cleanup(registry.Close)

	handler := ws.NewHandler(registry, nil, nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler.Serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientJoinsAndReceivesSnapshots(t *testing.T) {
	srv := startGameServer(t)
	client := dialClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Join(ctx, JoinOptions{RoomID: "room-1", PlayerID: "p1", Name: "alice"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := client.Snapshot()
		if len(snap.Players) == 1 && snap.Players[0].ID == "p1" {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("no snapshot carrying the joined player within 3s")
}

func TestClientJoinUnknownRoomFails(t *testing.T) {
	srv := startGameServer(t)
	client := dialClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := client.Join(ctx, JoinOptions{RoomID: "room-999", PlayerID: "p1"})
	if err == nil {
		t.Fatalf("expected join to an unknown room to fail")
	}
}

func TestClientPredictsOwnPositionLocally(t *testing.T) {
	srv := startGameServer(t)
	client := dialClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Join(ctx, JoinOptions{RoomID: "room-1", PlayerID: "p1", Name: "alice"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	start, ok := client.RenderPosition("p1", time.Now())
	if !ok {
		t.Fatalf("own position not renderable")
	}
	if err := client.SendInput(0, false, false); err != nil {
		t.Fatalf("send input failed: %v", err)
	}
	client.Advance(0.1)

	moved, _ := client.RenderPosition("p1", time.Now())
	if moved == start {
		t.Fatalf("prediction did not advance locally")
	}
}
