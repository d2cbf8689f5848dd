package rooms

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/logging"
)

type recordedOutcome struct {
	roomID  string
	kind    string
	success bool
}

// fakeRecorder captures terminal outcomes handed to the persistence
// collaborator.
type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
}

func (r *fakeRecorder) RecordDeath(roomID string, ev arena.DeathEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{roomID: roomID, kind: "death"})
}

func (r *fakeRecorder) RecordCashout(roomID string, ev arena.CashoutEvent, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{roomID: roomID, kind: "cashout", success: success})
}

func newTestRegistry(t *testing.T, deps Deps) *Registry {
	t.Helper()
	if deps.Settler == nil {
		deps.Settler = arena.SettlerFunc(func(string, string, float64) (string, error) {
			return "ref-test", nil
		})
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	deps.WorldCfg = arena.Config{Seed: 1, TargetItems: 5}
	registry := NewRegistry([]float64{1, 5}, deps)
	t.Cleanup(registry.Close)
	return registry
}

func TestRegistryCreatesOneRoomPerTier(t *testing.T) {
	registry := newTestRegistry(t, Deps{})

	ids := registry.RoomIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 rooms, got %v", ids)
	}
	if ids[0] != "room-1" || ids[1] != "room-5" {
		t.Fatalf("unexpected room ids: %v", ids)
	}
	if _, ok := registry.Room("room-1"); !ok {
		t.Fatalf("room-1 not retrievable")
	}
}

func TestAttachUnknownRoomFails(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	session := NewSession("session-1", &fakeConn{})

	err := registry.Attach(session, "room-999", "p1", "alice", 0, "")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAttachRequiresEscrowConfirmation(t *testing.T) {
	registry := newTestRegistry(t, Deps{
		Escrow: EscrowFunc(func(playerID string, amount float64) error {
			return fmt.Errorf("balance hold missing for %s", playerID)
		}),
	})
	session := NewSession("session-1", &fakeConn{})

	err := registry.Attach(session, "room-5", "p1", "alice", 5, "addr")
	if !errors.Is(err, ErrStakeNotEscrowed) {
		t.Fatalf("expected ErrStakeNotEscrowed, got %v", err)
	}
	room, _ := registry.Room("room-5")
	if room.PlayerCount() != 0 {
		t.Fatalf("player joined despite failed escrow")
	}
}

func TestAttachAndDetachAreTracked(t *testing.T) {
	registry := newTestRegistry(t, Deps{
		Escrow: EscrowFunc(func(string, float64) error { return nil }),
	})
	session := NewSession("session-1", &fakeConn{})

	if err := registry.Attach(session, "room-1", "p1", "alice", 1, "addr-alice"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	room, _ := registry.Room("room-1")
	if room.PlayerCount() != 1 || room.SessionCount() != 1 {
		t.Fatalf("attach not reflected: players=%d sessions=%d", room.PlayerCount(), room.SessionCount())
	}

	registry.Detach(session.ID())
	registry.Detach(session.ID())

	if room.PlayerCount() != 0 || room.SessionCount() != 0 {
		t.Fatalf("detach not reflected: players=%d sessions=%d", room.PlayerCount(), room.SessionCount())
	}
}

func TestDuplicatePlayerIDRejectedOnAttach(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	first := NewSession("session-1", &fakeConn{})
	second := NewSession("session-2", &fakeConn{})

	if err := registry.Attach(first, "room-1", "p1", "alice", 0, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := registry.Attach(second, "room-1", "p1", "alice", 0, ""); err == nil {
		t.Fatalf("expected duplicate player id to be rejected")
	}
}

func TestAttachedSessionReceivesRoomState(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	conn := &fakeConn{}
	session := NewSession("session-1", conn)

	if err := registry.Attach(session, "room-1", "p1", "alice", 0, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, frame := range conn.lastFrames() {
			var head struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(frame, &head); err != nil {
				t.Fatalf("malformed frame: %v", err)
			}
			if head.Type == "roomState" {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no roomState frame within 2s, got %d frames", conn.frameCount())
}

func TestWriteFailureEvictsSession(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	conn := &fakeConn{failWrites: true}
	session := NewSession("session-1", conn)

	if err := registry.Attach(session, "room-1", "p1", "alice", 0, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	room, _ := registry.Room("room-1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if room.SessionCount() == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("failing session never evicted")
}

func TestInputForUnknownSessionIgnored(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	registry.Input("session-ghost", 1.0, false, false)
	registry.ReportPosition("session-ghost", 1, 2)
}

func TestDiagnosticsReportsRoomsAndSessions(t *testing.T) {
	registry := newTestRegistry(t, Deps{})
	session := NewSession("session-1", &fakeConn{})
	if err := registry.Attach(session, "room-5", "p1", "alice", 0, ""); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	rooms, sessions := registry.Diagnostics()
	if len(rooms) != 2 {
		t.Fatalf("expected 2 room entries, got %d", len(rooms))
	}
	var room5 *RoomDiagnostics
	for i := range rooms {
		if rooms[i].RoomID == "room-5" {
			room5 = &rooms[i]
		}
	}
	if room5 == nil || room5.Players != 1 || room5.Sessions != 1 {
		t.Fatalf("room-5 diagnostics wrong: %+v", rooms)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "session-1" {
		t.Fatalf("session diagnostics wrong: %+v", sessions)
	}
}

func TestCashoutOutcomeReachesRecorder(t *testing.T) {
	recorder := &fakeRecorder{}
	registry := newTestRegistry(t, Deps{Recorder: recorder})
	conn := &fakeConn{}
	session := NewSession("session-1", conn)

	if err := registry.Attach(session, "room-1", "p1", "alice", 1, "addr-alice"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	registry.Input(session.ID(), 0, false, true)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		recorder.mu.Lock()
		outcomes := append([]recordedOutcome(nil), recorder.outcomes...)
		recorder.mu.Unlock()
		for _, outcome := range outcomes {
			if outcome.kind == "cashout" {
				if !outcome.success {
					t.Fatalf("expected a successful cashout, got %+v", outcome)
				}
				if outcome.roomID != "room-1" {
					t.Fatalf("outcome recorded for wrong room: %+v", outcome)
				}
				return
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("cashout outcome never reached the recorder")
}
