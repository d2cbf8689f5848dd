package rooms

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/logging"
)

var (
	// ErrRoomNotFound rejects an attach to an unconfigured stake tier.
	ErrRoomNotFound = errors.New("room not found")
	// ErrStakeNotEscrowed rejects an attach whose stake the balance
	// collaborator has not confirmed.
	ErrStakeNotEscrowed = errors.New("stake not escrowed")
)

// Escrow is the balance collaborator boundary. Implementations must have
// already debited the player's available balance; Confirm only attests it.
type Escrow interface {
	Confirm(playerID string, amount float64) error
}

// EscrowFunc adapts a function to the Escrow interface.
type EscrowFunc func(playerID string, amount float64) error

// Confirm implements Escrow.
func (f EscrowFunc) Confirm(playerID string, amount float64) error {
	return f(playerID, amount)
}

// OutcomeRecorder is the persistence collaborator boundary. Calls must be
// fire-and-forget; errors stay inside the implementation.
type OutcomeRecorder interface {
	RecordDeath(roomID string, ev arena.DeathEvent)
	RecordCashout(roomID string, ev arena.CashoutEvent, success bool)
}

// Deps carries the external collaborators every room shares.
type Deps struct {
	Settler   arena.Settler
	Escrow    Escrow
	Recorder  OutcomeRecorder
	Publisher logging.Publisher
	WorldCfg  arena.Config
}

// route remembers which room and player a session is attached to.
type route struct {
	room     *Room
	playerID string
	name     string
}

// Registry owns one room per configured stake tier for the process
// lifetime and routes every session-scoped operation to the right room.
// It is created once at startup and handed to the transport layer; there
// are no ambient globals.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	order   []string
	routes  map[string]*route
	lobby   map[string]*Session
	reports map[string]reportedPosition

	deps Deps
	stop chan struct{}
	once sync.Once
}

// reportedPosition is a client-supplied cross-room approximation. Never
// trusted for collision or economy; only echoed into the lobby view.
type reportedPosition struct {
	playerID string
	name     string
	roomID   string
	x, y     float64
	seenAt   time.Time
}

// NewRegistry creates one room per stake tier and starts every tick loop.
// Rooms are never destroyed while the process lives.
func NewRegistry(stakeTiers []float64, deps Deps) *Registry {
	r := &Registry{
		rooms:   make(map[string]*Room),
		routes:  make(map[string]*route),
		lobby:   make(map[string]*Session),
		reports: make(map[string]reportedPosition),
		deps:    deps,
		stop:    make(chan struct{}),
	}
	for i, tier := range stakeTiers {
		cfg := deps.WorldCfg
		if cfg.Seed == 0 {
			cfg.Seed = time.Now().UnixNano() + int64(i)
		}
		room := newRoom(tier, arena.NewWorld(cfg), deps)
		r.rooms[room.ID] = room
		r.order = append(r.order, room.ID)
		go room.runTicks(r.stop)
	}
	go r.runLobby()
	return r
}

// Close stops every room tick loop and the lobby broadcaster.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}

// Room looks up a room by id.
func (r *Registry) Room(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// RoomIDs lists rooms in configuration order.
func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Attach confirms escrow, joins the player into the room's world and adds
// the session to the room and lobby broadcast sets.
func (r *Registry) Attach(session *Session, roomID, playerID, name string, stake float64, settlementAddress string) error {
	room, ok := r.Room(roomID)
	if !ok {
		return fmt.Errorf("attach %s: %w", roomID, ErrRoomNotFound)
	}
	if stake > 0 && r.deps.Escrow != nil {
		if err := r.deps.Escrow.Confirm(playerID, stake); err != nil {
			return fmt.Errorf("%w: %v", ErrStakeNotEscrowed, err)
		}
	}
	if err := room.attach(session, playerID, name, stake, settlementAddress); err != nil {
		return err
	}
	r.mu.Lock()
	r.routes[session.ID()] = &route{room: room, playerID: playerID, name: name}
	r.lobby[session.ID()] = session
	r.mu.Unlock()
	return nil
}

// Detach removes a session everywhere. Idempotent: transport disconnect
// and cleanup paths may both call it.
func (r *Registry) Detach(sessionID string) {
	r.mu.Lock()
	rt := r.routes[sessionID]
	delete(r.routes, sessionID)
	delete(r.lobby, sessionID)
	r.mu.Unlock()

	if rt != nil {
		rt.room.detach(sessionID, rt.playerID)
		r.mu.Lock()
		delete(r.reports, rt.playerID)
		r.mu.Unlock()
	}
}

// Input routes a control sample to the owning room. Unknown sessions are
// ignored per the input-error policy.
func (r *Registry) Input(sessionID string, angle float64, boosting, cashoutHeld bool) {
	r.mu.RLock()
	rt := r.routes[sessionID]
	r.mu.RUnlock()
	if rt == nil {
		return
	}
	rt.room.submitInput(rt.playerID, angle, boosting, cashoutHeld)
}

// RoomDiagnostics is one room's operational snapshot.
type RoomDiagnostics struct {
	RoomID    string  `json:"roomId"`
	StakeTier float64 `json:"stakeTier"`
	Players   int     `json:"players"`
	Sessions  int     `json:"sessions"`
}

// SessionDiagnostics is one session's heartbeat view.
type SessionDiagnostics struct {
	SessionID     string `json:"sessionId"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// Diagnostics reports per-room counts and per-session heartbeat ages.
func (r *Registry) Diagnostics() ([]RoomDiagnostics, []SessionDiagnostics) {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	rooms := make([]*Room, 0, len(order))
	for _, id := range order {
		rooms = append(rooms, r.rooms[id])
	}
	sessions := make([]SessionDiagnostics, 0, len(r.lobby))
	for _, session := range r.lobby {
		sessions = append(sessions, SessionDiagnostics{
			SessionID:     session.ID(),
			LastHeartbeat: session.LastHeartbeat().UnixMilli(),
			RTTMillis:     session.LastRTT().Milliseconds(),
		})
	}
	r.mu.RUnlock()

	perRoom := make([]RoomDiagnostics, 0, len(rooms))
	for _, room := range rooms {
		perRoom = append(perRoom, RoomDiagnostics{
			RoomID:    room.ID,
			StakeTier: room.StakeTier,
			Players:   room.PlayerCount(),
			Sessions:  room.SessionCount(),
		})
	}
	return perRoom, sessions
}

// ReportPosition stores a client-reported cross-room position for the
// lobby view.
func (r *Registry) ReportPosition(sessionID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := r.routes[sessionID]
	if rt == nil {
		return
	}
	r.reports[rt.playerID] = reportedPosition{
		playerID: rt.playerID,
		name:     rt.name,
		roomID:   rt.room.ID,
		x:        x,
		y:        y,
		seenAt:   time.Now(),
	}
}
