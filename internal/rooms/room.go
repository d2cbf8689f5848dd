package rooms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/internal/proto"
	"coil-and-cash/server/logging"
	logeconomy "coil-and-cash/server/logging/economy"
	loglifecycle "coil-and-cash/server/logging/lifecycle"
	lognetwork "coil-and-cash/server/logging/network"
)

const (
	// BroadcastRate throttles room snapshots independently of the 60 Hz tick.
	BroadcastRate = 15
	// catchupMaxTicks bounds dt when the tick loop falls behind.
	catchupMaxTicks = 4
)

// Room owns one authoritative world for a stake tier plus the sessions
// attached to it. All world access is serialized through mu.
type Room struct {
	ID        string
	StakeTier float64

	mu       sync.Mutex
	world    *arena.World
	sessions map[string]*Session

	// broadcasting guards the single snapshot loop: started on first
	// attach, exits when the room empties, restarted on the next attach.
	broadcasting bool

	settler  arena.Settler
	pub      logging.Publisher
	recorder OutcomeRecorder
}

func newRoom(tier float64, world *arena.World, deps Deps) *Room {
	id := fmt.Sprintf("room-%g", tier)
	return &Room{
		ID:        id,
		StakeTier: tier,
		world:     world,
		sessions:  make(map[string]*Session),
		settler:   deps.Settler,
		pub:       logging.WithRoom(deps.Publisher, id),
		recorder:  deps.Recorder,
	}
}

// runTicks drives the fixed-rate simulation loop until stop closes.
// Network I/O never runs under the room lock; drained events and
// settlement intents are handed off after unlock.
func (r *Room) runTicks(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / arena.TickRate)
	defer ticker.Stop()

	budget := 1.0 / float64(arena.TickRate)
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget
			} else if dt > budget*catchupMaxTicks {
				dt = budget * catchupMaxTicks
			}
			last = now

			r.mu.Lock()
			r.world.Step(dt)
			events := r.world.DrainEvents()
			intents := r.world.DrainSettlements()
			r.mu.Unlock()

			if len(events) > 0 {
				r.dispatchEvents(events)
			}
			for _, intent := range intents {
				go r.settle(intent)
			}
		}
	}
}

// settle runs one asynchronous settlement and feeds the outcome back into
// the world, which re-validates the request before committing.
func (r *Room) settle(intent arena.SettlementIntent) {
	var (
		reference string
		reason    string
		ok        bool
	)
	if r.settler == nil {
		reason = "no settlement collaborator configured"
	} else if ref, err := r.settler.Settle(intent.PlayerID, intent.Address, intent.Amount); err != nil {
		reason = err.Error()
	} else {
		reference = ref
		ok = true
	}

	r.mu.Lock()
	r.world.CompleteCashout(intent.PlayerID, ok, reference, reason)
	events := r.world.DrainEvents()
	r.mu.Unlock()

	if len(events) > 0 {
		r.dispatchEvents(events)
	}
}

// attach joins a player and adds the session to the broadcast set,
// starting the snapshot loop if it is not already running.
func (r *Room) attach(session *Session, playerID, name string, stake float64, settlementAddress string) error {
	r.mu.Lock()
	if err := r.world.Join(playerID, name, stake, settlementAddress); err != nil {
		r.mu.Unlock()
		return err
	}
	r.sessions[session.ID()] = session
	startLoop := !r.broadcasting
	if startLoop {
		r.broadcasting = true
	}
	tick := r.world.Tick()
	events := r.world.DrainEvents()
	r.mu.Unlock()

	loglifecycle.PlayerJoined(context.Background(), r.pub, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		loglifecycle.JoinedPayload{Name: name, StakeTier: stake})

	if len(events) > 0 {
		r.dispatchEvents(events)
	}
	if startLoop {
		go r.runBroadcasts()
	}
	return nil
}

// detach removes a session and its player. Safe to call repeatedly; the
// second call finds nothing to remove.
func (r *Room) detach(sessionID, playerID string) {
	r.mu.Lock()
	_, hadSession := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	if playerID != "" {
		r.world.Leave(playerID)
	}
	tick := r.world.Tick()
	events := r.world.DrainEvents()
	r.mu.Unlock()

	if hadSession && playerID != "" {
		loglifecycle.PlayerLeft(context.Background(), r.pub, tick,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer})
	}
	if len(events) > 0 {
		r.dispatchEvents(events)
	}
}

// submitInput forwards a control sample to the world.
func (r *Room) submitInput(playerID string, angle float64, boosting, cashoutHeld bool) {
	r.mu.Lock()
	r.world.SubmitInput(playerID, angle, boosting, cashoutHeld)
	r.mu.Unlock()
}

// Join adds a player without a session. Live clients go through the
// registry attach path; this serves headless embedders (bots, tools),
// which observe through Snapshot instead of broadcasts.
func (r *Room) Join(playerID, name string, stake float64, settlementAddress string) error {
	r.mu.Lock()
	err := r.world.Join(playerID, name, stake, settlementAddress)
	events := r.world.DrainEvents()
	r.mu.Unlock()

	if len(events) > 0 {
		r.dispatchEvents(events)
	}
	return err
}

// Leave removes a player with no economic effect.
func (r *Room) Leave(playerID string) {
	r.detach("", playerID)
}

// Input forwards a control sample to the world.
func (r *Room) Input(playerID string, angle float64, boosting, cashoutHeld bool) {
	r.submitInput(playerID, angle, boosting, cashoutHeld)
}

// Snapshot deep-copies the current world state.
func (r *Room) Snapshot() arena.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Snapshot()
}

// runBroadcasts ships throttled snapshots while the room has sessions.
// Room snapshots are never sent for an empty world: there is nothing to
// render and idle clients should not be woken.
func (r *Room) runBroadcasts() {
	ticker := time.NewTicker(time.Second / BroadcastRate)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		if len(r.sessions) == 0 {
			r.broadcasting = false
			r.mu.Unlock()
			return
		}
		if r.world.PlayerCount() == 0 {
			r.mu.Unlock()
			continue
		}
		snapshot := r.world.Snapshot()
		sessions := r.sessionsLocked()
		r.mu.Unlock()

		data, err := proto.EncodeRoomState(snapshot, time.Now().UnixMilli())
		if err != nil {
			lognetwork.BroadcastFailed(context.Background(), r.pub, snapshot.Tick, r.ID, err)
			continue
		}
		for _, session := range sessions {
			if err := session.Write(websocket.TextMessage, data); err != nil {
				r.evict(session, "write failed")
			}
		}
	}
}

// dispatchEvents fans discrete event frames out to every attached session
// and forwards terminal outcomes to the logging and persistence
// collaborators. Runs outside the room lock.
func (r *Room) dispatchEvents(events []arena.Event) {
	r.mu.Lock()
	sessions := r.sessionsLocked()
	tick := r.world.Tick()
	r.mu.Unlock()

	ctx := context.Background()
	for _, ev := range events {
		r.logEvent(ctx, tick, ev)
		r.recordEvent(ev)

		data, wire, err := proto.EncodeEvent(ev)
		if err != nil {
			lognetwork.BroadcastFailed(ctx, r.pub, tick, r.ID, err)
			continue
		}
		if !wire {
			continue
		}
		for _, session := range sessions {
			if err := session.Write(websocket.TextMessage, data); err != nil {
				r.evict(session, "write failed")
			}
		}
	}
}

func (r *Room) logEvent(ctx context.Context, tick uint64, ev arena.Event) {
	switch ev.Kind {
	case arena.EventDeath:
		loglifecycle.PlayerDied(ctx, r.pub, tick,
			logging.EntityRef{ID: ev.Death.PlayerID, Kind: logging.EntityKindPlayer},
			loglifecycle.DiedPayload{
				Cause:      ev.Death.Cause,
				KillerName: ev.Death.KillerName,
				Score:      ev.Death.Score,
				TimeAlive:  ev.Death.TimeAlive,
			})
	case arena.EventKill:
		logeconomy.StakeTransferred(ctx, r.pub, tick,
			logging.EntityRef{ID: ev.Kill.KillerID, Kind: logging.EntityKindPlayer},
			logeconomy.StakeTransferredPayload{
				VictimID:    ev.Kill.VictimID,
				Amount:      ev.Kill.StakeGained,
				KillerStake: ev.Kill.KillerStake,
			})
	case arena.EventCashoutSuccess:
		logeconomy.CashoutSettled(ctx, r.pub, tick,
			logging.EntityRef{ID: ev.Cashout.PlayerID, Kind: logging.EntityKindPlayer},
			logeconomy.CashoutSettledPayload{
				TotalPot:       ev.Cashout.TotalPot,
				PlayerReceives: ev.Cashout.PlayerReceives,
				Reference:      ev.Cashout.Reference,
			})
	case arena.EventCashoutFailed:
		logeconomy.CashoutFailed(ctx, r.pub, tick,
			logging.EntityRef{ID: ev.Cashout.PlayerID, Kind: logging.EntityKindPlayer},
			logeconomy.CashoutFailedPayload{
				TotalPot: ev.Cashout.TotalPot,
				Reason:   ev.Cashout.Reason,
			})
	}
}

// recordEvent hands terminal outcomes to the persistence collaborator.
// Fire-and-forget: recording failures never touch game state.
func (r *Room) recordEvent(ev arena.Event) {
	if r.recorder == nil {
		return
	}
	switch ev.Kind {
	case arena.EventDeath:
		r.recorder.RecordDeath(r.ID, *ev.Death)
	case arena.EventCashoutSuccess:
		r.recorder.RecordCashout(r.ID, *ev.Cashout, true)
	case arena.EventCashoutFailed:
		r.recorder.RecordCashout(r.ID, *ev.Cashout, false)
	}
}

// evict drops a session whose transport failed. The owning registry also
// detaches it when the read loop notices, so this only closes and forgets
// the broadcast membership.
func (r *Room) evict(session *Session, reason string) {
	r.mu.Lock()
	_, present := r.sessions[session.ID()]
	delete(r.sessions, session.ID())
	tick := r.world.Tick()
	r.mu.Unlock()

	if present {
		lognetwork.SessionDropped(context.Background(), r.pub, tick,
			logging.EntityRef{ID: session.ID(), Kind: logging.EntityKindSession}, reason)
		session.Close()
	}
}

// sessionsLocked copies the broadcast set; callers hold mu.
func (r *Room) sessionsLocked() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// lobbyPositions reports the cross-room ambient view of this room's
// players: position, name and score only.
func (r *Room) lobbyPositions() []proto.LobbyPosition {
	r.mu.Lock()
	snapshot := r.world.Snapshot()
	r.mu.Unlock()

	out := make([]proto.LobbyPosition, 0, len(snapshot.Players))
	for _, p := range snapshot.Players {
		out = append(out, proto.LobbyPosition{
			PlayerID: p.ID,
			Name:     p.Name,
			RoomID:   r.ID,
			X:        p.Pos.X,
			Y:        p.Pos.Y,
			Score:    p.Score,
		})
	}
	return out
}

// PlayerCount reports the live player count for diagnostics.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.PlayerCount()
}

// SessionCount reports the attached session count for diagnostics.
func (r *Room) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
