package rooms

import (
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/proto"
)

const (
	// LobbyRate throttles the cross-room ambient broadcast.
	LobbyRate = 5
	// heartbeatTimeout evicts sessions whose client stopped heartbeating.
	heartbeatTimeout = 6 * time.Second
	// reportTTL expires stale client position reports from the lobby view.
	reportTTL = 3 * time.Second
)

// runLobby ships the cross-room view to every attached session and sweeps
// heartbeat-expired sessions. The lobby carries position, name and score
// only; segments and stakes stay room-scoped so cross-room visibility
// never leaks a collision surface.
func (r *Registry) runLobby() {
	ticker := time.NewTicker(time.Second / LobbyRate)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.sweepStale(now)

			sessions := r.lobbySessions()
			if len(sessions) == 0 {
				continue
			}
			positions := r.collectPositions(now)
			data, err := proto.EncodeLobbyState(positions, now.UnixMilli())
			if err != nil {
				continue
			}
			for _, session := range sessions {
				if err := session.Write(websocket.TextMessage, data); err != nil {
					r.Detach(session.ID())
					session.Close()
				}
			}
		}
	}
}

// collectPositions merges authoritative per-room positions with
// client-reported cross-room approximations. Authoritative entries win.
func (r *Registry) collectPositions(now time.Time) []proto.LobbyPosition {
	seen := make(map[string]struct{})
	var positions []proto.LobbyPosition

	r.mu.RLock()
	order := append([]string(nil), r.order...)
	rooms := make([]*Room, 0, len(order))
	for _, id := range order {
		rooms = append(rooms, r.rooms[id])
	}
	r.mu.RUnlock()

	for _, room := range rooms {
		for _, pos := range room.lobbyPositions() {
			seen[pos.PlayerID] = struct{}{}
			positions = append(positions, pos)
		}
	}

	r.mu.RLock()
	for id, rep := range r.reports {
		if _, ok := seen[id]; ok {
			continue
		}
		if now.Sub(rep.seenAt) > reportTTL {
			continue
		}
		positions = append(positions, proto.LobbyPosition{
			PlayerID: rep.playerID,
			Name:     rep.name,
			RoomID:   rep.roomID,
			X:        rep.x,
			Y:        rep.y,
		})
	}
	r.mu.RUnlock()

	return positions
}

// sweepStale detaches sessions whose heartbeats stopped.
func (r *Registry) sweepStale(now time.Time) {
	var expired []*Session
	r.mu.RLock()
	for _, session := range r.lobby {
		if now.Sub(session.LastHeartbeat()) > heartbeatTimeout {
			expired = append(expired, session)
		}
	}
	r.mu.RUnlock()

	for _, session := range expired {
		r.Detach(session.ID())
		session.Close()
	}
}

// lobbySessions copies the lobby broadcast set.
func (r *Registry) lobbySessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.lobby))
	for _, s := range r.lobby {
		out = append(out, s)
	}
	return out
}
