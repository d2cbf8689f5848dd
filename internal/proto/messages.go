// Package proto defines the JSON wire contract between clients and the
// room registry. Field names are the contract; the byte layout is plain
// JSON text frames.
package proto

import (
	"encoding/json"
	"fmt"

	"coil-and-cash/server/internal/arena"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeJoinRoom       = "joinRoom"
	TypeInput          = "input"
	TypePositionReport = "positionReport"
	TypeHeartbeat      = "heartbeat"
)

// Server message type identifiers.
const (
	TypeJoinSuccess    = "joinSuccess"
	TypeJoinError      = "joinError"
	TypeRoomState      = "roomState"
	TypeLobbyState     = "lobbyState"
	TypePlayerJoined   = "playerJoined"
	TypePlayerLeft     = "playerLeft"
	TypeDeath          = "death"
	TypeKill           = "kill"
	TypeCashoutSuccess = "cashoutSuccess"
	TypeCashoutFailed  = "cashoutFailed"
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver               int     `json:"ver,omitempty"`
	Type              string  `json:"type"`
	RoomID            string  `json:"roomId,omitempty"`
	PlayerID          string  `json:"playerId,omitempty"`
	Name              string  `json:"name,omitempty"`
	StakeTier         float64 `json:"stakeTier,omitempty"`
	SettlementAddress string  `json:"settlementAddress,omitempty"`
	Angle             float64 `json:"angle,omitempty"`
	Boosting          bool    `json:"boosting,omitempty"`
	CashoutHeld       bool    `json:"cashoutHeld,omitempty"`
	X                 float64 `json:"x,omitempty"`
	Y                 float64 `json:"y,omitempty"`
	Velocity          float64 `json:"velocity,omitempty"`
	SentAt            int64   `json:"sentAt,omitempty"`
	Sequence          uint64  `json:"seq,omitempty"`
	// RTTMillis carries the round trip the client measured from the
	// previous heartbeat ack on its own clock. Heartbeat messages only.
	RTTMillis int64 `json:"rtt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured
// message, rejecting unsupported protocol revisions.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// JoinSuccess acknowledges a completed room attach.
type JoinSuccess struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// EncodeJoinSuccess renders a join acknowledgement.
func EncodeJoinSuccess(roomID string) ([]byte, error) {
	return json.Marshal(JoinSuccess{Ver: Version, Type: TypeJoinSuccess, RoomID: roomID})
}

// JoinError reports a rejected join. Reason is user-renderable.
type JoinError struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EncodeJoinError renders a join rejection.
func EncodeJoinError(reason string) ([]byte, error) {
	return json.Marshal(JoinError{Ver: Version, Type: TypeJoinError, Reason: reason})
}

// RoomState carries one throttled room-scoped snapshot.
type RoomState struct {
	Ver        int            `json:"ver"`
	Type       string         `json:"type"`
	Snapshot   arena.Snapshot `json:"snapshot"`
	ServerTime int64          `json:"serverTime"`
}

// EncodeRoomState renders a room snapshot frame.
func EncodeRoomState(snapshot arena.Snapshot, serverTime int64) ([]byte, error) {
	return json.Marshal(RoomState{
		Ver:        Version,
		Type:       TypeRoomState,
		Snapshot:   snapshot,
		ServerTime: serverTime,
	})
}

// LobbyPosition is the cross-room view of one player: position, name and
// score only. Segments and economic fields never cross room boundaries.
type LobbyPosition struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	RoomID   string  `json:"roomId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Score    float64 `json:"score"`
}

// LobbyState carries the cross-room ambient view.
type LobbyState struct {
	Ver        int             `json:"ver"`
	Type       string          `json:"type"`
	Positions  []LobbyPosition `json:"positions"`
	ServerTime int64           `json:"serverTime"`
}

// EncodeLobbyState renders a lobby frame.
func EncodeLobbyState(positions []LobbyPosition, serverTime int64) ([]byte, error) {
	return json.Marshal(LobbyState{
		Ver:        Version,
		Type:       TypeLobbyState,
		Positions:  positions,
		ServerTime: serverTime,
	})
}

// EventFrame wraps a single discrete world event.
type EventFrame struct {
	Ver     int                 `json:"ver"`
	Type    string              `json:"type"`
	Player  *arena.PlayerRef    `json:"player,omitempty"`
	Death   *arena.DeathEvent   `json:"death,omitempty"`
	Kill    *arena.KillEvent    `json:"kill,omitempty"`
	Cashout *arena.CashoutEvent `json:"cashout,omitempty"`
}

// EncodeEvent renders a world event as its own frame. Returns false for
// event kinds with no wire representation.
func EncodeEvent(ev arena.Event) ([]byte, bool, error) {
	frame := EventFrame{Ver: Version}
	switch ev.Kind {
	case arena.EventPlayerJoined:
		frame.Type = TypePlayerJoined
		frame.Player = ev.Player
	case arena.EventPlayerLeft:
		frame.Type = TypePlayerLeft
		frame.Player = ev.Player
	case arena.EventDeath:
		frame.Type = TypeDeath
		frame.Death = ev.Death
	case arena.EventKill:
		frame.Type = TypeKill
		frame.Kill = ev.Kill
	case arena.EventCashoutSuccess:
		frame.Type = TypeCashoutSuccess
		frame.Cashout = ev.Cashout
	case arena.EventCashoutFailed:
		frame.Type = TypeCashoutFailed
		frame.Cashout = ev.Cashout
	default:
		return nil, false, nil
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(serverTime, clientTime, rttMillis int64) ([]byte, error) {
	return json.Marshal(Heartbeat{
		Ver:        Version,
		Type:       TypeHeartbeat,
		ServerTime: serverTime,
		ClientTime: clientTime,
		RTTMillis:  rttMillis,
	})
}
