// Package ws runs the websocket session read loop between one client and
// the room registry.
package ws

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/proto"
	"coil-and-cash/server/internal/rooms"
	"coil-and-cash/server/logging"
	lognetwork "coil-and-cash/server/logging/network"
)

// Handler coordinates websocket sessions against the room registry.
type Handler struct {
	registry *rooms.Registry
	pub      logging.Publisher
	logger   *log.Logger
}

// NewHandler constructs a websocket session handler.
func NewHandler(registry *rooms.Registry, pub logging.Publisher, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Handler{registry: registry, pub: pub, logger: logger}
}

// Serve owns one connection until it closes. Malformed messages are
// dropped per-message; a transport failure detaches the session, which is
// a leave, never a death.
func (h *Handler) Serve(conn *websocket.Conn) {
	session := rooms.NewSession("session-"+uuid.NewString(), conn)
	defer func() {
		h.registry.Detach(session.ID())
		session.Close()
	}()

	joined := false
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", session.ID(), err)
			continue
		}

		switch msg.Type {
		case proto.TypeJoinRoom:
			if joined {
				h.writeJoinError(session, "already joined")
				continue
			}
			err := h.registry.Attach(session, msg.RoomID, msg.PlayerID, msg.Name, msg.StakeTier, msg.SettlementAddress)
			if err != nil {
				h.writeJoinError(session, joinErrorReason(err))
				continue
			}
			joined = true
			data, err := proto.EncodeJoinSuccess(msg.RoomID)
			if err != nil {
				h.logger.Printf("failed to marshal join ack for %s: %v", session.ID(), err)
				continue
			}
			if err := session.Write(websocket.TextMessage, data); err != nil {
				return
			}
		case proto.TypeInput:
			if !session.AllowInput() {
				lognetwork.InputThrottled(context.Background(), h.pub,
					logging.EntityRef{ID: session.ID(), Kind: logging.EntityKindSession})
				continue
			}
			h.registry.Input(session.ID(), msg.Angle, msg.Boosting, msg.CashoutHeld)
		case proto.TypePositionReport:
			h.registry.ReportPosition(session.ID(), msg.X, msg.Y)
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt := session.Heartbeat(now, msg.RTTMillis)
			data, err := proto.EncodeHeartbeat(now.UnixMilli(), msg.SentAt, rtt.Milliseconds())
			if err != nil {
				h.logger.Printf("failed to marshal heartbeat ack for %s: %v", session.ID(), err)
				continue
			}
			if err := session.Write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, session.ID())
		}
	}
}

func (h *Handler) writeJoinError(session *rooms.Session, reason string) {
	data, err := proto.EncodeJoinError(reason)
	if err != nil {
		h.logger.Printf("failed to marshal join error for %s: %v", session.ID(), err)
		return
	}
	session.Write(websocket.TextMessage, data)
}

// joinErrorReason maps registry errors onto user-renderable reasons.
func joinErrorReason(err error) string {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, rooms.ErrStakeNotEscrowed):
		return "stake not escrowed"
	default:
		return err.Error()
	}
}
