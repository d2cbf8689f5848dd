package netclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/internal/proto"
)

// JoinOptions describe the room a client wants to enter.
type JoinOptions struct {
	RoomID            string
	PlayerID          string
	Name              string
	StakeTier         float64
	SettlementAddress string
}

// Client is a headless game client: it joins one room, predicts its own
// movement locally and interpolates everyone else.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger

	mu        sync.Mutex
	playerID  string
	predictor *Predictor
	interp    *Interpolator
	snapshot  arena.Snapshot
	seq       uint64

	joinResult chan error
	events     chan proto.EventFrame
	done       chan struct{}
	closeOnce  sync.Once
}

// Dial connects to a server websocket endpoint.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:       conn,
		logger:     logger,
		predictor:  NewPredictor(arena.Vec{}),
		interp:     NewInterpolator(),
		joinResult: make(chan error, 1),
		events:     make(chan proto.EventFrame, 64),
		done:       make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Join attaches to a room and blocks until the server acknowledges or the
// context expires.
func (c *Client) Join(ctx context.Context, opts JoinOptions) error {
	c.mu.Lock()
	c.playerID = opts.PlayerID
	c.mu.Unlock()
	msg := proto.ClientMessage{
		Ver:               proto.Version,
		Type:              proto.TypeJoinRoom,
		RoomID:            opts.RoomID,
		PlayerID:          opts.PlayerID,
		Name:              opts.Name,
		StakeTier:         opts.StakeTier,
		SettlementAddress: opts.SettlementAddress,
	}
	if err := c.write(msg); err != nil {
		return err
	}
	select {
	case err := <-c.joinResult:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection closed before join completed")
	}
}

// SendInput applies the input to the local prediction immediately and
// ships it to the server in the background.
func (c *Client) SendInput(angle float64, boosting, cashoutHeld bool) error {
	c.mu.Lock()
	c.predictor.SetInput(angle, boosting)
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	return c.write(proto.ClientMessage{
		Ver:         proto.Version,
		Type:        proto.TypeInput,
		Angle:       angle,
		Boosting:    boosting,
		CashoutHeld: cashoutHeld,
		SentAt:      time.Now().UnixMilli(),
		Sequence:    seq,
	})
}

// Advance steps the local prediction by dt seconds of the current input.
func (c *Client) Advance(dt float64) arena.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.predictor.Advance(dt)
}

// RenderPosition resolves where to draw a player right now: the predicted
// position for the local player, the delayed interpolated one for anyone
// else.
func (c *Client) RenderPosition(id string, now time.Time) (arena.Vec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == c.playerID {
		return c.predictor.Pos(), true
	}
	return c.interp.PositionAt(id, now)
}

// Snapshot returns the latest room snapshot received from the server.
func (c *Client) Snapshot() arena.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Events surfaces discrete server events (deaths, kills, cashout
// outcomes) to the embedding application.
func (c *Client) Events() <-chan proto.EventFrame {
	return c.events
}

// Close tears the connection down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Client) write(msg proto.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() { close(c.done) })
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &head); err != nil {
			c.logger.Printf("discarding malformed server frame: %v", err)
			continue
		}
		switch head.Type {
		case proto.TypeJoinSuccess:
			select {
			case c.joinResult <- nil:
			default:
			}
		case proto.TypeJoinError:
			var frame proto.JoinError
			if err := json.Unmarshal(payload, &frame); err != nil {
				continue
			}
			select {
			case c.joinResult <- fmt.Errorf("join rejected: %s", frame.Reason):
			default:
			}
		case proto.TypeRoomState:
			var frame proto.RoomState
			if err := json.Unmarshal(payload, &frame); err != nil {
				c.logger.Printf("discarding malformed snapshot: %v", err)
				continue
			}
			c.applySnapshot(frame)
		case proto.TypeDeath, proto.TypeKill, proto.TypeCashoutSuccess,
			proto.TypeCashoutFailed, proto.TypePlayerJoined, proto.TypePlayerLeft:
			var frame proto.EventFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				continue
			}
			c.applyEvent(frame)
			select {
			case c.events <- frame:
			default:
			}
		}
	}
}

// applySnapshot reconciles the local prediction against the authoritative
// state and buffers remote samples for interpolation.
func (c *Client) applySnapshot(frame proto.RoomState) {
	at := time.UnixMilli(frame.ServerTime)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = frame.Snapshot
	for _, p := range frame.Snapshot.Players {
		if p.ID == c.playerID {
			c.predictor.SetLength(p.Length)
			c.predictor.Reconcile(p.Pos)
			continue
		}
		velocity := arena.BaseSpeed
		if p.Boosting {
			velocity *= arena.BoostMultiplier
		}
		c.interp.Observe(p.ID, Sample{
			At:       at,
			Pos:      p.Pos,
			Heading:  p.Heading,
			Velocity: velocity,
		})
	}
}

// applyEvent drops interpolation buffers for entities that left the room.
func (c *Client) applyEvent(frame proto.EventFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch frame.Type {
	case proto.TypeDeath:
		if frame.Death != nil {
			c.interp.Forget(frame.Death.PlayerID)
		}
	case proto.TypePlayerLeft:
		if frame.Player != nil {
			c.interp.Forget(frame.Player.ID)
		}
	case proto.TypeCashoutSuccess:
		if frame.Cashout != nil {
			c.interp.Forget(frame.Cashout.PlayerID)
		}
	}
}
