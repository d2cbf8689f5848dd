package arena

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	// ErrPlayerExists rejects a join reusing a live player id.
	ErrPlayerExists = errors.New("player id already present")
	// ErrInvalidPlayer rejects a join with no usable identity.
	ErrInvalidPlayer = errors.New("player id required")
)

// Config tunes one world instance. Zero values fall back to defaults.
type Config struct {
	ArenaRadius float64
	SpawnRadius float64
	TargetItems int
	Seed        int64
}

func (c Config) withDefaults() Config {
	if c.ArenaRadius <= 0 {
		c.ArenaRadius = defaultArenaRadius
	}
	if c.SpawnRadius <= 0 || c.SpawnRadius > c.ArenaRadius {
		c.SpawnRadius = defaultSpawnRadius
	}
	if c.TargetItems <= 0 {
		c.TargetItems = defaultTargetItems
	}
	return c
}

// World is one room's authoritative state machine. It owns all player and
// item state exclusively and performs no I/O; the owning room serializes
// every call against the tick loop.
type World struct {
	cfg  Config
	tick uint64

	players  map[string]*playerState
	items    map[string]*Item
	cashouts map[string]*cashoutRequest
	respawns []uint64

	events      []Event
	settlements []SettlementIntent

	rng *rand.Rand
}

// NewWorld seeds a world with the target item population already placed.
func NewWorld(cfg Config) *World {
	cfg = cfg.withDefaults()
	w := &World{
		cfg:      cfg,
		players:  make(map[string]*playerState),
		items:    make(map[string]*Item),
		cashouts: make(map[string]*cashoutRequest),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
	for i := 0; i < cfg.TargetItems; i++ {
		w.spawnItem()
	}
	return w
}

// Tick reports the number of completed simulation steps.
func (w *World) Tick() uint64 { return w.tick }

// PlayerCount reports the number of live players.
func (w *World) PlayerCount() int { return len(w.players) }

// Join spawns a player near the arena center. Stake escrow is the caller's
// responsibility; the world trusts that funds were already debited.
func (w *World) Join(id, name string, stake float64, settlementAddress string) error {
	if id == "" {
		return ErrInvalidPlayer
	}
	if _, ok := w.players[id]; ok {
		return fmt.Errorf("join %s: %w", id, ErrPlayerExists)
	}
	if name == "" {
		name = id
	}
	pos := w.spawnPosition()
	segments := make([]Vec, int(InitialLength))
	for i := range segments {
		segments[i] = pos
	}
	w.players[id] = &playerState{
		Player: Player{
			ID:       id,
			Name:     name,
			Pos:      pos,
			Length:   InitialLength,
			Stake:    stake,
			Segments: segments,
		},
		settlementAddress: settlementAddress,
		joinedTick:        w.tick,
	}
	w.appendEvent(Event{Kind: EventPlayerJoined, Player: &PlayerRef{ID: id, Name: name}})
	return nil
}

// Leave removes a player with no economic side effect. Disconnects land
// here; they are neither deaths nor cashouts.
func (w *World) Leave(id string) {
	state, ok := w.players[id]
	if !ok {
		return
	}
	delete(w.players, id)
	delete(w.cashouts, id)
	w.appendEvent(Event{Kind: EventPlayerLeft, Player: &PlayerRef{ID: id, Name: state.Name}})
}

// SubmitInput applies the latest control sample for a player. Unknown ids
// are ignored; stale transports keep sending briefly after a death.
func (w *World) SubmitInput(id string, angle float64, boosting, cashoutHeld bool) {
	state, ok := w.players[id]
	if !ok {
		return
	}
	state.inputAngle = angle
	state.inputBoost = boosting
	if cashoutHeld && !state.cashoutHeld {
		w.beginCashout(state)
	} else if !cashoutHeld && state.cashoutHeld {
		w.cancelCashout(id)
	}
	state.cashoutHeld = cashoutHeld
}

// Step advances the world by dt seconds: movement, boundary deaths, item
// consumption, player-vs-player collisions, then cashout timers.
func (w *World) Step(dt float64) {
	w.tick++

	ids := w.sortedPlayerIDs()
	for _, id := range ids {
		state, ok := w.players[id]
		if !ok {
			continue
		}
		w.advancePlayer(state, dt)
	}

	// Boundary check before collisions so a head that left the arena
	// cannot kill on its way over the edge.
	for _, id := range ids {
		state, ok := w.players[id]
		if !ok {
			continue
		}
		if math.Hypot(state.Pos.X, state.Pos.Y) >= w.cfg.ArenaRadius {
			w.handleDeath(id, "boundary", "")
		}
	}

	for _, id := range ids {
		state, ok := w.players[id]
		if !ok {
			continue
		}
		w.consumeItems(state, dt)
		state.growSegments()
	}

	w.resolveCollisions(ids)
	w.respawnDueItems()
	w.advanceCashouts()
}

// Snapshot deep-copies the live state for the broadcast path.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{Tick: w.tick}
	snap.Players = make([]Player, 0, len(w.players))
	for _, id := range w.sortedPlayerIDs() {
		snap.Players = append(snap.Players, w.players[id].snapshot())
	}
	snap.Items = make([]Item, 0, len(w.items))
	for _, item := range w.items {
		snap.Items = append(snap.Items, *item)
	}
	return snap
}

// handleDeath resolves a player death exactly once. A second call for the
// same id is a no-op; overlapping collision checks within one tick may
// both nominate the same victim.
func (w *World) handleDeath(victimID, cause, killerID string) {
	victim, ok := w.players[victimID]
	if !ok {
		return
	}
	delete(w.players, victimID)
	delete(w.cashouts, victimID)

	w.scatterRemains(victim)

	death := DeathEvent{
		PlayerID:  victimID,
		Name:      victim.Name,
		Score:     victim.Score,
		Length:    victim.Length,
		Cause:     cause,
		StakeLost: victim.Stake,
		TimeAlive: float64(w.tick-victim.joinedTick) / TickRate,
	}

	if killer, alive := w.players[killerID]; killerID != "" && alive {
		killer.Stake += victim.Stake
		death.KillerName = killer.Name
		w.appendEvent(Event{Kind: EventKill, Kill: &KillEvent{
			KillerID:    killer.ID,
			KillerName:  killer.Name,
			VictimID:    victimID,
			VictimName:  victim.Name,
			StakeGained: victim.Stake,
			KillerStake: killer.Stake,
		}})
	}

	w.appendEvent(Event{Kind: EventDeath, Death: &death})
}

// scatterRemains converts every other victim segment into a lucky item so
// the value returns to the arena instead of vanishing.
func (w *World) scatterRemains(victim *playerState) {
	for i := 0; i < len(victim.Segments); i += 2 {
		item := &Item{
			ID:    w.nextItemID(),
			Pos:   victim.Segments[i],
			Value: 2,
			Color: itemColors[w.rng.Intn(len(itemColors))],
		}
		w.items[item.ID] = item
	}
}

func (w *World) advancePlayer(state *playerState, dt float64) {
	state.Heading = state.inputAngle
	state.Boosting = state.inputBoost && state.Length > MinBoostLength

	speed := BaseSpeed
	if state.Boosting {
		speed *= BoostMultiplier
		state.Score = math.Max(0, state.Score-BoostCostPerSecond*dt)
	}
	state.Pos.X += math.Cos(state.Heading) * speed * dt
	state.Pos.Y += math.Sin(state.Heading) * speed * dt

	state.updateSegments()
}

func (w *World) sortedPlayerIDs() []string {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) spawnPosition() Vec {
	// Spawns cluster near the arena center so early players find each
	// other quickly.
	angle := w.rng.Float64() * 2 * math.Pi
	radius := math.Sqrt(w.rng.Float64()) * w.cfg.SpawnRadius
	return Vec{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}
}
