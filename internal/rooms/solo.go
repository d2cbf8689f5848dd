package rooms

import (
	"sync"
	"time"

	"coil-and-cash/server/internal/arena"
)

// Sim is the room shape shared by live registry rooms and solo play:
// join, steer, leave, observe. Callers pick the backing variant at
// acquisition time instead of shape-matching at runtime.
type Sim interface {
	Join(playerID, name string, stake float64, settlementAddress string) error
	Leave(playerID string)
	Input(playerID string, angle float64, boosting, cashoutHeld bool)
	Snapshot() arena.Snapshot
}

var (
	_ Sim = (*Room)(nil)
	_ Sim = (*Solo)(nil)
)

// Solo runs one world for local play with no transport attached: the
// same simulation rules and cashout flow as a live room, no sessions and
// no broadcasts. Bots, offline practice and tools embed it directly.
type Solo struct {
	mu      sync.Mutex
	world   *arena.World
	settler arena.Settler

	events chan arena.Event
	stop   chan struct{}
	once   sync.Once
}

// NewSolo starts a solo simulation and its tick loop.
func NewSolo(cfg arena.Config, settler arena.Settler) *Solo {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	s := &Solo{
		world:   arena.NewWorld(cfg),
		settler: settler,
		events:  make(chan arena.Event, 64),
		stop:    make(chan struct{}),
	}
	go s.runTicks()
	return s
}

// Close stops the tick loop.
func (s *Solo) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Join adds the local player.
func (s *Solo) Join(playerID, name string, stake float64, settlementAddress string) error {
	s.mu.Lock()
	err := s.world.Join(playerID, name, stake, settlementAddress)
	events := s.world.DrainEvents()
	s.mu.Unlock()
	s.deliver(events)
	return err
}

// Leave removes the player with no economic effect.
func (s *Solo) Leave(playerID string) {
	s.mu.Lock()
	s.world.Leave(playerID)
	events := s.world.DrainEvents()
	s.mu.Unlock()
	s.deliver(events)
}

// Input applies a control sample.
func (s *Solo) Input(playerID string, angle float64, boosting, cashoutHeld bool) {
	s.mu.Lock()
	s.world.SubmitInput(playerID, angle, boosting, cashoutHeld)
	s.mu.Unlock()
}

// Snapshot deep-copies the current state.
func (s *Solo) Snapshot() arena.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Snapshot()
}

// Events surfaces drained world events. Slow consumers lose events
// rather than stalling the tick loop.
func (s *Solo) Events() <-chan arena.Event {
	return s.events
}

func (s *Solo) runTicks() {
	ticker := time.NewTicker(time.Second / arena.TickRate)
	defer ticker.Stop()

	budget := 1.0 / float64(arena.TickRate)
	last := time.Now()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget
			} else if dt > budget*catchupMaxTicks {
				dt = budget * catchupMaxTicks
			}
			last = now

			s.mu.Lock()
			s.world.Step(dt)
			events := s.world.DrainEvents()
			intents := s.world.DrainSettlements()
			s.mu.Unlock()

			s.deliver(events)
			for _, intent := range intents {
				go s.settle(intent)
			}
		}
	}
}

func (s *Solo) settle(intent arena.SettlementIntent) {
	var (
		reference string
		reason    string
		ok        bool
	)
	if s.settler == nil {
		reason = "no settlement collaborator configured"
	} else if ref, err := s.settler.Settle(intent.PlayerID, intent.Address, intent.Amount); err != nil {
		reason = err.Error()
	} else {
		reference = ref
		ok = true
	}

	s.mu.Lock()
	s.world.CompleteCashout(intent.PlayerID, ok, reference, reason)
	events := s.world.DrainEvents()
	s.mu.Unlock()
	s.deliver(events)
}

func (s *Solo) deliver(events []arena.Event) {
	for _, ev := range events {
		select {
		case s.events <- ev:
		default:
		}
	}
}
