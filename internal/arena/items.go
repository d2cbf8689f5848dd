package arena

import (
	"math"

	"github.com/google/uuid"
)

var itemColors = []string{"#f94144", "#f8961e", "#f9c74f", "#90be6d", "#43aa8b", "#577590"}

func (w *World) nextItemID() string {
	return "item-" + uuid.NewString()
}

// spawnItem places a fresh item at a uniformly random arena position.
func (w *World) spawnItem() {
	angle := w.rng.Float64() * 2 * math.Pi
	radius := math.Sqrt(w.rng.Float64()) * w.cfg.ArenaRadius * 0.95
	value := 1
	if w.rng.Float64() < LuckyChance {
		value = 2
	}
	item := &Item{
		ID:    w.nextItemID(),
		Pos:   Vec{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius},
		Value: value,
		Color: itemColors[w.rng.Intn(len(itemColors))],
	}
	w.items[item.ID] = item
}

// consumeItems pulls nearby items toward the head and eats the ones inside
// the eat radius. Eaten items respawn elsewhere after a delay, keeping the
// total population near the configured target without rewarding camping.
func (w *World) consumeItems(state *playerState, dt float64) {
	for id, item := range w.items {
		dx := state.Pos.X - item.Pos.X
		dy := state.Pos.Y - item.Pos.Y
		dist := math.Hypot(dx, dy)
		if dist > MagnetRadius {
			continue
		}
		if dist > EatRadius {
			scale := MagnetPull * dt / dist
			if scale > 1 {
				scale = 1
			}
			item.Pos.X += dx * scale
			item.Pos.Y += dy * scale
			continue
		}
		state.Score += float64(item.Value)
		state.Length += float64(item.Value)
		delete(w.items, id)
		w.respawns = append(w.respawns, w.tick+itemRespawnTicks)
	}
}

// respawnDueItems replaces consumed items once their delay elapses, but
// only while the population is below target. Death drops can push the
// count above target; the backlog then drains without spawning.
func (w *World) respawnDueItems() {
	kept := w.respawns[:0]
	for _, due := range w.respawns {
		if due > w.tick {
			kept = append(kept, due)
			continue
		}
		if len(w.items) < w.cfg.TargetItems {
			w.spawnItem()
		}
	}
	w.respawns = kept
}
