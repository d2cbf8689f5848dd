package arena

import "math"

// resolveCollisions checks every live head against every other living
// player's segment chain. Iteration follows sorted id order so the outcome
// of a mutual collision is deterministic. handleDeath tolerates repeats,
// so a player killed early in the pass simply drops out of later checks.
func (w *World) resolveCollisions(ids []string) {
	for _, id := range ids {
		mover, ok := w.players[id]
		if !ok {
			continue
		}
		killerID, hit := w.findCollision(mover, ids)
		if hit {
			w.handleDeath(id, "collision", killerID)
		}
	}
}

// findCollision returns the owner of the first segment within KillRadius
// of the mover's head. The first few segments of the other player are
// skipped: directly behind a head they overlap the head itself and would
// turn every near miss into a trade.
func (w *World) findCollision(mover *playerState, ids []string) (string, bool) {
	head := mover.Pos
	for _, otherID := range ids {
		if otherID == mover.ID {
			continue
		}
		other, ok := w.players[otherID]
		if !ok {
			continue
		}
		for i := SelfAdjacentSkip; i < len(other.Segments); i++ {
			seg := other.Segments[i]
			if math.Hypot(head.X-seg.X, head.Y-seg.Y) <= KillRadius {
				return otherID, true
			}
		}
	}
	return "", false
}
