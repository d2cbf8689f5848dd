package arena

// EventKind discriminates drained world events.
type EventKind string

const (
	EventPlayerJoined   EventKind = "playerJoined"
	EventPlayerLeft     EventKind = "playerLeft"
	EventDeath          EventKind = "death"
	EventKill           EventKind = "kill"
	EventCashoutSuccess EventKind = "cashoutSuccess"
	EventCashoutFailed  EventKind = "cashoutFailed"
)

// PlayerRef identifies a player in join/leave events.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeathEvent describes a terminal outcome for one player.
type DeathEvent struct {
	PlayerID   string  `json:"playerId"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Length     float64 `json:"length"`
	Cause      string  `json:"cause"`
	KillerName string  `json:"killerName,omitempty"`
	StakeLost  float64 `json:"stakeLost"`
	TimeAlive  float64 `json:"timeAlive"`
}

// KillEvent credits a killer with the victim's stake.
type KillEvent struct {
	KillerID    string  `json:"killerId"`
	KillerName  string  `json:"killerName"`
	VictimID    string  `json:"victimId"`
	VictimName  string  `json:"victimName"`
	StakeGained float64 `json:"stakeGained"`
	KillerStake float64 `json:"killerStake"`
}

// CashoutEvent reports the outcome of an extraction attempt.
type CashoutEvent struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	TotalPot       float64 `json:"totalPot"`
	PlayerReceives float64 `json:"playerReceives,omitempty"`
	Reference      string  `json:"reference,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Event is the typed record drained by the room broadcaster once per tick.
// Exactly one payload pointer is set, matching Kind.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Player  *PlayerRef    `json:"player,omitempty"`
	Death   *DeathEvent   `json:"death,omitempty"`
	Kill    *KillEvent    `json:"kill,omitempty"`
	Cashout *CashoutEvent `json:"cashout,omitempty"`
}

func (w *World) appendEvent(ev Event) {
	w.events = append(w.events, ev)
}

// DrainEvents returns queued events and clears the queue. At-most-once
// delivery: a drained event is never re-queued.
func (w *World) DrainEvents() []Event {
	if len(w.events) == 0 {
		return nil
	}
	out := w.events
	w.events = nil
	return out
}

// DrainSettlements returns pending settlement intents and clears the queue.
func (w *World) DrainSettlements() []SettlementIntent {
	if len(w.settlements) == 0 {
		return nil
	}
	out := w.settlements
	w.settlements = nil
	return out
}
