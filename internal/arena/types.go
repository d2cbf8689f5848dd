package arena

// Vec is a 2D position in world units.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player mirrors the snapshot shape exposed to the transport layer.
type Player struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Pos      Vec     `json:"pos"`
	Heading  float64 `json:"heading"`
	Length   float64 `json:"length"`
	Score    float64 `json:"score"`
	Stake    float64 `json:"stake"`
	Boosting bool    `json:"boosting"`
	Segments []Vec   `json:"segments"`
}

// playerState tracks a live player along with control state the snapshot
// never exposes.
type playerState struct {
	Player
	settlementAddress string
	joinedTick        uint64
	inputAngle        float64
	inputBoost        bool
	cashoutHeld       bool
}

// snapshot returns a copy safe to hand to the broadcast path.
func (p *playerState) snapshot() Player {
	out := p.Player
	out.Segments = append([]Vec(nil), p.Segments...)
	return out
}

// Item is a consumable pellet on the arena floor.
type Item struct {
	ID    string `json:"id"`
	Pos   Vec    `json:"pos"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// Snapshot is the per-tick view handed to the broadcast path. Slices are
// copies; the world retains exclusive ownership of live state.
type Snapshot struct {
	Tick    uint64   `json:"t"`
	Players []Player `json:"players"`
	Items   []Item   `json:"items"`
}

// SettlementIntent asks the transport owner to run an asynchronous value
// transfer. The world never performs I/O itself.
type SettlementIntent struct {
	PlayerID string
	Address  string
	TotalPot float64
	Fee      float64
	Amount   float64
}
