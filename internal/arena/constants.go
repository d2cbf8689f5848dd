package arena

import "time"

const (
	// TickRate is the fixed simulation cadence in ticks per second.
	TickRate = 60

	// InitialLength is the segment count a player spawns with.
	InitialLength = 10.0
	// SegmentSpacing is the maximum distance between consecutive segments.
	SegmentSpacing = 5.0

	// BaseSpeed is head movement in world units per second.
	BaseSpeed = 180.0
	// BoostMultiplier scales BaseSpeed while boosting.
	BoostMultiplier = 1.8
	// MinBoostLength gates boosting; shorter players move at base speed.
	MinBoostLength = 12.0
	// BoostCostPerSecond is the score drained while boosting.
	BoostCostPerSecond = 1.0

	// KillRadius is the head-to-segment distance that resolves as a kill.
	KillRadius = 12.0
	// SelfAdjacentSkip excludes the first segments of the other player from
	// collision checks so two heads brushing past each other do not trade
	// kills on adjacent spawn positions.
	SelfAdjacentSkip = 3

	// EatRadius is the head-to-item distance that consumes an item.
	EatRadius = 18.0
	// MagnetRadius is the range inside which items are pulled toward a head.
	MagnetRadius = 90.0
	// MagnetPull is the item pull speed in world units per second.
	MagnetPull = 420.0

	// LuckyChance is the probability a spawned item is worth 2.
	LuckyChance = 0.35
	// ItemRespawnDelay separates an item's consumption from its replacement.
	ItemRespawnDelay = 1500 * time.Millisecond

	// CashoutHold is how long the extraction input must be held.
	CashoutHold = 3 * time.Second
	// CashoutFeeRate is the platform cut taken from a successful cashout.
	CashoutFeeRate = 0.01
)

const (
	defaultArenaRadius = 2400.0
	defaultSpawnRadius = 400.0
	defaultTargetItems = 220
)

const (
	cashoutHoldTicks = uint64(CashoutHold / (time.Second / TickRate))
	itemRespawnTicks = uint64(ItemRespawnDelay / (time.Second / TickRate))
)
