package arena

import "strings"

// Settler performs the actual value transfer for a cashout. Implementations
// live at the transport edge; the world only records the intent and later
// consumes the outcome.
type Settler interface {
	Settle(playerID, address string, amount float64) (reference string, err error)
}

// SettlerFunc adapts a function to the Settler interface.
type SettlerFunc func(playerID, address string, amount float64) (string, error)

// Settle implements Settler.
func (f SettlerFunc) Settle(playerID, address string, amount float64) (string, error) {
	return f(playerID, address, amount)
}

// cashoutRequest exists only while a player holds the extraction input or
// while a settlement it triggered is still in flight.
type cashoutRequest struct {
	startedTick uint64
	active      bool
	settling    bool

	// Frozen when settlement starts; stake gained mid-settlement is not
	// part of the transfer and is forfeited on success.
	totalPot float64
	receives float64
}

// beginCashout opens a request on the false→true input edge. At most one
// request exists per player; a held key during an in-flight settlement
// does not open a second one.
func (w *World) beginCashout(state *playerState) {
	if _, ok := w.cashouts[state.ID]; ok {
		return
	}
	w.cashouts[state.ID] = &cashoutRequest{startedTick: w.tick, active: true}
}

// cancelCashout clears a request on the true→false input edge. Once the
// hold completed and settlement started, releasing the input no longer
// cancels anything.
func (w *World) cancelCashout(id string) {
	req, ok := w.cashouts[id]
	if !ok || req.settling {
		return
	}
	delete(w.cashouts, id)
}

// advanceCashouts fires the completion check for requests whose hold timer
// elapsed. The active flag is re-validated here, at fire time, not at
// schedule time: a release that raced the timer wins.
func (w *World) advanceCashouts() {
	for id, req := range w.cashouts {
		if !req.active || req.settling {
			continue
		}
		if w.tick-req.startedTick < cashoutHoldTicks {
			continue
		}
		state, ok := w.players[id]
		if !ok {
			delete(w.cashouts, id)
			continue
		}
		if !validSettlementAddress(state.settlementAddress) {
			// Fail closed before any transfer is attempted. The player
			// keeps playing with their stake intact.
			delete(w.cashouts, id)
			w.appendEvent(Event{Kind: EventCashoutFailed, Cashout: &CashoutEvent{
				PlayerID: id,
				Name:     state.Name,
				TotalPot: state.Stake,
				Reason:   "invalid settlement address",
			}})
			continue
		}
		fee := state.Stake * CashoutFeeRate
		req.settling = true
		req.totalPot = state.Stake
		req.receives = state.Stake - fee
		w.settlements = append(w.settlements, SettlementIntent{
			PlayerID: id,
			Address:  state.settlementAddress,
			TotalPot: state.Stake,
			Fee:      fee,
			Amount:   state.Stake - fee,
		})
	}
}

// CompleteCashout commits or rejects a settlement outcome. The request and
// player are re-validated: everything may have changed across the
// asynchronous settlement boundary. On failure the player is untouched and
// keeps playing; removing an unpaid player is the one unacceptable bug.
func (w *World) CompleteCashout(id string, ok bool, reference, reason string) {
	req, exists := w.cashouts[id]
	if !exists || !req.settling {
		return
	}
	delete(w.cashouts, id)

	state, present := w.players[id]
	if !present {
		// Killed or disconnected while settling; nothing left to remove.
		return
	}

	if !ok {
		if reason == "" {
			reason = "settlement rejected"
		}
		w.appendEvent(Event{Kind: EventCashoutFailed, Cashout: &CashoutEvent{
			PlayerID: id,
			Name:     state.Name,
			TotalPot: state.Stake,
			Reason:   reason,
		}})
		return
	}

	event := CashoutEvent{
		PlayerID:       id,
		Name:           state.Name,
		TotalPot:       req.totalPot,
		PlayerReceives: req.receives,
		Reference:      reference,
	}
	delete(w.players, id)
	w.appendEvent(Event{Kind: EventCashoutSuccess, Cashout: &event})
}

// CashoutPending reports whether a request exists for the player. Exposed
// for the diagnostics endpoint and tests.
func (w *World) CashoutPending(id string) bool {
	_, ok := w.cashouts[id]
	return ok
}

func validSettlementAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if len(addr) < 4 {
		return false
	}
	return !strings.ContainsAny(addr, " \t\r\n")
}
