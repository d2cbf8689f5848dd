package economy

import (
	"context"

	"coil-and-cash/server/logging"
)

const (
	// EventStakeTransferred is emitted when a kill moves stake between players.
	EventStakeTransferred logging.EventType = "economy.stake_transferred"
	// EventCashoutSettled is emitted after the settlement collaborator confirms.
	EventCashoutSettled logging.EventType = "economy.cashout_settled"
	// EventCashoutFailed is emitted when a cashout fails closed or is rejected.
	EventCashoutFailed logging.EventType = "economy.cashout_failed"
)

// StakeTransferredPayload describes a zero-sum kill transfer.
type StakeTransferredPayload struct {
	VictimID    string  `json:"victimId"`
	Amount      float64 `json:"amount"`
	KillerStake float64 `json:"killerStake"`
}

// CashoutSettledPayload describes a confirmed extraction.
type CashoutSettledPayload struct {
	TotalPot       float64 `json:"totalPot"`
	PlayerReceives float64 `json:"playerReceives"`
	Reference      string  `json:"reference"`
}

// CashoutFailedPayload describes a failed extraction attempt.
type CashoutFailedPayload struct {
	TotalPot float64 `json:"totalPot"`
	Reason   string  `json:"reason"`
}

// StakeTransferred publishes a kill transfer event.
func StakeTransferred(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StakeTransferredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStakeTransferred,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

// CashoutSettled publishes a confirmed cashout.
func CashoutSettled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CashoutSettledPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCashoutSettled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

// CashoutFailed publishes a failed cashout. Failures preserve player state,
// so the severity stays at warn.
func CashoutFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CashoutFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCashoutFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}
