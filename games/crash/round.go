package crash

import (
	"math"
	"sync"
	"time"
)

// Status is the phase of a guild's crash round
type Status string

const (
	StatusIdle    Status = "idle"
	StatusBetting Status = "betting"
	StatusFlying  Status = "flying"
	StatusCrashed Status = "crashed"
)

// Bet is one user's stake in a round. By the time a Bet exists its amount
// has already been debited from the ledger; settling a bet only ever
// credits money back. CashedOut flips false→true exactly once, and Payout
// is set in the same step.
type Bet struct {
	UserID      int64
	Amount      int64
	AutoCashout float64 // 0 means manual cash-out only
	CashedOut   bool
	Payout      int64
}

// RenderTarget identifies the channel message the shared round embed is
// edited into.
type RenderTarget struct {
	ChannelID string
	MessageID string
}

// round is the mutable per-guild state of one betting/flying/crashed cycle.
// Every field after mu is guarded by it, including the ledger calls that
// bet mutations are conditioned on.
type round struct {
	mu        sync.Mutex
	guildID   string
	status    Status
	openUntil time.Time
	startedAt time.Time
	crashAt   float64 // sampled once at launch, never shown before the crash
	current   float64
	bets      map[int64]*Bet
	target    RenderTarget
}

func newRound(guildID string, target RenderTarget) *round {
	return &round{
		guildID: guildID,
		status:  StatusIdle,
		current: 1.0,
		bets:    make(map[int64]*Bet),
		target:  target,
	}
}

// snapshot copies the round for sinks and status queries. The caller must
// hold r.mu. The crash target is only included once the round has crashed.
func (r *round) snapshot() Snapshot {
	snap := Snapshot{
		GuildID:    r.guildID,
		Status:     r.status,
		OpenUntil:  r.openUntil,
		StartedAt:  r.startedAt,
		Multiplier: r.current,
		Bets:       make([]BetView, 0, len(r.bets)),
		Target:     r.target,
	}
	if r.status == StatusCrashed {
		snap.CrashedAt = r.current
	}
	for _, b := range r.bets {
		snap.Bets = append(snap.Bets, BetView{
			UserID:      b.UserID,
			Amount:      b.Amount,
			AutoCashout: b.AutoCashout,
			CashedOut:   b.CashedOut,
			Payout:      b.Payout,
		})
	}
	return snap
}

// BetView is a read-only copy of a bet
type BetView struct {
	UserID      int64
	Amount      int64
	AutoCashout float64
	CashedOut   bool
	Payout      int64
}

// Snapshot is a consistent read-only view of a round. CrashedAt stays zero
// until the round reaches the crashed state.
type Snapshot struct {
	GuildID    string
	Status     Status
	OpenUntil  time.Time
	StartedAt  time.Time
	Multiplier float64
	CrashedAt  float64
	Bets       []BetView
	Target     RenderTarget
}

// ActivePool is the total stake still riding
func (s Snapshot) ActivePool() int64 {
	var total int64
	for _, b := range s.Bets {
		if !b.CashedOut {
			total += b.Amount
		}
	}
	return total
}

// PaidPool is the total already paid out this round
func (s Snapshot) PaidPool() int64 {
	var total int64
	for _, b := range s.Bets {
		if b.CashedOut {
			total += b.Payout
		}
	}
	return total
}

// AutoCount is the number of bets with an auto-cashout threshold
func (s Snapshot) AutoCount() int {
	count := 0
	for _, b := range s.Bets {
		if b.AutoCashout > 0 {
			count++
		}
	}
	return count
}

// payoutFor computes the credit for cashing amount out at mult
func payoutFor(amount int64, mult float64) int64 {
	return int64(math.Floor(float64(amount) * mult))
}
