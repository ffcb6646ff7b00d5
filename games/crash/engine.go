// Package crash implements the real-time crash betting game: a betting
// window, a continuously climbing multiplier, and a race between players
// cashing out and the round crashing at a hidden sampled target.
package crash

import (
	"context"
	"errors"
	"sync"
	"time"

	"crash-go/ledger"
	"crash-go/utils"

	log "github.com/sirupsen/logrus"
)

// Caller-facing state-mismatch errors. None of them mutate round state.
var (
	ErrAlreadyActive = errors.New("a round is already active in this server")
	ErrBettingClosed = errors.New("betting is closed")
	ErrNotFlying     = errors.New("you can only cash out while the round is flying")
	ErrNoActiveBet   = errors.New("you have no active bet to cash out")
	ErrNoActiveRound = errors.New("no cancellable round right now")
)

// Sink renders round snapshots somewhere visible. Implementations must
// swallow their own failures; the round proceeds whether or not anyone can
// see it.
type Sink interface {
	Render(snap Snapshot, footer string)
}

// Config tunes round pacing. Tests inject fast ticks and a fixed sampler.
type Config struct {
	TickInterval  time.Duration
	GrowthPerTick float64
	MaxMultiplier float64
	CrashedDelay  time.Duration // pause on the crash render before the settled render
	SettleDelay   time.Duration // pause on the settled render before resetting to idle
	Sample        func() float64
}

// DefaultConfig returns the production pacing
func DefaultConfig() Config {
	return Config{
		TickInterval:  utils.CrashTickInterval,
		GrowthPerTick: utils.CrashGrowthPerTick,
		MaxMultiplier: utils.CrashMaxMultiplier,
		CrashedDelay:  utils.CrashCrashedDelay,
		SettleDelay:   utils.CrashSettleDelay,
		Sample:        DrawCrashMultiplier,
	}
}

// Engine owns every guild's round. All mutation of one guild's round —
// ticks, bets, cash-outs, cancellation — is serialized on that round's
// mutex; rounds in different guilds are fully independent.
type Engine struct {
	ledger ledger.Client
	sink   Sink
	cfg    Config

	mu     sync.RWMutex
	rounds map[string]*round
}

// NewEngine creates a crash engine over the given ledger backend
func NewEngine(l ledger.Client, sink Sink, cfg Config) *Engine {
	if cfg.Sample == nil {
		cfg.Sample = DrawCrashMultiplier
	}
	return &Engine{
		ledger: l,
		sink:   sink,
		cfg:    cfg,
		rounds: make(map[string]*round),
	}
}

// guildRound returns the guild's round, creating an idle one on first
// reference.
func (e *Engine) guildRound(guildID string) *round {
	e.mu.RLock()
	r := e.rounds[guildID]
	e.mu.RUnlock()
	if r != nil {
		return r
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.rounds[guildID]; r != nil {
		return r
	}
	r = newRound(guildID, RenderTarget{})
	e.rounds[guildID] = r
	return r
}

// replaceRound swaps in a fresh idle round for the guild, but only if the
// registry still holds old; a round that was already replaced (restarted
// mid-settle) is left alone.
func (e *Engine) replaceRound(guildID string, old *round, target RenderTarget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if old != nil && e.rounds[guildID] != old {
		return
	}
	e.rounds[guildID] = newRound(guildID, target)
}

// current returns the registry entry for the guild without creating one
func (e *Engine) currentRound(guildID string) *round {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rounds[guildID]
}

// Start opens the betting window for a new round. Rejected with
// ErrAlreadyActive while a round is betting or flying.
func (e *Engine) Start(guildID string, openFor time.Duration) error {
	r := e.guildRound(guildID)
	r.mu.Lock()
	if r.status == StatusBetting || r.status == StatusFlying {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	if r.status == StatusCrashed {
		// Previous round is still settling; give the new one a fresh state
		// so the old goroutine's cleanup can't clobber it.
		target := r.target
		r.mu.Unlock()
		e.replaceRound(guildID, r, target)
		r = e.guildRound(guildID)
		r.mu.Lock()
		if r.status != StatusIdle { // lost a race with another start
			r.mu.Unlock()
			return ErrAlreadyActive
		}
	}
	r.status = StatusBetting
	r.openUntil = time.Now().Add(openFor)
	r.bets = make(map[int64]*Bet)
	r.mu.Unlock()

	go e.runRound(r)
	return nil
}

// SetRenderTarget points the round at the message the sink should edit.
// Called once per round, right after the announcement message is posted.
func (e *Engine) SetRenderTarget(guildID string, target RenderTarget) {
	r := e.guildRound(guildID)
	r.mu.Lock()
	r.target = target
	r.mu.Unlock()
}

// Status returns a read-only view of the guild's round
func (e *Engine) Status(guildID string) Snapshot {
	r := e.guildRound(guildID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// PlaceBet escrows a stake for the round. Only valid while betting is open.
// A second bet from the same user replaces the first: the old stake is
// refunded before the new one is debited. If that debit then fails, the
// refund stands and the user ends the round with no bet; the error is
// returned to the caller.
func (e *Engine) PlaceBet(ctx context.Context, guildID string, userID int64, amount int64, autoCashout float64) error {
	r := e.guildRound(guildID)
	r.mu.Lock()
	if r.status != StatusBetting {
		r.mu.Unlock()
		return ErrBettingClosed
	}

	if old, ok := r.bets[userID]; ok {
		if err := e.ledger.Credit(ctx, guildID, userID, old.Amount, "Crash bet replace refund"); err != nil {
			r.mu.Unlock()
			return err
		}
		delete(r.bets, userID)
	}

	if err := e.ledger.Debit(ctx, guildID, userID, amount, "Crash bet stake"); err != nil {
		r.mu.Unlock()
		return err
	}

	r.bets[userID] = &Bet{UserID: userID, Amount: amount, AutoCashout: autoCashout}
	snap := r.snapshot()
	r.mu.Unlock()

	e.render(snap, "")
	return nil
}

// CashOut settles the user's bet at the current multiplier. The whole
// check-credit-mark sequence runs under the round mutex, so concurrent
// cash-out attempts and the auto-cashout sweep can never pay a bet twice.
// On a ledger failure the bet stays live and the caller may retry.
func (e *Engine) CashOut(ctx context.Context, guildID string, userID int64) (int64, float64, error) {
	r := e.guildRound(guildID)
	r.mu.Lock()
	if r.status != StatusFlying {
		r.mu.Unlock()
		return 0, 0, ErrNotFlying
	}
	b := r.bets[userID]
	if b == nil || b.CashedOut {
		r.mu.Unlock()
		return 0, 0, ErrNoActiveBet
	}

	mult := r.current
	payout := payoutFor(b.Amount, mult)
	if err := e.ledger.Credit(ctx, guildID, userID, payout, "Crash manual cashout"); err != nil {
		r.mu.Unlock()
		return 0, 0, err
	}
	b.CashedOut = true
	b.Payout = payout
	snap := r.snapshot()
	r.mu.Unlock()

	e.render(snap, "")
	return payout, mult, nil
}

// Cancel aborts the round and refunds every live stake best-effort.
// Individual refund failures are logged and do not stop the rest.
func (e *Engine) Cancel(ctx context.Context, guildID string) error {
	r := e.guildRound(guildID)
	r.mu.Lock()
	if r.status != StatusBetting && r.status != StatusFlying {
		r.mu.Unlock()
		return ErrNoActiveRound
	}
	// Flipping to idle stops the round goroutine at its next step; any tick
	// already holding the mutex has finished by the time we get here. The
	// registry swap commits in the same critical section, so a Start racing
	// the refund loop below can only ever see the fresh round.
	r.status = StatusIdle
	refunds := make([]*Bet, 0, len(r.bets))
	for _, b := range r.bets {
		if !b.CashedOut && b.Amount > 0 {
			refunds = append(refunds, b)
		}
	}
	snap := r.snapshot()
	e.replaceRound(guildID, r, r.target)
	r.mu.Unlock()

	e.render(snap, "❌ Round canceled. All active stakes refunded.")

	for _, b := range refunds {
		if err := e.ledger.Credit(ctx, guildID, b.UserID, b.Amount, "Crash round canceled refund"); err != nil {
			log.WithError(err).Warnf("crash: refund of %d for user %d failed", b.Amount, b.UserID)
		}
	}
	return nil
}

// runRound drives one round from the betting window to the idle reset
func (e *Engine) runRound(r *round) {
	// The window close is a stored deadline, not a cancellable timer;
	// sleeping past it is enough.
	r.mu.Lock()
	deadline := r.openUntil
	r.mu.Unlock()
	time.Sleep(time.Until(deadline))

	r.mu.Lock()
	if r.status != StatusBetting { // cancelled during the window
		r.mu.Unlock()
		return
	}
	if len(r.bets) == 0 {
		r.status = StatusIdle
		snap := r.snapshot()
		r.mu.Unlock()
		e.render(snap, "No bets placed; round not started.")
		return
	}

	r.status = StatusFlying
	r.startedAt = time.Now()
	r.current = 1.0
	r.crashAt = e.cfg.Sample()
	snap := r.snapshot()
	r.mu.Unlock()
	e.render(snap, "")

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for range ticker.C {
		snap, crashed, alive := e.tick(r)
		if !alive {
			return
		}
		if crashed {
			e.render(snap, "💥 The rocket crashed!")
			break
		}
		e.render(snap, "")
	}

	e.settle(r)
}

// tick advances the multiplier one growth step, sweeps auto-cashouts, and
// detects the crash. Returns alive=false when the round was cancelled out
// from under the loop.
func (e *Engine) tick(r *round) (snap Snapshot, crashed, alive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusFlying {
		return Snapshot{}, false, false
	}

	// Multiplicative compounding; a fixed per-tick percentage keeps the
	// time-to-crash distribution consistent across tick rates.
	r.current *= 1.0 + e.cfg.GrowthPerTick
	if r.current > e.cfg.MaxMultiplier {
		r.current = e.cfg.MaxMultiplier
	}

	for _, b := range r.bets {
		if b.CashedOut || b.AutoCashout <= 0 || r.current < b.AutoCashout {
			continue
		}
		payout := payoutFor(b.Amount, r.current)
		if err := e.ledger.Credit(context.Background(), r.guildID, b.UserID, payout, "Crash auto-cashout"); err != nil {
			// Left uncashed so a later tick or a manual cash-out retries;
			// never marked paid without a confirmed credit.
			log.WithError(err).Warnf("crash: auto-cashout credit failed for user %d", b.UserID)
			continue
		}
		b.CashedOut = true
		b.Payout = payout
	}

	// Reaching the clamp counts as crashing; otherwise a target above the
	// clamp would spin the loop forever.
	if r.current >= r.crashAt || r.current >= e.cfg.MaxMultiplier {
		r.status = StatusCrashed
		if r.crashAt < r.current {
			r.current = r.crashAt
		}
		return r.snapshot(), true, true
	}

	return r.snapshot(), false, true
}

// settle shows the final result, lingers so players can read it, then
// replaces the round wholesale. Only the message hook survives into the
// fresh idle round.
func (e *Engine) settle(r *round) {
	time.Sleep(e.cfg.CrashedDelay)

	r.mu.Lock()
	snap := r.snapshot()
	target := r.target
	guildID := r.guildID
	r.mu.Unlock()

	if e.currentRound(guildID) != r { // restarted mid-settle
		return
	}
	e.render(snap, "Round settled. Start a new one with /crash start")

	time.Sleep(e.cfg.SettleDelay)
	e.replaceRound(guildID, r, target)
}

func (e *Engine) render(snap Snapshot, footer string) {
	if e.sink == nil {
		return
	}
	e.sink.Render(snap, footer)
}
