package utils

import (
	"os"
	"time"
)

// General Configuration
const (
	BotColor   = 0x5865F2
	ChipsEmoji = "💰"
)

// Economy
const (
	StartingChips = 1000
)

// Crash round pacing
const (
	CrashTickInterval  = 1 * time.Second
	CrashGrowthPerTick = 0.08
	CrashMaxMultiplier = 1000.0
	CrashCrashedDelay  = 2 * time.Second
	CrashSettleDelay   = 3 * time.Second
)

// Mixture risk model: most rounds crash early, a minority run long. The
// weights and means set the payout distribution and the house edge.
const (
	CrashMixPHarsh = 0.65
	CrashMeanHarsh = 0.8 // avg crash ≈ 1.8×
	CrashMeanLucky = 3.0 // avg crash ≈ 4.0×
)

// Betting limits
const (
	CrashMinOpenSeconds     = 5
	CrashMaxOpenSeconds     = 120
	CrashDefaultOpenSeconds = 20
	CrashMinBet             = 1
	CrashMaxBet             = 10_000_000
	CrashMinAutoCashout     = 1.01
	CrashMaxAutoCashout     = 1000.0
)

// CurrencyIcon returns the emote shown next to currency amounts. Servers
// running an external economy bot usually set CURRENCY_EMOTE to its emote.
func CurrencyIcon() string {
	if icon := os.Getenv("CURRENCY_EMOTE"); icon != "" {
		return icon
	}
	return ChipsEmoji
}
