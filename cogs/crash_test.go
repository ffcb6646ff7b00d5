package cogs

import (
	"fmt"
	"testing"
	"time"

	"crash-go/games/crash"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrashRoundEmbedFlyingHidesCrashTarget(t *testing.T) {
	snap := crash.Snapshot{
		Status:     crash.StatusFlying,
		Multiplier: 1.73,
		Bets: []crash.BetView{
			{UserID: 1, Amount: 500},
		},
	}

	embed := CrashRoundEmbed(snap, "")

	assert.Contains(t, embed.Description, "FLYING")
	assert.Contains(t, embed.Description, "1.73×")
	assert.NotContains(t, embed.Description, "Crashed at")
}

func TestCrashRoundEmbedCrashedShowsFinalMultiplier(t *testing.T) {
	snap := crash.Snapshot{
		Status:     crash.StatusCrashed,
		Multiplier: 2.41,
		CrashedAt:  2.41,
		Bets: []crash.BetView{
			{UserID: 1, Amount: 500},
			{UserID: 2, Amount: 300, CashedOut: true, Payout: 450},
		},
	}

	embed := CrashRoundEmbed(snap, "💥 The rocket crashed!")

	assert.Contains(t, embed.Description, "CRASHED")
	assert.Contains(t, embed.Description, "2.41×")
	assert.Equal(t, "💥 The rocket crashed!", embed.Footer.Text)

	require.Len(t, embed.Fields, 1)
	players := embed.Fields[0].Value
	assert.Contains(t, players, "<@1>")
	assert.Contains(t, players, "500")
	assert.Contains(t, players, "cashed")
	assert.Contains(t, players, "450")
}

func TestCrashRoundEmbedBettingShowsCountdown(t *testing.T) {
	openUntil := time.Now().Add(30 * time.Second)
	snap := crash.Snapshot{
		Status:    crash.StatusBetting,
		OpenUntil: openUntil,
	}

	embed := CrashRoundEmbed(snap, "")

	assert.Contains(t, embed.Description, "BETTING")
	assert.Contains(t, embed.Description, fmt.Sprintf("<t:%d:R>", openUntil.Unix()))
	assert.Contains(t, embed.Description, "Bettors:** 0")
}

func TestCrashRoundEmbedCapsPlayerLines(t *testing.T) {
	snap := crash.Snapshot{Status: crash.StatusFlying, Multiplier: 1.2}
	for n := int64(1); n <= 12; n++ {
		snap.Bets = append(snap.Bets, crash.BetView{UserID: n, Amount: 100})
	}

	embed := CrashRoundEmbed(snap, "")

	require.Len(t, embed.Fields, 1)
	assert.Contains(t, embed.Fields[0].Value, "<@1>")
	assert.NotContains(t, embed.Fields[0].Value, "<@9>")
}

func TestCrashCommandIsGuildOnly(t *testing.T) {
	cmd := RegisterCrashCommands()

	require.NotNil(t, cmd.DMPermission)
	assert.False(t, *cmd.DMPermission)
}

func TestInteractionUserResolvesGuildAndDMPayloads(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "7"}},
	}}
	require.NotNil(t, interactionUser(guild))
	assert.Equal(t, "7", interactionUser(guild).ID)

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "42"},
	}}
	require.NotNil(t, interactionUser(dm))
	assert.Equal(t, "42", interactionUser(dm).ID)
}

func TestCrashComponents(t *testing.T) {
	assert.Empty(t, crashComponents(crash.StatusBetting))
	assert.Empty(t, crashComponents(crash.StatusCrashed))

	flying := crashComponents(crash.StatusFlying)
	require.Len(t, flying, 1)
	row, ok := flying[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
	button, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "crash_cashout", button.CustomID)
	assert.Equal(t, discordgo.SuccessButton, button.Style)
}
