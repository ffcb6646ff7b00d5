package cogs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crash-go/games/crash"
	"crash-go/ledger"
	"crash-go/utils"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

var crashEngine *crash.Engine

// InitCrash wires the cog to a running engine
func InitCrash(engine *crash.Engine) {
	crashEngine = engine
}

// EmbedSink renders round snapshots into the shared round message. It is
// the presentation layer only; failures are logged and swallowed so the
// round always proceeds.
type EmbedSink struct {
	Session *discordgo.Session
}

// Render edits the round message in place with the current state
func (es *EmbedSink) Render(snap crash.Snapshot, footer string) {
	if es.Session == nil || snap.Target.ChannelID == "" || snap.Target.MessageID == "" {
		return
	}

	embed := CrashRoundEmbed(snap, footer)
	components := crashComponents(snap.Status)

	_, err := es.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    snap.Target.ChannelID,
		ID:         snap.Target.MessageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		log.WithError(err).Warnf("crash: failed to render round for guild %s", snap.GuildID)
	}
}

// CrashRoundEmbed builds the shared round embed from a snapshot. The crash
// target only appears once the snapshot says the round crashed.
func CrashRoundEmbed(snap crash.Snapshot, footer string) *discordgo.MessageEmbed {
	icon := utils.CurrencyIcon()

	var top string
	switch snap.Status {
	case crash.StatusBetting:
		top = fmt.Sprintf("**Status:** `BETTING`\n⏳ **Round starts** <t:%d:R>\n🎯 **Current Mult:** 1.00×\n", snap.OpenUntil.Unix())
	case crash.StatusFlying:
		top = fmt.Sprintf("**Status:** `FLYING`\n🚀 **Current Mult:** **%s**\n", utils.FormatMultiplier(snap.Multiplier))
	case crash.StatusCrashed:
		top = fmt.Sprintf("**Status:** `CRASHED`\n💥 **Crashed at:** **%s**\n", utils.FormatMultiplier(snap.CrashedAt))
	default:
		top = "**Status:** `IDLE`\n"
	}

	desc := fmt.Sprintf(
		"%s\n👥 **Bettors:** %d\n💰 **Active Pool:** %s %s\n💸 **Paid so far:** %s %s\n🧷 **Auto-cashout set:** %d\n\nUse **/crash bet** during betting, and **/crash cashout** while flying.",
		top,
		len(snap.Bets),
		icon, utils.FormatChips(snap.ActivePool()),
		icon, utils.FormatChips(snap.PaidPool()),
		snap.AutoCount(),
	)

	color := utils.BotColor
	if snap.Status == crash.StatusFlying {
		color = 0xE67E22 // orange while the rocket climbs
	}

	embed := utils.CreateBrandedEmbed("🎰 Crash — High Risk · High Reward", desc, color)

	if len(snap.Bets) > 0 {
		lines := ""
		shown := 0
		for _, b := range snap.Bets {
			if shown >= 8 {
				break
			}
			status := "⏳ live"
			val := b.Amount
			if b.CashedOut {
				status = "💰 cashed"
				val = b.Payout
			}
			auto := ""
			if b.AutoCashout > 0 {
				auto = fmt.Sprintf(" · auto %.2f×", b.AutoCashout)
			}
			lines += fmt.Sprintf("• <@%d> — %s%s — %s %s\n", b.UserID, status, auto, icon, utils.FormatChips(val))
			shown++
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Players",
			Value:  lines,
			Inline: false,
		})
	}

	if footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}

	return embed
}

// crashComponents attaches the cash-out button only while flying
func crashComponents(status crash.Status) []discordgo.MessageComponent {
	if status != crash.StatusFlying {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		utils.CreateActionRow(
			utils.CreateButton("crash_cashout", "Cash Out", discordgo.SuccessButton, false, &discordgo.ComponentEmoji{Name: "💸"}),
		),
	}
}

// interactionUser resolves the invoking user. Guild interactions carry it
// on Member, DM interactions on User.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// RegisterCrashCommands registers the /crash command group. Rounds are
// per-guild state, so the whole group is guild-only.
func RegisterCrashCommands() *discordgo.ApplicationCommand {
	minOpen := float64(utils.CrashMinOpenSeconds)
	minBet := float64(utils.CrashMinBet)
	minAuto := utils.CrashMinAutoCashout
	dmPermission := false

	return &discordgo.ApplicationCommand{
		Name:         "crash",
		Description:  "Crash gambling game",
		DMPermission: &dmPermission,
		Options:      []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start a crash round (opens betting)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "open_seconds",
						Description: "How long to accept bets before launch",
						MinValue:    &minOpen,
						MaxValue:    utils.CrashMaxOpenSeconds,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "bet",
				Description: "Place a bet (optionally set auto-cashout)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "amount",
						Description: "Amount of currency to bet",
						Required:    true,
						MinValue:    &minBet,
						MaxValue:    utils.CrashMaxBet,
					},
					{
						Type:        discordgo.ApplicationCommandOptionNumber,
						Name:        "auto_cashout",
						Description: "Auto-cashout at this multiplier (e.g. 1.50). Leave empty to cash manually.",
						MinValue:    &minAuto,
						MaxValue:    utils.CrashMaxAutoCashout,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "cashout",
				Description: "Cash out your active bet (during flight)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "cancel",
				Description: "Cancel the current crash round and refund live stakes",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show current crash round status",
			},
		},
	}
}

// HandleCrashCommand routes /crash subcommands
func HandleCrashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if crashEngine == nil {
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "start":
		handleCrashStart(s, i, sub)
	case "bet":
		handleCrashBet(s, i, sub)
	case "cashout":
		handleCrashCashout(s, i)
	case "cancel":
		handleCrashCancel(s, i)
	case "status":
		handleCrashStatus(s, i)
	}
}

func handleCrashStart(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}

	openSeconds := int64(utils.CrashDefaultOpenSeconds)
	if len(sub.Options) > 0 {
		openSeconds = sub.Options[0].IntValue()
	}

	// Post the announcement first so the round has a message to live in.
	openUntil := time.Now().Add(time.Duration(openSeconds) * time.Second)
	announce := utils.CreateBrandedEmbed(
		"🎰 Crash — High Risk · High Reward",
		fmt.Sprintf(
			"**Status:** `BETTING`\n⏳ **Round starts** <t:%d:R>\n🎯 **Current Mult:** 1.00×\n\nPlace a bet with **/crash bet** (optional `auto_cashout`).\nCash out with **/crash cashout** during flight!\n\n💡 Tip: a green **Cash Out** button will appear when the rocket is flying.",
			openUntil.Unix(),
		),
		utils.BotColor,
	)
	msg, msgErr := s.ChannelMessageSendEmbed(i.ChannelID, announce)

	if err := crashEngine.Start(i.GuildID, time.Duration(openSeconds)*time.Second); err != nil {
		if msgErr == nil && msg != nil {
			_ = s.ChannelMessageDelete(i.ChannelID, msg.ID)
		}
		_ = utils.TryEphemeralFollowup(s, i, "A round is already active in this server.")
		return
	}

	if msgErr == nil && msg != nil {
		crashEngine.SetRenderTarget(i.GuildID, crash.RenderTarget{ChannelID: i.ChannelID, MessageID: msg.ID})
	} else {
		log.WithError(msgErr).Warnf("crash: failed to post round message in channel %s", i.ChannelID)
	}

	_ = utils.TryEphemeralFollowup(s, i, fmt.Sprintf("Crash round opened for **%ds**. Bets are live!", openSeconds))
}

func handleCrashBet(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}

	user := interactionUser(i)
	if user == nil {
		return
	}
	userID, err := utils.ParseUserID(user.ID)
	if err != nil {
		return
	}

	var amount int64
	var autoCashout float64
	for _, opt := range sub.Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "auto_cashout":
			autoCashout = opt.FloatValue()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = crashEngine.PlaceBet(ctx, i.GuildID, userID, amount, autoCashout)
	switch {
	case errors.Is(err, crash.ErrBettingClosed):
		_ = utils.TryEphemeralFollowup(s, i, "Betting is closed. Wait for the next round.")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		_ = utils.TryEphemeralFollowup(s, i, "You don't have enough currency for this bet.")
	case err != nil:
		_ = utils.TryEphemeralFollowup(s, i, fmt.Sprintf("Currency ledger error: %v", err))
	default:
		auto := ""
		if autoCashout > 0 {
			auto = fmt.Sprintf(" with auto-cashout at **%.2f×**", autoCashout)
		}
		_ = utils.TryEphemeralFollowup(s, i, fmt.Sprintf("Bet placed for **%s %s**%s. Good luck! 🚀", utils.CurrencyIcon(), utils.FormatChips(amount), auto))
	}
}

func handleCrashCashout(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}
	_ = utils.TryEphemeralFollowup(s, i, cashOutMessage(i))
}

// HandleCrashInteraction handles the Cash Out button press. Button presses
// are just concurrent cash-out calls; the engine serializes them against
// the tick loop.
func HandleCrashInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if crashEngine == nil {
		return
	}
	if i.MessageComponentData().CustomID != "crash_cashout" {
		return
	}
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}
	_ = utils.TryEphemeralFollowup(s, i, cashOutMessage(i))
}

// cashOutMessage runs the cash-out and renders the outcome for the caller
func cashOutMessage(i *discordgo.InteractionCreate) string {
	user := interactionUser(i)
	if user == nil {
		return "❌ Could not resolve your user ID."
	}
	userID, err := utils.ParseUserID(user.ID)
	if err != nil {
		return "❌ Could not resolve your user ID."
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payout, mult, err := crashEngine.CashOut(ctx, i.GuildID, userID)
	switch {
	case errors.Is(err, crash.ErrNotFlying):
		return "❌ You can only cash out while the rocket is flying."
	case errors.Is(err, crash.ErrNoActiveBet):
		return "❌ You have no active bet to cash out."
	case err != nil:
		return fmt.Sprintf("⚠️ Currency ledger error while paying out: %v. Your bet is still live; try again.", err)
	default:
		return fmt.Sprintf("✅ Cashed out at **%s** → %s %s", utils.FormatMultiplier(mult), utils.CurrencyIcon(), utils.FormatChips(payout))
	}
}

func handleCrashCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}

	snap := crashEngine.Status(i.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := crashEngine.Cancel(ctx, i.GuildID); err != nil {
		_ = utils.TryEphemeralFollowup(s, i, "No cancellable round right now.")
		return
	}

	_ = utils.TryEphemeralFollowup(s, i, "Round canceled. Refunds sent.")
	if snap.Target.ChannelID != "" {
		if _, err := s.ChannelMessageSend(snap.Target.ChannelID, "❌ Crash round canceled — all active stakes refunded."); err != nil {
			log.WithError(err).Warn("crash: failed to announce cancellation")
		}
	}
}

func handleCrashStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := utils.DeferInteractionResponse(s, i, true); err != nil {
		return
	}

	snap := crashEngine.Status(i.GuildID)
	if snap.Status == crash.StatusIdle {
		_ = utils.TryEphemeralFollowup(s, i, "No active crash round. Start one with **/crash start**.")
		return
	}

	if snap.Target.ChannelID != "" && snap.Target.MessageID != "" {
		link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", i.GuildID, snap.Target.ChannelID, snap.Target.MessageID)
		_ = utils.TryEphemeralFollowup(s, i, fmt.Sprintf("Showing the latest status here: %s", link))
		return
	}
	_ = utils.TryEphemeralFollowup(s, i, fmt.Sprintf("Round is `%s` at **%s**.", snap.Status, utils.FormatMultiplier(snap.Multiplier)))
}
