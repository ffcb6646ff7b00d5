package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crash-go/cogs"
	"crash-go/games/crash"
	"crash-go/ledger"
	"crash-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var botStatus = "starting"

func main() {
	godotenv.Load()

	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	// Health endpoint for deployment probes
	go startHealthServer()

	if err := utils.SetupDatabase(); err != nil {
		log.WithError(err).Warn("Database setup failed; chips ledger will be unavailable")
	} else {
		defer utils.CloseDatabase()
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("BOT_TOKEN must be set")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Discord session")
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages

	engine := crash.NewEngine(buildLedger(), &cogs.EmbedSink{Session: session}, crash.DefaultConfig())
	cogs.InitCrash(engine)

	session.AddHandler(onReady)
	session.AddHandler(onInteractionCreate)
	session.AddHandler(onButtonInteraction)

	if err := session.Open(); err != nil {
		log.WithError(err).Fatal("Failed to open Discord connection")
	}
	defer session.Close()

	log.Info("Bot is now running. Press CTRL+C to exit.")
	botStatus = "running"

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Info("Gracefully shutting down...")
	botStatus = "shutting_down"
}

// buildLedger selects the currency backend from CRASH_LEDGER. The default
// is the bot's own chip economy; external economy bots are opt-in.
func buildLedger() ledger.Client {
	switch backend := os.Getenv("CRASH_LEDGER"); backend {
	case "unbelievaboat":
		token := os.Getenv("UNBELIEVABOAT_TOKEN")
		if token == "" {
			log.Fatal("UNBELIEVABOAT_TOKEN must be set for the unbelievaboat ledger")
		}
		log.Info("Using UnbelievaBoat ledger backend")
		return ledger.NewUnbelievaBoat(token)
	case "engauge":
		token := os.Getenv("ENGAUGE_API_TOKEN")
		if token == "" {
			token = os.Getenv("ENGAUGE_TOKEN")
		}
		serverID := os.Getenv("ENGAUGE_SERVER_ID")
		if token == "" || serverID == "" {
			log.Fatal("ENGAUGE_API_TOKEN and ENGAUGE_SERVER_ID must be set for the engauge ledger")
		}
		log.Info("Using Engauge ledger backend")
		return ledger.NewEngauge(token, serverID)
	case "", "chips":
		log.Info("Using built-in chips ledger backend")
		return ledger.Chips{}
	default:
		log.Fatalf("Unknown CRASH_LEDGER backend %q", backend)
		return nil
	}
}

func onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Infof("Discord bot logged in as %s (ID: %s)", event.User.Username, event.User.ID)
	botStatus = "online"

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: "Crash — High Risk · High Reward",
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: "online",
	}); err != nil {
		log.WithError(err).Warn("Failed to update status")
	}

	if err := registerSlashCommands(s); err != nil {
		log.WithError(err).Error("Failed to register slash commands")
	}
}

func registerSlashCommands(s *discordgo.Session) error {
	dmPermission := false
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check bot latency and status",
		},
		{
			Name:         "balance",
			Description:  "Check your chip balance (built-in chips ledger only)",
			DMPermission: &dmPermission,
		},
		cogs.RegisterCrashCommands(),
	}

	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}

	log.Infof("Successfully registered %d slash commands", len(commands))
	return nil
}

func onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ping":
		handlePingCommand(s, i)
	case "balance":
		handleBalanceCommand(s, i)
	case "crash":
		cogs.HandleCrashCommand(s, i)
	}
}

func onButtonInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	if i.MessageComponentData().CustomID == "crash_cashout" {
		cogs.HandleCrashInteraction(s, i)
	}
}

func handlePingCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency()

	embed := utils.CreateBrandedEmbed("🏓 Pong!", fmt.Sprintf("Latency: %dms", latency.Milliseconds()), utils.BotColor)
	_ = utils.SendInteractionResponse(s, i, embed, nil, true)
}

func handleBalanceCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		_ = utils.SendInteractionResponse(s, i, utils.ErrorEmbed("This command only works in a server."), nil, true)
		return
	}

	userID, err := utils.ParseUserID(i.Member.User.ID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := utils.GetUser(ctx, userID)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, utils.ErrorEmbed("Balances are tracked by your server's economy bot, not here."), nil, true)
		return
	}

	embed := utils.CreateBrandedEmbed(
		fmt.Sprintf("💰 %s's Balance", i.Member.User.Username),
		fmt.Sprintf("You currently have **%s** %s", utils.FormatChips(user.Chips), utils.ChipsEmoji),
		utils.BotColor,
	)
	_ = utils.SendInteractionResponse(s, i, embed, nil, true)
}

func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Discord Bot Status: %s", botStatus)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"crash-bot","bot_status":"%s"}`, botStatus)
	})

	log.Infof("Health server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.WithError(err).Error("Health server error")
	}
}
