package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/pkg/discord/commands"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/bank"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
	"github.com/19722009abc/HelpyBot/pkg/services/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/services/raffle"
	"github.com/19722009abc/HelpyBot/pkg/services/robbery"
	"github.com/19722009abc/HelpyBot/pkg/services/shop"
	"github.com/19722009abc/HelpyBot/pkg/services/statistics"
)

// Services are the economy services the bot renders
type Services struct {
	Ledger     ledger.LedgerService
	Accrual    *accrual.Service
	Leveling   *leveling.Service
	Casino     *casino.Service
	Robbery    *robbery.Service
	Bank       *bank.Service
	Raffle     *raffle.Service
	Shop       *shop.Service
	Statistics *statistics.Service
}

// Options tune the bot
type Options struct {
	AppID   string
	GuildID string // empty registers commands globally

	RatePerSecond float64
	Burst         int

	Clock func() time.Time
}

type commandHandler func(ctx context.Context, i *discordgo.InteractionCreate) error

// Bot represents the Discord bot instance
type Bot struct {
	session  idiscord.SessionHandler
	services Services
	appID    string
	guildID  string
	clock    func() time.Time

	limiter *userLimiter
	dedup   *interactionDedup

	commands   map[string]commandHandler
	components map[string]commandHandler
	top        *commands.TopCommand

	removeHandlers []func()
	logger         *logging.Logger
}

// NewBot creates a new instance of the bot
func NewBot(session idiscord.SessionHandler, services Services, opts Options) *Bot {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	b := &Bot{
		session:  session,
		services: services,
		appID:    opts.AppID,
		guildID:  opts.GuildID,
		clock:    clock,
		limiter:  newUserLimiter(opts.RatePerSecond, opts.Burst),
		dedup:    newInteractionDedup(dedupTTL),
		logger:   logging.Default.With("discord"),
	}
	if services.Statistics != nil {
		b.top = commands.NewTopCommand(session, services.Statistics, clock)
	}
	b.registerHandlers()
	return b
}

// Start registers the gateway handlers, connects to Discord and registers
// the slash commands
func (b *Bot) Start() error {
	b.removeHandlers = append(b.removeHandlers,
		b.session.AddHandler(b.handleReady),
		b.session.AddHandler(b.handleInteraction),
		b.session.AddHandler(b.handleMessage),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if err := b.RegisterCommands(); err != nil {
		return err
	}
	return nil
}

// RegisterCommands overwrites the application's commands with the bot's set
func (b *Bot) RegisterCommands() error {
	created, err := b.session.ApplicationCommandBulkOverwrite(b.appID, b.guildID, ApplicationCommands())
	if err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	b.logger.Info("Registered %d slash commands", len(created))
	return nil
}

// Stop gracefully shuts down the bot and closes the Discord connection
func (b *Bot) Stop() error {
	for _, remove := range b.removeHandlers {
		remove()
	}
	b.removeHandlers = nil

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("error closing connection: %w", err)
	}
	return nil
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Bot is ready: %s", r.User.Username)
}

func (b *Bot) handleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.HandleInteraction(context.Background(), i)
}

// handleMessage awards chat xp; the leveling service enforces its cooldown
func (b *Bot) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || b.services.Leveling == nil {
		return
	}
	progress, err := b.services.Leveling.MessageXP(context.Background(), m.Author.ID, m.Author.Username, b.clock())
	if err != nil {
		b.logger.Warn("Message xp for %s failed: %v", m.Author.ID, err)
		return
	}
	if progress != nil && progress.LeveledUp {
		msg := fmt.Sprintf("🎉 <@%s> reached level **%d**!", m.Author.ID, progress.Level)
		if _, err := b.session.ChannelMessageSend(m.ChannelID, msg); err != nil {
			b.logger.Warn("Level-up message failed: %v", err)
		}
	}
}
