package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/internal/types"
)

// Component custom ids are "<prefix>:<args>"; the prefix picks the handler
const (
	prefixGuess   = "guess"
	prefixHangman = "hangman"
	prefixQuiz    = "quiz"
)

func (b *Bot) registerHandlers() {
	b.commands = map[string]commandHandler{
		"daily":     b.handleDaily,
		"wallet":    b.handleWallet,
		"transfer":  b.handleTransfer,
		"dice":      b.handleDice,
		"roulette":  b.handleRoulette,
		"guess":     b.handleGuess,
		"hangman":   b.handleHangman,
		"quiz":      b.handleQuiz,
		"rob":       b.handleRob,
		"bank":      b.handleBank,
		"raffle":    b.handleRaffle,
		"shop":      b.handleShop,
		"buy":       b.handleBuy,
		"craft":     b.handleCraft,
		"fragments": b.handleFragments,
		"inventory": b.handleInventory,
		"premium":   b.handlePremium,
		"level":     b.handleLevel,
	}
	b.components = map[string]commandHandler{
		prefixGuess:   b.handleGuessButton,
		prefixHangman: b.handleHangmanButton,
		prefixQuiz:    b.handleQuizButton,
	}
	if b.top != nil {
		b.commands["top"] = b.top.Handle
		b.components[b.top.Prefix()] = b.top.HandleComponent
	}
}

// HandleInteraction routes one interaction. Replayed ids are dropped and
// members over their rate limit get an ephemeral notice.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	now := b.clock()
	if !b.dedup.First(i.ID, now) {
		b.logger.Debug("Skipping already processed interaction: %s", i.ID)
		return
	}

	var (
		name    string
		handler commandHandler
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
		handler = b.commands[name]
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		name, _, _ = strings.Cut(customID, ":")
		handler = b.components[name]
	default:
		return
	}

	if handler == nil {
		b.logger.Warn("Unknown interaction %q", name)
		b.reply(i, idiscord.NewErrorResponse(types.Errorf(types.ErrNotFound, "unknown command %q", name)))
		return
	}

	user := invoker(i)
	if !b.limiter.Allow(user.ID, now) {
		b.reply(i, idiscord.NewErrorResponse(types.NewError(types.ErrRateLimited, "slow down, you are sending commands too fast")))
		return
	}

	if err := handler(ctx, i); err != nil {
		b.logger.Debug("%s by %s failed: %v", name, user.ID, err)
		b.reply(i, idiscord.NewErrorResponse(err))
		return
	}

	if i.Type == discordgo.InteractionApplicationCommand && b.services.Leveling != nil {
		if _, err := b.services.Leveling.CommandXP(ctx, user.ID, user.Username, name, now); err != nil {
			b.logger.Warn("Command xp for %s failed: %v", user.ID, err)
		}
	}
}

func (b *Bot) reply(i *discordgo.InteractionCreate, r *idiscord.Response) {
	if err := idiscord.SendResponse(b.session, i, r); err != nil {
		b.logger.Error("Error responding to interaction %s: %v", i.ID, err)
	}
}

// componentArgs splits the part of a custom id after its prefix
func componentArgs(i *discordgo.InteractionCreate) []string {
	_, rest, _ := strings.Cut(i.MessageComponentData().CustomID, ":")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, ":")
}
