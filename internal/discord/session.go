// Package discord is the seam between the economy bot and discordgo. The bot
// only answers interactions, posts level-up notices, registers its slash
// commands and subscribes to gateway events, so that is all SessionHandler
// exposes; tests swap in the mock package.
package discord

import (
	"github.com/bwmarrin/discordgo"
)

// SessionHandler is the part of a Discord session the bot drives
type SessionHandler interface {
	// InteractionRespond answers a slash command or button press, either with
	// a new message or by updating the message that carries the buttons
	InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse) error

	// ChannelMessageSend posts level-up announcements in the chat channel
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)

	// ApplicationCommandBulkOverwrite replaces the registered command set in
	// one call; an empty guildID registers globally
	ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)

	Open() error
	Close() error

	// AddHandler subscribes to InteractionCreate and MessageCreate events
	AddHandler(handler interface{}) func()
}

// DiscordSession implements SessionHandler using discordgo.Session
type DiscordSession struct {
	*discordgo.Session
}

// NewSession authenticates as a bot user and requests the guild and guild
// message intents; chat xp is earned from MessageCreate events.
func NewSession(token string) (*DiscordSession, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return &DiscordSession{Session: s}, nil
}

var _ SessionHandler = (*DiscordSession)(nil)

func (s *DiscordSession) InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse) error {
	return s.Session.InteractionRespond(i, r)
}

func (s *DiscordSession) ChannelMessageSend(channelID string, content string) (*discordgo.Message, error) {
	return s.Session.ChannelMessageSend(channelID, content)
}

func (s *DiscordSession) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	return s.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
}

func (s *DiscordSession) Open() error {
	return s.Session.Open()
}

func (s *DiscordSession) Close() error {
	return s.Session.Close()
}

func (s *DiscordSession) AddHandler(handler interface{}) func() {
	return s.Session.AddHandler(handler)
}
