package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/services/statistics"
)

const topPrefix = "top"

// LeaderboardService is the part of the statistics service the command reads
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, kind entities.LeaderboardKind, page, perPage int, now time.Time) (*statistics.Leaderboard, error)
}

// TopCommand handles the /top command for displaying the leaderboards
type TopCommand struct {
	session idiscord.SessionHandler
	service LeaderboardService
	clock   func() time.Time
}

// NewTopCommand creates a new top command handler
func NewTopCommand(session idiscord.SessionHandler, service LeaderboardService, clock func() time.Time) *TopCommand {
	return &TopCommand{
		session: session,
		service: service,
		clock:   clock,
	}
}

// Prefix is the custom id prefix of the leaderboard buttons
func (c *TopCommand) Prefix() string {
	return topPrefix
}

// TopApplicationCommand returns the command definition for the top command
func TopApplicationCommand() *discordgo.ApplicationCommand {
	minPage := 1.0
	return &discordgo.ApplicationCommand{
		Name:        "top",
		Description: "View the server leaderboards",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "board",
				Description: "Which ranking to show",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Coins", Value: string(entities.LeaderboardCoins)},
					{Name: "Level", Value: string(entities.LeaderboardLevel)},
					{Name: "Messages", Value: string(entities.LeaderboardMessages)},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page number",
				MinValue:    &minPage,
			},
		},
	}
}

// Handle handles the top command
func (c *TopCommand) Handle(ctx context.Context, i *discordgo.InteractionCreate) error {
	kindArg, page := "", 1
	for _, o := range i.ApplicationCommandData().Options {
		switch o.Name {
		case "board":
			kindArg = o.StringValue()
		case "page":
			page = int(o.IntValue())
		}
	}
	kind, err := statistics.ParseKind(kindArg)
	if err != nil {
		return err
	}

	board, err := c.service.GetLeaderboard(ctx, kind, page, statistics.DefaultPerPage, c.clock())
	if err != nil {
		return err
	}
	return idiscord.SendEmbed(c.session, i, LeaderboardEmbed(board), leaderboardComponents(board))
}

// HandleComponent handles button clicks on the leaderboard. Custom ids are
// top:<action>:<kind>:<page>.
func (c *TopCommand) HandleComponent(ctx context.Context, i *discordgo.InteractionCreate) error {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) != 4 || parts[0] != topPrefix {
		return types.Errorf(types.ErrInvalidArgument, "malformed leaderboard button %q", i.MessageComponentData().CustomID)
	}
	action := parts[1]
	kind, err := statistics.ParseKind(parts[2])
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(parts[3])
	if err != nil {
		return types.Errorf(types.ErrInvalidArgument, "malformed leaderboard page %q", parts[3])
	}

	switch action {
	case "prev":
		page--
	case "next":
		page++
	case "refresh":
	case "kind":
		page = 1
	default:
		return types.Errorf(types.ErrInvalidArgument, "unknown leaderboard action %q", action)
	}

	board, err := c.service.GetLeaderboard(ctx, kind, page, statistics.DefaultPerPage, c.clock())
	if err != nil {
		return err
	}
	return idiscord.UpdateEmbed(c.session, i, LeaderboardEmbed(board), leaderboardComponents(board))
}

var boardTitles = map[entities.LeaderboardKind]string{
	entities.LeaderboardCoins:    "💰 Richest members",
	entities.LeaderboardLevel:    "⭐ Highest levels",
	entities.LeaderboardMessages: "💬 Most active members",
}

// LeaderboardEmbed renders one page of a board
func LeaderboardEmbed(board *statistics.Leaderboard) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     boardTitles[board.Kind],
		Color:     0x00ff00,
		Timestamp: board.LastUpdated.Format(time.RFC3339),
	}
	if len(board.Entries) == 0 {
		embed.Description = "Nobody is ranked yet."
		return embed
	}

	lines := make([]string, 0, len(board.Entries))
	for _, e := range board.Entries {
		lines = append(lines, fmt.Sprintf("%s **%s** %s", rankMarker(e.Rank), displayName(e), entryValue(board.Kind, e)))
	}
	embed.Description = strings.Join(lines, "\n")
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Page %d of %d (%d members)", board.CurrentPage, board.TotalPages, board.TotalPlayers),
	}
	return embed
}

func rankMarker(rank int) string {
	switch rank {
	case 1:
		return "👑"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func displayName(e *entities.LeaderboardEntry) string {
	if e.Username != "" {
		return e.Username
	}
	return e.AccountID
}

func entryValue(kind entities.LeaderboardKind, e *entities.LeaderboardEntry) string {
	switch kind {
	case entities.LeaderboardLevel:
		return fmt.Sprintf("level %d (%d xp)", e.Level, e.XP)
	case entities.LeaderboardMessages:
		return fmt.Sprintf("%d messages", e.Messages)
	default:
		return fmt.Sprintf("🪙 %d", e.Coins)
	}
}

func leaderboardComponents(board *statistics.Leaderboard) []discordgo.MessageComponent {
	id := func(action string, kind entities.LeaderboardKind) string {
		return fmt.Sprintf("%s:%s:%s:%d", topPrefix, action, kind, board.CurrentPage)
	}

	paginationRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Previous",
				Style:    discordgo.SecondaryButton,
				CustomID: id("prev", board.Kind),
				Disabled: !board.HasPrevious(),
				Emoji:    &discordgo.ComponentEmoji{Name: "⬅️"},
			},
			discordgo.Button{
				Label:    "Refresh",
				Style:    discordgo.SecondaryButton,
				CustomID: id("refresh", board.Kind),
				Emoji:    &discordgo.ComponentEmoji{Name: "🔄"},
			},
			discordgo.Button{
				Label:    "Next",
				Style:    discordgo.SecondaryButton,
				CustomID: id("next", board.Kind),
				Disabled: !board.HasNext(),
				Emoji:    &discordgo.ComponentEmoji{Name: "➡️"},
			},
		},
	}

	toggles := make([]discordgo.MessageComponent, 0, 3)
	for _, k := range []entities.LeaderboardKind{entities.LeaderboardCoins, entities.LeaderboardLevel, entities.LeaderboardMessages} {
		style := discordgo.SecondaryButton
		if k == board.Kind {
			style = discordgo.PrimaryButton
		}
		toggles = append(toggles, discordgo.Button{
			Label:    strings.ToUpper(string(k)[:1]) + string(k)[1:],
			Style:    style,
			CustomID: id("kind", k),
			Disabled: k == board.Kind,
		})
	}

	return []discordgo.MessageComponent{paginationRow, discordgo.ActionsRow{Components: toggles}}
}
