package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/19722009abc/HelpyBot/internal/types"
)

// ResponseEmoji maps error codes to appropriate emojis
var ResponseEmoji = map[types.ErrorCode]string{
	types.ErrInsufficientFunds:     "💸",
	types.ErrInsufficientResources: "🧩",
	types.ErrAlreadyClaimed:        "📅",
	types.ErrNotFound:              "🔍",
	types.ErrCooldownActive:        "⏳",
	types.ErrJailed:                "🚔",
	types.ErrPremiumRequired:       "💎",
	types.ErrLimitReached:          "📦",
	types.ErrInvalidArgument:       "❗",
	types.ErrInvalidState:          "⚠️",
	types.ErrPermissionDenied:      "🚫",
	types.ErrStorage:               "💾",
	types.ErrRateLimited:           "⏱️",
	types.ErrInternalError:         "💥",
}

// Response represents a Discord interaction response
type Response struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

// NewResponse creates a new Response
func NewResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  false,
	}
}

// NewEphemeralResponse creates a new ephemeral Response (only visible to the user)
func NewEphemeralResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  true,
	}
}

// NewEmbedResponse creates a Response carrying one embed
func NewEmbedResponse(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) *Response {
	return &Response{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}
}

// NewErrorResponse creates a new error Response. Economy errors show their
// message; cooldown-style errors add when to retry.
func NewErrorResponse(err error) *Response {
	var econErr *types.EconomyError
	if types.As(err, &econErr) {
		emoji := ResponseEmoji[econErr.Code]
		if emoji == "" {
			emoji = "❌"
		}
		content := fmt.Sprintf("%s %s", emoji, econErr.Message)
		if econErr.RetryAfter > 0 && econErr.Code != types.ErrAlreadyClaimed {
			content += fmt.Sprintf(" (try again in %s)", FormatDuration(econErr.RetryAfter))
		}
		return NewEphemeralResponse(content, nil)
	}
	return NewEphemeralResponse(fmt.Sprintf("❌ An error occurred: %v", err), nil)
}

// FormatDuration renders a wait as "1h 5m" or "42s"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func responseData(r *Response) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.Components,
		Flags:      getFlags(r.Ephemeral),
	}
}

// SendResponse sends a response to a Discord interaction
func SendResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(r),
	})
}

// UpdateResponse updates the message the interaction's component belongs to
func UpdateResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: responseData(r),
	})
}

// SendEmbed sends a public embed
func SendEmbed(s SessionHandler, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return SendResponse(s, i, NewEmbedResponse(embed, components))
}

// UpdateEmbed replaces the component message with an embed
func UpdateEmbed(s SessionHandler, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return UpdateResponse(s, i, NewEmbedResponse(embed, components))
}

// SendErrorResponse sends an error response
func SendErrorResponse(s SessionHandler, i *discordgo.InteractionCreate, err error) error {
	return SendResponse(s, i, NewErrorResponse(err))
}

// Helper functions

func getFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
