package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/19722009abc/HelpyBot/pkg/discord/commands"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/bank"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
)

var minOne = 1.0

func amountOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "amount",
		Description: description,
		Required:    true,
		MinValue:    &minOne,
	}
}

func userOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    required,
	}
}

func difficultyOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "difficulty",
		Description: "Game difficulty",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Easy", Value: "easy"},
			{Name: "Medium", Value: "medium"},
			{Name: "Hard", Value: "hard"},
		},
	}
}

func loanPlanChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(bank.LoanPlans))
	for _, p := range bank.LoanPlans {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: capitalize(p.Name), Value: p.Name})
	}
	return choices
}

func investmentPlanChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(bank.InvestmentPlans))
	for _, p := range bank.InvestmentPlans {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: capitalize(p.Name), Value: p.Name})
	}
	return choices
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// ApplicationCommands returns every slash command the bot serves
func ApplicationCommands() []*discordgo.ApplicationCommand {
	minPrediction, maxPrediction := 2.0, 12.0

	premiumChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(accrual.PremiumPackages))
	for _, p := range accrual.PremiumPackages {
		premiumChoices = append(premiumChoices, &discordgo.ApplicationCommandOptionChoice{Name: p.ID, Value: p.ID})
	}

	return []*discordgo.ApplicationCommand{
		{Name: "daily", Description: "Claim your daily reward"},
		{
			Name:        "wallet",
			Description: "Show a wallet balance",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Whose wallet to show", false)},
		},
		{
			Name:        "transfer",
			Description: "Send coins to another member",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Who receives the coins", true),
				amountOption("Coins to send"),
			},
		},
		{
			Name:        "dice",
			Description: "Bet on the sum of two dice",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption("Coins to bet"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "prediction",
					Description: "The sum you expect (2-12)",
					Required:    true,
					MinValue:    &minPrediction,
					MaxValue:    maxPrediction,
				},
			},
		},
		{
			Name:        "roulette",
			Description: "Bet on a roulette color",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption("Coins to bet"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "color",
					Description: "Red and black pay 2x, green pays 14x",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Red", Value: string(casino.Red)},
						{Name: "Black", Value: string(casino.Black)},
						{Name: "Green", Value: string(casino.Green)},
					},
				},
			},
		},
		{
			Name:        "guess",
			Description: "Guess the secret number",
			Options:     []*discordgo.ApplicationCommandOption{amountOption("Coins to bet"), difficultyOption()},
		},
		{
			Name:        "hangman",
			Description: "Play hangman",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("start", "Start a game", difficultyOption()),
				subcommand("letter", "Guess a letter", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "letter",
					Description: "One letter",
					Required:    true,
					MaxLength:   1,
				}),
				subcommand("giveup", "Give up the running game"),
			},
		},
		{
			Name:        "quiz",
			Description: "Answer a programming quiz",
			Options:     []*discordgo.ApplicationCommandOption{difficultyOption()},
		},
		{
			Name:        "rob",
			Description: "Try to rob another member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Who to rob", true)},
		},
		{
			Name:        "bank",
			Description: "Bank account, loans and investments",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("balance", "Show your bank account"),
				subcommand("deposit", "Move coins from your wallet to the bank", amountOption("Coins to deposit")),
				subcommand("withdraw", "Move coins from the bank to your wallet", amountOption("Coins to withdraw")),
				subcommand("transfer", "Send bank coins to another bank account",
					userOption("Who receives the coins", true), amountOption("Coins to send")),
				subcommand("loan", "Take a loan",
					&discordgo.ApplicationCommandOption{
						Type: discordgo.ApplicationCommandOptionString, Name: "plan", Description: "Loan plan",
						Required: true, Choices: loanPlanChoices(),
					},
					amountOption("Coins to borrow")),
				subcommand("repay", "Repay your loan", amountOption("Coins to repay")),
				subcommand("invest", "Lock bank coins in an investment",
					&discordgo.ApplicationCommandOption{
						Type: discordgo.ApplicationCommandOptionString, Name: "plan", Description: "Investment plan",
						Required: true, Choices: investmentPlanChoices(),
					},
					amountOption("Coins to invest")),
				subcommand("investments", "List your investments"),
			},
		},
		{
			Name:        "raffle",
			Description: "The daily raffle",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("info", "Show the running raffle"),
				subcommand("buy", "Buy tickets", &discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "quantity", Description: "Tickets to buy",
					Required: true, MinValue: &minOne,
				}),
			},
		},
		{Name: "shop", Description: "Browse the shop and today's offers"},
		{
			Name:        "buy",
			Description: "Buy an item from the shop",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "item", Description: "Item id", Required: true, MinValue: &minOne},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "quantity", Description: "How many", MinValue: &minOne},
			},
		},
		{
			Name:        "craft",
			Description: "Craft an item from fragments, or list the recipes",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "recipe", Description: "Recipe id", MinValue: &minOne},
			},
		},
		{Name: "fragments", Description: "Show your crafting fragments"},
		{
			Name:        "inventory",
			Description: "Show your items, or use one",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "use", Description: "Item id to activate", MinValue: &minOne},
			},
		},
		{
			Name:        "premium",
			Description: "Show or buy premium",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "package", Description: "Package to buy", Choices: premiumChoices},
			},
		},
		commands.TopApplicationCommand(),
		{
			Name:        "level",
			Description: "Show level progress",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Whose level to show", false)},
		},
	}
}

// optionMap indexes the options of the command, or of its subcommand when
// one was invoked
func optionMap(i *discordgo.InteractionCreate) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opts := i.ApplicationCommandData().Options
	sub := ""
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return sub, m
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int64) int64 {
	if o, ok := opts[name]; ok {
		return o.IntValue()
	}
	return fallback
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name, fallback string) string {
	if o, ok := opts[name]; ok {
		return o.StringValue()
	}
	return fallback
}

// userArg resolves a user option to an id and display name
func userArg(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, string, bool) {
	o, ok := opts[name]
	if !ok {
		return "", "", false
	}
	id, _ := o.Value.(string)
	username := id
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if u, ok := resolved.Users[id]; ok && u != nil {
			username = u.Username
		}
	}
	return id, username, true
}

// invoker returns the member who triggered the interaction
func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}
