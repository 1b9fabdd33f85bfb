package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
)

func player(i *discordgo.InteractionCreate) casino.Player {
	user := invoker(i)
	return casino.Player{AccountID: user.ID, Username: user.Username, GuildID: i.GuildID}
}

func difficultyArg(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (entities.Difficulty, error) {
	raw := stringOption(opts, "difficulty", string(entities.DifficultyMedium))
	d, ok := entities.ParseDifficulty(raw)
	if !ok {
		return "", types.Errorf(types.ErrInvalidArgument, "unknown difficulty %q", raw)
	}
	return d, nil
}

// ownedComponent checks that the member pressing a game button owns the game
// and returns the remaining custom id arguments
func ownedComponent(i *discordgo.InteractionCreate) ([]string, error) {
	args := componentArgs(i)
	if len(args) < 2 {
		return nil, types.Errorf(types.ErrInvalidArgument, "malformed button %q", i.MessageComponentData().CustomID)
	}
	if args[0] != invoker(i).ID {
		return nil, types.NewError(types.ErrPermissionDenied, "this is not your game")
	}
	return args[1:], nil
}

func (b *Bot) handleDice(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	round, settlement, err := b.services.Casino.Dice(ctx, player(i),
		intOption(opts, "amount", 0), int(intOption(opts, "prediction", 0)), b.clock())
	if err != nil {
		return err
	}
	detail := fmt.Sprintf("🎲 %d + %d = **%d** (you predicted %d, pays %dx)",
		round.Dice[0], round.Dice[1], round.Sum(), round.Prediction, round.Multiplier)
	return b.send(i, settlementEmbed("Dice", detail, settlement), nil)
}

var rouletteEmoji = map[casino.Color]string{
	casino.Red:   "🔴",
	casino.Black: "⚫",
	casino.Green: "🟢",
}

func (b *Bot) handleRoulette(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	choice, err := casino.ParseColor(stringOption(opts, "color", ""))
	if err != nil {
		return err
	}
	round, settlement, err := b.services.Casino.Roulette(ctx, player(i), intOption(opts, "amount", 0), choice, b.clock())
	if err != nil {
		return err
	}
	detail := fmt.Sprintf("The ball landed on %s **%d** (you bet on %s)",
		rouletteEmoji[round.Landed.Color], round.Roll, round.Choice)
	return b.send(i, settlementEmbed("Roulette", detail, settlement), nil)
}

func (b *Bot) handleGuess(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	difficulty, err := difficultyArg(opts)
	if err != nil {
		return err
	}
	p := player(i)
	round, err := b.services.Casino.StartGuess(ctx, p, intOption(opts, "amount", 0), difficulty, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, guessEmbed(round), guessButtons(p.AccountID, round.Max))
}

func (b *Bot) handleGuessButton(ctx context.Context, i *discordgo.InteractionCreate) error {
	args, err := ownedComponent(i)
	if err != nil {
		return err
	}
	guess, err := strconv.Atoi(args[0])
	if err != nil {
		return types.Errorf(types.ErrInvalidArgument, "malformed guess %q", args[0])
	}

	round, settlement, err := b.services.Casino.Guess(ctx, player(i), guess, b.clock())
	if err != nil {
		return err
	}
	detail := fmt.Sprintf("You picked **%d**, the number was **%d**.", guess, round.Secret)
	return b.update(i, settlementEmbed("Guess the number", detail, settlement), []discordgo.MessageComponent{})
}

func (b *Bot) handleHangman(ctx context.Context, i *discordgo.InteractionCreate) error {
	sub, opts := optionMap(i)
	p := player(i)
	now := b.clock()

	switch sub {
	case "start":
		difficulty, err := difficultyArg(opts)
		if err != nil {
			return err
		}
		game, err := b.services.Casino.StartHangman(ctx, p, difficulty, now)
		if err != nil {
			return err
		}
		return b.send(i, hangmanEmbed(game), hangmanButtons(p.AccountID))
	case "letter":
		turn, err := b.services.Casino.GuessLetter(ctx, p, stringOption(opts, "letter", ""), now)
		if err != nil {
			return err
		}
		if turn.Settlement != nil {
			return b.send(i, hangmanResult(turn), nil)
		}
		embed := hangmanEmbed(turn.Game)
		if turn.Hit {
			embed.Color = colorGreen
		} else {
			embed.Color = colorRed
		}
		return b.send(i, embed, hangmanButtons(p.AccountID))
	case "giveup":
		turn, err := b.services.Casino.GiveUpHangman(ctx, p, now)
		if err != nil {
			return err
		}
		return b.send(i, hangmanResult(turn), nil)
	}
	return types.Errorf(types.ErrInvalidArgument, "unknown hangman action %q", sub)
}

func (b *Bot) handleHangmanButton(ctx context.Context, i *discordgo.InteractionCreate) error {
	args, err := ownedComponent(i)
	if err != nil {
		return err
	}
	if args[0] != "giveup" {
		return types.Errorf(types.ErrInvalidArgument, "unknown hangman action %q", args[0])
	}
	turn, err := b.services.Casino.GiveUpHangman(ctx, player(i), b.clock())
	if err != nil {
		return err
	}
	return b.update(i, hangmanResult(turn), []discordgo.MessageComponent{})
}

func hangmanResult(turn *casino.HangmanTurn) *discordgo.MessageEmbed {
	game := turn.Game
	detail := fmt.Sprintf("The word was **%s** (%s).", game.Word, game.Category)
	switch game.Status {
	case casino.HangmanWon:
		detail = fmt.Sprintf("You found **%s** with %d lives left!", game.Word, game.Lives)
	case casino.HangmanAbandoned:
		detail = "You gave up. " + detail
	}
	return settlementEmbed("Hangman", detail, turn.Settlement)
}

func (b *Bot) handleQuiz(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	difficulty, err := difficultyArg(opts)
	if err != nil {
		return err
	}
	p := player(i)
	quiz, err := b.services.Casino.StartQuiz(ctx, p, difficulty, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, quizEmbed(quiz), quizButtons(p.AccountID, quiz))
}

func (b *Bot) handleQuizButton(ctx context.Context, i *discordgo.InteractionCreate) error {
	args, err := ownedComponent(i)
	if err != nil {
		return err
	}
	choice, err := strconv.Atoi(args[0])
	if err != nil {
		return types.Errorf(types.ErrInvalidArgument, "malformed answer %q", args[0])
	}

	p := player(i)
	turn, err := b.services.Casino.AnswerQuiz(ctx, p, choice, b.clock())
	if err != nil {
		return err
	}

	verdict := "✅ Correct!"
	if !turn.Correct {
		verdict = fmt.Sprintf("❌ Wrong, it was **%s**.", turn.Answered.Options[turn.Answered.Answer])
	}
	if turn.Settlement != nil {
		detail := fmt.Sprintf("%s\nYou answered %d of %d questions correctly.", verdict, turn.Quiz.Correct, len(turn.Quiz.Questions))
		return b.update(i, settlementEmbed("Quiz", detail, turn.Settlement), []discordgo.MessageComponent{})
	}

	embed := quizEmbed(turn.Quiz)
	embed.Description = verdict + "\n\n" + embed.Description
	return b.update(i, embed, quizButtons(p.AccountID, turn.Quiz))
}

func (b *Bot) handleRob(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	victimID, _, ok := userArg(i, opts, "user")
	if !ok {
		return types.NewError(types.ErrInvalidArgument, "choose who to rob")
	}
	user := invoker(i)
	result, err := b.services.Robbery.Rob(ctx, user.ID, user.Username, victimID, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, robEmbed(victimID, result), nil)
}
