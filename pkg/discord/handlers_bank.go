package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

const (
	investmentListLimit = 10
	raffleTopLimit      = 5
)

func (b *Bot) handleBank(ctx context.Context, i *discordgo.InteractionCreate) error {
	sub, opts := optionMap(i)
	user := invoker(i)
	now := b.clock()
	amount := intOption(opts, "amount", 0)
	svc := b.services.Bank

	switch sub {
	case "balance":
		st, err := svc.Account(ctx, user.ID, user.Username, now)
		if err != nil {
			return err
		}
		loan, err := svc.ActiveLoan(ctx, user.ID)
		if err != nil {
			return err
		}
		return b.send(i, bankEmbed(st, loan), nil)

	case "deposit", "withdraw":
		deposit := svc.Deposit
		verb := "Deposited"
		if sub == "withdraw" {
			deposit = svc.Withdraw
			verb = "Withdrew"
		}
		acct, err := deposit(ctx, user.ID, user.Username, amount, now)
		if err != nil {
			return err
		}
		return b.send(i, &discordgo.MessageEmbed{
			Title:       "🏦 Bank",
			Description: fmt.Sprintf("%s %s.", verb, coins(amount)),
			Color:       colorGreen,
			Fields:      []*discordgo.MessageEmbedField{field("Bank balance", coins(acct.Balance), true)},
		}, nil)

	case "transfer":
		toID, _, ok := userArg(i, opts, "user")
		if !ok {
			return types.NewError(types.ErrInvalidArgument, "choose who receives the coins")
		}
		acct, err := svc.Transfer(ctx, user.ID, user.Username, toID, amount, now)
		if err != nil {
			return err
		}
		return b.send(i, &discordgo.MessageEmbed{
			Title:       "🏦 Bank transfer",
			Description: fmt.Sprintf("Sent %s to <@%s>'s bank account.", coins(amount), toID),
			Color:       colorGreen,
			Fields:      []*discordgo.MessageEmbedField{field("Bank balance", coins(acct.Balance), true)},
		}, nil)

	case "loan":
		loan, err := svc.TakeLoan(ctx, user.ID, user.Username, stringOption(opts, "plan", ""), amount, now)
		if err != nil {
			return err
		}
		return b.send(i, &discordgo.MessageEmbed{
			Title:       "🏦 Loan approved",
			Description: fmt.Sprintf("%s were added to your wallet.", coins(loan.Principal)),
			Color:       colorGreen,
			Fields:      []*discordgo.MessageEmbedField{loanField(loan)},
		}, nil)

	case "repay":
		loan, err := svc.RepayLoan(ctx, user.ID, amount, now)
		if err != nil {
			return err
		}
		embed := &discordgo.MessageEmbed{Title: "🏦 Loan payment", Color: colorGreen}
		if loan.Status == entities.LoanStatusPaid {
			embed.Description = "Your loan is fully repaid. 🎉"
		} else {
			embed.Fields = []*discordgo.MessageEmbedField{loanField(loan)}
		}
		return b.send(i, embed, nil)

	case "invest":
		inv, err := svc.Invest(ctx, user.ID, user.Username, stringOption(opts, "plan", ""), amount, now)
		if err != nil {
			return err
		}
		return b.send(i, investmentsEmbed([]*entities.Investment{inv}), nil)

	case "investments":
		invs, err := svc.Investments(ctx, user.ID, investmentListLimit)
		if err != nil {
			return err
		}
		return b.send(i, investmentsEmbed(invs), nil)
	}
	return types.Errorf(types.ErrInvalidArgument, "unknown bank action %q", sub)
}

func (b *Bot) handleRaffle(ctx context.Context, i *discordgo.InteractionCreate) error {
	sub, opts := optionMap(i)
	user := invoker(i)
	now := b.clock()
	svc := b.services.Raffle

	switch sub {
	case "info":
		st, err := svc.Current(ctx, now)
		if err != nil {
			return err
		}
		held, err := svc.Tickets(ctx, st.Raffle.ID, user.ID)
		if err != nil {
			return err
		}
		top, err := svc.Participants(ctx, st.Raffle.ID, raffleTopLimit)
		if err != nil {
			return err
		}
		return b.send(i, raffleEmbed(st, held, top), nil)

	case "buy":
		purchase, err := svc.BuyTickets(ctx, user.ID, user.Username, intOption(opts, "quantity", 0), now)
		if err != nil {
			return err
		}
		return b.send(i, &discordgo.MessageEmbed{
			Title:       "🎟️ Tickets bought",
			Description: fmt.Sprintf("You paid %s and now hold %d tickets.", coins(purchase.Cost), purchase.Tickets),
			Color:       colorGreen,
			Fields: []*discordgo.MessageEmbedField{
				field("Prize", coins(purchase.Raffle.Prize), true),
				field("Wallet", coins(purchase.Transaction.BalanceAfter), true),
			},
		}, nil)
	}
	return types.Errorf(types.ErrInvalidArgument, "unknown raffle action %q", sub)
}
