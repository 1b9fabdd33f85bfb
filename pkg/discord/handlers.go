package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/services/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
)

func (b *Bot) send(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if err := idiscord.SendEmbed(b.session, i, embed, components); err != nil {
		b.logger.Error("Error responding to interaction %s: %v", i.ID, err)
	}
	return nil
}

func (b *Bot) update(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if err := idiscord.UpdateEmbed(b.session, i, embed, components); err != nil {
		b.logger.Error("Error updating interaction %s: %v", i.ID, err)
	}
	return nil
}

func (b *Bot) handleDaily(ctx context.Context, i *discordgo.InteractionCreate) error {
	user := invoker(i)
	result, err := b.services.Accrual.ClaimDaily(ctx, user.ID, user.Username, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, dailyEmbed(result), nil)
}

func (b *Bot) handleWallet(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	id, name := user.ID, user.Username
	if otherID, otherName, ok := userArg(i, opts, "user"); ok {
		id, name = otherID, otherName
	}

	now := b.clock()
	acct, err := b.services.Ledger.EnsureAccount(ctx, id, name, now)
	if err != nil {
		return err
	}
	return b.send(i, walletEmbed(acct, leveling.Info(acct.Level, acct.XP), now), nil)
}

func (b *Bot) handleTransfer(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	toID, toName, ok := userArg(i, opts, "user")
	if !ok {
		return types.NewError(types.ErrInvalidArgument, "choose who receives the coins")
	}
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if u, ok := resolved.Users[toID]; ok && u.Bot {
			return types.NewError(types.ErrInvalidArgument, "bots have no wallet")
		}
	}
	amount := intOption(opts, "amount", 0)

	result, err := b.services.Ledger.Transfer(ctx, ledger.TransferRequest{
		From:     user.ID,
		To:       toID,
		FromName: user.Username,
		ToName:   toName,
		Amount:   amount,
		Now:      b.clock(),
	})
	if err != nil {
		return err
	}
	return b.send(i, transferEmbed(toID, amount, result.Out.BalanceAfter), nil)
}

func (b *Bot) handlePremium(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	now := b.clock()

	if pkg := stringOption(opts, "package", ""); pkg != "" {
		result, err := b.services.Accrual.BuyPremium(ctx, user.ID, user.Username, pkg, now)
		if err != nil {
			return err
		}
		embed := &discordgo.MessageEmbed{
			Title:       "💎 Premium activated",
			Description: "Premium is active until " + timestamp(result.Until) + ".",
			Color:       colorGold,
			Fields:      []*discordgo.MessageEmbedField{field("Wallet", coins(result.Balance), true)},
		}
		return b.send(i, embed, nil)
	}

	acct, err := b.services.Ledger.EnsureAccount(ctx, user.ID, user.Username, now)
	if err != nil {
		return err
	}
	return b.send(i, premiumEmbed(acct, now), nil)
}

func (b *Bot) handleLevel(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	id, name := user.ID, user.Username
	if otherID, otherName, ok := userArg(i, opts, "user"); ok {
		id, name = otherID, otherName
	}

	acct, err := b.services.Ledger.EnsureAccount(ctx, id, name, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, levelEmbed(name, leveling.Info(acct.Level, acct.XP)), nil)
}
