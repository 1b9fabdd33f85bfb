package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/19722009abc/HelpyBot/pkg/repositories/inventory"
	"github.com/19722009abc/HelpyBot/pkg/services/shop"
)

func (b *Bot) handleShop(ctx context.Context, i *discordgo.InteractionCreate) error {
	now := b.clock()
	items, err := b.services.Shop.Catalog(ctx, inventory.ItemFilter{})
	if err != nil {
		return err
	}
	offers, err := b.services.Shop.DailyShop(ctx, now)
	if err != nil {
		return err
	}
	return b.send(i, shopEmbed(items, offers), nil)
}

func (b *Bot) handleBuy(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	receipt, err := b.services.Shop.Buy(ctx, shop.BuyRequest{
		AccountID: user.ID,
		Username:  user.Username,
		ItemID:    intOption(opts, "item", 0),
		Quantity:  int(intOption(opts, "quantity", 1)),
		Now:       b.clock(),
	})
	if err != nil {
		return err
	}
	return b.send(i, receiptEmbed(receipt), nil)
}

func (b *Bot) handleCraft(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	recipeID := intOption(opts, "recipe", 0)
	if recipeID == 0 {
		recipes, err := b.services.Shop.Recipes(ctx)
		if err != nil {
			return err
		}
		return b.send(i, recipesEmbed(recipes), nil)
	}

	user := invoker(i)
	result, err := b.services.Shop.Craft(ctx, user.ID, user.Username, recipeID, b.clock())
	if err != nil {
		return err
	}
	return b.send(i, craftEmbed(result), nil)
}

func (b *Bot) handleFragments(ctx context.Context, i *discordgo.InteractionCreate) error {
	set, err := b.services.Shop.Fragments(ctx, invoker(i).ID)
	if err != nil {
		return err
	}
	return b.send(i, fragmentsEmbed(set), nil)
}

func (b *Bot) handleInventory(ctx context.Context, i *discordgo.InteractionCreate) error {
	_, opts := optionMap(i)
	user := invoker(i)
	now := b.clock()

	if itemID := intOption(opts, "use", 0); itemID > 0 {
		expires, err := b.services.Shop.UseItem(ctx, user.ID, itemID, now)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Item #%d is now active.", itemID)
		if expires != nil {
			desc = fmt.Sprintf("Item #%d is active until %s.", itemID, timestamp(*expires))
		}
		return b.send(i, &discordgo.MessageEmbed{Title: "🎒 Item used", Description: desc, Color: colorGreen}, nil)
	}

	entries, err := b.services.Shop.Inventory(ctx, user.ID)
	if err != nil {
		return err
	}
	return b.send(i, inventoryEmbed(entries, now), nil)
}
