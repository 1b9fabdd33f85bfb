package shop

import (
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// DailyShopSize is how many items the daily rotation offers
const DailyShopSize = 4

// DailyDiscounts are the percent discounts a daily offer can carry
var DailyDiscounts = []int{10, 15, 20, 25, 30}

// tier is a rung of an item family: I..V map onto the fragment rarities
type tier struct {
	price int64
	value float64
}

type family struct {
	name     string
	desc     string
	itemType entities.ItemType
	effect   entities.ItemEffect
	tiers    [entities.TierCount]tier
}

var romans = [entities.TierCount]string{"I", "II", "III", "IV", "V"}

var families = []family{
	{"Wallet Expansion", "Raises the coin limit by %.0f", entities.ItemTypeUpgrade, entities.EffectCoinLimit,
		[5]tier{{10000, 50000}, {25000, 100000}, {50000, 200000}, {100000, 500000}, {250000, 1000000}}},
	{"Backpack", "Adds %.0f inventory slots", entities.ItemTypeUpgrade, entities.EffectInventorySlots,
		[5]tier{{5000, 5}, {15000, 10}, {30000, 20}, {75000, 50}, {150000, 100}}},
	{"Daily Multiplier", "Multiplies daily coins by %.2f for 7 days", entities.ItemTypeBoost, entities.EffectDailyBoost,
		[5]tier{{5000, 1.25}, {10000, 1.5}, {15000, 1.75}, {25000, 2}, {50000, 3}}},
	{"XP Boost", "Multiplies xp gained by %.2f for 3 days", entities.ItemTypeBoost, entities.EffectXPBoost,
		[5]tier{{3500, 1.25}, {7000, 1.5}, {12000, 2}, {20000, 3}, {40000, 5}}},
	{"Cooldown Reducer", "Cuts the daily cooldown by %.2f", entities.ItemTypeBoost, entities.EffectCooldownReduction,
		[5]tier{{4000, 0.2}, {8000, 0.35}, {12000, 0.5}, {20000, 0.75}, {50000, 1}}},
	{"Victory Bonus", "Multiplies minigame winnings by %.2f", entities.ItemTypeBoost, entities.EffectGameBoost,
		[5]tier{{3000, 1.3}, {6000, 1.6}, {10000, 2}, {18000, 3}, {35000, 5}}},
	{"Loss Protection", "%.2f chance to keep a lost stake", entities.ItemTypeProtection, entities.EffectLossProtection,
		[5]tier{{5000, 0.3}, {10000, 0.5}, {15000, 0.7}, {25000, 0.85}, {50000, 1}}},
	{"Fragment Collector", "Multiplies fragment drops by %.2f", entities.ItemTypeBoost, entities.EffectFragmentBoost,
		[5]tier{{5000, 1.2}, {10000, 1.5}, {20000, 2}, {35000, 3}, {60000, 5}}},
	{"Lucky Charm", "Adds %.2f luck in games", entities.ItemTypeBoost, entities.EffectLuckBoost,
		[5]tier{{8000, 0.1}, {15000, 0.2}, {25000, 0.3}, {40000, 0.5}, {75000, 1}}},
	{"Crafting Kit", "Cuts crafting fragment costs by %.2f", entities.ItemTypeBoost, entities.EffectCraftingDiscount,
		[5]tier{{6000, 0.1}, {12000, 0.25}, {24000, 0.4}, {45000, 0.6}, {80000, 0.8}}},
}

var cosmetics = []entities.ShopItem{
	{Name: "Green Aura", Description: "A green aura around your profile", Price: 1500, Rarity: entities.TierCommon.Key()},
	{Name: "Blue Aura", Description: "A blue aura around your profile", Price: 1500, Rarity: entities.TierCommon.Key()},
	{Name: "Purple Aura", Description: "A purple aura around your profile", Price: 3000, Rarity: entities.TierUncommon.Key()},
	{Name: "Golden Aura", Description: "A golden aura around your profile", Price: 5000, Rarity: entities.TierRare.Key()},
	{Name: "Crystal Aura", Description: "A crystal aura around your profile", Price: 12000, Rarity: entities.TierEpic.Key()},
	{Name: "Rainbow Aura", Description: "A rainbow aura around your profile", Price: 25000, Rarity: entities.TierLegendary.Key(), PremiumOnly: true},
	{Name: "Title: Veteran", Description: "Profile title", Price: 10000, Rarity: entities.TierUncommon.Key()},
	{Name: "Title: Legend", Description: "Profile title", Price: 30000, Rarity: entities.TierEpic.Key()},
	{Name: "Title: Immortal", Description: "Profile title", Price: 50000, Rarity: entities.TierLegendary.Key(), PremiumOnly: true},
}

// DefaultItems is the catalog seeded into an empty shop. The top rung of
// every family is premium-only.
func DefaultItems() []entities.ShopItem {
	var items []entities.ShopItem
	for _, f := range families {
		for i, t := range f.tiers {
			items = append(items, entities.ShopItem{
				Name:        fmt.Sprintf("%s %s", f.name, romans[i]),
				Description: fmt.Sprintf(f.desc, t.value),
				Price:       t.price,
				Type:        f.itemType,
				Effect:      f.effect,
				EffectValue: t.value,
				Active:      true,
				PremiumOnly: i == entities.TierCount-1,
				Rarity:      entities.FragmentTier(i).Key(),
			})
		}
	}
	for _, c := range cosmetics {
		c.Type = entities.ItemTypeCosmetic
		c.Effect = entities.EffectCosmetic
		c.Active = true
		items = append(items, c)
	}
	return items
}

// recipeCost is the fragment vector and coin cost of an effect family
type recipeCost struct {
	fragments entities.FragmentSet
	coins     int64
}

var (
	xpRecipe       = recipeCost{entities.FragmentSet{15, 10, 5, 0, 0}, 2000}
	dailyRecipe    = recipeCost{entities.FragmentSet{10, 8, 4, 1, 0}, 1500}
	cooldownRecipe = recipeCost{entities.FragmentSet{8, 6, 3, 1, 0}, 1000}
	otherRecipe    = recipeCost{entities.FragmentSet{12, 8, 4, 0, 0}, 1200}
)

var craftable = map[entities.ItemEffect]recipeCost{
	entities.EffectXPBoost:           xpRecipe,
	entities.EffectDailyBoost:        dailyRecipe,
	entities.EffectCooldownReduction: cooldownRecipe,
	entities.EffectCoinLimit:         otherRecipe,
}

// DefaultRecipes builds one recipe per craftable, non-premium catalog item
func DefaultRecipes(items []*entities.ShopItem) []entities.Recipe {
	var recipes []entities.Recipe
	for _, it := range items {
		cost, ok := craftable[it.Effect]
		if !ok || it.PremiumOnly {
			continue
		}
		recipes = append(recipes, entities.Recipe{
			Name:         "Craft " + it.Name,
			Description:  fmt.Sprintf("Crafts %s from fragments", it.Name),
			ResultItemID: it.ID,
			Fragments:    cost.fragments,
			CoinCost:     cost.coins,
		})
	}
	return recipes
}

// ActivationPeriod is how long a used item stays active. Zero means no
// expiry; false means the item cannot be used.
func ActivationPeriod(effect entities.ItemEffect) (time.Duration, bool) {
	switch effect {
	case entities.EffectDailyBoost:
		return 7 * 24 * time.Hour, true
	case entities.EffectXPBoost:
		return 3 * 24 * time.Hour, true
	case entities.EffectCooldownReduction, entities.EffectGameBoost, entities.EffectLossProtection,
		entities.EffectFragmentBoost, entities.EffectLuckBoost, entities.EffectCraftingDiscount:
		return 24 * time.Hour, true
	case entities.EffectCosmetic:
		return 0, true
	}
	return 0, false
}

// DiscountRecipe scales fragment requirements down by an active crafting
// discount. The coin cost is unchanged.
func DiscountRecipe(recipe *entities.Recipe, discount float64) *entities.Recipe {
	if discount <= 0 {
		return recipe
	}
	if discount > 1 {
		discount = 1
	}
	out := *recipe
	for i, need := range out.Fragments {
		out.Fragments[i] = need - int64(float64(need)*discount)
	}
	return &out
}
