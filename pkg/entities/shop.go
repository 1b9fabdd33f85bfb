package entities

import "time"

// ItemType groups shop items by how they are used
type ItemType string

const (
	ItemTypeUpgrade    ItemType = "upgrade"
	ItemTypeBoost      ItemType = "boost"
	ItemTypeProtection ItemType = "protection"
	ItemTypeCosmetic   ItemType = "cosmetic"
)

// ItemEffect names the rule an item changes
type ItemEffect string

const (
	EffectCoinLimit         ItemEffect = "coin_limit"
	EffectInventorySlots    ItemEffect = "inventory_slots"
	EffectDailyBoost        ItemEffect = "daily_boost"
	EffectXPBoost           ItemEffect = "xp_boost"
	EffectCooldownReduction ItemEffect = "cooldown_reduction"
	EffectGameBoost         ItemEffect = "game_boost"
	EffectLossProtection    ItemEffect = "loss_protection"
	EffectFragmentBoost     ItemEffect = "fragment_boost"
	EffectLuckBoost         ItemEffect = "luck_boost"
	EffectCraftingDiscount  ItemEffect = "crafting_discount"
	EffectCosmetic          ItemEffect = "cosmetic"
)

// ShopItem is a catalog entry
type ShopItem struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	Type        ItemType
	Effect      ItemEffect
	EffectValue float64
	ImageURL    string
	Active      bool
	PremiumOnly bool
	Rarity      string
}

// InventoryEntry is an account's holding of one item
type InventoryEntry struct {
	AccountID   string
	Item        ShopItem
	Quantity    int
	Active      bool
	ExpiresAt   *time.Time
	PurchasedAt time.Time
}

// Recipe turns fragments and coins into one item
type Recipe struct {
	ID           int64
	Name         string
	Description  string
	ResultItemID int64
	Fragments    FragmentSet
	CoinCost     int64
}

// DailyOffer is a discounted item in today's shop rotation
type DailyOffer struct {
	Item            ShopItem
	DiscountPercent int
	ExpiresAt       time.Time
}

// Price returns the discounted unit price
func (o DailyOffer) Price() int64 {
	return DiscountedPrice(o.Item.Price, o.DiscountPercent)
}

// DiscountedPrice applies a percent discount, rounding down
func DiscountedPrice(price int64, percent int) int64 {
	if percent <= 0 {
		return price
	}
	if percent >= 100 {
		return 0
	}
	return price * int64(100-percent) / 100
}
