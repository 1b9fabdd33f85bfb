package inventory

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

var (
	ErrItemNotFound   = types.NewError(types.ErrNotFound, "item not found")
	ErrRecipeNotFound = types.NewError(types.ErrNotFound, "recipe not found")
)

// ItemFilter narrows catalog listings. A nil Premium lists both kinds.
type ItemFilter struct {
	Premium *bool
	Rarity  string
}

// Purchase is a paid inventory increment
type Purchase struct {
	AccountID string
	Item      *entities.ShopItem
	Quantity  int
	UnitPrice int64
	Now       time.Time
}

// Total returns what the purchase debits
func (p Purchase) Total() int64 {
	return p.UnitPrice * int64(p.Quantity)
}

// CraftReceipt describes an applied recipe
type CraftReceipt struct {
	Recipe      *entities.Recipe
	Transaction *entities.Transaction // nil when the recipe costs no coins
	Fragments   entities.FragmentSet  // holdings after the craft
}

// Repository defines the interface for items, inventories, fragments and recipes
type Repository interface {
	// SeedItems inserts catalog items whose names are not present yet and returns how many were added
	SeedItems(ctx context.Context, items []entities.ShopItem) (int, error)

	// GetItem retrieves a catalog item
	GetItem(ctx context.Context, id int64) (*entities.ShopItem, error)

	// GetItemByName retrieves a catalog item by its unique name
	GetItemByName(ctx context.Context, name string) (*entities.ShopItem, error)

	// ListItems returns active catalog items ordered by price
	ListItems(ctx context.Context, filter ItemFilter) ([]*entities.ShopItem, error)

	// Purchase debits the total and increments the inventory in one transaction
	Purchase(ctx context.Context, p Purchase) (*entities.Transaction, error)

	// Inventory returns an account's items
	Inventory(ctx context.Context, accountID string) ([]*entities.InventoryEntry, error)

	// Activate marks a held item active until expiresAt (nil for no expiry)
	Activate(ctx context.Context, accountID string, itemID int64, expiresAt *time.Time) error

	// ActiveEffect returns the strongest unexpired active value of an effect, or 0
	ActiveEffect(ctx context.Context, accountID string, effect entities.ItemEffect, now time.Time) (float64, error)

	// Fragments returns an account's fragment holdings
	Fragments(ctx context.Context, accountID string) (entities.FragmentSet, error)

	// GrantFragments adds fragments and returns the new holdings
	GrantFragments(ctx context.Context, accountID string, grant entities.FragmentSet) (entities.FragmentSet, error)

	// SeedRecipes inserts recipes whose names are not present yet and returns how many were added
	SeedRecipes(ctx context.Context, recipes []entities.Recipe) (int, error)

	// GetRecipe retrieves a recipe
	GetRecipe(ctx context.Context, id int64) (*entities.Recipe, error)

	// ListRecipes returns every recipe
	ListRecipes(ctx context.Context) ([]*entities.Recipe, error)

	// Craft validates every requirement and then applies the recipe, all in one transaction
	Craft(ctx context.Context, accountID string, recipe *entities.Recipe, reason string, now time.Time) (*CraftReceipt, error)

	// DailyOffers returns the unexpired daily shop offers ordered by price
	DailyOffers(ctx context.Context, now time.Time) ([]*entities.DailyOffer, error)

	// ReplaceDailyOffers swaps the whole daily shop rotation
	ReplaceDailyOffers(ctx context.Context, offers []entities.DailyOffer) error
}
