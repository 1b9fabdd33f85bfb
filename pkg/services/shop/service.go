// Package shop sells catalog items, runs the daily discount rotation and
// turns fragments into items.
package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	"github.com/19722009abc/HelpyBot/pkg/repositories/inventory"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

// MaxQuantity caps a single purchase
const MaxQuantity = 100

// BuyRequest asks for quantity units of an item
type BuyRequest struct {
	AccountID string
	Username  string
	ItemID    int64
	Quantity  int
	Now       time.Time
}

// Receipt is a completed purchase
type Receipt struct {
	Item            *entities.ShopItem
	Quantity        int
	UnitPrice       int64
	DiscountPercent int
	Total           int64
	Balance         int64
	Transaction     *entities.Transaction
}

// CraftResult is a completed craft
type CraftResult struct {
	Recipe      *entities.Recipe
	Item        *entities.ShopItem
	Transaction *entities.Transaction
	Fragments   entities.FragmentSet
}

// Service sells items and crafts recipes
type Service struct {
	repo      inventory.Repository
	accounts  ledgerRepo.Repository
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new shop service
func NewService(repo inventory.Repository, accounts ledgerRepo.Repository, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("shop"),
	}
}

// SeedDefaults fills an empty catalog and adds the default recipes. It is
// safe to run on every start.
func (s *Service) SeedDefaults(ctx context.Context) error {
	if _, err := s.repo.SeedItems(ctx, DefaultItems()); err != nil {
		return fmt.Errorf("failed to seed items: %w", err)
	}

	items, err := s.repo.ListItems(ctx, inventory.ItemFilter{})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	added, err := s.repo.SeedRecipes(ctx, DefaultRecipes(items))
	if err != nil {
		return fmt.Errorf("failed to seed recipes: %w", err)
	}
	if added > 0 {
		s.logger.Info("Seeded %d crafting recipes", added)
	}
	return nil
}

// Catalog lists the active items
func (s *Service) Catalog(ctx context.Context, filter inventory.ItemFilter) ([]*entities.ShopItem, error) {
	return s.repo.ListItems(ctx, filter)
}

// Buy debits the price (discounted when the item is in today's rotation) and
// adds the item to the inventory in one transaction.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (*Receipt, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > MaxQuantity {
		return nil, types.Errorf(types.ErrInvalidArgument, "quantity must be between 1 and %d", MaxQuantity)
	}

	acct, err := s.accounts.EnsureAccount(ctx, req.AccountID, req.Username, req.Now)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, inventory.ErrItemNotFound
	}
	if item.PremiumOnly && !acct.PremiumActive(req.Now) {
		return nil, types.Errorf(types.ErrPremiumRequired, "%s is only sold to premium members", item.Name)
	}

	receipt := &Receipt{Item: item, Quantity: req.Quantity, UnitPrice: item.Price, Balance: acct.Balance}
	offers, err := s.DailyShop(ctx, req.Now)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		if o.Item.ID == item.ID {
			receipt.UnitPrice = o.Price()
			receipt.DiscountPercent = o.DiscountPercent
			break
		}
	}
	receipt.Total = receipt.UnitPrice * int64(req.Quantity)

	t, err := s.repo.Purchase(ctx, inventory.Purchase{
		AccountID: req.AccountID,
		Item:      item,
		Quantity:  req.Quantity,
		UnitPrice: receipt.UnitPrice,
		Now:       req.Now,
	})
	if err != nil {
		return nil, err
	}
	if t != nil {
		receipt.Transaction = t
		receipt.Balance = t.BalanceAfter
		s.publisher.Transactions(ctx, t)
	}

	s.logger.Info("%s bought %dx %s for %d", req.AccountID, req.Quantity, item.Name, receipt.Total)
	return receipt, nil
}

// Recipes lists every recipe
func (s *Service) Recipes(ctx context.Context) ([]*entities.Recipe, error) {
	return s.repo.ListRecipes(ctx)
}

// Craft applies a recipe all-or-nothing. An active crafting kit lowers the
// fragment requirements.
func (s *Service) Craft(ctx context.Context, accountID, username string, recipeID int64, now time.Time) (*CraftResult, error) {
	if _, err := s.accounts.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	recipe, err := s.repo.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, recipe.ResultItemID)
	if err != nil {
		return nil, err
	}

	discount, err := s.repo.ActiveEffect(ctx, accountID, entities.EffectCraftingDiscount, now)
	if err != nil {
		return nil, err
	}
	effective := DiscountRecipe(recipe, discount)

	receipt, err := s.repo.Craft(ctx, accountID, effective, "Crafting: "+item.Name, now)
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, receipt.Transaction)

	s.logger.Info("%s crafted %s", accountID, item.Name)
	return &CraftResult{
		Recipe:      effective,
		Item:        item,
		Transaction: receipt.Transaction,
		Fragments:   receipt.Fragments,
	}, nil
}

// Fragments returns an account's fragment holdings
func (s *Service) Fragments(ctx context.Context, accountID string) (entities.FragmentSet, error) {
	return s.repo.Fragments(ctx, accountID)
}

// GrantFragments adds fragment drops to an account. An active fragment
// collector multiplies every tier, rounding down.
func (s *Service) GrantFragments(ctx context.Context, accountID string, grant entities.FragmentSet, now time.Time) (entities.FragmentSet, error) {
	if grant.IsZero() {
		return grant, nil
	}

	boost, err := s.repo.ActiveEffect(ctx, accountID, entities.EffectFragmentBoost, now)
	if err != nil {
		return grant, err
	}
	if boost > 1 {
		for i, q := range grant {
			grant[i] = int64(float64(q) * boost)
		}
	}

	if _, err := s.repo.GrantFragments(ctx, accountID, grant); err != nil {
		return grant, err
	}
	return grant, nil
}

// Inventory returns an account's items
func (s *Service) Inventory(ctx context.Context, accountID string) ([]*entities.InventoryEntry, error) {
	return s.repo.Inventory(ctx, accountID)
}

// UseItem activates a held item for its effect's period and returns the
// expiry, nil when it never expires.
func (s *Service) UseItem(ctx context.Context, accountID string, itemID int64, now time.Time) (*time.Time, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	period, ok := ActivationPeriod(item.Effect)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidState, "%s is applied when bought", item.Name)
	}

	var expires *time.Time
	if period > 0 {
		t := now.Add(period)
		expires = &t
	}
	if err := s.repo.Activate(ctx, accountID, itemID, expires); err != nil {
		return nil, err
	}
	return expires, nil
}

// DailyShop returns today's offers, rotating them when the last set expired
func (s *Service) DailyShop(ctx context.Context, now time.Time) ([]*entities.DailyOffer, error) {
	offers, err := s.repo.DailyOffers(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(offers) > 0 {
		return offers, nil
	}
	return s.RotateDailyShop(ctx, now)
}

// RotateDailyShop draws DailyShopSize distinct non-premium items, each with a
// discount from DailyDiscounts, expiring at the next midnight.
func (s *Service) RotateDailyShop(ctx context.Context, now time.Time) ([]*entities.DailyOffer, error) {
	standard := false
	items, err := s.repo.ListItems(ctx, inventory.ItemFilter{Premium: &standard})
	if err != nil {
		return nil, err
	}

	n := DailyShopSize
	if len(items) < n {
		n = len(items)
	}
	// partial Fisher-Yates
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(items)-i)
		items[i], items[j] = items[j], items[i]
	}

	expires := NextMidnight(now)
	offers := make([]entities.DailyOffer, n)
	for i := 0; i < n; i++ {
		offers[i] = entities.DailyOffer{
			Item:            *items[i],
			DiscountPercent: DailyDiscounts[s.rng.Intn(len(DailyDiscounts))],
			ExpiresAt:       expires,
		}
	}

	if err := s.repo.ReplaceDailyOffers(ctx, offers); err != nil {
		return nil, err
	}
	s.logger.Info("Daily shop rotated with %d offers until %s", n, expires.Format(time.RFC3339))

	return s.repo.DailyOffers(ctx, now)
}

// NextMidnight returns the start of the day after now, in now's location
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
