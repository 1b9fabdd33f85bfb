package inventory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db/dbtest"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

type SQLiteRepositoryTestSuite struct {
	suite.Suite
	ctx    context.Context
	conn   *sql.DB
	repo   *SQLiteRepository
	now    time.Time
	potion *entities.ShopItem
	bag    *entities.ShopItem
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositoryTestSuite))
}

func (s *SQLiteRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.conn = dbtest.Open(s.T())
	s.repo = NewSQLiteRepository(s.conn)
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	added, err := s.repo.SeedItems(s.ctx, []entities.ShopItem{
		{Name: "XP Potion", Price: 300, Type: entities.ItemTypeBoost, Effect: entities.EffectXPBoost, EffectValue: 1.5, Active: true, Rarity: "comum"},
		{Name: "Small Bag", Price: 500, Type: entities.ItemTypeUpgrade, Effect: entities.EffectInventorySlots, EffectValue: 5, Active: true, Rarity: "comum"},
		{Name: "Crown", Price: 9000, Type: entities.ItemTypeCosmetic, Effect: entities.EffectCosmetic, Active: true, PremiumOnly: true, Rarity: "lendário"},
	})
	s.Require().NoError(err)
	s.Require().Equal(3, added)

	s.potion, err = s.repo.GetItemByName(s.ctx, "XP Potion")
	s.Require().NoError(err)
	s.bag, err = s.repo.GetItemByName(s.ctx, "Small Bag")
	s.Require().NoError(err)
}

func (s *SQLiteRepositoryTestSuite) TestSeedItemsIsIdempotent() {
	added, err := s.repo.SeedItems(s.ctx, []entities.ShopItem{{Name: "XP Potion", Price: 1, Type: entities.ItemTypeBoost, Active: true}})
	s.Require().NoError(err)
	s.Zero(added)

	item, err := s.repo.GetItem(s.ctx, s.potion.ID)
	s.Require().NoError(err)
	s.Equal(int64(300), item.Price, "existing rows are not overwritten")

	_, err = s.repo.GetItem(s.ctx, 999)
	s.True(types.IsCode(err, types.ErrNotFound))
}

func (s *SQLiteRepositoryTestSuite) TestListItemsFilters() {
	all, err := s.repo.ListItems(s.ctx, ItemFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal("XP Potion", all[0].Name, "ordered by price")

	premium := true
	only, err := s.repo.ListItems(s.ctx, ItemFilter{Premium: &premium})
	s.Require().NoError(err)
	s.Require().Len(only, 1)
	s.True(only[0].PremiumOnly)

	legendary, err := s.repo.ListItems(s.ctx, ItemFilter{Rarity: "lendário"})
	s.Require().NoError(err)
	s.Len(legendary, 1)
}

func (s *SQLiteRepositoryTestSuite) TestPurchaseDebitsAndStacks() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 1000, s.now)

	t, err := s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 2, UnitPrice: 300, Now: s.now})
	s.Require().NoError(err)
	s.Equal(int64(-600), t.Amount)
	s.Equal("Purchase of 2x XP Potion", t.Reason)

	_, err = s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 1, UnitPrice: 300, Now: s.now})
	s.Require().NoError(err)

	inv, err := s.repo.Inventory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(inv, 1)
	s.Equal(3, inv[0].Quantity)
	s.Equal(int64(100), dbtest.Balance(s.T(), s.conn, "u1"))
	dbtest.AssertReconciled(s.T(), s.conn, "u1")
}

func (s *SQLiteRepositoryTestSuite) TestPurchaseInsufficientFundsLeavesNothing() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 100, s.now)

	_, err := s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 1, UnitPrice: 300, Now: s.now})
	s.True(types.IsCode(err, types.ErrInsufficientFunds))

	inv, err := s.repo.Inventory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(inv)
	s.Equal(1, dbtest.CountTransactions(s.T(), s.conn, "u1", ""))
}

func (s *SQLiteRepositoryTestSuite) TestPurchaseUpgradeRaisesCapacity() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 1000, s.now)

	_, err := s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.bag, Quantity: 1, UnitPrice: 500, Now: s.now})
	s.Require().NoError(err)

	var capacity int
	s.Require().NoError(s.conn.QueryRow(`SELECT inventory_capacity FROM users WHERE user_id = 'u1'`).Scan(&capacity))
	s.Equal(entities.DefaultInventoryCapacity+5, capacity)
}

func (s *SQLiteRepositoryTestSuite) TestPurchaseRefusedWhenInventoryFull() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 1000, s.now)
	_, err := s.conn.Exec(`UPDATE users SET inventory_capacity = 1 WHERE user_id = 'u1'`)
	s.Require().NoError(err)

	_, err = s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 1, UnitPrice: 300, Now: s.now})
	s.Require().NoError(err)

	_, err = s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.bag, Quantity: 1, UnitPrice: 500, Now: s.now})
	s.True(types.IsCode(err, types.ErrLimitReached))
	s.Equal(int64(700), dbtest.Balance(s.T(), s.conn, "u1"), "the debit rolled back with the insert")

	_, err = s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 1, UnitPrice: 300, Now: s.now})
	s.NoError(err, "stacking a held item needs no new slot")
}

func (s *SQLiteRepositoryTestSuite) TestActivateAndActiveEffect() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 1000, s.now)

	err := s.repo.Activate(s.ctx, "u1", s.potion.ID, nil)
	s.True(types.IsCode(err, types.ErrNotFound), "cannot activate an item not held")

	_, err = s.repo.Purchase(s.ctx, Purchase{AccountID: "u1", Item: s.potion, Quantity: 1, UnitPrice: 300, Now: s.now})
	s.Require().NoError(err)

	value, err := s.repo.ActiveEffect(s.ctx, "u1", entities.EffectXPBoost, s.now)
	s.Require().NoError(err)
	s.Zero(value, "bought but not active")

	expires := s.now.Add(time.Hour)
	s.Require().NoError(s.repo.Activate(s.ctx, "u1", s.potion.ID, &expires))

	value, err = s.repo.ActiveEffect(s.ctx, "u1", entities.EffectXPBoost, s.now)
	s.Require().NoError(err)
	s.Equal(1.5, value)

	value, err = s.repo.ActiveEffect(s.ctx, "u1", entities.EffectXPBoost, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Zero(value, "expired")
}

func (s *SQLiteRepositoryTestSuite) TestGrantFragments() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 0, s.now)

	held, err := s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{}.With(entities.TierCommon, 3).With(entities.TierEpic, 1))
	s.Require().NoError(err)
	s.Equal(int64(3), held.Get(entities.TierCommon))

	held, err = s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{}.With(entities.TierCommon, 2))
	s.Require().NoError(err)
	s.Equal(entities.FragmentSet{5, 0, 0, 1, 0}, held)

	var key string
	s.Require().NoError(s.conn.QueryRow(`SELECT tier FROM fragments WHERE user_id = 'u1' AND quantity = 1`).Scan(&key))
	s.Equal("épico", key)

	_, err = s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{-1})
	s.True(types.IsCode(err, types.ErrInvalidArgument))
}

func (s *SQLiteRepositoryTestSuite) seedRecipe(fragments entities.FragmentSet, cost int64) *entities.Recipe {
	_, err := s.repo.SeedRecipes(s.ctx, []entities.Recipe{{Name: "Brew", ResultItemID: s.potion.ID, Fragments: fragments, CoinCost: cost}})
	s.Require().NoError(err)
	recipes, err := s.repo.ListRecipes(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(recipes, 1)
	return recipes[0]
}

func (s *SQLiteRepositoryTestSuite) TestCraftAppliesEverything() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 2500, s.now)
	recipe := s.seedRecipe(entities.FragmentSet{10, 8, 4, 1, 0}, 1500)
	_, err := s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{12, 8, 4, 1, 0})
	s.Require().NoError(err)

	receipt, err := s.repo.Craft(s.ctx, "u1", recipe, "Crafting: Brew", s.now)
	s.Require().NoError(err)
	s.Equal(entities.FragmentSet{2, 0, 0, 0, 0}, receipt.Fragments)
	s.Require().NotNil(receipt.Transaction)
	s.Equal(int64(-1500), receipt.Transaction.Amount)
	s.Equal(entities.TransactionTypeCraft, receipt.Transaction.Type)

	held, err := s.repo.Fragments(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(receipt.Fragments, held)

	inv, err := s.repo.Inventory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(inv, 1)
	s.Equal(s.potion.ID, inv[0].Item.ID)
	dbtest.AssertReconciled(s.T(), s.conn, "u1")
}

func (s *SQLiteRepositoryTestSuite) TestCraftShortOneTierChangesNothing() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 5000, s.now)
	recipe := s.seedRecipe(entities.FragmentSet{10, 8, 4, 1, 0}, 1500)
	start := entities.FragmentSet{20, 20, 3, 5, 0}
	_, err := s.repo.GrantFragments(s.ctx, "u1", start)
	s.Require().NoError(err)

	_, err = s.repo.Craft(s.ctx, "u1", recipe, "Crafting: Brew", s.now)
	s.True(types.IsCode(err, types.ErrInsufficientResources))
	s.Contains(err.Error(), "1 rare")

	held, err := s.repo.Fragments(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(start, held)
	s.Equal(int64(5000), dbtest.Balance(s.T(), s.conn, "u1"))
	s.Zero(dbtest.CountTransactions(s.T(), s.conn, "u1", string(entities.TransactionTypeCraft)))
}

func (s *SQLiteRepositoryTestSuite) TestCraftShortCoinsChangesNothing() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 100, s.now)
	recipe := s.seedRecipe(entities.FragmentSet{1, 0, 0, 0, 0}, 1500)
	_, err := s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{1})
	s.Require().NoError(err)

	_, err = s.repo.Craft(s.ctx, "u1", recipe, "Crafting: Brew", s.now)
	s.True(types.IsCode(err, types.ErrInsufficientResources))
	s.Contains(err.Error(), "1400 coins")

	held, _ := s.repo.Fragments(s.ctx, "u1")
	s.Equal(int64(1), held.Get(entities.TierCommon))
	dbtest.AssertReconciled(s.T(), s.conn, "u1")
}

func (s *SQLiteRepositoryTestSuite) TestCraftWithoutCoinCostRecordsNoTransaction() {
	dbtest.SeedAccount(s.T(), s.conn, "u1", 0, s.now)
	recipe := s.seedRecipe(entities.FragmentSet{2}, 0)
	_, err := s.repo.GrantFragments(s.ctx, "u1", entities.FragmentSet{2})
	s.Require().NoError(err)

	receipt, err := s.repo.Craft(s.ctx, "u1", recipe, "Crafting: Brew", s.now)
	s.Require().NoError(err)
	s.Nil(receipt.Transaction)
	s.Zero(dbtest.CountTransactions(s.T(), s.conn, "u1", ""))
}

func (s *SQLiteRepositoryTestSuite) TestDailyOffersExpire() {
	midnight := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	err := s.repo.ReplaceDailyOffers(s.ctx, []entities.DailyOffer{
		{Item: *s.bag, DiscountPercent: 20, ExpiresAt: midnight},
		{Item: *s.potion, DiscountPercent: 10, ExpiresAt: midnight},
	})
	s.Require().NoError(err)

	offers, err := s.repo.DailyOffers(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(offers, 2)
	s.Equal("XP Potion", offers[0].Item.Name)
	s.Equal(int64(270), offers[0].Price())
	s.True(offers[0].ExpiresAt.Equal(midnight))

	offers, err = s.repo.DailyOffers(s.ctx, midnight)
	s.Require().NoError(err)
	s.Empty(offers)

	s.Require().NoError(s.repo.ReplaceDailyOffers(s.ctx, nil))
	offers, _ = s.repo.DailyOffers(s.ctx, s.now)
	s.Empty(offers)
}
