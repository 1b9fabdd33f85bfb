package shop

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db/dbtest"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	"github.com/19722009abc/HelpyBot/pkg/repositories/inventory"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	conn     *sql.DB
	inv      *inventory.SQLiteRepository
	accounts *ledgerRepo.SQLiteRepository
	src      *rng.Scripted
	sink     *analytics.MemorySink
	svc      *Service
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.conn = dbtest.Open(s.T())
	s.inv = inventory.NewSQLiteRepository(s.conn)
	s.accounts = ledgerRepo.NewSQLiteRepository(s.conn)
	s.src = rng.NewScripted(nil, nil)
	s.sink = analytics.NewMemorySink()
	s.svc = NewService(s.inv, s.accounts, s.src, analytics.NewPublisher(s.sink))
	s.now = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

	s.Require().NoError(s.svc.SeedDefaults(s.ctx))
}

func (s *ServiceTestSuite) item(name string) *entities.ShopItem {
	it, err := s.inv.GetItemByName(s.ctx, name)
	s.Require().NoError(err)
	return it
}

// pinOffers stores a rotation so Buy never needs rng draws
func (s *ServiceTestSuite) pinOffers(offers ...entities.DailyOffer) {
	s.Require().NoError(s.inv.ReplaceDailyOffers(s.ctx, offers))
}

func (s *ServiceTestSuite) TestSeedDefaultsIsIdempotent() {
	s.Require().NoError(s.svc.SeedDefaults(s.ctx))

	items, err := s.svc.Catalog(s.ctx, inventory.ItemFilter{})
	s.Require().NoError(err)
	s.Len(items, len(DefaultItems()))

	recipes, err := s.svc.Recipes(s.ctx)
	s.Require().NoError(err)
	s.Len(recipes, 16)
}

func (s *ServiceTestSuite) TestBuyAtListPrice() {
	potion := s.item("XP Boost I")
	s.pinOffers(entities.DailyOffer{Item: *s.item("Backpack I"), DiscountPercent: 10, ExpiresAt: NextMidnight(s.now)})
	dbtest.SeedAccount(s.T(), s.conn, "u1", 10000, s.now)

	receipt, err := s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", Username: "ana", ItemID: potion.ID, Quantity: 2, Now: s.now})
	s.Require().NoError(err)
	s.Equal(int64(7000), receipt.Total)
	s.Zero(receipt.DiscountPercent)
	s.Equal(int64(3000), receipt.Balance)
	s.Len(s.sink.Transactions(), 1)
	dbtest.AssertReconciled(s.T(), s.conn, "u1")
}

func (s *ServiceTestSuite) TestBuyAppliesDailyDiscount() {
	bag := s.item("Backpack I")
	s.pinOffers(entities.DailyOffer{Item: *bag, DiscountPercent: 20, ExpiresAt: NextMidnight(s.now)})
	dbtest.SeedAccount(s.T(), s.conn, "u1", 10000, s.now)

	receipt, err := s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: bag.ID, Now: s.now})
	s.Require().NoError(err)
	s.Equal(1, receipt.Quantity)
	s.Equal(int64(4000), receipt.UnitPrice)
	s.Equal(20, receipt.DiscountPercent)
	s.Equal(int64(6000), receipt.Balance)
}

func (s *ServiceTestSuite) TestBuyRules() {
	crown := s.item("Title: Immortal")
	s.pinOffers(entities.DailyOffer{Item: *s.item("Backpack I"), DiscountPercent: 10, ExpiresAt: NextMidnight(s.now)})
	dbtest.SeedAccount(s.T(), s.conn, "u1", 100000, s.now)

	_, err := s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: crown.ID, Now: s.now})
	s.True(types.IsCode(err, types.ErrPremiumRequired))

	_, err = s.accounts.UpdatePremium(s.ctx, "u1", "premium", func(*time.Time) time.Time { return s.now.Add(time.Hour) })
	s.Require().NoError(err)
	_, err = s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: crown.ID, Now: s.now})
	s.NoError(err)

	_, err = s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: 9999, Now: s.now})
	s.True(types.IsCode(err, types.ErrNotFound))

	_, err = s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: crown.ID, Quantity: MaxQuantity + 1, Now: s.now})
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	_, err = s.svc.Buy(s.ctx, BuyRequest{AccountID: "broke", ItemID: s.item("Green Aura").ID, Now: s.now})
	s.True(types.IsCode(err, types.ErrInsufficientFunds))
}

func (s *ServiceTestSuite) TestRotateDailyShop() {
	s.src.PushInts(0, 0, 0, 0, 0, 1, 2, 4)

	offers, err := s.svc.DailyShop(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(offers, DailyShopSize)

	discounts := map[int]bool{}
	for _, o := range offers {
		s.False(o.Item.PremiumOnly)
		s.True(o.ExpiresAt.Equal(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))
		discounts[o.DiscountPercent] = true
	}
	s.Equal(map[int]bool{10: true, 15: true, 20: true, 30: true}, discounts)

	again, err := s.svc.DailyShop(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(again, DailyShopSize)
	ints, _ := s.src.Remaining()
	s.Zero(ints, "an unexpired rotation is reused")
}

func (s *ServiceTestSuite) TestCraftAllOrNothing() {
	recipes, err := s.svc.Recipes(s.ctx)
	s.Require().NoError(err)
	var recipe *entities.Recipe
	for _, r := range recipes {
		if r.Name == "Craft XP Boost I" {
			recipe = r
		}
	}
	s.Require().NotNil(recipe)
	s.Equal(entities.FragmentSet{15, 10, 5, 0, 0}, recipe.Fragments)

	dbtest.SeedAccount(s.T(), s.conn, "u1", 5000, s.now)
	_, err = s.inv.GrantFragments(s.ctx, "u1", entities.FragmentSet{15, 10, 4, 0, 0})
	s.Require().NoError(err)

	_, err = s.svc.Craft(s.ctx, "u1", "ana", recipe.ID, s.now)
	s.True(types.IsCode(err, types.ErrInsufficientResources))
	held, _ := s.svc.Fragments(s.ctx, "u1")
	s.Equal(entities.FragmentSet{15, 10, 4, 0, 0}, held)
	s.Equal(int64(5000), dbtest.Balance(s.T(), s.conn, "u1"))

	_, err = s.inv.GrantFragments(s.ctx, "u1", entities.FragmentSet{0, 0, 1, 0, 0})
	s.Require().NoError(err)
	result, err := s.svc.Craft(s.ctx, "u1", "ana", recipe.ID, s.now)
	s.Require().NoError(err)
	s.Equal("XP Boost I", result.Item.Name)
	s.True(result.Fragments.IsZero())
	s.Equal(int64(3000), dbtest.Balance(s.T(), s.conn, "u1"))
	dbtest.AssertReconciled(s.T(), s.conn, "u1")
}

func (s *ServiceTestSuite) TestCraftingKitLowersRequirements() {
	kit := s.item("Crafting Kit I")
	s.pinOffers(entities.DailyOffer{Item: *s.item("Backpack I"), DiscountPercent: 10, ExpiresAt: NextMidnight(s.now)})
	dbtest.SeedAccount(s.T(), s.conn, "u1", 10000, s.now)

	_, err := s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: kit.ID, Now: s.now})
	s.Require().NoError(err)
	expires, err := s.svc.UseItem(s.ctx, "u1", kit.ID, s.now)
	s.Require().NoError(err)
	s.Require().NotNil(expires)
	s.Equal(s.now.Add(24*time.Hour), *expires)

	recipes, _ := s.svc.Recipes(s.ctx)
	recipe := recipes[0]
	_, err = s.inv.GrantFragments(s.ctx, "u1", DiscountRecipe(recipe, 0.1).Fragments)
	s.Require().NoError(err)

	result, err := s.svc.Craft(s.ctx, "u1", "ana", recipe.ID, s.now)
	s.Require().NoError(err)
	s.True(result.Fragments.IsZero())
}

func (s *ServiceTestSuite) TestUseUpgradeIsRejected() {
	wallet := s.item("Wallet Expansion I")
	_, err := s.svc.UseItem(s.ctx, "u1", wallet.ID, s.now)
	s.True(types.IsCode(err, types.ErrInvalidState))
}

func (s *ServiceTestSuite) TestGrantFragmentsWithCollector() {
	collector := s.item("Fragment Collector III")
	s.pinOffers(entities.DailyOffer{Item: *s.item("Backpack I"), DiscountPercent: 10, ExpiresAt: NextMidnight(s.now)})
	dbtest.SeedAccount(s.T(), s.conn, "u1", 50000, s.now)

	granted, err := s.svc.GrantFragments(s.ctx, "u1", entities.FragmentSet{1, 2, 0, 0, 0}, s.now)
	s.Require().NoError(err)
	s.Equal(entities.FragmentSet{1, 2, 0, 0, 0}, granted)

	_, err = s.svc.Buy(s.ctx, BuyRequest{AccountID: "u1", ItemID: collector.ID, Now: s.now})
	s.Require().NoError(err)
	_, err = s.svc.UseItem(s.ctx, "u1", collector.ID, s.now)
	s.Require().NoError(err)

	granted, err = s.svc.GrantFragments(s.ctx, "u1", entities.FragmentSet{1, 2, 0, 0, 0}, s.now)
	s.Require().NoError(err)
	s.Equal(entities.FragmentSet{2, 4, 0, 0, 0}, granted)

	held, _ := s.svc.Fragments(s.ctx, "u1")
	s.Equal(entities.FragmentSet{3, 6, 0, 0, 0}, held)
}

func TestDiscountRecipe(t *testing.T) {
	recipe := &entities.Recipe{Fragments: entities.FragmentSet{15, 10, 5, 1, 0}, CoinCost: 2000}

	assert.Same(t, recipe, DiscountRecipe(recipe, 0))
	out := DiscountRecipe(recipe, 0.25)
	assert.Equal(t, entities.FragmentSet{12, 8, 4, 1, 0}, out.Fragments)
	assert.Equal(t, int64(2000), out.CoinCost)
	assert.Equal(t, entities.FragmentSet{15, 10, 5, 1, 0}, recipe.Fragments, "input untouched")
	assert.True(t, DiscountRecipe(recipe, 2).Fragments.IsZero())
}

func TestNextMidnight(t *testing.T) {
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), NextMidnight(time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), NextMidnight(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
}

func TestDefaultItemsShape(t *testing.T) {
	items := DefaultItems()
	names := map[string]bool{}
	for _, it := range items {
		assert.False(t, names[it.Name], "duplicate %s", it.Name)
		names[it.Name] = true
		_, ok := entities.ParseFragmentTier(it.Rarity)
		assert.True(t, ok, "rarity of %s", it.Name)
	}
	assert.True(t, names["Wallet Expansion V"])
}
