package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

const itemColumns = `si.id, si.name, si.description, si.price, si.type, si.effect, si.effect_value,
	si.image_url, si.active, si.premium_only, si.rarity`

const recipeColumns = `id, name, description, result_item_id, common_fragments, uncommon_fragments,
	rare_fragments, epic_fragments, legendary_fragments, coin_cost`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SQLiteRepository implements Repository on the shared SQLite database
type SQLiteRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(conn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:     conn,
		logger: logging.Default.With("inventory"),
	}
}

// itemScan collects the destinations for itemColumns
type itemScan struct {
	item             entities.ShopItem
	active, premOnly int64
}

func (s *itemScan) dest() []interface{} {
	it := &s.item
	return []interface{}{
		&it.ID, &it.Name, &it.Description, &it.Price, &it.Type, &it.Effect, &it.EffectValue,
		&it.ImageURL, &s.active, &s.premOnly, &it.Rarity,
	}
}

func (s *itemScan) result() *entities.ShopItem {
	it := s.item
	it.Active = db.Bool(s.active)
	it.PremiumOnly = db.Bool(s.premOnly)
	return &it
}

// SeedItems inserts catalog items whose names are not present yet
func (r *SQLiteRepository) SeedItems(ctx context.Context, items []entities.ShopItem) (int, error) {
	added := 0
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, it := range items {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO shop_items (name, description, price, type, effect, effect_value, image_url, active, premium_only, rarity)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(name) DO NOTHING`,
				it.Name, it.Description, it.Price, it.Type, it.Effect, it.EffectValue,
				it.ImageURL, db.Int(it.Active), db.Int(it.PremiumOnly), it.Rarity)
			if err != nil {
				return types.StorageError("seed item", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return types.StorageError("seed item", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		r.logger.Info("Seeded %d shop items", added)
	}
	return added, nil
}

// GetItem retrieves a catalog item
func (r *SQLiteRepository) GetItem(ctx context.Context, id int64) (*entities.ShopItem, error) {
	return r.getItem(ctx, `SELECT `+itemColumns+` FROM shop_items si WHERE si.id = ?`, id)
}

// GetItemByName retrieves a catalog item by its unique name
func (r *SQLiteRepository) GetItemByName(ctx context.Context, name string) (*entities.ShopItem, error) {
	return r.getItem(ctx, `SELECT `+itemColumns+` FROM shop_items si WHERE si.name = ?`, name)
}

func (r *SQLiteRepository) getItem(ctx context.Context, query string, arg interface{}) (*entities.ShopItem, error) {
	var s itemScan
	err := r.db.QueryRowContext(ctx, query, arg).Scan(s.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, types.StorageError("get item", err)
	}
	return s.result(), nil
}

// ListItems returns active catalog items ordered by price
func (r *SQLiteRepository) ListItems(ctx context.Context, filter ItemFilter) ([]*entities.ShopItem, error) {
	query := `SELECT ` + itemColumns + ` FROM shop_items si WHERE si.active = 1`
	var args []interface{}
	if filter.Premium != nil {
		query += ` AND si.premium_only = ?`
		args = append(args, db.Int(*filter.Premium))
	}
	if filter.Rarity != "" {
		query += ` AND si.rarity = ?`
		args = append(args, filter.Rarity)
	}
	query += ` ORDER BY si.price, si.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.StorageError("list items", err)
	}
	defer rows.Close()

	var items []*entities.ShopItem
	for rows.Next() {
		var s itemScan
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, types.StorageError("scan item", err)
		}
		items = append(items, s.result())
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate items", err)
	}
	return items, nil
}

// Purchase debits the total and increments the inventory in one transaction.
// Upgrades that raise the coin limit or inventory capacity apply immediately.
func (r *SQLiteRepository) Purchase(ctx context.Context, p Purchase) (*entities.Transaction, error) {
	if p.Quantity <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "quantity must be positive, got %d", p.Quantity)
	}

	var t *entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if total := p.Total(); total > 0 {
			var err error
			t, err = ledger.DebitTx(ctx, tx, ledger.Entry{
				AccountID:   p.AccountID,
				Amount:      total,
				Type:        entities.TransactionTypePurchase,
				Reason:      fmt.Sprintf("Purchase of %dx %s", p.Quantity, p.Item.Name),
				ReferenceID: strconv.FormatInt(p.Item.ID, 10),
				Timestamp:   p.Now,
			})
			if err != nil {
				return err
			}
		}

		if err := addItemTx(ctx, tx, p.AccountID, p.Item.ID, p.Quantity, p.Now); err != nil {
			return err
		}
		return applyUpgradeTx(ctx, tx, p.AccountID, p.Item, p.Quantity)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("%s bought %dx %s for %d", p.AccountID, p.Quantity, p.Item.Name, p.Total())
	return t, nil
}

// addItemTx increments a holding, refusing a new distinct item when the
// inventory is at capacity.
func addItemTx(ctx context.Context, tx *sql.Tx, accountID string, itemID int64, qty int, now time.Time) error {
	var held int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM user_inventory WHERE user_id = ? AND item_id = ?`, accountID, itemID,
	).Scan(&held)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return types.StorageError("read inventory", err)
	}

	if err == nil && held > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE user_inventory SET quantity = quantity + ?, purchase_date = ? WHERE user_id = ? AND item_id = ?`,
			qty, db.FormatTime(now), accountID, itemID)
		if err != nil {
			return types.StorageError("update inventory", err)
		}
		return nil
	}

	var distinct, capacity int
	err = tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM user_inventory WHERE user_id = ? AND quantity > 0), inventory_capacity
		FROM users WHERE user_id = ?`, accountID, accountID,
	).Scan(&distinct, &capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrAccountNotFound
	}
	if err != nil {
		return types.StorageError("read inventory capacity", err)
	}
	if distinct >= capacity {
		return types.Errorf(types.ErrLimitReached, "inventory is full (%d/%d slots)", distinct, capacity)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_inventory (user_id, item_id, quantity, active, purchase_date)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET quantity = excluded.quantity, purchase_date = excluded.purchase_date`,
		accountID, itemID, qty, db.FormatTime(now))
	if err != nil {
		return types.StorageError("insert inventory", err)
	}
	return nil
}

func applyUpgradeTx(ctx context.Context, tx *sql.Tx, accountID string, item *entities.ShopItem, qty int) error {
	var column string
	switch item.Effect {
	case entities.EffectCoinLimit:
		column = "coin_limit"
	case entities.EffectInventorySlots:
		column = "inventory_capacity"
	default:
		return nil
	}

	delta := int64(item.EffectValue) * int64(qty)
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = %s + ? WHERE user_id = ?`, column, column), delta, accountID)
	if err != nil {
		return types.StorageError("apply upgrade", err)
	}
	return nil
}

// Inventory returns an account's items, most recently acquired first
func (r *SQLiteRepository) Inventory(ctx context.Context, accountID string) ([]*entities.InventoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ui.quantity, ui.active, ui.expires_at, ui.purchase_date, `+itemColumns+`
		FROM user_inventory ui
		JOIN shop_items si ON si.id = ui.item_id
		WHERE ui.user_id = ? AND ui.quantity > 0
		ORDER BY ui.purchase_date DESC, si.id`, accountID)
	if err != nil {
		return nil, types.StorageError("query inventory", err)
	}
	defer rows.Close()

	var entries []*entities.InventoryEntry
	for rows.Next() {
		var (
			s         itemScan
			active    int64
			expiresAt sql.NullString
			purchased string
		)
		e := entities.InventoryEntry{AccountID: accountID}
		dest := append([]interface{}{&e.Quantity, &active, &expiresAt, &purchased}, s.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, types.StorageError("scan inventory", err)
		}
		e.Item = *s.result()
		e.Active = db.Bool(active)
		if e.ExpiresAt, err = db.ParseNullTime(expiresAt); err != nil {
			return nil, types.StorageError("scan inventory", err)
		}
		if e.PurchasedAt, err = db.ParseTime(purchased); err != nil {
			return nil, types.StorageError("scan inventory", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate inventory", err)
	}
	return entries, nil
}

// Activate marks a held item active until expiresAt
func (r *SQLiteRepository) Activate(ctx context.Context, accountID string, itemID int64, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_inventory SET active = 1, expires_at = ? WHERE user_id = ? AND item_id = ? AND quantity > 0`,
		db.NullTime(expiresAt), accountID, itemID)
	if err != nil {
		return types.StorageError("activate item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.StorageError("activate item", err)
	}
	if n == 0 {
		return types.Errorf(types.ErrNotFound, "item %d is not in the inventory", itemID)
	}
	return nil
}

// ActiveEffect returns the strongest unexpired active value of an effect
func (r *SQLiteRepository) ActiveEffect(ctx context.Context, accountID string, effect entities.ItemEffect, now time.Time) (float64, error) {
	var value float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(si.effect_value), 0)
		FROM user_inventory ui
		JOIN shop_items si ON si.id = ui.item_id
		WHERE ui.user_id = ? AND si.effect = ? AND ui.active = 1 AND ui.quantity > 0
		  AND (ui.expires_at IS NULL OR ui.expires_at > ?)`,
		accountID, effect, db.FormatTime(now),
	).Scan(&value)
	if err != nil {
		return 0, types.StorageError("read active effect", err)
	}
	return value, nil
}

// Fragments returns an account's fragment holdings
func (r *SQLiteRepository) Fragments(ctx context.Context, accountID string) (entities.FragmentSet, error) {
	return readFragments(ctx, r.db, accountID)
}

func readFragments(ctx context.Context, q queryer, accountID string) (entities.FragmentSet, error) {
	var set entities.FragmentSet
	rows, err := q.QueryContext(ctx, `SELECT tier, quantity FROM fragments WHERE user_id = ?`, accountID)
	if err != nil {
		return set, types.StorageError("query fragments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var qty int64
		if err := rows.Scan(&key, &qty); err != nil {
			return set, types.StorageError("scan fragments", err)
		}
		if tier, ok := entities.ParseFragmentTier(key); ok {
			set[tier] = qty
		}
	}
	if err := rows.Err(); err != nil {
		return set, types.StorageError("iterate fragments", err)
	}
	return set, nil
}

// GrantFragments adds fragments and returns the new holdings
func (r *SQLiteRepository) GrantFragments(ctx context.Context, accountID string, grant entities.FragmentSet) (entities.FragmentSet, error) {
	var holdings entities.FragmentSet
	for _, tier := range entities.FragmentTiers {
		if grant.Get(tier) < 0 {
			return holdings, types.Errorf(types.ErrInvalidArgument, "cannot grant %d %s fragments", grant.Get(tier), tier)
		}
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, tier := range entities.FragmentTiers {
			qty := grant.Get(tier)
			if qty == 0 {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fragments (user_id, tier, quantity) VALUES (?, ?, ?)
				ON CONFLICT(user_id, tier) DO UPDATE SET quantity = quantity + excluded.quantity`,
				accountID, tier.Key(), qty)
			if err != nil {
				return types.StorageError("grant fragments", err)
			}
		}

		var err error
		holdings, err = readFragments(ctx, tx, accountID)
		return err
	})
	return holdings, err
}

// SeedRecipes inserts recipes whose names are not present yet
func (r *SQLiteRepository) SeedRecipes(ctx context.Context, recipes []entities.Recipe) (int, error) {
	added := 0
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, rc := range recipes {
			f := rc.Fragments
			res, err := tx.ExecContext(ctx, `
				INSERT INTO crafting_recipes (name, description, result_item_id, common_fragments, uncommon_fragments,
					rare_fragments, epic_fragments, legendary_fragments, coin_cost)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(name) DO NOTHING`,
				rc.Name, rc.Description, rc.ResultItemID,
				f[entities.TierCommon], f[entities.TierUncommon], f[entities.TierRare], f[entities.TierEpic], f[entities.TierLegendary],
				rc.CoinCost)
			if err != nil {
				return types.StorageError("seed recipe", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return types.StorageError("seed recipe", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func scanRecipe(row rowScanner) (*entities.Recipe, error) {
	var rc entities.Recipe
	f := &rc.Fragments
	err := row.Scan(&rc.ID, &rc.Name, &rc.Description, &rc.ResultItemID,
		&f[entities.TierCommon], &f[entities.TierUncommon], &f[entities.TierRare], &f[entities.TierEpic], &f[entities.TierLegendary],
		&rc.CoinCost)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// GetRecipe retrieves a recipe
func (r *SQLiteRepository) GetRecipe(ctx context.Context, id int64) (*entities.Recipe, error) {
	rc, err := scanRecipe(r.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM crafting_recipes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, types.StorageError("get recipe", err)
	}
	return rc, nil
}

// ListRecipes returns every recipe
func (r *SQLiteRepository) ListRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM crafting_recipes ORDER BY id`)
	if err != nil {
		return nil, types.StorageError("list recipes", err)
	}
	defer rows.Close()

	var recipes []*entities.Recipe
	for rows.Next() {
		rc, err := scanRecipe(rows)
		if err != nil {
			return nil, types.StorageError("scan recipe", err)
		}
		recipes = append(recipes, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate recipes", err)
	}
	return recipes, nil
}

// CheckRequirements returns an INSUFFICIENT_RESOURCES error listing every
// shortfall, or nil when the holdings cover the recipe.
func CheckRequirements(held entities.FragmentSet, coins int64, recipe *entities.Recipe) error {
	shortfall := held.Shortfall(recipe.Fragments)

	var missing []string
	for _, tier := range entities.FragmentTiers {
		if n, ok := shortfall[tier]; ok {
			missing = append(missing, fmt.Sprintf("%d %s", n, tier))
		}
	}
	if coins < recipe.CoinCost {
		missing = append(missing, fmt.Sprintf("%d coins", recipe.CoinCost-coins))
	}
	if len(missing) == 0 {
		return nil
	}
	return types.Errorf(types.ErrInsufficientResources, "missing %s", strings.Join(missing, ", "))
}

// Craft validates fragments, coins and capacity, then deducts every tier,
// debits the coin cost and adds the produced item. Any failure rolls the
// whole transaction back.
func (r *SQLiteRepository) Craft(ctx context.Context, accountID string, recipe *entities.Recipe, reason string, now time.Time) (*CraftReceipt, error) {
	receipt := &CraftReceipt{Recipe: recipe}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		held, err := readFragments(ctx, tx, accountID)
		if err != nil {
			return err
		}

		var coins int64
		err = tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE user_id = ?`, accountID).Scan(&coins)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrAccountNotFound
		}
		if err != nil {
			return types.StorageError("read balance", err)
		}

		if err := CheckRequirements(held, coins, recipe); err != nil {
			return err
		}

		for _, tier := range entities.FragmentTiers {
			need := recipe.Fragments.Get(tier)
			if need == 0 {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE fragments SET quantity = quantity - ? WHERE user_id = ? AND tier = ? AND quantity >= ?`,
				need, accountID, tier.Key(), need)
			if err != nil {
				return types.StorageError("deduct fragments", err)
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				return types.Errorf(types.ErrInsufficientResources, "missing %s fragments", tier)
			}
			held[tier] -= need
		}

		if recipe.CoinCost > 0 {
			receipt.Transaction, err = ledger.DebitTx(ctx, tx, ledger.Entry{
				AccountID:   accountID,
				Amount:      recipe.CoinCost,
				Type:        entities.TransactionTypeCraft,
				Reason:      reason,
				ReferenceID: strconv.FormatInt(recipe.ID, 10),
				Timestamp:   now,
			})
			if err != nil {
				return err
			}
		}

		if err := addItemTx(ctx, tx, accountID, recipe.ResultItemID, 1, now); err != nil {
			return err
		}
		receipt.Fragments = held
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("%s crafted %s", accountID, recipe.Name)
	return receipt, nil
}

// DailyOffers returns the unexpired daily shop offers ordered by price
func (r *SQLiteRepository) DailyOffers(ctx context.Context, now time.Time) ([]*entities.DailyOffer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ds.discount, ds.expires_at, `+itemColumns+`
		FROM daily_shop ds
		JOIN shop_items si ON si.id = ds.item_id
		WHERE ds.expires_at > ?
		ORDER BY si.price, si.id`, db.FormatTime(now))
	if err != nil {
		return nil, types.StorageError("query daily shop", err)
	}
	defer rows.Close()

	var offers []*entities.DailyOffer
	for rows.Next() {
		var (
			s       itemScan
			o       entities.DailyOffer
			expires string
		)
		dest := append([]interface{}{&o.DiscountPercent, &expires}, s.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, types.StorageError("scan daily shop", err)
		}
		o.Item = *s.result()
		if o.ExpiresAt, err = db.ParseTime(expires); err != nil {
			return nil, types.StorageError("scan daily shop", err)
		}
		offers = append(offers, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate daily shop", err)
	}
	return offers, nil
}

// ReplaceDailyOffers swaps the whole daily shop rotation
func (r *SQLiteRepository) ReplaceDailyOffers(ctx context.Context, offers []entities.DailyOffer) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_shop`); err != nil {
			return types.StorageError("clear daily shop", err)
		}
		for _, o := range offers {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO daily_shop (item_id, discount, expires_at) VALUES (?, ?, ?)`,
				o.Item.ID, o.DiscountPercent, db.FormatTime(o.ExpiresAt))
			if err != nil {
				return types.StorageError("insert daily shop", err)
			}
		}
		return nil
	})
}
