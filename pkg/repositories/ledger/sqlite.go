package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

const accountColumns = `user_id, username, coins, premium, premium_until, premium_tier, xp, level,
	last_daily, messages_count, last_message, coin_limit, inventory_capacity, created_at`

const transactionColumns = `id, user_id, amount, type, reason, reference_id, timestamp, balance_after`

// SQLiteRepository implements Repository on the shared SQLite database
type SQLiteRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteRepository creates a new SQLite repository. The schema is owned by
// pkg/db/migrations.
func NewSQLiteRepository(conn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:     conn,
		logger: logging.Default.With("ledger"),
	}
}

// EnsureAccount creates the account if missing and refreshes the username
func (r *SQLiteRepository) EnsureAccount(ctx context.Context, id, username string, now time.Time) (*entities.Account, error) {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return EnsureAccountTx(ctx, tx, id, username, now)
	})
	if err != nil {
		return nil, err
	}
	return r.GetAccount(ctx, id)
}

// EnsureAccountTx is EnsureAccount inside a caller-owned transaction
func EnsureAccountTx(ctx context.Context, tx *sql.Tx, id, username string, now time.Time) error {
	query := `
		INSERT INTO users (user_id, username, coins, level, coin_limit, inventory_capacity, created_at)
		VALUES (?, ?, 0, 1, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = CASE WHEN excluded.username != '' THEN excluded.username ELSE users.username END
	`
	_, err := tx.ExecContext(ctx, query, id, username,
		entities.DefaultCoinLimit, entities.DefaultInventoryCapacity, db.FormatTime(now))
	if err != nil {
		return types.StorageError("ensure account", err)
	}
	return nil
}

// GetAccount retrieves an account by user ID
func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (*entities.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE user_id = ?`, id)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, types.StorageError("get account", err)
	}
	return acct, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*entities.Account, error) {
	var (
		acct                             entities.Account
		premium                          int64
		premiumUntil, lastDaily, lastMsg sql.NullString
		createdAt                        string
	)

	err := row.Scan(
		&acct.ID, &acct.Username, &acct.Balance, &premium, &premiumUntil, &acct.PremiumTier,
		&acct.XP, &acct.Level, &lastDaily, &acct.MessagesCount, &lastMsg,
		&acct.CoinLimit, &acct.InventoryCapacity, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	acct.Premium = db.Bool(premium)
	if acct.PremiumUntil, err = db.ParseNullTime(premiumUntil); err != nil {
		return nil, err
	}
	if acct.LastDaily, err = db.ParseNullTime(lastDaily); err != nil {
		return nil, err
	}
	if acct.LastMessageAt, err = db.ParseNullTime(lastMsg); err != nil {
		return nil, err
	}
	if acct.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Credit adds coins and records the transaction atomically
func (r *SQLiteRepository) Credit(ctx context.Context, e Entry) (*entities.Transaction, error) {
	var t *entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		t, err = CreditTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Debit removes coins only if the balance covers them
func (r *SQLiteRepository) Debit(ctx context.Context, e Entry) (*entities.Transaction, error) {
	var t *entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		t, err = DebitTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Debited %d from %s (%s), balance now %d", e.Amount, e.AccountID, e.Type, t.BalanceAfter)
	return t, nil
}

// CreditTx adds coins inside a caller-owned transaction and records the entry
func CreditTx(ctx context.Context, tx *sql.Tx, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "credit amount must be positive, got %d", e.Amount)
	}

	var balance int64
	err := tx.QueryRowContext(ctx,
		`UPDATE users SET coins = coins + ? WHERE user_id = ? RETURNING coins`,
		e.Amount, e.AccountID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, types.StorageError("credit", err)
	}

	return insertTransaction(ctx, tx, e, e.Amount, balance)
}

// DebitTx removes coins inside a caller-owned transaction. The conditional
// update is the only balance check, so concurrent debits can never overdraw.
func DebitTx(ctx context.Context, tx *sql.Tx, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "debit amount must be positive, got %d", e.Amount)
	}

	var balance int64
	err := tx.QueryRowContext(ctx,
		`UPDATE users SET coins = coins - ? WHERE user_id = ? AND coins >= ? RETURNING coins`,
		e.Amount, e.AccountID, e.Amount,
	).Scan(&balance)
	if err == nil {
		return insertTransaction(ctx, tx, e, -e.Amount, balance)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, types.StorageError("debit", err)
	}

	// zero rows: tell missing accounts apart from short balances
	var current int64
	err = tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE user_id = ?`, e.AccountID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, types.StorageError("debit", err)
	}
	return nil, InsufficientFunds(current, e.Amount)
}

// InsufficientFunds builds the error returned when a debit is not covered
func InsufficientFunds(balance, needed int64) *types.EconomyError {
	return types.Errorf(types.ErrInsufficientFunds, "balance %d is less than %d", balance, needed)
}

func insertTransaction(ctx context.Context, tx *sql.Tx, e Entry, signed, balanceAfter int64) (*entities.Transaction, error) {
	t := &entities.Transaction{
		ID:           uuid.New().String(),
		AccountID:    e.AccountID,
		Amount:       signed,
		Type:         e.Type,
		Reason:       e.Reason,
		ReferenceID:  e.ReferenceID,
		Timestamp:    e.Timestamp,
		BalanceAfter: balanceAfter,
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Amount, t.Type, t.Reason, t.ReferenceID, db.FormatTime(t.Timestamp), t.BalanceAfter,
	)
	if err != nil {
		return nil, types.StorageError("add transaction", err)
	}
	return t, nil
}

// ClaimDaily credits the reward and stamps last_daily only when last_daily
// still holds the value the caller read.
func (r *SQLiteRepository) ClaimDaily(ctx context.Context, previous *time.Time, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "daily amount must be positive, got %d", e.Amount)
	}

	var t *entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var balance int64
		err := tx.QueryRowContext(ctx, `
			UPDATE users SET coins = coins + ?, last_daily = ?
			WHERE user_id = ? AND last_daily IS ?
			RETURNING coins`,
			e.Amount, db.FormatTime(e.Timestamp), e.AccountID, db.NullTime(previous),
		).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDailyRaced
		}
		if err != nil {
			return types.StorageError("claim daily", err)
		}

		t, err = insertTransaction(ctx, tx, e, e.Amount, balance)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdatePremium sets premium using an expiry derived from the stored one
func (r *SQLiteRepository) UpdatePremium(ctx context.Context, id, tier string, extend func(current *time.Time) time.Time) (time.Time, error) {
	var until time.Time
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT premium_until FROM users WHERE user_id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return types.StorageError("read premium", err)
		}

		cur, err := db.ParseNullTime(current)
		if err != nil {
			return types.StorageError("read premium", err)
		}
		until = extend(cur)

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET premium = 1, premium_until = ?, premium_tier = ? WHERE user_id = ?`,
			db.FormatTime(until), tier, id)
		if err != nil {
			return types.StorageError("update premium", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return until.UTC().Truncate(time.Second), nil
}

// UpdateProgress rewrites xp and level from the current values
func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, apply func(xp int64, level int) (int64, int)) (int64, int, error) {
	var xp int64
	var level int
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT xp, level FROM users WHERE user_id = ?`, id).Scan(&xp, &level)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return types.StorageError("read progress", err)
		}

		xp, level = apply(xp, level)
		if _, err := tx.ExecContext(ctx, `UPDATE users SET xp = ?, level = ? WHERE user_id = ?`, xp, level, id); err != nil {
			return types.StorageError("update progress", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return xp, level, nil
}

// TouchMessage counts a message and stamps last_message when the cooldown elapsed
func (r *SQLiteRepository) TouchMessage(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error) {
	var eligible bool
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var last sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT last_message FROM users WHERE user_id = ?`, id).Scan(&last)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return types.StorageError("read last message", err)
		}

		lastAt, err := db.ParseNullTime(last)
		if err != nil {
			return types.StorageError("read last message", err)
		}
		eligible = lastAt == nil || now.Sub(*lastAt) >= cooldown

		query := `UPDATE users SET messages_count = messages_count + 1 WHERE user_id = ?`
		args := []interface{}{id}
		if eligible {
			query = `UPDATE users SET messages_count = messages_count + 1, last_message = ? WHERE user_id = ?`
			args = []interface{}{db.FormatTime(now), id}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return types.StorageError("touch message", err)
		}
		return nil
	})
	return eligible, err
}

// GetTransactions retrieves recent transactions for an account
func (r *SQLiteRepository) GetTransactions(ctx context.Context, id string, limit int) ([]*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`
	return r.queryTransactions(ctx, query, id, limit)
}

// GetTransactionsByType retrieves transactions of a specific type
func (r *SQLiteRepository) GetTransactionsByType(ctx context.Context, id string, transactionType entities.TransactionType, limit int) ([]*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? AND type = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`
	return r.queryTransactions(ctx, query, id, transactionType, limit)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*entities.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.StorageError("query transactions", err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		var t entities.Transaction
		var timestamp string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Reason, &t.ReferenceID, &timestamp, &t.BalanceAfter); err != nil {
			return nil, types.StorageError("scan transaction", err)
		}
		if t.Timestamp, err = db.ParseTime(timestamp); err != nil {
			return nil, types.StorageError("scan transaction", err)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate transactions", err)
	}
	return transactions, nil
}

// SumTransactions returns the sum of every recorded amount for an account
func (r *SQLiteRepository) SumTransactions(ctx context.Context, id string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = ?`, id).Scan(&sum)
	if err != nil {
		return 0, types.StorageError("sum transactions", err)
	}
	return sum, nil
}

var leaderboardOrder = map[entities.LeaderboardKind]string{
	entities.LeaderboardCoins:    "coins DESC, user_id ASC",
	entities.LeaderboardLevel:    "level DESC, xp DESC, user_id ASC",
	entities.LeaderboardMessages: "messages_count DESC, user_id ASC",
}

// Leaderboard returns a page of accounts ordered by kind
func (r *SQLiteRepository) Leaderboard(ctx context.Context, kind entities.LeaderboardKind, offset, limit int) ([]*entities.LeaderboardEntry, int, error) {
	order, ok := leaderboardOrder[kind]
	if !ok {
		return nil, 0, types.Errorf(types.ErrInvalidArgument, "unknown leaderboard %q", kind)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, types.StorageError("count accounts", err)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT user_id, username, coins, level, xp, messages_count FROM users ORDER BY %s LIMIT ? OFFSET ?`, order),
		limit, offset)
	if err != nil {
		return nil, 0, types.StorageError("query leaderboard", err)
	}
	defer rows.Close()

	var entries []*entities.LeaderboardEntry
	rank := offset
	for rows.Next() {
		rank++
		e := &entities.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&e.AccountID, &e.Username, &e.Coins, &e.Level, &e.XP, &e.Messages); err != nil {
			return nil, 0, types.StorageError("scan leaderboard", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, types.StorageError("iterate leaderboard", err)
	}
	return entries, total, nil
}
