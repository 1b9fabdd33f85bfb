// Package dbtest opens migrated SQLite databases for repository and service tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/db/migrations"
)

// Open returns a migrated database in a temp dir, closed when the test ends
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, migrations.Migrate(context.Background(), conn))
	return conn
}

// SeedAccount inserts an account holding balance, backed by an ADJUSTMENT
// transaction so the ledger still reconciles.
func SeedAccount(t testing.TB, conn *sql.DB, id string, balance int64, now time.Time) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO users (user_id, username, coins, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET coins = excluded.coins`,
		id, "user-"+id, balance, db.FormatTime(now))
	require.NoError(t, err)

	if balance == 0 {
		return
	}
	_, err = conn.Exec(`
		INSERT INTO transactions (id, user_id, amount, type, reason, reference_id, timestamp, balance_after)
		VALUES (?, ?, ?, 'ADJUSTMENT', 'seed', '', ?, ?)`,
		uuid.New().String(), id, balance, db.FormatTime(now), balance)
	require.NoError(t, err)
}

// Balance reads an account's coins
func Balance(t testing.TB, conn *sql.DB, id string) int64 {
	t.Helper()

	var coins int64
	require.NoError(t, conn.QueryRow(`SELECT coins FROM users WHERE user_id = ?`, id).Scan(&coins))
	return coins
}

// AssertReconciled checks that the balance equals the sum of the account's transactions
func AssertReconciled(t testing.TB, conn *sql.DB, id string) {
	t.Helper()

	var sum int64
	require.NoError(t, conn.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = ?`, id).Scan(&sum))
	require.Equal(t, Balance(t, conn, id), sum, "balance of %s must equal the sum of its transactions", id)
}

// CountTransactions counts an account's transactions of a given type ("" for all)
func CountTransactions(t testing.TB, conn *sql.DB, id, txType string) int {
	t.Helper()

	query := `SELECT COUNT(*) FROM transactions WHERE user_id = ?`
	args := []interface{}{id}
	if txType != "" {
		query += ` AND type = ?`
		args = append(args, txType)
	}
	var n int
	require.NoError(t, conn.QueryRow(query, args...).Scan(&n))
	return n
}
