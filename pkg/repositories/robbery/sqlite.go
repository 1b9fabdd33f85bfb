package robbery

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

// SQLiteRepository implements Repository on the shared SQLite database
type SQLiteRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(conn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:     conn,
		logger: logging.Default.With("robbery"),
	}
}

// Jail returns the running sentence, deleting it once served
func (r *SQLiteRepository) Jail(ctx context.Context, accountID string, now time.Time) (*entities.JailRecord, error) {
	var (
		rec             entities.JailRecord
		jailed, release string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, reason, fine, jailed_at, release_time FROM jail WHERE user_id = ?`, accountID,
	).Scan(&rec.AccountID, &rec.Reason, &rec.Fine, &jailed, &release)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotJailed
	}
	if err != nil {
		return nil, types.StorageError("get jail", err)
	}
	if rec.JailedAt, err = db.ParseTime(jailed); err != nil {
		return nil, types.StorageError("get jail", err)
	}
	if rec.ReleaseAt, err = db.ParseTime(release); err != nil {
		return nil, types.StorageError("get jail", err)
	}

	if rec.Jailed(now) {
		return &rec, nil
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM jail WHERE user_id = ? AND release_time = ?`, accountID, release)
	if err != nil {
		return nil, types.StorageError("release from jail", err)
	}
	r.logger.Debug("Released %s from jail", accountID)
	return nil, ErrNotJailed
}

// ClaimCooldown is a conditional upsert, so two concurrent attempts by the same
// robber cannot both pass the cooldown.
func (r *SQLiteRepository) ClaimCooldown(ctx context.Context, robberID string, cooldown time.Duration, now time.Time) (bool, time.Time, error) {
	var last time.Time
	claimed := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO robbery_cooldowns (user_id, last_attempt) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET last_attempt = excluded.last_attempt
			WHERE robbery_cooldowns.last_attempt <= ?`,
			robberID, db.FormatTime(now), db.FormatTime(now.Add(-cooldown)))
		if err != nil {
			return types.StorageError("claim robbery cooldown", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return types.StorageError("claim robbery cooldown", err)
		}
		if n > 0 {
			claimed, last = true, now
			return nil
		}

		var raw string
		err = tx.QueryRowContext(ctx,
			`SELECT last_attempt FROM robbery_cooldowns WHERE user_id = ?`, robberID).Scan(&raw)
		if err != nil {
			return types.StorageError("read robbery cooldown", err)
		}
		last, err = db.ParseTime(raw)
		return err
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return claimed, last, nil
}

func insertAttemptTx(ctx context.Context, tx *sql.Tx, a entities.RobberyAttempt) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO robbery_stats (robber_id, victim_id, result, amount, fine, jail_minutes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RobberID, a.VictimID, a.Result, a.Amount, a.Fine, a.JailMinutes, db.FormatTime(a.At))
	if err != nil {
		return types.StorageError("record robbery", err)
	}
	return nil
}

func coinsTx(ctx context.Context, tx *sql.Tx, accountID string) (int64, error) {
	var coins int64
	err := tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE user_id = ?`, accountID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrAccountNotFound
	}
	if err != nil {
		return 0, types.StorageError("read balance", err)
	}
	return coins, nil
}

// Steal debits the victim and credits the robber in one transaction
func (r *SQLiteRepository) Steal(ctx context.Context, a entities.RobberyAttempt) (int64, []*entities.Transaction, error) {
	var txs []*entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		held, err := coinsTx(ctx, tx, a.VictimID)
		if err != nil {
			return err
		}
		if a.Amount > held {
			a.Amount = held
		}

		if a.Amount > 0 {
			loss, err := ledger.DebitTx(ctx, tx, ledger.Entry{
				AccountID:   a.VictimID,
				Amount:      a.Amount,
				Type:        entities.TransactionTypeRobberyLoss,
				Reason:      "Robbed",
				ReferenceID: a.RobberID,
				Timestamp:   a.At,
			})
			if err != nil {
				return err
			}
			gain, err := ledger.CreditTx(ctx, tx, ledger.Entry{
				AccountID:   a.RobberID,
				Amount:      a.Amount,
				Type:        entities.TransactionTypeRobberyGain,
				Reason:      "Robbery",
				ReferenceID: a.VictimID,
				Timestamp:   a.At,
			})
			if err != nil {
				return err
			}
			txs = []*entities.Transaction{loss, gain}
		}
		return insertAttemptTx(ctx, tx, a)
	})
	if err != nil {
		return 0, nil, err
	}

	r.logger.Info("%s robbed %d from %s", a.RobberID, a.Amount, a.VictimID)
	return a.Amount, txs, nil
}

// Punish charges the fine and writes the jail record in one transaction
func (r *SQLiteRepository) Punish(ctx context.Context, a entities.RobberyAttempt, jail entities.JailRecord) (int64, *entities.Transaction, error) {
	var t *entities.Transaction
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		held, err := coinsTx(ctx, tx, a.RobberID)
		if err != nil {
			return err
		}
		if a.Fine > held {
			a.Fine = held
		}

		if a.Fine > 0 {
			t, err = ledger.DebitTx(ctx, tx, ledger.Entry{
				AccountID:   a.RobberID,
				Amount:      a.Fine,
				Type:        entities.TransactionTypeFine,
				Reason:      "Fine for attempted robbery",
				ReferenceID: a.VictimID,
				Timestamp:   a.At,
			})
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO jail (user_id, reason, fine, jailed_at, release_time) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				reason = excluded.reason, fine = excluded.fine,
				jailed_at = excluded.jailed_at, release_time = excluded.release_time`,
			a.RobberID, jail.Reason, a.Fine, db.FormatTime(jail.JailedAt), db.FormatTime(jail.ReleaseAt))
		if err != nil {
			return types.StorageError("jail", err)
		}
		return insertAttemptTx(ctx, tx, a)
	})
	if err != nil {
		return 0, nil, err
	}

	r.logger.Info("%s caught robbing %s: fined %d, jailed %d minutes", a.RobberID, a.VictimID, a.Fine, a.JailMinutes)
	return a.Fine, t, nil
}

// RecordFailure writes the statistics row of an attempt that moved nothing
func (r *SQLiteRepository) RecordFailure(ctx context.Context, a entities.RobberyAttempt) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertAttemptTx(ctx, tx, a)
	})
}

// Stats aggregates an account's attempts as robber and as victim
func (r *SQLiteRepository) Stats(ctx context.Context, accountID string) (*entities.RobberyStats, error) {
	stats := &entities.RobberyStats{AccountID: accountID}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(fine), 0)
		FROM robbery_stats WHERE robber_id = ?`,
		entities.RobberySuccess, entities.RobberyCaught, entities.RobberySuccess, accountID,
	).Scan(&stats.Attempts, &stats.Successes, &stats.Caught, &stats.TotalStolen, &stats.TotalFines)
	if err != nil {
		return nil, types.StorageError("robbery stats", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM robbery_stats WHERE victim_id = ? AND result = ? AND amount > 0`,
		accountID, entities.RobberySuccess,
	).Scan(&stats.TimesRobbed, &stats.TotalLost)
	if err != nil {
		return nil, types.StorageError("robbery stats", err)
	}
	return stats, nil
}
