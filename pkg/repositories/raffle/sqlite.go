package raffle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

const raffleColumns = `id, active, prize, started_at, ends_at, winner_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
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
		logger: logging.Default.With("raffle"),
	}
}

func scanRaffle(row rowScanner) (*entities.Raffle, error) {
	var (
		r          entities.Raffle
		active     int64
		start, end string
		winner     sql.NullString
	)
	if err := row.Scan(&r.ID, &active, &r.Prize, &start, &end, &winner); err != nil {
		return nil, err
	}
	var err error
	if r.StartedAt, err = db.ParseTime(start); err != nil {
		return nil, err
	}
	if r.EndsAt, err = db.ParseTime(end); err != nil {
		return nil, err
	}
	r.Active = db.Bool(active)
	r.WinnerID = winner.String
	return &r, nil
}

func activeRaffle(ctx context.Context, q queryer) (*entities.Raffle, error) {
	row := q.QueryRowContext(ctx, `SELECT `+raffleColumns+` FROM raffle WHERE active = 1 ORDER BY id DESC LIMIT 1`)
	r, err := scanRaffle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveRaffle
		}
		return nil, types.StorageError("get active raffle", err)
	}
	return r, nil
}

func openRaffleTx(ctx context.Context, tx *sql.Tx, prize int64, start, end time.Time) (*entities.Raffle, error) {
	r, err := scanRaffle(tx.QueryRowContext(ctx, `
		INSERT INTO raffle (active, prize, started_at, ends_at) VALUES (1, ?, ?, ?)
		RETURNING `+raffleColumns,
		prize, db.FormatTime(start), db.FormatTime(end)))
	if err != nil {
		return nil, types.StorageError("open raffle", err)
	}
	return r, nil
}

// Active returns the running raffle or ErrNoActiveRaffle
func (r *SQLiteRepository) Active(ctx context.Context) (*entities.Raffle, error) {
	return activeRaffle(ctx, r.db)
}

// EnsureActive opens a raffle when none is running. The check and the insert
// share one write transaction.
func (r *SQLiteRepository) EnsureActive(ctx context.Context, prize int64, duration time.Duration, now time.Time) (*entities.Raffle, error) {
	var (
		raffle *entities.Raffle
		opened bool
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		raffle, err = activeRaffle(ctx, tx)
		if err == nil || !errors.Is(err, ErrNoActiveRaffle) {
			return err
		}
		raffle, err = openRaffleTx(ctx, tx, prize, now, now.Add(duration))
		opened = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if opened {
		r.logger.Info("Opened raffle %d with prize %d until %s", raffle.ID, raffle.Prize, raffle.EndsAt.Format(time.RFC3339))
	}
	return raffle, nil
}

// BuyTickets debits the wallet, upserts the ticket row and grows the prize.
// The raffle must still be running.
func (r *SQLiteRepository) BuyTickets(ctx context.Context, p TicketPurchase) (*entities.Raffle, *entities.RaffleTicket, *entities.Transaction, error) {
	if p.Quantity <= 0 {
		return nil, nil, nil, types.Errorf(types.ErrInvalidArgument, "quantity must be positive, got %d", p.Quantity)
	}

	var (
		raffle *entities.Raffle
		ticket entities.RaffleTicket
		t      *entities.Transaction
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		raffle, err = scanRaffle(tx.QueryRowContext(ctx, `
			UPDATE raffle SET prize = prize + ?
			WHERE id = ? AND active = 1 AND ends_at > ?
			RETURNING `+raffleColumns,
			p.PrizeShare, p.RaffleID, db.FormatTime(p.Now)))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRaffleClosed
		}
		if err != nil {
			return types.StorageError("grow raffle prize", err)
		}

		t, err = ledger.DebitTx(ctx, tx, ledger.Entry{
			AccountID:   p.AccountID,
			Amount:      p.Cost,
			Type:        entities.TransactionTypeRaffleTicket,
			Reason:      fmt.Sprintf("%d raffle ticket(s)", p.Quantity),
			ReferenceID: strconv.FormatInt(p.RaffleID, 10),
			Timestamp:   p.Now,
		})
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO raffle_tickets (raffle_id, user_id, username, quantity) VALUES (?, ?, ?, ?)
			ON CONFLICT(raffle_id, user_id) DO UPDATE SET
				quantity = raffle_tickets.quantity + excluded.quantity,
				username = excluded.username
			RETURNING raffle_id, user_id, username, quantity`,
			p.RaffleID, p.AccountID, p.Username, p.Quantity,
		).Scan(&ticket.RaffleID, &ticket.AccountID, &ticket.Username, &ticket.Quantity)
		if err != nil {
			return types.StorageError("add raffle tickets", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	r.logger.Debug("%s bought %d tickets in raffle %d", p.AccountID, p.Quantity, p.RaffleID)
	return raffle, &ticket, t, nil
}

func listTickets(ctx context.Context, q queryer, raffleID int64, order string, limit int) ([]*entities.RaffleTicket, error) {
	query := `SELECT raffle_id, user_id, username, quantity FROM raffle_tickets WHERE raffle_id = ? ORDER BY ` + order
	args := []interface{}{raffleID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.StorageError("list raffle tickets", err)
	}
	defer rows.Close()

	var tickets []*entities.RaffleTicket
	for rows.Next() {
		var t entities.RaffleTicket
		if err := rows.Scan(&t.RaffleID, &t.AccountID, &t.Username, &t.Quantity); err != nil {
			return nil, types.StorageError("scan raffle ticket", err)
		}
		tickets = append(tickets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate raffle tickets", err)
	}
	return tickets, nil
}

// Settle closes an expired raffle inside one transaction: with no tickets the
// end moves to now+Extension, otherwise Pick chooses the winner, the prize is
// credited and the next raffle opens.
func (r *SQLiteRepository) Settle(ctx context.Context, s Settlement) (*entities.RaffleDraw, error) {
	var draw *entities.RaffleDraw
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		raffle, err := scanRaffle(tx.QueryRowContext(ctx,
			`SELECT `+raffleColumns+` FROM raffle WHERE id = ?`, s.RaffleID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoActiveRaffle
		}
		if err != nil {
			return types.StorageError("get raffle", err)
		}
		if !raffle.Active {
			return ErrRaffleClosed
		}
		if !raffle.Expired(s.Now) {
			return types.NewError(types.ErrInvalidState, "the raffle has not ended yet")
		}

		tickets, err := listTickets(ctx, tx, raffle.ID, "rowid", 0)
		if err != nil {
			return err
		}
		var total int64
		for _, t := range tickets {
			total += t.Quantity
		}

		if total == 0 {
			raffle.EndsAt = s.Now.Add(s.Extension)
			_, err := tx.ExecContext(ctx, `UPDATE raffle SET ends_at = ? WHERE id = ?`,
				db.FormatTime(raffle.EndsAt), raffle.ID)
			if err != nil {
				return types.StorageError("extend raffle", err)
			}
			draw = &entities.RaffleDraw{Raffle: *raffle, Prize: raffle.Prize, Extended: true}
			return nil
		}

		winner := s.Pick(tickets, total)
		_, err = tx.ExecContext(ctx, `UPDATE raffle SET active = 0, winner_id = ? WHERE id = ?`, winner, raffle.ID)
		if err != nil {
			return types.StorageError("close raffle", err)
		}
		raffle.Active, raffle.WinnerID = false, winner

		if raffle.Prize > 0 {
			_, err = ledger.CreditTx(ctx, tx, ledger.Entry{
				AccountID:   winner,
				Amount:      raffle.Prize,
				Type:        entities.TransactionTypeRafflePrize,
				Reason:      fmt.Sprintf("Raffle %d prize", raffle.ID),
				ReferenceID: strconv.FormatInt(raffle.ID, 10),
				Timestamp:   s.Now,
			})
			if err != nil {
				return err
			}
		}

		next, err := openRaffleTx(ctx, tx, s.NextPrize, s.Now, s.Now.Add(s.NextRun))
		if err != nil {
			return err
		}
		draw = &entities.RaffleDraw{
			Raffle:       *raffle,
			WinnerID:     winner,
			Prize:        raffle.Prize,
			TotalTickets: total,
			Next:         next,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if draw.Extended {
		r.logger.Info("Raffle %d had no tickets, extended to %s", draw.Raffle.ID, draw.Raffle.EndsAt.Format(time.RFC3339))
	} else {
		r.logger.Info("Raffle %d won by %s: %d coins over %d tickets", draw.Raffle.ID, draw.WinnerID, draw.Prize, draw.TotalTickets)
	}
	return draw, nil
}

// Participants lists ticket holders, most tickets first
func (r *SQLiteRepository) Participants(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleTicket, error) {
	return listTickets(ctx, r.db, raffleID, "quantity DESC, user_id", limit)
}

// Tickets returns one account's ticket count in a raffle
func (r *SQLiteRepository) Tickets(ctx context.Context, raffleID int64, accountID string) (int64, error) {
	var qty int64
	err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM raffle_tickets WHERE raffle_id = ? AND user_id = ?`, raffleID, accountID,
	).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, types.StorageError("get raffle tickets", err)
	}
	return qty, nil
}
