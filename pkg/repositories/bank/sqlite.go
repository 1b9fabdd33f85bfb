package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

const accountColumns = `user_id, balance, last_interest_time, total_deposited, total_withdrawn,
	interest_earned, created_at`

const loanColumns = `id, user_id, plan, amount, interest_rate, total_due, paid_amount, issued_at,
	due_date, status`

const investmentColumns = `id, user_id, plan, amount, rate, expected_return, start_date, end_date, status`

const transactionColumns = `id, user_id, amount, type, reason, reference_id, balance_after, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// rowQueryer is satisfied by both *sql.DB and *sql.Tx
type rowQueryer interface {
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
		logger: logging.Default.With("bank"),
	}
}

func scanAccount(row rowScanner) (*entities.BankAccount, error) {
	var (
		acct                 entities.BankAccount
		lastInterest, create string
	)
	err := row.Scan(&acct.AccountID, &acct.Balance, &lastInterest, &acct.TotalDeposited,
		&acct.TotalWithdrawn, &acct.InterestEarned, &create)
	if err != nil {
		return nil, err
	}
	if acct.LastInterestAt, err = db.ParseTime(lastInterest); err != nil {
		return nil, err
	}
	if acct.CreatedAt, err = db.ParseTime(create); err != nil {
		return nil, err
	}
	return &acct, nil
}

func openAccountTx(ctx context.Context, tx *sql.Tx, accountID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bank_accounts (user_id, balance, last_interest_time, created_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		accountID, db.FormatTime(now), db.FormatTime(now))
	if err != nil {
		return types.StorageError("open bank account", err)
	}
	return nil
}

// entry is one signed movement of a bank balance
type entry struct {
	AccountID   string
	Amount      int64
	Type        entities.TransactionType
	Reason      string
	ReferenceID string
	Timestamp   time.Time
}

// recordTx appends the row of a balance change already applied in tx. The
// row carries the balance the change left behind.
func recordTx(ctx context.Context, tx *sql.Tx, e entry) (*entities.Transaction, error) {
	t := &entities.Transaction{
		ID:          uuid.New().String(),
		AccountID:   e.AccountID,
		Amount:      e.Amount,
		Type:        e.Type,
		Reason:      e.Reason,
		ReferenceID: e.ReferenceID,
		Timestamp:   e.Timestamp,
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO bank_transactions (`+transactionColumns+`)
		SELECT ?, user_id, ?, ?, ?, ?, balance, ? FROM bank_accounts WHERE user_id = ?
		RETURNING balance_after`,
		t.ID, t.Amount, t.Type, t.Reason, t.ReferenceID, db.FormatTime(t.Timestamp), t.AccountID).
		Scan(&t.BalanceAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, types.StorageError("record bank transaction", err)
	}
	return t, nil
}

// GetOrCreate returns the bank account, opening an empty one if missing. The
// wallet account must already exist.
func (r *SQLiteRepository) GetOrCreate(ctx context.Context, accountID string, now time.Time) (*entities.BankAccount, error) {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return openAccountTx(ctx, tx, accountID, now)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, accountID)
}

// Get returns the bank account or ErrBankAccountNotFound
func (r *SQLiteRepository) Get(ctx context.Context, accountID string) (*entities.BankAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = ?`, accountID)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, types.StorageError("get bank account", err)
	}
	return acct, nil
}

// ApplyInterest is a compare-and-swap on last_interest_time, so two
// concurrent touches never pay the same days twice.
func (r *SQLiteRepository) ApplyInterest(ctx context.Context, accountID string, last time.Time, interest int64, now time.Time) (bool, error) {
	applied := false
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bank_accounts
			SET balance = balance + ?, interest_earned = interest_earned + ?, last_interest_time = ?
			WHERE user_id = ? AND last_interest_time = ?`,
			interest, interest, db.FormatTime(now), accountID, db.FormatTime(last))
		if err != nil {
			return types.StorageError("apply interest", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return types.StorageError("apply interest", err)
		}
		applied = n > 0
		if !applied || interest == 0 {
			return nil
		}
		_, err = recordTx(ctx, tx, entry{
			AccountID: accountID,
			Amount:    interest,
			Type:      entities.TransactionTypeBankInterest,
			Reason:    "Daily interest",
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	if applied && interest > 0 {
		r.logger.Debug("Paid %d interest to %s", interest, accountID)
	}
	return applied, nil
}

// Deposit debits the wallet and credits the bank in one transaction
func (r *SQLiteRepository) Deposit(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.BankAccount, *entities.Transaction, error) {
	var (
		acct *entities.BankAccount
		t    *entities.Transaction
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := openAccountTx(ctx, tx, accountID, now); err != nil {
			return err
		}

		var err error
		t, err = ledger.DebitTx(ctx, tx, ledger.Entry{
			AccountID: accountID,
			Amount:    amount,
			Type:      entities.TransactionTypeBankDeposit,
			Reason:    "Bank deposit",
			Timestamp: now,
		})
		if err != nil {
			return err
		}

		acct, err = scanAccount(tx.QueryRowContext(ctx, `
			UPDATE bank_accounts
			SET balance = balance + ?, total_deposited = total_deposited + ?
			WHERE user_id = ?
			RETURNING `+accountColumns,
			amount, amount, accountID))
		if err != nil {
			return types.StorageError("deposit", err)
		}
		_, err = recordTx(ctx, tx, entry{
			AccountID:   accountID,
			Amount:      amount,
			Type:        entities.TransactionTypeBankDeposit,
			Reason:      "Deposit from wallet",
			ReferenceID: t.ID,
			Timestamp:   now,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return acct, t, nil
}

// debitBankTx lowers a bank balance by e.Amount only if it covers it, and
// records the negative row
func debitBankTx(ctx context.Context, tx *sql.Tx, e entry, withdrawal bool) (*entities.BankAccount, error) {
	withdrawn := int64(0)
	if withdrawal {
		withdrawn = e.Amount
	}
	acct, err := scanAccount(tx.QueryRowContext(ctx, `
		UPDATE bank_accounts
		SET balance = balance - ?, total_withdrawn = total_withdrawn + ?
		WHERE user_id = ? AND balance >= ?
		RETURNING `+accountColumns,
		e.Amount, withdrawn, e.AccountID, e.Amount))
	if err == nil {
		e.Amount = -e.Amount
		if _, err := recordTx(ctx, tx, e); err != nil {
			return nil, err
		}
		return acct, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, types.StorageError("debit bank", err)
	}

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM bank_accounts WHERE user_id = ?`, e.AccountID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBankAccountNotFound
	}
	if err != nil {
		return nil, types.StorageError("debit bank", err)
	}
	return nil, types.Errorf(types.ErrInsufficientFunds, "bank balance %d is less than %d", current, e.Amount)
}

// Withdraw debits the bank and credits the wallet in one transaction
func (r *SQLiteRepository) Withdraw(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.BankAccount, *entities.Transaction, error) {
	if amount <= 0 {
		return nil, nil, types.Errorf(types.ErrInvalidArgument, "amount must be positive, got %d", amount)
	}

	var (
		acct *entities.BankAccount
		t    *entities.Transaction
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		t, err = ledger.CreditTx(ctx, tx, ledger.Entry{
			AccountID: accountID,
			Amount:    amount,
			Type:      entities.TransactionTypeBankWithdraw,
			Reason:    "Bank withdrawal",
			Timestamp: now,
		})
		if err != nil {
			return err
		}
		acct, err = debitBankTx(ctx, tx, entry{
			AccountID:   accountID,
			Amount:      amount,
			Type:        entities.TransactionTypeBankWithdraw,
			Reason:      "Withdrawal to wallet",
			ReferenceID: t.ID,
			Timestamp:   now,
		}, true)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return acct, t, nil
}

// Transfer moves coins between two bank balances. The target must already
// hold a bank account.
func (r *SQLiteRepository) Transfer(ctx context.Context, fromID, toID string, amount int64, now time.Time) (*entities.BankAccount, error) {
	if amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "amount must be positive, got %d", amount)
	}
	if fromID == toID {
		return nil, types.NewError(types.ErrInvalidArgument, "cannot transfer to the same bank account")
	}

	var from *entities.BankAccount
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bank_accounts SET balance = balance + ? WHERE user_id = ?`, amount, toID)
		if err != nil {
			return types.StorageError("bank transfer", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return types.StorageError("bank transfer", err)
		} else if n == 0 {
			return types.NewError(types.ErrNotFound, "the recipient has no bank account")
		}
		in, err := recordTx(ctx, tx, entry{
			AccountID: toID,
			Amount:    amount,
			Type:      entities.TransactionTypeBankTransferIn,
			Reason:    fmt.Sprintf("Bank transfer from %s", fromID),
			Timestamp: now,
		})
		if err != nil {
			return err
		}

		from, err = debitBankTx(ctx, tx, entry{
			AccountID:   fromID,
			Amount:      amount,
			Type:        entities.TransactionTypeBankTransferOut,
			Reason:      fmt.Sprintf("Bank transfer to %s", toID),
			ReferenceID: in.ID,
			Timestamp:   now,
		}, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Bank transfer of %d from %s to %s", amount, fromID, toID)
	return from, nil
}

func scanLoan(row rowScanner) (*entities.Loan, error) {
	var (
		loan        entities.Loan
		issued, due string
	)
	err := row.Scan(&loan.ID, &loan.AccountID, &loan.Plan, &loan.Principal, &loan.Rate,
		&loan.TotalDue, &loan.Paid, &issued, &due, &loan.Status)
	if err != nil {
		return nil, err
	}
	if loan.IssuedAt, err = db.ParseTime(issued); err != nil {
		return nil, err
	}
	if loan.DueAt, err = db.ParseTime(due); err != nil {
		return nil, err
	}
	return &loan, nil
}

func activeLoanTx(ctx context.Context, q rowQueryer, accountID string) (*entities.Loan, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+loanColumns+` FROM bank_loans
		WHERE user_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`,
		accountID, entities.LoanStatusActive)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveLoan
		}
		return nil, types.StorageError("get active loan", err)
	}
	return loan, nil
}

// ActiveLoan returns the account's active loan or ErrNoActiveLoan
func (r *SQLiteRepository) ActiveLoan(ctx context.Context, accountID string) (*entities.Loan, error) {
	return activeLoanTx(ctx, r.db, accountID)
}

// IssueLoan inserts the loan and credits the principal. The active-loan check
// runs inside the same write transaction.
func (r *SQLiteRepository) IssueLoan(ctx context.Context, loan *entities.Loan) (*entities.Loan, *entities.Transaction, error) {
	if loan.Principal <= 0 || loan.TotalDue < loan.Principal {
		return nil, nil, types.Errorf(types.ErrInvalidArgument, "invalid loan of %d owing %d", loan.Principal, loan.TotalDue)
	}

	var (
		issued *entities.Loan
		t      *entities.Transaction
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := activeLoanTx(ctx, tx, loan.AccountID); err == nil {
			return ErrLoanActive
		} else if !errors.Is(err, ErrNoActiveLoan) {
			return err
		}

		var err error
		issued, err = scanLoan(tx.QueryRowContext(ctx, `
			INSERT INTO bank_loans (user_id, plan, amount, interest_rate, total_due, paid_amount, issued_at, due_date, status)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
			RETURNING `+loanColumns,
			loan.AccountID, loan.Plan, loan.Principal, loan.Rate, loan.TotalDue,
			db.FormatTime(loan.IssuedAt), db.FormatTime(loan.DueAt), entities.LoanStatusActive))
		if err != nil {
			return types.StorageError("insert loan", err)
		}

		t, err = ledger.CreditTx(ctx, tx, ledger.Entry{
			AccountID:   loan.AccountID,
			Amount:      loan.Principal,
			Type:        entities.TransactionTypeLoan,
			Reason:      fmt.Sprintf("Loan (%s plan)", loan.Plan),
			ReferenceID: strconv.FormatInt(issued.ID, 10),
			Timestamp:   loan.IssuedAt,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info("Issued loan %d of %d to %s", issued.ID, issued.Principal, issued.AccountID)
	return issued, t, nil
}

// RepayLoan debits min(amount, remaining) and closes the loan once fully paid
func (r *SQLiteRepository) RepayLoan(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.Loan, *entities.Transaction, error) {
	if amount <= 0 {
		return nil, nil, types.Errorf(types.ErrInvalidArgument, "amount must be positive, got %d", amount)
	}

	var (
		loan *entities.Loan
		t    *entities.Transaction
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if loan, err = activeLoanTx(ctx, tx, accountID); err != nil {
			return err
		}

		pay := amount
		if remaining := loan.Remaining(); pay > remaining {
			pay = remaining
		}

		t, err = ledger.DebitTx(ctx, tx, ledger.Entry{
			AccountID:   accountID,
			Amount:      pay,
			Type:        entities.TransactionTypeRepayment,
			Reason:      fmt.Sprintf("Loan repayment (%s plan)", loan.Plan),
			ReferenceID: strconv.FormatInt(loan.ID, 10),
			Timestamp:   now,
		})
		if err != nil {
			return err
		}

		loan.Paid += pay
		if loan.Remaining() == 0 {
			loan.Status = entities.LoanStatusPaid
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE bank_loans SET paid_amount = ?, status = ? WHERE id = ?`,
			loan.Paid, loan.Status, loan.ID)
		if err != nil {
			return types.StorageError("update loan", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return loan, t, nil
}

// Loans returns the account's loans, newest first
func (r *SQLiteRepository) Loans(ctx context.Context, accountID string, limit int) ([]*entities.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM bank_loans WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, types.StorageError("list loans", err)
	}
	defer rows.Close()

	var loans []*entities.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, types.StorageError("scan loan", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate loans", err)
	}
	return loans, nil
}

func scanInvestment(row rowScanner) (*entities.Investment, error) {
	var (
		inv        entities.Investment
		start, end string
	)
	err := row.Scan(&inv.ID, &inv.AccountID, &inv.Plan, &inv.Principal, &inv.Rate,
		&inv.ExpectedReturn, &start, &end, &inv.Status)
	if err != nil {
		return nil, err
	}
	if inv.StartAt, err = db.ParseTime(start); err != nil {
		return nil, err
	}
	if inv.EndAt, err = db.ParseTime(end); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Invest debits the principal from the bank balance and records the investment
func (r *SQLiteRepository) Invest(ctx context.Context, inv *entities.Investment) (*entities.Investment, error) {
	if inv.Principal <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "amount must be positive, got %d", inv.Principal)
	}

	var created *entities.Investment
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		created, err = scanInvestment(tx.QueryRowContext(ctx, `
			INSERT INTO bank_investments (user_id, plan, amount, rate, expected_return, start_date, end_date, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+investmentColumns,
			inv.AccountID, inv.Plan, inv.Principal, inv.Rate, inv.ExpectedReturn,
			db.FormatTime(inv.StartAt), db.FormatTime(inv.EndAt), entities.InvestmentStatusActive))
		if err != nil {
			return types.StorageError("insert investment", err)
		}

		_, err = debitBankTx(ctx, tx, entry{
			AccountID:   inv.AccountID,
			Amount:      inv.Principal,
			Type:        entities.TransactionTypeInvestment,
			Reason:      fmt.Sprintf("Investment (%s plan)", inv.Plan),
			ReferenceID: strconv.FormatInt(created.ID, 10),
			Timestamp:   inv.StartAt,
		}, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("%s invested %d (%s), returns %d", created.AccountID, created.Principal, created.Plan, created.ExpectedReturn)
	return created, nil
}

// SettleInvestments pays the expected return of every matured investment into
// the bank balance and marks it matured, all in one transaction.
func (r *SQLiteRepository) SettleInvestments(ctx context.Context, accountID string, now time.Time) ([]*entities.Investment, error) {
	var settled []*entities.Investment
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT `+investmentColumns+` FROM bank_investments
			WHERE user_id = ? AND status = ? AND end_date <= ?
			ORDER BY id`,
			accountID, entities.InvestmentStatusActive, db.FormatTime(now))
		if err != nil {
			return types.StorageError("list matured investments", err)
		}
		var due []*entities.Investment
		for rows.Next() {
			inv, err := scanInvestment(rows)
			if err != nil {
				rows.Close()
				return types.StorageError("scan investment", err)
			}
			due = append(due, inv)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return types.StorageError("iterate investments", err)
		}

		for _, inv := range due {
			res, err := tx.ExecContext(ctx,
				`UPDATE bank_investments SET status = ? WHERE id = ? AND status = ?`,
				entities.InvestmentStatusMatured, inv.ID, entities.InvestmentStatusActive)
			if err != nil {
				return types.StorageError("settle investment", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE bank_accounts SET balance = balance + ? WHERE user_id = ?`,
				inv.ExpectedReturn, accountID)
			if err != nil {
				return types.StorageError("settle investment", err)
			}
			_, err = recordTx(ctx, tx, entry{
				AccountID:   accountID,
				Amount:      inv.ExpectedReturn,
				Type:        entities.TransactionTypeInvestmentReturn,
				Reason:      fmt.Sprintf("Investment return (%s plan)", inv.Plan),
				ReferenceID: strconv.FormatInt(inv.ID, 10),
				Timestamp:   now,
			})
			if err != nil {
				return err
			}
			inv.Status = entities.InvestmentStatusMatured
			settled = append(settled, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, inv := range settled {
		r.logger.Info("Investment %d of %s matured: %d", inv.ID, accountID, inv.ExpectedReturn)
	}
	return settled, nil
}

// Investments returns the account's investments, newest first
func (r *SQLiteRepository) Investments(ctx context.Context, accountID string, limit int) ([]*entities.Investment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+investmentColumns+` FROM bank_investments WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, types.StorageError("list investments", err)
	}
	defer rows.Close()

	var investments []*entities.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, types.StorageError("scan investment", err)
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate investments", err)
	}
	return investments, nil
}

func scanTransaction(row rowScanner) (*entities.Transaction, error) {
	var (
		t       entities.Transaction
		created string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Reason, &t.ReferenceID, &t.BalanceAfter, &created)
	if err != nil {
		return nil, err
	}
	if t.Timestamp, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	return &t, nil
}

// Transactions returns the account's bank rows, newest first
func (r *SQLiteRepository) Transactions(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM bank_transactions
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, types.StorageError("list bank transactions", err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, types.StorageError("scan bank transaction", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("iterate bank transactions", err)
	}
	return txs, nil
}

// SumTransactions adds up every bank row of the account
func (r *SQLiteRepository) SumTransactions(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM bank_transactions WHERE user_id = ?`, accountID).Scan(&sum)
	if err != nil {
		return 0, types.StorageError("sum bank transactions", err)
	}
	return sum, nil
}
