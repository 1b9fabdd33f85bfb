package bank

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

var (
	ErrBankAccountNotFound = types.NewError(types.ErrNotFound, "bank account not found")
	ErrNoActiveLoan        = types.NewError(types.ErrNotFound, "no active loan")
	ErrLoanActive          = types.NewError(types.ErrLimitReached, "an active loan must be repaid first")
)

// Repository defines the interface for bank data operations. Every method that
// moves coins between the wallet and the bank does so in one SQL transaction,
// and every change of a bank balance writes a signed bank transaction row in
// that same transaction.
type Repository interface {
	// GetOrCreate returns the bank account, opening an empty one if missing
	GetOrCreate(ctx context.Context, accountID string, now time.Time) (*entities.BankAccount, error)

	// Get returns the bank account or ErrBankAccountNotFound
	Get(ctx context.Context, accountID string) (*entities.BankAccount, error)

	// ApplyInterest adds interest and moves last_interest_time to now, only if
	// last_interest_time still equals last. It reports whether the row changed.
	ApplyInterest(ctx context.Context, accountID string, last time.Time, interest int64, now time.Time) (bool, error)

	// Deposit moves coins from the wallet into the bank
	Deposit(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.BankAccount, *entities.Transaction, error)

	// Withdraw moves coins from the bank into the wallet
	Withdraw(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.BankAccount, *entities.Transaction, error)

	// Transfer moves coins between two bank accounts
	Transfer(ctx context.Context, fromID, toID string, amount int64, now time.Time) (*entities.BankAccount, error)

	// ActiveLoan returns the account's active loan or ErrNoActiveLoan
	ActiveLoan(ctx context.Context, accountID string) (*entities.Loan, error)

	// IssueLoan records the loan and credits the principal to the wallet.
	// It fails with ErrLoanActive when the account already owes a loan.
	IssueLoan(ctx context.Context, loan *entities.Loan) (*entities.Loan, *entities.Transaction, error)

	// RepayLoan debits up to the remaining amount from the wallet
	RepayLoan(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.Loan, *entities.Transaction, error)

	// Loans returns the account's loans, newest first
	Loans(ctx context.Context, accountID string, limit int) ([]*entities.Loan, error)

	// Invest debits the principal from the bank balance and records the investment
	Invest(ctx context.Context, inv *entities.Investment) (*entities.Investment, error)

	// SettleInvestments credits every matured active investment to the bank balance
	SettleInvestments(ctx context.Context, accountID string, now time.Time) ([]*entities.Investment, error)

	// Investments returns the account's investments, newest first
	Investments(ctx context.Context, accountID string, limit int) ([]*entities.Investment, error)

	// Transactions returns the bank rows of the account, newest first
	Transactions(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error)

	// SumTransactions adds up the bank rows of the account
	SumTransactions(ctx context.Context, accountID string) (int64, error)
}
