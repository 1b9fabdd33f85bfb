package ledger

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

var (
	ErrAccountNotFound = types.NewError(types.ErrNotFound, "account not found")
	ErrDailyRaced      = types.NewError(types.ErrAlreadyClaimed, "daily reward already claimed")
)

// Entry describes one balance change. Amount is always positive; Credit and
// Debit decide the sign of the recorded transaction.
type Entry struct {
	AccountID   string
	Amount      int64
	Type        entities.TransactionType
	Reason      string
	ReferenceID string
	Timestamp   time.Time
}

// Repository defines the interface for account and ledger data operations
type Repository interface {
	// EnsureAccount creates the account with zero balance if missing and refreshes the username
	EnsureAccount(ctx context.Context, id, username string, now time.Time) (*entities.Account, error)

	// GetAccount retrieves an account by user ID
	GetAccount(ctx context.Context, id string) (*entities.Account, error)

	// Credit adds coins and records the transaction atomically
	Credit(ctx context.Context, e Entry) (*entities.Transaction, error)

	// Debit removes coins only if the balance covers them, recording the transaction atomically
	Debit(ctx context.Context, e Entry) (*entities.Transaction, error)

	// ClaimDaily credits the daily reward only if last_daily still equals previous
	ClaimDaily(ctx context.Context, previous *time.Time, e Entry) (*entities.Transaction, error)

	// UpdatePremium sets premium with an expiry computed from the current one
	UpdatePremium(ctx context.Context, id, tier string, extend func(current *time.Time) time.Time) (time.Time, error)

	// UpdateProgress rewrites xp and level from the current values
	UpdateProgress(ctx context.Context, id string, apply func(xp int64, level int) (int64, int)) (int64, int, error)

	// TouchMessage counts a message and reports whether the xp cooldown had elapsed
	TouchMessage(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error)

	// GetTransactions retrieves recent transactions for an account, newest first
	GetTransactions(ctx context.Context, id string, limit int) ([]*entities.Transaction, error)

	// GetTransactionsByType retrieves transactions of a specific type, newest first
	GetTransactionsByType(ctx context.Context, id string, transactionType entities.TransactionType, limit int) ([]*entities.Transaction, error)

	// SumTransactions returns the sum of every recorded amount for an account
	SumTransactions(ctx context.Context, id string) (int64, error)

	// Leaderboard returns a page of accounts ordered by kind and the total account count
	Leaderboard(ctx context.Context, kind entities.LeaderboardKind, offset, limit int) ([]*entities.LeaderboardEntry, int, error)
}
