package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

// Service handles ledger business logic
type Service struct {
	repo      ledgerRepo.Repository
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new ledger service
func NewService(repo ledgerRepo.Repository, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logging.Default.With("ledger"),
	}
}

// TransferRequest describes a wallet-to-wallet transfer
type TransferRequest struct {
	From     string
	To       string
	FromName string
	ToName   string
	Amount   int64
	Now      time.Time
}

// TransferResult holds both sides of a completed transfer
type TransferResult struct {
	Out *entities.Transaction
	In  *entities.Transaction
}

// Reconciliation compares an account's balance with its transaction sum
type Reconciliation struct {
	AccountID string
	Balance   int64
	Sum       int64
}

// OK reports whether the ledger reconciles
func (r *Reconciliation) OK() bool {
	return r.Balance == r.Sum
}

// EnsureAccount returns the account, creating it with zero balance if missing
func (s *Service) EnsureAccount(ctx context.Context, id, username string, now time.Time) (*entities.Account, error) {
	if id == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "account id is required")
	}
	return s.repo.EnsureAccount(ctx, id, username, now)
}

// Account returns an existing account
func (s *Service) Account(ctx context.Context, id string) (*entities.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// Balance returns the current balance of an existing account
func (s *Service) Balance(ctx context.Context, id string) (int64, error) {
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Credit adds a positive amount and returns the new balance
func (s *Service) Credit(ctx context.Context, id string, amount int64, txType entities.TransactionType, reason string, now time.Time) (int64, error) {
	tx, err := s.repo.Credit(ctx, ledgerRepo.Entry{AccountID: id, Amount: amount, Type: txType, Reason: reason, Timestamp: now})
	if err != nil {
		return 0, err
	}
	s.publisher.Transactions(ctx, tx)
	return tx.BalanceAfter, nil
}

// Debit removes a positive amount if the balance covers it and returns the new balance
func (s *Service) Debit(ctx context.Context, id string, amount int64, txType entities.TransactionType, reason string, now time.Time) (int64, error) {
	tx, err := s.repo.Debit(ctx, ledgerRepo.Entry{AccountID: id, Amount: amount, Type: txType, Reason: reason, Timestamp: now})
	if err != nil {
		return 0, err
	}
	s.publisher.Transactions(ctx, tx)
	return tx.BalanceAfter, nil
}

// Transfer debits the sender, then credits the receiver. When the credit
// fails the sender is refunded with a REVERSAL transaction.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "transfer amount must be positive, got %d", req.Amount)
	}
	if req.From == req.To {
		return nil, types.NewError(types.ErrInvalidArgument, "cannot transfer to yourself")
	}

	if _, err := s.repo.EnsureAccount(ctx, req.To, req.ToName, req.Now); err != nil {
		return nil, err
	}

	out, err := s.repo.Debit(ctx, ledgerRepo.Entry{
		AccountID: req.From,
		Amount:    req.Amount,
		Type:      entities.TransactionTypeTransferOut,
		Reason:    fmt.Sprintf("Transfer to %s", displayName(req.ToName, req.To)),
		Timestamp: req.Now,
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, out)

	in, err := s.repo.Credit(ctx, ledgerRepo.Entry{
		AccountID: req.To,
		Amount:    req.Amount,
		Type:      entities.TransactionTypeTransferIn,
		Reason:    fmt.Sprintf("Transfer from %s", displayName(req.FromName, req.From)),
		Timestamp: req.Now,
	})
	if err != nil {
		s.logger.Warn("Transfer credit to %s failed, reversing debit of %d from %s: %v", req.To, req.Amount, req.From, err)
		s.reverse(ctx, req.From, req.Amount, "transfer reversal", req.Now)
		return nil, err
	}
	s.publisher.Transactions(ctx, in)

	s.logger.Info("Transferred %d from %s to %s", req.Amount, req.From, req.To)
	return &TransferResult{Out: out, In: in}, nil
}

// Reverse refunds a debit whose follow-up step failed
func (s *Service) Reverse(ctx context.Context, id string, amount int64, reason string, now time.Time) {
	s.reverse(ctx, id, amount, reason, now)
}

func (s *Service) reverse(ctx context.Context, id string, amount int64, reason string, now time.Time) {
	rev, err := s.repo.Credit(ctx, ledgerRepo.Entry{
		AccountID: id,
		Amount:    amount,
		Type:      entities.TransactionTypeReversal,
		Reason:    reason,
		Timestamp: now,
	})
	if err != nil {
		// the ledger still reconciles; the member is short until an operator adjusts
		s.logger.Error("Reversal of %d for %s failed: %v", amount, id, err)
		return
	}
	s.publisher.Transactions(ctx, rev)
}

// RecentTransactions returns the newest transactions of an account
func (s *Service) RecentTransactions(ctx context.Context, id string, limit int) ([]*entities.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.GetTransactions(ctx, id, limit)
}

// Reconcile checks that the balance equals the sum of recorded amounts
func (s *Service) Reconcile(ctx context.Context, id string) (*Reconciliation, error) {
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.SumTransactions(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{AccountID: id, Balance: acct.Balance, Sum: sum}
	if !rec.OK() {
		s.logger.Error("Ledger mismatch for %s: balance %d, transactions sum %d", id, rec.Balance, rec.Sum)
	}
	return rec, nil
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
