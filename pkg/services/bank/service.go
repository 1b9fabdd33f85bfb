// Package bank runs the interest-bearing bank: lazy daily interest, deposits
// and withdrawals against the wallet, bank-to-bank transfers, loans and
// fixed-term investments.
package bank

import (
	"context"
	"errors"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	bankRepo "github.com/19722009abc/HelpyBot/pkg/repositories/bank"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/ledger"
)

// maxInterestRetries bounds the compare-and-swap loop on last_interest_time
const maxInterestRetries = 3

// Statement is the bank account after a touch, with what the touch paid
type Statement struct {
	Account  *entities.BankAccount
	Interest int64
	Days     int64
	Matured  []*entities.Investment
}

// Service coordinates bank operations
type Service struct {
	repo      bankRepo.Repository
	accounts  ledgerRepo.Repository
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new bank service
func NewService(repo bankRepo.Repository, accounts ledgerRepo.Repository, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("bank"),
	}
}

// Account opens the bank account if needed and brings it up to date: whole
// days of interest are paid and matured investments are settled.
func (s *Service) Account(ctx context.Context, accountID, username string, now time.Time) (*Statement, error) {
	if _, err := s.accounts.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}
	acct, err := s.repo.GetOrCreate(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	return s.touch(ctx, acct, now)
}

// touch accrues interest on acct and settles its matured investments
func (s *Service) touch(ctx context.Context, acct *entities.BankAccount, now time.Time) (*Statement, error) {
	st := &Statement{}
	for attempt := 0; ; attempt++ {
		interest, days := accrual.BankInterest(acct.Balance, acct.LastInterestAt, now)
		if days <= 0 {
			break
		}
		applied, err := s.repo.ApplyInterest(ctx, acct.AccountID, acct.LastInterestAt, interest, now)
		if err != nil {
			return nil, err
		}
		if applied {
			st.Interest, st.Days = interest, days
			break
		}
		// another touch moved last_interest_time first
		if attempt >= maxInterestRetries {
			return nil, types.NewError(types.ErrInternalError, "bank interest kept racing, try again")
		}
		if acct, err = s.repo.Get(ctx, acct.AccountID); err != nil {
			return nil, err
		}
	}

	matured, err := s.repo.SettleInvestments(ctx, acct.AccountID, now)
	if err != nil {
		return nil, err
	}
	st.Matured = matured

	if st.Account, err = s.repo.Get(ctx, acct.AccountID); err != nil {
		return nil, err
	}
	if st.Interest > 0 {
		s.logger.Info("Paid %d interest (%d days) to %s", st.Interest, st.Days, acct.AccountID)
	}
	return st, nil
}

func validAmount(amount int64) error {
	if amount <= 0 {
		return types.Errorf(types.ErrInvalidArgument, "amount must be positive, got %d", amount)
	}
	return nil
}

// Deposit moves coins from the wallet into the bank
func (s *Service) Deposit(ctx context.Context, accountID, username string, amount int64, now time.Time) (*entities.BankAccount, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	if _, err := s.Account(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	acct, t, err := s.repo.Deposit(ctx, accountID, amount, now)
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, t)
	return acct, nil
}

// Withdraw moves coins from the bank into the wallet
func (s *Service) Withdraw(ctx context.Context, accountID, username string, amount int64, now time.Time) (*entities.BankAccount, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	if _, err := s.Account(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	acct, t, err := s.repo.Withdraw(ctx, accountID, amount, now)
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, t)
	return acct, nil
}

// Transfer moves coins between two bank accounts. Both sides accrue interest
// first so the transfer never changes interest already earned.
func (s *Service) Transfer(ctx context.Context, fromID, username, toID string, amount int64, now time.Time) (*entities.BankAccount, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, types.NewError(types.ErrInvalidArgument, "cannot transfer to your own bank account")
	}

	target, err := s.repo.Get(ctx, toID)
	if err != nil {
		if errors.Is(err, bankRepo.ErrBankAccountNotFound) {
			return nil, types.NewError(types.ErrNotFound, "the recipient has no bank account")
		}
		return nil, err
	}
	if _, err := s.Account(ctx, fromID, username, now); err != nil {
		return nil, err
	}
	if _, err := s.touch(ctx, target, now); err != nil {
		return nil, err
	}

	from, err := s.repo.Transfer(ctx, fromID, toID, amount, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Bank transfer of %d from %s to %s", amount, fromID, toID)
	return from, nil
}

// TakeLoan lends principal under the named plan. Only one loan may be active.
func (s *Service) TakeLoan(ctx context.Context, accountID, username, planName string, principal int64, now time.Time) (*entities.Loan, error) {
	plan, err := FindLoanPlan(planName)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(principal); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	loan, t, err := s.repo.IssueLoan(ctx, &entities.Loan{
		AccountID: accountID,
		Plan:      plan.Name,
		Principal: principal,
		Rate:      float64(plan.Rate),
		TotalDue:  plan.TotalDue(principal),
		IssuedAt:  now,
		DueAt:     now.Add(plan.Term),
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, t)
	return loan, nil
}

// RepayLoan pays up to amount toward the active loan
func (s *Service) RepayLoan(ctx context.Context, accountID string, amount int64, now time.Time) (*entities.Loan, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	loan, t, err := s.repo.RepayLoan(ctx, accountID, amount, now)
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, t)
	if loan.Status == entities.LoanStatusPaid {
		s.logger.Info("Loan %d of %s fully repaid", loan.ID, accountID)
	}
	return loan, nil
}

// ActiveLoan returns the active loan, or nil when the account owes nothing
func (s *Service) ActiveLoan(ctx context.Context, accountID string) (*entities.Loan, error) {
	loan, err := s.repo.ActiveLoan(ctx, accountID)
	if errors.Is(err, bankRepo.ErrNoActiveLoan) {
		return nil, nil
	}
	return loan, err
}

// Invest locks principal from the bank balance under the named plan. The
// return is drawn now and paid into the bank at maturity.
func (s *Service) Invest(ctx context.Context, accountID, username, planName string, principal int64, now time.Time) (*entities.Investment, error) {
	plan, err := FindInvestmentPlan(planName)
	if err != nil {
		return nil, err
	}
	if principal < MinInvestment {
		return nil, types.Errorf(types.ErrInvalidArgument, "the minimum investment is %d coins", MinInvestment)
	}
	if _, err := s.Account(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	rate, expected := plan.DrawReturn(s.rng, principal)
	return s.repo.Invest(ctx, &entities.Investment{
		AccountID:      accountID,
		Plan:           plan.Name,
		Principal:      principal,
		Rate:           rate,
		ExpectedReturn: expected,
		StartAt:        now,
		EndAt:          now.Add(plan.Term),
	})
}

// Investments lists recent investments
func (s *Service) Investments(ctx context.Context, accountID string, limit int) ([]*entities.Investment, error) {
	return s.repo.Investments(ctx, accountID, limit)
}

// Loans lists recent loans
func (s *Service) Loans(ctx context.Context, accountID string, limit int) ([]*entities.Loan, error) {
	return s.repo.Loans(ctx, accountID, limit)
}

// Transactions returns the bank statement rows, newest first
func (s *Service) Transactions(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	return s.repo.Transactions(ctx, accountID, limit)
}

// Reconcile checks that the bank balance equals the sum of its rows
func (s *Service) Reconcile(ctx context.Context, accountID string) (*ledger.Reconciliation, error) {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	rec := &ledger.Reconciliation{AccountID: accountID, Balance: acct.Balance, Sum: sum}
	if !rec.OK() {
		s.logger.Error("Bank mismatch for %s: balance %d, transactions sum %d", accountID, rec.Balance, rec.Sum)
	}
	return rec, nil
}
