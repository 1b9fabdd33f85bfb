package accrual

import (
	"context"
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

const (
	dailyReason        = "Daily Reward"
	dailyPremiumReason = "Daily Reward (Premium)"

	premiumTier = "premium"
)

// DailyResult is a successful daily claim
type DailyResult struct {
	Amount      int64
	Balance     int64
	Premium     bool
	NextClaim   time.Time
	Transaction *entities.Transaction
}

// PremiumResult is a successful premium activation or purchase
type PremiumResult struct {
	Package PremiumPackage
	Until   time.Time
	Balance int64
}

// Service claims daily rewards and manages premium
type Service struct {
	repo      ledgerRepo.Repository
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new accrual service
func NewService(repo ledgerRepo.Repository, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("accrual"),
	}
}

// ClaimDaily credits the daily reward once per cooldown. A claim that loses a
// race against a concurrent claim fails with ALREADY_CLAIMED and changes nothing.
func (s *Service) ClaimDaily(ctx context.Context, accountID, username string, now time.Time) (*DailyResult, error) {
	acct, err := s.repo.EnsureAccount(ctx, accountID, username, now)
	if err != nil {
		return nil, err
	}

	if ok, remaining := CanClaimDaily(acct, now); !ok {
		return nil, alreadyClaimed(remaining)
	}

	premium := acct.PremiumActive(now)
	amount := DailyAmount(s.rng, premium)
	reason := dailyReason
	if premium {
		reason = dailyPremiumReason
	}

	tx, err := s.repo.ClaimDaily(ctx, acct.LastDaily, ledgerRepo.Entry{
		AccountID: accountID,
		Amount:    amount,
		Type:      entities.TransactionTypeDaily,
		Reason:    reason,
		Timestamp: now,
	})
	if err != nil {
		if types.IsCode(err, types.ErrAlreadyClaimed) {
			return nil, alreadyClaimed(DailyCooldown(acct, now))
		}
		return nil, err
	}
	s.publisher.Transactions(ctx, tx)

	s.logger.Info("Daily reward of %d claimed by %s (premium=%t)", amount, accountID, premium)
	return &DailyResult{
		Amount:      amount,
		Balance:     tx.BalanceAfter,
		Premium:     premium,
		NextClaim:   now.Add(DailyCooldown(acct, now)),
		Transaction: tx,
	}, nil
}

func alreadyClaimed(remaining time.Duration) error {
	return types.NewCooldownError(types.ErrAlreadyClaimed,
		fmt.Sprintf("daily reward already claimed, next claim in %s", remaining.Truncate(time.Second)), remaining)
}

// ActivatePremium grants premium for days, stacking on any unexpired premium
func (s *Service) ActivatePremium(ctx context.Context, accountID string, days int, now time.Time) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, types.Errorf(types.ErrInvalidArgument, "premium days must be positive, got %d", days)
	}
	until, err := s.repo.UpdatePremium(ctx, accountID, premiumTier, func(current *time.Time) time.Time {
		return ExtendPremium(current, now, days)
	})
	if err != nil {
		return time.Time{}, err
	}
	s.logger.Info("Premium for %s active until %s", accountID, until.Format(time.RFC3339))
	return until, nil
}

// BuyPremium debits a package price and activates premium. If activation
// fails the price is refunded with a REVERSAL transaction.
func (s *Service) BuyPremium(ctx context.Context, accountID, username, packageID string, now time.Time) (*PremiumResult, error) {
	pkg, ok := FindPremiumPackage(packageID)
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "premium package %q not found", packageID)
	}

	if _, err := s.repo.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	debit, err := s.repo.Debit(ctx, ledgerRepo.Entry{
		AccountID: accountID,
		Amount:    pkg.Price,
		Type:      entities.TransactionTypePremium,
		Reason:    fmt.Sprintf("Premium %d days", pkg.Days),
		Timestamp: now,
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, debit)

	until, err := s.ActivatePremium(ctx, accountID, pkg.Days, now)
	if err != nil {
		s.logger.Warn("Premium activation for %s failed, refunding %d: %v", accountID, pkg.Price, err)
		rev, revErr := s.repo.Credit(ctx, ledgerRepo.Entry{
			AccountID: accountID,
			Amount:    pkg.Price,
			Type:      entities.TransactionTypeReversal,
			Reason:    "premium activation reversal",
			Timestamp: now,
		})
		if revErr != nil {
			s.logger.Error("Premium refund of %d for %s failed: %v", pkg.Price, accountID, revErr)
		} else {
			s.publisher.Transactions(ctx, rev)
		}
		return nil, err
	}

	return &PremiumResult{Package: pkg, Until: until, Balance: debit.BalanceAfter}, nil
}
