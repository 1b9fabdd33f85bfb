// Package robbery lets accounts rob each other's wallets, with a cooldown,
// capture, fines and jail time.
package robbery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	robberyRepo "github.com/19722009abc/HelpyBot/pkg/repositories/robbery"
)

// JailReason is recorded on every sentence
const JailReason = "Attempted robbery"

// Result is a completed attempt
type Result struct {
	Attempt   entities.RobberyAttempt
	Chance    int
	ReleaseAt *time.Time
	Balance   int64
}

// Service coordinates robberies
type Service struct {
	repo      robberyRepo.Repository
	accounts  ledgerRepo.Repository
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new robbery service
func NewService(repo robberyRepo.Repository, accounts ledgerRepo.Repository, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("robbery"),
	}
}

func (s *Service) checkJail(ctx context.Context, accountID string, self bool, now time.Time) error {
	rec, err := s.repo.Jail(ctx, accountID, now)
	if errors.Is(err, robberyRepo.ErrNotJailed) {
		return nil
	}
	if err != nil {
		return err
	}
	if self {
		return types.NewCooldownError(types.ErrJailed,
			fmt.Sprintf("you are in jail (%s)", rec.Reason), rec.ReleaseAt.Sub(now))
	}
	return types.NewError(types.ErrJailed, "your target is in jail")
}

// Rob attempts to rob victimID. Rejections (self, jail, cooldown, a victim
// with too little) leave no trace; any attempt that passes them consumes the
// cooldown whatever its outcome.
func (s *Service) Rob(ctx context.Context, robberID, robberName, victimID string, now time.Time) (*Result, error) {
	if robberID == victimID {
		return nil, types.NewError(types.ErrInvalidArgument, "you cannot rob yourself")
	}

	if err := s.checkJail(ctx, robberID, true, now); err != nil {
		return nil, err
	}
	if err := s.checkJail(ctx, victimID, false, now); err != nil {
		return nil, err
	}

	robber, err := s.accounts.EnsureAccount(ctx, robberID, robberName, now)
	if err != nil {
		return nil, err
	}
	victim, err := s.accounts.GetAccount(ctx, victimID)
	if err != nil {
		return nil, err
	}
	if victim.Balance < MinVictimCoins {
		return nil, types.Errorf(types.ErrInvalidState, "your target needs at least %d coins to be worth robbing", MinVictimCoins)
	}

	claimed, last, err := s.repo.ClaimCooldown(ctx, robberID, Cooldown, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, types.NewCooldownError(types.ErrCooldownActive,
			"you must wait before robbing again", last.Add(Cooldown).Sub(now))
	}

	roll := Resolve(s.rng, robber.Balance, victim.Balance)
	res := &Result{
		Chance: roll.Chance,
		Attempt: entities.RobberyAttempt{
			RobberID: robberID,
			VictimID: victimID,
			Result:   roll.Result,
			At:       now,
		},
	}

	switch roll.Result {
	case entities.RobberySuccess:
		res.Attempt.Amount = roll.Amount
		moved, txs, err := s.repo.Steal(ctx, res.Attempt)
		if err != nil {
			return nil, err
		}
		res.Attempt.Amount = moved
		s.publisher.Transactions(ctx, txs...)
	case entities.RobberyCaught:
		res.Attempt.Fine = roll.Fine
		res.Attempt.JailMinutes = roll.JailMinutes
		release := now.Add(time.Duration(roll.JailMinutes) * time.Minute)
		paid, t, err := s.repo.Punish(ctx, res.Attempt, entities.JailRecord{
			AccountID: robberID,
			Reason:    JailReason,
			JailedAt:  now,
			ReleaseAt: release,
		})
		if err != nil {
			return nil, err
		}
		res.Attempt.Fine = paid
		res.ReleaseAt = &release
		s.publisher.Transactions(ctx, t)
	default:
		if err := s.repo.RecordFailure(ctx, res.Attempt); err != nil {
			return nil, err
		}
	}

	if acct, err := s.accounts.GetAccount(ctx, robberID); err == nil {
		res.Balance = acct.Balance
	}
	s.publisher.Outcome(ctx, outcome(res.Attempt))
	return res, nil
}

func outcome(a entities.RobberyAttempt) *entities.Outcome {
	o := &entities.Outcome{
		Game:      entities.GameRobbery,
		AccountID: a.RobberID,
		Result:    entities.StringResultLose,
		Detail:    string(a.Result),
		At:        a.At,
	}
	if a.Result == entities.RobberySuccess && a.Amount > 0 {
		o.Result = entities.StringResultWin
		o.Payout = a.Amount
	}
	if a.Fine > 0 {
		o.Stake = a.Fine
	}
	return o
}

// Jail returns the account's running sentence, or nil when free
func (s *Service) Jail(ctx context.Context, accountID string, now time.Time) (*entities.JailRecord, error) {
	rec, err := s.repo.Jail(ctx, accountID, now)
	if errors.Is(err, robberyRepo.ErrNotJailed) {
		return nil, nil
	}
	return rec, err
}

// Stats returns the account's robbery statistics
func (s *Service) Stats(ctx context.Context, accountID string) (*entities.RobberyStats, error) {
	return s.repo.Stats(ctx, accountID)
}
