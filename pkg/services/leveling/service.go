package leveling

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

// Boosts reports active item effects; the inventory repository satisfies it
type Boosts interface {
	ActiveEffect(ctx context.Context, accountID string, effect entities.ItemEffect, now time.Time) (float64, error)
}

// Progress is the result of an xp award
type Progress struct {
	Gained    int64
	OldLevel  int
	Level     int
	XP        int64
	LeveledUp bool
}

// Service awards xp
type Service struct {
	repo   ledgerRepo.Repository
	boosts Boosts
	rng    rng.Source
	logger *logging.Logger
}

// NewService creates a leveling service. boosts may be nil.
func NewService(repo ledgerRepo.Repository, boosts Boosts, src rng.Source) *Service {
	return &Service{
		repo:   repo,
		boosts: boosts,
		rng:    src,
		logger: logging.Default.With("leveling"),
	}
}

// AddXP awards xp, multiplied by an active xp boost, and levels up as needed
func (s *Service) AddXP(ctx context.Context, accountID string, amount int64, now time.Time) (*Progress, error) {
	if amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "xp amount must be positive, got %d", amount)
	}

	if s.boosts != nil {
		boost, err := s.boosts.ActiveEffect(ctx, accountID, entities.EffectXPBoost, now)
		if err != nil {
			return nil, err
		}
		if boost > 1 {
			amount = int64(float64(amount) * boost)
		}
	}

	p := &Progress{Gained: amount}
	xp, level, err := s.repo.UpdateProgress(ctx, accountID, func(xp int64, level int) (int64, int) {
		p.OldLevel = level
		newLevel, newXP := Apply(level, xp, amount)
		return newXP, newLevel
	})
	if err != nil {
		return nil, err
	}
	p.XP, p.Level = xp, level
	p.LeveledUp = level > p.OldLevel

	if p.LeveledUp {
		s.logger.Info("%s reached level %d", accountID, level)
	}
	return p, nil
}

// MessageXP counts a chat message and awards 5-15 xp at most once per
// MessageXPCooldown. It returns nil progress while the cooldown runs.
func (s *Service) MessageXP(ctx context.Context, accountID, username string, now time.Time) (*Progress, error) {
	if _, err := s.repo.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}

	eligible, err := s.repo.TouchMessage(ctx, accountID, now, MessageXPCooldown)
	if err != nil || !eligible {
		return nil, err
	}
	return s.AddXP(ctx, accountID, int64(rng.Between(s.rng, MessageXPMin, MessageXPMax)), now)
}

// CommandXP awards the fixed xp of a command
func (s *Service) CommandXP(ctx context.Context, accountID, username, command string, now time.Time) (*Progress, error) {
	if _, err := s.repo.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}
	return s.AddXP(ctx, accountID, CommandXP(command), now)
}

// Info returns an account's level progress
func (s *Service) Info(ctx context.Context, accountID string) (LevelInfo, error) {
	acct, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return LevelInfo{}, err
	}
	return Info(acct.Level, acct.XP), nil
}
