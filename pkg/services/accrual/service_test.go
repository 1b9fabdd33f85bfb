package accrual

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

// failingPremiumRepo breaks premium activation
type failingPremiumRepo struct {
	*ledgerRepo.MemoryRepository
}

func (failingPremiumRepo) UpdatePremium(context.Context, string, string, func(*time.Time) time.Time) (time.Time, error) {
	return time.Time{}, types.StorageError("update premium", errors.New("locked"))
}

type ServiceTestSuite struct {
	suite.Suite
	ctx  context.Context
	repo *ledgerRepo.MemoryRepository
	src  *rng.Scripted
	svc  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = ledgerRepo.NewMemoryRepository()
	s.src = rng.NewScripted(nil, nil)
	s.svc = NewService(s.repo, s.src, analytics.NewPublisher(nil))
}

func (s *ServiceTestSuite) balance(id string) int64 {
	acct, err := s.repo.GetAccount(s.ctx, id)
	s.Require().NoError(err)
	return acct.Balance
}

func (s *ServiceTestSuite) TestNonPremiumDailySchedule() {
	s.src.PushInts(200, 0)

	first, err := s.svc.ClaimDaily(s.ctx, "u1", "ana", t0)
	s.Require().NoError(err)
	s.Equal(int64(1200), first.Amount)
	s.False(first.Premium)
	s.Equal("Daily Reward", first.Transaction.Reason)

	_, err = s.svc.ClaimDaily(s.ctx, "u1", "ana", t0.Add(time.Hour))
	s.True(types.IsCode(err, types.ErrAlreadyClaimed))
	var econErr *types.EconomyError
	s.Require().True(types.As(err, &econErr))
	s.Equal(23*time.Hour, econErr.RetryAfter)
	s.Equal(int64(1200), s.balance("u1"), "a rejected claim changes nothing")

	second, err := s.svc.ClaimDaily(s.ctx, "u1", "ana", t0.Add(24*time.Hour+time.Second))
	s.Require().NoError(err)
	s.Equal(int64(1000), second.Amount)
	s.Equal(int64(2200), s.balance("u1"))

	daily, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeDaily, 10)
	s.Len(daily, 2)
}

func (s *ServiceTestSuite) TestPremiumDaily() {
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", t0)
	s.Require().NoError(err)
	_, err = s.svc.ActivatePremium(s.ctx, "u1", 30, t0)
	s.Require().NoError(err)

	s.src.PushInts(200, 0)
	result, err := s.svc.ClaimDaily(s.ctx, "u1", "ana", t0)
	s.Require().NoError(err)
	s.True(result.Premium)
	s.Equal(int64(1800), result.Amount)
	s.Equal("Daily Reward (Premium)", result.Transaction.Reason)
	s.Equal(t0.Add(20*time.Hour), result.NextClaim)

	_, err = s.svc.ClaimDaily(s.ctx, "u1", "ana", t0.Add(19*time.Hour))
	s.True(types.IsCode(err, types.ErrAlreadyClaimed))

	_, err = s.svc.ClaimDaily(s.ctx, "u1", "ana", t0.Add(20*time.Hour))
	s.NoError(err)
}

func (s *ServiceTestSuite) TestConcurrentClaimsCreditOnce() {
	ints := make([]int, 20)
	s.src.PushInts(ints...)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.ClaimDaily(s.ctx, "u1", "ana", t0); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				s.True(types.IsCode(err, types.ErrAlreadyClaimed))
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
	s.Equal(int64(1000), s.balance("u1"))
}

func (s *ServiceTestSuite) TestActivatePremiumStacks() {
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", t0)
	s.Require().NoError(err)

	until, err := s.svc.ActivatePremium(s.ctx, "u1", 15, t0)
	s.Require().NoError(err)
	s.Equal(t0.Add(15*24*time.Hour), until)

	until, err = s.svc.ActivatePremium(s.ctx, "u1", 30, t0.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Equal(t0.Add(45*24*time.Hour), until)

	_, err = s.svc.ActivatePremium(s.ctx, "u1", 0, t0)
	s.True(types.IsCode(err, types.ErrInvalidArgument))
}

func (s *ServiceTestSuite) TestBuyPremium() {
	s.repo.SetBalance("u1", 20000, t0)

	result, err := s.svc.BuyPremium(s.ctx, "u1", "ana", "30d", t0)
	s.Require().NoError(err)
	s.Equal(int64(2000), result.Balance)
	s.Equal(t0.Add(30*24*time.Hour), result.Until)

	_, err = s.svc.BuyPremium(s.ctx, "u1", "ana", "15d", t0)
	s.True(types.IsCode(err, types.ErrInsufficientFunds))

	_, err = s.svc.BuyPremium(s.ctx, "u1", "ana", "forever", t0)
	s.True(types.IsCode(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestBuyPremiumRefundsWhenActivationFails() {
	s.repo.SetBalance("u1", 10000, t0)
	svc := NewService(failingPremiumRepo{s.repo}, s.src, analytics.NewPublisher(nil))

	_, err := svc.BuyPremium(s.ctx, "u1", "ana", "15d", t0)
	s.True(types.IsCode(err, types.ErrStorage))
	s.Equal(int64(10000), s.balance("u1"))

	reversals, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeReversal, 10)
	s.Require().Len(reversals, 1)
	s.Equal("premium activation reversal", reversals[0].Reason)

	sum, _ := s.repo.SumTransactions(s.ctx, "u1")
	s.Equal(int64(10000), sum)
}
