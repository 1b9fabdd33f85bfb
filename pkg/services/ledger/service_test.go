package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *ledgerRepo.MemoryRepository
	sink    *analytics.MemorySink
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = ledgerRepo.NewMemoryRepository()
	s.sink = analytics.NewMemorySink()
	s.service = NewService(s.repo, analytics.NewPublisher(s.sink))
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceTestSuite) assertReconciled(id string) {
	rec, err := s.service.Reconcile(s.ctx, id)
	s.Require().NoError(err)
	s.True(rec.OK(), "balance %d != sum %d", rec.Balance, rec.Sum)
}

func (s *ServiceTestSuite) TestTransferMovesCoins() {
	s.repo.SetBalance("a", 1000, s.now)

	result, err := s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "b", FromName: "ana", ToName: "bia", Amount: 300, Now: s.now})
	s.Require().NoError(err)
	s.Equal(int64(-300), result.Out.Amount)
	s.Equal(int64(300), result.In.Amount)
	s.Equal("Transfer to bia", result.Out.Reason)

	balanceA, _ := s.service.Balance(s.ctx, "a")
	balanceB, _ := s.service.Balance(s.ctx, "b")
	s.Equal(int64(700), balanceA)
	s.Equal(int64(300), balanceB, "receiver account is created lazily")

	s.assertReconciled("a")
	s.assertReconciled("b")
	s.Len(s.sink.Transactions(), 2)
}

func (s *ServiceTestSuite) TestTransferInsufficientFundsLeavesNoRows() {
	s.repo.SetBalance("a", 400, s.now)

	_, err := s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "b", Amount: 500, Now: s.now})
	s.True(types.IsCode(err, types.ErrInsufficientFunds))

	out, _ := s.service.RecentTransactions(s.ctx, "a", 10)
	in, _ := s.service.RecentTransactions(s.ctx, "b", 10)
	s.Len(out, 1, "only the seed adjustment")
	s.Empty(in)
	s.Empty(s.sink.Transactions())
}

func (s *ServiceTestSuite) TestTransferValidation() {
	s.repo.SetBalance("a", 400, s.now)

	_, err := s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "a", Amount: 10, Now: s.now})
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	_, err = s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "b", Amount: 0, Now: s.now})
	s.True(types.IsCode(err, types.ErrInvalidArgument))
}

func (s *ServiceTestSuite) TestTransferReversesWhenCreditFails() {
	s.repo.SetBalance("a", 1000, s.now)
	s.repo.SetBalance("b", 0, s.now)
	s.repo.FailCredits["b"] = errors.New("disk full")

	_, err := s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "b", Amount: 250, Now: s.now})
	s.True(types.IsCode(err, types.ErrStorage))

	balance, _ := s.service.Balance(s.ctx, "a")
	s.Equal(int64(1000), balance)

	reversals, err := s.repo.GetTransactionsByType(s.ctx, "a", entities.TransactionTypeReversal, 10)
	s.Require().NoError(err)
	s.Require().Len(reversals, 1)
	s.Equal(int64(250), reversals[0].Amount)
	s.Equal("transfer reversal", reversals[0].Reason)
	s.assertReconciled("a")
}

func (s *ServiceTestSuite) TestNoNegativeBalanceUnderConcurrency() {
	s.repo.SetBalance("a", 500, s.now)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.service.Debit(s.ctx, "a", 60, entities.TransactionTypeBet, "bet", s.now)
			} else {
				_, _ = s.service.Transfer(s.ctx, TransferRequest{From: "a", To: "b", Amount: 45, Now: s.now})
			}
		}(i)
	}
	wg.Wait()

	balance, err := s.service.Balance(s.ctx, "a")
	s.Require().NoError(err)
	s.GreaterOrEqual(balance, int64(0))
	s.assertReconciled("a")
	s.assertReconciled("b")
}

func (s *ServiceTestSuite) TestCreditDebit() {
	_, err := s.service.EnsureAccount(s.ctx, "a", "ana", s.now)
	s.Require().NoError(err)

	balance, err := s.service.Credit(s.ctx, "a", 120, entities.TransactionTypeReward, "reward", s.now)
	s.Require().NoError(err)
	s.Equal(int64(120), balance)

	balance, err = s.service.Debit(s.ctx, "a", 20, entities.TransactionTypePurchase, "buy", s.now)
	s.Require().NoError(err)
	s.Equal(int64(100), balance)

	_, err = s.service.Debit(s.ctx, "a", 101, entities.TransactionTypePurchase, "buy", s.now)
	s.True(types.IsCode(err, types.ErrInsufficientFunds))

	_, err = s.service.EnsureAccount(s.ctx, "", "", s.now)
	s.True(types.IsCode(err, types.ErrInvalidArgument))
	s.assertReconciled("a")
}
