package robbery

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/db/dbtest"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	robberyRepo "github.com/19722009abc/HelpyBot/pkg/repositories/robbery"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	conn    *sql.DB
	src     *rng.Scripted
	sink    *analytics.MemorySink
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.conn = dbtest.Open(s.T())
	s.src = rng.NewScripted(nil, nil)
	s.sink = analytics.NewMemorySink()
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.service = NewService(
		robberyRepo.NewSQLiteRepository(s.conn),
		ledgerRepo.NewSQLiteRepository(s.conn),
		s.src,
		analytics.NewPublisher(s.sink),
	)

	dbtest.SeedAccount(s.T(), s.conn, "thief", 5000, s.now)
	dbtest.SeedAccount(s.T(), s.conn, "mark", 5000, s.now)
}

func (s *ServiceTestSuite) retryAfter(err error) time.Duration {
	var econErr *types.EconomyError
	s.Require().True(errors.As(err, &econErr))
	return econErr.RetryAfter
}

func (s *ServiceTestSuite) TestSuccessfulRobbery() {
	s.src.PushInts(0, 99).PushFloats(0.0)

	res, err := s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now)
	s.Require().NoError(err)
	s.Equal(entities.RobberySuccess, res.Attempt.Result)
	s.Equal(int64(500), res.Attempt.Amount)
	s.Equal(int64(5500), res.Balance)
	s.Equal(int64(4500), dbtest.Balance(s.T(), s.conn, "mark"))
	s.Len(s.sink.Transactions(), 2)
	s.Require().Len(s.sink.Outcomes(), 1)
	s.True(s.sink.Outcomes()[0].Won())

	dbtest.AssertReconciled(s.T(), s.conn, "thief")
	dbtest.AssertReconciled(s.T(), s.conn, "mark")
}

func (s *ServiceTestSuite) TestCooldownAppliesWhateverTheOutcome() {
	s.src.PushInts(99, 99)
	res, err := s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now)
	s.Require().NoError(err)
	s.Equal(entities.RobberyFailed, res.Attempt.Result)

	_, err = s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now.Add(2*time.Minute))
	s.True(types.IsCode(err, types.ErrCooldownActive))
	s.Equal(3*time.Minute, s.retryAfter(err))

	s.src.PushInts(99, 99)
	_, err = s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now.Add(Cooldown))
	s.Require().NoError(err)
	ints, floats := s.src.Remaining()
	s.Zero(ints)
	s.Zero(floats)
}

func (s *ServiceTestSuite) TestCaughtRobberIsFinedAndJailed() {
	s.src.PushInts(10, 5, 5).PushFloats(0.0, 0.5, 0.0)

	res, err := s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now)
	s.Require().NoError(err)
	s.Equal(entities.RobberyCaught, res.Attempt.Result)
	s.Equal(int64(500), res.Attempt.Fine)
	s.Equal(10, res.Attempt.JailMinutes)
	s.Require().NotNil(res.ReleaseAt)
	s.Equal(int64(4500), dbtest.Balance(s.T(), s.conn, "thief"))
	s.Equal(int64(5000), dbtest.Balance(s.T(), s.conn, "mark"))

	_, err = s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now.Add(6*time.Minute))
	s.True(types.IsCode(err, types.ErrJailed))
	s.Equal(4*time.Minute, s.retryAfter(err))

	_, err = s.service.Rob(s.ctx, "mark", "Mark", "thief", s.now.Add(6*time.Minute))
	s.True(types.IsCode(err, types.ErrJailed), "a jailed account cannot be robbed")

	rec, err := s.service.Jail(s.ctx, "thief", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(JailReason, rec.Reason)

	rec, err = s.service.Jail(s.ctx, "thief", s.now.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Nil(rec)
	dbtest.AssertReconciled(s.T(), s.conn, "thief")
}

func (s *ServiceTestSuite) TestRejectionsLeaveNoTrace() {
	_, err := s.service.Rob(s.ctx, "thief", "Thief", "thief", s.now)
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	_, err = s.service.Rob(s.ctx, "thief", "Thief", "ghost", s.now)
	s.True(types.IsCode(err, types.ErrNotFound))

	dbtest.SeedAccount(s.T(), s.conn, "broke", 99, s.now)
	_, err = s.service.Rob(s.ctx, "thief", "Thief", "broke", s.now)
	s.True(types.IsCode(err, types.ErrInvalidState))

	// none of the rejections consumed the cooldown
	s.src.PushInts(99, 99)
	_, err = s.service.Rob(s.ctx, "thief", "Thief", "mark", s.now)
	s.Require().NoError(err)

	stats, err := s.service.Stats(s.ctx, "thief")
	s.Require().NoError(err)
	s.Equal(1, stats.Attempts)
}
