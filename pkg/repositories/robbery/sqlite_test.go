package robbery

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/pkg/db/dbtest"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

type SQLiteRepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	conn *sql.DB
	repo *SQLiteRepository
	now  time.Time
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositoryTestSuite))
}

func (s *SQLiteRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.conn = dbtest.Open(s.T())
	s.repo = NewSQLiteRepository(s.conn)
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	dbtest.SeedAccount(s.T(), s.conn, "thief", 500, s.now)
	dbtest.SeedAccount(s.T(), s.conn, "mark", 3000, s.now)
}

func (s *SQLiteRepositoryTestSuite) attempt(result entities.RobberyResult) entities.RobberyAttempt {
	return entities.RobberyAttempt{RobberID: "thief", VictimID: "mark", Result: result, At: s.now}
}

func (s *SQLiteRepositoryTestSuite) TestClaimCooldown() {
	claimed, _, err := s.repo.ClaimCooldown(s.ctx, "thief", 5*time.Minute, s.now)
	s.Require().NoError(err)
	s.True(claimed)

	claimed, last, err := s.repo.ClaimCooldown(s.ctx, "thief", 5*time.Minute, s.now.Add(4*time.Minute))
	s.Require().NoError(err)
	s.False(claimed)
	s.Equal(s.now, last)

	claimed, _, err = s.repo.ClaimCooldown(s.ctx, "thief", 5*time.Minute, s.now.Add(5*time.Minute))
	s.Require().NoError(err)
	s.True(claimed)
}

func (s *SQLiteRepositoryTestSuite) TestStealMovesCoinsAtomically() {
	a := s.attempt(entities.RobberySuccess)
	a.Amount = 450

	moved, txs, err := s.repo.Steal(s.ctx, a)
	s.Require().NoError(err)
	s.Equal(int64(450), moved)
	s.Len(txs, 2)
	s.Equal(int64(2550), dbtest.Balance(s.T(), s.conn, "mark"))
	s.Equal(int64(950), dbtest.Balance(s.T(), s.conn, "thief"))

	a.Amount = 9000
	moved, _, err = s.repo.Steal(s.ctx, a)
	s.Require().NoError(err)
	s.Equal(int64(2550), moved, "capped at what the victim holds")
	s.Zero(dbtest.Balance(s.T(), s.conn, "mark"))

	dbtest.AssertReconciled(s.T(), s.conn, "mark")
	dbtest.AssertReconciled(s.T(), s.conn, "thief")
}

func (s *SQLiteRepositoryTestSuite) TestPunishFinesAndJails() {
	_, err := s.repo.Jail(s.ctx, "thief", s.now)
	s.ErrorIs(err, ErrNotJailed)

	a := s.attempt(entities.RobberyCaught)
	a.Fine = 800
	a.JailMinutes = 10
	paid, t, err := s.repo.Punish(s.ctx, a, entities.JailRecord{
		Reason: "Attempted robbery", JailedAt: s.now, ReleaseAt: s.now.Add(10 * time.Minute),
	})
	s.Require().NoError(err)
	s.Equal(int64(500), paid, "the fine never exceeds the balance")
	s.Equal(int64(-500), t.Amount)
	s.Zero(dbtest.Balance(s.T(), s.conn, "thief"))

	rec, err := s.repo.Jail(s.ctx, "thief", s.now.Add(9*time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(500), rec.Fine)

	_, err = s.repo.Jail(s.ctx, "thief", s.now.Add(10*time.Minute))
	s.ErrorIs(err, ErrNotJailed, "released at release_time")
	var rows int
	s.Require().NoError(s.conn.QueryRow(`SELECT COUNT(*) FROM jail`).Scan(&rows))
	s.Zero(rows)
}

func (s *SQLiteRepositoryTestSuite) TestStats() {
	a := s.attempt(entities.RobberySuccess)
	a.Amount = 300
	_, _, err := s.repo.Steal(s.ctx, a)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.RecordFailure(s.ctx, s.attempt(entities.RobberyFailed)))

	c := s.attempt(entities.RobberyCaught)
	c.Fine = 100
	_, _, err = s.repo.Punish(s.ctx, c, entities.JailRecord{Reason: "x", JailedAt: s.now, ReleaseAt: s.now.Add(time.Minute)})
	s.Require().NoError(err)

	robber, err := s.repo.Stats(s.ctx, "thief")
	s.Require().NoError(err)
	s.Equal(3, robber.Attempts)
	s.Equal(1, robber.Successes)
	s.Equal(1, robber.Caught)
	s.Equal(int64(300), robber.TotalStolen)
	s.Equal(int64(100), robber.TotalFines)

	victim, err := s.repo.Stats(s.ctx, "mark")
	s.Require().NoError(err)
	s.Zero(victim.Attempts)
	s.Equal(1, victim.TimesRobbed)
	s.Equal(int64(300), victim.TotalLost)
}
