package leveling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
)

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, int64(150), XPForNextLevel(1))
	assert.Equal(t, int64(300), XPForNextLevel(2))
	assert.Equal(t, int64(1500), XPForNextLevel(10))
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name      string
		level     int
		xp        int64
		gained    int64
		wantLevel int
		wantXP    int64
	}{
		{"below threshold", 1, 0, 149, 1, 149},
		{"exact threshold", 1, 100, 50, 2, 0},
		{"carry over", 1, 140, 20, 2, 10},
		{"several levels", 1, 0, 150 + 300 + 450 + 5, 4, 5},
		{"zero level is treated as one", 0, 0, 150, 2, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			level, xp := Apply(tc.level, tc.xp, tc.gained)
			assert.Equal(t, tc.wantLevel, level)
			assert.Equal(t, tc.wantXP, xp)
		})
	}
}

func TestCommandXP(t *testing.T) {
	assert.Equal(t, int64(25), CommandXP("daily"))
	assert.Equal(t, int64(15), CommandXP("premium"))
	assert.Equal(t, int64(DefaultCommandXP), CommandXP("roulette"))
}

func TestInfo(t *testing.T) {
	info := Info(2, 75)
	assert.Equal(t, int64(300), info.Needed)
	assert.InDelta(t, 25.0, info.Progress, 0.001)
}

type MockBoosts struct {
	mock.Mock
}

func (m *MockBoosts) ActiveEffect(ctx context.Context, accountID string, effect entities.ItemEffect, now time.Time) (float64, error) {
	args := m.Called(ctx, accountID, effect, now)
	return args.Get(0).(float64), args.Error(1)
}

type ServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	repo   *ledgerRepo.MemoryRepository
	boosts *MockBoosts
	src    *rng.Scripted
	svc    *Service
	now    time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = ledgerRepo.NewMemoryRepository()
	s.boosts = new(MockBoosts)
	s.src = rng.NewScripted(nil, nil)
	s.svc = NewService(s.repo, s.boosts, s.src)
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (s *ServiceTestSuite) TestMessageXPRespectsCooldown() {
	s.boosts.On("ActiveEffect", s.ctx, "u1", entities.EffectXPBoost, mock.Anything).Return(0.0, nil)
	s.src.PushInts(5, 10)

	p, err := s.svc.MessageXP(s.ctx, "u1", "ana", s.now)
	s.Require().NoError(err)
	s.Require().NotNil(p)
	s.Equal(int64(10), p.Gained)

	p, err = s.svc.MessageXP(s.ctx, "u1", "ana", s.now.Add(30*time.Second))
	s.Require().NoError(err)
	s.Nil(p, "cooldown")

	p, err = s.svc.MessageXP(s.ctx, "u1", "ana", s.now.Add(60*time.Second))
	s.Require().NoError(err)
	s.Require().NotNil(p)
	s.Equal(int64(15), p.Gained)
	s.Equal(int64(25), p.XP)

	acct, _ := s.repo.GetAccount(s.ctx, "u1")
	s.Equal(int64(3), acct.MessagesCount, "every message is counted")
}

func (s *ServiceTestSuite) TestCommandXPLevelsUp() {
	s.boosts.On("ActiveEffect", s.ctx, "u1", entities.EffectXPBoost, s.now).Return(0.0, nil)
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", s.now)
	s.Require().NoError(err)
	_, _, err = s.repo.UpdateProgress(s.ctx, "u1", func(int64, int) (int64, int) { return 140, 1 })
	s.Require().NoError(err)

	p, err := s.svc.CommandXP(s.ctx, "u1", "ana", "daily", s.now)
	s.Require().NoError(err)
	s.True(p.LeveledUp)
	s.Equal(1, p.OldLevel)
	s.Equal(2, p.Level)
	s.Equal(int64(15), p.XP)

	info, err := s.svc.Info(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(2, info.Level)
}

func (s *ServiceTestSuite) TestXPBoostMultiplies() {
	s.boosts.On("ActiveEffect", s.ctx, "u1", entities.EffectXPBoost, s.now).Return(2.0, nil)
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", s.now)
	s.Require().NoError(err)

	p, err := s.svc.AddXP(s.ctx, "u1", 20, s.now)
	s.Require().NoError(err)
	s.Equal(int64(40), p.Gained)
	s.boosts.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestAddXPValidation() {
	_, err := s.svc.AddXP(s.ctx, "u1", 0, s.now)
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	s.boosts.On("ActiveEffect", s.ctx, "ghost", entities.EffectXPBoost, s.now).Return(0.0, nil)
	_, err = s.svc.AddXP(s.ctx, "ghost", 10, s.now)
	s.True(types.IsCode(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestNilBoosts() {
	svc := NewService(s.repo, nil, s.src)
	_, err := s.repo.EnsureAccount(s.ctx, "u1", "ana", s.now)
	s.Require().NoError(err)

	p, err := svc.AddXP(s.ctx, "u1", 20, s.now)
	s.Require().NoError(err)
	s.Equal(int64(20), p.Gained)
}
