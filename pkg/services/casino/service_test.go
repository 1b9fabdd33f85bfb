package casino

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/storage"
	"github.com/19722009abc/HelpyBot/pkg/storage/file"
	storagemock "github.com/19722009abc/HelpyBot/pkg/storage/mock"
)

type MockGranter struct {
	mock.Mock
}

func (m *MockGranter) GrantFragments(ctx context.Context, accountID string, grant entities.FragmentSet, now time.Time) (entities.FragmentSet, error) {
	args := m.Called(ctx, accountID, grant, now)
	return args.Get(0).(entities.FragmentSet), args.Error(1)
}

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	tempDir string
	repo    *ledgerRepo.MemoryRepository
	granter *MockGranter
	sink    *analytics.MemorySink
	src     *rng.Scripted
	svc     *Service
	player  Player
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	tempDir, err := os.MkdirTemp("", "casino-test")
	s.Require().NoError(err)
	s.tempDir = tempDir
	sessions, err := file.New(&storage.Options{Path: filepath.Join(tempDir, "sessions.json")})
	s.Require().NoError(err)

	s.repo = ledgerRepo.NewMemoryRepository()
	s.repo.SetBalance("u1", 1000, s.now)
	s.granter = new(MockGranter)
	s.sink = analytics.NewMemorySink()
	s.src = rng.NewScripted(nil, nil)

	xp := leveling.NewService(s.repo, nil, s.src)
	s.svc = NewService(s.repo, s.granter, xp, sessions, s.src, analytics.NewPublisher(s.sink))
	s.player = Player{AccountID: "u1", Username: "ana", GuildID: "g1"}
}

func (s *ServiceTestSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func (s *ServiceTestSuite) balance() int64 {
	acct, err := s.repo.GetAccount(s.ctx, "u1")
	s.Require().NoError(err)
	return acct.Balance
}

func (s *ServiceTestSuite) assertReconciles() {
	sum, err := s.repo.SumTransactions(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(s.balance(), sum)
}

func (s *ServiceTestSuite) TestRouletteGreenWin() {
	rare := entities.FragmentSet{0, 0, 1, 0, 0}
	s.granter.On("GrantFragments", s.ctx, "u1", rare, s.now).Return(rare, nil)
	s.src.PushInts(90, 0, 99, 99)

	round, result, err := s.svc.Roulette(s.ctx, s.player, 100, Green, s.now)
	s.Require().NoError(err)

	s.Equal(Green, round.Landed.Color)
	s.Equal(int64(1400), result.Outcome.Payout)
	s.Equal(int64(2300), result.Balance)
	s.Equal(rare, result.Fragments)
	s.Equal(int64(2300), s.balance())
	s.assertReconciles()

	bets, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeBet, 10)
	payouts, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypePayout, 10)
	s.Require().Len(bets, 1)
	s.Require().Len(payouts, 1)
	s.Equal(int64(-100), bets[0].Amount)
	s.Equal(int64(1400), payouts[0].Amount)

	s.Require().Len(s.sink.Outcomes(), 1)
	s.Equal("u1", s.sink.Outcomes()[0].AccountID)
	s.granter.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestRouletteLossKeepsOnlyTheBet() {
	s.src.PushInts(0)

	_, result, err := s.svc.Roulette(s.ctx, s.player, 100, Black, s.now)
	s.Require().NoError(err)
	s.False(result.Outcome.Won())
	s.Equal(int64(900), result.Balance)
	s.assertReconciles()
	s.granter.AssertNotCalled(s.T(), "GrantFragments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestDiceRejectsBeforeDebiting() {
	_, _, err := s.svc.Dice(s.ctx, s.player, 100, 13, s.now)
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	_, _, err = s.svc.Dice(s.ctx, s.player, 5, 7, s.now)
	s.True(types.IsCode(err, types.ErrInvalidArgument))

	_, _, err = s.svc.Dice(s.ctx, s.player, 5000, 7, s.now)
	s.True(types.IsCode(err, types.ErrInsufficientFunds))

	s.Equal(int64(1000), s.balance())
	bets, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeBet, 10)
	s.Empty(bets)
}

func (s *ServiceTestSuite) TestDiceWin() {
	s.src.PushInts(2, 3)

	round, result, err := s.svc.Dice(s.ctx, s.player, 100, 7, s.now)
	s.Require().NoError(err)
	s.Equal(7, round.Sum())
	s.Equal(int64(1500), result.Balance)
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestGuessRound() {
	s.src.PushInts(6)

	round, err := s.svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyMedium, s.now)
	s.Require().NoError(err)
	s.Equal(10, round.Max)
	s.Equal(int64(900), s.balance())

	_, err = s.svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyMedium, s.now)
	s.True(types.IsCode(err, types.ErrInvalidState), "one round at a time")

	_, result, err := s.svc.Guess(s.ctx, s.player, 3, s.now.Add(10*time.Second))
	s.Require().NoError(err)
	s.False(result.Outcome.Won())
	s.Equal(int64(900), result.Balance)

	_, _, err = s.svc.Guess(s.ctx, s.player, 7, s.now.Add(20*time.Second))
	s.True(types.IsCode(err, types.ErrNotFound), "the round was settled")
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestGuessWin() {
	s.granter.On("GrantFragments", s.ctx, "u1", entities.FragmentSet{3, 1, 0, 0, 0}, mock.Anything).
		Return(entities.FragmentSet{6, 2, 0, 0, 0}, nil)
	s.src.PushInts(6, 0, 2, 49, 0, 20, 99)

	_, err := s.svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyMedium, s.now)
	s.Require().NoError(err)

	_, result, err := s.svc.Guess(s.ctx, s.player, 7, s.now.Add(5*time.Second))
	s.Require().NoError(err)
	s.True(result.Outcome.Won())
	s.Equal(int64(1200), result.Balance)
	s.Equal(entities.FragmentSet{6, 2, 0, 0, 0}, result.Fragments, "boosted grant is reported")
}

func (s *ServiceTestSuite) TestExpiredGuessForfeitsStake() {
	s.src.PushInts(3)
	_, err := s.svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)

	_, _, err = s.svc.Guess(s.ctx, s.player, 7, s.now.Add(GuessTTL))
	s.True(types.IsCode(err, types.ErrNotFound))
	s.Equal(int64(900), s.balance())

	s.src.PushInts(0)
	_, err = s.svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyEasy, s.now.Add(GuessTTL))
	s.NoError(err, "a new round can start after expiry")
}

func (s *ServiceTestSuite) TestHangmanGame() {
	s.granter.On("GrantFragments", s.ctx, "u1", entities.FragmentSet{1, 0, 0, 0, 0}, mock.Anything).
		Return(entities.FragmentSet{1, 0, 0, 0, 0}, nil)
	s.src.PushInts(0, 0)

	game, err := s.svc.StartHangman(s.ctx, s.player, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)
	s.Equal("cat", game.Word)

	turn, err := s.svc.GuessLetter(s.ctx, s.player, "c", s.now.Add(time.Second))
	s.Require().NoError(err)
	s.True(turn.Hit)
	s.Nil(turn.Settlement)

	_, err = s.svc.GuessLetter(s.ctx, s.player, "c", s.now.Add(2*time.Second))
	s.True(types.IsCode(err, types.ErrInvalidArgument), "state survives between turns")

	_, err = s.svc.GuessLetter(s.ctx, s.player, "a", s.now.Add(3*time.Second))
	s.Require().NoError(err)

	s.src.PushInts(0, 0, 50, 99)
	turn, err = s.svc.GuessLetter(s.ctx, s.player, "t", s.now.Add(4*time.Second))
	s.Require().NoError(err)
	s.Equal(HangmanWon, turn.Game.Status)
	s.Require().NotNil(turn.Settlement)
	s.Equal(int64(225), turn.Settlement.Outcome.Payout)
	s.Equal(int64(1225), turn.Settlement.Balance)
	s.Require().NotNil(turn.Settlement.Progress)
	s.Equal(int64(10), turn.Settlement.Progress.XP)

	_, err = s.svc.GuessLetter(s.ctx, s.player, "x", s.now.Add(5*time.Second))
	s.True(types.IsCode(err, types.ErrNotFound))
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestHangmanGiveUp() {
	s.src.PushInts(2, 9)
	_, err := s.svc.StartHangman(s.ctx, s.player, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)

	turn, err := s.svc.GiveUpHangman(s.ctx, s.player, s.now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(HangmanAbandoned, turn.Game.Status)
	s.Zero(turn.Settlement.Outcome.Payout)
	s.Equal(int64(1000), s.balance())

	_, err = s.svc.GiveUpHangman(s.ctx, s.player, s.now.Add(2*time.Second))
	s.True(types.IsCode(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestQuiz() {
	s.granter.On("GrantFragments", s.ctx, "u1", entities.FragmentSet{1, 0, 0, 0, 0}, mock.Anything).
		Return(entities.FragmentSet{1, 0, 0, 0, 0}, nil)
	s.src.PushInts(0, 0, 0)

	quiz, err := s.svc.StartQuiz(s.ctx, s.player, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)
	s.Equal([]int{0, 1, 2}, quiz.Questions)

	for i, choice := range []int{1, 2} {
		turn, err := s.svc.AnswerQuiz(s.ctx, s.player, choice, s.now.Add(time.Duration(i+1)*time.Second))
		s.Require().NoError(err)
		s.True(turn.Correct)
		s.Nil(turn.Settlement)
	}

	s.src.PushInts(0, 0, 99, 99)
	turn, err := s.svc.AnswerQuiz(s.ctx, s.player, 0, s.now.Add(5*time.Second))
	s.Require().NoError(err)
	s.Equal(&QuestionBank[2], turn.Answered)
	s.Require().NotNil(turn.Settlement)
	s.Equal(int64(75), turn.Settlement.Outcome.Payout)
	s.Equal(int64(1075), turn.Settlement.Balance)
	s.Equal(int64(15), turn.Settlement.Progress.XP)
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestFailedPayoutIsReported() {
	s.repo.FailCredits = map[string]error{"u1": errors.New("disk full")}
	s.src.PushInts(0)

	_, _, err := s.svc.Roulette(s.ctx, s.player, 100, Red, s.now)
	s.True(types.IsCode(err, types.ErrStorage))
	s.Equal(int64(900), s.balance(), "the bet stays debited")
	s.Empty(s.sink.Outcomes())
}

func (s *ServiceTestSuite) TestUnsavedGuessRoundIsRefunded() {
	sessions := storagemock.New()
	sessions.On("Load", s.ctx, mock.Anything, s.now).Return(nil, storage.ErrSessionNotFound)
	sessions.On("Create", s.ctx, mock.Anything, s.now).Return(errors.New("read-only filesystem"))
	svc := NewService(s.repo, s.granter, nil, sessions, s.src, analytics.NewPublisher(s.sink))
	s.src.PushInts(3)

	_, err := svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyEasy, s.now)
	s.Require().Error(err)

	s.Equal(int64(1000), s.balance())
	reversals, _ := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeReversal, 10)
	s.Len(reversals, 1)
	s.assertReconciles()
	sessions.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestStoreFailureBlocksNewRound() {
	sessions := storagemock.New()
	sessions.On("Load", s.ctx, mock.Anything, s.now).Return(nil, types.StorageError("load session", errors.New("corrupt")))
	svc := NewService(s.repo, s.granter, nil, sessions, s.src, analytics.NewPublisher(s.sink))

	_, err := svc.StartHangman(s.ctx, s.player, entities.DifficultyEasy, s.now)
	s.True(types.IsCode(err, types.ErrStorage))
	sessions.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything, mock.Anything)
}

// loadBarrier holds every Load until n of them happened, so concurrent
// callers all see the session before any of them acts on it
type loadBarrier struct {
	storage.Store
	wg sync.WaitGroup
}

func newLoadBarrier(store storage.Store, n int) *loadBarrier {
	b := &loadBarrier{Store: store}
	b.wg.Add(n)
	return b
}

func (b *loadBarrier) Load(ctx context.Context, key storage.Key, now time.Time) (*storage.Session, error) {
	session, err := b.Store.Load(ctx, key, now)
	b.wg.Done()
	b.wg.Wait()
	return session, err
}

func (s *ServiceTestSuite) newSessions() *file.Storage {
	sessions, err := file.New(&storage.Options{Path: filepath.Join(s.tempDir, "concurrent.json")})
	s.Require().NoError(err)
	return sessions
}

func (s *ServiceTestSuite) TestConcurrentGuessesSettleOnce() {
	s.granter.On("GrantFragments", mock.Anything, "u1", mock.Anything, mock.Anything).
		Return(entities.FragmentSet{}, nil)
	sessions := s.newSessions()
	src := rng.Fixed{}
	xp := leveling.NewService(s.repo, nil, src)
	setup := NewService(s.repo, s.granter, xp, sessions, src, analytics.NewPublisher(s.sink))

	round, err := setup.StartGuess(s.ctx, s.player, 100, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)
	s.Equal(1, round.Secret)

	svc := NewService(s.repo, s.granter, xp, newLoadBarrier(sessions, 2), src, analytics.NewPublisher(s.sink))
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Guess(s.ctx, s.player, round.Secret, s.now.Add(time.Second))
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, err := range errs {
		if err == nil {
			settled++
			continue
		}
		s.True(types.IsCode(err, types.ErrNotFound), "the losing press sees no round: %v", err)
	}
	s.Equal(1, settled)

	payouts, err := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypePayout, 10)
	s.Require().NoError(err)
	s.Len(payouts, 1)
	s.Equal(int64(1100), s.balance())
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestConcurrentStartsKeepOneRound() {
	sessions := s.newSessions()
	svc := NewService(s.repo, s.granter, nil, newLoadBarrier(sessions, 2), rng.Fixed{}, analytics.NewPublisher(s.sink))

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.StartGuess(s.ctx, s.player, 100, entities.DifficultyEasy, s.now)
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
			continue
		}
		s.True(types.IsCode(err, types.ErrInvalidState), "the second start is rejected: %v", err)
	}
	s.Equal(1, started)

	reversals, err := s.repo.GetTransactionsByType(s.ctx, "u1", entities.TransactionTypeReversal, 10)
	s.Require().NoError(err)
	s.Len(reversals, 1, "the rejected stake is refunded")
	s.Equal(int64(900), s.balance())
	s.assertReconciles()
}

func (s *ServiceTestSuite) TestStaleHangmanTurnIsRejected() {
	s.src.PushInts(0, 0)
	_, err := s.svc.StartHangman(s.ctx, s.player, entities.DifficultyEasy, s.now)
	s.Require().NoError(err)

	// a second press works on the state the first one already replaced
	var stale Hangman
	session, err := s.svc.loadSession(s.ctx, s.player.key(entities.GameHangman), &stale, s.now)
	s.Require().NoError(err)

	_, err = s.svc.GuessLetter(s.ctx, s.player, "c", s.now.Add(time.Second))
	s.Require().NoError(err)

	_, err = stale.Guess("a")
	s.Require().NoError(err)
	err = s.svc.updateSession(s.ctx, session, &stale, s.now.Add(time.Second))
	s.True(types.IsCode(err, types.ErrInvalidState))

	var current Hangman
	_, err = s.svc.loadSession(s.ctx, s.player.key(entities.GameHangman), &current, s.now.Add(2*time.Second))
	s.Require().NoError(err)
	s.Equal([]string{"c"}, current.Used)
}
