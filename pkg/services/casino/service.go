// Package casino resolves the reward and risk games and applies their
// outcomes to the ledger. Resolvers are pure given a random source; the
// Service debits stakes, keeps interactive rounds in the session store and
// credits payouts, fragments and xp.
package casino

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
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/storage"
)

// Session lifetimes of the interactive games
const (
	GuessTTL   = time.Minute
	HangmanTTL = 3 * time.Minute
	QuizTTL    = 5 * time.Minute
)

// FragmentGranter adds fragment drops; the shop service satisfies it
type FragmentGranter interface {
	GrantFragments(ctx context.Context, accountID string, grant entities.FragmentSet, now time.Time) (entities.FragmentSet, error)
}

// XPAwarder awards xp; the leveling service satisfies it
type XPAwarder interface {
	AddXP(ctx context.Context, accountID string, amount int64, now time.Time) (*leveling.Progress, error)
}

// Player identifies who is playing and where
type Player struct {
	AccountID string
	Username  string
	GuildID   string
}

func (p Player) key(game entities.GameKind) storage.Key {
	return storage.Key{UserID: p.AccountID, GuildID: p.GuildID, Kind: string(game)}
}

// Settlement is an outcome applied to an account
type Settlement struct {
	Outcome   *entities.Outcome
	Balance   int64
	Fragments entities.FragmentSet // as granted, after boosts
	Progress  *leveling.Progress
}

// Service runs the games against the ledger
type Service struct {
	accounts  ledgerRepo.Repository
	fragments FragmentGranter
	xp        XPAwarder
	sessions  storage.Store
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new casino service
func NewService(accounts ledgerRepo.Repository, fragments FragmentGranter, xp XPAwarder, sessions storage.Store, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		accounts:  accounts,
		fragments: fragments,
		xp:        xp,
		sessions:  sessions,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("casino"),
	}
}

// placeBet debits the stake as a BET transaction
func (s *Service) placeBet(ctx context.Context, p Player, game entities.GameKind, stake int64, now time.Time) (*entities.Transaction, error) {
	if err := ValidateStake(stake); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.AccountID, p.Username, now); err != nil {
		return nil, err
	}

	bet, err := s.accounts.Debit(ctx, ledgerRepo.Entry{
		AccountID: p.AccountID,
		Amount:    stake,
		Type:      entities.TransactionTypeBet,
		Reason:    fmt.Sprintf("Bet on %s", game),
		Timestamp: now,
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, bet)
	return bet, nil
}

// settle credits the payout, then grants fragments and xp. A failed payout
// is returned; fragment and xp failures are logged since the coins already
// moved.
func (s *Service) settle(ctx context.Context, p Player, o *entities.Outcome, balance int64, now time.Time) (*Settlement, error) {
	o.AccountID = p.AccountID
	o.At = now
	result := &Settlement{Outcome: o, Balance: balance}

	if o.Payout > 0 {
		reason := fmt.Sprintf("Win on %s", o.Game)
		if o.Stake == 0 {
			reason = fmt.Sprintf("Reward from %s", o.Game)
		}
		payout, err := s.accounts.Credit(ctx, ledgerRepo.Entry{
			AccountID: p.AccountID,
			Amount:    o.Payout,
			Type:      entities.TransactionTypePayout,
			Reason:    reason,
			Timestamp: now,
		})
		if err != nil {
			s.logger.Error("Payout of %d on %s for %s failed: %v", o.Payout, o.Game, p.AccountID, err)
			return nil, err
		}
		s.publisher.Transactions(ctx, payout)
		result.Balance = payout.BalanceAfter
	}

	if !o.Fragments.IsZero() && s.fragments != nil {
		granted, err := s.fragments.GrantFragments(ctx, p.AccountID, o.Fragments, now)
		if err != nil {
			s.logger.Error("Fragment grant on %s for %s failed: %v", o.Game, p.AccountID, err)
		} else {
			result.Fragments = granted
		}
	}

	if o.XP > 0 && s.xp != nil {
		progress, err := s.xp.AddXP(ctx, p.AccountID, o.XP, now)
		if err != nil {
			s.logger.Error("XP award on %s for %s failed: %v", o.Game, p.AccountID, err)
		} else {
			result.Progress = progress
		}
	}

	s.publisher.Outcome(ctx, o)
	s.logger.Debug("%s %s on %s: stake %d, payout %d", p.AccountID, o.Result, o.Game, o.Stake, o.Payout)
	return result, nil
}

// Dice bets stake on the sum of two dice
func (s *Service) Dice(ctx context.Context, p Player, stake int64, prediction int, now time.Time) (*DiceRound, *Settlement, error) {
	if err := ValidatePrediction(prediction); err != nil {
		return nil, nil, err
	}
	bet, err := s.placeBet(ctx, p, entities.GameDice, stake, now)
	if err != nil {
		return nil, nil, err
	}

	round, err := RollDice(s.rng, stake, prediction)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.settle(ctx, p, round.Outcome, bet.BalanceAfter, now)
	if err != nil {
		return nil, nil, err
	}
	return round, result, nil
}

// Roulette bets stake on a color
func (s *Service) Roulette(ctx context.Context, p Player, stake int64, choice Color, now time.Time) (*RouletteRound, *Settlement, error) {
	if _, err := ParseColor(string(choice)); err != nil {
		return nil, nil, err
	}
	bet, err := s.placeBet(ctx, p, entities.GameRoulette, stake, now)
	if err != nil {
		return nil, nil, err
	}

	round, err := SpinRoulette(s.rng, stake, choice)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.settle(ctx, p, round.Outcome, bet.BalanceAfter, now)
	if err != nil {
		return nil, nil, err
	}
	return round, result, nil
}

// requireNoSession rejects a new round while one of the same game is live
func (s *Service) requireNoSession(ctx context.Context, key storage.Key, now time.Time) error {
	_, err := s.sessions.Load(ctx, key, now)
	switch {
	case err == nil:
		return types.Errorf(types.ErrInvalidState, "finish your current %s game first", key.Kind)
	case errors.Is(err, storage.ErrSessionNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) createSession(ctx context.Context, key storage.Key, state interface{}, ttl time.Duration, now time.Time) error {
	session, err := storage.NewSession(key, state)
	if err != nil {
		return err
	}
	session.TTL = ttl
	if err := s.sessions.Create(ctx, session, now); err != nil {
		if errors.Is(err, storage.ErrSessionExists) {
			return types.Errorf(types.ErrInvalidState, "finish your current %s game first", key.Kind)
		}
		return err
	}
	return nil
}

func (s *Service) loadSession(ctx context.Context, key storage.Key, state interface{}, now time.Time) (*storage.Session, error) {
	session, err := s.sessions.Load(ctx, key, now)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, types.Errorf(types.ErrNotFound, "no %s game in progress", key.Kind)
		}
		return nil, err
	}
	return session, session.Decode(state)
}

// updateSession writes the next state of a running game back
func (s *Service) updateSession(ctx context.Context, session *storage.Session, state interface{}, now time.Time) error {
	if err := session.Encode(state); err != nil {
		return err
	}
	err := s.sessions.Save(ctx, session, now)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		return types.Errorf(types.ErrNotFound, "no %s game in progress", session.Key.Kind)
	case errors.Is(err, storage.ErrSessionChanged):
		return types.Errorf(types.ErrInvalidState, "your %s game moved on, try again", session.Key.Kind)
	}
	return err
}

// takeSession removes a finished game. Only the caller that removed it may
// settle it; concurrent finishers get ErrNotFound.
func (s *Service) takeSession(ctx context.Context, key storage.Key, now time.Time) error {
	removed, err := s.sessions.Delete(ctx, key, now)
	if err != nil {
		return err
	}
	if !removed {
		return types.Errorf(types.ErrNotFound, "no %s game in progress", key.Kind)
	}
	return nil
}

// StartGuess debits the stake and draws the secret number. The round waits
// in the session store for GuessTTL; an abandoned round forfeits the stake.
func (s *Service) StartGuess(ctx context.Context, p Player, stake int64, difficulty entities.Difficulty, now time.Time) (*GuessRound, error) {
	if _, err := guessConfig(difficulty); err != nil {
		return nil, err
	}
	key := p.key(entities.GameNumberGuess)
	if err := s.requireNoSession(ctx, key, now); err != nil {
		return nil, err
	}

	if _, err := s.placeBet(ctx, p, entities.GameNumberGuess, stake, now); err != nil {
		return nil, err
	}
	round, err := NewGuessRound(s.rng, difficulty, stake)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(ctx, key, round, GuessTTL, now); err != nil {
		s.logger.Warn("Guess round for %s could not be stored, refunding %d: %v", p.AccountID, stake, err)
		s.refund(ctx, p.AccountID, stake, "guess round reversal", now)
		return nil, err
	}
	return round, nil
}

func (s *Service) refund(ctx context.Context, accountID string, amount int64, reason string, now time.Time) {
	rev, err := s.accounts.Credit(ctx, ledgerRepo.Entry{
		AccountID: accountID,
		Amount:    amount,
		Type:      entities.TransactionTypeReversal,
		Reason:    reason,
		Timestamp: now,
	})
	if err != nil {
		s.logger.Error("Refund of %d for %s failed: %v", amount, accountID, err)
		return
	}
	s.publisher.Transactions(ctx, rev)
}

// Guess settles the member's pick for their running round
func (s *Service) Guess(ctx context.Context, p Player, guess int, now time.Time) (*GuessRound, *Settlement, error) {
	key := p.key(entities.GameNumberGuess)
	var round GuessRound
	if _, err := s.loadSession(ctx, key, &round, now); err != nil {
		return nil, nil, err
	}

	o, err := round.Resolve(s.rng, guess)
	if err != nil {
		return nil, nil, err
	}
	if err := s.takeSession(ctx, key, now); err != nil {
		return nil, nil, err
	}

	acct, err := s.accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.settle(ctx, p, o, acct.Balance, now)
	if err != nil {
		return nil, nil, err
	}
	return &round, result, nil
}

// HangmanTurn is the state after a hangman action. Settlement is set once
// the game finished.
type HangmanTurn struct {
	Game       *Hangman
	Hit        bool
	Settlement *Settlement
}

// StartHangman opens a free hangman game
func (s *Service) StartHangman(ctx context.Context, p Player, difficulty entities.Difficulty, now time.Time) (*Hangman, error) {
	key := p.key(entities.GameHangman)
	if err := s.requireNoSession(ctx, key, now); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.AccountID, p.Username, now); err != nil {
		return nil, err
	}

	game, err := NewHangman(s.rng, difficulty)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(ctx, key, game, HangmanTTL, now); err != nil {
		return nil, err
	}
	return game, nil
}

// GuessLetter plays one letter of the running hangman game
func (s *Service) GuessLetter(ctx context.Context, p Player, letter string, now time.Time) (*HangmanTurn, error) {
	key := p.key(entities.GameHangman)
	var game Hangman
	session, err := s.loadSession(ctx, key, &game, now)
	if err != nil {
		return nil, err
	}

	hit, err := game.Guess(letter)
	if err != nil {
		return nil, err
	}
	turn := &HangmanTurn{Game: &game, Hit: hit}
	if !game.Finished() {
		if err := s.updateSession(ctx, session, &game, now); err != nil {
			return nil, err
		}
		return turn, nil
	}

	turn.Settlement, err = s.finishHangman(ctx, p, &game, now)
	return turn, err
}

// GiveUpHangman abandons the running hangman game
func (s *Service) GiveUpHangman(ctx context.Context, p Player, now time.Time) (*HangmanTurn, error) {
	key := p.key(entities.GameHangman)
	var game Hangman
	if _, err := s.loadSession(ctx, key, &game, now); err != nil {
		return nil, err
	}
	game.GiveUp()

	settlement, err := s.finishHangman(ctx, p, &game, now)
	if err != nil {
		return nil, err
	}
	return &HangmanTurn{Game: &game, Settlement: settlement}, nil
}

func (s *Service) finishHangman(ctx context.Context, p Player, game *Hangman, now time.Time) (*Settlement, error) {
	if err := s.takeSession(ctx, p.key(entities.GameHangman), now); err != nil {
		return nil, err
	}
	o, err := game.Reward(s.rng)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, p, o, acct.Balance, now)
}

// QuizTurn is the state after a quiz answer. Settlement is set once the
// last question was answered.
type QuizTurn struct {
	Quiz       *Quiz
	Answered   *Question
	Correct    bool
	Settlement *Settlement
}

// StartQuiz samples the questions of a free quiz
func (s *Service) StartQuiz(ctx context.Context, p Player, difficulty entities.Difficulty, now time.Time) (*Quiz, error) {
	key := p.key(entities.GameQuiz)
	if err := s.requireNoSession(ctx, key, now); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.AccountID, p.Username, now); err != nil {
		return nil, err
	}

	quiz, err := NewQuiz(s.rng, difficulty)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(ctx, key, quiz, QuizTTL, now); err != nil {
		return nil, err
	}
	return quiz, nil
}

// AnswerQuiz answers the current question; choice is zero based
func (s *Service) AnswerQuiz(ctx context.Context, p Player, choice int, now time.Time) (*QuizTurn, error) {
	key := p.key(entities.GameQuiz)
	var quiz Quiz
	session, err := s.loadSession(ctx, key, &quiz, now)
	if err != nil {
		return nil, err
	}

	question := quiz.Question()
	correct, err := quiz.Answer(choice)
	if err != nil {
		return nil, err
	}
	turn := &QuizTurn{Quiz: &quiz, Answered: question, Correct: correct}
	if !quiz.Finished() {
		if err := s.updateSession(ctx, session, &quiz, now); err != nil {
			return nil, err
		}
		return turn, nil
	}

	if err := s.takeSession(ctx, key, now); err != nil {
		return nil, err
	}
	o, err := quiz.Result(s.rng)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	turn.Settlement, err = s.settle(ctx, p, o, acct.Balance, now)
	return turn, err
}
