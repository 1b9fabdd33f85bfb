package casino

import (
	"fmt"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// GuessConfig is the parameter table of one number-guess difficulty
type GuessConfig struct {
	Max        int
	Multiplier int64
	Fragments  FragmentTable
}

var GuessConfigs = map[entities.Difficulty]GuessConfig{
	entities.DifficultyEasy:   {Max: 5, Multiplier: 2, Fragments: FragmentTable{80, 30, 10, 0, 0}},
	entities.DifficultyMedium: {Max: 10, Multiplier: 3, Fragments: FragmentTable{90, 50, 20, 5, 0}},
	entities.DifficultyHard:   {Max: 20, Multiplier: 5, Fragments: FragmentTable{100, 70, 40, 15, 3}},
}

// GuessRound is a number-guess bet waiting for the member's pick
type GuessRound struct {
	Difficulty entities.Difficulty `json:"difficulty"`
	Stake      int64               `json:"stake"`
	Secret     int                 `json:"secret"`
	Max        int                 `json:"max"`
}

func guessConfig(d entities.Difficulty) (GuessConfig, error) {
	cfg, ok := GuessConfigs[d]
	if !ok {
		return GuessConfig{}, types.Errorf(types.ErrInvalidArgument, "unknown difficulty %q", d)
	}
	return cfg, nil
}

// NewGuessRound draws the secret number for a round
func NewGuessRound(src rng.Source, difficulty entities.Difficulty, stake int64) (*GuessRound, error) {
	if err := ValidateStake(stake); err != nil {
		return nil, err
	}
	cfg, err := guessConfig(difficulty)
	if err != nil {
		return nil, err
	}
	return &GuessRound{
		Difficulty: difficulty,
		Stake:      stake,
		Secret:     rng.Between(src, 1, cfg.Max),
		Max:        cfg.Max,
	}, nil
}

// Resolve settles the round against a guess
func (r *GuessRound) Resolve(src rng.Source, guess int) (*entities.Outcome, error) {
	cfg, err := guessConfig(r.Difficulty)
	if err != nil {
		return nil, err
	}
	if guess < 1 || guess > r.Max {
		return nil, types.Errorf(types.ErrInvalidArgument, "guess must be between 1 and %d, got %d", r.Max, guess)
	}

	o := &entities.Outcome{
		Game:   entities.GameNumberGuess,
		Stake:  r.Stake,
		Result: entities.StringResultLose,
		Detail: fmt.Sprintf("%s: guessed %d, number was %d", r.Difficulty, guess, r.Secret),
	}
	if guess != r.Secret {
		return o, nil
	}

	o.Result = entities.StringResultWin
	o.Payout = r.Stake * cfg.Multiplier
	o.Fragments = RollFragments(src, cfg.Fragments)
	return o, nil
}
