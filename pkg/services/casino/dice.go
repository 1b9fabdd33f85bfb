package casino

import (
	"fmt"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// DiceMultipliers pays each predicted sum of two dice by its rarity
var DiceMultipliers = map[int]int64{
	2: 35, 3: 18, 4: 12, 5: 8, 6: 7,
	7: 6,
	8: 7, 9: 8, 10: 12, 11: 18, 12: 35,
}

var (
	// extreme sums: 2 and 12
	diceExtremeDrops = FragmentTable{0, 0, 80, 30, 0}
	// near-extreme sums: 3 and 11
	diceNearDropChance = 60
)

// DiceRound is a resolved dice bet
type DiceRound struct {
	Prediction int
	Dice       [2]int
	Multiplier int64
	Outcome    *entities.Outcome
}

// Sum returns the total of both dice
func (r *DiceRound) Sum() int {
	return r.Dice[0] + r.Dice[1]
}

// ValidatePrediction rejects sums two dice cannot make
func ValidatePrediction(prediction int) error {
	if _, ok := DiceMultipliers[prediction]; !ok {
		return types.Errorf(types.ErrInvalidArgument, "prediction must be between 2 and 12, got %d", prediction)
	}
	return nil
}

// RollDice rolls two dice against a predicted sum. A hit pays
// stake*multiplier and may drop rare fragments on the hardest sums.
func RollDice(src rng.Source, stake int64, prediction int) (*DiceRound, error) {
	if err := ValidateStake(stake); err != nil {
		return nil, err
	}
	if err := ValidatePrediction(prediction); err != nil {
		return nil, err
	}

	round := &DiceRound{
		Prediction: prediction,
		Dice:       [2]int{rng.Between(src, 1, 6), rng.Between(src, 1, 6)},
		Multiplier: DiceMultipliers[prediction],
	}
	o := &entities.Outcome{
		Game:   entities.GameDice,
		Stake:  stake,
		Result: entities.StringResultLose,
		Detail: fmt.Sprintf("predicted %d, rolled %d+%d", prediction, round.Dice[0], round.Dice[1]),
	}
	round.Outcome = o

	if round.Sum() != prediction {
		return round, nil
	}

	o.Result = entities.StringResultWin
	o.Payout = stake * round.Multiplier
	switch prediction {
	case 2, 12:
		o.Fragments = RollFragments(src, diceExtremeDrops)
	case 3, 11:
		if rng.Chance(src, diceNearDropChance) {
			o.Fragments[entities.TierRare] = int64(rng.Between(src, 1, 2))
		}
	}
	return round, nil
}
