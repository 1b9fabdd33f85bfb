package casino

import (
	"fmt"
	"strings"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// Color is a roulette bet
type Color string

const (
	Red   Color = "red"
	Black Color = "black"
	Green Color = "green"
)

// ParseColor accepts english or portuguese color names
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "vermelho":
		return Red, nil
	case "black", "preto":
		return Black, nil
	case "green", "verde":
		return Green, nil
	}
	return "", types.Errorf(types.ErrInvalidArgument, "unknown roulette color %q", s)
}

// RouletteBand maps a slice of the [1,100] roll to a color
type RouletteBand struct {
	Color      Color
	From, To   int
	Multiplier int64
}

// RouletteBands partition 1-100: red 45%, black 45%, green 10%
var RouletteBands = []RouletteBand{
	{Color: Red, From: 1, To: 45, Multiplier: 2},
	{Color: Black, From: 46, To: 90, Multiplier: 2},
	{Color: Green, From: 91, To: 100, Multiplier: 14},
}

var greenDrops = FragmentTable{0, 0, 100, 40, 15}

// RouletteRound is a resolved spin
type RouletteRound struct {
	Choice  Color
	Roll    int
	Landed  RouletteBand
	Outcome *entities.Outcome
}

func bandFor(roll int) RouletteBand {
	for _, b := range RouletteBands {
		if roll >= b.From && roll <= b.To {
			return b
		}
	}
	return RouletteBands[len(RouletteBands)-1]
}

// SpinRoulette draws a roll in [1,100]. Matching the landed color pays
// stake times its multiplier; a green win also drops rare fragments.
func SpinRoulette(src rng.Source, stake int64, choice Color) (*RouletteRound, error) {
	if err := ValidateStake(stake); err != nil {
		return nil, err
	}
	if _, err := ParseColor(string(choice)); err != nil {
		return nil, err
	}

	roll := rng.Between(src, 1, 100)
	round := &RouletteRound{Choice: choice, Roll: roll, Landed: bandFor(roll)}
	o := &entities.Outcome{
		Game:   entities.GameRoulette,
		Stake:  stake,
		Result: entities.StringResultLose,
		Detail: fmt.Sprintf("bet %s, landed %s (%d)", choice, round.Landed.Color, roll),
	}
	round.Outcome = o

	if round.Landed.Color != choice {
		return round, nil
	}

	o.Result = entities.StringResultWin
	o.Payout = stake * round.Landed.Multiplier
	if choice == Green {
		o.Fragments = RollFragments(src, greenDrops)
	}
	return round, nil
}
