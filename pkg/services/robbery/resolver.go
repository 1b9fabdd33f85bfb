package robbery

import (
	"time"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

const (
	Cooldown        = 5 * time.Minute
	MinVictimCoins  = 100
	MaxSteal        = 5000
	BaseChance      = 40
	PoorBonus       = 10 // robber under PoorThreshold
	RichBonus       = 5  // victim over RichThreshold
	PoorThreshold   = 1000
	RichThreshold   = 10000
	CaughtChance    = 30
	MinJailMinutes  = 5
	MaxJailMinutes  = 15
	StealMinPercent = 0.1
	StealMaxPercent = 0.2
)

// Roll is a resolved attempt before it touches any balance
type Roll struct {
	Chance      int
	Success     bool
	Caught      bool
	Result      entities.RobberyResult
	Amount      int64 // to steal on success
	Fine        int64 // to charge when caught, before the balance cap
	JailMinutes int
}

// SuccessChance is the percent chance of a successful robbery
func SuccessChance(robberCoins, victimCoins int64) int {
	chance := BaseChance
	if robberCoins < PoorThreshold {
		chance += PoorBonus
	}
	if victimCoins > RichThreshold {
		chance += RichBonus
	}
	return chance
}

func potential(src rng.Source, victimCoins int64) int64 {
	amount := int64(float64(victimCoins) * rng.Uniform(src, StealMinPercent, StealMaxPercent))
	if amount > MaxSteal {
		amount = MaxSteal
	}
	return amount
}

// Resolve rolls success and capture independently. A caught robber is fined
// the larger of 30-50% of what they could have taken and 10-20% of their own
// balance, capped at that balance, and jailed 5-15 minutes. Only a successful
// uncaught robbery steals.
func Resolve(src rng.Source, robberCoins, victimCoins int64) Roll {
	r := Roll{Chance: SuccessChance(robberCoins, victimCoins)}
	r.Success = rng.Chance(src, r.Chance)
	r.Caught = rng.Chance(src, CaughtChance)

	switch {
	case r.Success && !r.Caught:
		r.Result = entities.RobberySuccess
		r.Amount = potential(src, victimCoins)
	case r.Caught:
		r.Result = entities.RobberyCaught
		fromSteal := int64(float64(potential(src, victimCoins)) * rng.Uniform(src, 0.3, 0.5))
		fromBalance := int64(float64(robberCoins) * rng.Uniform(src, 0.1, 0.2))
		r.Fine = fromSteal
		if fromBalance > r.Fine {
			r.Fine = fromBalance
		}
		if r.Fine > robberCoins {
			r.Fine = robberCoins
		}
		r.JailMinutes = rng.Between(src, MinJailMinutes, MaxJailMinutes)
	default:
		r.Result = entities.RobberyFailed
	}
	return r
}
