package casino

import "github.com/19722009abc/HelpyBot/internal/types"

// MinStake is the smallest accepted bet
const MinStake = 10

// ValidateStake rejects bets below MinStake
func ValidateStake(stake int64) error {
	if stake < MinStake {
		return types.Errorf(types.ErrInvalidArgument, "the minimum bet is %d coins, got %d", MinStake, stake)
	}
	return nil
}
