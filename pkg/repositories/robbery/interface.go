package robbery

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

var ErrNotJailed = types.NewError(types.ErrNotFound, "not in jail")

// Repository defines the interface for jail, cooldown and robbery statistics.
// Every attempt method also writes the attempt's statistics row in the same
// transaction.
type Repository interface {
	// Jail returns the account's jail record or ErrNotJailed. Served
	// sentences are removed and reported as ErrNotJailed.
	Jail(ctx context.Context, accountID string, now time.Time) (*entities.JailRecord, error)

	// ClaimCooldown records an attempt at now unless the previous one is
	// younger than cooldown, in which case it returns the previous time
	ClaimCooldown(ctx context.Context, robberID string, cooldown time.Duration, now time.Time) (claimed bool, last time.Time, err error)

	// Steal moves up to attempt.Amount from the victim to the robber, capped at
	// the victim's balance. The amount actually moved is returned.
	Steal(ctx context.Context, attempt entities.RobberyAttempt) (int64, []*entities.Transaction, error)

	// Punish debits up to attempt.Fine from the robber, capped at the balance,
	// and jails them. The fine actually paid is returned.
	Punish(ctx context.Context, attempt entities.RobberyAttempt, jail entities.JailRecord) (int64, *entities.Transaction, error)

	// RecordFailure writes the statistics row of an attempt that moved nothing
	RecordFailure(ctx context.Context, attempt entities.RobberyAttempt) error

	// Stats aggregates an account's attempts as robber and as victim
	Stats(ctx context.Context, accountID string) (*entities.RobberyStats, error)
}
