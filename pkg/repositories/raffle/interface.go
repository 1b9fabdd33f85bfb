package raffle

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

var (
	ErrNoActiveRaffle = types.NewError(types.ErrNotFound, "no raffle is running")
	ErrRaffleClosed   = types.NewError(types.ErrInvalidState, "this raffle is closed")
)

// TicketPurchase buys Quantity tickets. Cost is debited from the wallet and
// PrizeShare is added to the pot.
type TicketPurchase struct {
	RaffleID   int64
	AccountID  string
	Username   string
	Quantity   int64
	Cost       int64
	PrizeShare int64
	Now        time.Time
}

// Settlement describes how to settle an expired raffle. Pick receives every
// ticket holding and their total and returns the winner.
type Settlement struct {
	RaffleID  int64
	Now       time.Time
	Extension time.Duration
	NextPrize int64
	NextRun   time.Duration
	Pick      func(tickets []*entities.RaffleTicket, total int64) string
}

// Repository defines the interface for raffle data operations
type Repository interface {
	// Active returns the running raffle or ErrNoActiveRaffle
	Active(ctx context.Context) (*entities.Raffle, error)

	// EnsureActive returns the running raffle, opening one with prize and
	// duration when none is running
	EnsureActive(ctx context.Context, prize int64, duration time.Duration, now time.Time) (*entities.Raffle, error)

	// BuyTickets debits the wallet, adds the tickets and grows the prize in one transaction
	BuyTickets(ctx context.Context, p TicketPurchase) (*entities.Raffle, *entities.RaffleTicket, *entities.Transaction, error)

	// Settle draws or extends an expired raffle in one transaction
	Settle(ctx context.Context, s Settlement) (*entities.RaffleDraw, error)

	// Participants lists ticket holders, most tickets first
	Participants(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleTicket, error)

	// Tickets returns one account's ticket count in a raffle
	Tickets(ctx context.Context, raffleID int64, accountID string) (int64, error)
}
