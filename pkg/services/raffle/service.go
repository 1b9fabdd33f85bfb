// Package raffle runs the server-wide lottery: tickets feed the pot, and an
// expired raffle is drawn (weighted by tickets) the next time anyone looks.
package raffle

import (
	"context"
	"errors"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	raffleRepo "github.com/19722009abc/HelpyBot/pkg/repositories/raffle"
)

const (
	TicketPrice     = 50
	PrizeSharePct   = 80
	InitialPrize    = 5000
	Duration        = 24 * time.Hour
	MaxTicketsPerOp = 1000
)

// Status is the running raffle with the draw that preceded it, if the call
// settled one
type Status struct {
	Raffle  *entities.Raffle
	Settled *entities.RaffleDraw
}

// Purchase is a completed ticket purchase
type Purchase struct {
	Raffle      *entities.Raffle
	Tickets     int64 // total held after the purchase
	Cost        int64
	Transaction *entities.Transaction
}

// Service coordinates the raffle
type Service struct {
	repo      raffleRepo.Repository
	accounts  ledgerRepo.Repository
	rng       rng.Source
	publisher *analytics.Publisher
	logger    *logging.Logger
}

// NewService creates a new raffle service
func NewService(repo raffleRepo.Repository, accounts ledgerRepo.Repository, src rng.Source, publisher *analytics.Publisher) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		rng:       src,
		publisher: publisher,
		logger:    logging.Default.With("raffle"),
	}
}

// PickWinner draws one ticket uniformly, so each holder wins with probability
// quantity/total
func PickWinner(src rng.Source, tickets []*entities.RaffleTicket, total int64) string {
	n := int64(src.Intn(int(total)))
	for _, t := range tickets {
		if n < t.Quantity {
			return t.AccountID
		}
		n -= t.Quantity
	}
	return tickets[len(tickets)-1].AccountID
}

// Current returns the running raffle, opening the first one and settling an
// expired one on the way
func (s *Service) Current(ctx context.Context, now time.Time) (*Status, error) {
	raffle, err := s.repo.EnsureActive(ctx, InitialPrize, Duration, now)
	if err != nil {
		return nil, err
	}
	if !raffle.Expired(now) {
		return &Status{Raffle: raffle}, nil
	}

	draw, err := s.settle(ctx, raffle, now)
	if err != nil {
		return nil, err
	}
	st := &Status{Settled: draw}
	if draw.Extended {
		extended := draw.Raffle
		st.Raffle = &extended
	} else {
		st.Raffle = draw.Next
	}
	return st, nil
}

// Settle draws the running raffle if it has expired. It returns nil when
// there was nothing to settle.
func (s *Service) Settle(ctx context.Context, now time.Time) (*entities.RaffleDraw, error) {
	raffle, err := s.repo.Active(ctx)
	if errors.Is(err, raffleRepo.ErrNoActiveRaffle) {
		_, err = s.repo.EnsureActive(ctx, InitialPrize, Duration, now)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !raffle.Expired(now) {
		return nil, nil
	}
	return s.settle(ctx, raffle, now)
}

func (s *Service) settle(ctx context.Context, raffle *entities.Raffle, now time.Time) (*entities.RaffleDraw, error) {
	draw, err := s.repo.Settle(ctx, raffleRepo.Settlement{
		RaffleID:  raffle.ID,
		Now:       now,
		Extension: Duration,
		NextPrize: InitialPrize,
		NextRun:   Duration,
		Pick: func(tickets []*entities.RaffleTicket, total int64) string {
			return PickWinner(s.rng, tickets, total)
		},
	})
	if errors.Is(err, raffleRepo.ErrRaffleClosed) {
		// a concurrent caller settled it first
		next, err := s.repo.Active(ctx)
		if err != nil {
			return nil, err
		}
		return &entities.RaffleDraw{Raffle: *raffle, Next: next}, nil
	}
	if err != nil {
		return nil, err
	}

	if !draw.Extended {
		s.publisher.Outcome(ctx, &entities.Outcome{
			Game:      entities.GameRaffle,
			AccountID: draw.WinnerID,
			Payout:    draw.Prize,
			Result:    entities.StringResultWin,
			Detail:    "raffle draw",
			At:        now,
		})
	}
	return draw, nil
}

// BuyTickets buys quantity tickets in the running raffle
func (s *Service) BuyTickets(ctx context.Context, accountID, username string, quantity int64, now time.Time) (*Purchase, error) {
	if quantity <= 0 || quantity > MaxTicketsPerOp {
		return nil, types.Errorf(types.ErrInvalidArgument, "buy between 1 and %d tickets", MaxTicketsPerOp)
	}
	if _, err := s.accounts.EnsureAccount(ctx, accountID, username, now); err != nil {
		return nil, err
	}
	st, err := s.Current(ctx, now)
	if err != nil {
		return nil, err
	}

	cost := quantity * TicketPrice
	raffle, ticket, t, err := s.repo.BuyTickets(ctx, raffleRepo.TicketPurchase{
		RaffleID:   st.Raffle.ID,
		AccountID:  accountID,
		Username:   username,
		Quantity:   quantity,
		Cost:       cost,
		PrizeShare: cost * PrizeSharePct / 100,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Transactions(ctx, t)

	return &Purchase{Raffle: raffle, Tickets: ticket.Quantity, Cost: cost, Transaction: t}, nil
}

// Participants lists the running raffle's ticket holders
func (s *Service) Participants(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleTicket, error) {
	return s.repo.Participants(ctx, raffleID, limit)
}

// Tickets returns how many tickets an account holds in a raffle
func (s *Service) Tickets(ctx context.Context, raffleID int64, accountID string) (int64, error) {
	return s.repo.Tickets(ctx, raffleID, accountID)
}
