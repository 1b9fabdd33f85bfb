package scheduler

import (
	"context"
	"time"

	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// SessionSweeper evicts expired game sessions
type SessionSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// RaffleSettler draws an expired raffle
type RaffleSettler interface {
	Settle(ctx context.Context, now time.Time) (*entities.RaffleDraw, error)
}

// ShopRotator refreshes the daily shop once its offers expire
type ShopRotator interface {
	DailyShop(ctx context.Context, now time.Time) ([]*entities.DailyOffer, error)
}

// Maintenance lists the economy's background jobs. Nil members are skipped.
// Every job is also run lazily by the services, so the scheduler only keeps
// state fresh between interactions.
type Maintenance struct {
	Sessions SessionSweeper
	Raffle   RaffleSettler
	Shop     ShopRotator
	Interval time.Duration
	Clock    func() time.Time
}

// AddMaintenanceTasks schedules the economy jobs every m.Interval (one minute
// when zero)
func AddMaintenanceTasks(s *Scheduler, m Maintenance) {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	clock := m.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := logging.Default.With("maintenance")

	if m.Sessions != nil {
		s.AddTask("session_sweep", interval, func(ctx context.Context) error {
			n, err := m.Sessions.Sweep(ctx, clock())
			if n > 0 {
				logger.Info("Swept %d expired sessions", n)
			}
			return err
		})
	}
	if m.Raffle != nil {
		s.AddTask("raffle_settle", interval, func(ctx context.Context) error {
			draw, err := m.Raffle.Settle(ctx, clock())
			if draw != nil && !draw.Extended && draw.WinnerID != "" {
				logger.Info("Raffle %d drawn by the scheduler, winner %s", draw.Raffle.ID, draw.WinnerID)
			}
			return err
		})
	}
	if m.Shop != nil {
		s.AddTask("daily_shop", interval, func(ctx context.Context) error {
			_, err := m.Shop.DailyShop(ctx, clock())
			return err
		})
	}
}
