package entities

import "time"

// Raffle is a weighted lottery funded by ticket sales
type Raffle struct {
	ID        int64
	Active    bool
	Prize     int64
	StartedAt time.Time
	EndsAt    time.Time
	WinnerID  string
}

// Expired reports whether the draw is due
func (r *Raffle) Expired(now time.Time) bool {
	return !now.Before(r.EndsAt)
}

// RaffleTicket is an account's ticket count in one raffle
type RaffleTicket struct {
	RaffleID  int64
	AccountID string
	Username  string
	Quantity  int64
}

// RaffleDraw describes a settled raffle
type RaffleDraw struct {
	Raffle       Raffle
	WinnerID     string
	Prize        int64
	TotalTickets int64
	Extended     bool
	Next         *Raffle
}
