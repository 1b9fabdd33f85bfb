// Package accrual holds the time-based rules (daily reward, bank interest,
// premium expiry) and the service that claims daily rewards and premium.
package accrual

import (
	"math"
	"time"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

const (
	DailyCooldownStandard = 24 * time.Hour
	DailyCooldownPremium  = 20 * time.Hour

	DailyMin = 1000
	DailyMax = 1500

	PremiumDailyMultiplier = 1.5

	// BankInterestRate is applied per whole elapsed day
	BankInterestRate = 0.01
)

// DailyCooldown returns how long an account waits between daily claims
func DailyCooldown(acct *entities.Account, now time.Time) time.Duration {
	if acct.PremiumActive(now) {
		return DailyCooldownPremium
	}
	return DailyCooldownStandard
}

// CanClaimDaily reports eligibility and, when not eligible, the remaining wait
func CanClaimDaily(acct *entities.Account, now time.Time) (bool, time.Duration) {
	if acct.LastDaily == nil {
		return true, 0
	}
	next := acct.LastDaily.Add(DailyCooldown(acct, now))
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

// DailyAmount draws the reward: uniform [1000,1500], x1.5 (floored) for premium
func DailyAmount(src rng.Source, premium bool) int64 {
	base := int64(rng.Between(src, DailyMin, DailyMax))
	if premium {
		return int64(math.Floor(float64(base) * PremiumDailyMultiplier))
	}
	return base
}

// BankInterest returns the interest for whole days elapsed since last and the
// number of days it covers. Partial days accrue nothing.
func BankInterest(balance int64, last, now time.Time) (interest int64, days int64) {
	if !now.After(last) {
		return 0, 0
	}
	days = int64(now.Sub(last) / (24 * time.Hour))
	if days <= 0 || balance <= 0 {
		return 0, days
	}
	return int64(math.Floor(float64(balance) * BankInterestRate * float64(days))), days
}

// ExtendPremium adds days to the later of now and an unexpired current expiry
func ExtendPremium(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}

// PremiumActive reports whether the account has unexpired premium
func PremiumActive(acct *entities.Account, now time.Time) bool {
	return acct.PremiumActive(now)
}

// LoanDue reports whether an active loan is past its due date
func LoanDue(loan *entities.Loan, now time.Time) bool {
	return loan.Overdue(now)
}

// InvestmentMatured reports whether an active investment can be settled
func InvestmentMatured(inv *entities.Investment, now time.Time) bool {
	return inv.Status == entities.InvestmentStatusActive && inv.Matured(now)
}

// PremiumPackage is a purchasable premium duration
type PremiumPackage struct {
	ID    string
	Days  int
	Price int64
}

// PremiumPackages lists the packages on sale
var PremiumPackages = []PremiumPackage{
	{ID: "15d", Days: 15, Price: 10000},
	{ID: "30d", Days: 30, Price: 18000},
	{ID: "90d", Days: 90, Price: 45000},
}

// FindPremiumPackage looks a package up by id
func FindPremiumPackage(id string) (PremiumPackage, bool) {
	for _, p := range PremiumPackages {
		if p.ID == id {
			return p, true
		}
	}
	return PremiumPackage{}, false
}
