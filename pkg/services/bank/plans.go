package bank

import (
	"math"
	"strings"
	"time"

	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/internal/types"
)

const (
	// MinLoan and MinInvestment are the smallest accepted amounts
	MinLoan       = 1000
	MinInvestment = 1000
)

// LoanPlan fixes the rate, ceiling and term of a loan
type LoanPlan struct {
	Name    string
	Rate    int // percent charged once
	Max     int64
	Term    time.Duration
	Aliases []string
}

// InvestmentPlan draws its return rate from [MinRate, MaxRate] percent
type InvestmentPlan struct {
	Name    string
	MinRate float64
	MaxRate float64
	Term    time.Duration
	Aliases []string
}

const day = 24 * time.Hour

var LoanPlans = []LoanPlan{
	{Name: "small", Rate: 5, Max: 5000, Term: 3 * day, Aliases: []string{"pequeno"}},
	{Name: "medium", Rate: 10, Max: 20000, Term: 5 * day, Aliases: []string{"medio", "médio"}},
	{Name: "large", Rate: 15, Max: 50000, Term: 7 * day, Aliases: []string{"grande"}},
}

var InvestmentPlans = []InvestmentPlan{
	{Name: "conservative", MinRate: 3, MaxRate: 5, Term: 3 * day, Aliases: []string{"conservador"}},
	{Name: "moderate", MinRate: 10, MaxRate: 15, Term: 5 * day, Aliases: []string{"moderado"}},
	{Name: "aggressive", MinRate: 30, MaxRate: 50, Term: 7 * day, Aliases: []string{"agressivo"}},
}

func matches(name, input string, aliases []string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == name {
		return true
	}
	for _, a := range aliases {
		if input == a {
			return true
		}
	}
	return false
}

// FindLoanPlan looks a plan up by name or alias
func FindLoanPlan(name string) (LoanPlan, error) {
	for _, p := range LoanPlans {
		if matches(p.Name, name, p.Aliases) {
			return p, nil
		}
	}
	return LoanPlan{}, types.Errorf(types.ErrInvalidArgument, "unknown loan plan %q", name)
}

// FindInvestmentPlan looks a plan up by name or alias
func FindInvestmentPlan(name string) (InvestmentPlan, error) {
	for _, p := range InvestmentPlans {
		if matches(p.Name, name, p.Aliases) {
			return p, nil
		}
	}
	return InvestmentPlan{}, types.Errorf(types.ErrInvalidArgument, "unknown investment plan %q", name)
}

// TotalDue is the principal plus the plan's flat interest, rounded down
func (p LoanPlan) TotalDue(principal int64) int64 {
	return principal + principal*int64(p.Rate)/100
}

// Validate checks a requested principal against the plan
func (p LoanPlan) Validate(principal int64) error {
	if principal < MinLoan {
		return types.Errorf(types.ErrInvalidArgument, "the minimum loan is %d coins", MinLoan)
	}
	if principal > p.Max {
		return types.Errorf(types.ErrLimitReached, "the %s plan lends at most %d coins", p.Name, p.Max)
	}
	return nil
}

// DrawReturn picks the plan's rate and the fixed amount paid at maturity
func (p InvestmentPlan) DrawReturn(src rng.Source, principal int64) (rate float64, expected int64) {
	rate = rng.Uniform(src, p.MinRate, p.MaxRate)
	return rate, principal + int64(math.Floor(float64(principal)*rate/100))
}
