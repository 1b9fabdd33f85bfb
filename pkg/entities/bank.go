package entities

import "time"

// BankAccount is the interest-bearing sub-ledger of an account
type BankAccount struct {
	AccountID      string
	Balance        int64
	LastInterestAt time.Time
	TotalDeposited int64
	TotalWithdrawn int64
	InterestEarned int64
	CreatedAt      time.Time
}

// LoanStatus tracks a loan's lifecycle
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// Loan is coins lent to a wallet at a fixed rate
type Loan struct {
	ID        int64
	AccountID string
	Plan      string
	Principal int64
	Rate      float64
	TotalDue  int64 // floor(principal*(1+rate))
	Paid      int64
	IssuedAt  time.Time
	DueAt     time.Time
	Status    LoanStatus
}

// Remaining returns what is still owed
func (l *Loan) Remaining() int64 {
	if l.Paid >= l.TotalDue {
		return 0
	}
	return l.TotalDue - l.Paid
}

// Overdue reports whether an active loan passed its due date
func (l *Loan) Overdue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.DueAt)
}

// InvestmentStatus tracks an investment's lifecycle
type InvestmentStatus string

const (
	InvestmentStatusActive  InvestmentStatus = "active"
	InvestmentStatusMatured InvestmentStatus = "matured"
)

// Investment locks bank coins for a fixed term and return
type Investment struct {
	ID             int64
	AccountID      string
	Plan           string
	Principal      int64
	Rate           float64
	ExpectedReturn int64
	StartAt        time.Time
	EndAt          time.Time
	Status         InvestmentStatus
}

// Matured reports whether the term has ended
func (i *Investment) Matured(now time.Time) bool {
	return !now.Before(i.EndAt)
}
