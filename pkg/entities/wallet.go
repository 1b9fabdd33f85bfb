package entities

import (
	"time"
)

const (
	DefaultCoinLimit         int64 = 100000
	DefaultInventoryCapacity       = 20
)

// Account represents a member's economy profile (their wallet)
type Account struct {
	ID       string // Discord user ID
	Username string // Last seen username

	Balance int64 // Current coin balance, never negative

	Premium      bool
	PremiumUntil *time.Time
	PremiumTier  string

	XP    int64
	Level int

	LastDaily *time.Time

	MessagesCount int64
	LastMessageAt *time.Time

	CoinLimit         int64
	InventoryCapacity int

	CreatedAt time.Time
}

// NewAccount creates an account with zero balance and default limits
func NewAccount(id, username string, now time.Time) *Account {
	return &Account{
		ID:                id,
		Username:          username,
		Level:             1,
		CoinLimit:         DefaultCoinLimit,
		InventoryCapacity: DefaultInventoryCapacity,
		CreatedAt:         now,
	}
}

// PremiumActive reports whether premium is set and not yet expired
func (a *Account) PremiumActive(now time.Time) bool {
	return a.Premium && a.PremiumUntil != nil && a.PremiumUntil.After(now)
}

// TransactionType represents the type of ledger transaction
type TransactionType string

const (
	TransactionTypeDaily        TransactionType = "DAILY"
	TransactionTypeTransferOut  TransactionType = "TRANSFER_OUT"
	TransactionTypeTransferIn   TransactionType = "TRANSFER_IN"
	TransactionTypeReversal     TransactionType = "REVERSAL"
	TransactionTypeBet          TransactionType = "BET"
	TransactionTypePayout       TransactionType = "PAYOUT"
	TransactionTypePurchase     TransactionType = "PURCHASE"
	TransactionTypeCraft        TransactionType = "CRAFT"
	TransactionTypeBankDeposit  TransactionType = "BANK_DEPOSIT"
	TransactionTypeBankWithdraw TransactionType = "BANK_WITHDRAW"
	TransactionTypeLoan         TransactionType = "LOAN"
	TransactionTypeRepayment    TransactionType = "REPAYMENT"
	TransactionTypeRaffleTicket TransactionType = "RAFFLE_TICKET"
	TransactionTypeRafflePrize  TransactionType = "RAFFLE_PRIZE"
	TransactionTypeRobberyLoss  TransactionType = "ROBBERY_LOSS"
	TransactionTypeRobberyGain  TransactionType = "ROBBERY_GAIN"
	TransactionTypeFine         TransactionType = "FINE"
	TransactionTypePremium      TransactionType = "PREMIUM"
	TransactionTypeReward       TransactionType = "REWARD"
	TransactionTypeAdjustment   TransactionType = "ADJUSTMENT"

	// Bank sub-ledger
	TransactionTypeBankInterest     TransactionType = "BANK_INTEREST"
	TransactionTypeBankTransferOut  TransactionType = "BANK_TRANSFER_OUT"
	TransactionTypeBankTransferIn   TransactionType = "BANK_TRANSFER_IN"
	TransactionTypeInvestment       TransactionType = "INVESTMENT"
	TransactionTypeInvestmentReturn TransactionType = "INVESTMENT_RETURN"
	TransactionTypeBankOpening      TransactionType = "BANK_OPENING"
)

// Transaction represents a single ledger entry
type Transaction struct {
	ID           string          // Unique identifier
	AccountID    string          // Account associated with the transaction
	Amount       int64           // Amount (positive for credits, negative for debits)
	Type         TransactionType // Type of transaction
	Reason       string          // Human-readable description
	ReferenceID  string          // Optional reference (loan, raffle or investment id)
	Timestamp    time.Time       // When the transaction occurred
	BalanceAfter int64           // Balance after this transaction
}
