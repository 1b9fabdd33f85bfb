package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/19722009abc/HelpyBot/internal/types"
	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage. A single
// mutex serializes every mutation, matching the SQLite write lock.
type MemoryRepository struct {
	accounts     map[string]*entities.Account
	transactions map[string][]*entities.Transaction
	mu           sync.RWMutex

	// FailCredits makes Credit fail for the listed accounts; used to exercise reversals
	FailCredits map[string]error
}

// NewMemoryRepository creates a new in-memory ledger repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:     make(map[string]*entities.Account),
		transactions: make(map[string][]*entities.Transaction),
		FailCredits:  make(map[string]error),
	}
}

func copyAccount(a *entities.Account) *entities.Account {
	c := *a
	if a.PremiumUntil != nil {
		t := *a.PremiumUntil
		c.PremiumUntil = &t
	}
	if a.LastDaily != nil {
		t := *a.LastDaily
		c.LastDaily = &t
	}
	if a.LastMessageAt != nil {
		t := *a.LastMessageAt
		c.LastMessageAt = &t
	}
	return &c
}

// EnsureAccount creates the account if missing and refreshes the username
func (r *MemoryRepository) EnsureAccount(ctx context.Context, id, username string, now time.Time) (*entities.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[id]
	if !exists {
		acct = entities.NewAccount(id, username, now)
		r.accounts[id] = acct
	} else if username != "" {
		acct.Username = username
	}
	return copyAccount(acct), nil
}

// GetAccount retrieves an account by user ID
func (r *MemoryRepository) GetAccount(ctx context.Context, id string) (*entities.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, exists := r.accounts[id]
	if !exists {
		return nil, ErrAccountNotFound
	}
	return copyAccount(acct), nil
}

// SetBalance seeds a balance with a matching ADJUSTMENT transaction
func (r *MemoryRepository) SetBalance(id string, balance int64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[id]
	if !exists {
		acct = entities.NewAccount(id, "", now)
		r.accounts[id] = acct
	}
	delta := balance - acct.Balance
	acct.Balance = balance
	if delta != 0 {
		r.record(Entry{AccountID: id, Type: entities.TransactionTypeAdjustment, Reason: "seed", Timestamp: now}, delta, balance)
	}
}

// Credit adds coins and records the transaction atomically
func (r *MemoryRepository) Credit(ctx context.Context, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "credit amount must be positive, got %d", e.Amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err, fail := r.FailCredits[e.AccountID]; fail {
		return nil, types.StorageError("credit", err)
	}

	acct, exists := r.accounts[e.AccountID]
	if !exists {
		return nil, ErrAccountNotFound
	}
	acct.Balance += e.Amount
	return r.record(e, e.Amount, acct.Balance), nil
}

// Debit removes coins only if the balance covers them
func (r *MemoryRepository) Debit(ctx context.Context, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "debit amount must be positive, got %d", e.Amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[e.AccountID]
	if !exists {
		return nil, ErrAccountNotFound
	}
	if acct.Balance < e.Amount {
		return nil, InsufficientFunds(acct.Balance, e.Amount)
	}
	acct.Balance -= e.Amount
	return r.record(e, -e.Amount, acct.Balance), nil
}

// record must be called with the write lock held
func (r *MemoryRepository) record(e Entry, signed, balanceAfter int64) *entities.Transaction {
	t := &entities.Transaction{
		ID:           uuid.New().String(),
		AccountID:    e.AccountID,
		Amount:       signed,
		Type:         e.Type,
		Reason:       e.Reason,
		ReferenceID:  e.ReferenceID,
		Timestamp:    e.Timestamp,
		BalanceAfter: balanceAfter,
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	r.transactions[e.AccountID] = append(r.transactions[e.AccountID], t)

	txCopy := *t
	return &txCopy
}

// ClaimDaily credits the reward only when last_daily still equals previous
func (r *MemoryRepository) ClaimDaily(ctx context.Context, previous *time.Time, e Entry) (*entities.Transaction, error) {
	if e.Amount <= 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "daily amount must be positive, got %d", e.Amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[e.AccountID]
	if !exists {
		return nil, ErrDailyRaced
	}
	if !sameTime(acct.LastDaily, previous) {
		return nil, ErrDailyRaced
	}

	claimed := e.Timestamp
	acct.LastDaily = &claimed
	acct.Balance += e.Amount
	return r.record(e, e.Amount, acct.Balance), nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// UpdatePremium sets premium using an expiry derived from the stored one
func (r *MemoryRepository) UpdatePremium(ctx context.Context, id, tier string, extend func(current *time.Time) time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[id]
	if !exists {
		return time.Time{}, ErrAccountNotFound
	}
	until := extend(acct.PremiumUntil)
	acct.Premium = true
	acct.PremiumUntil = &until
	acct.PremiumTier = tier
	return until, nil
}

// UpdateProgress rewrites xp and level from the current values
func (r *MemoryRepository) UpdateProgress(ctx context.Context, id string, apply func(xp int64, level int) (int64, int)) (int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[id]
	if !exists {
		return 0, 0, ErrAccountNotFound
	}
	acct.XP, acct.Level = apply(acct.XP, acct.Level)
	return acct.XP, acct.Level, nil
}

// TouchMessage counts a message and stamps last_message when the cooldown elapsed
func (r *MemoryRepository) TouchMessage(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, exists := r.accounts[id]
	if !exists {
		return false, ErrAccountNotFound
	}
	acct.MessagesCount++
	eligible := acct.LastMessageAt == nil || now.Sub(*acct.LastMessageAt) >= cooldown
	if eligible {
		stamp := now
		acct.LastMessageAt = &stamp
	}
	return eligible, nil
}

// GetTransactions retrieves recent transactions, newest first
func (r *MemoryRepository) GetTransactions(ctx context.Context, id string, limit int) ([]*entities.Transaction, error) {
	return r.filter(id, limit, func(*entities.Transaction) bool { return true }), nil
}

// GetTransactionsByType retrieves transactions of a specific type, newest first
func (r *MemoryRepository) GetTransactionsByType(ctx context.Context, id string, transactionType entities.TransactionType, limit int) ([]*entities.Transaction, error) {
	return r.filter(id, limit, func(t *entities.Transaction) bool { return t.Type == transactionType }), nil
}

func (r *MemoryRepository) filter(id string, limit int, keep func(*entities.Transaction) bool) []*entities.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactions := r.transactions[id]
	result := make([]*entities.Transaction, 0)
	for i := len(transactions) - 1; i >= 0 && len(result) < limit; i-- {
		if keep(transactions[i]) {
			txCopy := *transactions[i]
			result = append(result, &txCopy)
		}
	}
	return result
}

// SumTransactions returns the sum of every recorded amount for an account
func (r *MemoryRepository) SumTransactions(ctx context.Context, id string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, t := range r.transactions[id] {
		sum += t.Amount
	}
	return sum, nil
}

// Leaderboard returns a page of accounts ordered by kind
func (r *MemoryRepository) Leaderboard(ctx context.Context, kind entities.LeaderboardKind, offset, limit int) ([]*entities.LeaderboardEntry, int, error) {
	if _, ok := leaderboardOrder[kind]; !ok {
		return nil, 0, types.Errorf(types.ErrInvalidArgument, "unknown leaderboard %q", kind)
	}

	r.mu.RLock()
	all := make([]*entities.LeaderboardEntry, 0, len(r.accounts))
	for _, a := range r.accounts {
		all = append(all, &entities.LeaderboardEntry{
			AccountID: a.ID,
			Username:  a.Username,
			Coins:     a.Balance,
			Level:     a.Level,
			XP:        a.XP,
			Messages:  a.MessagesCount,
		})
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		vi, vj := all[i].Value(kind), all[j].Value(kind)
		if vi != vj {
			return vi > vj
		}
		if kind == entities.LeaderboardLevel && all[i].XP != all[j].XP {
			return all[i].XP > all[j].XP
		}
		return all[i].AccountID < all[j].AccountID
	})

	total := len(all)
	if offset >= total {
		return []*entities.LeaderboardEntry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := all[offset:end]
	for i, e := range page {
		e.Rank = offset + i + 1
	}
	return page, total, nil
}
